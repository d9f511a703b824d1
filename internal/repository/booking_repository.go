package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/roomly/roombook-api/internal/models"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
)

const bookingColumns = "id, room_id, start_time, end_time, organizer_id, priority, status, buffer_before, buffer_after, created_at, updated_at"

// CommitCheck re-validates a commit candidate against the room's current
// record and the room's active bookings, both read inside the transaction.
// Returning a non-nil error aborts the commit without inserting anything.
type CommitCheck func(room models.Room, active []models.Booking) error

// BookingRepository provides persistence for bookings, including the atomic
// check-then-insert commit unit.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListActiveInWindow returns non-cancelled/released bookings whose interval
// intersects [from, to), ordered by start time.
func (r *BookingRepository) ListActiveInWindow(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE start_time < $2 AND end_time > $1 AND status NOT IN ('cancelled', 'released') ORDER BY start_time ASC, id ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, from, to); err != nil {
		return nil, fmt.Errorf("list bookings in window: %w", err)
	}
	return bookings, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CommitTentative executes the check-then-insert sequence as one atomic unit
// scoped to the target room. The SELECT ... FOR UPDATE on the room row
// serializes concurrent commits per room while leaving other rooms
// unaffected; the serializable isolation level guards the booking read set.
// A lost race surfaces as a retryable concurrency conflict.
func (r *BookingRepository) CommitTentative(ctx context.Context, booking *models.Booking, check CommitCheck) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin booking commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var room models.Room
	const lockQuery = `SELECT id, name, capacity, equipment, hourly_rate, location, created_at, updated_at FROM rooms WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &room, lockQuery, booking.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrRoomNotFound
		}
		return concurrencyAware(err, "lock room for commit")
	}

	const activeQuery = `SELECT ` + bookingColumns + ` FROM bookings WHERE room_id = $1 AND status NOT IN ('cancelled', 'released') ORDER BY start_time ASC, id ASC`
	var active []models.Booking
	if err = tx.SelectContext(ctx, &active, activeQuery, booking.RoomID); err != nil {
		return concurrencyAware(err, "read active bookings for commit")
	}

	if err = check(room, active); err != nil {
		return err
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.Status = models.StatusTentative
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const insertQuery = `INSERT INTO bookings (id, room_id, start_time, end_time, organizer_id, priority, status, buffer_before, buffer_after, created_at, updated_at) VALUES (:id, :room_id, :start_time, :end_time, :organizer_id, :priority, :status, :buffer_before, :buffer_after, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, booking); err != nil {
		return concurrencyAware(err, "insert tentative booking")
	}

	if err = tx.Commit(); err != nil {
		return concurrencyAware(err, "commit booking transaction")
	}
	return nil
}

// UpdateStatus transitions a booking guarded by its expected current status.
// Zero rows affected means another writer got there first.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, current, next models.BookingStatus) (int64, error) {
	const query = `UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, current, next, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update booking status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update booking status rows: %w", err)
	}
	return affected, nil
}

// ReleaseExpiredTentative moves tentative bookings created before the cutoff
// to released, freeing their slots. Returns the number of released bookings.
func (r *BookingRepository) ReleaseExpiredTentative(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE bookings SET status = 'released', updated_at = $2 WHERE status = 'tentative' AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("release expired tentative bookings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release expired tentative bookings rows: %w", err)
	}
	return affected, nil
}

// concurrencyAware maps Postgres serialization and lock failures onto the
// retryable conflict error; anything else is wrapped as-is.
func concurrencyAware(err error, action string) error {
	if isSerializationFailure(err) {
		return appErrors.Wrap(err, appErrors.ErrConcurrencyConflict.Code, appErrors.ErrConcurrencyConflict.Status, appErrors.ErrConcurrencyConflict.Message)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		return true
	}
	return false
}
