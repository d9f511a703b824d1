package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomly/roombook-api/internal/models"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
)

func newBookingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func bookingRows(t time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "room_id", "start_time", "end_time", "organizer_id", "priority", "status", "buffer_before", "buffer_after", "created_at", "updated_at"}).
		AddRow("bk-1", "room-a", t, t.Add(time.Hour), "u-1", "normal", "confirmed", 15, 15, t, t)
}

func lockRoomRows(t time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "capacity", "equipment", "hourly_rate", "location", "created_at", "updated_at"}).
		AddRow("room-a", "Small Huddle", 4, "{projector}", 20.0, "Floor 1", t, t)
}

func tentative(start time.Time) *models.Booking {
	before, after := 15, 15
	return &models.Booking{
		RoomID:       "room-a",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		OrganizerID:  "u-1",
		Priority:     models.PriorityNormal,
		Status:       models.StatusTentative,
		BufferBefore: &before,
		BufferAfter:  &after,
	}
}

func TestBookingRepositoryListActiveInWindow(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	from := time.Date(2025, 11, 2, 14, 30, 0, 0, time.UTC)
	to := from.Add(4 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+bookingColumns+" FROM bookings WHERE start_time < $2 AND end_time > $1 AND status NOT IN ('cancelled', 'released') ORDER BY start_time ASC, id ASC")).
		WithArgs(from, to).
		WillReturnRows(bookingRows(from.Add(time.Hour)))

	bookings, err := repo.ListActiveInWindow(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "bk-1", bookings[0].ID)
	assert.Equal(t, models.StatusConfirmed, bookings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCommitTentative(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2025, 11, 2, 16, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM rooms WHERE id = \\$1 FOR UPDATE").
		WithArgs("room-a").
		WillReturnRows(lockRoomRows(start))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE room_id = \\$1").
		WithArgs("room-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "start_time", "end_time", "organizer_id", "priority", "status", "buffer_before", "buffer_after", "created_at", "updated_at"}))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := tentative(start)
	checked := false
	err := repo.CommitTentative(context.Background(), booking, func(room models.Room, active []models.Booking) error {
		checked = true
		assert.Equal(t, "room-a", room.ID)
		assert.Empty(t, active)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, checked)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.StatusTentative, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCommitTentativeRoomMissing(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM rooms WHERE id = \\$1 FOR UPDATE").
		WithArgs("room-a").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CommitTentative(context.Background(), tentative(time.Now()), func(models.Room, []models.Booking) error {
		t.Fatal("check must not run without a locked room")
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCommitTentativeCheckRejection(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2025, 11, 2, 16, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM rooms WHERE id = \\$1 FOR UPDATE").
		WithArgs("room-a").
		WillReturnRows(lockRoomRows(start))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE room_id = \\$1").
		WithArgs("room-a").
		WillReturnRows(bookingRows(start))
	mock.ExpectRollback()

	err := repo.CommitTentative(context.Background(), tentative(start), func(models.Room, []models.Booking) error {
		return appErrors.ErrBufferConflict
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBufferConflict.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCommitTentativeSerializationFailure(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2025, 11, 2, 16, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM rooms WHERE id = \\$1 FOR UPDATE").
		WithArgs("room-a").
		WillReturnRows(lockRoomRows(start))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE room_id = \\$1").
		WithArgs("room-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "start_time", "end_time", "organizer_id", "priority", "status", "buffer_before", "buffer_after", "created_at", "updated_at"}))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	err := repo.CommitTentative(context.Background(), tentative(start), func(models.Room, []models.Booking) error {
		return nil
	})
	require.Error(t, err)
	mapped := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConcurrencyConflict.Code, mapped.Code)
	assert.True(t, appErrors.Retryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2025, 11, 2, 16, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+bookingColumns+" FROM bookings WHERE id = $1")).
		WithArgs("bk-1").
		WillReturnRows(bookingRows(start))

	booking, err := repo.FindByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "bk-1", booking.ID)
	assert.True(t, booking.StartTime.Equal(start))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("bk-1", models.StatusTentative, models.StatusConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateStatus(context.Background(), "bk-1", models.StatusTentative, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryReleaseExpiredTentative(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	cutoff := time.Now().UTC().Add(-30 * time.Minute)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = 'released', updated_at = $2 WHERE status = 'tentative' AND created_at < $1")).
		WithArgs(cutoff, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	released, err := repo.ReleaseExpiredTentative(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatusLostRace(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("bk-1", models.StatusTentative, models.StatusConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.UpdateStatus(context.Background(), "bk-1", models.StatusTentative, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
