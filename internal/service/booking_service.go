package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roomly/roombook-api/internal/dto"
	"github.com/roomly/roombook-api/internal/models"
	"github.com/roomly/roombook-api/internal/repository"
	"github.com/roomly/roombook-api/pkg/config"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
)

type bookingStore interface {
	CommitTentative(ctx context.Context, booking *models.Booking, check repository.CommitCheck) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, current, next models.BookingStatus) (int64, error)
	ReleaseExpiredTentative(ctx context.Context, cutoff time.Time) (int64, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// BookingService owns the commit protocol: it re-validates a chosen
// (room, time) against current data inside the store's atomic unit and
// persists a tentative booking, serialized per room. Among concurrent commit
// attempts with overlapping buffered windows on one room, at most one wins.
type BookingService struct {
	store     bookingStore
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       config.SchedulerConfig
}

// NewBookingService wires the commit protocol dependencies. Cache and
// metrics are optional.
func NewBookingService(
	store bookingStore,
	cache cacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		store:     store,
		cache:     cache,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Commit re-runs the buffer-aware conflict check and the capacity/equipment
// validation against the room's current record, then inserts a tentative
// booking. Failures surface as discrete error kinds so callers can tell a
// lost race from a slot that genuinely no longer fits.
func (s *BookingService) Commit(ctx context.Context, req dto.CommitBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	priority := models.Priority(req.Priority)
	if !priority.Valid() {
		priority = models.PriorityNormal
	}

	attendees := len(req.Attendees)
	if attendees < 1 {
		attendees = 1
	}

	buffer := s.cfg.BufferMinutes
	if buffer <= 0 {
		buffer = 15
	}
	bufferBefore := buffer
	bufferAfter := buffer

	start := req.StartTime
	end := start.Add(time.Duration(req.Duration) * time.Minute)

	booking := &models.Booking{
		RoomID:       req.RoomID,
		StartTime:    start,
		EndTime:      end,
		OrganizerID:  req.Organizer,
		Priority:     priority,
		Status:       models.StatusTentative,
		BufferBefore: &bufferBefore,
		BufferAfter:  &bufferAfter,
	}

	check := func(room models.Room, active []models.Booking) error {
		if room.Capacity < attendees {
			return appErrors.ErrCapacityExceeded
		}
		if !room.HasEquipment(req.RequiredEquipment) {
			return appErrors.ErrMissingEquipment
		}
		if conflicted, _ := findConflict(start, end, priority, active, buffer); conflicted {
			return appErrors.ErrBufferConflict
		}
		return nil
	}

	err := s.store.CommitTentative(ctx, booking, check)
	s.metrics.ObserveCommitAttempt(err)
	if err != nil {
		s.logger.Info("booking commit rejected",
			zap.String("room_id", req.RoomID),
			zap.Time("start", start),
			zap.String("reason", appErrors.FromError(err).Code),
		)
		return nil, err
	}

	s.invalidateRecommendations(ctx)

	s.logger.Info("booking committed",
		zap.String("booking_id", booking.ID),
		zap.String("room_id", booking.RoomID),
		zap.Time("start", booking.StartTime),
		zap.Time("end", booking.EndTime),
	)
	return booking, nil
}

// UpdateStatus moves a tentative booking to confirmed, cancelled or
// released. Terminal states never transition again.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, req dto.UpdateBookingStatusRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	next := models.BookingStatus(req.Status)

	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrBookingNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !booking.Status.CanTransitionTo(next) {
		return nil, appErrors.ErrInvalidTransition
	}

	affected, err := s.store.UpdateStatus(ctx, id, booking.Status, next)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}
	if affected == 0 {
		// Someone else moved the booking between our read and the update.
		return nil, appErrors.ErrConcurrencyConflict
	}

	if next == models.StatusCancelled || next == models.StatusReleased {
		s.invalidateRecommendations(ctx)
	}

	booking.Status = next
	return booking, nil
}

// ReleaseExpiredHolds releases tentative bookings older than the configured
// hold expiry. Meant to run periodically from a background sweeper.
func (s *BookingService) ReleaseExpiredHolds(ctx context.Context) error {
	expiry := s.cfg.HoldExpiry
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	cutoff := time.Now().UTC().Add(-expiry)

	released, err := s.store.ReleaseExpiredTentative(ctx, cutoff)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release expired holds")
	}
	if released > 0 {
		s.invalidateRecommendations(ctx)
		s.logger.Info("released expired tentative holds",
			zap.Int64("released", released),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// invalidateRecommendations drops cached recommendations after any write
// that changes availability.
func (s *BookingService) invalidateRecommendations(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "scheduler:recommendation:*"); err != nil {
		s.logger.Warn("failed to invalidate recommendation cache", zap.Error(err))
	}
}
