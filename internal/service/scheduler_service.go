package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roomly/roombook-api/internal/dto"
	"github.com/roomly/roombook-api/internal/models"
	"github.com/roomly/roombook-api/pkg/config"
	appErrors "github.com/roomly/roombook-api/pkg/errors"
)

// windowPaddingMinutes extends the booking query window beyond the search
// horizon so buffered bookings at the edges are still visible.
const windowPaddingMinutes = 60

type roomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

type bookingWindowReader interface {
	ListActiveInWindow(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type recommendationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SchedulerService loads the scheduling snapshot and runs the allocation
// engine over it. The engine itself is pure; all I/O lives here.
type SchedulerService struct {
	rooms     roomLister
	bookings  bookingWindowReader
	cache     recommendationCache
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       config.SchedulerConfig
}

// NewSchedulerService wires the scheduling dependencies. Cache and metrics
// are optional.
func NewSchedulerService(
	rooms roomLister,
	bookings bookingWindowReader,
	cache recommendationCache,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
) *SchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		rooms:     rooms,
		bookings:  bookings,
		cache:     cache,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// FindOptimal returns the top-ranked (room, time) pairing for the request,
// with alternatives and a cost-saving estimate. "No feasible candidate" is a
// normal response with a null room, not an error.
func (s *SchedulerService) FindOptimal(ctx context.Context, req dto.FindOptimalRequest) (*dto.FindOptimalResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting request payload")
	}

	cacheKey := recommendationCacheKey(req)
	if s.cache != nil {
		start := time.Now()
		var cached dto.FindOptimalResponse
		err := s.cache.Get(ctx, cacheKey, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
	}

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room inventory")
	}

	flexibility := req.Flexibility
	if flexibility < 0 {
		flexibility = 0
	}
	windowStart := req.PreferredStartTime.Add(-time.Duration(flexibility+windowPaddingMinutes) * time.Minute)
	windowEnd := req.PreferredStartTime.Add(time.Duration(flexibility+req.Duration+windowPaddingMinutes) * time.Minute)

	bookings, err := s.bookings.ListActiveInWindow(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings window")
	}

	started := time.Now()
	rec, err := findOptimalMeeting(req.ToModel(), rooms, bookings, engineConfigFrom(s.cfg))
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSchedulingRun(rec.Room != nil, rec.Diagnostics.ScoredCount, time.Since(started))

	s.logger.Debug("scheduling run",
		zap.Int("rooms", len(rooms)),
		zap.Int("bookings", len(bookings)),
		zap.Int("scored", rec.Diagnostics.ScoredCount),
		zap.Bool("recommended", rec.Room != nil),
	)

	resp := dto.FromRecommendation(rec)

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache recommendation", zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	return resp, nil
}

// recommendationCacheKey hashes the canonical request payload. Identical
// requests share a cache entry; any field change produces a new key.
func recommendationCacheKey(req dto.FindOptimalRequest) string {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Sprintf("scheduler:recommendation:%s:%d", req.Organizer, req.PreferredStartTime.UnixNano())
	}
	sum := sha256.Sum256(payload)
	return "scheduler:recommendation:" + hex.EncodeToString(sum[:])
}
