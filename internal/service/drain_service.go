package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
)

// DrainBuffer is the consumer-side contract against the fast shared
// store. It is satisfied by the Redis buffer repository and by in-memory
// fakes in tests.
type DrainBuffer interface {
	AcquireLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context) error
	Snapshot(ctx context.Context) (bool, error)
	PopCourse(ctx context.Context) (string, error)
	DrainCourse(ctx context.Context, courseKey string, lockTTL time.Duration) ([]models.BufferedDelta, string, error)
}

// Augmenter applies consolidated counter deltas to the durable store.
type Augmenter interface {
	Augment(ctx context.Context, courseID string, date time.Time, category string, views, participations int64) error
}

// DrainService periodically consolidates buffered page-view increments
// into the durable counter bins. At most one drain runs per shard at any
// time, enforced by the TTL lease in the shared store rather than by
// in-process locking.
type DrainService struct {
	buffer   DrainBuffer
	counters Augmenter
	lockTTL  time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewDrainService constructs a drain service.
func NewDrainService(buffer DrainBuffer, counters Augmenter, lockTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *DrainService {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Minute
	}
	return &DrainService{
		buffer:   buffer,
		counters: counters,
		lockTTL:  lockTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// Drain runs one drain attempt. A held lease or an empty buffer is a
// quiet no-op; failures abort the attempt and leave the working set for
// the next interval to resume. The lease is released on every exit path.
func (s *DrainService) Drain(ctx context.Context) error {
	acquired, err := s.buffer.AcquireLock(ctx, s.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		if s.metrics != nil {
			s.metrics.RecordDrainContention()
		}
		return nil
	}
	defer func() {
		if err := s.buffer.ReleaseLock(context.WithoutCancel(ctx)); err != nil && s.logger != nil {
			s.logger.Warn("release drain lock", zap.Error(err))
		}
	}()

	hasWork, err := s.buffer.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !hasWork {
		return nil
	}

	start := time.Now()
	var courses, fields int

	key, err := s.buffer.PopCourse(ctx)
	if err != nil {
		return err
	}
	for key != "" {
		deltas, next, err := s.buffer.DrainCourse(ctx, key, s.lockTTL)
		if err != nil {
			return err
		}
		for _, d := range deltas {
			if err := s.counters.Augment(ctx, d.CourseID, d.Date, d.Category, d.Views, d.Participations); err != nil {
				return err
			}
			fields++
		}
		courses++
		key = next
	}

	if s.metrics != nil {
		s.metrics.RecordDrain(courses, fields, time.Since(start))
	}
	if s.logger != nil && courses > 0 {
		s.logger.Info("buffered increments drained",
			zap.Int("courses", courses),
			zap.Int("fields", fields),
			zap.Duration("took", time.Since(start)))
	}
	return nil
}

// Run drains on a fixed interval until the context is cancelled. Errors
// are logged and swallowed; the next tick retries via the idempotent
// working-set resume.
func (s *DrainService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Drain(ctx); err != nil && s.logger != nil {
				s.logger.Warn("drain attempt failed", zap.Error(err))
			}
		}
	}
}
