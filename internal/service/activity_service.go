package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// CounterStore is the durable side of the page-view counter pipeline.
type CounterStore interface {
	Increment(ctx context.Context, courseID string, date time.Time, category string, participated bool) error
	Augment(ctx context.Context, courseID string, date time.Time, category string, views, participations int64) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityBin, error)
}

// IncrementBuffer is the producer side of the fast shared store.
type IncrementBuffer interface {
	IncrementBuffered(ctx context.Context, courseID string, date time.Time, category string, participated bool) error
}

// ActivityService records page-view/participation events. With buffered
// counters enabled it writes to the fast shared store for later
// consolidation; a failed buffer write falls back silently to the direct
// durable path so no event is ever dropped.
type ActivityService struct {
	counters  CounterStore
	buffer    IncrementBuffer
	buffered  bool
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewActivityService constructs an activity service.
func NewActivityService(counters CounterStore, buffer IncrementBuffer, buffered bool, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{
		counters:  counters,
		buffer:    buffer,
		buffered:  buffered,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

type incrementEvent struct {
	CourseID string `validate:"required"`
	Category string `validate:"required,max=64"`
}

// Increment records one page view (and optional participation) for a
// course, day and category.
func (s *ActivityService) Increment(ctx context.Context, courseID string, date time.Time, category string, participated bool) error {
	if err := s.validator.Struct(incrementEvent{CourseID: courseID, Category: category}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity increment")
	}

	if s.buffered && s.buffer != nil {
		err := s.buffer.IncrementBuffered(ctx, courseID, date, category, participated)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordIncrement(IncrementPathBuffered)
			}
			return nil
		}
		if s.logger != nil {
			s.logger.Warn("buffered increment failed, writing direct",
				zap.String("course", courseID),
				zap.String("category", category),
				zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordIncrement(IncrementPathFallback)
		}
		return s.counters.Increment(ctx, courseID, date, category, participated)
	}

	if s.metrics != nil {
		s.metrics.RecordIncrement(IncrementPathDirect)
	}
	return s.counters.Increment(ctx, courseID, date, category, participated)
}

// Range reads the durable counter bins matching the filter.
func (s *ActivityService) Range(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityBin, error) {
	start := time.Now()
	bins, err := s.counters.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("activity_bins", time.Since(start))
	}
	return bins, nil
}
