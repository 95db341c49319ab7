package dto

import (
	"time"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// IncrementRequest records one page view against a course activity bin.
type IncrementRequest struct {
	Category     string `json:"category" binding:"required"`
	OccurredAt   string `json:"occurred_at" binding:"required"`
	Participated bool   `json:"participated"`
}

// OccurredAtTime parses the RFC3339 event timestamp.
func (r IncrementRequest) OccurredAtTime() (time.Time, error) {
	at, err := time.Parse(time.RFC3339, r.OccurredAt)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "occurred_at must be RFC3339")
	}
	return at, nil
}

// ActivityQuery captures the range-read query parameters.
type ActivityQuery struct {
	Category string `form:"category"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// Filter converts the query into a repository filter. Bounds use calendar
// dates, not timestamps.
func (q ActivityQuery) Filter(courseID string) (models.ActivityFilter, error) {
	filter := models.ActivityFilter{CourseID: courseID, Category: q.Category}
	if q.DateFrom != "" {
		from, err := time.Parse("2006-01-02", q.DateFrom)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date_from must be YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		to, err := time.Parse("2006-01-02", q.DateTo)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date_to must be YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	return filter, nil
}
