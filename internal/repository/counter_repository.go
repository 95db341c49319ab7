package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-stats-api/internal/models"
)

// CounterRepository maintains the durable page-view counter bins. Bins are
// only ever mutated additively, so direct writers and the drainer's
// batched writers compose without coordination.
type CounterRepository struct {
	db *sqlx.DB
}

// NewCounterRepository instantiates the repository.
func NewCounterRepository(db *sqlx.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Increment adds one view (and optionally one participation) to the bin,
// creating it when absent. The canonical durable write path: always
// correct, one point write per event.
func (r *CounterRepository) Increment(ctx context.Context, courseID string, date time.Time, category string, participated bool) error {
	var participations int64
	if participated {
		participations = 1
	}
	return r.Augment(ctx, courseID, date, category, 1, participations)
}

// Augment applies an aggregated delta to the bin in a single write. Used
// by the drainer to consolidate many buffered events.
func (r *CounterRepository) Augment(ctx context.Context, courseID string, date time.Time, category string, views, participations int64) error {
	const query = `INSERT INTO page_view_rollups (course_id, date, category, views, participations, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (course_id, date, category)
DO UPDATE SET views = page_view_rollups.views + EXCLUDED.views,
              participations = page_view_rollups.participations + EXCLUDED.participations,
              updated_at = EXCLUDED.updated_at`

	day := date.UTC().Truncate(24 * time.Hour)
	if _, err := r.db.ExecContext(ctx, query, courseID, day, category, views, participations, time.Now().UTC()); err != nil {
		return fmt.Errorf("augment page view rollup: %w", err)
	}
	return nil
}

// List returns the bins matching the filter ordered by day then category.
func (r *CounterRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityBin, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT course_id, date, category, views, participations, updated_at
FROM page_view_rollups WHERE course_id = $1`)
	args := []interface{}{filter.CourseID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		builder.WriteString(fmt.Sprintf(" AND category = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, filter.DateFrom.UTC().Truncate(24*time.Hour))
		builder.WriteString(fmt.Sprintf(" AND date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, filter.DateTo.UTC().Truncate(24*time.Hour))
		builder.WriteString(fmt.Sprintf(" AND date <= $%d", len(args)))
	}
	builder.WriteString(" ORDER BY date, category")

	var bins []models.ActivityBin
	if err := r.db.SelectContext(ctx, &bins, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list page view rollups: %w", err)
	}
	return bins, nil
}
