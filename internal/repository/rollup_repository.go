package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// RollupRepository persists section-level score rollups. A rollup row is
// always replaced wholesale via upsert on (assignment_id,
// course_section_id).
type RollupRepository struct {
	db *sqlx.DB
}

// NewRollupRepository instantiates the repository.
func NewRollupRepository(db *sqlx.DB) *RollupRepository {
	return &RollupRepository{db: db}
}

// Upsert stores the rollup, replacing any prior snapshot for the same
// assignment and section.
func (r *RollupRepository) Upsert(ctx context.Context, rollup *models.SectionRollup) error {
	const query = `INSERT INTO section_rollups (
        assignment_id, course_section_id, title, due_at, muted, points_possible,
        total_submissions, missing_fraction, late_fraction, on_time_fraction,
        max_score, min_score, first_quartile, median, third_quartile, bucket_counts, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (assignment_id, course_section_id)
DO UPDATE SET title = EXCLUDED.title, due_at = EXCLUDED.due_at, muted = EXCLUDED.muted,
              points_possible = EXCLUDED.points_possible,
              total_submissions = EXCLUDED.total_submissions,
              missing_fraction = EXCLUDED.missing_fraction,
              late_fraction = EXCLUDED.late_fraction,
              on_time_fraction = EXCLUDED.on_time_fraction,
              max_score = EXCLUDED.max_score, min_score = EXCLUDED.min_score,
              first_quartile = EXCLUDED.first_quartile, median = EXCLUDED.median,
              third_quartile = EXCLUDED.third_quartile,
              bucket_counts = EXCLUDED.bucket_counts, updated_at = EXCLUDED.updated_at`

	rollup.UpdatedAt = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query,
		rollup.AssignmentID, rollup.CourseSectionID, rollup.Title, rollup.DueAt,
		rollup.Muted, rollup.PointsPossible, rollup.TotalSubmissions,
		rollup.MissingFraction, rollup.LateFraction, rollup.OnTimeFraction,
		rollup.MaxScore, rollup.MinScore, rollup.FirstQuartile, rollup.Median,
		rollup.ThirdQuartile, rollup.BucketCounts, rollup.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert section rollup: %w", err)
	}
	return nil
}

// GetSection fetches one section's rollup.
func (r *RollupRepository) GetSection(ctx context.Context, assignmentID, sectionID string) (*models.SectionRollup, error) {
	const query = `SELECT assignment_id, course_section_id, title, due_at, muted, points_possible,
        total_submissions, missing_fraction, late_fraction, on_time_fraction,
        max_score, min_score, first_quartile, median, third_quartile, bucket_counts, updated_at
FROM section_rollups WHERE assignment_id = $1 AND course_section_id = $2`

	var rollup models.SectionRollup
	if err := r.db.GetContext(ctx, &rollup, query, assignmentID, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get section rollup: %w", err)
	}
	return &rollup, nil
}

// ListByAssignment returns every section rollup recorded for one
// assignment, ordered by section for stable aggregation.
func (r *RollupRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SectionRollup, error) {
	const query = `SELECT assignment_id, course_section_id, title, due_at, muted, points_possible,
        total_submissions, missing_fraction, late_fraction, on_time_fraction,
        max_score, min_score, first_quartile, median, third_quartile, bucket_counts, updated_at
FROM section_rollups WHERE assignment_id = $1 ORDER BY course_section_id`

	var rollups []models.SectionRollup
	if err := r.db.SelectContext(ctx, &rollups, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list section rollups: %w", err)
	}
	return rollups, nil
}
