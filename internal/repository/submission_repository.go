package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-stats-api/internal/models"
)

// SubmissionRepository yields the enrollment/submission pairs a section
// rollup is built from. The effective due date honors the per-submission
// cached override when one exists.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// ListForSection returns one row per rollup-relevant enrollment in the
// section, with its submission fields when a submission exists.
func (r *SubmissionRepository) ListForSection(ctx context.Context, assignmentID, sectionID string) ([]models.EnrollmentSubmission, error) {
	const query = `SELECT e.user_id, e.course_section_id, e.workflow_state,
        s.score, s.submitted_at,
        COALESCE(s.cached_due_date, a.due_at) AS due_at,
        COALESCE(s.excused, FALSE) AS excused
FROM enrollments e
JOIN assignments a ON a.course_id = e.course_id
LEFT JOIN submissions s ON s.assignment_id = a.id AND s.user_id = e.user_id
WHERE a.id = $1 AND e.course_section_id = $2 AND e.workflow_state IN ($3, $4)
ORDER BY e.user_id`

	var pairs []models.EnrollmentSubmission
	if err := r.db.SelectContext(ctx, &pairs, query, assignmentID, sectionID,
		models.EnrollmentStateActive, models.EnrollmentStateCompleted); err != nil {
		return nil, fmt.Errorf("list section submissions: %w", err)
	}
	return pairs, nil
}
