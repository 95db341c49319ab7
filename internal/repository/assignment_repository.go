package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// AssignmentRepository reads assignment metadata consumed by rollups.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Get fetches one assignment.
func (r *AssignmentRepository) Get(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, course_id, title, points_possible, due_at, muted
FROM assignments WHERE id = $1`

	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &assignment, nil
}

// SectionIDs lists the sections holding rollup-relevant enrollments for
// the assignment's course.
func (r *AssignmentRepository) SectionIDs(ctx context.Context, assignmentID string) ([]string, error) {
	const query = `SELECT DISTINCT e.course_section_id
FROM enrollments e
JOIN assignments a ON a.course_id = e.course_id
WHERE a.id = $1 AND e.workflow_state IN ($2, $3)
ORDER BY e.course_section_id`

	var sections []string
	if err := r.db.SelectContext(ctx, &sections, query, assignmentID,
		models.EnrollmentStateActive, models.EnrollmentStateCompleted); err != nil {
		return nil, fmt.Errorf("list assignment sections: %w", err)
	}
	return sections, nil
}
