package models

import "time"

// Enrollment workflow states that contribute to rollups.
const (
	EnrollmentStateActive    = "active"
	EnrollmentStateCompleted = "completed"
)

// Assignment carries the metadata a rollup snapshots: the score
// denominator, the default due date and the muted flag.
type Assignment struct {
	ID             string     `db:"id" json:"id"`
	CourseID       string     `db:"course_id" json:"course_id"`
	Title          string     `db:"title" json:"title"`
	PointsPossible *float64   `db:"points_possible" json:"points_possible,omitempty"`
	DueAt          *time.Time `db:"due_at" json:"due_at,omitempty"`
	Muted          bool       `db:"muted" json:"muted"`
}

// EnrollmentSubmission is one enrollment paired with its (possibly absent)
// submission for an assignment. DueAt is the effective due date after any
// per-student or per-section override has been resolved upstream.
type EnrollmentSubmission struct {
	UserID          string     `db:"user_id" json:"user_id"`
	CourseSectionID string     `db:"course_section_id" json:"course_section_id"`
	WorkflowState   string     `db:"workflow_state" json:"workflow_state"`
	Score           *float64   `db:"score" json:"score,omitempty"`
	SubmittedAt     *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	DueAt           *time.Time `db:"due_at" json:"due_at,omitempty"`
	Excused         bool       `db:"excused" json:"excused"`
}
