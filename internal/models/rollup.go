package models

import (
	"time"

	"github.com/lib/pq"
)

// SectionRollup is the persisted summary of one assignment's submissions
// within one course section. It is recomputed wholesale from the current
// submission set and upserted by (assignment_id, course_section_id) —
// never incrementally patched. Tardiness is stored in fraction form;
// absolute counts are recovered as fraction * TotalSubmissions.
type SectionRollup struct {
	AssignmentID    string `db:"assignment_id" json:"assignment_id"`
	CourseSectionID string `db:"course_section_id" json:"course_section_id"`

	Title          string     `db:"title" json:"title"`
	DueAt          *time.Time `db:"due_at" json:"due_at,omitempty"`
	Muted          bool       `db:"muted" json:"muted"`
	PointsPossible *float64   `db:"points_possible" json:"points_possible,omitempty"`

	TotalSubmissions int64   `db:"total_submissions" json:"total_submissions"`
	MissingFraction  float64 `db:"missing_fraction" json:"missing_fraction"`
	LateFraction     float64 `db:"late_fraction" json:"late_fraction"`
	OnTimeFraction   float64 `db:"on_time_fraction" json:"on_time_fraction"`

	MaxScore      float64       `db:"max_score" json:"max_score"`
	MinScore      float64       `db:"min_score" json:"min_score"`
	FirstQuartile float64       `db:"first_quartile" json:"first_quartile"`
	Median        float64       `db:"median" json:"median"`
	ThirdQuartile float64       `db:"third_quartile" json:"third_quartile"`
	BucketCounts  pq.Int64Array `db:"bucket_counts" json:"bucket_counts"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UnscaledMissing recovers the absolute missing-submission count.
func (r *SectionRollup) UnscaledMissing() float64 {
	return r.MissingFraction * float64(r.TotalSubmissions)
}

// UnscaledLate recovers the absolute late-submission count.
func (r *SectionRollup) UnscaledLate() float64 {
	return r.LateFraction * float64(r.TotalSubmissions)
}

// UnscaledOnTime recovers the absolute on-time-submission count.
func (r *SectionRollup) UnscaledOnTime() float64 {
	return r.OnTimeFraction * float64(r.TotalSubmissions)
}

// AssignmentRollup is the merged, assignment-level view over a set of
// section rollups. It is derived on read and never persisted; quartiles
// are approximate once merged, max/min stay exact.
type AssignmentRollup struct {
	AssignmentID   string     `json:"assignment_id"`
	Title          string     `json:"title"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	Muted          bool       `json:"muted"`
	PointsPossible *float64   `json:"points_possible,omitempty"`

	TotalSubmissions int64   `json:"total_submissions"`
	MissingFraction  float64 `json:"missing_fraction"`
	LateFraction     float64 `json:"late_fraction"`
	OnTimeFraction   float64 `json:"on_time_fraction"`

	MaxScore      float64 `json:"max_score"`
	MinScore      float64 `json:"min_score"`
	FirstQuartile float64 `json:"first_quartile"`
	Median        float64 `json:"median"`
	ThirdQuartile float64 `json:"third_quartile"`
	BucketCounts  []int64 `json:"bucket_counts"`

	SectionCount int `json:"section_count"`
}
