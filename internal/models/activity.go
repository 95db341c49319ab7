package models

import "time"

// ActivityBin is a durable page-view counter keyed by course, calendar day
// and activity category. Bins are created lazily on first write and only
// ever incremented; participations never exceed views.
type ActivityBin struct {
	CourseID       string    `db:"course_id" json:"course_id"`
	Date           time.Time `db:"date" json:"date"`
	Category       string    `db:"category" json:"category"`
	Views          int64     `db:"views" json:"views"`
	Participations int64     `db:"participations" json:"participations"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// BufferedDelta is one consolidated counter delta decoded from the fast
// store during a drain.
type BufferedDelta struct {
	CourseID       string
	Date           time.Time
	Category       string
	Views          int64
	Participations int64
}

// ActivityFilter scopes activity reads to a course and optional range.
type ActivityFilter struct {
	CourseID string
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
}
