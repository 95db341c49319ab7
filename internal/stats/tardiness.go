package stats

import "time"

// SubmissionKind is the closed set of tardiness classifications.
type SubmissionKind int

const (
	KindOnTime SubmissionKind = iota
	KindLate
	KindMissing
	KindExcused
)

// String names the kind for logging.
func (k SubmissionKind) String() string {
	switch k {
	case KindLate:
		return "late"
	case KindMissing:
		return "missing"
	case KindExcused:
		return "excused"
	default:
		return "on_time"
	}
}

// SubmissionTimes carries the timestamps a tardiness decision needs. DueAt
// is the effective due date, after any per-student or per-section override
// has been applied upstream.
type SubmissionTimes struct {
	SubmittedAt *time.Time
	DueAt       *time.Time
	Excused     bool
}

// Classify decides a submission's tardiness relative to its effective due
// date. Unsubmitted work past the due date is missing; submitted work after
// the due date is late; everything else counts as on time. Excused work is
// reported separately and never feeds the three tardiness counts.
func Classify(s SubmissionTimes, now time.Time) SubmissionKind {
	if s.Excused {
		return KindExcused
	}
	if s.SubmittedAt == nil {
		if s.DueAt != nil && now.After(*s.DueAt) {
			return KindMissing
		}
		return KindOnTime
	}
	if s.DueAt != nil && s.SubmittedAt.After(*s.DueAt) {
		return KindLate
	}
	return KindOnTime
}

// TardinessBreakdown reports missing/late/on-time as fractions of a total.
// Fraction storage is the canonical persisted form; absolute counts are
// recovered as fraction * total when rollups are merged.
type TardinessBreakdown struct {
	Missing float64 `json:"missing"`
	Late    float64 `json:"late"`
	OnTime  float64 `json:"on_time"`
}

// TardinessTally accumulates tardiness counts for one section's
// submissions.
type TardinessTally struct {
	now     time.Time
	missing int64
	late    int64
	onTime  int64
}

// NewTardinessTally returns a tally that classifies against the given
// reference time.
func NewTardinessTally(now time.Time) *TardinessTally {
	return &TardinessTally{now: now}
}

// Tally classifies the submission and bumps the matching count, returning
// the kind it decided on.
func (t *TardinessTally) Tally(s SubmissionTimes) SubmissionKind {
	kind := Classify(s, t.now)
	switch kind {
	case KindMissing:
		t.missing++
	case KindLate:
		t.late++
	case KindOnTime:
		t.onTime++
	}
	return kind
}

// Scaled returns the tally as fractions of the given total. A zero total
// yields an all-zero breakdown.
func (t *TardinessTally) Scaled(total int64) TardinessBreakdown {
	if total <= 0 {
		return TardinessBreakdown{}
	}
	return TardinessBreakdown{
		Missing: float64(t.missing) / float64(total),
		Late:    float64(t.late) / float64(total),
		OnTime:  float64(t.onTime) / float64(total),
	}
}
