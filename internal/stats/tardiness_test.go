package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	due := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	futureDue := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   SubmissionTimes
		want SubmissionKind
	}{
		{"submitted before due", SubmissionTimes{SubmittedAt: timePtr(due.Add(-time.Hour)), DueAt: timePtr(due)}, KindOnTime},
		{"submitted after due", SubmissionTimes{SubmittedAt: timePtr(due.Add(time.Hour)), DueAt: timePtr(due)}, KindLate},
		{"unsubmitted past due", SubmissionTimes{DueAt: timePtr(due)}, KindMissing},
		{"unsubmitted before due", SubmissionTimes{DueAt: timePtr(futureDue)}, KindOnTime},
		{"no due date", SubmissionTimes{SubmittedAt: timePtr(now)}, KindOnTime},
		{"unsubmitted no due date", SubmissionTimes{}, KindOnTime},
		{"excused", SubmissionTimes{DueAt: timePtr(due), Excused: true}, KindExcused},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.in, now))
		})
	}
}

func TestTardinessTallyScaled(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	due := timePtr(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC))

	tally := NewTardinessTally(now)
	tally.Tally(SubmissionTimes{SubmittedAt: timePtr(now.Add(-48 * time.Hour)), DueAt: due})
	tally.Tally(SubmissionTimes{SubmittedAt: timePtr(now), DueAt: due})
	tally.Tally(SubmissionTimes{SubmittedAt: timePtr(now), DueAt: due})
	tally.Tally(SubmissionTimes{DueAt: due})

	breakdown := tally.Scaled(4)
	assert.InDelta(t, 0.25, breakdown.Missing, 1e-9)
	assert.InDelta(t, 0.5, breakdown.Late, 1e-9)
	assert.InDelta(t, 0.25, breakdown.OnTime, 1e-9)

	// The fraction form round-trips back to absolute counts.
	assert.InDelta(t, 1, breakdown.Missing*4, 1e-9)
	assert.InDelta(t, 2, breakdown.Late*4, 1e-9)
	assert.InDelta(t, 1, breakdown.OnTime*4, 1e-9)
}

func TestTardinessTallyExcusedExcluded(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	due := timePtr(now.Add(-time.Hour))

	tally := NewTardinessTally(now)
	tally.Tally(SubmissionTimes{DueAt: due, Excused: true})
	tally.Tally(SubmissionTimes{SubmittedAt: timePtr(now.Add(-2 * time.Hour)), DueAt: due})

	breakdown := tally.Scaled(2)
	assert.Zero(t, breakdown.Missing)
	assert.Zero(t, breakdown.Late)
	assert.InDelta(t, 0.5, breakdown.OnTime, 1e-9)
}

func TestTardinessTallyZeroTotal(t *testing.T) {
	tally := NewTardinessTally(time.Now())
	assert.Equal(t, TardinessBreakdown{}, tally.Scaled(0))
}
