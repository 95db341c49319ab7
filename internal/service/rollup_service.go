package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/internal/stats"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// AssignmentSource describes assignment metadata lookups required by
// RollupService.
type AssignmentSource interface {
	Get(ctx context.Context, id string) (*models.Assignment, error)
	SectionIDs(ctx context.Context, assignmentID string) ([]string, error)
}

// SubmissionSource yields the enrollment/submission pairs a section rollup
// is built from.
type SubmissionSource interface {
	ListForSection(ctx context.Context, assignmentID, sectionID string) ([]models.EnrollmentSubmission, error)
}

// RollupStore persists section rollup snapshots.
type RollupStore interface {
	Upsert(ctx context.Context, rollup *models.SectionRollup) error
	GetSection(ctx context.Context, assignmentID, sectionID string) (*models.SectionRollup, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SectionRollup, error)
}

// RollupService computes section-level score rollups and merges them into
// assignment-level statistics without access to the raw submissions.
type RollupService struct {
	assignments AssignmentSource
	submissions SubmissionSource
	rollups     RollupStore
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger

	now func() time.Time
}

// NewRollupService constructs a rollup service.
func NewRollupService(assignments AssignmentSource, submissions SubmissionSource, rollups RollupStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RollupService {
	return &RollupService{
		assignments: assignments,
		submissions: submissions,
		rollups:     rollups,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// BuildSection folds one section's enrollment/submission pairs into a
// rollup snapshot. The histogram exists only when the assignment carries a
// score denominator; the tardiness tally always runs. Raw values never
// outlive this call — only the summary is returned. A rollup with zero
// submissions is valid and represents "no data".
func (s *RollupService) BuildSection(assignment *models.Assignment, sectionID string, pairs []models.EnrollmentSubmission) (*models.SectionRollup, error) {
	var hist *stats.Histogram
	if assignment.PointsPossible != nil {
		var err error
		hist, err = stats.NewHistogram(assignment.PointsPossible)
		if err != nil {
			return nil, err
		}
	}

	tally := stats.NewTardinessTally(s.now())
	var total int64

	for _, pair := range pairs {
		total++
		tally.Tally(stats.SubmissionTimes{
			SubmittedAt: pair.SubmittedAt,
			DueAt:       pair.DueAt,
			Excused:     pair.Excused,
		})
		if hist != nil && pair.Score != nil {
			hist.Insert(*pair.Score)
		}
	}

	breakdown := tally.Scaled(total)
	rollup := &models.SectionRollup{
		AssignmentID:     assignment.ID,
		CourseSectionID:  sectionID,
		Title:            assignment.Title,
		DueAt:            assignment.DueAt,
		Muted:            assignment.Muted,
		PointsPossible:   assignment.PointsPossible,
		TotalSubmissions: total,
		MissingFraction:  breakdown.Missing,
		LateFraction:     breakdown.Late,
		OnTimeFraction:   breakdown.OnTime,
	}

	if hist != nil {
		rollup.MaxScore = hist.Max()
		rollup.MinScore = hist.Min()
		rollup.FirstQuartile = hist.Quartile(0.25)
		rollup.Median = hist.Quartile(0.5)
		rollup.ThirdQuartile = hist.Quartile(0.75)
		rollup.BucketCounts = hist.Counts()
	}

	return rollup, nil
}

// RecomputeSection rebuilds one section's rollup from the current
// submission set and upserts it, invalidating cached aggregates.
func (s *RollupService) RecomputeSection(ctx context.Context, assignmentID, sectionID string) (*models.SectionRollup, error) {
	assignment, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pairs, err := s.submissions.ListForSection(ctx, assignmentID, sectionID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("section_submissions", time.Since(start))
	}

	rollup, err := s.BuildSection(assignment, sectionID, pairs)
	if err != nil {
		return nil, err
	}

	if err := s.rollups.Upsert(ctx, rollup); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, rollupCacheKey(assignmentID)+"*"); err != nil && s.logger != nil {
			s.logger.Warn("invalidate rollup cache", zap.String("assignment", assignmentID), zap.Error(err))
		}
	}

	if s.logger != nil {
		s.logger.Info("section rollup recomputed",
			zap.String("assignment", assignmentID),
			zap.String("section", sectionID),
			zap.Int64("submissions", rollup.TotalSubmissions))
	}
	return rollup, nil
}

// RecomputeAssignment rebuilds every section rollup for the assignment.
func (s *RollupService) RecomputeAssignment(ctx context.Context, assignmentID string) ([]models.SectionRollup, error) {
	sections, err := s.assignments.SectionIDs(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	rollups := make([]models.SectionRollup, 0, len(sections))
	for _, sectionID := range sections {
		rollup, err := s.RecomputeSection(ctx, assignmentID, sectionID)
		if err != nil {
			return nil, fmt.Errorf("recompute section %s: %w", sectionID, err)
		}
		rollups = append(rollups, *rollup)
	}
	return rollups, nil
}

// SectionRollup fetches one persisted section rollup.
func (s *RollupService) SectionRollup(ctx context.Context, assignmentID, sectionID string) (*models.SectionRollup, error) {
	return s.rollups.GetSection(ctx, assignmentID, sectionID)
}

// AssignmentRollup merges the assignment's section rollups into one
// assignment-level view. The boolean reports whether the result came from
// cache.
func (s *RollupService) AssignmentRollup(ctx context.Context, assignmentID string) (*models.AssignmentRollup, bool, error) {
	cacheKey := rollupCacheKey(assignmentID)
	var cached models.AssignmentRollup
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get rollup cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	rollups, err := s.rollups.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("assignment_rollups", time.Since(start))
	}
	if len(rollups) == 0 {
		return nil, false, appErrors.ErrNotFound
	}

	aggregate, err := s.Aggregate(rollups)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, aggregate, 0); err != nil && s.logger != nil {
			s.logger.Warn("cache assignment rollup", zap.Error(err))
		}
	}
	return aggregate, false, nil
}

// Aggregate merges section rollups for one assignment. All inputs must
// share the assignment's score range, which holds whenever the caller
// gathered them by assignment id; merged quartiles are approximate, while
// max/min and tardiness totals stay exact.
func (s *RollupService) Aggregate(rollups []models.SectionRollup) (*models.AssignmentRollup, error) {
	if len(rollups) == 0 {
		return nil, appErrors.ErrNotFound
	}

	first := rollups[0]
	out := &models.AssignmentRollup{
		AssignmentID:   first.AssignmentID,
		Title:          first.Title,
		DueAt:          first.DueAt,
		Muted:          first.Muted,
		PointsPossible: first.PointsPossible,
		SectionCount:   len(rollups),
	}

	var grandTotal int64
	var missing, late, onTime float64
	for _, r := range rollups {
		grandTotal += r.TotalSubmissions
		missing += r.UnscaledMissing()
		late += r.UnscaledLate()
		onTime += r.UnscaledOnTime()
	}
	out.TotalSubmissions = grandTotal
	if grandTotal > 0 {
		out.MissingFraction = missing / float64(grandTotal)
		out.LateFraction = late / float64(grandTotal)
		out.OnTimeFraction = onTime / float64(grandTotal)
	}

	if first.PointsPossible == nil {
		return out, nil
	}

	composite := make([]int64, len(first.BucketCounts))
	var scoredTotal int64
	haveScores := false
	for _, r := range rollups {
		var scored int64
		for i, c := range r.BucketCounts {
			if i < len(composite) {
				composite[i] += c
			}
			scored += c
		}
		if scored == 0 {
			continue
		}
		scoredTotal += scored
		if !haveScores || r.MaxScore > out.MaxScore {
			out.MaxScore = r.MaxScore
		}
		if !haveScores || r.MinScore < out.MinScore {
			out.MinScore = r.MinScore
		}
		haveScores = true
	}
	out.BucketCounts = composite

	if scoredTotal > 0 {
		hist, err := stats.Reconstruct(first.PointsPossible, composite)
		if err != nil {
			return nil, err
		}
		out.FirstQuartile = hist.Quartile(0.25)
		out.Median = hist.Quartile(0.5)
		out.ThirdQuartile = hist.Quartile(0.75)
	}

	return out, nil
}

func rollupCacheKey(assignmentID string) string {
	return "rollups:assignment:" + assignmentID
}
