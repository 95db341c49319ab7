package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

type stubCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	deletes int
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.entries == nil {
		s.entries = map[string][]byte{}
	}
	s.entries[key] = raw
	s.sets++
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	s.deletes++
	return nil
}

type fakeAssignments struct {
	assignment *models.Assignment
	sections   []string
	err        error
}

func (f *fakeAssignments) Get(context.Context, string) (*models.Assignment, error) {
	return f.assignment, f.err
}

func (f *fakeAssignments) SectionIDs(context.Context, string) ([]string, error) {
	return f.sections, f.err
}

type fakeSubmissions struct {
	bySection map[string][]models.EnrollmentSubmission
}

func (f *fakeSubmissions) ListForSection(_ context.Context, _ string, sectionID string) ([]models.EnrollmentSubmission, error) {
	return f.bySection[sectionID], nil
}

type fakeRollupStore struct {
	mu       sync.Mutex
	upserted []models.SectionRollup
	listed   []models.SectionRollup
}

func (f *fakeRollupStore) Upsert(_ context.Context, rollup *models.SectionRollup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, *rollup)
	return nil
}

func (f *fakeRollupStore) GetSection(_ context.Context, assignmentID, sectionID string) (*models.SectionRollup, error) {
	for i := range f.listed {
		if f.listed[i].AssignmentID == assignmentID && f.listed[i].CourseSectionID == sectionID {
			return &f.listed[i], nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeRollupStore) ListByAssignment(context.Context, string) ([]models.SectionRollup, error) {
	return f.listed, nil
}

func testAssignment(points float64) *models.Assignment {
	due := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	return &models.Assignment{
		ID:             "asg-1",
		CourseID:       "course-1",
		Title:          "Midterm Essay",
		PointsPossible: &points,
		DueAt:          &due,
	}
}

func scoredPair(section string, score float64, submittedAt, dueAt time.Time) models.EnrollmentSubmission {
	return models.EnrollmentSubmission{
		UserID:          "stu",
		CourseSectionID: section,
		WorkflowState:   models.EnrollmentStateActive,
		Score:           &score,
		SubmittedAt:     &submittedAt,
		DueAt:           &dueAt,
	}
}

func TestRollupServiceBuildSection(t *testing.T) {
	svc := NewRollupService(nil, nil, nil, nil, nil, zap.NewNop())
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	assignment := testAssignment(100)
	due := *assignment.DueAt
	pairs := []models.EnrollmentSubmission{
		scoredPair("sec-1", 80, due.Add(-time.Hour), due),
		scoredPair("sec-1", 95, due.Add(time.Hour), due),
		{UserID: "stu-3", CourseSectionID: "sec-1", WorkflowState: models.EnrollmentStateActive, DueAt: &due},
	}

	rollup, err := svc.BuildSection(assignment, "sec-1", pairs)
	require.NoError(t, err)

	assert.Equal(t, "asg-1", rollup.AssignmentID)
	assert.Equal(t, "sec-1", rollup.CourseSectionID)
	assert.Equal(t, int64(3), rollup.TotalSubmissions)
	assert.InDelta(t, 1.0/3.0, rollup.MissingFraction, 1e-9)
	assert.InDelta(t, 1.0/3.0, rollup.LateFraction, 1e-9)
	assert.InDelta(t, 1.0/3.0, rollup.OnTimeFraction, 1e-9)
	assert.Equal(t, 95.0, rollup.MaxScore)
	assert.Equal(t, 80.0, rollup.MinScore)
	require.Len(t, rollup.BucketCounts, 25)

	var scored int64
	for _, c := range rollup.BucketCounts {
		scored += c
	}
	assert.Equal(t, int64(2), scored)
}

func TestRollupServiceBuildSectionNoPointsPossible(t *testing.T) {
	svc := NewRollupService(nil, nil, nil, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }

	assignment := testAssignment(0)
	assignment.PointsPossible = nil
	due := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)

	rollup, err := svc.BuildSection(assignment, "sec-1", []models.EnrollmentSubmission{
		scoredPair("sec-1", 80, due.Add(-time.Hour), due),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), rollup.TotalSubmissions)
	assert.Zero(t, rollup.MaxScore)
	assert.Empty(t, rollup.BucketCounts)
}

func TestRollupServiceBuildSectionEmpty(t *testing.T) {
	svc := NewRollupService(nil, nil, nil, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Now().UTC() }

	rollup, err := svc.BuildSection(testAssignment(50), "sec-9", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rollup.TotalSubmissions)
	assert.Zero(t, rollup.MissingFraction)
	assert.Zero(t, rollup.MaxScore)
}

func TestRollupServiceRecomputeSection(t *testing.T) {
	assignment := testAssignment(100)
	due := *assignment.DueAt
	store := &fakeRollupStore{}
	cacheRepo := &stubCacheRepo{entries: map[string][]byte{"rollups:assignment:asg-1": []byte(`{}`)}}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	svc := NewRollupService(
		&fakeAssignments{assignment: assignment},
		&fakeSubmissions{bySection: map[string][]models.EnrollmentSubmission{
			"sec-1": {scoredPair("sec-1", 42, due.Add(-time.Hour), due)},
		}},
		store,
		cacheSvc,
		nil,
		zap.NewNop(),
	)

	rollup, err := svc.RecomputeSection(context.Background(), "asg-1", "sec-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rollup.TotalSubmissions)
	require.Len(t, store.upserted, 1)
	assert.Empty(t, cacheRepo.entries, "stale aggregate must be invalidated")
}

func disjointRollups(points float64) []models.SectionRollup {
	low := models.SectionRollup{
		AssignmentID:     "asg-1",
		CourseSectionID:  "sec-low",
		Title:            "Midterm Essay",
		PointsPossible:   &points,
		TotalSubmissions: 4,
		MissingFraction:  0.25,
		LateFraction:     0.25,
		OnTimeFraction:   0.5,
		MaxScore:         30,
		MinScore:         10,
		BucketCounts:     make([]int64, 25),
	}
	// Scores 10, 22, 30 land in buckets 2, 5 and 7 of a width-4 histogram.
	low.BucketCounts[2] = 1
	low.BucketCounts[5] = 1
	low.BucketCounts[7] = 1

	high := models.SectionRollup{
		AssignmentID:     "asg-1",
		CourseSectionID:  "sec-high",
		Title:            "Midterm Essay",
		PointsPossible:   &points,
		TotalSubmissions: 2,
		MissingFraction:  0,
		LateFraction:     0.5,
		OnTimeFraction:   0.5,
		MaxScore:         98,
		MinScore:         90,
		BucketCounts:     make([]int64, 25),
	}
	high.BucketCounts[22] = 1
	high.BucketCounts[24] = 1

	return []models.SectionRollup{low, high}
}

func TestRollupServiceAggregate(t *testing.T) {
	svc := NewRollupService(nil, nil, nil, nil, nil, zap.NewNop())

	aggregate, err := svc.Aggregate(disjointRollups(100))
	require.NoError(t, err)

	assert.Equal(t, "asg-1", aggregate.AssignmentID)
	assert.Equal(t, 2, aggregate.SectionCount)
	assert.Equal(t, int64(6), aggregate.TotalSubmissions)

	// Exact global extrema survive the merge.
	assert.Equal(t, 98.0, aggregate.MaxScore)
	assert.Equal(t, 10.0, aggregate.MinScore)

	// Tardiness merges through absolute counts: (1+0)/6 missing,
	// (1+1)/6 late, (2+1)/6 on time.
	assert.InDelta(t, 1.0/6.0, aggregate.MissingFraction, 1e-9)
	assert.InDelta(t, 2.0/6.0, aggregate.LateFraction, 1e-9)
	assert.InDelta(t, 3.0/6.0, aggregate.OnTimeFraction, 1e-9)

	// Composite buckets are per-index sums.
	assert.Equal(t, int64(1), aggregate.BucketCounts[2])
	assert.Equal(t, int64(1), aggregate.BucketCounts[22])
	assert.Equal(t, int64(1), aggregate.BucketCounts[24])

	// Quartiles come from bucket midpoints, so each is within one bucket
	// width of the true sorted values {10, 22, 30, 90, 98}.
	assert.InDelta(t, 30, aggregate.Median, 4)
	assert.InDelta(t, 16, aggregate.FirstQuartile, 4)
	assert.InDelta(t, 94, aggregate.ThirdQuartile, 4)
}

func TestRollupServiceAggregateNoPoints(t *testing.T) {
	svc := NewRollupService(nil, nil, nil, nil, nil, zap.NewNop())

	rollups := disjointRollups(100)
	for i := range rollups {
		rollups[i].PointsPossible = nil
		rollups[i].BucketCounts = nil
	}

	aggregate, err := svc.Aggregate(rollups)
	require.NoError(t, err)
	assert.Zero(t, aggregate.MaxScore)
	assert.Zero(t, aggregate.Median)
	assert.Equal(t, int64(6), aggregate.TotalSubmissions)
}

func TestRollupServiceAggregateZeroTotal(t *testing.T) {
	points := 100.0
	svc := NewRollupService(nil, nil, nil, nil, nil, zap.NewNop())

	aggregate, err := svc.Aggregate([]models.SectionRollup{
		{AssignmentID: "asg-1", PointsPossible: &points, BucketCounts: make([]int64, 25)},
		{AssignmentID: "asg-1", PointsPossible: &points, BucketCounts: make([]int64, 25)},
	})
	require.NoError(t, err)
	assert.Zero(t, aggregate.MissingFraction)
	assert.Zero(t, aggregate.LateFraction)
	assert.Zero(t, aggregate.OnTimeFraction)
	assert.Zero(t, aggregate.MaxScore)
}

func TestRollupServiceAssignmentRollupCaches(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	store := &fakeRollupStore{listed: disjointRollups(100)}

	svc := NewRollupService(&fakeAssignments{}, &fakeSubmissions{}, store, cacheSvc, nil, zap.NewNop())

	first, hit, err := svc.AssignmentRollup(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(6), first.TotalSubmissions)

	second, hit, err := svc.AssignmentRollup(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.TotalSubmissions, second.TotalSubmissions)
	assert.Equal(t, 1, cacheRepo.sets)
}

func TestRollupServiceAssignmentRollupNotFound(t *testing.T) {
	svc := NewRollupService(&fakeAssignments{}, &fakeSubmissions{}, &fakeRollupStore{}, nil, nil, zap.NewNop())

	_, _, err := svc.AssignmentRollup(context.Background(), "asg-404")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
