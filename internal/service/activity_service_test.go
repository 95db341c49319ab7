package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
)

type binKey struct {
	course   string
	day      string
	category string
}

type fakeCounterStore struct {
	mu   sync.Mutex
	bins map[binKey]*models.ActivityBin
	err  error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{bins: map[binKey]*models.ActivityBin{}}
}

func (f *fakeCounterStore) key(courseID string, date time.Time, category string) binKey {
	return binKey{course: courseID, day: date.UTC().Format("2006-01-02"), category: category}
}

func (f *fakeCounterStore) Increment(ctx context.Context, courseID string, date time.Time, category string, participated bool) error {
	var participations int64
	if participated {
		participations = 1
	}
	return f.Augment(ctx, courseID, date, category, 1, participations)
}

func (f *fakeCounterStore) Augment(_ context.Context, courseID string, date time.Time, category string, views, participations int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	k := f.key(courseID, date, category)
	bin, ok := f.bins[k]
	if !ok {
		bin = &models.ActivityBin{CourseID: courseID, Date: date.UTC().Truncate(24 * time.Hour), Category: category}
		f.bins[k] = bin
	}
	bin.Views += views
	bin.Participations += participations
	return nil
}

func (f *fakeCounterStore) List(_ context.Context, filter models.ActivityFilter) ([]models.ActivityBin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ActivityBin
	for _, bin := range f.bins {
		if bin.CourseID == filter.CourseID {
			out = append(out, *bin)
		}
	}
	return out, nil
}

type fakeIncrementBuffer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeIncrementBuffer) IncrementBuffered(context.Context, string, time.Time, string, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func TestActivityServiceDirectWhenUnbuffered(t *testing.T) {
	counters := newFakeCounterStore()
	buffer := &fakeIncrementBuffer{}
	svc := NewActivityService(counters, buffer, false, nil, nil, zap.NewNop())

	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Increment(context.Background(), "course-1", day, "assignments", true))

	assert.Zero(t, buffer.calls)
	bin := counters.bins[counters.key("course-1", day, "assignments")]
	require.NotNil(t, bin)
	assert.Equal(t, int64(1), bin.Views)
	assert.Equal(t, int64(1), bin.Participations)
}

func TestActivityServiceBuffersWhenEnabled(t *testing.T) {
	counters := newFakeCounterStore()
	buffer := &fakeIncrementBuffer{}
	svc := NewActivityService(counters, buffer, true, nil, nil, zap.NewNop())

	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Increment(context.Background(), "course-1", day, "assignments", false))

	assert.Equal(t, 1, buffer.calls)
	assert.Empty(t, counters.bins, "buffered write must not touch the durable store")
}

func TestActivityServiceFallsBackOnBufferFailure(t *testing.T) {
	counters := newFakeCounterStore()
	buffer := &fakeIncrementBuffer{err: errors.New("connection refused")}
	svc := NewActivityService(counters, buffer, true, nil, nil, zap.NewNop())

	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Increment(context.Background(), "course-1", day, "page_views", true))

	assert.Equal(t, 1, buffer.calls)
	bin := counters.bins[counters.key("course-1", day, "page_views")]
	require.NotNil(t, bin, "failed buffer writes fall back to the direct path")
	assert.Equal(t, int64(1), bin.Views)
	assert.Equal(t, int64(1), bin.Participations)
}

func TestActivityServiceRejectsBlankCategory(t *testing.T) {
	counters := newFakeCounterStore()
	svc := NewActivityService(counters, nil, false, nil, nil, zap.NewNop())

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := svc.Increment(context.Background(), "course-1", day, "", false)
	require.Error(t, err)
	assert.Empty(t, counters.bins)
}

func TestActivityServiceRange(t *testing.T) {
	counters := newFakeCounterStore()
	svc := NewActivityService(counters, nil, false, nil, nil, zap.NewNop())

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Increment(context.Background(), "course-1", day, "wiki", false))
	require.NoError(t, svc.Increment(context.Background(), "course-2", day, "wiki", false))

	bins, err := svc.Range(context.Background(), models.ActivityFilter{CourseID: "course-1"})
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, int64(1), bins[0].Views)
}
