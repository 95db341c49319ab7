package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewHistogramRequiresRange(t *testing.T) {
	_, err := NewHistogram(nil)
	require.ErrorIs(t, err, appErrors.ErrInvalidRange)

	_, err = Reconstruct(nil, []int64{1, 2})
	require.ErrorIs(t, err, appErrors.ErrInvalidRange)
}

func TestHistogramBucketGeometry(t *testing.T) {
	cases := []struct {
		rangeMax float64
		buckets  int
		width    float64
	}{
		{100, 25, 4},
		{25, 25, 1},
		{10, 10, 1},
		{0.5, 1, 0.5},
		{0, 1, 0},
	}

	for _, tc := range cases {
		h, err := NewHistogram(floatPtr(tc.rangeMax))
		require.NoError(t, err)
		assert.Equal(t, tc.buckets, h.BucketCount(), "range %v", tc.rangeMax)
		assert.InDelta(t, tc.width, h.BucketWidth(), 1e-9, "range %v", tc.rangeMax)
	}
}

func TestHistogramCountsMatchInsertions(t *testing.T) {
	h, err := NewHistogram(floatPtr(100))
	require.NoError(t, err)

	values := []float64{-3, 0, 1, 12.5, 50, 99.9, 100, 250}
	for _, v := range values {
		h.Insert(v)
	}

	var sum int64
	for _, c := range h.Counts() {
		sum += c
	}
	assert.Equal(t, int64(len(values)), sum)
	assert.Equal(t, len(values), h.Inserted())
}

func TestHistogramClampsBoundaryValues(t *testing.T) {
	h, err := NewHistogram(floatPtr(100))
	require.NoError(t, err)

	last := h.BucketCount() - 1
	assert.Equal(t, last, h.BucketIndex(100))
	assert.Equal(t, last, h.BucketIndex(140))
	assert.Equal(t, 0, h.BucketIndex(0))
	assert.Equal(t, 0, h.BucketIndex(-7))
	assert.Equal(t, 0, h.BucketIndex(3.9))
	assert.Equal(t, 1, h.BucketIndex(4))
}

func TestHistogramQuartiles(t *testing.T) {
	h, err := NewHistogram(floatPtr(100))
	require.NoError(t, err)

	for _, v := range []float64{1, 2, 3, 50, 98, 99, 100} {
		h.Insert(v)
	}

	assert.Equal(t, 1.0, h.Min())
	assert.Equal(t, 100.0, h.Max())
	assert.Equal(t, 2.0, h.Quartile(0.25))
	assert.Equal(t, 50.0, h.Quartile(0.5))
	assert.Equal(t, 99.0, h.Quartile(0.75))
}

func TestHistogramQuartileInterpolation(t *testing.T) {
	h, err := NewHistogram(floatPtr(10))
	require.NoError(t, err)

	for _, v := range []float64{1, 2, 3, 4} {
		h.Insert(v)
	}

	// n=4: Q1 position is 1.25, median 2.5, Q3 3.75.
	assert.InDelta(t, 1.25, h.Quartile(0.25), 1e-9)
	assert.InDelta(t, 2.5, h.Quartile(0.5), 1e-9)
	assert.InDelta(t, 3.75, h.Quartile(0.75), 1e-9)
}

func TestHistogramDegenerateRange(t *testing.T) {
	h, err := NewHistogram(floatPtr(0))
	require.NoError(t, err)
	require.Equal(t, 1, h.BucketCount())

	for _, v := range []float64{1, 4, 9} {
		h.Insert(v)
	}

	assert.Equal(t, []int64{3}, h.Counts())
	assert.Equal(t, 1.0, h.Min())
	assert.Equal(t, 9.0, h.Max())
	assert.Equal(t, 4.0, h.Quartile(0.5))
}

func TestReconstructFidelity(t *testing.T) {
	rangeMax := floatPtr(100)
	direct, err := NewHistogram(rangeMax)
	require.NoError(t, err)

	// Midpoint-aligned scores survive a reconstruction exactly.
	values := []float64{2, 2, 26, 50, 78, 98, 98}
	for _, v := range values {
		direct.Insert(v)
	}

	rebuilt, err := Reconstruct(rangeMax, direct.Counts())
	require.NoError(t, err)

	assert.Equal(t, direct.Counts(), rebuilt.Counts())
	assert.Equal(t, direct.Inserted(), rebuilt.Inserted())
	assert.Equal(t, direct.Min(), rebuilt.Min())
	assert.Equal(t, direct.Max(), rebuilt.Max())

	for _, f := range []float64{0.25, 0.5, 0.75} {
		assert.InDelta(t, direct.Quartile(f), rebuilt.Quartile(f), direct.BucketWidth())
	}
}

func TestReconstructBoundedError(t *testing.T) {
	rangeMax := floatPtr(100)
	direct, err := NewHistogram(rangeMax)
	require.NoError(t, err)

	values := []float64{3, 17, 42.5, 61, 88, 95.5, 99}
	for _, v := range values {
		direct.Insert(v)
	}

	rebuilt, err := Reconstruct(rangeMax, direct.Counts())
	require.NoError(t, err)

	half := direct.BucketWidth() / 2
	assert.InDelta(t, direct.Min(), rebuilt.Min(), half)
	assert.InDelta(t, direct.Max(), rebuilt.Max(), half)
	for _, f := range []float64{0.25, 0.5, 0.75} {
		assert.InDelta(t, direct.Quartile(f), rebuilt.Quartile(f), direct.BucketWidth())
	}
}

func TestOrderStatisticsEmpty(t *testing.T) {
	o := NewOrderStatistics()
	assert.Zero(t, o.Min())
	assert.Zero(t, o.Max())
	assert.Zero(t, o.Quartile(0.5))
}
