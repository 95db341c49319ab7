package stats

import (
	"math"

	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// maxBuckets caps histogram width so storage stays bounded no matter how
// many submissions an assignment receives.
const maxBuckets = 25

// Histogram summarizes a score distribution over [0, rangeMax] with a
// fixed number of equal-width buckets plus an order-statistics accumulator
// for exact min/max/quartiles while raw values are still around. Bucket
// geometry never changes after construction; out-of-range values are
// clamped into the extreme buckets.
type Histogram struct {
	rangeMax    float64
	bucketWidth float64
	counts      []int64
	ord         *OrderStatistics
}

// NewHistogram builds a histogram over [0, rangeMax]. The range maximum is
// mandatory: bucket width and score normalization depend on it, so a nil
// value is rejected with ErrInvalidRange. A zero range is a valid
// degenerate case producing a single bucket of width zero.
func NewHistogram(rangeMax *float64) (*Histogram, error) {
	if rangeMax == nil {
		return nil, appErrors.ErrInvalidRange
	}

	bucketCount := maxBuckets
	if *rangeMax <= maxBuckets {
		bucketCount = int(math.Floor(*rangeMax))
	}
	if bucketCount < 1 {
		bucketCount = 1
	}

	width := *rangeMax / float64(bucketCount)

	return &Histogram{
		rangeMax:    *rangeMax,
		bucketWidth: width,
		counts:      make([]int64, bucketCount),
		ord:         NewOrderStatistics(),
	}, nil
}

// Reconstruct rebuilds a histogram from previously persisted bucket counts
// by inserting each bucket's midpoint once per counted observation. This
// is how quartiles are approximated once the raw values are gone; the
// error is bounded by half a bucket width. Min and max survive exactly in
// the rollup record and are not taken from a reconstruction.
func Reconstruct(rangeMax *float64, bucketCounts []int64) (*Histogram, error) {
	h, err := NewHistogram(rangeMax)
	if err != nil {
		return nil, err
	}

	for i, count := range bucketCounts {
		midpoint := h.bucketWidth*float64(i) + h.bucketWidth/2
		for n := int64(0); n < count; n++ {
			h.Insert(midpoint)
		}
	}

	return h, nil
}

// Insert records a value in its bucket and feeds the order statistics.
func (h *Histogram) Insert(v float64) {
	h.counts[h.BucketIndex(v)]++
	h.ord.Insert(v)
}

// BucketIndex maps a value onto a bucket. Values at or past the range
// maximum land in the last bucket, non-positive values in the first, so
// outliers never grow the histogram.
func (h *Histogram) BucketIndex(v float64) int {
	if h.bucketWidth == 0 || v <= 0 {
		return 0
	}
	if v >= h.rangeMax {
		return len(h.counts) - 1
	}

	idx := int(math.Floor(v / h.bucketWidth))
	if idx > len(h.counts)-1 {
		idx = len(h.counts) - 1
	}
	return idx
}

// BucketCount reports the fixed number of buckets.
func (h *Histogram) BucketCount() int {
	return len(h.counts)
}

// BucketWidth reports the fixed width of each bucket.
func (h *Histogram) BucketWidth() float64 {
	return h.bucketWidth
}

// Counts returns a copy of the per-bucket observation counts.
func (h *Histogram) Counts() []int64 {
	counts := make([]int64, len(h.counts))
	copy(counts, h.counts)
	return counts
}

// Inserted reports how many values the histogram has absorbed.
func (h *Histogram) Inserted() int {
	return h.ord.Len()
}

// Min returns the exact smallest inserted value.
func (h *Histogram) Min() float64 { return h.ord.Min() }

// Max returns the exact largest inserted value.
func (h *Histogram) Max() float64 { return h.ord.Max() }

// Quartile returns the order statistic at the given fraction.
func (h *Histogram) Quartile(fraction float64) float64 {
	return h.ord.Quartile(fraction)
}
