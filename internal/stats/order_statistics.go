package stats

import (
	"math"
	"sort"
)

// OrderStatistics accumulates raw values and answers exact rank queries
// over them. It exists only while raw values are still retained; once a
// rollup is finalized the accumulator is discarded and only the derived
// summary survives.
type OrderStatistics struct {
	values []float64
	sorted bool
}

// NewOrderStatistics returns an empty accumulator.
func NewOrderStatistics() *OrderStatistics {
	return &OrderStatistics{}
}

// Insert appends a value. Order of insertion is irrelevant.
func (o *OrderStatistics) Insert(v float64) {
	o.values = append(o.values, v)
	o.sorted = false
}

// Len reports how many values have been inserted.
func (o *OrderStatistics) Len() int {
	return len(o.values)
}

// Min returns the smallest inserted value, or 0 when empty.
func (o *OrderStatistics) Min() float64 {
	if len(o.values) == 0 {
		return 0
	}
	o.ensureSorted()
	return o.values[0]
}

// Max returns the largest inserted value, or 0 when empty.
func (o *OrderStatistics) Max() float64 {
	if len(o.values) == 0 {
		return 0
	}
	o.ensureSorted()
	return o.values[len(o.values)-1]
}

// Quartile computes the order statistic at the given fraction (0.25, 0.5,
// 0.75) using interpolated rank positions: with n sorted values, the
// 1-indexed position is p = (n+1)*fraction. An integral p picks the value
// at that rank; otherwise the values at the surrounding ranks are linearly
// interpolated, weighted by the fractional part of p.
func (o *OrderStatistics) Quartile(fraction float64) float64 {
	n := len(o.values)
	if n == 0 {
		return 0
	}
	o.ensureSorted()

	p := (float64(n) + 1) * fraction
	lower := math.Floor(p)
	upper := math.Ceil(p)
	if lower < 1 {
		lower, upper = 1, 1
	}
	if upper > float64(n) {
		lower, upper = float64(n), float64(n)
	}

	if lower == upper {
		return o.values[int(lower)-1]
	}

	weight := p - lower
	return o.values[int(lower)-1]*(1-weight) + o.values[int(upper)-1]*weight
}

func (o *OrderStatistics) ensureSorted() {
	if o.sorted {
		return
	}
	sort.Float64s(o.values)
	o.sorted = true
}
