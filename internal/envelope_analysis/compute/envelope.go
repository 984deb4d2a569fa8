// Package compute derives envelopes and comparison series from stored frames.
package compute

import (
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

// fallbackBins is used when the point budget or the row count leaves no bins.
const fallbackBins = 20

// Envelope computes per-column upper/lower bounds over the historical frames.
//
// With sampling enabled the time span is cut into min(points, rows/5) equal intervals
// and each non-empty interval contributes one point at the mean time of its rows.
// Without sampling every distinct timestamp is a point. A column with no value in a
// bin or at a timestamp gets 0 for both bounds there.
func Envelope(frames []*domain.Frame, cols []string, s domain.Sampling) (*domain.EnvelopeData, error) {
	total := 0
	tr := domain.TimeRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, f := range frames {
		if f.Len() == 0 {
			continue
		}
		total += f.Len()
		r := f.TimeRange()
		tr.Min = math.Min(tr.Min, r.Min)
		tr.Max = math.Max(tr.Max, r.Max)
	}
	if total == 0 {
		return nil, domain.ErrNoHistoricalData
	}

	var buckets []*bucket
	method := domain.SamplingFullData
	if s.Enabled {
		buckets = binned(frames, cols, tr, binCount(s.Points, total))
		method = domain.SamplingTimeInterval
	} else {
		buckets = byTimestamp(frames, cols)
	}

	out := &domain.EnvelopeData{
		TimePoints:     make([]float64, len(buckets)),
		EnvelopeData:   make(map[string]domain.Bounds, len(cols)),
		DataCount:      len(frames),
		TimeRange:      tr,
		SamplingMethod: method,
		SamplingPoints: len(buckets),
		OriginalPoints: total,
	}
	for _, c := range cols {
		out.EnvelopeData[c] = domain.Bounds{
			Upper: make([]float64, len(buckets)),
			Lower: make([]float64, len(buckets)),
		}
	}
	for i, b := range buckets {
		out.TimePoints[i] = b.time()
		for k, c := range cols {
			if b.count[k] == 0 {
				continue
			}
			out.EnvelopeData[c].Upper[i] = b.max[k]
			out.EnvelopeData[c].Lower[i] = b.min[k]
		}
	}
	return out, nil
}

// binCount mirrors the interval rule: min(points, rows/5), or fallbackBins when that is 0.
func binCount(points, rows int) int {
	n := rows / 5
	if points < n {
		n = points
	}
	if n <= 0 {
		n = fallbackBins
	}
	return n
}

// binIndex places t into one of n equal intervals over [min, max]. The first interval
// is closed, the rest are open on the left.
func binIndex(t float64, tr domain.TimeRange, n int) int {
	width := (tr.Max - tr.Min) / float64(n)
	if width <= 0 {
		return 0
	}
	i := int(math.Ceil((t-tr.Min)/width)) - 1
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

type bucket struct {
	sumT  float64
	rows  int
	exact float64
	keyed bool

	count []int
	sum   []float64
	max   []float64
	min   []float64
}

func newBucket(ncols int) *bucket {
	b := &bucket{
		count: make([]int, ncols),
		sum:   make([]float64, ncols),
		max:   make([]float64, ncols),
		min:   make([]float64, ncols),
	}
	for k := range b.max {
		b.max[k] = math.Inf(-1)
		b.min[k] = math.Inf(1)
	}
	return b
}

func (b *bucket) time() float64 {
	if b.keyed {
		return b.exact
	}
	return b.sumT / float64(b.rows)
}

func (b *bucket) add(f *domain.Frame, row int, cols []string) {
	b.sumT += f.Time[row]
	b.rows++
	for k, c := range cols {
		vals, ok := f.Columns[c]
		if !ok {
			continue
		}
		v := vals[row]
		b.count[k]++
		b.sum[k] += v
		if v > b.max[k] {
			b.max[k] = v
		}
		if v < b.min[k] {
			b.min[k] = v
		}
	}
}

func (b *bucket) mean(k int) float64 {
	if b.count[k] == 0 {
		return 0
	}
	return b.sum[k] / float64(b.count[k])
}

func binned(frames []*domain.Frame, cols []string, tr domain.TimeRange, n int) []*bucket {
	all := make([]*bucket, n)
	for _, f := range frames {
		for row := range f.Time {
			i := binIndex(f.Time[row], tr, n)
			if all[i] == nil {
				all[i] = newBucket(len(cols))
			}
			all[i].add(f, row, cols)
		}
	}
	out := make([]*bucket, 0, n)
	for _, b := range all {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

func byTimestamp(frames []*domain.Frame, cols []string) []*bucket {
	byTime := make(map[float64]*bucket)
	for _, f := range frames {
		for row, t := range f.Time {
			b, ok := byTime[t]
			if !ok {
				b = newBucket(len(cols))
				b.keyed, b.exact = true, t
				byTime[t] = b
			}
			b.add(f, row, cols)
		}
	}
	out := make([]*bucket, 0, len(byTime))
	for _, b := range byTime {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].exact < out[j].exact })
	return out
}
