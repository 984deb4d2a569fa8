package compute

import (
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

// Comparison extracts the selected columns of a temp frame on its own time axis.
// Columns the frame does not carry are left out. When sampling is enabled and the
// frame has more rows than the point budget, rows are binned like the envelope and
// each bin contributes its mean.
func Comparison(f *domain.Frame, selected []string, s domain.Sampling) domain.ComparisonSeries {
	var cols []string
	for _, c := range selected {
		if _, ok := f.Columns[c]; ok {
			cols = append(cols, c)
		}
	}

	out := domain.ComparisonSeries{
		Data:           make(map[string][]float64, len(cols)),
		OriginalPoints: f.Len(),
		TimeRange:      f.TimeRange(),
	}

	if s.Enabled && f.Len() > s.Points {
		buckets := binned([]*domain.Frame{f}, cols, f.TimeRange(), binCount(s.Points, f.Len()))
		out.TimePoints = make([]float64, len(buckets))
		for _, c := range cols {
			out.Data[c] = make([]float64, len(buckets))
		}
		for i, b := range buckets {
			out.TimePoints[i] = b.time()
			for k, c := range cols {
				out.Data[c][i] = b.mean(k)
			}
		}
		out.SamplingMethod = domain.SamplingTimeInterval
	} else {
		out.TimePoints = append([]float64(nil), f.Time...)
		for _, c := range cols {
			out.Data[c] = append([]float64(nil), f.Columns[c]...)
		}
		out.SamplingMethod = domain.SamplingFullData
	}
	out.SamplingPoints = len(out.TimePoints)
	return out
}
