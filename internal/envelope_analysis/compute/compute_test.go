package compute

import (
	"testing"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(times []float64, cols map[string][]float64) *domain.Frame {
	f := &domain.Frame{Time: times, Columns: cols}
	for c := range cols {
		f.Order = append(f.Order, c)
	}
	return f
}

func TestEnvelope_FullData(t *testing.T) {
	frames := []*domain.Frame{
		frame([]float64{0, 1}, map[string][]float64{"a": {1, 5}, "b": {7, 7}}),
		frame([]float64{0, 1, 2}, map[string][]float64{"a": {3, 2, 4}}),
	}

	env, err := Envelope(frames, []string{"a", "b"}, domain.Sampling{})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2}, env.TimePoints)
	assert.Equal(t, []float64{3, 5, 4}, env.EnvelopeData["a"].Upper)
	assert.Equal(t, []float64{1, 2, 4}, env.EnvelopeData["a"].Lower)
	// b has no value at t=2
	assert.Equal(t, []float64{7, 7, 0}, env.EnvelopeData["b"].Upper)
	assert.Equal(t, 2, env.DataCount)
	assert.Equal(t, 5, env.OriginalPoints)
	assert.Equal(t, domain.SamplingFullData, env.SamplingMethod)
	assert.Equal(t, domain.TimeRange{Min: 0, Max: 2}, env.TimeRange)
}

func TestEnvelope_Sampled(t *testing.T) {
	times := make([]float64, 100)
	vals := make([]float64, 100)
	for i := range times {
		times[i] = float64(i)
		vals[i] = float64(i)
	}
	frames := []*domain.Frame{frame(times, map[string][]float64{"a": vals})}

	env, err := Envelope(frames, []string{"a"}, domain.Sampling{Enabled: true, Points: 10})
	require.NoError(t, err)

	assert.Equal(t, domain.SamplingTimeInterval, env.SamplingMethod)
	assert.Len(t, env.TimePoints, 10)
	assert.Equal(t, 10, env.SamplingPoints)
	assert.Equal(t, 100, env.OriginalPoints)
	b := env.EnvelopeData["a"]
	for i := range env.TimePoints {
		assert.LessOrEqual(t, b.Lower[i], b.Upper[i])
	}
	assert.Equal(t, 0.0, b.Lower[0])
	assert.Equal(t, 99.0, b.Upper[len(b.Upper)-1])
}

func TestEnvelope_NoRows(t *testing.T) {
	_, err := Envelope([]*domain.Frame{frame(nil, map[string][]float64{})}, []string{"a"}, domain.Sampling{})
	assert.ErrorIs(t, err, domain.ErrNoHistoricalData)
}

func TestBinCount(t *testing.T) {
	assert.Equal(t, 4, binCount(200, 20))
	assert.Equal(t, 10, binCount(10, 1000))
	assert.Equal(t, fallbackBins, binCount(10, 3))
}

func TestBinIndex(t *testing.T) {
	tr := domain.TimeRange{Min: 0, Max: 10}
	assert.Equal(t, 0, binIndex(0, tr, 5))
	assert.Equal(t, 0, binIndex(2, tr, 5))
	assert.Equal(t, 1, binIndex(2.5, tr, 5))
	assert.Equal(t, 4, binIndex(10, tr, 5))
	assert.Equal(t, 0, binIndex(3, domain.TimeRange{Min: 3, Max: 3}, 5))
}

func TestComparison(t *testing.T) {
	f := frame([]float64{0, 1, 2, 3}, map[string][]float64{"a": {1, 2, 3, 4}})

	t.Run("skips columns the frame lacks", func(t *testing.T) {
		cs := Comparison(f, []string{"a", "b"}, domain.Sampling{})
		assert.Contains(t, cs.Data, "a")
		assert.NotContains(t, cs.Data, "b")
		assert.Equal(t, domain.SamplingFullData, cs.SamplingMethod)
		assert.Equal(t, 4, cs.SamplingPoints)
	})

	t.Run("full data when within the budget", func(t *testing.T) {
		cs := Comparison(f, []string{"a"}, domain.Sampling{Enabled: true, Points: 10})
		assert.Equal(t, []float64{0, 1, 2, 3}, cs.TimePoints)
	})

	t.Run("bins to means above the budget", func(t *testing.T) {
		times := make([]float64, 50)
		vals := make([]float64, 50)
		for i := range times {
			times[i] = float64(i)
			vals[i] = 1
		}
		big := frame(times, map[string][]float64{"a": vals})
		cs := Comparison(big, []string{"a"}, domain.Sampling{Enabled: true, Points: 5})
		assert.Equal(t, domain.SamplingTimeInterval, cs.SamplingMethod)
		assert.Len(t, cs.TimePoints, 5)
		assert.Equal(t, 50, cs.OriginalPoints)
		for _, v := range cs.Data["a"] {
			assert.Equal(t, 1.0, v)
		}
	})
}
