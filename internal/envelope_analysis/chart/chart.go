// Package chart renders envelope and comparison results as a self-contained
// echarts HTML document.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	lttb "github.com/dgryski/go-lttb"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNothingToDraw is returned when no selected column has envelope bounds.
var ErrNothingToDraw = errors.New("nothing to draw: select at least one column with historical data")

// Palette assigns one color per selected column, in selection order.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// OverlaySuffix is appended to a column name for its new-data series.
const OverlaySuffix = " (new)"

// bandStack prefixes the stack name shared by a column's lower bound and band.
const bandStack = "band:"

// stackAllJS switches the band stacks to stackStrategy 'all'. The default
// 'samesign' would stack a positive band on 0 instead of on a negative lower bound.
const stackAllJS = `(function () {
    var chart = %MY_ECHARTS%;
    var series = (chart.getOption().series || []).map(function (s) {
        return typeof s.stack === 'string' && s.stack.indexOf('` + bandStack + `') === 0 ? {stackStrategy: 'all'} : {};
    });
    chart.setOption({series: series});
})();`

// Options controls the rendered document.
type Options struct {
	Title   string
	ChartID string
	Width   string
	Height  string
	// Downsample caps the points of each overlay series. Zero disables it.
	Downsample int
}

// DefaultOptions returns the options used for every empty field of Options
func DefaultOptions() Options {
	return Options{
		Title:      "Envelope analysis",
		ChartID:    "envelope-chart",
		Width:      "100%",
		Height:     "600px",
		Downsample: 2000,
	}
}

// Renderer draws envelope views with fixed options
type Renderer struct {
	opts Options
}

// New returns a Renderer, filling empty options from DefaultOptions
func New(o Options) *Renderer {
	d := DefaultOptions()
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.ChartID == "" {
		o.ChartID = d.ChartID
	}
	if o.Width == "" {
		o.Width = d.Width
	}
	if o.Height == "" {
		o.Height = d.Height
	}
	if o.Downsample < 0 {
		o.Downsample = 0
	}
	return &Renderer{opts: o}
}

// Build projects an envelope and an optional comparison onto a line chart.
// Only columns in selected are drawn. The comparison may be nil.
func (r *Renderer) Build(env *domain.EnvelopeData, cmp *domain.ComparisonResult, selected []string) (*charts.Line, error) {
	if env == nil || len(selected) == 0 {
		return nil, ErrNothingToDraw
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: r.opts.Title,
			ChartID:   r.opts.ChartID,
			Width:     r.opts.Width,
			Height:    r.opts.Height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    r.opts.Title,
			Subtitle: subtitle(env, cmp),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Type: "scroll",
			Top:  "8%",
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "3%",
			Right:  "4%",
			Bottom: "15%",
			Top:    "20%",
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
				DataZoom:    &opts.ToolBoxFeatureDataZoom{Show: opts.Bool(true)},
				Restore:     &opts.ToolBoxFeatureRestore{Show: opts.Bool(true)},
			},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "time",
			Type: "value",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "value",
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", Start: 0, End: 100},
			opts.DataZoom{Type: "slider", Start: 0, End: 100},
		),
	)

	drawn := 0
	for i, col := range selected {
		b, ok := env.EnvelopeData[col]
		if !ok {
			continue
		}
		color := Palette[i%len(Palette)]
		r.addBounds(line, col, color, env.TimePoints, b)
		drawn++

		if cmp == nil {
			continue
		}
		if values, ok := cmp.ComparisonData.Data[col]; ok {
			r.addOverlay(line, col, color, cmp.ComparisonData.TimePoints, values)
		}
	}
	if drawn == 0 {
		return nil, ErrNothingToDraw
	}
	line.AddJSFuncs(stackAllJS)
	return line, nil
}

// addBounds draws the lower bound, a stacked band up to the upper bound, and the upper bound.
func (r *Renderer) addBounds(line *charts.Line, col, color string, tp []float64, b domain.Bounds) {
	n := min(len(tp), len(b.Lower), len(b.Upper))
	lower := make([]opts.LineData, n)
	band := make([]opts.LineData, n)
	upper := make([]opts.LineData, n)
	for i := 0; i < n; i++ {
		lower[i] = point(tp[i], b.Lower[i])
		band[i] = point(tp[i], b.Upper[i]-b.Lower[i])
		upper[i] = point(tp[i], b.Upper[i])
	}
	stack := bandStack + col

	line.AddSeries(col+" lower", lower,
		charts.WithLineChartOpts(opts.LineChart{Stack: stack, ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2, Type: "dashed"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
	)
	line.AddSeries(col+" band", band,
		charts.WithLineChartOpts(opts.LineChart{Stack: stack, ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: "rgba(0,0,0,0)"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: color, Opacity: 0.15}),
	)
	line.AddSeries(col+" upper", upper,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2, Type: "dashed"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
	)
}

func (r *Renderer) addOverlay(line *charts.Line, col, color string, tp, values []float64) {
	pts := downsample(tp, values, r.opts.Downsample)
	data := make([]opts.LineData, len(pts))
	for i, p := range pts {
		data[i] = point(p.X, p.Y)
	}
	line.AddSeries(col+OverlaySuffix, data,
		charts.WithLineChartOpts(opts.LineChart{
			ShowSymbol: opts.Bool(true),
			Symbol:     "circle",
			SymbolSize: 4,
		}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 3, Type: "solid"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
	)
}

// downsample reduces a series to at most threshold points with LTTB.
func downsample(tp, values []float64, threshold int) []lttb.Point {
	n := min(len(tp), len(values))
	pts := make([]lttb.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = lttb.Point{X: tp[i], Y: values[i]}
	}
	if threshold < 3 || n <= threshold {
		return pts
	}
	return lttb.LTTB(pts, threshold)
}

func point(t, v float64) opts.LineData {
	return opts.LineData{Value: []interface{}{t, v}}
}

func subtitle(env *domain.EnvelopeData, cmp *domain.ComparisonResult) string {
	s := fmt.Sprintf("%d historical datasets | t %g to %g", env.DataCount, env.TimeRange.Min, env.TimeRange.Max)
	if env.SamplingMethod != "" {
		s += fmt.Sprintf(" | %s, %d of %d points", env.SamplingMethod, env.SamplingPoints, env.OriginalPoints)
	}
	if cmp != nil && cmp.ComparisonSamplingInfo != nil {
		s += fmt.Sprintf(" | new data %d of %d points", cmp.ComparisonSamplingInfo.SamplingPoints, cmp.ComparisonSamplingInfo.OriginalPoints)
	}
	return s
}

// Render writes a self-contained HTML document with a fullscreen toggle.
func (r *Renderer) Render(w io.Writer, env *domain.EnvelopeData, cmp *domain.ComparisonResult, selected []string) error {
	line, err := r.Build(env, cmp, selected)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	html := buf.String()
	html = strings.Replace(html, "</head>", fullscreenCSS+"</head>", 1)
	html = strings.Replace(html, "</body>", fmt.Sprintf(fullscreenJS, r.opts.ChartID)+"</body>", 1)

	_, err = io.WriteString(w, html)
	return err
}

const fullscreenCSS = `<style>
    #fullscreen-toggle { position: fixed; top: 12px; right: 16px; z-index: 10; padding: 4px 10px; cursor: pointer; }
    :fullscreen { background: #fff; }
</style>
`

const fullscreenJS = `<button id="fullscreen-toggle" type="button">Fullscreen</button>
<script>
(function() {
    var el = document.getElementById(%q);
    if (!el) return;
    var btn = document.getElementById('fullscreen-toggle');
    var resize = function() {
        var chart = echarts.getInstanceByDom(el);
        if (chart) chart.resize();
    };
    btn.addEventListener('click', function() {
        if (!document.fullscreenElement) {
            el.requestFullscreen();
        } else {
            document.exitFullscreen();
        }
    });
    document.addEventListener('fullscreenchange', function() {
        btn.textContent = document.fullscreenElement ? 'Exit fullscreen' : 'Fullscreen';
        resize();
    });
    window.addEventListener('resize', resize);
})();
</script>
`
