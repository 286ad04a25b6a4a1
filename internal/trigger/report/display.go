// Package report renders a replay run as an event display: primitives,
// activity peaks and candidate times on a channel vs time plane.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// maxPoints bounds the primitives drawn per chart; denser runs are
// downsampled by stride.
const maxPoints = 50000

var (
	primitiveColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	activityColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	candidateColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Display accumulates a run's objects. It is safe for concurrent use.
type Display struct {
	title string

	mu         sync.Mutex
	primitives []trigger.Primitive
	activities []trigger.ActivitySummary
	candidates []trigger.Candidate
	t0         trigger.Timestamp
	hasT0      bool
}

func New(title string) *Display {
	return &Display{title: title}
}

func (d *Display) mark(ts trigger.Timestamp) {
	if !d.hasT0 || ts < d.t0 {
		d.t0, d.hasT0 = ts, true
	}
}

// AddPrimitives records primitives.
func (d *Display) AddPrimitives(tps ...trigger.Primitive) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tp := range tps {
		d.mark(tp.TimeStart)
	}
	d.primitives = append(d.primitives, tps...)
}

// AddActivities records activities without their primitives.
func (d *Display) AddActivities(tas ...trigger.Activity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ta := range tas {
		d.mark(ta.TimeStart)
		d.activities = append(d.activities, ta.Summary())
	}
}

// AddCandidates records candidates.
func (d *Display) AddCandidates(tcs ...trigger.Candidate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tc := range tcs {
		d.mark(tc.TimeCandidate)
	}
	d.candidates = append(d.candidates, tcs...)
}

// Counts returns how many primitives, activities and candidates were
// recorded.
func (d *Display) Counts() (tps, tas, tcs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.primitives), len(d.activities), len(d.candidates)
}

// ms converts ts to milliseconds since the earliest recorded object.
func (d *Display) ms(ts trigger.Timestamp) float64 {
	if ts < d.t0 {
		return 0
	}
	return float64(ts-d.t0) * trigger.MsPerTick
}

func stride(n int) int {
	if n <= maxPoints {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(maxPoints)))
}

// channelSpan returns the channel range covered by primitives and
// activities, used to draw candidates as vertical lines.
func (d *Display) channelSpan() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, tp := range d.primitives {
		lo, hi = math.Min(lo, float64(tp.Channel)), math.Max(hi, float64(tp.Channel))
	}
	for _, ta := range d.activities {
		lo, hi = math.Min(lo, float64(ta.ChannelStart)), math.Max(hi, float64(ta.ChannelEnd))
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	return lo, hi
}

// SavePNG writes the display as a PNG image.
func (d *Display) SavePNG(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := plot.New()
	p.Title.Text = d.title
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Channel"

	step := stride(len(d.primitives))
	tpPts := make(plotter.XYs, 0, len(d.primitives)/step+1)
	for i := 0; i < len(d.primitives); i += step {
		tp := d.primitives[i]
		tpPts = append(tpPts, plotter.XY{X: d.ms(tp.TimeStart), Y: float64(tp.Channel)})
	}
	if len(tpPts) > 0 {
		s, err := plotter.NewScatter(tpPts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = primitiveColor
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
		p.Legend.Add("primitives", s)
	}

	taPts := make(plotter.XYs, 0, len(d.activities))
	for _, ta := range d.activities {
		taPts = append(taPts, plotter.XY{X: d.ms(ta.TimeActivity), Y: float64(ta.ChannelPeak)})
	}
	if len(taPts) > 0 {
		s, err := plotter.NewScatter(taPts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = activityColor
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add("activities", s)
	}

	lo, hi := d.channelSpan()
	for i, tc := range d.candidates {
		x := d.ms(tc.TimeCandidate)
		line, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return err
		}
		line.Color = candidateColor
		line.Width = vg.Points(1)
		p.Add(line)
		if i == 0 {
			p.Legend.Add("candidates", line)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save event display: %w", err)
	}
	return nil
}

// RenderHTML writes the display as an interactive echarts page.
func (d *Display) RenderHTML(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	step := stride(len(d.primitives))
	tpData := make([]opts.ScatterData, 0, len(d.primitives)/step+1)
	for i := 0; i < len(d.primitives); i += step {
		tp := d.primitives[i]
		tpData = append(tpData, opts.ScatterData{Value: []interface{}{d.ms(tp.TimeStart), tp.Channel, tp.ADCIntegral}})
	}
	taData := make([]opts.ScatterData, 0, len(d.activities))
	for _, ta := range d.activities {
		taData = append(taData, opts.ScatterData{Value: []interface{}{d.ms(ta.TimeActivity), ta.ChannelPeak, ta.ADCIntegral}})
	}
	lo, _ := d.channelSpan()
	tcData := make([]opts.ScatterData, 0, len(d.candidates))
	for _, tc := range d.candidates {
		tcData = append(tcData, opts.ScatterData{Value: []interface{}{d.ms(tc.TimeCandidate), lo, len(tc.Inputs)}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: d.title, Width: "1400px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: d.title, Subtitle: fmt.Sprintf("primitives=%d stride=%d activities=%d candidates=%d", len(d.primitives), step, len(d.activities), len(d.candidates))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Channel", NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("primitives", tpData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("activities", taData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("candidates", tcData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	return scatter.Render(w)
}

// SaveHTML writes RenderHTML output to path.
func (d *Display) SaveHTML(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create html file: %w", err)
	}
	if err := d.RenderHTML(f); err != nil {
		f.Close()
		return fmt.Errorf("render event display: %w", err)
	}
	return f.Close()
}
