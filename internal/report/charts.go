package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

const (
	chartWidth  = 1000
	chartHeight = 600
)

// ChartSet holds the file names of rendered charts, relative to the output
// directory. An empty name means the chart was not rendered.
type ChartSet struct {
	OFScatter   string
	Elbow       string
	Silhouette  string
	PCAClusters string
}

// pointStyle draws markers without connecting lines.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 1,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 2,
		StrokeColor: col,
		DotWidth:    5,
		DotColor:    col,
	}
}

func baseChart(title string, x, y string, series []chart.Series) *chart.Chart {
	ch := &chart.Chart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: x},
		YAxis:      chart.YAxis{Name: y},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch
}

// OFScatterChart plots the objective of every run against its sequence and
// highlights the selected subset and the threshold.
func OFScatterChart(all *models.Dataset, res *pipeline.Result) *chart.Chart {
	var xs, ys, bx, by []float64
	for _, r := range all.Runs {
		xs = append(xs, r.Sequence)
		ys = append(ys, r.Objective)
	}
	for _, r := range res.Best.Runs {
		bx = append(bx, r.Sequence)
		by = append(by, r.Objective)
	}

	series := []chart.Series{
		chart.ContinuousSeries{Name: "All runs", XValues: xs, YValues: ys, Style: pointStyle(chart.ColorAlternateGray)},
		chart.ContinuousSeries{Name: "Selected", XValues: bx, YValues: by, Style: pointStyle(chart.ColorOrange)},
	}
	if len(xs) > 1 {
		lo, hi := minMax(xs)
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("Threshold (%.4g)", res.Threshold),
			XValues: []float64{lo, hi},
			YValues: []float64{res.Threshold, res.Threshold},
			Style:   chart.Style{StrokeWidth: 1, StrokeColor: chart.ColorRed, StrokeDashArray: []float64{5, 5}},
		})
	}
	name := all.Schema.ObjectiveColumn
	return baseChart(fmt.Sprintf("%s by simulation", name), all.Schema.SequenceColumn, name, series)
}

// curveChart plots the non-missing points of a diagnostics curve.
func curveChart(title, y string, points []pipeline.CurvePoint, col drawing.Color) *chart.Chart {
	var xs, ys []float64
	for _, p := range points {
		if p.Missing {
			continue
		}
		xs = append(xs, float64(p.K))
		ys = append(ys, p.Value)
	}
	ch := baseChart(title, "Number of clusters (k)", y, []chart.Series{
		chart.ContinuousSeries{Name: y, XValues: xs, YValues: ys, Style: lineStyle(col)},
	})
	ch.XAxis.ValueFormatter = func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return fmt.Sprintf("%.0f", f)
		}
		return ""
	}
	return ch
}

// ElbowChart plots inertia against k.
func ElbowChart(d *pipeline.Diagnostics) *chart.Chart {
	return curveChart("Elbow method", "Inertia", d.Inertia, chart.ColorBlue)
}

// SilhouetteChart plots the mean silhouette against k.
func SilhouetteChart(d *pipeline.Diagnostics) *chart.Chart {
	return curveChart("Silhouette score", "Mean silhouette", d.Silhouette, chart.ColorGreen)
}

// PCAScatterChart plots the best runs on the first two principal components,
// one series per cluster.
func PCAScatterChart(res *pipeline.Result) *chart.Chart {
	_, comps := res.Reduced.Dims()
	labels := res.State.Clustering.Labels
	k := res.State.Clustering.K

	xs := make([][]float64, k)
	ys := make([][]float64, k)
	for i, l := range labels {
		xs[l] = append(xs[l], res.Reduced.At(i, 0))
		y := 0.0
		if comps > 1 {
			y = res.Reduced.At(i, 1)
		}
		ys[l] = append(ys[l], y)
	}

	series := make([]chart.Series, 0, k)
	for c := 0; c < k; c++ {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("Cluster %d", c),
			XValues: xs[c],
			YValues: ys[c],
			Style:   pointStyle(chart.GetDefaultColor(c)),
		})
	}

	ratios := res.State.Projection.ExplainedVarianceRatio
	yName := "PC2 (not retained)"
	if comps > 1 {
		yName = fmt.Sprintf("PC2 (%.1f%%)", ratios[1]*100)
	}
	title := fmt.Sprintf("Clusters on the first two components (k=%d)", k)
	return baseChart(title, fmt.Sprintf("PC1 (%.1f%%)", ratios[0]*100), yName, series)
}

// WritePNG renders ch as PNG into w.
func WritePNG(w io.Writer, ch *chart.Chart) error {
	return ch.Render(chart.PNG, w)
}

func savePNG(path string, ch *chart.Chart) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart render panicked: %v", r)
		}
	}()
	if err := WritePNG(file, ch); err != nil {
		return err
	}
	return file.Close()
}

// RenderCharts writes the enabled charts into dir. A chart that fails to
// render is logged and left out of the returned set; it never fails the run.
// all is the full dataset before filtering.
func RenderCharts(dir string, cfg config.Charts, all *models.Dataset, res *pipeline.Result) ChartSet {
	var set ChartSet
	if !cfg.Enabled {
		return set
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("failed to create chart directory", "dir", dir, "error", err)
		return set
	}

	render := func(name string, build func() *chart.Chart) string {
		if name == "" {
			return ""
		}
		path := filepath.Join(dir, name)
		if err := savePNG(path, build()); err != nil {
			logger.Warn("failed to render chart", "chart", name, "error", err)
			return ""
		}
		logger.Debug("chart written", "path", path)
		return name
	}

	if all != nil && res.Best != nil {
		set.OFScatter = render(cfg.OFScatter, func() *chart.Chart { return OFScatterChart(all, res) })
	}
	if res.Diagnostics != nil {
		set.Elbow = render(cfg.Elbow, func() *chart.Chart { return ElbowChart(res.Diagnostics) })
		set.Silhouette = render(cfg.Silhouette, func() *chart.Chart { return SilhouetteChart(res.Diagnostics) })
	}
	if res.State != nil && res.State.Clustering != nil {
		set.PCAClusters = render(cfg.PCAClusters, func() *chart.Chart { return PCAScatterChart(res) })
	}
	return set
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
