// Package report renders analysis results: a Markdown summary, PNG charts
// and a JSON result bundle.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/utils"
)

// Input is everything the Markdown report draws on.
type Input struct {
	GeneratedAt time.Time
	InputPath   string
	Result      *pipeline.Result
	Charts      ChartSet
}

// WriteMarkdown writes the analysis report. Sections that depend on
// clustering are omitted for diagnostics-only results.
func WriteMarkdown(w io.Writer, in Input) error {
	res := in.Result
	if res == nil || res.State == nil || res.Diagnostics == nil {
		return fmt.Errorf("report: result is incomplete")
	}
	opts := res.Options
	st := res.State
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("# Calibration Analysis Report\n\n")
	p("Generated: %s\n\n", in.GeneratedAt.Format("2006-01-02 15:04:05"))
	if in.InputPath != "" {
		p("Input file: `%s`\n\n", in.InputPath)
	}

	p("## Configuration\n\n")
	p("* **Best model percentile:** %s%%\n", pct(opts.Percentile))
	p("* **PCA variance threshold:** %s%%\n", pct(opts.VarianceThreshold))
	p("* **Principal components:** %d (cumulative variance %.1f%%)\n", st.Projection.NumComponents(), st.Projection.Cumulative*100)
	if st.Clustering != nil {
		p("* **Clusters (k):** %d\n", st.Clustering.K)
	}
	p("* **Seed:** %d, **n_init:** %d\n\n", opts.Seed, opts.NInit)

	p("## Best Model Selection\n\n")
	p("Total simulations: %d\n\n", res.Total)
	p("Selected (best %s%%, %s <= %.4f): %d\n\n", pct(opts.Percentile), objectiveName(res), res.Threshold, res.Best.Len())
	image(bw, in.Charts.OFScatter, "Objective function scatter",
		"Objective value of every simulation; selected models highlighted.")
	if cols := st.Standardization.ConstantColumns(); len(cols) > 0 {
		names := make([]string, len(cols))
		for i, j := range cols {
			names[i] = st.ParameterNames[j]
		}
		p("Parameters constant across the selected models (excluded from variance): %s\n\n", strings.Join(names, ", "))
	}

	p("## Number of Clusters\n\n")
	p("Examined k from %d to %d.\n\n", opts.KMin, opts.KMax)
	image(bw, in.Charts.Elbow, "Elbow method", "Inertia against k.")
	image(bw, in.Charts.Silhouette, "Silhouette score", "Mean silhouette against k; higher means better separated clusters.")
	rows := make([][]string, len(res.Diagnostics.Inertia))
	for i := range rows {
		rows[i] = []string{
			strconv.Itoa(res.Diagnostics.Inertia[i].K),
			curveValue(res.Diagnostics.Inertia[i]),
			curveValue(res.Diagnostics.Silhouette[i]),
		}
	}
	table(bw, []string{"k", "Inertia", "Silhouette"}, rows)

	if st.Clustering == nil {
		return bw.Flush()
	}
	p("**Chosen number of clusters (k): %d**\n\n", st.Clustering.K)

	p("## Clusters\n\n")
	image(bw, in.Charts.PCAClusters, "Clusters in PCA space",
		fmt.Sprintf("Clusters on the first two principal components (%.1f%% of variance).", firstTwo(st.Projection)*100))

	p("### Cluster Sizes\n\n")
	rows = rows[:0]
	for _, s := range res.Summaries {
		rows = append(rows, []string{strconv.Itoa(s.Cluster), strconv.Itoa(s.Count)})
	}
	table(bw, []string{"Cluster", "Models"}, rows)

	p("### Centroids (original parameter units)\n\n")
	rows = rows[:0]
	for _, s := range res.Summaries {
		rows = append(rows, append([]string{strconv.Itoa(s.Cluster)}, floats(s.Centroid)...))
	}
	table(bw, append([]string{"Cluster"}, st.ParameterNames...), rows)

	p("### %s by Cluster\n\n", objectiveName(res))
	rows = rows[:0]
	for _, s := range res.Summaries {
		rows = append(rows, append([]string{strconv.Itoa(s.Cluster)}, describeRow(s.Objective)...))
	}
	table(bw, describeHeader("Cluster"), rows)

	p("### Parameter Distribution by Cluster\n\n")
	rows = rows[:0]
	for _, s := range res.Summaries {
		for j, d := range s.Parameters {
			rows = append(rows, append([]string{strconv.Itoa(s.Cluster), st.ParameterNames[j]}, describeRow(d)...))
		}
	}
	table(bw, append([]string{"Cluster", "Parameter"}, describeHeader("")[1:]...), rows)

	p("## Representative Models\n\n")
	p("The simulation with the lowest %s in each cluster.\n\n", objectiveName(res))
	header := []string{"Cluster", idName(res), objectiveName(res)}
	header = append(header, st.ParameterNames...)
	rows = rows[:0]
	for _, b := range res.BestPerCluster {
		row := []string{strconv.Itoa(b.Cluster), b.ID, fmt.Sprintf("%.4f", b.Objective)}
		for _, name := range st.ParameterNames {
			row = append(row, fmt.Sprintf("%.4f", b.Parameters[res.Best.Schema.ParameterIndex(name)]))
		}
		rows = append(rows, row)
	}
	table(bw, header, rows)

	return bw.Flush()
}

// SaveMarkdown writes the report to path, creating parent directories.
func SaveMarkdown(path string, in Input) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()
	if err := WriteMarkdown(file, in); err != nil {
		return err
	}
	return file.Close()
}

func image(w io.Writer, name, alt, caption string) {
	if name == "" {
		return
	}
	fmt.Fprintf(w, "![%s](%s)\n\n*%s*\n\n", alt, name, caption)
}

// table writes a GitHub-flavored Markdown table.
func table(w io.Writer, header []string, rows [][]string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | "))
	for _, row := range rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(row, " | "))
	}
	fmt.Fprintln(w)
}

func describeHeader(first string) []string {
	return []string{first, "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
}

func describeRow(d models.Describe) []string {
	return append([]string{strconv.Itoa(d.Count)}, floats([]float64{d.Mean, d.Std, d.Min, d.P25, d.P50, d.P75, d.Max})...)
}

func floats(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%.4f", v)
	}
	return out
}

func curveValue(p pipeline.CurvePoint) string {
	if p.Missing {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", p.Value)
}

func pct(v float64) string {
	return strconv.FormatFloat(utils.Round(v*100, 2), 'f', -1, 64)
}

func firstTwo(p *pipeline.Projection) float64 {
	sum := 0.0
	for i, r := range p.ExplainedVarianceRatio {
		if i == 2 {
			break
		}
		sum += r
	}
	return sum
}

func objectiveName(res *pipeline.Result) string {
	if name := res.Best.Schema.ObjectiveColumn; name != "" {
		return name
	}
	return "Objective"
}

func idName(res *pipeline.Result) string {
	if name := res.Best.Schema.IDColumn; name != "" {
		return name
	}
	return "ID"
}
