package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Bundle is the machine-readable record of one analysis. It carries the
// results, not the fitted matrices.
type Bundle struct {
	AnalysisID  string           `json:"analysis_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Input       string           `json:"input,omitempty"`
	Options     pipeline.Options `json:"options"`

	Total     int     `json:"total_runs"`
	Selected  int     `json:"selected_runs"`
	Threshold float64 `json:"threshold"`

	Parameters             []string  `json:"parameters"`
	ConstantParameters     []string  `json:"constant_parameters,omitempty"`
	Components             int       `json:"components"`
	ExplainedVarianceRatio []float64 `json:"explained_variance_ratio"`
	CumulativeVariance     float64   `json:"cumulative_variance"`

	Diagnostics *pipeline.Diagnostics `json:"diagnostics"`

	K              int                     `json:"k,omitempty"`
	Inertia        float64                 `json:"inertia,omitempty"`
	Summaries      []models.ClusterSummary `json:"clusters,omitempty"`
	BestPerCluster []models.LabeledRun     `json:"best_per_cluster,omitempty"`
	Runs           []models.LabeledRun     `json:"runs,omitempty"`
}

// NewBundle collects the reportable parts of res.
func NewBundle(id, input string, res *pipeline.Result) *Bundle {
	b := &Bundle{
		AnalysisID:  id,
		GeneratedAt: time.Now().UTC(),
		Input:       input,
		Options:     res.Options,
		Total:       res.Total,
		Selected:    res.Best.Len(),
		Threshold:   res.Threshold,
		Diagnostics: res.Diagnostics,
	}
	if st := res.State; st != nil {
		b.Parameters = st.ParameterNames
		for _, j := range st.Standardization.ConstantColumns() {
			b.ConstantParameters = append(b.ConstantParameters, st.ParameterNames[j])
		}
		b.Components = st.Projection.NumComponents()
		b.ExplainedVarianceRatio = st.Projection.ExplainedVarianceRatio
		b.CumulativeVariance = st.Projection.Cumulative
		if st.Clustering != nil {
			b.K = st.Clustering.K
			b.Inertia = st.Clustering.Inertia
		}
	}
	b.Summaries = res.Summaries
	b.BestPerCluster = res.BestPerCluster
	b.Runs = res.Labeled
	return b
}

// WriteBundle encodes b as indented JSON, zstd-compressed when compress is set.
func WriteBundle(w io.Writer, b *Bundle, compress bool) error {
	if !compress {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(b); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	return nil
}

// SaveBundle writes b to path, creating parent directories.
func SaveBundle(path string, b *Bundle, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriterSize(file, 1<<20)
	if err := WriteBundle(buf, b, compress); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return file.Close()
}

// ReadBundle decodes a bundle written by WriteBundle, compressed or not.
func ReadBundle(r io.Reader) (*Bundle, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	var b Bundle
	if err := json.NewDecoder(src).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &b, nil
}
