// Package dataio reads calibration tables from CSV or XLSX files and writes
// result tables back out in either format.
package dataio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/config"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

// unnamedIndex is the header spreadsheet exports give a leading index column.
const unnamedIndex = "Unnamed: 0"

// LoadOptions describes the layout of a calibration table.
type LoadOptions struct {
	Sheet           string
	ObjectiveColumn string
	SequenceColumn  string
	IDColumn        string
	DropColumns     []string
}

// OptionsFromConfig maps the input section of a config onto LoadOptions.
func OptionsFromConfig(in config.Input) LoadOptions {
	return LoadOptions{
		Sheet:           in.Sheet,
		ObjectiveColumn: in.ObjectiveColumn,
		SequenceColumn:  in.SequenceColumn,
		IDColumn:        in.IDColumn,
		DropColumns:     in.DropColumns,
	}
}

// Load reads a calibration table, picking the format from the extension.
func Load(path string, opts LoadOptions) (*models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ParseCSV(file, opts)
	case ".xlsx", ".xlsm":
		return ParseXLSX(file, opts)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .csv or .xlsx)", ext)
	}
}

// ParseCSV reads a calibration table in CSV form.
func ParseCSV(r io.Reader, opts LoadOptions) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return fromRows(rows, opts)
}

// ParseXLSX reads a calibration table from a workbook. The sheet named in
// opts is used, or the first sheet when none is named.
func ParseXLSX(r io.Reader, opts LoadOptions) (*models.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &pipeline.InputError{Stage: pipeline.StageLoad, Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return fromRows(rows, opts)
}

func loadError(format string, args ...any) error {
	return &pipeline.InputError{Stage: pipeline.StageLoad, Reason: fmt.Sprintf(format, args...)}
}

// fromRows builds a dataset from a header row plus data rows. The unnamed
// leading column becomes the ID column, drop columns are removed, and every
// remaining column other than objective, sequence and ID is a parameter.
func fromRows(rows [][]string, opts LoadOptions) (*models.Dataset, error) {
	if len(rows) == 0 {
		return nil, loadError("table has no header row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) > 0 && (header[0] == "" || header[0] == unnamedIndex) && opts.IDColumn != "" {
		header[0] = opts.IDColumn
	}

	drop := make(map[string]bool, len(opts.DropColumns))
	for _, c := range opts.DropColumns {
		drop[c] = true
	}

	idCol, seqCol, objCol := -1, -1, -1
	var paramCols []int
	schema := models.Schema{
		IDColumn:        opts.IDColumn,
		SequenceColumn:  opts.SequenceColumn,
		ObjectiveColumn: opts.ObjectiveColumn,
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if drop[h] {
			continue
		}
		if h == "" {
			return nil, loadError("column %d has no header", i+1)
		}
		if seen[h] {
			return nil, loadError("duplicate column %q", h)
		}
		seen[h] = true

		switch h {
		case opts.IDColumn:
			idCol = i
		case opts.SequenceColumn:
			seqCol = i
		case opts.ObjectiveColumn:
			objCol = i
		default:
			paramCols = append(paramCols, i)
			schema.Parameters = append(schema.Parameters, h)
		}
	}

	var missing []string
	if objCol < 0 {
		missing = append(missing, opts.ObjectiveColumn)
	}
	if seqCol < 0 {
		missing = append(missing, opts.SequenceColumn)
	}
	if len(missing) > 0 {
		return nil, loadError("essential columns not found: %s", strings.Join(missing, ", "))
	}

	ds := &models.Dataset{Schema: schema}
	for r, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		line := r + 2
		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		number := func(i int) (float64, error) {
			raw := cell(i)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, loadError("row %d, column %q: %q is not a number", line, header[i], raw)
			}
			return v, nil
		}

		run := models.Run{ID: strconv.Itoa(len(ds.Runs))}
		if idCol >= 0 {
			run.ID = cell(idCol)
		}
		var err error
		if run.Sequence, err = number(seqCol); err != nil {
			return nil, err
		}
		if run.Objective, err = number(objCol); err != nil {
			return nil, err
		}
		run.Parameters = make([]float64, len(paramCols))
		for p, i := range paramCols {
			if run.Parameters[p], err = number(i); err != nil {
				return nil, err
			}
		}
		ds.Runs = append(ds.Runs, run)
	}

	if ds.Len() == 0 {
		return nil, loadError("table has no data rows")
	}
	return ds, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
