package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/models"
)

// Table is a header plus rows of cells. Cells are strings, ints or float64s.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]any
}

// RunsTable lays out labeled runs as ID, sequence, objective, parameters and
// cluster, matching the input column names.
func RunsTable(sheet string, schema models.Schema, runs []models.LabeledRun) *Table {
	header := []string{schema.IDColumn, schema.SequenceColumn, schema.ObjectiveColumn}
	header = append(header, schema.Parameters...)
	header = append(header, "Cluster")

	t := &Table{Sheet: sheet, Header: header, Rows: make([][]any, len(runs))}
	for i, r := range runs {
		row := make([]any, 0, len(header))
		row = append(row, r.ID, r.Sequence, r.Objective)
		for _, v := range r.Parameters {
			row = append(row, v)
		}
		row = append(row, r.Cluster)
		t.Rows[i] = row
	}
	return t
}

// WriteTable writes t to path as .xlsx or .csv depending on the extension.
// Parent directories are created as needed.
func WriteTable(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeCSV(path, t)
	case ".xlsx":
		return writeXLSX(path, t)
	default:
		return fmt.Errorf("unsupported output format %q (want .csv or .xlsx)", ext)
	}
}

func writeCSV(path string, t *Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, formatCell(v))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

func writeXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
