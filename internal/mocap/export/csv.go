// Package export writes feature datasets for downstream training.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/banshee-data/mocap.features/internal/mocap/features"
)

// Separator matches the capture file separator.
const Separator = ';'

// WriteCSV writes the dataset header and rows. Rows are written in class
// label order; the dataset is sorted in place.
func WriteCSV(w io.Writer, p *features.Pipeline, ds *features.Dataset) error {
	return WriteMaskedCSV(w, p, ds, nil)
}

// WriteMaskedCSV writes only the header indices in columns (all when nil),
// as returned by Pipeline.Mask.
func WriteMaskedCSV(w io.Writer, p *features.Pipeline, ds *features.Dataset, columns []int) error {
	header := p.Header()
	for _, c := range columns {
		if c < 0 || c >= len(header) {
			return fmt.Errorf("column index %d out of range [0,%d)", c, len(header))
		}
	}
	ds.SortByActivity()

	cw := csv.NewWriter(w)
	cw.Comma = Separator
	if err := cw.Write(project(header, columns)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, v := range ds.Rows {
		row := p.Row(v)
		if len(row) != len(header) {
			return fmt.Errorf("row %d: %w: %d fields, %d columns", i, features.ErrHeaderMismatch, len(row), len(header))
		}
		if err := cw.Write(project(row, columns)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func project(row []string, columns []int) []string {
	if columns == nil {
		return row
	}
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = row[c]
	}
	return out
}
