package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/louisbranch/tracengine/compute"
	"github.com/louisbranch/tracengine/pipeline"
	"github.com/louisbranch/tracengine/platform/errors"
)

// writeTable creates path and renders t in the given format.
func writeTable(t *compute.Table, path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "create export file", err)
	}
	defer f.Close()

	switch format {
	case pipeline.FormatJSON:
		err = WriteJSON(f, t)
	default:
		err = WriteCSV(f, t)
	}
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.CodeStorageError, "close export file", err)
	}
	return nil
}

// WriteCSV renders t as CSV: one header row of column names, then one line
// per row. NaN and nil cells are empty fields.
func WriteCSV(w io.Writer, t *compute.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return errors.Wrap(errors.CodeStorageError, "write csv header", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j := range t.Columns {
			var cell any
			if j < len(row) {
				cell = row[j]
			}
			record[j] = compute.FormatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(errors.CodeStorageError, "write csv row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.CodeStorageError, "flush csv", err)
	}
	return nil
}

// WriteJSON renders t as an indented array of records, one object per row.
// NaN and nil cells are null.
func WriteJSON(w io.Writer, t *compute.Table) error {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			var cell any
			if j < len(row) {
				cell = row[j]
			}
			rec[col] = jsonCell(cell)
		}
		records = append(records, rec)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "encode json records", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(errors.CodeStorageError, "write json records", err)
	}
	return nil
}

// jsonCell maps non-encodable numeric values to null.
func jsonCell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	}
	return v
}
