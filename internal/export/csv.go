package export

import (
	"encoding/csv"
	"io"

	"ddtft/internal/domain"
)

// BOM is the UTF-8 byte order mark, for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter wraps csv.Writer for exporting extraction records, one row per document.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the 21-column header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(documentColumns)
}

// WriteRecords converts a batch of records to CSV rows and writes them.
func (w *CSVWriter) WriteRecords(recs []domain.ExtractionRecord) error {
	for i := range recs {
		cells := documentRow(&recs[i])
		row := make([]string, len(cells))
		for j, c := range cells {
			row[j] = cellString(c)
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes BOM, header and records to out.
func WriteCSV(out io.Writer, recs []domain.ExtractionRecord) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewCSVWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteRecords(recs); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
