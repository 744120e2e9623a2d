package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ddtft/internal/domain"
)

const (
	// DefaultSheetName holds one row per document.
	DefaultSheetName = "Documenti"
	// LineItemSheetName holds one row per line item.
	LineItemSheetName = "Righe"
)

// WriteXLSX writes a workbook with a documents sheet and a line items sheet.
func WriteXLSX(out io.Writer, recs []domain.ExtractionRecord, sheetName string) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if _, err := f.NewSheet(LineItemSheetName); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	docRows := make([][]any, 0, len(recs))
	var itemRows [][]any
	for i := range recs {
		docRows = append(docRows, documentRow(&recs[i]))
		itemRows = append(itemRows, lineItemRows(&recs[i])...)
	}

	if err := writeSheet(f, sheetName, documentColumns, docRows, bold); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if err := writeSheet(f, LineItemSheetName, lineItemColumns, itemRows, bold); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			if d, ok := c.(decimal.Decimal); ok {
				cells[j] = d.InexactFloat64()
				continue
			}
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

// Write encodes recs in the requested format.
func Write(out io.Writer, format domain.ExportFormat, recs []domain.ExtractionRecord, sheetName string) error {
	switch format {
	case domain.ExportFormatCSV:
		return WriteCSV(out, recs)
	case domain.ExportFormatXLSX:
		return WriteXLSX(out, recs, sheetName)
	default:
		return domain.ErrInvalidExportFormat
	}
}

// ContentType returns the MIME type of an export format.
func ContentType(format domain.ExportFormat) string {
	if format == domain.ExportFormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
