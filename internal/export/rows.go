// Package export writes extraction records as CSV or XLSX.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ddtft/internal/domain"
)

// documentColumns is the header of the documents table (21 columns).
var documentColumns = []string{
	"File Name",
	"Document Type",
	"Number",
	"Date",
	"Client Code",
	"Client Name",
	"VAT ID",
	"Order Reference",
	"Delivery Street",
	"Delivery Postal Code",
	"Delivery City",
	"Delivery Province",
	"Delivery Method",
	"Line Item Count",
	"Subtotal",
	"VAT Total",
	"Grand Total",
	"Grand Total Rule",
	"Validation Status",
	"Diagnostics",
	"Created At",
}

// lineItemColumns is the header of the line items table (12 columns).
var lineItemColumns = []string{
	"File Name",
	"Number",
	"Code",
	"Description",
	"Unit",
	"Quantity",
	"Unit Price",
	"Discount %",
	"Line Total",
	"VAT Rate",
	"Gift",
	"Layout",
}

// documentRow converts a record to cell values. Money is decimal.Decimal so each
// writer can render it natively. Undecodable documents keep only metadata.
func documentRow(rec *domain.ExtractionRecord) []any {
	row := make([]any, len(documentColumns))
	for i := range row {
		row[i] = ""
	}
	row[0] = rec.FileName
	row[1] = string(rec.DocumentType)
	row[18] = string(rec.ValidationStatus)
	row[20] = formatTime(rec.CreatedAt)

	if diags, err := rec.DecodeDiagnostics(); err == nil {
		row[19] = len(diags)
	}

	doc, err := rec.DecodeDocument()
	if err != nil {
		return row
	}
	row[2] = doc.Number
	row[3] = doc.Date
	row[4] = doc.ClientCode
	row[5] = doc.ClientName
	row[6] = doc.VatID
	row[7] = doc.OrderReference
	if a := doc.DeliveryAddress; a != nil {
		row[8] = a.StreetLine()
		row[9] = a.PostalCode
		row[10] = a.City
		row[11] = a.Province
		row[12] = string(a.Method)
	}
	row[13] = len(doc.LineItems)
	row[14] = doc.Totals.Subtotal
	row[15] = doc.Totals.VatTotal
	row[16] = doc.Totals.GrandTotal
	row[17] = doc.Totals.GrandTotalRule
	return row
}

func lineItemRows(rec *domain.ExtractionRecord) [][]any {
	doc, err := rec.DecodeDocument()
	if err != nil {
		return nil
	}
	rows := make([][]any, 0, len(doc.LineItems))
	for _, it := range doc.LineItems {
		rows = append(rows, []any{
			rec.FileName,
			doc.Number,
			it.Code,
			it.Description,
			it.Unit,
			it.Quantity,
			it.UnitPrice,
			it.DiscountPercent,
			it.LineTotal,
			it.VatRate,
			formatBool(it.Gift),
			it.Layout,
		})
	}
	return rows
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// cellString renders a value for text formats. Decimals carry two places.
func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case decimal.Decimal:
		return x.StringFixed(2)
	default:
		return fmt.Sprint(x)
	}
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces non-alphanumeric chars (except - _) with _,
// collapses consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a Content-Disposition file name such as
// "estrazioni_2025-05-21.xlsx".
func BuildFilename(base string, format domain.ExportFormat, now time.Time) string {
	sanitized := SanitizeFilename(base)
	if sanitized == "" {
		sanitized = "export"
	}
	return fmt.Sprintf("%s_%s.%s", sanitized, now.Format("2006-01-02"), format)
}
