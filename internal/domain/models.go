package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is the structured record extracted from one source text.
type Document struct {
	Type            DocumentType               `json:"type"`
	Number          string                     `json:"number,omitempty"`
	Date            string                     `json:"date,omitempty"`
	ClientCode      string                     `json:"client_code,omitempty"`
	ClientName      string                     `json:"client_name,omitempty"`
	VatID           string                     `json:"vat_id,omitempty"`
	OrderReference  string                     `json:"order_reference,omitempty"`
	BillingAddress  *AddressBlock              `json:"billing_address,omitempty"`
	DeliveryAddress *AddressBlock              `json:"delivery_address,omitempty"`
	LineItems       []LineItem                 `json:"line_items"`
	Totals          Totals                     `json:"totals"`
	Provenance      map[string]FieldProvenance `json:"provenance,omitempty"`
	Overrides       []FieldOverride            `json:"overrides,omitempty"`
}

// AddressBlock is a postal address split into its components.
type AddressBlock struct {
	Street         string        `json:"street,omitempty"`
	StreetNumber   string        `json:"street_number,omitempty"`
	AdditionalInfo string        `json:"additional_info,omitempty"`
	PostalCode     string        `json:"postal_code,omitempty"`
	City           string        `json:"city,omitempty"`
	Province       string        `json:"province,omitempty"`
	Method         AddressMethod `json:"method,omitempty"`
	Confidence     float64       `json:"confidence"`
	LowConfidence  bool          `json:"low_confidence,omitempty"`
}

// Complete reports whether street, postal code and province are all present.
func (a *AddressBlock) Complete() bool {
	return a != nil && a.Street != "" && a.PostalCode != "" && a.Province != ""
}

// StreetLine renders the street part, e.g. "VIA SALUZZO, 65".
func (a *AddressBlock) StreetLine() string {
	if a == nil {
		return ""
	}
	s := a.Street
	if a.StreetNumber != "" {
		s += ", " + a.StreetNumber
	}
	if a.AdditionalInfo != "" {
		s = strings.TrimSpace(s + " " + a.AdditionalInfo)
	}
	return s
}

// String renders the block on one line, e.g. "VIA SALUZZO, 65 12038 SAVIGLIANO CN".
func (a *AddressBlock) String() string {
	if a == nil {
		return ""
	}
	parts := []string{a.StreetLine(), a.PostalCode, a.City, a.Province}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// LineItem is one product row.
type LineItem struct {
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	LineTotal       decimal.Decimal `json:"line_total"`
	VatRate         int             `json:"vat_rate"`
	// GrossTotal is the printed list total of a free-of-charge row.
	GrossTotal decimal.Decimal `json:"gross_total,omitempty"`
	Gift       bool            `json:"gift,omitempty"`
	// Layout names the row interpretation that validated, e.g. "7-field" or "8-field".
	Layout string `json:"layout"`
}

// VatBreakdownEntry aggregates the line items sharing one VAT rate.
type VatBreakdownEntry struct {
	Rate          int             `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// Totals holds the reconciled document totals.
type Totals struct {
	Subtotal     decimal.Decimal     `json:"subtotal"`
	VatBreakdown []VatBreakdownEntry `json:"vat_breakdown"`
	VatTotal     decimal.Decimal     `json:"vat_total"`
	GrandTotal   decimal.Decimal     `json:"grand_total"`
	// RecomputedGrandTotal is subtotal + vatTotal, kept even when a verbatim total wins.
	RecomputedGrandTotal decimal.Decimal  `json:"recomputed_grand_total"`
	GrandTotalRule       string           `json:"grand_total_rule,omitempty"`
	Provenance           TotalsProvenance `json:"provenance"`
}

// TotalsProvenance tags each totals field.
type TotalsProvenance struct {
	Subtotal   Provenance `json:"subtotal"`
	VatTotal   Provenance `json:"vat_total"`
	GrandTotal Provenance `json:"grand_total"`
}

// FieldProvenance records which strategy committed a header field.
type FieldProvenance struct {
	Strategy   string   `json:"strategy"`
	Confidence float64  `json:"confidence"`
	AgreedBy   []string `json:"agreed_by,omitempty"`
}

// FieldOverride is an explicit replacement of a committed value by a later strategy.
type FieldOverride struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Strategy string `json:"strategy"`
	Rule     string `json:"rule"`
}

// Diagnostic is a recoverable problem raised during extraction.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Field    string         `json:"field"`
	Strategy string         `json:"strategy"`
	Message  string         `json:"message"`
	Expected string         `json:"expected,omitempty"`
	Actual   string         `json:"actual,omitempty"`
}

// ExtractionRecord is a persisted extraction.
type ExtractionRecord struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	FileName          string           `db:"file_name" json:"file_name"`
	DocumentType      DocumentType     `db:"document_type" json:"document_type"`
	Document          json.RawMessage  `db:"document" json:"document"`
	Diagnostics       json.RawMessage  `db:"diagnostics" json:"diagnostics"`
	ValidationStatus  ValidationStatus `db:"validation_status" json:"validation_status"`
	ValidationResults json.RawMessage  `db:"validation_results" json:"validation_results"`
	ContentHash       string           `db:"content_hash" json:"content_hash"`
	SourceKey         string           `db:"source_key" json:"source_key,omitempty"`
	CreatedBy         string           `db:"created_by" json:"created_by"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}

// DecodeDocument unmarshals the stored document payload.
func (r *ExtractionRecord) DecodeDocument() (*Document, error) {
	var doc Document
	if err := json.Unmarshal(r.Document, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeDiagnostics unmarshals the stored diagnostics payload.
func (r *ExtractionRecord) DecodeDiagnostics() ([]Diagnostic, error) {
	if len(r.Diagnostics) == 0 {
		return nil, nil
	}
	var diags []Diagnostic
	if err := json.Unmarshal(r.Diagnostics, &diags); err != nil {
		return nil, err
	}
	return diags, nil
}
