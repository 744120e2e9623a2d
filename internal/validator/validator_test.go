package validator_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/internal/domain"
	"ddtft/internal/validator"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validDocument() *domain.Document {
	return &domain.Document{
		Type:   domain.DocumentTypeFT,
		Number: "4904",
		VatID:  "01234567897",
		DeliveryAddress: &domain.AddressBlock{
			Street: "VIA ROMA", StreetNumber: "3", PostalCode: "12042", City: "BRA", Province: "CN",
			Confidence: 0.9,
		},
		LineItems: []domain.LineItem{
			{Code: "070017", Unit: "PZ", Quantity: dec("10"), UnitPrice: dec("2.17"), LineTotal: dec("21.70"), VatRate: 4},
			{Code: "OM1", Unit: "PZ", Quantity: dec("2"), UnitPrice: dec("5"), DiscountPercent: dec("100"),
				LineTotal: decimal.Zero, GrossTotal: dec("10"), Gift: true, VatRate: 22},
		},
		Totals: domain.Totals{
			Subtotal: dec("21.70"),
			VatBreakdown: []domain.VatBreakdownEntry{
				{Rate: 4, TaxableAmount: dec("21.70"), TaxAmount: dec("0.87")},
				{Rate: 22, TaxableAmount: decimal.Zero, TaxAmount: decimal.Zero},
			},
			VatTotal:             dec("0.87"),
			GrandTotal:           dec("22.57"),
			RecomputedGrandTotal: dec("22.57"),
			Provenance: domain.TotalsProvenance{
				Subtotal:   domain.ProvenanceRecomputed,
				VatTotal:   domain.ProvenanceRecomputed,
				GrandTotal: domain.ProvenanceExtractedVerbatim,
			},
		},
		Provenance: map[string]domain.FieldProvenance{
			"number": {Strategy: "number.anchored_line", Confidence: 0.9},
			"date":   {Strategy: "date.file_name", Confidence: 0.4},
		},
	}
}

func newEngine() *validator.Engine {
	return validator.NewEngine(validator.NewDefaultRegistry(validator.DefaultRuleOptions()), zerolog.Nop())
}

func failed(r *validator.Report) []validator.ResultEntry {
	var out []validator.ResultEntry
	for _, e := range r.Results {
		if !e.Passed {
			out = append(out, e)
		}
	}
	return out
}

func TestValidateDocument_Valid(t *testing.T) {
	report := newEngine().ValidateDocument(context.Background(), validDocument())

	assert.Equal(t, domain.ValidationStatusValid, report.Status)
	assert.Empty(t, failed(report))
	assert.Equal(t, report.Summary.Total, report.Summary.Passed)
	assert.Zero(t, report.Summary.Errors)

	assert.Equal(t, domain.FieldStatusValid, report.FieldStatuses["vat_id"].Status)
	assert.Equal(t, domain.FieldStatusValid, report.FieldStatuses["number"].Status)
	assert.Equal(t, domain.FieldStatusUnsure, report.FieldStatuses["date"].Status, "low confidence without a rule")
}

func TestValidateDocument_LineTotalMismatch(t *testing.T) {
	doc := validDocument()
	doc.LineItems[0].LineTotal = dec("30")

	report := newEngine().ValidateDocument(context.Background(), doc)
	assert.Equal(t, domain.ValidationStatusInvalid, report.Status)

	bad := failed(report)
	require.Len(t, bad, 1)
	assert.Equal(t, validator.RuleLineItemTotal, bad[0].RuleKey)
	assert.Equal(t, "line_items[0].line_total", bad[0].FieldPath)
	assert.Equal(t, "21.70", bad[0].ExpectedValue)
	assert.Equal(t, "30.00", bad[0].ActualValue)
	assert.Equal(t, domain.FieldStatusInvalid, report.FieldStatuses["line_items[0].line_total"].Status)
	assert.Equal(t, 1, report.Summary.Errors)
}

func TestValidateDocument_Warnings(t *testing.T) {
	t.Run("vat_id_checksum", func(t *testing.T) {
		doc := validDocument()
		doc.VatID = "12345678901"
		report := newEngine().ValidateDocument(context.Background(), doc)

		assert.Equal(t, domain.ValidationStatusWarning, report.Status)
		assert.Equal(t, domain.FieldStatusUnsure, report.FieldStatuses["vat_id"].Status)
		assert.Equal(t, 1, report.Summary.Warnings)
	})

	t.Run("missing_delivery_address", func(t *testing.T) {
		doc := validDocument()
		doc.DeliveryAddress = nil
		report := newEngine().ValidateDocument(context.Background(), doc)

		assert.Equal(t, domain.ValidationStatusWarning, report.Status)
		bad := failed(report)
		require.Len(t, bad, 1)
		assert.Equal(t, validator.RuleDeliveryAddressComplete, bad[0].RuleKey)
		assert.Contains(t, bad[0].Message, "missing")
	})

	t.Run("incomplete_delivery_address", func(t *testing.T) {
		doc := validDocument()
		doc.DeliveryAddress.Province = ""
		report := newEngine().ValidateDocument(context.Background(), doc)

		bad := failed(report)
		require.Len(t, bad, 1)
		assert.Contains(t, bad[0].Message, "province")
	})

	t.Run("printed_total_disagrees", func(t *testing.T) {
		doc := validDocument()
		doc.Totals.GrandTotal = dec("50")
		report := newEngine().ValidateDocument(context.Background(), doc)

		assert.Equal(t, domain.ValidationStatusWarning, report.Status)
		bad := failed(report)
		require.Len(t, bad, 1)
		assert.Equal(t, validator.RuleGrandTotal, bad[0].RuleKey)
		assert.Equal(t, "22.57", bad[0].ExpectedValue)
	})
}

func TestValidateDocument_SkippedRules(t *testing.T) {
	doc := validDocument()
	doc.VatID = ""
	doc.Totals.Provenance.GrandTotal = domain.ProvenanceRecomputed

	report := newEngine().ValidateDocument(context.Background(), doc)
	assert.Equal(t, domain.ValidationStatusValid, report.Status)
	for _, r := range report.Results {
		assert.NotEqual(t, validator.RuleVatIDChecksum, r.RuleKey)
		assert.NotEqual(t, validator.RuleGrandTotal, r.RuleKey)
	}
}

func TestValidateDocument_InvalidVatRate(t *testing.T) {
	doc := validDocument()
	doc.LineItems[0].VatRate = 5
	doc.Totals.VatBreakdown[0].Rate = 5

	report := newEngine().ValidateDocument(context.Background(), doc)
	assert.Equal(t, domain.ValidationStatusInvalid, report.Status)

	keys := map[string]bool{}
	for _, r := range failed(report) {
		keys[r.RuleKey] = true
	}
	assert.True(t, keys[validator.RuleLineItemVatRate])
	assert.True(t, keys[validator.RuleBreakdownRate])
}

func TestValidateDocument_TaxableSum(t *testing.T) {
	doc := validDocument()
	doc.Totals.Subtotal = dec("40")

	report := newEngine().ValidateDocument(context.Background(), doc)
	bad := failed(report)
	require.NotEmpty(t, bad)
	assert.Equal(t, validator.RuleBreakdownTaxableSum, bad[0].RuleKey)
	assert.Equal(t, "21.70", bad[0].ExpectedValue)
}

func TestRegistry(t *testing.T) {
	r := validator.NewDefaultRegistry(validator.RuleOptions{})
	all := r.All()
	require.Len(t, all, 7)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].RuleKey(), all[i].RuleKey())
	}

	assert.NotNil(t, r.Get(validator.RuleVatIDChecksum))
	assert.Nil(t, r.Get("format.unknown"))

	empty := validator.NewRegistry()
	assert.Empty(t, empty.All())
	assert.Equal(t, domain.ValidationStatusValid,
		validator.NewEngine(empty, zerolog.Nop()).ValidateDocument(context.Background(), validDocument()).Status)
}

func TestComputeFieldStatuses(t *testing.T) {
	results := []validator.ResultEntry{
		{Severity: domain.ValidationSeverityWarning, FieldPath: "vat_id", Message: "bad checksum"},
		{Severity: domain.ValidationSeverityError, FieldPath: "vat_id", Message: "wrong length"},
		{Severity: domain.ValidationSeverityError, FieldPath: "number", Passed: true},
	}
	statuses := validator.ComputeFieldStatuses(results, map[string]float64{
		"number":      0.2,
		"client_code": 0.5,
		"client_name": 0.9,
	})

	assert.Equal(t, domain.FieldStatusInvalid, statuses["vat_id"].Status, "error outranks warning")
	assert.Equal(t, []string{"bad checksum", "wrong length"}, statuses["vat_id"].Messages)
	assert.Equal(t, domain.FieldStatusValid, statuses["number"].Status, "rule results win over confidence")
	assert.Equal(t, domain.FieldStatusUnsure, statuses["client_code"].Status)
	assert.Equal(t, domain.FieldStatusValid, statuses["client_name"].Status)
}
