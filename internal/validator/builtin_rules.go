package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
)

// Built-in rule keys.
const (
	RuleLineItemTotal           = "math.line_item.total"
	RuleLineItemVatRate         = "format.line_item.vat_rate"
	RuleBreakdownRate           = "format.vat_breakdown.rate"
	RuleBreakdownTaxableSum     = "math.vat_breakdown.taxable_sum"
	RuleGrandTotal              = "math.totals.grand_total"
	RuleDeliveryAddressComplete = "required.delivery_address.complete"
	RuleVatIDChecksum           = "format.vat_id.checksum"
)

// RuleOptions tunes the arithmetic rules.
type RuleOptions struct {
	ToleranceRatio decimal.Decimal
}

// DefaultRuleOptions returns a 1% tolerance.
func DefaultRuleOptions() RuleOptions {
	return RuleOptions{ToleranceRatio: decimal.NewFromFloat(0.01)}
}

// BuiltinValidator wraps a validator function and its metadata for the registry.
type BuiltinValidator struct {
	key  string
	name string
	sev  domain.ValidationSeverity
	fn   func(*domain.Document) []Result
}

func (b *BuiltinValidator) Validate(_ context.Context, doc *domain.Document) []Result {
	return b.fn(doc)
}
func (b *BuiltinValidator) RuleKey() string                     { return b.key }
func (b *BuiltinValidator) RuleName() string                    { return b.name }
func (b *BuiltinValidator) Severity() domain.ValidationSeverity { return b.sev }

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mathResult(passed bool, fieldPath, expected, actual, ruleName string) Result {
	msg := fmt.Sprintf("%s: %s calculation matches", ruleName, fieldPath)
	if !passed {
		msg = fmt.Sprintf("%s: %s calculation mismatch (expected %s, got %s)", ruleName, fieldPath, expected, actual)
	}
	return Result{
		Passed: passed, FieldPath: fieldPath,
		ExpectedValue: expected, ActualValue: actual, Message: msg,
	}
}

func formatResult(passed bool, fieldPath, actual, ruleName, problem string) Result {
	msg := fmt.Sprintf("%s: %s is valid", ruleName, fieldPath)
	if !passed {
		msg = fmt.Sprintf("%s: %s %s", ruleName, fieldPath, problem)
	}
	return Result{Passed: passed, FieldPath: fieldPath, ActualValue: actual, Message: msg}
}

// BuiltinValidators returns every built-in rule for extracted documents.
func BuiltinValidators(opts RuleOptions) []*BuiltinValidator {
	if opts.ToleranceRatio.IsZero() {
		opts = DefaultRuleOptions()
	}
	tol := opts.ToleranceRatio

	return []*BuiltinValidator{
		{
			key: RuleLineItemTotal, name: "Math: Line Item Total",
			sev: domain.ValidationSeverityError,
			fn: func(d *domain.Document) []Result {
				results := make([]Result, 0, len(d.LineItems))
				for i := range d.LineItems {
					item := &d.LineItems[i]
					fp := fmt.Sprintf("line_items[%d].line_total", i)
					expected := grammar.DiscountedTotal(item.Quantity, item.UnitPrice, item.DiscountPercent)
					passed := grammar.WithinTolerance(item.LineTotal, expected, tol)
					results = append(results, mathResult(passed, fp, money(expected), money(item.LineTotal), "Math: Line Item Total"))
				}
				return results
			},
		},
		{
			key: RuleLineItemVatRate, name: "Format: Line Item VAT Rate",
			sev: domain.ValidationSeverityError,
			fn: func(d *domain.Document) []Result {
				results := make([]Result, 0, len(d.LineItems))
				for i := range d.LineItems {
					rate := d.LineItems[i].VatRate
					fp := fmt.Sprintf("line_items[%d].vat_rate", i)
					results = append(results, formatResult(grammar.IsVatRate(rate), fp, fmt.Sprint(rate),
						"Format: Line Item VAT Rate", "is not an Italian VAT rate"))
				}
				return results
			},
		},
		{
			key: RuleBreakdownRate, name: "Format: VAT Breakdown Rate",
			sev: domain.ValidationSeverityError,
			fn: func(d *domain.Document) []Result {
				results := make([]Result, 0, len(d.Totals.VatBreakdown))
				for i, e := range d.Totals.VatBreakdown {
					fp := fmt.Sprintf("totals.vat_breakdown[%d].rate", i)
					results = append(results, formatResult(grammar.IsVatRate(e.Rate), fp, fmt.Sprint(e.Rate),
						"Format: VAT Breakdown Rate", "is not an Italian VAT rate"))
				}
				return results
			},
		},
		{
			key: RuleBreakdownTaxableSum, name: "Math: VAT Breakdown Taxable Sum",
			sev: domain.ValidationSeverityError,
			fn: func(d *domain.Document) []Result {
				if len(d.Totals.VatBreakdown) == 0 {
					return nil
				}
				sum := decimal.Zero
				for _, e := range d.Totals.VatBreakdown {
					sum = sum.Add(e.TaxableAmount)
				}
				passed := grammar.WithinTolerance(d.Totals.Subtotal, sum, tol)
				return []Result{mathResult(passed, "totals.subtotal", money(sum), money(d.Totals.Subtotal), "Math: VAT Breakdown Taxable Sum")}
			},
		},
		{
			key: RuleGrandTotal, name: "Math: Grand Total",
			sev: domain.ValidationSeverityWarning,
			fn: func(d *domain.Document) []Result {
				// Only a printed total can disagree with the recomputation.
				if d.Totals.Provenance.GrandTotal != domain.ProvenanceExtractedVerbatim || len(d.LineItems) == 0 {
					return nil
				}
				passed := grammar.WithinTolerance(d.Totals.GrandTotal, d.Totals.RecomputedGrandTotal, tol)
				return []Result{mathResult(passed, "totals.grand_total", money(d.Totals.RecomputedGrandTotal), money(d.Totals.GrandTotal), "Math: Grand Total")}
			},
		},
		{
			key: RuleDeliveryAddressComplete, name: "Required: Delivery Address Complete",
			sev: domain.ValidationSeverityWarning,
			fn: func(d *domain.Document) []Result {
				const fp = "delivery_address"
				a := d.DeliveryAddress
				if a == nil {
					return []Result{{FieldPath: fp, Message: "Required: Delivery Address Complete: delivery_address is missing"}}
				}
				var missing []string
				if a.Street == "" {
					missing = append(missing, "street")
				}
				if a.PostalCode == "" {
					missing = append(missing, "postal_code")
				}
				if a.Province == "" {
					missing = append(missing, "province")
				}
				if len(missing) > 0 {
					return []Result{{
						FieldPath: fp, ActualValue: a.String(),
						Message: "Required: Delivery Address Complete: missing " + strings.Join(missing, ", "),
					}}
				}
				return []Result{{Passed: true, FieldPath: fp, ActualValue: a.String(),
					Message: "Required: Delivery Address Complete: delivery_address is complete"}}
			},
		},
		{
			key: RuleVatIDChecksum, name: "Format: VAT ID Checksum",
			sev: domain.ValidationSeverityWarning,
			fn: func(d *domain.Document) []Result {
				if d.VatID == "" {
					return nil
				}
				return []Result{formatResult(grammar.ValidVatID(d.VatID), "vat_id", d.VatID,
					"Format: VAT ID Checksum", "fails the partita IVA check digit")}
			},
		},
	}
}
