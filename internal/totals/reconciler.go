// Package totals recomputes document totals from line items and reconciles
// them with the totals printed in the text.
package totals

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
)

// Rules recorded in Totals.GrandTotalRule, in precedence order.
const (
	RuleLabeledAnchor      = "labeled_anchor"
	RuleDuplicatedEndValue = "duplicated_end_value"
	RuleRecomputed         = "recomputed"
)

// FieldGrandTotal is the diagnostic field name for grand-total mismatches.
const FieldGrandTotal = "totals.grand_total"

// moneyRe matches amounts printed with a decimal comma and two decimals.
var moneyRe = regexp.MustCompile(`^-?(?:\d{1,3}(?:\.\d{3})+|\d+),\d{2}$`)

// Options tunes reconciliation.
type Options struct {
	ToleranceRatio decimal.Decimal
	// TailLines bounds the duplicated-value search to the document's last lines.
	TailLines int
}

// DefaultOptions returns a 1% tolerance and a 15-line tail window.
func DefaultOptions() Options {
	return Options{ToleranceRatio: decimal.NewFromFloat(0.01), TailLines: 15}
}

// Reconciler computes Totals for a parsed document.
type Reconciler struct {
	profile *grammar.Profile
	opts    Options
}

// New creates a Reconciler. Zero option values fall back to the defaults.
func New(profile *grammar.Profile, opts Options) *Reconciler {
	def := DefaultOptions()
	if opts.ToleranceRatio.IsZero() {
		opts.ToleranceRatio = def.ToleranceRatio
	}
	if opts.TailLines <= 0 {
		opts.TailLines = def.TailLines
	}
	if profile == nil {
		profile = grammar.DefaultProfile()
	}
	return &Reconciler{profile: profile, opts: opts}
}

// Reconcile recomputes subtotal, VAT breakdown and VAT total from items and
// picks the grand total by precedence: labeled anchor, duplicated end value,
// recomputed sum. A verbatim total that disagrees with the recomputed sum is
// kept and reported with exactly one ValidationMismatch diagnostic.
func (r *Reconciler) Reconcile(items []domain.LineItem, lines []string) (domain.Totals, []domain.Diagnostic) {
	var t domain.Totals
	t.Subtotal, t.VatBreakdown, t.VatTotal = Recompute(items)
	t.RecomputedGrandTotal = t.Subtotal.Add(t.VatTotal)

	recomputed := len(items) > 0
	if recomputed {
		t.Provenance.Subtotal = domain.ProvenanceRecomputed
		t.Provenance.VatTotal = domain.ProvenanceRecomputed
	} else {
		t.Provenance.Subtotal = domain.ProvenanceUnresolved
		t.Provenance.VatTotal = domain.ProvenanceUnresolved
	}

	verbatim, rule, ok := r.verbatimGrandTotal(lines)
	switch {
	case ok:
		t.GrandTotal = verbatim
		t.GrandTotalRule = rule
		t.Provenance.GrandTotal = domain.ProvenanceExtractedVerbatim
	case recomputed:
		t.GrandTotal = t.RecomputedGrandTotal
		t.GrandTotalRule = RuleRecomputed
		t.Provenance.GrandTotal = domain.ProvenanceRecomputed
	default:
		t.Provenance.GrandTotal = domain.ProvenanceUnresolved
		return t, []domain.Diagnostic{{
			Kind:     domain.DiagnosticPatternNotFound,
			Field:    FieldGrandTotal,
			Strategy: "totals.reconcile",
			Message:  "no printed total and no line items to recompute from",
		}}
	}

	if ok && recomputed && !grammar.WithinTolerance(verbatim, t.RecomputedGrandTotal, r.opts.ToleranceRatio) {
		return t, []domain.Diagnostic{{
			Kind:     domain.DiagnosticValidationMismatch,
			Field:    FieldGrandTotal,
			Strategy: "totals." + rule,
			Message:  "printed grand total differs from the sum of line items plus VAT",
			Expected: t.RecomputedGrandTotal.StringFixed(2),
			Actual:   verbatim.StringFixed(2),
		}}
	}
	return t, nil
}

func (r *Reconciler) verbatimGrandTotal(lines []string) (decimal.Decimal, string, bool) {
	if v, ok := r.LabeledTotal(lines); ok {
		return v, RuleLabeledAnchor, true
	}
	if v, ok := r.DuplicatedEndValue(lines); ok {
		return v, RuleDuplicatedEndValue, true
	}
	return decimal.Zero, "", false
}

// LabeledTotal returns the amount printed with the last grand-total label.
// The amount is the last money token after the label on the same line, or
// the first money token on the next non-empty line.
func (r *Reconciler) LabeledTotal(lines []string) (decimal.Decimal, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		up := strings.ToUpper(lines[i])
		for _, label := range r.profile.GrandTotalLabels {
			idx := strings.LastIndex(up, label)
			if idx < 0 {
				continue
			}
			if amounts := moneyTokens(up[idx+len(label):]); len(amounts) > 0 {
				return amounts[len(amounts)-1], true
			}
			for j := i + 1; j < len(lines); j++ {
				if strings.TrimSpace(lines[j]) == "" {
					continue
				}
				if amounts := moneyTokens(lines[j]); len(amounts) > 0 {
					return amounts[0], true
				}
				break
			}
		}
	}
	return decimal.Zero, false
}

// DuplicatedEndValue looks at the lines after the last product row, bottom
// up, for a line ending in two equal amounts. Print layouts that repeat the
// total in two boxes produce this pattern. Product rows never qualify: a
// quantity-1 row prints its price and its total side by side.
func (r *Reconciler) DuplicatedEndValue(lines []string) (decimal.Decimal, bool) {
	from := len(lines) - r.opts.TailLines
	if from < 0 {
		from = 0
	}
	for i := len(lines) - 1; i >= from; i-- {
		fields := strings.Fields(lines[i])
		if isProductRow(fields) {
			break
		}
		n := len(fields)
		if n < 2 {
			continue
		}
		last, ok1 := moneyToken(fields[n-1])
		prev, ok2 := moneyToken(fields[n-2])
		if ok1 && ok2 && last.Equal(prev) && !last.IsZero() {
			return last, true
		}
	}
	return decimal.Zero, false
}

// isProductRow reports whether fields start with a product code and carry a
// unit token, the anchors of a line-item row.
func isProductRow(fields []string) bool {
	if len(fields) < 3 || !grammar.IsProductCode(strings.ToUpper(fields[0])) {
		return false
	}
	for _, f := range fields[1:] {
		if grammar.IsUnit(f) {
			return true
		}
	}
	return false
}

// Recompute sums line totals and builds the VAT breakdown, one entry per rate
// in ascending order. Tax is rounded to cents per rate.
func Recompute(items []domain.LineItem) (subtotal decimal.Decimal, breakdown []domain.VatBreakdownEntry, vatTotal decimal.Decimal) {
	byRate := map[int]decimal.Decimal{}
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
		byRate[it.VatRate] = byRate[it.VatRate].Add(it.LineTotal)
	}

	rates := make([]int, 0, len(byRate))
	for rate := range byRate {
		rates = append(rates, rate)
	}
	sort.Ints(rates)

	for _, rate := range rates {
		taxable := byRate[rate].Round(2)
		tax := taxable.Mul(decimal.NewFromInt(int64(rate))).Div(decimal.NewFromInt(100)).Round(2)
		breakdown = append(breakdown, domain.VatBreakdownEntry{Rate: rate, TaxableAmount: taxable, TaxAmount: tax})
		vatTotal = vatTotal.Add(tax)
	}
	return subtotal.Round(2), breakdown, vatTotal
}

func moneyTokens(s string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, f := range strings.Fields(s) {
		if d, ok := moneyToken(f); ok {
			out = append(out, d)
		}
	}
	return out
}

func moneyToken(f string) (decimal.Decimal, bool) {
	f = strings.Trim(strings.TrimPrefix(f, "€"), ":;")
	if !moneyRe.MatchString(f) {
		return decimal.Zero, false
	}
	return grammar.ParseNumber(f)
}
