// Package lineitem tokenizes product rows. The unit token anchors each row;
// the numeric tail is interpreted by arithmetic validation rather than by a
// fixed column count, which is what tells the discount layout apart from the
// plain one.
package lineitem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
)

const (
	Layout7Field = "7-field"
	Layout8Field = "8-field"
	LayoutGift   = "gift"

	// Strategy and ConfirmStrategy name the rules recorded on line-item diagnostics.
	Strategy        = "lineitem.validated_total"
	ConfirmStrategy = "lineitem.quantity_confirmation"

	giftMarker = "*"
)

// Options tunes row validation.
type Options struct {
	ToleranceRatio           decimal.Decimal
	QuantityConfirmThreshold decimal.Decimal
}

// DefaultOptions returns a 1% tolerance and a 200-unit confirmation threshold.
func DefaultOptions() Options {
	return Options{
		ToleranceRatio:           decimal.NewFromFloat(0.01),
		QuantityConfirmThreshold: decimal.NewFromInt(200),
	}
}

// Parser turns product rows into line items.
type Parser struct {
	profile *grammar.Profile
	opts    Options
}

// New creates a Parser. Zero option values fall back to the defaults.
func New(profile *grammar.Profile, opts Options) *Parser {
	def := DefaultOptions()
	if opts.ToleranceRatio.IsZero() {
		opts.ToleranceRatio = def.ToleranceRatio
	}
	if opts.QuantityConfirmThreshold.IsZero() {
		opts.QuantityConfirmThreshold = def.QuantityConfirmThreshold
	}
	if profile == nil {
		profile = grammar.DefaultProfile()
	}
	return &Parser{profile: profile, opts: opts}
}

// Row is a parsed product row. Note is set when the quantity had to be
// re-derived by the confirmation pass.
type Row struct {
	Item domain.LineItem
	Note *domain.Diagnostic
}

// RowError explains why an anchored product row was rejected.
type RowError struct {
	Line   string
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line item %q: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }

// Parse scans every line and returns the accepted items in document order,
// with a diagnostic for each rejected or corrected row.
func (p *Parser) Parse(lines []string) ([]domain.LineItem, []domain.Diagnostic) {
	var items []domain.LineItem
	var diags []domain.Diagnostic
	for _, line := range lines {
		if p.profile.IsSectionEnd(line) {
			continue
		}
		row, err := p.ParseRow(line)
		if err != nil {
			diags = append(diags, rowDiagnostic(err))
			continue
		}
		if row == nil {
			continue
		}
		items = append(items, row.Item)
		if row.Note != nil {
			diags = append(diags, *row.Note)
		}
	}
	return items, diags
}

// ParseRow parses a single line. It returns (nil, nil) when the line is not a
// product row and a *RowError when the row is anchored but no interpretation
// of its numeric fields validates.
func (p *Parser) ParseRow(line string) (*Row, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 || !grammar.IsProductCode(strings.ToUpper(fields[0])) {
		return nil, nil
	}
	u := unitIndex(fields)
	if u < 0 {
		return nil, nil
	}

	tail := fields[u+1:]
	gift := len(tail) > 1 && tail[1] == giftMarker

	var tokens []string
	for i, tok := range tail {
		if tok == giftMarker {
			if i != 1 {
				return nil, p.reject(line, "misplaced free-of-charge marker", domain.ErrLayoutAmbiguous)
			}
			continue
		}
		tokens = append(tokens, tok)
	}

	base := domain.LineItem{
		Code:        strings.ToUpper(fields[0]),
		Description: strings.Join(fields[1:u], " "),
		Unit:        strings.ToUpper(fields[u]),
	}

	var lastErr error
	for _, vatAt := range vatPositions(tokens) {
		rate, _ := grammar.ParseVatToken(tokens[vatAt])
		nums, ok := parseAll(tokens[:vatAt])
		if !ok || len(nums) < 3 {
			lastErr = p.reject(line, "too few numeric fields before the VAT column", domain.ErrLayoutAmbiguous)
			continue
		}
		item := base
		item.VatRate = rate
		row, err := p.interpret(line, item, nums, gift)
		if err == nil {
			return row, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = p.reject(line, "no VAT rate column", domain.ErrLayoutAmbiguous)
	}
	return nil, lastErr
}

// interpret assigns quantity, price, discount and total from nums. A leading
// quantity above the confirmation threshold is never accepted on its own.
func (p *Parser) interpret(line string, item domain.LineItem, nums []decimal.Decimal, gift bool) (*Row, error) {
	f, ok := p.selectTotal(nums, gift)
	if nums[0].GreaterThan(p.opts.QuantityConfirmThreshold) {
		return p.confirmQuantity(line, item, nums, f, ok, gift)
	}
	if !ok {
		return nil, p.reject(line, "no total candidate matches quantity × price", domain.ErrLayoutAmbiguous)
	}
	return &Row{Item: f.apply(item, gift)}, nil
}

// fit is one validated reading of a row's numeric fields.
type fit struct {
	quantity  decimal.Decimal
	price     decimal.Decimal
	discount  decimal.Decimal
	total     decimal.Decimal
	deviation decimal.Decimal
	layout    string
	// totalAt is the index of the total among the row's numeric fields.
	totalAt int
}

func (f fit) apply(item domain.LineItem, gift bool) domain.LineItem {
	item.Quantity = f.quantity
	item.UnitPrice = f.price
	item.DiscountPercent = f.discount
	item.LineTotal = f.total
	item.Layout = f.layout
	if gift {
		item.Gift = true
		item.GrossTotal = f.total
		item.DiscountPercent = decimal.NewFromInt(100)
		item.LineTotal = decimal.Zero
	}
	return item
}

// selectTotal treats nums[0] as quantity and nums[1] as price, then tries every
// later value as the total, either undiscounted or discounted by a single value
// positioned between price and total. The total column is the last amount
// before VAT, so the validating reading whose total sits furthest right wins.
// Among readings of the same total the closest wins, ties keeping the
// undiscounted one.
func (p *Parser) selectTotal(nums []decimal.Decimal, gift bool) (fit, bool) {
	if len(nums) < 3 {
		return fit{}, false
	}
	qty, price := nums[0], nums[1]
	if qty.IsNegative() || price.IsNegative() {
		return fit{}, false
	}

	var best fit
	found := false
	consider := func(f fit) {
		switch {
		case !found, f.totalAt > best.totalAt:
		case f.totalAt == best.totalAt && f.deviation.LessThan(best.deviation):
		default:
			return
		}
		best, found = f, true
	}

	for t := 2; t < len(nums); t++ {
		total := nums[t]
		expected := qty.Mul(price)
		if grammar.WithinTolerance(total, expected, p.opts.ToleranceRatio) {
			layout := Layout7Field
			if gift {
				layout = LayoutGift
			}
			consider(fit{quantity: qty, price: price, discount: decimal.Zero, total: total,
				deviation: total.Sub(expected).Abs(), layout: layout, totalAt: t})
		}
		if gift {
			continue
		}
		for d := 2; d < t; d++ {
			disc := nums[d]
			if disc.IsNegative() || disc.GreaterThan(decimal.NewFromInt(100)) {
				continue
			}
			expected := grammar.DiscountedTotal(qty, price, disc)
			if grammar.WithinTolerance(total, expected, p.opts.ToleranceRatio) {
				consider(fit{quantity: qty, price: price, discount: disc, total: total,
					deviation: total.Sub(expected).Abs(), layout: Layout8Field, totalAt: t})
			}
		}
	}
	return best, found
}

// confirmQuantity handles quantities above the threshold by reading the row a
// second time with the next field as the quantity. When that
// reading also validates with a plausible quantity the two disagree and the
// smaller quantity is kept with a ValidationMismatch note. A zero net price
// confirms nothing.
func (p *Parser) confirmQuantity(line string, item domain.LineItem, nums []decimal.Decimal, f fit, validated, gift bool) (*Row, error) {
	if validated && grammar.DiscountedTotal(decimal.NewFromInt(1), f.price, f.discount).IsZero() {
		return nil, p.reject(line, fmt.Sprintf("quantity %s cannot be confirmed with a zero net price", f.quantity),
			domain.ErrValidationMismatch)
	}

	alt, ok := p.selectTotal(nums[1:], gift)
	ok = ok && alt.quantity.IsPositive() && !alt.quantity.GreaterThan(p.opts.QuantityConfirmThreshold)
	switch {
	case !ok && validated:
		return &Row{Item: f.apply(item, gift)}, nil
	case !ok:
		return nil, p.reject(line, "no total candidate matches quantity × price", domain.ErrLayoutAmbiguous)
	}

	reason := "it does not validate"
	if validated {
		reason = fmt.Sprintf("competing reading %s × %s = %s", f.quantity, f.price, f.total)
	}
	note := &domain.Diagnostic{
		Kind:     domain.DiagnosticValidationMismatch,
		Field:    "line_items.quantity",
		Strategy: ConfirmStrategy,
		Message: fmt.Sprintf("%s: quantity %s discarded (%s), next field reading validates %s × %s = %s",
			item.Code, nums[0], reason, alt.quantity, alt.price, alt.total),
		Expected: alt.quantity.String(),
		Actual:   nums[0].String(),
	}
	return &Row{Item: alt.apply(item, gift), Note: note}, nil
}

func (p *Parser) reject(line, reason string, err error) error {
	return &RowError{Line: strings.TrimSpace(line), Reason: reason, Err: err}
}

// unitIndex returns the last unit token whose following tokens are all
// numeric or the free-of-charge marker.
func unitIndex(fields []string) int {
	for i := len(fields) - 2; i >= 1; i-- {
		if !grammar.IsUnit(fields[i]) {
			continue
		}
		for _, tok := range fields[i+1:] {
			if tok != giftMarker && !grammar.IsNumber(tok) {
				return -1
			}
		}
		return i
	}
	return -1
}

// vatPositions lists where the VAT column may sit. When the row ends in two
// plain two-digit values the second-to-last is tried first, since the last
// one is then the SM column.
func vatPositions(tokens []string) []int {
	n := len(tokens)
	var out []int
	if n >= 2 && isTwoDigit(tokens[n-1]) && isTwoDigit(tokens[n-2]) {
		if _, ok := grammar.ParseVatToken(tokens[n-2]); ok {
			out = append(out, n-2)
		}
	}
	if n >= 1 {
		if _, ok := grammar.ParseVatToken(tokens[n-1]); ok {
			out = append(out, n-1)
		}
	}
	return out
}

func isTwoDigit(tok string) bool {
	return len(tok) == 2 && tok[0] >= '0' && tok[0] <= '9' && tok[1] >= '0' && tok[1] <= '9'
}

func parseAll(tokens []string) ([]decimal.Decimal, bool) {
	out := make([]decimal.Decimal, 0, len(tokens))
	for _, tok := range tokens {
		d, ok := grammar.ParseNumber(tok)
		if !ok {
			return nil, false
		}
		out = append(out, d)
	}
	return out, true
}

func rowDiagnostic(err error) domain.Diagnostic {
	d := domain.Diagnostic{
		Kind:     domain.DiagnosticLayoutAmbiguous,
		Field:    "line_items",
		Strategy: Strategy,
		Message:  err.Error(),
	}
	var re *RowError
	if errors.As(err, &re) {
		d.Actual = re.Line
	}
	if errors.Is(err, domain.ErrValidationMismatch) {
		d.Kind = domain.DiagnosticValidationMismatch
		d.Strategy = ConfirmStrategy
	}
	return d
}
