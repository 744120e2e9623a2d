package grammar

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// 1.234,56 / 21,70 / 10
	commaDecimalRe = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})*(?:,\d+)?$|^-?\d+(?:,\d+)?$`)
	// 1.000 / 12.500.000
	dotThousandsRe = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+$`)
	// 21.70
	dotDecimalRe = regexp.MustCompile(`^-?\d+\.\d+$`)
)

// ParseNumber parses a number written with Italian separators: comma for
// decimals, dot for thousands. A dot-only token is read as thousands when every
// group after the first has exactly three digits, otherwise as a decimal point.
func ParseNumber(tok string) (decimal.Decimal, bool) {
	tok = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tok), "€"))
	if tok == "" {
		return decimal.Zero, false
	}

	var norm string
	switch {
	case strings.Contains(tok, ","):
		if !commaDecimalRe.MatchString(tok) {
			return decimal.Zero, false
		}
		norm = strings.ReplaceAll(tok, ".", "")
		norm = strings.Replace(norm, ",", ".", 1)
	case dotThousandsRe.MatchString(tok):
		norm = strings.ReplaceAll(tok, ".", "")
	case dotDecimalRe.MatchString(tok):
		norm = tok
	case commaDecimalRe.MatchString(tok):
		norm = tok
	default:
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// IsNumber reports whether tok parses with ParseNumber.
func IsNumber(tok string) bool {
	_, ok := ParseNumber(tok)
	return ok
}

// FormatNumber renders d with the given number of decimals in Italian notation.
func FormatNumber(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// WithinTolerance reports whether |actual - expected| <= ratio * max(|actual|, 1).
func WithinTolerance(actual, expected, ratio decimal.Decimal) bool {
	base := actual.Abs()
	if base.LessThan(decimal.NewFromInt(1)) {
		base = decimal.NewFromInt(1)
	}
	return actual.Sub(expected).Abs().LessThanOrEqual(ratio.Mul(base))
}

// DiscountedTotal computes quantity × price × (1 − discount/100).
func DiscountedTotal(quantity, price, discountPercent decimal.Decimal) decimal.Decimal {
	factor := hundred.Sub(discountPercent).Div(hundred)
	return quantity.Mul(price).Mul(factor)
}
