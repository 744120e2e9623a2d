// Package grammar holds the shared vocabulary of the extraction engine:
// measurement units, VAT rates, the Italian number and date grammar, street
// keywords, postal codes, provinces and the issuer profile. It is pure data
// and rules; nothing here keeps state between calls.
package grammar

import (
	"regexp"
	"strconv"
	"strings"
)

// Units are the measurement-unit tokens that anchor a product row.
var Units = []string{"PZ", "KG", "LT", "MT", "CF", "CT", "GR", "ML"}

var unitSet = func() map[string]bool {
	m := make(map[string]bool, len(Units))
	for _, u := range Units {
		m[u] = true
	}
	return m
}()

// IsUnit reports whether tok is a known measurement unit.
func IsUnit(tok string) bool {
	return unitSet[strings.ToUpper(tok)]
}

// VatRates are the admissible VAT percentages.
var VatRates = []int{4, 10, 22}

// IsVatRate reports whether rate is one of VatRates.
func IsVatRate(rate int) bool {
	for _, r := range VatRates {
		if r == rate {
			return true
		}
	}
	return false
}

var vatTokenRe = regexp.MustCompile(`^\d{1,2}$`)

// ParseVatToken parses a trailing VAT column value ("04", "4", "10", "22").
func ParseVatToken(tok string) (int, bool) {
	if !vatTokenRe.MatchString(tok) {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil || !IsVatRate(n) {
		return 0, false
	}
	return n, true
}

// productCodeRe matches an alphanumeric code that contains at least one digit,
// with optional leading letters (070017, DL000301, PIRR002).
var productCodeRe = regexp.MustCompile(`^[A-Z]*[0-9][A-Z0-9]*$`)

// IsProductCode reports whether tok is shaped like a product code.
func IsProductCode(tok string) bool {
	if len(tok) < 6 || len(tok) > 9 {
		return false
	}
	return productCodeRe.MatchString(tok)
}
