package locator

import (
	"fmt"
	"regexp"
	"strings"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
	"ddtft/internal/layout"
)

var (
	streetCommaRe   = regexp.MustCompile(`^(.+?),\s*(\d+[A-Z]?(?:/[A-Z0-9]+)?)(?:[,\s]+(.+))?$`)
	streetTrailNoRe = regexp.MustCompile(`^(.+?)\s+(\d+[A-Z]?(?:/[A-Z0-9]+)?)$`)
	streetInnerNoRe = regexp.MustCompile(`^(.+?)\s+(\d+[A-Z]?(?:/[A-Z0-9]+)?)\s+(.+)$`)
)

// ParseStreet splits a street line into street name, street number and any
// trailing additional information such as a locality.
func ParseStreet(line string) (street, number, additional string) {
	line = strings.ToUpper(strings.Join(strings.Fields(line), " "))
	if line == "" {
		return "", "", ""
	}
	if m := streetCommaRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3]
	}
	if m := streetTrailNoRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2], ""
	}
	if m := streetInnerNoRe.FindStringSubmatch(line); m != nil && grammar.StartsWithStreetKeyword(m[3]) {
		return m[1], m[2], m[3]
	}
	return line, "", ""
}

// ParseCityLine splits "12038 SAVIGLIANO CN" into postal code, city and
// province. A trailing two-letter token that is not a province stays part of
// the city name.
func ParseCityLine(line string) (postalCode, city, province string, ok bool) {
	line = strings.ToUpper(strings.Join(strings.Fields(line), " "))
	m := grammar.CityLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", "", false
	}
	postalCode, city, province = m[1], strings.TrimSpace(m[2]), m[3]
	if province != "" && !grammar.IsProvince(province) {
		city = strings.TrimSpace(city + " " + province)
		province = ""
	}
	if !grammar.ValidCAP(postalCode) {
		return "", "", "", false
	}
	return postalCode, city, province, true
}

// IsCityLine reports whether line parses as a postal-code line.
func IsCityLine(line string) bool {
	_, _, _, ok := ParseCityLine(line)
	return ok
}

// BuildAddress assembles an address block from its street lines and city
// line. Blocks missing street, postal code or province are flagged as low
// confidence and their confidence halved.
func BuildAddress(streetLines []string, cityLine string, method domain.AddressMethod) *domain.AddressBlock {
	a := &domain.AddressBlock{Method: method, Confidence: domain.AddressConfidence[method]}
	if len(streetLines) > 0 {
		a.Street, a.StreetNumber, a.AdditionalInfo = ParseStreet(streetLines[0])
		for _, extra := range streetLines[1:] {
			extra = strings.ToUpper(strings.Join(strings.Fields(extra), " "))
			a.AdditionalInfo = strings.TrimSpace(a.AdditionalInfo + " " + extra)
		}
	}
	if pc, city, prov, ok := ParseCityLine(cityLine); ok {
		a.PostalCode, a.City, a.Province = pc, city, prov
	}
	if !a.Complete() {
		a.LowConfidence = true
		a.Confidence /= 2
	}
	return a
}

// ColumnBlock is the outcome of reading the client block below a header row.
type ColumnBlock struct {
	ClientName    string
	NameConfirmed bool
	Billing       *domain.AddressBlock
	Delivery      *domain.AddressBlock
	Diagnostics   []domain.Diagnostic
}

// maxBlockLines bounds how far below the header row the client block may extend.
const maxBlockLines = 5

// HeaderColumns reads the name, street and city lines following the header
// row. Right-hand segments form the delivery address and left-hand segments
// the billing address. A name line whose halves are identical confirms the
// column boundary and is collapsed to one value.
func (l *Locator) HeaderColumns(lines []string, hints [][]layout.Fragment, header HeaderRow) (ColumnBlock, bool) {
	const strategy = "address.header_columns"
	var out ColumnBlock

	block := nextNonEmpty(lines, header.Index+1, maxBlockLines)
	if len(block) < 2 {
		return out, false
	}

	var leftStreets, rightStreets []string
	var leftCity, rightCity string
	splitAll, nameSeen := true, false

	for _, idx := range block {
		line := strings.TrimSpace(lines[idx])
		if l.isShipToLabel(line) {
			continue
		}
		split, err := l.layout.Split(line, hintsAt(hints, idx))
		if err != nil {
			out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
				Kind: domain.DiagnosticLayoutAmbiguous, Field: "delivery_address", Strategy: strategy,
				Message: fmt.Sprintf("line %d: %v", idx+1, err),
			})
		}

		if !nameSeen {
			nameSeen = true
			if split == nil {
				out.ClientName = normalizeName(line)
				continue
			}
			out.ClientName = normalizeName(split.Left)
			out.NameConfirmed = split.Left == split.Right
			continue
		}

		if split == nil {
			splitAll = false
			if IsCityLine(line) {
				leftCity = line
				break
			}
			leftStreets = append(leftStreets, line)
			continue
		}

		if IsCityLine(split.Left) || IsCityLine(split.Right) {
			leftCity, rightCity = split.Left, split.Right
			break
		}
		leftStreets = append(leftStreets, split.Left)
		rightStreets = append(rightStreets, split.Right)
	}

	if len(leftStreets) == 0 && leftCity == "" {
		return out, false
	}

	method := domain.AddressMethodHeaderColumns
	if out.NameConfirmed {
		method = domain.AddressMethodHeaderConfirmed
	}
	out.Billing = BuildAddress(leftStreets, leftCity, method)

	if splitAll && (len(rightStreets) > 0 || rightCity != "") {
		delivery := BuildAddress(rightStreets, rightCity, method)
		if reason := l.rejectReason(delivery.String()); reason != "" {
			out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
				Kind: domain.DiagnosticPatternNotFound, Field: "delivery_address", Strategy: strategy,
				Message: "right column rejected: " + reason, Actual: delivery.String(),
			})
		} else {
			out.Delivery = delivery
		}
	}
	return out, true
}

// DualColumnScan looks anywhere in the text for a street line that splits
// into two street segments followed by a city line that splits into two
// postal-code segments, and returns the right-hand address.
func (l *Locator) DualColumnScan(lines []string, hints [][]layout.Fragment) (*domain.AddressBlock, bool) {
	for i := 0; i < len(lines); i++ {
		street, err := l.layout.Split(lines[i], hintsAt(hints, i))
		if err != nil || street == nil {
			continue
		}
		if !grammar.StartsWithStreetKeyword(street.Left) || !grammar.StartsWithStreetKeyword(street.Right) {
			continue
		}
		for _, j := range nextNonEmpty(lines, i+1, 2) {
			city, err := l.layout.Split(lines[j], hintsAt(hints, j))
			if err != nil || city == nil || !IsCityLine(city.Left) || !IsCityLine(city.Right) {
				continue
			}
			a := BuildAddress([]string{street.Right}, city.Right, domain.AddressMethodDualColumn)
			if l.rejectReason(a.String()) != "" {
				break
			}
			return a, true
		}
	}
	return nil, false
}

// MarkerAddress reads the address following an explicit delivery label such
// as "Luogo di consegna".
func (l *Locator) MarkerAddress(lines []string) (*domain.AddressBlock, bool) {
	for i, line := range lines {
		up := strings.ToUpper(line)
		marker := ""
		for _, m := range l.profile.DeliveryMarkers {
			if strings.Contains(up, m) {
				marker = m
				break
			}
		}
		if marker == "" {
			continue
		}

		var candidates []string
		if _, after, ok := strings.Cut(up, marker); ok {
			if after = strings.TrimSpace(strings.TrimLeft(after, ": ")); after != "" {
				candidates = append(candidates, after)
			}
		}
		for _, j := range nextNonEmpty(lines, i+1, 4) {
			candidates = append(candidates, strings.TrimSpace(lines[j]))
		}

		var streets []string
		city := ""
		for _, c := range candidates {
			if IsCityLine(c) {
				city = c
				break
			}
			if grammar.StartsWithStreetKeyword(c) || len(streets) > 0 {
				streets = append(streets, c)
			}
		}
		if len(streets) == 0 || city == "" {
			continue
		}
		a := BuildAddress(streets, city, domain.AddressMethodMarker)
		if l.rejectReason(a.String()) != "" {
			continue
		}
		return a, true
	}
	return nil, false
}

// isShipToLabel reports whether line holds nothing but a ship-to label.
func (l *Locator) isShipToLabel(line string) bool {
	bare := strings.Trim(strings.ToUpper(line), ":. ")
	for _, label := range l.profile.ShipToLabels {
		if bare == strings.Trim(label, ":. ") {
			return true
		}
	}
	return false
}

// rejectReason explains why an address belongs to a carrier or to the issuer.
func (l *Locator) rejectReason(text string) string {
	switch {
	case l.profile.MentionsCarrier(text):
		return "carrier address"
	case l.profile.MentionsIssuer(text):
		return "issuer address"
	default:
		return ""
	}
}

func nextNonEmpty(lines []string, from, n int) []int {
	var out []int
	for i := from; i < len(lines) && len(out) < n; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			out = append(out, i)
		}
	}
	return out
}

func hintsAt(hints [][]layout.Fragment, i int) []layout.Fragment {
	if i < 0 || i >= len(hints) {
		return nil
	}
	return hints[i]
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
