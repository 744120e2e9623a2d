package locator

import (
	"strings"
	"unicode"

	"ddtft/internal/grammar"
	"ddtft/internal/layout"
)

// maxNameLines bounds how many lines a company name may span.
const maxNameLines = 3

// ShipToName returns the client name written directly after a ship-to label
// ("Spett.le", "Ship To", "Destinatario"), either on the label line or on the
// next non-empty line.
func (l *Locator) ShipToName(lines []string, hints [][]layout.Fragment) (string, bool) {
	for i, line := range lines {
		up := strings.ToUpper(line)
		for _, label := range l.profile.ShipToLabels {
			_, after, ok := strings.Cut(up, label)
			if !ok {
				continue
			}
			after = strings.TrimSpace(strings.TrimLeft(after, ":. "))
			if after == "" {
				next := nextNonEmpty(lines, i+1, 1)
				if len(next) == 0 {
					continue
				}
				after = strings.TrimSpace(lines[next[0]])
				if s, err := l.layout.Split(after, hintsAt(hints, next[0])); err == nil && s != nil && s.Left == s.Right {
					after = s.Left
				}
			}
			if l.plausibleName(after) {
				return normalizeName(after), true
			}
		}
	}
	return "", false
}

// AttentionName reads the company name that follows an attention/disclaimer
// paragraph: starting after the paragraph, non-address lines are collected
// until a street or postal-code line and joined.
func (l *Locator) AttentionName(lines []string) (string, bool) {
	start := -1
	for i, line := range lines {
		up := strings.ToUpper(line)
		for _, m := range l.profile.AttentionMarkers {
			if strings.Contains(up, m) {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return "", false
	}

	i := start + 1
	for i < len(lines) && isProse(lines[i]) {
		i++
	}

	var parts []string
	for ; i < len(lines) && len(parts) < maxNameLines; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if len(parts) > 0 {
				break
			}
			continue
		}
		if grammar.StartsWithStreetKeyword(line) || IsCityLine(line) || hasCAPToken(line) {
			break
		}
		if l.profile.MentionsIssuer(line) {
			break
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return "", false
	}
	name := normalizeName(strings.Join(parts, " "))
	return name, l.plausibleName(name)
}

func (l *Locator) plausibleName(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	if grammar.StartsWithStreetKeyword(s) || IsCityLine(s) || l.profile.MentionsIssuer(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// isProse reports whether a line reads as running text (boilerplate) rather
// than an upper-case name or address.
func isProse(line string) bool {
	lower := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			lower++
		}
	}
	return lower >= 3
}

func hasCAPToken(line string) bool {
	for _, f := range strings.Fields(line) {
		if grammar.ValidCAP(strings.Trim(f, ",.-")) {
			return true
		}
	}
	return false
}
