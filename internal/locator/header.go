// Package locator finds header fields, client names and address blocks in
// the lines of a document. Every exported finder is a pure function of its
// inputs and reports whether it found anything.
package locator

import (
	"regexp"
	"strings"

	"ddtft/internal/grammar"
	"ddtft/internal/layout"
)

// Locator bundles the issuer profile and the layout reconstructor used by the finders.
type Locator struct {
	profile *grammar.Profile
	layout  *layout.Reconstructor
}

// New creates a Locator.
func New(profile *grammar.Profile, rec *layout.Reconstructor) *Locator {
	if profile == nil {
		profile = grammar.DefaultProfile()
	}
	if rec == nil {
		rec = layout.New(layout.DefaultOptions())
	}
	return &Locator{profile: profile, layout: rec}
}

// HeaderRow is the canonical "number date page client-code" row that opens
// the client block of a delivery note.
type HeaderRow struct {
	Index      int
	Number     string
	Date       string
	Page       string
	ClientCode string
}

// AnchoredLine is the single invoice line carrying number, date, time, client
// code and the VAT id pair.
type AnchoredLine struct {
	Index      int
	Number     string
	Date       string
	Time       string
	ClientCode string
	VatID      string
}

var (
	headerRowRe = regexp.MustCompile(`^(\d{1,6})\s+(\d{1,2}/\d{1,2}/\d{2,4})\s+(\d{1,3})\s+(\d{4,6})$`)
	anchoredRe  = regexp.MustCompile(`(?:^|\s)(?:(?:FT|NC)\s+)?(\d{1,6})\s+(\d{1,2}/\d{1,2}/\d{2,4})\s+(\d{1,2}[:.]\d{2}(?:[:.]\d{2})?)\s+(\d{4,5})\s+(\d{11})\s+(\d{11})\s*$`)

	numberRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:DDT|D\.D\.T\.|FATTURA|NOTA\s+DI\s+CREDITO|NOTA\s+CREDITO)\s+N(?:R|UM|°|\.|O)?\.?\s*[:]?\s*(\d{1,8})\b`),
		regexp.MustCompile(`(?i)\bNUMERO(?:\s+DOC(?:UMENTO)?\.?)?\s*[:]?\s*(\d{1,8})\b`),
		regexp.MustCompile(`(?i)\bN(?:R|°|\.)\s*DOC(?:UMENTO)?\.?\s*[:]?\s*(\d{1,8})\b`),
	}
	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bDATA(?:\s+DOC(?:UMENTO)?\.?)?\s*[:]?\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})\b`),
		regexp.MustCompile(`(?i)\bDEL\s+(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})\b`),
	}
	clientCodeRe = regexp.MustCompile(`(?i)\bCOD(?:ICE)?\.?\s*CLI(?:ENTE)?\.?\s*[:]?\s*(\d{3,6})\b`)
	labeledVatRe = regexp.MustCompile(`(?i)P(?:ARTITA)?\.?\s*IVA[:\s]*(\d{11})`)
	bareVatRe    = regexp.MustCompile(`\b(\d{11})\b`)
	orderRefRes  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)RIF(?:ERIMENTO)?\.?\s*ORDINE\s*(?:N[°.]?\s*)?[:\s]\s*(\S+)`),
		regexp.MustCompile(`(?i)ORDINE\s*N[°.]?\s*(\S+)`),
		regexp.MustCompile(`(?i)\bODV[:\s]*(\S+)`),
	}
	fileNumberRe = regexp.MustCompile(`(?i)FTV_\d+_\d+_(\d+)_(\d+)`)
	fileDateRe   = regexp.MustCompile(`(?i)_(\d{1,2})(\d{2})(\d{4})\.PDF$`)
)

// FindHeaderRow returns the first line matching the header-row grammar.
func FindHeaderRow(lines []string) (HeaderRow, bool) {
	for i, line := range lines {
		m := headerRowRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		return HeaderRow{Index: i, Number: m[1], Date: m[2], Page: m[3], ClientCode: m[4]}, true
	}
	return HeaderRow{}, false
}

// FindAnchoredLine returns the first invoice multi-field line. Of the VAT id
// pair, the first one that does not belong to the issuer is taken.
func (l *Locator) FindAnchoredLine(lines []string) (AnchoredLine, bool) {
	for i, line := range lines {
		m := anchoredRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		vat := m[5]
		if l.profile.IsIssuerVatID(vat) {
			vat = m[6]
		}
		if l.profile.IsIssuerVatID(vat) {
			vat = ""
		}
		return AnchoredLine{Index: i, Number: m[1], Date: m[2], Time: m[3], ClientCode: m[4], VatID: vat}, true
	}
	return AnchoredLine{}, false
}

// LabeledNumber finds a document number introduced by a label.
func LabeledNumber(text string) (string, bool) {
	return firstSubmatch(numberRes, text)
}

// LabeledDate finds a labeled date and returns it in ISO form.
func LabeledDate(text string) (string, bool) {
	raw, ok := firstSubmatch(dateRes, text)
	if !ok {
		return "", false
	}
	return grammar.ParseDate(raw)
}

// LabeledClientCode finds a "Cod. Cli." value that is not a placeholder code.
func (l *Locator) LabeledClientCode(text string) (string, bool) {
	for _, m := range clientCodeRe.FindAllStringSubmatch(text, -1) {
		if !l.profile.IsExcludedClientCode(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// LabeledVatID finds the first "P.IVA" value that is not the issuer's.
func (l *Locator) LabeledVatID(text string) (string, bool) {
	for _, m := range labeledVatRe.FindAllStringSubmatch(text, -1) {
		if !l.profile.IsIssuerVatID(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// BareVatID finds the first free-standing eleven-digit number that is not the issuer's.
func (l *Locator) BareVatID(text string) (string, bool) {
	for _, m := range bareVatRe.FindAllStringSubmatch(text, -1) {
		if !l.profile.IsIssuerVatID(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// ChecksumVatID finds the first non-issuer VAT id whose control digit is valid,
// preferring labeled candidates.
func (l *Locator) ChecksumVatID(text string) (string, bool) {
	var candidates []string
	for _, m := range labeledVatRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	for _, m := range bareVatRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	for _, c := range candidates {
		if !l.profile.IsIssuerVatID(c) && grammar.ValidVatID(c) {
			return c, true
		}
	}
	return "", false
}

// OrderReference finds the customer order reference.
func OrderReference(text string) (string, bool) {
	ref, ok := firstSubmatch(orderRefRes, text)
	if !ok {
		return "", false
	}
	ref = strings.Trim(ref, ".,;:")
	return ref, ref != ""
}

// NumberFromFileName extracts the invoice number embedded in file names of
// the form FTV_<batch>_<year>_<client>_<number>_<ddmmyyyy>.PDF.
func NumberFromFileName(name string) (string, bool) {
	m := fileNumberRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	if n := strings.TrimLeft(m[2], "0"); n != "" {
		return n, true
	}
	return m[2], true
}

// ClientCodeFromFileName extracts the client code from the same FTV_ naming
// scheme. Placeholder codes are ignored.
func (l *Locator) ClientCodeFromFileName(name string) (string, bool) {
	m := fileNumberRe.FindStringSubmatch(name)
	if m == nil || l.profile.IsExcludedClientCode(m[1]) {
		return "", false
	}
	return m[1], true
}

// DateFromFileName extracts a ddmmyyyy date suffix from a PDF file name.
func DateFromFileName(name string) (string, bool) {
	m := fileDateRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return grammar.DateFromParts(m[1], m[2], m[3])
}

func firstSubmatch(res []*regexp.Regexp, text string) (string, bool) {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
