package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ddtft/internal/domain"
	"ddtft/internal/locator"
)

// evidence is a weighted textual marker of a document type.
type evidence struct {
	docType domain.DocumentType
	re      *regexp.Regexp
	weight  int
	name    string
}

// Invoices routinely cite the delivery notes they bill ("Rif. DDT n. 12") and
// credit notes cite the invoice they reverse, so the bare words weigh less
// than the titles.
var typeEvidence = []evidence{
	{domain.DocumentTypeDDT, regexp.MustCompile(`(?i)\bDOCUMENTO\s+DI\s+TRASPORTO\b`), 3, "title_documento_di_trasporto"},
	{domain.DocumentTypeDDT, regexp.MustCompile(`(?i)\bD\.?D\.?T\.?\b`), 1, "word_ddt"},
	{domain.DocumentTypeFT, regexp.MustCompile(`(?i)\bFATTURA\b`), 3, "word_fattura"},
	{domain.DocumentTypeFT, regexp.MustCompile(`(?i)\bINVOICE\b`), 2, "word_invoice"},
	{domain.DocumentTypeNC, regexp.MustCompile(`(?i)\bNOTA\s+(?:DI\s+)?CREDITO\b`), 4, "title_nota_di_credito"},
	{domain.DocumentTypeNC, regexp.MustCompile(`(?i)\bCREDIT\s+NOTE\b`), 4, "title_credit_note"},
}

var (
	anchoredPrefixRe = regexp.MustCompile(`(?m)^\s*(FT|NC)\s+\d{1,6}\s+\d{1,2}/\d{1,2}/\d{2,4}\s`)
	fileDDTRe        = regexp.MustCompile(`(?i)(?:^|[^A-Z])(DDV|DDT)(?:[^A-Z]|$)`)
	fileNCRe         = regexp.MustCompile(`(?i)(?:^|[^A-Z])NC(?:[^A-Z]|$)`)
	fileFTRe         = regexp.MustCompile(`(?i)(?:^|[^A-Z])(FTV|FT)(?:[^A-Z]|$)`)
)

// Detection is the outcome of document-type detection.
type Detection struct {
	Type     domain.DocumentType
	Scores   map[domain.DocumentType]int
	Evidence []string
	// TieBrokenByFileName is set when the file name decided between equally
	// scored types.
	TieBrokenByFileName bool
}

// DetectType scores the text for each document type. The file name only
// breaks ties between types that already have text evidence; text without
// any evidence is an unsupported format.
func DetectType(lines []string, fileName string) (Detection, error) {
	text := strings.Join(lines, "\n")
	d := Detection{Scores: map[domain.DocumentType]int{}}

	for _, ev := range typeEvidence {
		if ev.re.MatchString(text) {
			d.Scores[ev.docType] += ev.weight
			d.Evidence = append(d.Evidence, ev.name)
		}
	}
	if m := anchoredPrefixRe.FindStringSubmatch(text); m != nil {
		t := domain.DocumentType(strings.ToUpper(m[1]))
		d.Scores[t] += 3
		d.Evidence = append(d.Evidence, "anchored_line_"+strings.ToLower(m[1]))
	}
	if _, ok := locator.FindHeaderRow(lines); ok {
		d.Scores[domain.DocumentTypeDDT] += 2
		d.Evidence = append(d.Evidence, "header_row")
	}

	best, tied := topScores(d.Scores)
	if best == 0 {
		return d, NewExtractionError(domain.ErrUnsupportedDocumentFormat, "detect",
			fmt.Errorf("no document type evidence in text"))
	}
	if len(tied) == 1 {
		d.Type = tied[0]
		return d, nil
	}

	if hint, ok := typeFromFileName(fileName); ok {
		for _, t := range tied {
			if t == hint {
				d.Type = t
				d.TieBrokenByFileName = true
				return d, nil
			}
		}
	}
	return d, NewExtractionError(domain.ErrUnsupportedDocumentFormat, "detect",
		fmt.Errorf("types %v score equally (%d) and the file name does not decide", tied, best))
}

func topScores(scores map[domain.DocumentType]int) (int, []domain.DocumentType) {
	best := 0
	var tied []domain.DocumentType
	for t, s := range scores {
		switch {
		case s > best:
			best, tied = s, []domain.DocumentType{t}
		case s == best && s > 0:
			tied = append(tied, t)
		}
	}
	sort.Slice(tied, func(i, j int) bool { return tied[i] < tied[j] })
	return best, tied
}

// typeFromFileName reads the DDV/DDT, NC and FTV/FT markers of a file name.
func typeFromFileName(name string) (domain.DocumentType, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	switch {
	case base == "" || base == ".":
		return "", false
	case fileDDTRe.MatchString(base):
		return domain.DocumentTypeDDT, true
	case fileNCRe.MatchString(base):
		return domain.DocumentTypeNC, true
	case fileFTRe.MatchString(base):
		return domain.DocumentTypeFT, true
	default:
		return "", false
	}
}
