package grammar

import (
	"regexp"
	"strconv"
	"strings"
)

// StreetKeywords are street-type and locality tokens that open an address line.
var StreetKeywords = []string{
	"VIA", "V.LE", "VIALE", "CORSO", "C.SO", "PIAZZA", "P.ZA", "P.ZZA",
	"STRADA", "STR.", "LOC.", "LOCALITA", "LOCALITÀ", "FRAZ.", "FRAZIONE",
	"LARGO", "VICOLO", "BORGO",
}

var streetKeywordSet = func() map[string]bool {
	m := make(map[string]bool, len(StreetKeywords))
	for _, k := range StreetKeywords {
		m[k] = true
	}
	return m
}()

// IsStreetKeyword reports whether tok (already upper-cased) is a street keyword.
// A trailing comma is ignored.
func IsStreetKeyword(tok string) bool {
	return streetKeywordSet[strings.TrimSuffix(tok, ",")]
}

// StartsWithStreetKeyword reports whether the first token of line is a street keyword.
func StartsWithStreetKeyword(line string) bool {
	fields := strings.Fields(strings.ToUpper(line))
	return len(fields) > 0 && IsStreetKeyword(fields[0])
}

var (
	capTokenRe = regexp.MustCompile(`^\d{5}$`)
	// CityLineRe splits "12038 SAVIGLIANO CN" and "12100 - CUNEO CN".
	CityLineRe = regexp.MustCompile(`^(\d{5})\s*-?\s*([A-Z][A-Z' .]*?)(?:\s+\(?([A-Z]{2})\)?)?$`)
)

// IsCAPToken reports whether tok is shaped like a five-digit postal code.
func IsCAPToken(tok string) bool {
	return capTokenRe.MatchString(tok)
}

// ValidCAP reports whether cap is a five-digit code in the Italian range.
func ValidCAP(cap string) bool {
	if !IsCAPToken(cap) {
		return false
	}
	n, err := strconv.Atoi(cap)
	if err != nil {
		return false
	}
	return n >= 10000 && n <= 98999
}

// Provinces is the fixed set of Italian province codes, including the
// Sardinian codes still printed on older documents.
var Provinces = map[string]bool{
	"AG": true, "AL": true, "AN": true, "AO": true, "AP": true, "AQ": true, "AR": true, "AT": true,
	"AV": true, "BA": true, "BG": true, "BI": true, "BL": true, "BN": true, "BO": true, "BR": true,
	"BS": true, "BT": true, "BZ": true, "CA": true, "CB": true, "CE": true, "CH": true, "CI": true,
	"CL": true, "CN": true, "CO": true, "CR": true, "CS": true, "CT": true, "CZ": true, "EN": true,
	"FC": true, "FE": true, "FG": true, "FI": true, "FM": true, "FR": true, "GE": true, "GO": true,
	"GR": true, "IM": true, "IS": true, "KR": true, "LC": true, "LE": true, "LI": true, "LO": true,
	"LT": true, "LU": true, "MB": true, "MC": true, "ME": true, "MI": true, "MN": true, "MO": true,
	"MS": true, "MT": true, "NA": true, "NO": true, "NU": true, "OG": true, "OR": true, "OT": true,
	"PA": true, "PC": true, "PD": true, "PE": true, "PG": true, "PI": true, "PN": true, "PO": true,
	"PR": true, "PT": true, "PU": true, "PV": true, "PZ": true, "RA": true, "RC": true, "RE": true,
	"RG": true, "RI": true, "RM": true, "RN": true, "RO": true, "SA": true, "SI": true, "SO": true,
	"SP": true, "SR": true, "SS": true, "SU": true, "SV": true, "TA": true, "TE": true, "TN": true,
	"TO": true, "TP": true, "TR": true, "TS": true, "TV": true, "UD": true, "VA": true, "VB": true,
	"VC": true, "VE": true, "VI": true, "VR": true, "VS": true, "VT": true, "VV": true,
}

// IsProvince reports whether code is a valid province code.
func IsProvince(code string) bool {
	return Provinces[strings.ToUpper(code)]
}
