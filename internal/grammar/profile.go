package grammar

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the issuer-specific vocabulary. The defaults describe the
// documents of the issuing company the engine was built for; a YAML file can
// replace any list.
type Profile struct {
	IssuerVatIDs         []string `yaml:"issuer_vat_ids"`
	IssuerAddressMarkers []string `yaml:"issuer_address_markers"`
	ExcludedClientCodes  []string `yaml:"excluded_client_codes"`
	CarrierKeywords      []string `yaml:"carrier_keywords"`
	DeliveryMarkers      []string `yaml:"delivery_markers"`
	ShipToLabels         []string `yaml:"ship_to_labels"`
	AttentionMarkers     []string `yaml:"attention_markers"`
	SectionEndKeywords   []string `yaml:"section_end_keywords"`
	CompanyForms         []string `yaml:"company_forms"`
	GrandTotalLabels     []string `yaml:"grand_total_labels"`
}

// DefaultProfile returns a fresh copy of the built-in profile.
func DefaultProfile() *Profile {
	return &Profile{
		IssuerVatIDs:         []string{"03247720042"},
		IssuerAddressMarkers: []string{"MAGLIANO ALFIERI"},
		ExcludedClientCodes:  []string{"20001"},
		CarrierKeywords: []string{
			"SAFIM", "S.A.F.I.M", "SUPEJA", "GALLINO", "NONE TO", "AUTOTRASPORTI", "TRASPORTI",
			"CORRIERE", "DHL", "TNT", "BARTOLINI", "GLS", "SDA", "BRT", "FEDEX", "UPS",
		},
		DeliveryMarkers: []string{
			"LUOGO DI CONSEGNA", "CONSEGNA PRESSO", "INDIRIZZO DI CONSEGNA", "INDIRIZZO CONSEGNA",
			"DESTINAZIONE MERCE", "PUNTO DI CONSEGNA", "RECAPITO CONSEGNA",
		},
		ShipToLabels:       []string{"SPETT.LE", "SHIP TO", "DESTINATARIO"},
		AttentionMarkers:   []string{"ATTENZIONE"},
		SectionEndKeywords: []string{"TOTALE", "IMPONIBILE", "IVA", "PESO", "TRASPORTO", "NOTE", "ANNOTAZIONI", "VETTORE", "FIRMA"},
		CompanyForms: []string{
			"S.R.L.", "SRL", "S.P.A.", "SPA", "S.N.C.", "SNC", "S.A.S.", "SAS", "S.S.", "S.C.", "COOP",
			"& C.", "& FIGLI", "& F.LLI", "SARL", "LTD", "GMBH",
		},
		GrandTotalLabels: []string{"TOTALE DOCUMENTO", "TOTALE FATTURA", "TOTALE DA PAGARE", "TOTALE A PAGARE", "TOTAL DOCUMENT"},
	}
}

// ParseProfile decodes YAML and overlays every non-empty list onto the defaults.
func ParseProfile(data []byte) (*Profile, error) {
	var override Profile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("grammar.ParseProfile: %w", err)
	}

	p := DefaultProfile()
	overlay(&p.IssuerVatIDs, override.IssuerVatIDs)
	overlay(&p.IssuerAddressMarkers, override.IssuerAddressMarkers)
	overlay(&p.ExcludedClientCodes, override.ExcludedClientCodes)
	overlay(&p.CarrierKeywords, override.CarrierKeywords)
	overlay(&p.DeliveryMarkers, override.DeliveryMarkers)
	overlay(&p.ShipToLabels, override.ShipToLabels)
	overlay(&p.AttentionMarkers, override.AttentionMarkers)
	overlay(&p.SectionEndKeywords, override.SectionEndKeywords)
	overlay(&p.CompanyForms, override.CompanyForms)
	overlay(&p.GrandTotalLabels, override.GrandTotalLabels)
	return p, nil
}

// LoadProfile reads a YAML profile from path. An empty path yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grammar.LoadProfile: %w", err)
	}
	return ParseProfile(data)
}

func overlay(dst *[]string, src []string) {
	if len(src) == 0 {
		return
	}
	out := make([]string, 0, len(src))
	for _, s := range src {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

// IsIssuerVatID reports whether id belongs to the issuer.
func (p *Profile) IsIssuerVatID(id string) bool {
	return containsExact(p.IssuerVatIDs, id)
}

// IsExcludedClientCode reports whether code is a placeholder client code.
func (p *Profile) IsExcludedClientCode(code string) bool {
	return containsExact(p.ExcludedClientCodes, code)
}

// MentionsCarrier reports whether text names a carrier rather than a consignee.
func (p *Profile) MentionsCarrier(text string) bool {
	return containsWord(text, p.CarrierKeywords)
}

// MentionsIssuer reports whether text contains the issuer's own address.
func (p *Profile) MentionsIssuer(text string) bool {
	up := strings.ToUpper(text)
	for _, m := range p.IssuerAddressMarkers {
		if strings.Contains(up, m) {
			return true
		}
	}
	return false
}

// IsSectionEnd reports whether line closes the product table.
func (p *Profile) IsSectionEnd(line string) bool {
	fields := strings.Fields(strings.ToUpper(line))
	if len(fields) == 0 {
		return false
	}
	for _, k := range p.SectionEndKeywords {
		if strings.TrimSuffix(fields[0], ":") == k {
			return true
		}
	}
	return false
}

// HasCompanyForm reports whether name ends with a company-form suffix.
func (p *Profile) HasCompanyForm(name string) bool {
	up := strings.ToUpper(strings.TrimSpace(name))
	for _, f := range p.CompanyForms {
		if strings.HasSuffix(up, " "+f) || up == f {
			return true
		}
	}
	return false
}

func containsExact(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// containsWord matches keywords on word boundaries so that short carrier
// codes like "UPS" do not fire inside longer words.
func containsWord(text string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '(' || r == ')'
	})
	for i, w := range words {
		words[i] = strings.TrimRight(w, ".:")
	}
	up := " " + strings.Join(words, " ") + " "
	for _, k := range keywords {
		if strings.Contains(up, " "+strings.TrimRight(k, ".:")+" ") {
			return true
		}
	}
	return false
}
