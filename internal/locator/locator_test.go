package locator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
	"ddtft/internal/layout"
	"ddtft/internal/locator"
)

func newLocator() *locator.Locator {
	return locator.New(grammar.DefaultProfile(), layout.New(layout.DefaultOptions()))
}

func scenarioALines() []string {
	return []string{
		"DOCUMENTO DI TRASPORTO",
		"4521  19/05/25  1  20322",
		"DONAC S.R.L. DONAC S.R.L.",
		"VIA MARGARITA, 8 LOC. TETTO GARETTO VIA SALUZZO, 65",
		"12100 - CUNEO CN 12038 SAVIGLIANO CN",
		"070017 TAJARIN UOVO SACCHETTO ALFIERI 250G PZ 10 2,1700 21,70 04",
	}
}

func TestFindHeaderRow(t *testing.T) {
	h, ok := locator.FindHeaderRow(scenarioALines())
	require.True(t, ok)
	assert.Equal(t, 1, h.Index)
	assert.Equal(t, "4521", h.Number)
	assert.Equal(t, "19/05/25", h.Date)
	assert.Equal(t, "1", h.Page)
	assert.Equal(t, "20322", h.ClientCode)

	_, ok = locator.FindHeaderRow([]string{"FATTURA 12 del 19/05/25"})
	assert.False(t, ok)
}

func TestHeaderColumns_ScenarioA(t *testing.T) {
	l := newLocator()
	lines := scenarioALines()
	h, ok := locator.FindHeaderRow(lines)
	require.True(t, ok)

	block, ok := l.HeaderColumns(lines, nil, h)
	require.True(t, ok)

	assert.Equal(t, "DONAC S.R.L.", block.ClientName)
	assert.True(t, block.NameConfirmed)

	require.NotNil(t, block.Delivery)
	assert.Equal(t, "VIA SALUZZO, 65 12038 SAVIGLIANO CN", block.Delivery.String())
	assert.Equal(t, "VIA SALUZZO", block.Delivery.Street)
	assert.Equal(t, "65", block.Delivery.StreetNumber)
	assert.Equal(t, "12038", block.Delivery.PostalCode)
	assert.Equal(t, "SAVIGLIANO", block.Delivery.City)
	assert.Equal(t, "CN", block.Delivery.Province)
	assert.True(t, block.Delivery.Complete())
	assert.False(t, block.Delivery.LowConfidence)
	assert.Equal(t, domain.AddressMethodHeaderConfirmed, block.Delivery.Method)
	assert.InDelta(t, 0.95, block.Delivery.Confidence, 1e-9)

	require.NotNil(t, block.Billing)
	assert.Equal(t, "VIA MARGARITA", block.Billing.Street)
	assert.Equal(t, "8", block.Billing.StreetNumber)
	assert.Equal(t, "LOC. TETTO GARETTO", block.Billing.AdditionalInfo)
	assert.Equal(t, "12100", block.Billing.PostalCode)
	assert.Equal(t, "CUNEO", block.Billing.City)
	assert.Empty(t, block.Diagnostics)
}

func TestHeaderColumns_PositionHints(t *testing.T) {
	l := newLocator()
	lines := []string{
		"4521 19/05/25 1 20322",
		"BAR CENTRALE SNC BAR CENTRALE SNC",
		"VIA ROMA, 3 CORSO ITALIA, 40",
		"10121 TORINO TO 10093 COLLEGNO TO",
	}
	hints := make([][]layout.Fragment, len(lines))
	hints[2] = []layout.Fragment{{X: 30, Text: "VIA ROMA, 3"}, {X: 300, Text: "CORSO ITALIA, 40"}}

	h, ok := locator.FindHeaderRow(lines)
	require.True(t, ok)
	block, ok := l.HeaderColumns(lines, hints, h)
	require.True(t, ok)
	require.NotNil(t, block.Delivery)
	assert.Equal(t, "CORSO ITALIA, 40 10093 COLLEGNO TO", block.Delivery.String())
	assert.Equal(t, "VIA ROMA, 3 10121 TORINO TO", block.Billing.String())
}

func TestHeaderColumns_CarrierRejected(t *testing.T) {
	l := newLocator()
	lines := []string{
		"4521 19/05/25 1 20322",
		"DONAC S.R.L. DONAC S.R.L.",
		"VIA ROMA, 3 VIA GALLINO TRASPORTI, 1",
		"12100 CUNEO CN 12030 MANTA CN",
	}
	h, _ := locator.FindHeaderRow(lines)
	block, ok := l.HeaderColumns(lines, nil, h)
	require.True(t, ok)
	assert.Nil(t, block.Delivery)
	require.Len(t, block.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticPatternNotFound, block.Diagnostics[0].Kind)
}

func TestHeaderColumns_SingleColumn(t *testing.T) {
	l := newLocator()
	lines := []string{
		"4521 19/05/25 1 20322",
		"DONAC S.R.L.",
		"VIA SALUZZO, 65",
		"12038 SAVIGLIANO CN",
	}
	h, _ := locator.FindHeaderRow(lines)
	block, ok := l.HeaderColumns(lines, nil, h)
	require.True(t, ok)
	assert.Equal(t, "DONAC S.R.L.", block.ClientName)
	assert.False(t, block.NameConfirmed)
	assert.Nil(t, block.Delivery)
	require.NotNil(t, block.Billing)
	assert.Equal(t, "VIA SALUZZO, 65 12038 SAVIGLIANO CN", block.Billing.String())
}

func TestParseStreet(t *testing.T) {
	tests := []struct {
		in, street, number, extra string
	}{
		{"VIA SALUZZO, 65", "VIA SALUZZO", "65", ""},
		{"VIA MARGARITA, 8 LOC. TETTO GARETTO", "VIA MARGARITA", "8", "LOC. TETTO GARETTO"},
		{"corso francia 22", "CORSO FRANCIA", "22", ""},
		{"VIA 4 NOVEMBRE, 12/B", "VIA 4 NOVEMBRE", "12/B", ""},
		{"VIA ROMA 5 LOC. BORGATA", "VIA ROMA", "5", "LOC. BORGATA"},
		{"LOC. TETTO GARETTO", "LOC. TETTO GARETTO", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			street, number, extra := locator.ParseStreet(tt.in)
			assert.Equal(t, tt.street, street)
			assert.Equal(t, tt.number, number)
			assert.Equal(t, tt.extra, extra)
		})
	}
}

func TestParseCityLine(t *testing.T) {
	tests := []struct {
		in, cap, city, prov string
		ok                  bool
	}{
		{"12038 SAVIGLIANO CN", "12038", "SAVIGLIANO", "CN", true},
		{"12100 - CUNEO CN", "12100", "CUNEO", "CN", true},
		{"18038 SAN REMO (IM)", "18038", "SAN REMO", "IM", true},
		{"20100 MILANO", "20100", "MILANO", "", true},
		{"10010 BORGO XX", "10010", "BORGO XX", "", true},
		{"00100 ROMA RM", "", "", "", false},
		{"VIA ROMA 1", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cap, city, prov, ok := locator.ParseCityLine(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cap, cap)
			assert.Equal(t, tt.city, city)
			assert.Equal(t, tt.prov, prov)
		})
	}
}

func TestBuildAddress_Incomplete(t *testing.T) {
	a := locator.BuildAddress([]string{"VIA SALUZZO, 65"}, "", domain.AddressMethodMarker)
	assert.False(t, a.Complete())
	assert.True(t, a.LowConfidence)
	assert.InDelta(t, 0.40, a.Confidence, 1e-9)
}

func TestFindAnchoredLine(t *testing.T) {
	l := newLocator()
	lines := []string{
		"FATTURA",
		"FT 4904 21/05/25 10.32 20322 03247720042 01234567897",
	}
	a, ok := l.FindAnchoredLine(lines)
	require.True(t, ok)
	assert.Equal(t, 1, a.Index)
	assert.Equal(t, "4904", a.Number)
	assert.Equal(t, "21/05/25", a.Date)
	assert.Equal(t, "10.32", a.Time)
	assert.Equal(t, "20322", a.ClientCode)
	assert.Equal(t, "01234567897", a.VatID)

	a, ok = l.FindAnchoredLine([]string{"4904 21/05/25 10:32 20322 01234567897 01234567897"})
	require.True(t, ok)
	assert.Equal(t, "01234567897", a.VatID)
}

func TestLabeledFields(t *testing.T) {
	l := newLocator()
	text := strings.Join([]string{
		"ALFIERI SPA - MAGLIANO ALFIERI - P.IVA 03247720042",
		"FATTURA N. 812 DEL 03/06/2025",
		"Cod. Cli. 20001",
		"Cod. Cliente: 20322",
		"Partita IVA: 01234567897",
		"RIF. ORDINE N. 4500123",
	}, "\n")

	n, ok := locator.LabeledNumber(text)
	require.True(t, ok)
	assert.Equal(t, "812", n)

	d, ok := locator.LabeledDate(text)
	require.True(t, ok)
	assert.Equal(t, "2025-06-03", d)

	code, ok := l.LabeledClientCode(text)
	require.True(t, ok)
	assert.Equal(t, "20322", code)

	vat, ok := l.LabeledVatID(text)
	require.True(t, ok)
	assert.Equal(t, "01234567897", vat)

	ref, ok := locator.OrderReference(text)
	require.True(t, ok)
	assert.Equal(t, "4500123", ref)
}

func TestVatIDFinders(t *testing.T) {
	l := newLocator()
	text := "P.IVA 03247720042\nP.IVA 12345678901\ncodice 12345678903"

	vat, ok := l.LabeledVatID(text)
	require.True(t, ok)
	assert.Equal(t, "12345678901", vat)

	vat, ok = l.ChecksumVatID(text)
	require.True(t, ok)
	assert.Equal(t, "12345678903", vat)

	vat, ok = l.BareVatID("03247720042 99999999999")
	require.True(t, ok)
	assert.Equal(t, "99999999999", vat)

	_, ok = l.BareVatID("03247720042")
	assert.False(t, ok)
}

func TestFileNameFinders(t *testing.T) {
	n, ok := locator.NumberFromFileName("FTV_701029_2025_20001_0004904_21052025.PDF")
	require.True(t, ok)
	assert.Equal(t, "4904", n)

	d, ok := locator.DateFromFileName("FTV_701029_2025_20001_0004904_21052025.PDF")
	require.True(t, ok)
	assert.Equal(t, "2025-05-21", d)

	_, ok = locator.NumberFromFileName("scan.pdf")
	assert.False(t, ok)

	l := newLocator()
	code, ok := l.ClientCodeFromFileName("FTV_701029_2025_20200_4673_21052025.PDF")
	require.True(t, ok)
	assert.Equal(t, "20200", code)

	_, ok = l.ClientCodeFromFileName("FTV_701029_2025_20001_0004904_21052025.PDF")
	assert.False(t, ok, "placeholder client code")
}

func TestMarkerAddress(t *testing.T) {
	l := newLocator()
	lines := []string{
		"Spett.le",
		"ROSSI MARIO",
		"Luogo di consegna:",
		"MAGAZZINO NORD",
		"STRADA PROVINCIALE 12",
		"12030 MANTA CN",
	}
	a, ok := l.MarkerAddress(lines)
	require.True(t, ok)
	assert.Equal(t, "STRADA PROVINCIALE", a.Street)
	assert.Equal(t, "12", a.StreetNumber)
	assert.Equal(t, "MANTA", a.City)
	assert.Equal(t, domain.AddressMethodMarker, a.Method)

	_, ok = l.MarkerAddress([]string{"Luogo di consegna: VIA ROMA 1", "12050 MAGLIANO ALFIERI CN"})
	assert.False(t, ok, "issuer address must be rejected")
}

func TestDualColumnScan(t *testing.T) {
	l := newLocator()
	lines := []string{
		"Destinatario              Luogo di destinazione",
		"VIA ROMA, 3     CORSO ITALIA, 40",
		"10121 TORINO TO 10093 COLLEGNO TO",
	}
	a, ok := l.DualColumnScan(lines, nil)
	require.True(t, ok)
	assert.Equal(t, "CORSO ITALIA, 40 10093 COLLEGNO TO", a.String())
	assert.Equal(t, domain.AddressMethodDualColumn, a.Method)
}

func TestShipToName(t *testing.T) {
	l := newLocator()

	name, ok := l.ShipToName([]string{"Spett.le", "DONAC S.R.L.   DONAC S.R.L.", "VIA ROMA 1"}, nil)
	require.True(t, ok)
	assert.Equal(t, "DONAC S.R.L.", name)

	name, ok = l.ShipToName([]string{"SHIP TO: BAR SPORT SNC"}, nil)
	require.True(t, ok)
	assert.Equal(t, "BAR SPORT SNC", name)

	_, ok = l.ShipToName([]string{"Spett.le", "VIA ROMA 1"}, nil)
	assert.False(t, ok)
}

func TestAttentionName(t *testing.T) {
	l := newLocator()
	lines := []string{
		"ATTENZIONE!! Verificare la merce al momento della consegna.",
		"Eventuali contestazioni vanno segnalate entro 8 giorni.",
		"",
		"LA BOTTEGA DEL GUSTO",
		"DI BIANCHI LUCA & C. SAS",
		"VIA GARIBALDI, 21",
		"12042 BRA CN",
	}
	name, ok := l.AttentionName(lines)
	require.True(t, ok)
	assert.Equal(t, "LA BOTTEGA DEL GUSTO DI BIANCHI LUCA & C. SAS", name)

	_, ok = l.AttentionName([]string{"FATTURA", "VIA ROMA 1"})
	assert.False(t, ok)
}
