package grammar_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/internal/grammar"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2,1700", "2.17", true},
		{"21,70", "21.7", true},
		{"1.234,56", "1234.56", true},
		{"10", "10", true},
		{"04", "4", true},
		{"1.000", "1000", true},
		{"12.500.000", "12500000", true},
		{"21.70", "21.7", true},
		{"€ 1.020,30", "1020.3", true},
		{"-5,50", "-5.5", true},
		{"250G", "", false},
		{"1,2,3", "", false},
		{"", "", false},
		{"*", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := grammar.ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1.234,56", grammar.FormatNumber(decimal.RequireFromString("1234.56"), 2))
	assert.Equal(t, "21,70", grammar.FormatNumber(decimal.RequireFromString("21.7"), 2))
	assert.Equal(t, "-1.000,00", grammar.FormatNumber(decimal.RequireFromString("-1000"), 2))
	assert.Equal(t, "999", grammar.FormatNumber(decimal.RequireFromString("999"), 0))
}

func TestWithinTolerance(t *testing.T) {
	ratio := decimal.RequireFromString("0.01")

	t.Run("exact", func(t *testing.T) {
		assert.True(t, grammar.WithinTolerance(decimal.RequireFromString("21.70"), decimal.RequireFromString("21.70"), ratio))
	})
	t.Run("small_value_uses_floor_of_one", func(t *testing.T) {
		assert.True(t, grammar.WithinTolerance(decimal.RequireFromString("0.50"), decimal.RequireFromString("0.505"), ratio))
		assert.False(t, grammar.WithinTolerance(decimal.RequireFromString("0.50"), decimal.RequireFromString("0.52"), ratio))
	})
	t.Run("relative_to_total", func(t *testing.T) {
		assert.True(t, grammar.WithinTolerance(decimal.RequireFromString("1000"), decimal.RequireFromString("1009"), ratio))
		assert.False(t, grammar.WithinTolerance(decimal.RequireFromString("1000"), decimal.RequireFromString("1011"), ratio))
	})
}

func TestDiscountedTotal(t *testing.T) {
	got := grammar.DiscountedTotal(decimal.NewFromInt(10), decimal.NewFromInt(2), decimal.NewFromInt(10))
	assert.True(t, got.Equal(decimal.NewFromInt(18)))
}

func TestUnitsAndVat(t *testing.T) {
	assert.True(t, grammar.IsUnit("PZ"))
	assert.True(t, grammar.IsUnit("kg"))
	assert.False(t, grammar.IsUnit("BOX"))

	for _, tok := range []string{"04", "4", "10", "22"} {
		_, ok := grammar.ParseVatToken(tok)
		assert.True(t, ok, tok)
	}
	for _, tok := range []string{"5", "21", "100", "2,2"} {
		_, ok := grammar.ParseVatToken(tok)
		assert.False(t, ok, tok)
	}
}

func TestIsProductCode(t *testing.T) {
	for _, code := range []string{"070017", "DL000301", "PIRR002", "200016"} {
		assert.True(t, grammar.IsProductCode(code), code)
	}
	for _, code := range []string{"4521", "12038", "TAJARIN", "ABCDEFGHIJ1", "19/05/25"} {
		assert.False(t, grammar.IsProductCode(code), code)
	}
}

func TestAddressGrammar(t *testing.T) {
	t.Run("street_keywords", func(t *testing.T) {
		assert.True(t, grammar.StartsWithStreetKeyword("VIA SALUZZO, 65"))
		assert.True(t, grammar.StartsWithStreetKeyword("c.so Nizza 12"))
		assert.False(t, grammar.StartsWithStreetKeyword("DONAC S.R.L."))
	})
	t.Run("cap_range", func(t *testing.T) {
		assert.True(t, grammar.ValidCAP("12038"))
		assert.False(t, grammar.ValidCAP("00123"))
		assert.False(t, grammar.ValidCAP("99000"))
		assert.False(t, grammar.ValidCAP("1203"))
	})
	t.Run("provinces", func(t *testing.T) {
		assert.True(t, grammar.IsProvince("CN"))
		assert.True(t, grammar.IsProvince("to"))
		assert.False(t, grammar.IsProvince("XX"))
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"19/05/25", "2025-05-19", true},
		{"1/02/2024", "2024-02-01", true},
		{"31.12.99", "1999-12-31", true},
		{"30/02/25", "", false},
		{"2025-05-19", "", false},
	}
	for _, tt := range tests {
		got, ok := grammar.ParseDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestValidVatID(t *testing.T) {
	assert.True(t, grammar.ValidVatID("03247720042"))
	assert.True(t, grammar.ValidVatID("01234567897"))
	assert.True(t, grammar.ValidVatID("12345678903"))
	assert.False(t, grammar.ValidVatID("12345678901"))
	assert.False(t, grammar.ValidVatID("1234567890"))
	assert.False(t, grammar.ValidVatID("1234567890A"))
}

func TestProfile(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := grammar.DefaultProfile()
		assert.True(t, p.IsIssuerVatID("03247720042"))
		assert.True(t, p.IsExcludedClientCode("20001"))
		assert.True(t, p.MentionsCarrier("VETTORE: S.A.F.I.M. SPA"))
		assert.True(t, p.MentionsCarrier("GALLINO TRASPORTI SRL"))
		assert.False(t, p.MentionsCarrier("VIA SUPERGA 4"))
		assert.True(t, p.MentionsIssuer("12050 MAGLIANO ALFIERI CN"))
		assert.True(t, p.IsSectionEnd("TOTALE MERCE 120,00"))
		assert.False(t, p.IsSectionEnd("070017 TAJARIN PZ 10 2,17 21,70 04"))
		assert.True(t, p.HasCompanyForm("DONAC S.R.L."))
	})

	t.Run("yaml_overlay", func(t *testing.T) {
		p, err := grammar.ParseProfile([]byte("issuer_vat_ids: [\"01234567897\"]\ncarrier_keywords: [\"rossi trasporti\"]\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"01234567897"}, p.IssuerVatIDs)
		assert.Equal(t, []string{"ROSSI TRASPORTI"}, p.CarrierKeywords)
		assert.Equal(t, grammar.DefaultProfile().DeliveryMarkers, p.DeliveryMarkers)
	})

	t.Run("invalid_yaml", func(t *testing.T) {
		_, err := grammar.ParseProfile([]byte("issuer_vat_ids: {"))
		assert.Error(t, err)
	})

	t.Run("empty_path", func(t *testing.T) {
		p, err := grammar.LoadProfile("")
		require.NoError(t, err)
		assert.NotEmpty(t, p.CarrierKeywords)
	})
}
