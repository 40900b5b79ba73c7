package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		text     string
		value    int64
		hasValue bool
	}{
		{"thousands separators", "$ 1.299.000", "$ 1.299.000", 1299000, true},
		{"no space after symbol", "$899.900", "$ 899.900", 899900, true},
		{"embedded in label", "Precio oferta $ 45.990 COP", "$ 45.990", 45990, true},
		{"decimal comma is flattened", "$ 12,99", "$ 12,99", 1299, true},
		{"placeholder", "N/A", "N/A", 0, false},
		{"empty", "", "N/A", 0, false},
		{"no currency symbol", "1.299.000", "N/A", 0, false},
		{"symbol without digits", "$ .,", "N/A", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := NormalizePrice(tt.input)
			assert.Equal(t, tt.text, price.Text)
			if !tt.hasValue {
				assert.Nil(t, price.Value)
				assert.Nil(t, price.Currency)
				return
			}
			require.NotNil(t, price.Value)
			require.NotNil(t, price.Currency)
			assert.Equal(t, tt.value, *price.Value)
			assert.Equal(t, "COP", *price.Currency)
		})
	}
}

func TestExtractSize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`Television 55" 4K`, `55"`},
		{`Televisor LG 65 pulgadas OLED`, `65"`},
		{`Monitor 27 in curvo`, `27"`},
		{`Smart TV 43” FHD`, `43"`},
		{`Samsung 50 Pulgada`, `50"`},
		{"Wireless Mouse", "N/A"},
		{`Cable 5" HDMI`, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSize(tt.input))
		})
	}
}

func TestSizeOrNil(t *testing.T) {
	size := SizeOrNil(`Television 55" 4K`)
	require.NotNil(t, size)
	assert.Equal(t, `55"`, *size)

	assert.Nil(t, SizeOrNil("Wireless Mouse"))
	assert.Nil(t, SizeOrNil("N/A"))
}

func TestInferBrand(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Samsung Smart TV 55 UHD", "SAMSUNG"},
		{"Smart TV LG 50 pulgadas", "LG"},
		{"TV-Hisense 4K", "HISENSE"},
		{"Televisor — Kalley 32", "TELEVISOR"},
		{"Ñandú Muebles", "ÑANDÚ"},
		{"4K UHD HD", "N/A"},
		{"", "N/A"},
		{"(Xiaomi) Redmi", "XIAOMI"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferBrand(tt.input))
		})
	}
}

func TestIsPromotionalTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Free shipping — flagship store", true},
		{"Envío gratis en miles de productos", true},
		{"envio gratis", true},
		{"Vendido por Falabella", true},
		{"Exclusivo Falabella", true},
		{"Marketplace Falabella", true},
		{"Sold by platform", true},
		{"Por Calm.", true},
		{"by Brand", true},
		{"For the home", true},
		{"Samsung Smart TV 55 UHD", false},
		{"Portátil Lenovo", false},
		{"Forza Horizon 5", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPromotionalTitle(tt.input))
		})
	}
}

func TestParseRating(t *testing.T) {
	rating := ParseRating("4.5")
	require.NotNil(t, rating)
	assert.Equal(t, 4.5, *rating)

	rating = ParseRating("4,2")
	require.NotNil(t, rating)
	assert.Equal(t, 4.2, *rating)

	for _, missing := range []string{"", "N/A", "0", "abc", "NaN", "nan", "Inf", "+Inf", "-Inf", "infinity"} {
		assert.Nil(t, ParseRating(missing), missing)
	}
}

func TestRatingFromLabel(t *testing.T) {
	tests := []struct {
		label    string
		expected float64
		found    bool
	}{
		{"4,5 de 5", 4.5, true},
		{"Calificación 3 de 5 estrellas", 3, true},
		{"4.7 out of 5 stars", 4.7, true},
		{"2 of 5", 2, true},
		{"sin calificación", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			rating := RatingFromLabel(tt.label)
			if !tt.found {
				assert.Nil(t, rating)
				return
			}
			require.NotNil(t, rating)
			assert.Equal(t, tt.expected, *rating)
		})
	}
}
