package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"comma decimal with prefix", "kr 35,30", 35.30},
		{"comma decimal without prefix", "35,30", 35.30},
		{"dot decimal", "kr 12.50", 12.50},
		{"whole number", "kr 19", 19},
		{"non-breaking space", "kr 49,90", 49.90},
		{"embedded in text", "Pris: kr 25,00 per stk", 25.00},
		{"empty", "", 0},
		{"no digits", "gratis", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParsePrice(tt.text), 0.001)
		})
	}
}

func TestParseUnitPrice(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantPrice float64
		wantUnit  string
		wantOK    bool
	}{
		{"per liter", "kr 20,17 /l", 20.17, "l", true},
		{"per kilo no spaces", "29,90/kg", 29.90, "kg", true},
		{"per piece", "kr 5 / stk", 5, "stk", true},
		{"no unit price", "kr 35,30", 0, "", false},
		{"empty", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, unit, ok := ParseUnitPrice(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantPrice, price, 0.001)
				assert.Equal(t, tt.wantUnit, unit)
			}
		})
	}
}

func TestParseProductInfo(t *testing.T) {
	info := ParseProductInfo("1% fett, 1,75 l, TINE")
	assert.Equal(t, "1", info["fat_percentage"])
	assert.Equal(t, "1.75", info["volume"])
	assert.Equal(t, "l", info["volume_unit"])
	assert.Equal(t, "TINE", info["brand"])

	assert.Empty(t, ParseProductInfo(""))

	info = ParseProductInfo("500 g, OATLY")
	assert.Equal(t, "500", info["volume"])
	assert.Equal(t, "g", info["volume_unit"])
	assert.Equal(t, "OATLY", info["brand"])
}

func TestGenerateProductID(t *testing.T) {
	id := GenerateProductID("Tine Lettmelk", "1% fett")
	assert.Equal(t, "tinelettmelk_1fett", id)

	// stable across calls
	assert.Equal(t, id, GenerateProductID("Tine Lettmelk", "1% fett"))

	// different products get different ids
	other := GenerateProductID("Tine Helmelk", "3,5% fett")
	assert.NotEqual(t, id, other)

	long := GenerateProductID("Synnøve Finden Gulost Original Skivet Ekstra Lang Navn", "700 g")
	assert.LessOrEqual(t, len(long), 32)
	require.NotEmpty(t, long)
}

func TestCategoryNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://oda.com/no/categories/20-meieri-ost-og-egg/", "20-meieri-ost-og-egg"},
		{"https://oda.com/no/categories/20-meieri/melk/", "melk"},
		{"https://meny.no/varer/meieri-ost/melk?page=2", "melk"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryNameFromURL(tt.url))
	}
}

func TestResolveRef(t *testing.T) {
	assert.Equal(t, "https://oda.com/no/products/1/", resolveRef("https://oda.com/no/categories/20/", "/no/products/1/"))
	assert.Equal(t, "https://other.com/x", resolveRef("https://oda.com/", "https://other.com/x"))
}
