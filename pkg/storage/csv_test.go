package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matpris/internal/config"
	"matpris/internal/models"
)

func newTestCSV(t *testing.T) *CSV {
	t.Helper()
	s := NewCSV(config.CSVConfig{
		OutputDir:      t.TempDir(),
		FilenamePrefix: "products",
	}, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, s.Init())
	return s
}

func sampleProduct(id, name, category string) models.Product {
	return models.Product{
		ProductID:   id,
		Name:        name,
		Brand:       "TINE",
		Info:        "1% fett, 1,75 l",
		Price:       35.30,
		PriceText:   "kr 35,30",
		UnitPrice:   "kr 20,17 /l",
		Category:    category,
		Subcategory: "melk",
		URL:         "https://oda.com/no/products/" + id + "/",
		Attributes:  map[string]string{"size_quantity": "1.75", "size_unit": "l"},
		ScrapedAt:   time.Date(2026, 8, 31, 11, 30, 0, 0, time.UTC),
		RunID:       "20260831_abc123def456_meieri",
	}
}

func TestCSVSaveAndRead(t *testing.T) {
	s := newTestCSV(t)

	err := s.SaveProducts([]models.Product{
		sampleProduct("101-lettmelk", "Tine Lettmelk", "meieri"),
		sampleProduct("102-helmelk", "Tine Helmelk", "meieri"),
	}, false)
	require.NoError(t, err)

	path := filepath.Join(s.outputDir, "products_meieri_2026-08-31.csv")
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	products, err := s.Products(Filter{})
	require.NoError(t, err)
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, "101-lettmelk", p.ProductID)
	assert.Equal(t, "Tine Lettmelk", p.Name)
	assert.Equal(t, "TINE", p.Brand)
	assert.InDelta(t, 35.30, p.Price, 0.001)
	assert.Equal(t, "meieri", p.Category)
	assert.Equal(t, "melk", p.Subcategory)
	assert.Equal(t, map[string]string{"size_quantity": "1.75", "size_unit": "l"}, p.Attributes)
	assert.Equal(t, "20260831_abc123def456_meieri", p.RunID)
	assert.True(t, p.ScrapedAt.Equal(time.Date(2026, 8, 31, 11, 30, 0, 0, time.UTC)))
}

func TestCSVAppendKeepsExistingRows(t *testing.T) {
	s := newTestCSV(t)

	require.NoError(t, s.SaveProducts([]models.Product{sampleProduct("101", "Lettmelk", "meieri")}, false))
	require.NoError(t, s.SaveProducts([]models.Product{sampleProduct("102", "Helmelk", "meieri")}, false))

	products, err := s.Products(Filter{})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestCSVReplaceOverwritesByProductID(t *testing.T) {
	s := newTestCSV(t)

	require.NoError(t, s.SaveProducts([]models.Product{
		sampleProduct("101", "Lettmelk", "meieri"),
		sampleProduct("102", "Helmelk", "meieri"),
	}, false))

	updated := sampleProduct("101", "Lettmelk Ny Pris", "meieri")
	updated.Price = 37.90
	require.NoError(t, s.SaveProducts([]models.Product{updated}, true))

	products, err := s.Products(Filter{})
	require.NoError(t, err)
	require.Len(t, products, 2)

	byID := make(map[string]models.Product)
	for _, p := range products {
		byID[p.ProductID] = p
	}
	assert.Equal(t, "Lettmelk Ny Pris", byID["101"].Name)
	assert.InDelta(t, 37.90, byID["101"].Price, 0.001)
	assert.Equal(t, "Helmelk", byID["102"].Name)
}

func TestCSVSplitsFilesByCategory(t *testing.T) {
	s := newTestCSV(t)

	require.NoError(t, s.SaveProducts([]models.Product{
		sampleProduct("101", "Lettmelk", "meieri"),
		sampleProduct("201", "Egg 12pk", "egg"),
	}, false))

	files, err := filepath.Glob(filepath.Join(s.outputDir, "products_*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestCSVProductsFilter(t *testing.T) {
	s := newTestCSV(t)

	other := sampleProduct("201", "Egg", "egg")
	other.Subcategory = "egg"
	other.RunID = "20260831_other_run"
	require.NoError(t, s.SaveProducts([]models.Product{
		sampleProduct("101", "Lettmelk", "meieri"),
		sampleProduct("102", "Helmelk", "meieri"),
		other,
	}, false))

	products, err := s.Products(Filter{Category: "meieri"})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = s.Products(Filter{Subcategory: "egg"})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	products, err = s.Products(Filter{RunID: "20260831_other_run"})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	products, err = s.Products(Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	products, err = s.Products(Filter{Category: "fisk"})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCSVSanitizesCategoryFilenames(t *testing.T) {
	s := newTestCSV(t)

	require.NoError(t, s.SaveProducts([]models.Product{
		sampleProduct("101", "Lettmelk", "meieri/ost: egg"),
	}, false))

	files, err := filepath.Glob(filepath.Join(s.outputDir, "products_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.NotContains(t, filepath.Base(files[0]), "/")
	assert.NotContains(t, filepath.Base(files[0]), ":")
}

func TestCSVClear(t *testing.T) {
	s := newTestCSV(t)

	require.NoError(t, s.SaveProducts([]models.Product{sampleProduct("101", "Lettmelk", "meieri")}, false))
	require.NoError(t, s.Clear())

	products, err := s.Products(Filter{})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCSVSaveEmptyBatch(t *testing.T) {
	s := newTestCSV(t)
	assert.NoError(t, s.SaveProducts(nil, false))
}
