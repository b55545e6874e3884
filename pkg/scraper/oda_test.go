package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matpris/internal/config"
	"matpris/pkg/fetch"
)

const odaCategoryPage = `
<html><body>
<section>
  <a href="/no/categories/20-meieri/melk/"><span>Melk (84)</span></a>
  <a href="/no/categories/20-meieri/ost/"><span>✓Ost (12)</span></a>
</section>
</body></html>`

func odaListingPage(productPaths ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range productPaths {
		fmt.Fprintf(&b, `<article><a href=%q><h2>product</h2></a></article>`, p)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func odaProductPage(name, info, price, unitPrice string) string {
	return fmt.Sprintf(`
<html><body>
<img src="/images/product.jpg">
<h2>%s</h2>
<p class="k-text-style--body-s">%s</p>
<span class="k-text-style--label-m k-text--weight-bold">%s</span>
<p class="k-text-style--label-s k-text-color--subdued">%s</p>
</body></html>`, name, info, price, unitPrice)
}

// odaTestServer simulates Oda's category, listing and product pages with
// cursor pagination.
func odaTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/no/categories/20-meieri/":
			if cursor == "" {
				w.Write([]byte(odaCategoryPage))
			} else {
				w.Write([]byte(odaListingPage()))
			}
		case "/no/categories/20-meieri/melk/":
			if cursor == "1" {
				w.Write([]byte(odaListingPage("/no/products/101-lettmelk/", "/no/products/102-helmelk/")))
			} else {
				w.Write([]byte(odaListingPage()))
			}
		case "/no/categories/20-meieri/ost/":
			if cursor == "1" {
				w.Write([]byte(odaListingPage("/no/products/201-norvegia/")))
			} else {
				w.Write([]byte(odaListingPage()))
			}
		case "/no/products/101-lettmelk/":
			w.Write([]byte(odaProductPage("Tine Lettmelk", "1% fett, 1,75 l, TINE", "kr 35,30", "kr 20,17 /l")))
		case "/no/products/102-helmelk/":
			w.Write([]byte(odaProductPage("Tine Helmelk", "3,5% fett, 1 l, TINE", "kr 28,90", "kr 28,90 /l")))
		case "/no/products/201-norvegia/":
			w.Write([]byte(odaProductPage("Norvegia Original", "27% fett, 500 g, TINE", "kr 89,90", "kr 179,80 /kg")))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newOdaScraper(server *httptest.Server) *Oda {
	cfg := config.ScraperConfig{
		MaxRetries: 1,
		Timeout:    5,
		UserAgent:  "test-agent",
	}
	client := fetch.New(cfg, zerolog.Nop())
	return NewOda(config.SiteConfig{BaseURL: server.URL}, client, zerolog.Nop())
}

func TestOdaProducts(t *testing.T) {
	server := odaTestServer(t)
	o := newOdaScraper(server)

	products, err := o.Products(context.Background(),
		config.Category{Name: "meieri", URL: server.URL + "/no/categories/20-meieri/"},
		Limits{})
	require.NoError(t, err)
	require.Len(t, products, 3)

	melk := products[0]
	assert.Equal(t, "Tine Lettmelk", melk.Name)
	assert.Equal(t, "1% fett, 1,75 l, TINE", melk.Info)
	assert.InDelta(t, 35.30, melk.Price, 0.001)
	assert.Equal(t, "kr 35,30", melk.PriceText)
	assert.Equal(t, "kr 20,17 /l", melk.UnitPrice)
	assert.Equal(t, "meieri", melk.Category)
	assert.Equal(t, "Melk", melk.Subcategory)
	assert.Equal(t, server.URL+"/no/products/101-lettmelk/", melk.URL)
	assert.Equal(t, server.URL+"/images/product.jpg", melk.ImageURL)
	assert.NotEmpty(t, melk.ProductID)
	assert.False(t, melk.ScrapedAt.IsZero())

	assert.Equal(t, "Ost", products[2].Subcategory)
}

func TestOdaMaxSubcategories(t *testing.T) {
	server := odaTestServer(t)
	o := newOdaScraper(server)

	one := 1
	products, err := o.Products(context.Background(),
		config.Category{Name: "meieri", URL: server.URL + "/no/categories/20-meieri/"},
		Limits{MaxSubcategories: &one})
	require.NoError(t, err)

	require.Len(t, products, 2)
	for _, p := range products {
		assert.Equal(t, "Melk", p.Subcategory)
	}
}

func TestOdaMaxProducts(t *testing.T) {
	server := odaTestServer(t)
	o := newOdaScraper(server)

	products, err := o.Products(context.Background(),
		config.Category{Name: "meieri", URL: server.URL + "/no/categories/20-meieri/"},
		Limits{MaxProducts: 1})
	require.NoError(t, err)

	// one product per subcategory
	require.Len(t, products, 2)
	assert.Equal(t, "Melk", products[0].Subcategory)
	assert.Equal(t, "Ost", products[1].Subcategory)
}

func TestOdaProduct(t *testing.T) {
	server := odaTestServer(t)
	o := newOdaScraper(server)

	p, err := o.Product(context.Background(), server.URL+"/no/products/201-norvegia/")
	require.NoError(t, err)
	assert.Equal(t, "Norvegia Original", p.Name)
	assert.InDelta(t, 89.90, p.Price, 0.001)
}

func TestOdaProductMissingName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`<html><body><span>kr 10</span></body></html>`))
	}))
	defer server.Close()

	o := newOdaScraper(server)
	p, err := o.Product(context.Background(), server.URL+"/no/products/1-x/")
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestOdaUnreachableCategoryFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	o := newOdaScraper(server)
	_, err := o.Products(context.Background(),
		config.Category{Name: "meieri", URL: server.URL + "/no/categories/20-meieri/"},
		Limits{})
	assert.Error(t, err)
}

func TestCleanSubcategoryName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Melk (84)", "Melk"},
		{"✓Ost (12)", "Ost"},
		{"  Egg  ", "Egg"},
		{"Yoghurt", "Yoghurt"},
		{"✓", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanSubcategoryName(tt.in))
	}
}

func TestOdaPageURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		page int
		want string
	}{
		{
			name: "bare url",
			url:  "https://oda.com/no/categories/20-meieri/melk/",
			page: 2,
			want: "https://oda.com/no/categories/20-meieri/melk/?filters=&cursor=2",
		},
		{
			name: "existing query",
			url:  "https://oda.com/melk/?sort=price",
			page: 3,
			want: "https://oda.com/melk/?sort=price&cursor=3",
		},
		{
			name: "existing cursor replaced",
			url:  "https://oda.com/melk/?filters=&cursor=1",
			page: 4,
			want: "https://oda.com/melk/?filters=&cursor=4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, odaPageURL(tt.url, tt.page))
		})
	}
}

func TestDedupeCategories(t *testing.T) {
	in := []config.Category{
		{Name: "Melk", URL: "https://oda.com/melk/"},
		{Name: "Melk again", URL: "https://oda.com/melk?cursor=2"},
		{Name: "Ost", URL: "https://oda.com/ost/"},
	}
	out := dedupeCategories(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Melk", out[0].Name)
	assert.Equal(t, "Ost", out[1].Name)
}

func TestFallbackCategoryLinks(t *testing.T) {
	body := []byte(`
<html><body>
<div class="nav">
  <a href="/no/categories/20-meieri/melk/">Melk (84)</a>
  <a href="/about/">About</a>
</div>
</body></html>`)

	categories := fallbackCategoryLinks(body, "https://oda.com/no/categories/20-meieri/")
	require.Len(t, categories, 1)
	assert.Equal(t, "Melk", categories[0].Name)
	assert.Equal(t, "https://oda.com/no/categories/20-meieri/melk/", categories[0].URL)
}
