package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"matpris/internal/config"
	"matpris/internal/models"
	"matpris/pkg/fetch"
)

// Meny scrapes meny.no. Unlike Oda, product data is available directly on
// the listing cards; the site paginates with a page query parameter behind
// its "Vis flere" button.
type Meny struct {
	cfg    config.MenyConfig
	client *fetch.Client
	logger zerolog.Logger
}

// NewMeny creates a Meny scraper.
func NewMeny(cfg config.MenyConfig, client *fetch.Client, logger zerolog.Logger) *Meny {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Meny{cfg: cfg, client: client, logger: logger}
}

// Products scrapes a category, following pagination up to max_pages. The
// subcategory limit does not apply to Meny, whose categories are flat.
func (m *Meny) Products(ctx context.Context, category config.Category, limits Limits) ([]models.Product, error) {
	categoryURL := m.absURL(category.URL)
	categoryName := category.Name
	if categoryName == "" {
		categoryName = strings.ReplaceAll(categoryNameFromURL(categoryURL), "-", " ")
	}

	var all []models.Product
	totalPages := m.cfg.MaxPages

	for page := 1; page <= totalPages; page++ {
		pageURL := categoryURL
		if page > 1 {
			pageURL = menyPageURL(categoryURL, page)
		}

		body, err := m.client.Get(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch category %s: %w", categoryName, err)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return all, err
			}
			m.logger.Warn().Str("url", pageURL).Err(err).Msg("pagination stopped early")
			break
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return all, fmt.Errorf("parse %s: %w", pageURL, err)
		}

		// The pagination widget reports the real page count when present.
		if pager := doc.Find("[data-page]").First(); pager.Length() > 0 {
			if total, ok := pager.Attr("data-total-pages"); ok {
				if n, err := strconv.Atoi(total); err == nil && n < totalPages {
					totalPages = n
				}
			}
		}

		cards := m.productCards(doc)
		if len(cards) == 0 {
			m.logger.Info().Int("page", page).Msg("no products on page, ending pagination")
			break
		}

		count := 0
		for _, card := range cards {
			p := m.productFromCard(card, categoryName)
			if p == nil {
				continue
			}
			all = append(all, *p)
			count++
		}
		m.logger.Debug().Int("page", page).Int("products", count).Msg("scraped page")

		if limits.MaxProducts > 0 && len(all) >= limits.MaxProducts {
			all = all[:limits.MaxProducts]
			break
		}

		if !hasShowMoreButton(doc) && pagerExhausted(doc) {
			break
		}
	}

	m.logger.Info().Str("category", categoryName).Int("products", len(all)).Msg("scraped category")
	return all, nil
}

// Product scrapes a single product page.
func (m *Meny) Product(ctx context.Context, productURL string) (*models.Product, error) {
	if !validMenyProductURL(productURL) {
		return nil, fmt.Errorf("not a product URL: %s", productURL)
	}

	body, err := m.client.Get(ctx, productURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", productURL, err)
	}

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return nil, fmt.Errorf("no product name at %s", productURL)
	}

	priceSel := doc.Find(`[itemprop="price"]`).First()
	if priceSel.Length() == 0 {
		priceSel = doc.Find(".ws-product-price-regular").First()
	}
	if priceSel.Length() == 0 {
		return nil, fmt.Errorf("no price for %q at %s", name, productURL)
	}
	priceText := strings.TrimSpace(priceSel.Text())

	info := strings.TrimSpace(firstOf(doc, `[itemprop="description"]`, ".ws-product-description").Text())
	brand := strings.TrimSpace(firstOf(doc, `[itemprop="brand"]`, ".ws-product-brand").Text())

	var imageURL string
	if src, ok := firstOf(doc, `[itemprop="image"]`, ".ws-product-image img").Attr("src"); ok {
		imageURL = resolveRef(productURL, src)
	}

	category := "unknown"
	if crumbs := doc.Find(".breadcrumbs a"); crumbs.Length() >= 2 {
		category = strings.TrimSpace(crumbs.Eq(1).Text())
	}

	return &models.Product{
		ProductID: menyProductID(productURL),
		Name:      name,
		Brand:     brand,
		Info:      info,
		Price:     ParsePrice(priceText),
		PriceText: priceText,
		ImageURL:  imageURL,
		Category:  category,
		URL:       productURL,
		ScrapedAt: time.Now(),
	}, nil
}

// Close releases the scraper's resources.
func (m *Meny) Close() error {
	return nil
}

func (m *Meny) absURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return m.cfg.BaseURL + ref
}

// productCards finds the product card nodes on a listing page, falling back
// through Meny's markup variants.
func (m *Meny) productCards(doc *goquery.Document) []*goquery.Selection {
	collect := func(sel *goquery.Selection) []*goquery.Selection {
		cards := make([]*goquery.Selection, 0, sel.Length())
		sel.Each(func(_ int, s *goquery.Selection) {
			cards = append(cards, s)
		})
		return cards
	}

	if sel := doc.Find("li.ws-product-list-vertical__item"); sel.Length() > 0 {
		return collect(sel)
	}
	if sel := doc.Find("div.ws-product-vertical"); sel.Length() > 0 {
		return collect(sel)
	}

	// Anything inside the product list with a price and an image is very
	// likely a product.
	var cards []*goquery.Selection
	doc.Find("ul.ws-product-list-vertical li").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), "kr") && s.Find("img").Length() > 0 {
			cards = append(cards, s)
		}
	})
	return cards
}

// productFromCard extracts a product from one listing card. Cards without a
// usable link or price are dropped.
func (m *Meny) productFromCard(card *goquery.Selection, categoryName string) *models.Product {
	root := card.Find("div.ws-product-vertical").First()
	if root.Length() == 0 {
		root = card
	}

	link := root.Find("a.ws-product-vertical__link").First()
	if link.Length() == 0 {
		link = root.Find("h3 a").First()
	}
	href, ok := link.Attr("href")
	if !ok {
		m.logger.Warn().Msg("product card without link")
		return nil
	}

	productURL := href
	if !strings.HasPrefix(productURL, "http://") && !strings.HasPrefix(productURL, "https://") {
		productURL = m.cfg.BaseURL + productURL
	}

	name := strings.TrimSpace(root.Find("h3.ws-product-vertical__title").First().Text())
	if name == "" {
		name = strings.TrimSpace(link.Text())
	}

	info := strings.TrimSpace(root.Find("p.ws-product-vertical__subtitle").First().Text())

	// Brand tends to be the trailing word of the subtitle
	var brand string
	if parts := strings.Fields(info); len(parts) > 1 {
		brand = parts[len(parts)-1]
	}

	priceText := strings.TrimSpace(root.Find("div.ws-product-vertical__price").First().Text())
	if priceText == "" {
		m.logger.Warn().Str("name", name).Msg("product card without price")
		return nil
	}

	unitPrice := strings.TrimSpace(root.Find("p.ws-product-vertical__price-unit").First().Text())

	var imageURL string
	if src, ok := root.Find("img").First().Attr("src"); ok {
		imageURL = resolveRef(m.cfg.BaseURL+"/", src)
	}

	return &models.Product{
		ProductID: menyProductID(productURL),
		Name:      name,
		Brand:     brand,
		Info:      info,
		Price:     ParsePrice(priceText),
		PriceText: priceText,
		UnitPrice: unitPrice,
		ImageURL:  imageURL,
		Category:  categoryName,
		URL:       productURL,
		ScrapedAt: time.Now(),
	}
}

// menyProductID takes the id embedded in /varer/ URLs, falling back to a
// random id for odd links.
func menyProductID(productURL string) string {
	if i := strings.Index(productURL, "/varer/"); i >= 0 {
		id := strings.TrimRight(productURL[i+len("/varer/"):], "/")
		if id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// validMenyProductURL reports whether a URL points at an individual product
// rather than a category or campaign listing.
func validMenyProductURL(rawURL string) bool {
	if !strings.Contains(rawURL, "/varer/") {
		return false
	}
	for _, p := range []string{"/varer/tilbud/", "/varer/nyheter/", "/varer/oppskrifter/"} {
		if strings.Contains(rawURL, p) {
			return false
		}
	}
	parts := strings.SplitN(rawURL, "/varer/", 2)
	return len(parts) == 2 && parts[1] != ""
}

// menyPageURL sets the page query parameter on a category URL.
func menyPageURL(categoryURL string, page int) string {
	u, err := url.Parse(categoryURL)
	if err != nil {
		return categoryURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func hasShowMoreButton(doc *goquery.Document) bool {
	found := false
	doc.Find("button.ngr-button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "Vis flere") {
			found = true
			return false
		}
		return true
	})
	return found
}

// pagerExhausted reports whether the pagination widget says the current page
// is the last. Pages without a widget count as exhausted.
func pagerExhausted(doc *goquery.Document) bool {
	pager := doc.Find("[data-page]").First()
	if pager.Length() == 0 {
		return true
	}
	current, ok1 := pager.Attr("data-page")
	total, ok2 := pager.Attr("data-total-pages")
	if !ok1 || !ok2 {
		return true
	}
	c, err1 := strconv.Atoi(current)
	t, err2 := strconv.Atoi(total)
	if err1 != nil || err2 != nil {
		return true
	}
	return c >= t
}

func firstOf(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, s := range selectors {
		if sel := doc.Find(s).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find(selectors[len(selectors)-1]).First()
}
