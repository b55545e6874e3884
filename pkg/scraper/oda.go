package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"matpris/internal/config"
	"matpris/internal/models"
	"matpris/pkg/fetch"
	"matpris/pkg/utils"
)

// Oda pagination uses a cursor query parameter; this bounds runaway loops
// when the site keeps serving the same page.
const odaMaxPaginationAttempts = 20

var (
	subcategoryCountRe = regexp.MustCompile(`\s*\(\d+\)\s*$`)
	cursorRe           = regexp.MustCompile(`cursor=\d+`)
)

// Oda scrapes oda.com. Category pages list subcategories; each subcategory
// paginates with a cursor parameter and links out to individual product
// pages, which hold the actual product data.
type Oda struct {
	site   config.SiteConfig
	client *fetch.Client
	logger zerolog.Logger
}

// NewOda creates an Oda scraper.
func NewOda(site config.SiteConfig, client *fetch.Client, logger zerolog.Logger) *Oda {
	return &Oda{
		site:   config.SiteConfig{BaseURL: strings.TrimRight(site.BaseURL, "/"), Categories: site.Categories},
		client: client,
		logger: logger,
	}
}

// Products scrapes every subcategory of a category. The subcategory listing
// aborts the category when unreachable; individual product fetch failures
// are logged and skipped.
func (o *Oda) Products(ctx context.Context, category config.Category, limits Limits) ([]models.Product, error) {
	categoryURL := o.absURL(category.URL)
	categoryName := category.Name
	if categoryName == "" {
		categoryName = categoryNameFromURL(categoryURL)
	}

	subcategories, err := o.subcategories(ctx, categoryURL)
	if err != nil {
		return nil, fmt.Errorf("list subcategories of %s: %w", categoryName, err)
	}
	o.logger.Info().Str("category", categoryName).Int("subcategories", len(subcategories)).Msg("discovered subcategories")

	// Scrape the category page itself too, unless it already appeared
	// among its own subcategories.
	hasMain := false
	for _, sub := range subcategories {
		if sub.URL == categoryURL {
			hasMain = true
			break
		}
	}
	if !hasMain {
		subcategories = append(subcategories, config.Category{
			Name: "Alle i " + strings.ReplaceAll(categoryName, "-", " "),
			URL:  categoryURL,
		})
	}

	subcategories = dedupeCategories(subcategories)
	if limits.MaxSubcategories != nil && len(subcategories) > *limits.MaxSubcategories {
		subcategories = subcategories[:*limits.MaxSubcategories]
	}

	var all []models.Product
	for _, sub := range subcategories {
		products, err := o.subcategoryProducts(ctx, sub, categoryName, limits.MaxProducts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return all, err
			}
			o.logger.Warn().Str("subcategory", sub.Name).Err(err).Msg("skipping subcategory")
			continue
		}
		o.logger.Info().Str("subcategory", sub.Name).Int("products", len(products)).Msg("scraped subcategory")
		all = append(all, products...)
	}

	return all, nil
}

// Product scrapes a single product page.
func (o *Oda) Product(ctx context.Context, productURL string) (*models.Product, error) {
	body, err := o.client.Get(ctx, productURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", productURL, err)
	}
	return o.extractProduct(doc, productURL)
}

// Close releases the underlying HTTP resources.
func (o *Oda) Close() error {
	return nil
}

func (o *Oda) absURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return o.site.BaseURL + ref
}

// subcategories extracts subcategory links from a category page. The primary
// path walks section anchors with goquery; when the markup defeats the
// selectors, a raw link walk over the parsed tree catches anything pointing
// back into /categories/.
func (o *Oda) subcategories(ctx context.Context, categoryURL string) ([]config.Category, error) {
	body, err := o.client.Get(ctx, categoryURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", categoryURL, err)
	}

	var subcategories []config.Category
	doc.Find("section a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "/categories/") {
			return
		}
		name := sel.Find("span").First().Text()
		if name == "" {
			name = sel.Text()
		}
		name = cleanSubcategoryName(name)
		if name == "" {
			return
		}
		subcategories = append(subcategories, config.Category{
			Name: name,
			URL:  resolveRef(categoryURL, href),
		})
	})

	if len(subcategories) == 0 {
		o.logger.Debug().Str("url", categoryURL).Msg("selector pass found no subcategories, walking all links")
		subcategories = fallbackCategoryLinks(body, categoryURL)
	}

	return subcategories, nil
}

// subcategoryProducts pages through one subcategory, collecting product URLs
// and then fetching each product page.
func (o *Oda) subcategoryProducts(ctx context.Context, sub config.Category, categoryName string, maxProducts int) ([]models.Product, error) {
	var productURLs []string

	for cursor := 1; cursor <= odaMaxPaginationAttempts; cursor++ {
		pageURL := odaPageURL(sub.URL, cursor)
		urls, err := o.productURLs(ctx, pageURL)
		if err != nil {
			if cursor == 1 {
				return nil, err
			}
			o.logger.Warn().Str("url", pageURL).Err(err).Msg("pagination stopped early")
			break
		}
		if len(urls) == 0 {
			break
		}
		productURLs = append(productURLs, urls...)
		if maxProducts > 0 && len(productURLs) >= maxProducts {
			productURLs = productURLs[:maxProducts]
			break
		}
	}

	products := make([]models.Product, 0, len(productURLs))
	for _, u := range productURLs {
		p, err := o.Product(ctx, u)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return products, err
			}
			o.logger.Warn().Str("url", u).Err(err).Msg("skipping product")
			continue
		}
		p.Category = categoryName
		p.Subcategory = sub.Name
		products = append(products, *p)
	}

	return products, nil
}

// productURLs extracts product page links from a listing page. Product cards
// are article elements; older markup is covered by matching hrefs instead.
func (o *Oda) productURLs(ctx context.Context, pageURL string) ([]string, error) {
	body, err := o.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	seen := make(map[string]bool)
	var urls []string
	add := func(href string) {
		full := resolveRef(pageURL, href)
		if !seen[full] {
			seen[full] = true
			urls = append(urls, full)
		}
	}

	doc.Find("article a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			add(href)
		}
	})

	if len(urls) == 0 {
		doc.Find(`a[href*="/products/"], a[href*="/product/"]`).Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok {
				add(href)
			}
		})
	}

	return urls, nil
}

// extractProduct pulls product fields out of a product page. Oda's design
// system classes are tried first, with looser text probes as fallback.
func (o *Oda) extractProduct(doc *goquery.Document, productURL string) (*models.Product, error) {
	name := strings.TrimSpace(doc.Find("h2").First().Text())
	if name == "" {
		return nil, fmt.Errorf("no product name at %s", productURL)
	}

	info := strings.TrimSpace(doc.Find("p.k-text-style--body-s").First().Text())

	priceText := findPriceText(doc,
		"span.k-text-style--label-m.k-text--weight-bold",
		"span.k-text-color--default",
		"div.price span",
		`span[class*="price"]`,
		"span.k-text-style--label-m",
	)
	if priceText == "" {
		return nil, fmt.Errorf("no price for %q at %s", name, productURL)
	}

	var unitPrice string
	doc.Find(`p.k-text-style--label-s.k-text-color--subdued, p.k-text-style--label-s, p[class*="subdued"], span[class*="unit"]`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if strings.Contains(text, "/") && strings.Contains(text, "kr") {
				unitPrice = text
				return false
			}
			return true
		})

	var imageURL string
	if src, ok := doc.Find("img").First().Attr("src"); ok {
		imageURL = resolveRef(productURL, src)
	}

	return &models.Product{
		ProductID: GenerateProductID(name, info),
		Name:      name,
		Info:      info,
		Price:     ParsePrice(priceText),
		PriceText: priceText,
		UnitPrice: unitPrice,
		ImageURL:  imageURL,
		URL:       productURL,
		ScrapedAt: time.Now(),
	}, nil
}

// findPriceText tries each selector in order and returns the first matched
// text that looks like a price.
func findPriceText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if strings.Contains(text, "kr") && strings.ContainsAny(text, "0123456789") {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	var found string
	doc.Find("span, div, p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if strings.Contains(text, "kr") && strings.ContainsAny(text, "0123456789") && len(text) < 32 {
			found = text
			return false
		}
		return true
	})
	return found
}

// odaPageURL appends or replaces the pagination cursor on a subcategory URL.
func odaPageURL(subcategoryURL string, cursor int) string {
	if strings.Contains(subcategoryURL, "cursor=") {
		return cursorRe.ReplaceAllString(subcategoryURL, fmt.Sprintf("cursor=%d", cursor))
	}
	if strings.Contains(subcategoryURL, "?") {
		return fmt.Sprintf("%s&cursor=%d", subcategoryURL, cursor)
	}
	return fmt.Sprintf("%s?filters=&cursor=%d", subcategoryURL, cursor)
}

// cleanSubcategoryName strips Oda's selection checkmark and the product
// count suffix, e.g. "✓Melk (84)" becomes "Melk".
func cleanSubcategoryName(name string) string {
	name = strings.ReplaceAll(name, "✓", "")
	name = subcategoryCountRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// dedupeCategories drops categories whose URL, ignoring query parameters,
// was already seen.
func dedupeCategories(categories []config.Category) []config.Category {
	seen := make(map[string]bool)
	out := categories[:0]
	for _, c := range categories {
		base := utils.NormalizeURL(c.URL)
		if !seen[base] {
			seen[base] = true
			out = append(out, c)
		}
	}
	return out
}

// fallbackCategoryLinks walks the raw HTML tree for anchors into
// /categories/ when the structured selectors come up empty.
func fallbackCategoryLinks(body []byte, baseURL string) []config.Category {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var categories []config.Category
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
				}
			}
			if href != "" && strings.Contains(href, "/categories/") {
				name := cleanSubcategoryName(nodeText(n))
				if name != "" {
					categories = append(categories, config.Category{
						Name: name,
						URL:  resolveRef(baseURL, href),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return categories
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
