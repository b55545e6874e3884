package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Product represents a single scraped grocery product
type Product struct {
	ProductID   string            `json:"product_id"`
	Name        string            `json:"name"`
	Brand       string            `json:"brand,omitempty"`
	Info        string            `json:"info"`
	Price       float64           `json:"price"`
	PriceText   string            `json:"price_text"`
	UnitPrice   string            `json:"unit_price,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	URL         string            `json:"url,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ScrapedAt   time.Time         `json:"scraped_at"`
	RunID       string            `json:"run_id,omitempty"`
}

// CSVHeader lists the columns used by the CSV storage backend, in order.
func CSVHeader() []string {
	return []string{
		"product_id", "name", "brand", "info", "price", "price_text",
		"unit_price", "image_url", "category", "subcategory", "url",
		"attributes", "scraped_at", "run_id",
	}
}

// CSVRecord renders the product as a CSV row matching CSVHeader.
func (p Product) CSVRecord() []string {
	attrs := ""
	if len(p.Attributes) > 0 {
		if b, err := json.Marshal(p.Attributes); err == nil {
			attrs = string(b)
		}
	}
	return []string{
		p.ProductID,
		p.Name,
		p.Brand,
		p.Info,
		strconv.FormatFloat(p.Price, 'f', -1, 64),
		p.PriceText,
		p.UnitPrice,
		p.ImageURL,
		p.Category,
		p.Subcategory,
		p.URL,
		attrs,
		p.ScrapedAt.Format(time.RFC3339),
		p.RunID,
	}
}
