package processing

import (
	"matpris/internal/models"
)

// MenyProcessor enriches products scraped from Meny. Meny's card subtitles
// put the brand last, so the scraper's guess is replaced whenever the brand
// table recognizes something better.
type MenyProcessor struct{}

// Process cleans the product text and fills in brand, subcategory and
// structured attributes.
func (*MenyProcessor) Process(p models.Product) (models.Product, error) {
	p.Name = cleanText(p.Name)
	p.Info = cleanText(p.Info)

	if brand := extractBrand(p.Info, p.Name); brand != "" {
		p.Brand = brand
	}
	if p.Subcategory == "" || p.Subcategory == "other" {
		p.Subcategory = classifySubcategory(p.Name, p.Info)
	}

	attrs := extractAttributes(p.Info)
	if len(attrs) > 0 {
		if p.Attributes == nil {
			p.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			p.Attributes[k] = v
		}
	}

	return p, nil
}
