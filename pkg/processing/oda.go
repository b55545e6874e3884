package processing

import (
	"matpris/internal/models"
)

// OdaProcessor enriches products scraped from Oda. Oda products carry a
// dense info string ("1% fett, 1,75 l, TINE") holding brand, size and fat
// content.
type OdaProcessor struct{}

// Process cleans the product text and fills in brand, subcategory and
// structured attributes.
func (*OdaProcessor) Process(p models.Product) (models.Product, error) {
	p.Name = cleanText(p.Name)
	p.Info = cleanText(p.Info)

	if p.Brand == "" {
		p.Brand = extractBrand(p.Info, p.Name)
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
