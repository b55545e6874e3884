// Package processing normalizes scraped products: cleaning text, filling in
// brand and subcategory, and extracting structured attributes from the
// free-form info string.
package processing

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"matpris/internal/config"
	"matpris/internal/models"
)

// ErrUnsupportedType is returned by New for a scraper type outside the
// enumerated set.
var ErrUnsupportedType = errors.New("unsupported processor type")

// Processor enriches a single product. Implementations must not modify the
// input on error.
type Processor interface {
	Process(p models.Product) (models.Product, error)
}

// New returns the processor matching the scraper type.
func New(scraperType string) (Processor, error) {
	switch scraperType {
	case config.ScraperOda:
		return &OdaProcessor{}, nil
	case config.ScraperMeny:
		return &MenyProcessor{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, scraperType)
	}
}

// ProcessAll runs every product through the processor. A product that fails
// processing is kept unmodified so a bad info string never loses a row.
func ProcessAll(proc Processor, products []models.Product, logger zerolog.Logger) []models.Product {
	processed := make([]models.Product, 0, len(products))
	for _, p := range products {
		out, err := proc.Process(p)
		if err != nil {
			logger.Warn().Str("product_id", p.ProductID).Err(err).Msg("keeping unprocessed product")
			processed = append(processed, p)
			continue
		}
		processed = append(processed, out)
	}
	return processed
}
