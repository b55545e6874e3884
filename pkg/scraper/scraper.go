package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"matpris/internal/config"
	"matpris/internal/models"
	"matpris/pkg/fetch"
)

// ErrUnsupportedType is returned by New for a scraper.type outside the
// enumerated set.
var ErrUnsupportedType = errors.New("unsupported scraper type")

// Limits bounds a category scrape. Zero MaxProducts means unlimited;
// a nil MaxSubcategories means all subcategories are visited.
type Limits struct {
	MaxProducts      int
	MaxSubcategories *int
}

// Scraper extracts products from one grocery site.
type Scraper interface {
	// Products scrapes all products reachable from a category, bounded by
	// the given limits. Fetch failures for individual pages are logged and
	// skipped; the returned error reflects failures that abort the whole
	// category.
	Products(ctx context.Context, category config.Category, limits Limits) ([]models.Product, error)

	// Product scrapes a single product page.
	Product(ctx context.Context, productURL string) (*models.Product, error)

	// Close releases the scraper's resources.
	Close() error
}

// New returns the scraper implementation selected by scraper.type. The set
// of types is closed; anything else fails with ErrUnsupportedType.
func New(cfg *config.Config, logger zerolog.Logger) (Scraper, error) {
	client := fetch.New(cfg.Scraper, logger.With().Str("component", "fetch").Logger())

	switch cfg.Scraper.Type {
	case config.ScraperOda:
		return NewOda(cfg.Scraper.Oda, client, logger.With().Str("scraper", "oda").Logger()), nil
	case config.ScraperMeny:
		return NewMeny(cfg.Scraper.Meny, client, logger.With().Str("scraper", "meny").Logger()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Scraper.Type)
	}
}
