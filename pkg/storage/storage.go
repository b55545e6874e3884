// Package storage persists scraped products behind a backend selected by
// configuration: date-stamped CSV files or a Supabase hosted table.
package storage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"matpris/internal/config"
	"matpris/internal/models"
)

var (
	// ErrUnsupportedType is returned by New for a storage.type outside the
	// enumerated set.
	ErrUnsupportedType = errors.New("unsupported storage type")

	// ErrWrite is wrapped by save failures and surfaced to the run caller.
	ErrWrite = errors.New("storage write failed")
)

// Filter selects products on read.
type Filter struct {
	Category    string
	Subcategory string
	RunID       string
	Limit       int // 0 = no limit
}

// Storage is a product persistence backend.
type Storage interface {
	// Init prepares the backend (creates directories, connects clients).
	Init() error

	// SaveProducts persists a batch. With replace set, existing rows with
	// the same product_id are overwritten instead of appended.
	SaveProducts(products []models.Product, replace bool) error

	// Products reads back stored products matching the filter.
	Products(filter Filter) ([]models.Product, error)

	// Clear removes all stored products.
	Clear() error

	// Close finalizes the backend.
	Close() error
}

// RunTracker is implemented by backends that record scraping run metadata
// alongside the products.
type RunTracker interface {
	StartRun(run RunRecord) error
	EndRun(runID, status, errorMessage string) error
}

// RunRecord describes one scraping run for tracking backends.
type RunRecord struct {
	RunID       string `json:"run_id"`
	ScraperType string `json:"scraper_type"`
	CategoryURL string `json:"category_url"`
	MaxProducts int    `json:"max_products,omitempty"`
	Replace     bool   `json:"replace_existing"`
	Status      string `json:"status"`
}

// New returns the backend selected by storage.type. The set of types is
// closed; anything else fails with ErrUnsupportedType.
func New(cfg config.StorageConfig, logger zerolog.Logger) (Storage, error) {
	switch cfg.Type {
	case config.StorageCSV:
		return NewCSV(cfg.CSV, logger.With().Str("storage", "csv").Logger()), nil
	case config.StorageSupabase:
		return NewSupabase(cfg.Supabase, logger.With().Str("storage", "supabase").Logger()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}
