package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"matpris/internal/config"
	"matpris/internal/models"
	"matpris/pkg/utils"
)

// CSV stores products in date-stamped files under a configured directory,
// one file per category per day:
//
//	<output_dir>/<prefix>_<category>_<YYYY-MM-DD>.csv
type CSV struct {
	outputDir string
	prefix    string
	logger    zerolog.Logger

	// now is swapped out by tests
	now func() time.Time
}

// NewCSV creates a CSV backend from its configuration.
func NewCSV(cfg config.CSVConfig, logger zerolog.Logger) *CSV {
	return &CSV{
		outputDir: cfg.OutputDir,
		prefix:    cfg.FilenamePrefix,
		logger:    logger,
		now:       time.Now,
	}
}

// Init creates the output directory.
func (s *CSV) Init() error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, s.outputDir, err)
	}
	s.logger.Info().Str("dir", s.outputDir).Msg("initialized CSV storage")
	return nil
}

func (s *CSV) filename(category string) string {
	date := s.now().Format("2006-01-02")
	name := s.prefix
	if category != "" {
		name += "_" + utils.SanitizeFilename(category)
	}
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.csv", name, date))
}

// SaveProducts appends products to their per-category files. With replace
// set, rows whose product_id reappears in the batch are rewritten instead.
func (s *CSV) SaveProducts(products []models.Product, replace bool) error {
	if len(products) == 0 {
		s.logger.Warn().Msg("no products to save")
		return nil
	}

	byCategory := make(map[string][]models.Product)
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = "uncategorized"
		}
		byCategory[category] = append(byCategory[category], p)
	}

	for category, batch := range byCategory {
		if err := s.saveCategory(category, batch, replace); err != nil {
			return err
		}
	}

	s.logger.Info().Int("products", len(products)).Msg("saved products to CSV")
	return nil
}

func (s *CSV) saveCategory(category string, batch []models.Product, replace bool) error {
	path := s.filename(category)

	var existing [][]string
	if replace {
		replaced := make(map[string]bool, len(batch))
		for _, p := range batch {
			replaced[p.ProductID] = true
		}
		rows, err := readRows(path)
		if err != nil {
			return fmt.Errorf("%w: read %s: %v", ErrWrite, path, err)
		}
		for _, row := range rows {
			if len(row) > 0 && !replaced[row[0]] {
				existing = append(existing, row)
			}
		}
	}

	var f *os.File
	var writeHeader bool
	var err error

	if replace {
		f, err = os.Create(path)
		writeHeader = true
	} else {
		_, statErr := os.Stat(path)
		writeHeader = os.IsNotExist(statErr)
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrWrite, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(models.CSVHeader()); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	for _, row := range existing {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	for _, p := range batch {
		if err := w.Write(p.CSVRecord()); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", ErrWrite, path, err)
	}

	return nil
}

// Products reads back stored products matching the filter, across all files
// written under the configured prefix.
func (s *CSV) Products(filter Filter) ([]models.Product, error) {
	pattern := filepath.Join(s.outputDir, s.prefix+"*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	for _, file := range files {
		rows, err := readRows(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for _, row := range rows {
			p, err := productFromRecord(row)
			if err != nil {
				s.logger.Warn().Str("file", file).Err(err).Msg("skipping malformed row")
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.Subcategory != "" && p.Subcategory != filter.Subcategory {
				continue
			}
			if filter.RunID != "" && p.RunID != filter.RunID {
				continue
			}
			products = append(products, p)
			if filter.Limit > 0 && len(products) >= filter.Limit {
				return products, nil
			}
		}
	}

	return products, nil
}

// Clear removes every file written under the configured prefix.
func (s *CSV) Clear() error {
	pattern := filepath.Join(s.outputDir, s.prefix+"*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("%w: remove %s: %v", ErrWrite, file, err)
		}
	}
	s.logger.Info().Int("files", len(files)).Msg("cleared CSV storage")
	return nil
}

// Close is a no-op for the CSV backend.
func (s *CSV) Close() error {
	return nil
}

// readRows reads all data rows from a CSV file, skipping the header. A
// missing file yields no rows.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

// productFromRecord parses a CSV row in CSVHeader order.
func productFromRecord(row []string) (models.Product, error) {
	var p models.Product
	if len(row) != len(models.CSVHeader()) {
		return p, fmt.Errorf("expected %d fields, got %d", len(models.CSVHeader()), len(row))
	}

	price, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return p, fmt.Errorf("bad price %q: %w", row[4], err)
	}

	p = models.Product{
		ProductID:   row[0],
		Name:        row[1],
		Brand:       row[2],
		Info:        row[3],
		Price:       price,
		PriceText:   row[5],
		UnitPrice:   row[6],
		ImageURL:    row[7],
		Category:    row[8],
		Subcategory: row[9],
		URL:         row[10],
		RunID:       row[13],
	}

	if row[11] != "" {
		if err := json.Unmarshal([]byte(row[11]), &p.Attributes); err != nil {
			return p, fmt.Errorf("bad attributes: %w", err)
		}
	}
	if row[12] != "" {
		t, err := time.Parse(time.RFC3339, row[12])
		if err != nil {
			return p, fmt.Errorf("bad scraped_at %q: %w", row[12], err)
		}
		p.ScrapedAt = t
	}

	return p, nil
}
