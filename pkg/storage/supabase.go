package storage

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"

	"matpris/internal/config"
	"matpris/internal/models"
)

const runsTable = "scrape_runs"

// Supabase stores products in a hosted Postgres table, upserting on
// product_id, and tracks scraping runs in a companion table. Credentials
// come from the SUPABASE_URL and SUPABASE_KEY environment variables.
type Supabase struct {
	table  string
	logger zerolog.Logger
	client *supabase.Client
}

// NewSupabase creates a Supabase backend. The client connects on Init.
func NewSupabase(cfg config.SupabaseConfig, logger zerolog.Logger) *Supabase {
	table := cfg.TableName
	if table == "" {
		table = "products"
	}
	return &Supabase{
		table:  table,
		logger: logger,
	}
}

// Init reads credentials from the environment and connects the client.
func (s *Supabase) Init() error {
	url := os.Getenv("SUPABASE_URL")
	key := os.Getenv("SUPABASE_KEY")
	if url == "" || key == "" {
		return fmt.Errorf("%w: SUPABASE_URL and SUPABASE_KEY must be set", ErrWrite)
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("%w: connect: %v", ErrWrite, err)
	}
	s.client = client

	// Probe the table so misconfiguration fails at startup, not mid-run.
	if _, _, err := s.client.From(s.table).Select("product_id", "", false).Limit(1, "").Execute(); err != nil {
		return fmt.Errorf("%w: probe table %s: %v", ErrWrite, s.table, err)
	}

	s.logger.Info().Str("table", s.table).Msg("connected to Supabase")
	return nil
}

// supabaseRow is the wire shape of a product in the products table.
type supabaseRow struct {
	ProductID   string            `json:"product_id"`
	Name        string            `json:"name"`
	Brand       string            `json:"brand,omitempty"`
	Info        string            `json:"info,omitempty"`
	Price       float64           `json:"price"`
	PriceText   string            `json:"price_text,omitempty"`
	UnitPrice   string            `json:"unit_price,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	URL         string            `json:"url,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ScrapedAt   string            `json:"scraped_at,omitempty"`
	RunID       string            `json:"run_id,omitempty"`
}

func rowFromProduct(p models.Product) supabaseRow {
	row := supabaseRow{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Brand:       p.Brand,
		Info:        p.Info,
		Price:       p.Price,
		PriceText:   p.PriceText,
		UnitPrice:   p.UnitPrice,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		URL:         p.URL,
		Attributes:  p.Attributes,
		RunID:       p.RunID,
	}
	if !p.ScrapedAt.IsZero() {
		row.ScrapedAt = p.ScrapedAt.Format(time.RFC3339)
	}
	return row
}

func (r supabaseRow) product() models.Product {
	p := models.Product{
		ProductID:   r.ProductID,
		Name:        r.Name,
		Brand:       r.Brand,
		Info:        r.Info,
		Price:       r.Price,
		PriceText:   r.PriceText,
		UnitPrice:   r.UnitPrice,
		ImageURL:    r.ImageURL,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		URL:         r.URL,
		Attributes:  r.Attributes,
		RunID:       r.RunID,
	}
	if r.ScrapedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.ScrapedAt); err == nil {
			p.ScrapedAt = t
		}
	}
	return p
}

// SaveProducts upserts a batch on product_id. The replace flag is implicit
// in the upsert; false still overwrites stale rows for re-scraped products.
func (s *Supabase) SaveProducts(products []models.Product, replace bool) error {
	if s.client == nil {
		return fmt.Errorf("%w: not initialized", ErrWrite)
	}
	if len(products) == 0 {
		s.logger.Warn().Msg("no products to save")
		return nil
	}

	rows := make([]supabaseRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, rowFromProduct(p))
	}

	if _, _, err := s.client.From(s.table).Insert(rows, true, "product_id", "", "").Execute(); err != nil {
		return fmt.Errorf("%w: upsert %d products: %v", ErrWrite, len(rows), err)
	}

	s.logger.Info().Int("products", len(rows)).Msg("saved products to Supabase")
	return nil
}

// Products reads back stored products matching the filter.
func (s *Supabase) Products(filter Filter) ([]models.Product, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: not initialized", ErrWrite)
	}

	q := s.client.From(s.table).Select("*", "", false)
	if filter.Category != "" {
		q = q.Eq("category", filter.Category)
	}
	if filter.Subcategory != "" {
		q = q.Eq("subcategory", filter.Subcategory)
	}
	if filter.RunID != "" {
		q = q.Eq("run_id", filter.RunID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit, "")
	}

	var rows []supabaseRow
	if _, err := q.ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}

	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.product())
	}
	return products, nil
}

// Clear deletes every row from the products table.
func (s *Supabase) Clear() error {
	if s.client == nil {
		return fmt.Errorf("%w: not initialized", ErrWrite)
	}

	// PostgREST refuses unfiltered deletes, so match every non-empty id.
	if _, _, err := s.client.From(s.table).Delete("", "").Neq("product_id", "").Execute(); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrWrite, s.table, err)
	}

	s.logger.Info().Str("table", s.table).Msg("cleared Supabase table")
	return nil
}

// Close releases the client.
func (s *Supabase) Close() error {
	s.client = nil
	return nil
}

// StartRun records a run starting in the scrape_runs table.
func (s *Supabase) StartRun(run RunRecord) error {
	if s.client == nil {
		return fmt.Errorf("%w: not initialized", ErrWrite)
	}

	row := map[string]any{
		"run_id":           run.RunID,
		"scraper_type":     run.ScraperType,
		"category_url":     run.CategoryURL,
		"replace_existing": run.Replace,
		"status":           "running",
		"started_at":       time.Now().Format(time.RFC3339),
	}
	if run.MaxProducts > 0 {
		row["max_products"] = run.MaxProducts
	}

	if _, _, err := s.client.From(runsTable).Insert(row, true, "run_id", "", "").Execute(); err != nil {
		return fmt.Errorf("%w: start run %s: %v", ErrWrite, run.RunID, err)
	}
	return nil
}

// EndRun marks a run finished with its final status.
func (s *Supabase) EndRun(runID, status, errorMessage string) error {
	if s.client == nil {
		return fmt.Errorf("%w: not initialized", ErrWrite)
	}

	update := map[string]any{
		"status":   status,
		"ended_at": time.Now().Format(time.RFC3339),
	}
	if errorMessage != "" {
		update["error_message"] = errorMessage
	}

	if _, _, err := s.client.From(runsTable).Update(update, "", "").Eq("run_id", runID).Execute(); err != nil {
		return fmt.Errorf("%w: end run %s: %v", ErrWrite, runID, err)
	}
	return nil
}
