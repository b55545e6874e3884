package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure reported by Load and
// Validate. Configuration errors are fatal at startup.
var ErrInvalid = errors.New("invalid configuration")

// Storage backend types
const (
	StorageCSV      = "csv"
	StorageSupabase = "supabase"
)

// Scraper types
const (
	ScraperOda  = "oda"
	ScraperMeny = "meny"
)

var logLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// Config holds all application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Test profile limits, only present in test configurations
	Test *TestConfig `mapstructure:"test"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string         `mapstructure:"type"` // "csv" or "supabase"
	CSV      CSVConfig      `mapstructure:"csv"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

// CSVConfig holds settings for the CSV backend
type CSVConfig struct {
	OutputDir      string `mapstructure:"output_dir"`
	FilenamePrefix string `mapstructure:"filename_prefix"`
}

// SupabaseConfig holds settings for the Supabase backend. Connection
// credentials come from SUPABASE_URL and SUPABASE_KEY in the environment.
type SupabaseConfig struct {
	TableName string `mapstructure:"table_name"`
}

// ScraperConfig selects and configures the site scraper
type ScraperConfig struct {
	Type         string     `mapstructure:"type"` // "oda" or "meny"
	RequestDelay float64    `mapstructure:"request_delay"`
	MaxRetries   int        `mapstructure:"max_retries"`
	Timeout      int        `mapstructure:"timeout"` // seconds
	UserAgent    string     `mapstructure:"user_agent"`
	Oda          SiteConfig `mapstructure:"oda"`
	Meny         MenyConfig `mapstructure:"meny"`
}

// SiteConfig holds settings common to every site scraper
type SiteConfig struct {
	BaseURL    string     `mapstructure:"base_url"`
	Categories []Category `mapstructure:"categories"`
}

// MenyConfig extends SiteConfig with Meny's "Vis flere" pagination limits
type MenyConfig struct {
	SiteConfig      `mapstructure:",squash"`
	ProductsPerPage int `mapstructure:"products_per_page"`
	MaxPages        int `mapstructure:"max_pages"`
}

// Category is a named URL path representing a site section to scrape
type Category struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"` // DEBUG, INFO, WARNING, ERROR, CRITICAL
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// TestConfig limits scraping depth for test runs. MaxSubcategories nil
// means no limit.
type TestConfig struct {
	MaxProductsPerSubcategory int  `mapstructure:"max_products_per_subcategory"`
	MaxSubcategories          *int `mapstructure:"max_subcategories"`
}

// Load reads and validates configuration from the given YAML file
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.type", StorageCSV)
	v.SetDefault("storage.csv.output_dir", "data")
	v.SetDefault("storage.csv.filename_prefix", "products")
	v.SetDefault("storage.supabase.table_name", "products")

	// Scraper defaults
	v.SetDefault("scraper.type", ScraperOda)
	v.SetDefault("scraper.request_delay", 1.0)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.timeout", 30)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; matpris/1.0)")
	v.SetDefault("scraper.meny.products_per_page", 24)
	v.SetDefault("scraper.meny.max_pages", 20)

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "console")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageCSV, StorageSupabase:
	default:
		return fmt.Errorf("%w: storage.type %q is not one of %q, %q",
			ErrInvalid, c.Storage.Type, StorageCSV, StorageSupabase)
	}

	switch c.Scraper.Type {
	case ScraperOda, ScraperMeny:
	default:
		return fmt.Errorf("%w: scraper.type %q is not one of %q, %q",
			ErrInvalid, c.Scraper.Type, ScraperOda, ScraperMeny)
	}

	if c.Scraper.RequestDelay < 0 {
		return fmt.Errorf("%w: scraper.request_delay must not be negative", ErrInvalid)
	}
	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("%w: scraper.max_retries must not be negative", ErrInvalid)
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("%w: scraper.timeout must be positive", ErrInvalid)
	}

	if c.Scraper.Type == ScraperMeny {
		if c.Scraper.Meny.ProductsPerPage <= 0 {
			return fmt.Errorf("%w: scraper.meny.products_per_page must be positive", ErrInvalid)
		}
		if c.Scraper.Meny.MaxPages <= 0 {
			return fmt.Errorf("%w: scraper.meny.max_pages must be positive", ErrInvalid)
		}
	}

	if !logLevels[c.Logging.Level] {
		return fmt.Errorf("%w: logging.level %q is not a recognized level", ErrInvalid, c.Logging.Level)
	}

	return nil
}

// Site returns the site-specific configuration for the selected scraper type.
func (c *Config) Site() SiteConfig {
	if c.Scraper.Type == ScraperMeny {
		return c.Scraper.Meny.SiteConfig
	}
	return c.Scraper.Oda
}

// MaxSubcategories reports the test-profile subcategory limit. ok is false
// when no limit applies (no test section or an explicit null).
func (c *Config) MaxSubcategories() (limit int, ok bool) {
	if c.Test == nil || c.Test.MaxSubcategories == nil {
		return 0, false
	}
	return *c.Test.MaxSubcategories, true
}

// MaxProductsPerSubcategory reports the test-profile product limit, 0 when
// unset.
func (c *Config) MaxProductsPerSubcategory() int {
	if c.Test == nil {
		return 0
	}
	return c.Test.MaxProductsPerSubcategory
}
