package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"matpris/internal/config"
	"matpris/internal/logging"
	"matpris/pkg/processing"
	"matpris/pkg/report"
	"matpris/pkg/runid"
	"matpris/pkg/scraper"
	"matpris/pkg/storage"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape configured categories and store the products",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		scraperType, _ := cmd.Flags().GetString("scraper")
		categoryFilter, _ := cmd.Flags().GetString("category")
		categoryURL, _ := cmd.Flags().GetString("category-url")
		maxProducts, _ := cmd.Flags().GetInt("max-products")
		runID, _ := cmd.Flags().GetString("run-id")
		seed, _ := cmd.Flags().GetString("seed")
		replace, _ := cmd.Flags().GetBool("replace")
		format, _ := cmd.Flags().GetString("format")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if scraperType != "" {
			cfg.Scraper.Type = scraperType
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		if debug {
			cfg.Logging.Level = "DEBUG"
		}

		logger, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runScrape(ctx, cfg, logger, scrapeOptions{
			categoryFilter: categoryFilter,
			categoryURL:    categoryURL,
			maxProducts:    maxProducts,
			runID:          runID,
			seed:           seed,
			replace:        replace,
			format:         format,
			out:            cmd.OutOrStdout(),
		})
	},
}

func init() {
	scrapeCmd.Flags().String("scraper", "", "Override scraper type (oda, meny)")
	scrapeCmd.Flags().String("category", "", "Only scrape the named category")
	scrapeCmd.Flags().String("category-url", "", "Scrape a single category URL instead of the configured ones")
	scrapeCmd.Flags().Int("max-products", 0, "Maximum products per subcategory (0 = unlimited)")
	scrapeCmd.Flags().String("run-id", "", "Use a fixed run ID instead of generating one")
	scrapeCmd.Flags().String("seed", "", "Seed for deterministic run ID generation")
	scrapeCmd.Flags().Bool("replace", false, "Replace existing rows for re-scraped products")
	scrapeCmd.Flags().String("format", "text", "Summary format (text, json)")
}

type scrapeOptions struct {
	categoryFilter string
	categoryURL    string
	maxProducts    int
	runID          string
	seed           string
	replace        bool
	format         string
	out            io.Writer
}

func runScrape(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts scrapeOptions) error {
	store, err := storage.New(cfg.Storage, logging.WithComponent(logger, "storage"))
	if err != nil {
		return err
	}
	if err := store.Init(); err != nil {
		return err
	}
	defer store.Close()

	scr, err := scraper.New(cfg, logger)
	if err != nil {
		return err
	}
	defer scr.Close()

	proc, err := processing.New(cfg.Scraper.Type)
	if err != nil {
		return err
	}

	var categories []config.Category
	if opts.categoryURL != "" {
		name := strings.TrimRight(opts.categoryURL, "/")
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		categories = []config.Category{{Name: name, URL: opts.categoryURL}}
	} else {
		categories, err = selectCategories(cfg, opts.categoryFilter)
		if err != nil {
			return err
		}
	}

	baseRun := opts.runID
	if baseRun == "" {
		baseRun = runid.Format(runid.Generate(opts.seed), time.Now())
	}

	limits := scraper.Limits{MaxProducts: opts.maxProducts}
	if limits.MaxProducts == 0 {
		limits.MaxProducts = cfg.MaxProductsPerSubcategory()
	}
	if n, ok := cfg.MaxSubcategories(); ok {
		limits.MaxSubcategories = &n
	}

	tracker, _ := store.(storage.RunTracker)

	summary := &report.Summary{
		ScraperType: cfg.Scraper.Type,
		Storage:     cfg.Storage.Type,
		RunID:       baseRun,
		StartedAt:   time.Now(),
	}

	var failures int
	for _, category := range categories {
		result := scrapeCategory(ctx, cfg, scr, proc, store, tracker, logger, category, baseRun, limits, opts.replace)
		summary.Categories = append(summary.Categories, result)
		if result.Error != "" {
			failures++
		}
		if ctx.Err() != nil {
			break
		}
	}
	summary.FinishedAt = time.Now()

	rendered, err := summary.Render(opts.format)
	if err != nil {
		return err
	}
	fmt.Fprintln(opts.out, rendered)

	if failures > 0 {
		return fmt.Errorf("%d of %d categories failed", failures, len(categories))
	}
	return ctx.Err()
}

func scrapeCategory(
	ctx context.Context,
	cfg *config.Config,
	scr scraper.Scraper,
	proc processing.Processor,
	store storage.Storage,
	tracker storage.RunTracker,
	logger zerolog.Logger,
	category config.Category,
	baseRun string,
	limits scraper.Limits,
	replace bool,
) report.CategoryResult {
	started := time.Now()
	catRun := runid.ForCategory(baseRun, category.Name)
	result := report.CategoryResult{Category: category.Name, RunID: catRun}

	logger.Info().Str("category", category.Name).Str("run_id", catRun).Msg("scraping category")

	if tracker != nil {
		err := tracker.StartRun(storage.RunRecord{
			RunID:       catRun,
			ScraperType: cfg.Scraper.Type,
			CategoryURL: category.URL,
			MaxProducts: limits.MaxProducts,
			Replace:     replace,
			Status:      "running",
		})
		if err != nil {
			logger.Warn().Str("run_id", catRun).Err(err).Msg("run tracking unavailable")
			tracker = nil
		}
	}

	products, err := scr.Products(ctx, category, limits)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(started).Seconds()
		logger.Error().Str("category", category.Name).Err(err).Msg("category scrape failed")
		endRun(tracker, logger, catRun, "failed", err.Error())
		return result
	}

	for i := range products {
		products[i].RunID = catRun
	}
	products = processing.ProcessAll(proc, products, logging.WithComponent(logger, "processing"))
	result.Products = len(products)

	if err := store.SaveProducts(products, replace); err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(started).Seconds()
		logger.Error().Str("category", category.Name).Err(err).Msg("failed to save products")
		endRun(tracker, logger, catRun, "failed", err.Error())
		return result
	}
	result.Saved = len(products)
	result.Duration = time.Since(started).Seconds()

	endRun(tracker, logger, catRun, "completed", "")
	logger.Info().
		Str("category", category.Name).
		Int("products", len(products)).
		Msg("category done")
	return result
}

func endRun(tracker storage.RunTracker, logger zerolog.Logger, runID, status, message string) {
	if tracker == nil {
		return
	}
	if err := tracker.EndRun(runID, status, message); err != nil {
		logger.Warn().Str("run_id", runID).Err(err).Msg("failed to record run end")
	}
}

// selectCategories resolves the configured categories against the site base
// URL and applies the optional name filter.
func selectCategories(cfg *config.Config, filter string) ([]config.Category, error) {
	site := cfg.Site()
	if len(site.Categories) == 0 {
		return nil, fmt.Errorf("no categories configured for scraper %q", cfg.Scraper.Type)
	}

	categories := make([]config.Category, 0, len(site.Categories))
	for _, c := range site.Categories {
		if !strings.Contains(c.URL, "://") && site.BaseURL != "" {
			c.URL = strings.TrimSuffix(site.BaseURL, "/") + "/" + strings.TrimPrefix(c.URL, "/")
		}
		if filter != "" && c.Name != filter {
			continue
		}
		categories = append(categories, c)
	}

	if filter != "" && len(categories) == 0 {
		return nil, fmt.Errorf("category %q is not configured", filter)
	}
	return categories, nil
}
