// Package report renders run summaries after a scrape finishes.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// CategoryResult summarizes the outcome of one scraped category.
type CategoryResult struct {
	Category      string  `json:"category"`
	RunID         string  `json:"run_id"`
	Products      int     `json:"products"`
	Saved         int     `json:"saved"`
	Subcategories int     `json:"subcategories,omitempty"`
	Duration      float64 `json:"duration_seconds"`
	Error         string  `json:"error,omitempty"`
}

// Summary aggregates a full scraping run across categories.
type Summary struct {
	ScraperType string           `json:"scraper_type"`
	Storage     string           `json:"storage"`
	RunID       string           `json:"run_id"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Categories  []CategoryResult `json:"categories"`
}

// TotalProducts sums products across all categories.
func (s *Summary) TotalProducts() int {
	total := 0
	for _, c := range s.Categories {
		total += c.Products
	}
	return total
}

// Failed returns the categories that ended with an error.
func (s *Summary) Failed() []CategoryResult {
	var failed []CategoryResult
	for _, c := range s.Categories {
		if c.Error != "" {
			failed = append(failed, c)
		}
	}
	return failed
}

// Render formats the summary in the requested format.
func (s *Summary) Render(format string) (string, error) {
	switch format {
	case "json":
		return s.renderJSON()
	case "text", "":
		return s.renderText(), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *Summary) renderJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	return string(data), nil
}

func (s *Summary) renderText() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Scrape run %s (%s -> %s)\n", s.RunID, s.ScraperType, s.Storage)
	fmt.Fprintf(&buf, "Started:  %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "Finished: %s\n\n", s.FinishedAt.Format("2006-01-02 15:04:05"))

	for _, c := range s.Categories {
		status := "ok"
		if c.Error != "" {
			status = "FAILED: " + c.Error
		}
		fmt.Fprintf(&buf, "  %-30s %4d products  %6.1fs  %s\n",
			c.Category, c.Products, c.Duration, status)
	}

	failed := s.Failed()
	fmt.Fprintf(&buf, "\nTotal: %d products across %d categories", s.TotalProducts(), len(s.Categories))
	if len(failed) > 0 {
		fmt.Fprintf(&buf, " (%d failed)", len(failed))
	}
	fmt.Fprintf(&buf, "\n")

	return buf.String()
}
