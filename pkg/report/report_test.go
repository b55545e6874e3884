package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() *Summary {
	return &Summary{
		ScraperType: "oda",
		Storage:     "csv",
		RunID:       "20260831_abc123def456",
		StartedAt:   time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2026, 8, 31, 12, 5, 0, 0, time.UTC),
		Categories: []CategoryResult{
			{Category: "meieri", RunID: "20260831_abc123def456_meieri", Products: 42, Saved: 42, Duration: 120.5},
			{Category: "frukt", RunID: "20260831_abc123def456_frukt", Error: "retries exhausted", Duration: 12.1},
		},
	}
}

func TestSummaryTotals(t *testing.T) {
	s := sampleSummary()
	assert.Equal(t, 42, s.TotalProducts())

	failed := s.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "frukt", failed[0].Category)
}

func TestRenderText(t *testing.T) {
	out, err := sampleSummary().Render("text")
	require.NoError(t, err)
	assert.Contains(t, out, "20260831_abc123def456")
	assert.Contains(t, out, "meieri")
	assert.Contains(t, out, "42 products")
	assert.Contains(t, out, "FAILED: retries exhausted")
	assert.Contains(t, out, "(1 failed)")
}

func TestRenderJSON(t *testing.T) {
	out, err := sampleSummary().Render("json")
	require.NoError(t, err)

	var decoded Summary
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "oda", decoded.ScraperType)
	require.Len(t, decoded.Categories, 2)
	assert.Equal(t, 42, decoded.Categories[0].Products)
}

func TestRenderUnsupportedFormat(t *testing.T) {
	_, err := sampleSummary().Render("xml")
	assert.Error(t, err)
}
