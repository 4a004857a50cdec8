package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tilemirror/internal/config"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scrape", "serve", "status", "migrate"} {
		assert.True(t, names[want], want)
	}
}

func TestApplyScrapeFlags(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })
	cfg = &config.Config{
		Scraper: config.ScraperConfig{Zoom: 16, TileCount: 5000, PaceMs: 100},
	}

	cmd := scrapeCmd
	require.NoError(t, cmd.Flags().Set("zoom", "14"))
	require.NoError(t, cmd.Flags().Set("pace", "250ms"))
	applyScrapeFlags(cmd)

	assert.Equal(t, 14, cfg.Scraper.Zoom)
	assert.Equal(t, 250, cfg.Scraper.PaceMs)
	// Untouched flag keeps the config value.
	assert.Equal(t, 5000, cfg.Scraper.TileCount)
}

func TestParseSinceFlag(t *testing.T) {
	ts, err := parseSinceFlag("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts)

	ts, err = parseSinceFlag("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ts)

	_, err = parseSinceFlag("yesterday")
	assert.Error(t, err)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}

	_, err := openStore(context.Background())
	assert.Error(t, err)
}
