package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/region"
	"github.com/sells-group/tilemirror/internal/scheduler"
	"github.com/sells-group/tilemirror/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch the stalest tiles in the region",
	Long: `Enumerates every tile at the configured zoom intersecting the region
boundary, orders them stalest-first (never-fetched tiles ahead of everything
else), and fetches up to --count tiles at a fixed pace.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyScrapeFlags(cmd)
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "scrape"))

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "scrape: migrate")
		}

		b, err := boundary.Load(cfg.Boundary.Path)
		if err != nil {
			return eris.Wrap(err, "scrape: load boundary")
		}

		tiles, err := region.Enumerate(b, cfg.Scraper.Zoom)
		if err != nil {
			return eris.Wrap(err, "scrape: enumerate region")
		}

		lastRequested, err := st.SnapshotLastRequested(ctx, cfg.Scraper.Zoom)
		if err != nil {
			return eris.Wrap(err, "scrape: snapshot last_requested")
		}
		queue := scheduler.BuildQueue(tiles, lastRequested)

		log.Info("starting scrape",
			zap.Int("zoom", cfg.Scraper.Zoom),
			zap.Int("region_tiles", len(tiles)),
			zap.Int("target_count", cfg.Scraper.TileCount),
			zap.Duration("pace", cfg.Scraper.Pace()),
		)

		runID, err := st.StartRun(ctx, cfg.Scraper.Zoom, nowUTC())
		if err != nil {
			return eris.Wrap(err, "scrape: start run")
		}

		worker := scraper.NewWorker(st, scraper.NewClient(cfg.Scraper.Endpoint, cfg.Scraper.Extension))
		summary, runErr := worker.Run(ctx, queue, cfg.Scraper.TileCount, cfg.Scraper.Pace())

		if err := st.FinishRun(ctx, runID, summary.Attempted, summary.Succeeded, nowUTC()); err != nil {
			log.Warn("record run result failed", zap.String("run_id", runID), zap.Error(err))
		}
		if runErr != nil {
			return eris.Wrap(runErr, "scrape")
		}

		log.Info("scrape complete",
			zap.Int("attempted", summary.Attempted),
			zap.Int("succeeded", summary.Succeeded),
		)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().Int("zoom", 0, "zoom level to scrape (default from config)")
	scrapeCmd.Flags().Int("count", 0, "number of tiles to fetch (default from config)")
	scrapeCmd.Flags().Duration("pace", -1, "delay between fetches (default from config)")
	rootCmd.AddCommand(scrapeCmd)
}

// applyScrapeFlags copies explicitly-set flags over the config values.
func applyScrapeFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("zoom") {
		cfg.Scraper.Zoom, _ = cmd.Flags().GetInt("zoom")
	}
	if cmd.Flags().Changed("count") {
		cfg.Scraper.TileCount, _ = cmd.Flags().GetInt("count")
	}
	if cmd.Flags().Changed("pace") {
		pace, _ := cmd.Flags().GetDuration("pace")
		cfg.Scraper.PaceMs = int(pace.Milliseconds())
	}
}
