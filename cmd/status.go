package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report tile freshness for the region",
	Long: `Classifies every region tile in the configured zoom window as missing,
scraped, or updated since a reference time, and prints the report.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("min-zoom") {
			cfg.Status.MinZoom, _ = cmd.Flags().GetInt("min-zoom")
		}
		if cmd.Flags().Changed("max-zoom") {
			cfg.Status.MaxZoom, _ = cmd.Flags().GetInt("max-zoom")
		}
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		var since *time.Time
		if raw, _ := cmd.Flags().GetString("since"); raw != "" {
			ts, err := parseSinceFlag(raw)
			if err != nil {
				return err
			}
			since = &ts
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "status: migrate")
		}

		b, err := boundary.Load(cfg.Boundary.Path)
		if err != nil {
			return eris.Wrap(err, "status: load boundary")
		}

		rep, err := status.Report(ctx, st, b, cfg.Status.MinZoom, cfg.Status.MaxZoom, since)
		if err != nil {
			return eris.Wrap(err, "status: report")
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(rep)
		default:
			return eris.Errorf("unknown format %q (want json or yaml)", format)
		}
	},
}

func init() {
	statusCmd.Flags().Int("min-zoom", 0, "lowest zoom to report (default from config)")
	statusCmd.Flags().Int("max-zoom", 0, "highest zoom to report (default from config)")
	statusCmd.Flags().String("since", "", "reference time (RFC 3339 or YYYY-MM-DD) splitting scraped from updated")
	statusCmd.Flags().String("format", "json", "output format: json or yaml")
	rootCmd.AddCommand(statusCmd)
}

func parseSinceFlag(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, eris.Errorf("unparseable --since value %q", raw)
}
