// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/catalog-harvester/internal/catalog"
	"github.com/pdiddy/catalog-harvester/internal/harvest"
	"github.com/pdiddy/catalog-harvester/internal/httputil"
	"github.com/pdiddy/catalog-harvester/internal/store"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Fetch a window of the remote catalog into the store",
	Long: `Harvest splits the catalog window [offset, offset+total) into pages, fetches
the pages concurrently, drops records already in the store, and writes the
rest one page per transaction.

With the default offset of -1 the window starts at the number of records
already stored for the platform, so repeated runs walk forward through the
catalog. A failed page is reported and skipped; re-running the same window
recovers it without duplicating anything.`,
	RunE: runHarvest,
}

func init() {
	f := harvestCmd.Flags()
	f.String("platform", "europa-repo", "catalog platform: "+strings.Join(catalog.Names(), ", "))
	f.String("endpoint", "", "override the platform's catalog endpoint URL")
	f.Int("total", 0, "number of catalog positions to harvest")
	f.Int("page-size", 5000, "entries requested per page")
	f.Int("workers", harvest.DefaultPoolSize, "concurrent page fetches")
	f.Int("offset", -1, "first catalog position (-1 resumes from the stored record count)")
	f.Duration("delay", harvest.DefaultInterChunkDelay, "pause after each merged page")
	f.Duration("timeout", catalog.DefaultTimeout, "per-page request timeout")
	f.Float64("rate", 0, "maximum requests per second against the catalog (0 = unlimited)")
	f.Int("retries", 5, "retries on HTTP 429")
	f.String("contact", "", "contact email added to the User-Agent (default .secrets/contact-email)")
	f.String("format", "table", "report format: table, json, yaml")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	f.Bool("fail-on-chunk-error", false, "exit non-zero when any page failed")

	f.VisitAll(func(fl *pflag.Flag) {
		viper.BindPFlag("harvest."+fl.Name, fl)
	})

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg := harvestConfig()
	if cfg.Total <= 0 {
		return fmt.Errorf("--total must be positive")
	}
	format := viper.GetString("harvest.format")
	if err := checkFormat(format); err != nil {
		return err
	}
	platform, err := catalog.Lookup(cfg.Platform)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, storeConfig())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	logger := slog.Default()
	fetcher := &catalog.Fetcher{
		Client:   httputil.NewClient(nil, cfg.HTTPConfig),
		Platform: platform,
		Endpoint: viper.GetString("harvest.endpoint"),
		Timeout:  cfg.Timeout,
		Logger:   logger,
	}

	var metrics *harvest.Metrics
	metricsFile := viper.GetString("harvest.metrics-file")
	if metricsFile != "" {
		metrics = harvest.NewMetrics(platform.Name())
	}

	stderr := cmd.ErrOrStderr()
	h, err := harvest.NewHarvester(st, fetcher,
		harvest.WithPoolSize(cfg.Workers),
		harvest.WithLogger(logger),
		harvest.WithInterChunkDelay(cfg.InterChunkDelay),
		harvest.WithMetrics(metrics),
		harvest.WithProgress(stderr),
	)
	if err != nil {
		return err
	}

	before, err := st.CountByPlatform(ctx, platform.Name())
	if err != nil {
		return fmt.Errorf("counting stored records: %w", err)
	}
	fmt.Fprintf(stderr, "Records for %s before harvest: %d\n", platform.Name(), before)

	report, runErr := h.Run(ctx, harvest.JobConfig{
		Platform: platform.Name(),
		Total:    cfg.Total,
		PageSize: cfg.PageSize,
		Offset:   cfg.Offset,
	})
	if report == nil {
		return runErr
	}

	if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
		return err
	}

	// The run context may be cancelled by now; the closing count still runs.
	after, err := st.CountByPlatform(context.WithoutCancel(ctx), platform.Name())
	if err == nil {
		fmt.Fprintf(stderr, "Records for %s after harvest: %d (+%d)\n", platform.Name(), after, after-before)
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("harvest interrupted: %w", runErr)
	}
	if report.HasFailures() && viper.GetBool("harvest.fail-on-chunk-error") {
		return fmt.Errorf("%d chunk(s) failed at offsets %v; re-run the same window to recover them",
			len(report.ChunksFailed), report.FailedOffsets())
	}
	return nil
}

func writeReport(w io.Writer, format string, report *harvest.Report) error {
	switch format {
	case "json":
		return harvest.FormatJSON(report, w)
	case "yaml":
		return harvest.FormatYAML(report, w)
	default:
		harvest.FormatTable(report, w)
		return nil
	}
}
