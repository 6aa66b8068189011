package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/catalog-harvester/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored record counts per platform",
	Long: `Stats prints the total number of stored dataset records and the count for
each source platform, largest first.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().String("format", "table", "output format: table, json, yaml")
	viper.BindPFlag("stats.format", statsCmd.Flags().Lookup("format"))

	rootCmd.AddCommand(statsCmd)
}

// storeStats is the stats command's output document.
type storeStats struct {
	Total     int                   `json:"total" yaml:"total"`
	Platforms []store.PlatformCount `json:"platforms" yaml:"platforms"`
}

func runStats(cmd *cobra.Command, args []string) error {
	format := viper.GetString("stats.format")
	if err := checkFormat(format); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, storeConfig())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	counts, err := st.PlatformCounts(ctx)
	if err != nil {
		return err
	}
	stats := storeStats{Platforms: counts}
	for _, c := range counts {
		stats.Total += c.Count
	}
	return writeStats(cmd.OutOrStdout(), format, stats)
}

func writeStats(w io.Writer, format string, stats storeStats) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "%-40s %10s\n", "Platform", "Records")
	fmt.Fprintln(w, strings.Repeat("-", 51))
	for _, c := range stats.Platforms {
		fmt.Fprintf(w, "%-40s %10d\n", c.Platform, c.Count)
	}
	fmt.Fprintln(w, strings.Repeat("-", 51))
	fmt.Fprintf(w, "%-40s %10d\n", "Total", stats.Total)
	return nil
}
