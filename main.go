package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rm-hull/near-expiry-food/cmd"
)

var (
	configPath string
	latitude   float64
	longitude  float64
	radius     float64
	limit      int
	sourceList string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "near-expiry-food",
	Short: "Find discounted near-expiry food at nearby convenience stores",
	Long: `near-expiry-food queries the 7-ELEVEN (i珍食) and FamilyMart (友善食光)
near-expiry programmes around a location and lists the stores that still have
stock, nearest first.`,
	SilenceUsage: true,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a single search",
	Long: `Run a single search and print the results.

Examples:
  # Search around the configured location
  near-expiry-food search

  # Search 500m around Taipei Main Station, FamilyMart only
  near-expiry-food search --lat 25.0478 --lon 121.5170 --radius 500 --sources family_mart`,
	RunE: func(c *cobra.Command, args []string) error {
		return cmd.Search(c.Context(), configPath, overrides(c), c.OutOrStdout())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeat the search on a cron schedule",
	Long: `Run the search now and then on the schedule in watch.schedule
(default every 30 minutes) until interrupted.`,
	RunE: func(c *cobra.Command, args []string) error {
		return cmd.Watch(c.Context(), configPath, overrides(c), c.OutOrStdout())
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered sources",
	RunE: func(c *cobra.Command, args []string) error {
		return cmd.Sources(configPath, c.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")

	for _, c := range []*cobra.Command{searchCmd, watchCmd} {
		c.Flags().Float64Var(&latitude, "lat", 0, "search latitude")
		c.Flags().Float64Var(&longitude, "lon", 0, "search longitude")
		c.Flags().Float64Var(&radius, "radius", 0, "search radius in meters")
		c.Flags().IntVar(&limit, "limit", 0, "maximum stores per source")
		c.Flags().StringVar(&sourceList, "sources", "", "comma-separated source ids to query (default: as configured)")
	}

	rootCmd.AddCommand(searchCmd, watchCmd, sourcesCmd)
}

// overrides picks up only the flags given explicitly.
func overrides(c *cobra.Command) cmd.Overrides {
	var o cmd.Overrides
	flags := c.Flags()
	if flags.Changed("lat") {
		o.Latitude = &latitude
	}
	if flags.Changed("lon") {
		o.Longitude = &longitude
	}
	if flags.Changed("radius") {
		o.RadiusMeters = &radius
	}
	if flags.Changed("limit") {
		o.Limit = &limit
	}
	if flags.Changed("sources") {
		o.Sources = strings.Split(sourceList, ",")
	}
	return o
}

