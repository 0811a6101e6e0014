// Command wayfarer runs the travel-planning pipeline from the command line.
//
//	wayfarer plan --destination Lisbon --budget 2400 --days 5 --travelers 2
//	wayfarer cache stats
//	wayfarer cache evict
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wayfarer-dev/wayfarer"
	"github.com/wayfarer-dev/wayfarer/pkg/config"
	"github.com/wayfarer-dev/wayfarer/pkg/travel"
)

func main() {
	var (
		configPath string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           "wayfarer",
		Short:         "Travel-planning workflow engine",
		Long:          "Wayfarer turns a planning request into a full travel plan by running a cached, parallel workflow pipeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log stage-level detail")

	loadConfig := func() (config.Config, error) {
		if configPath == "" {
			return config.Default(), nil
		}
		return config.Load(configPath)
	}

	newRunner := func() (*wayfarer.Runner, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return wayfarer.NewRunner(cfg, wayfarer.Collaborators{}, wayfarer.NewLoggingObserver(logger))
	}

	var params travel.Params
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Run the planning pipeline and print the resulting plan as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			result, err := runner.Plan(cmd.Context(), params)
			if err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				fmt.Fprintf(os.Stderr, "plan completed with %d stage error(s)\n", len(result.Errors))
			}
			return nil
		},
	}
	planCmd.Flags().StringVar(&params.Destination, "destination", "", "destination city (required)")
	planCmd.Flags().IntVar(&params.Budget, "budget", 1000, "total trip budget")
	planCmd.Flags().IntVar(&params.Days, "days", 3, "trip length in days")
	planCmd.Flags().IntVar(&params.Travelers, "travelers", 1, "number of travelers")
	planCmd.Flags().StringSliceVar(&params.Interests, "interests", nil, "comma-separated interests")
	planCmd.MarkFlagRequired("destination")
	rootCmd.AddCommand(planCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the collaborator cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print per-namespace cache statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			stats, err := runner.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	})
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "evict",
		Short: "Delete expired cache entries from both namespaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			n, err := runner.EvictExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("evicted %d expired entries\n", n)
			return nil
		},
	})
	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
