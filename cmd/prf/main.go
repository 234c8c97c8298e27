// Command prf simulates, fits and plots population receptive field models
// of drifting-bar fMRI runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/retinotopy/internal/fsutil"
	"github.com/banshee-data/retinotopy/internal/monitoring"
)

// fsys backs voxel series and fit tables; tests swap in memory.
var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prf",
		Short: "Population receptive field modelling",
		Long: `prf fits population receptive field models to voxel time series
recorded during a drifting-bar stimulus.

The stimulus, model, search grids and bounds come from an analysis config
(--config, JSON or YAML). Fits are stored in a sqlite database (--db) and
can be rendered as figures with "prf plot".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
				monitoring.SetLogger(nil)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Analysis config file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides the config)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress diagnostic logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newFitCmd(),
		newPlotCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}
