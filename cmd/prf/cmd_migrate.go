package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/retinotopy/internal/security"
	"github.com/banshee-data/retinotopy/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the results database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("db")
			if path == "" {
				path = cfg.GetDatabasePath()
			}
			if err := security.ValidateOutputPath(path); err != nil {
				return err
			}
			st, err := store.Open(path)
			if err != nil {
				return err
			}
			defer st.Close()

			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			switch action {
			case "up":
				err = st.MigrateUp()
			case "down":
				err = st.MigrateDown()
			}
			if err != nil {
				return err
			}

			v, dirty, err := st.MigrateVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	}
	return cmd
}
