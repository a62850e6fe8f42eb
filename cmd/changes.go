package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/roleautomator/jamfroles/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent privilege changes recorded with --db (default 50)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		limit, _ := cmd.Flags().GetInt("limit")
		showRuns, _ := cmd.Flags().GetBool("runs")
		if dbPath == "" {
			dbPath = viper.GetString("db.path")
		}
		if dbPath == "" {
			return fmt.Errorf("no database given: use --dbpath or set db.path in the config file")
		}
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("database not found: %s", dbPath)
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if showRuns {
			runs, err := db.ListRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  privileges=%d endpoints=%d changes=%d\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.PrivilegeCount, r.EndpointCount, r.Changes)
			}
			return nil
		}

		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			if c.PreviousCategory != "" {
				fmt.Printf("%s  %-13s  %-10s  %s  %s -> %s\n", ts, c.ChangeType, c.Surface, c.Name, c.PreviousCategory, c.Category)
				continue
			}
			fmt.Printf("%s  %-13s  %-10s  %s  %s\n", ts, c.ChangeType, c.Surface, c.Name, c.Category)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().String("dbpath", "", "Path to SQLite DB file written by --db (default: db.path from config)")
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	changesCmd.Flags().Bool("runs", false, "List recorded runs instead of changes")
}
