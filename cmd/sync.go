package cmd

import (
	"github.com/roleautomator/jamfroles/internal/utils"
	"github.com/roleautomator/jamfroles/pkg/syncer"
	"github.com/spf13/cobra"
)

func runSync(cmd *cobra.Command) error {
	cfg := loadConfig(cmd)

	job, err := syncer.New(cfg, utils.Log)
	if err != nil {
		return err
	}

	utils.Log.Infof("Fetching Jamf docs...")
	report, err := job.Run(cmd.Context())
	if err != nil {
		return err
	}

	for _, s := range report.Sources {
		utils.Log.Debugf("%s %q: %d privileges, %d endpoints", s.Name, s.Title, s.Records, s.Endpoints)
	}
	switch {
	case cfg.DryRun:
		utils.Log.Infof("Dry run: %d privileges rendered, nothing written", len(report.Database.Privileges))
	case report.Publish.Unchanged:
		utils.Log.Infof("No privilege changes, %s left untouched", cfg.OutputDir)
	default:
		utils.Log.Infof("Completed writing %s/*.json (%d privileges)", cfg.OutputDir, len(report.Database.Privileges))
	}
	return nil
}
