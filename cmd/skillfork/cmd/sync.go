package cmd

import (
	"github.com/barysiuk/skillfork/internal/core"
	"github.com/barysiuk/skillfork/internal/report"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the update script and wait for it to finish",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runner := core.NewScriptRunner(cfg.UpdateScript, cfg.SkillsRoot)
		runner.Stdout = cmd.OutOrStdout()
		runner.Stderr = cmd.ErrOrStderr()

		task, err := runner.Start(ctx)
		if err != nil {
			return err
		}
		if err := task.Wait(); err != nil {
			return err
		}

		report.New(cmd.OutOrStdout()).Success("Sync complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
