package cmd

import (
	"fmt"

	"github.com/barysiuk/skillfork/internal/core"
	"github.com/barysiuk/skillfork/internal/report"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <owner/repo | github-url>",
	Short: "Add a skill repository to the manifest",
	Long: `Inspect a GitHub repository, decide how its skill should be installed and
record it in the manifest. Skills that must be cloned are pointed at a fork
owned by your identity, creating one with the gh CLI if needed. Unless
--no-sync is given the update script runs afterwards.`,
	Example: `  skillfork add anthropics/skills
  skillfork add https://github.com/owner/repo --fork --desc "代码审查技能"
  skillfork add owner/repo --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := newDeps(ctx)
		if err != nil {
			return err
		}

		opts := core.InstallOptions{}
		opts.Fork, _ = cmd.Flags().GetBool("fork")
		opts.NoSync, _ = cmd.Flags().GetBool("no-sync")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Description, _ = cmd.Flags().GetString("desc")

		result, err := d.installer.Install(ctx, args[0], opts)
		if err != nil {
			return err
		}

		out := report.New(cmd.OutOrStdout())
		report.New(cmd.ErrOrStderr()).Warnings(result.Warnings)
		out.Success("%s", result.Message)
		out.Entry(result.Entry)

		if opts.DryRun {
			if result.Diff == "" {
				out.Info("Manifest unchanged.")
			} else {
				fmt.Fprint(cmd.OutOrStdout(), result.Diff)
			}
			return nil
		}

		if result.Sync != nil {
			out.Info("Running %s...", d.config.UpdateScript)
			if err := result.Sync.Wait(); err != nil {
				report.New(cmd.ErrOrStderr()).Warnings([]core.Warning{{
					Kind:    core.WarnSyncTriggerFailed,
					Message: "sync script did not complete",
					Err:     err,
				}})
				return nil
			}
			out.Success("Sync complete")
		}
		return nil
	},
}

func init() {
	addCmd.Flags().Bool("fork", false, "Always record a fork as origin, even for package-manager skills")
	addCmd.Flags().Bool("no-sync", false, "Do not run the update script after updating the manifest")
	addCmd.Flags().String("desc", "", "Description to record instead of the one in SKILL.md")
	addCmd.Flags().Bool("dry-run", false, "Show the manifest change without writing it or creating forks")
	rootCmd.AddCommand(addCmd)
}
