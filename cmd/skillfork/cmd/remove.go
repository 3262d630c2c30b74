package cmd

import (
	"fmt"

	"github.com/barysiuk/skillfork/internal/core"
	"github.com/barysiuk/skillfork/internal/report"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <skill-name>",
	Short: "Remove a skill from the manifest",
	Long:  `Remove a skill entry from the manifest. Installed files are left for the update script to clean up.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := newDeps(ctx)
		if err != nil {
			return err
		}

		name := args[0]
		_, err = d.installer.Store().Update(ctx, func(m *core.Manifest) error {
			if !m.Remove(name) {
				return fmt.Errorf("skill %q not found in manifest", name)
			}
			return nil
		})
		if err != nil {
			return err
		}

		report.New(cmd.OutOrStdout()).Success("Removed %s from manifest", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
