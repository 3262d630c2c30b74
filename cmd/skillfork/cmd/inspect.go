package cmd

import (
	"github.com/barysiuk/skillfork/internal/report"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <owner/repo | github-url>",
	Short: "Show how a skill repository would be installed",
	Long:  `Fetch the README and SKILL.md of a repository and print the detected metadata and install method. Nothing is written.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := newDeps(ctx)
		if err != nil {
			return err
		}

		analysis, err := d.installer.Analyze(ctx, args[0])
		if err != nil {
			return err
		}

		out := report.New(cmd.OutOrStdout())
		out.Analysis(analysis)

		showReadme, _ := cmd.Flags().GetBool("readme")
		if showReadme && analysis.HasReadme {
			width, _ := cmd.Flags().GetInt("width")
			out.Markdown(analysis.Readme, width)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("readme", false, "Render the README below the analysis")
	inspectCmd.Flags().Int("width", 80, "Word wrap width for the README")
	rootCmd.AddCommand(inspectCmd)
}
