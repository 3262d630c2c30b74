package cmd

import (
	"fmt"

	"github.com/barysiuk/skillfork/internal/core"
	"github.com/barysiuk/skillfork/internal/report"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List skills in the manifest",
	Long:  `List manifest entries, optionally filtered by a glob pattern on the skill name (e.g. "code-*").`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd.Context())
		if err != nil {
			return err
		}

		m, err := d.installer.Store().Load()
		if err != nil {
			return err
		}

		entries := m.Skills
		if len(args) == 1 {
			entries, err = filterEntries(entries, args[0])
			if err != nil {
				return err
			}
		}

		report.New(cmd.OutOrStdout()).List(entries)
		return nil
	},
}

// filterEntries keeps entries whose name matches pattern.
func filterEntries(entries []core.SkillEntry, pattern string) ([]core.SkillEntry, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	var out []core.SkillEntry
	for _, e := range entries {
		if ok, _ := doublestar.Match(pattern, e.Name); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(listCmd)
}
