package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/barysiuk/skillfork/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "skillfork",
	Short: "Register third-party agent skills in your skills manifest",
	Long: `skillfork inspects a GitHub repository that ships an agent skill, decides
how it should be installed (package manager or clone), makes sure clones come
from a fork you own, and records the result in skills-manifest.json.

The update script next to the manifest does the actual installation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "skillfork %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.skillfork/config.yaml)")
	flags.String("skills-root", "", "Directory holding the manifest and update script")
	flags.String("manifest", "", "Manifest path (default <skills-root>/skills-manifest.json)")
	flags.String("identity", "", "GitHub account that owns your forks")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "fmt", "Log format (fmt, text or json)")

	_ = viper.BindPFlag("skills_root", flags.Lookup("skills-root"))
	_ = viper.BindPFlag("manifest", flags.Lookup("manifest"))
	_ = viper.BindPFlag("identity", flags.Lookup("identity"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
