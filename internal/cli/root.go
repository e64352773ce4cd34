// Package cli defines the filedrop command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"filedrop/internal/app"
	"filedrop/internal/config"
)

var (
	configPath  string
	logLevel    string
	versionInfo = "dev"
)

// SetVersion records build information for the version command.
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filedrop",
	Short: "Drag-and-drop file upload desktop app",
	Long: `filedrop - collect files by dragging them onto the window or picking them
from a dialog, validate them against the configured limits, and hand them off
for sending.

Run without a subcommand to open the window.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(app.Options{ConfigPath: configPath, LogLevel: logLevel})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		application.Run()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}
