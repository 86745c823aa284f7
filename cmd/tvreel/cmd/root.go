// Package cmd implements the tvreel CLI commands.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/config"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/observability"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	agentsDir string

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd is the base command when tvreel is called without subcommands.
var rootCmd = &cobra.Command{
	Use:     "tvreel",
	Short:   "Turns a source video into a short vertical reel via an agent-driven pipeline",
	Version: version.Short(),
	Long: `tvreel ingests a source video submitted over a messaging channel and
drives it through a fixed pipeline of document-grounded agent stages
(ROUTER, RESEARCH, TRANSCRIPT, CONTENT, LAYOUT_DETECTIVE, FFMPEG_ENGINEER,
ASSEMBLY) plus side-generation and delivery, producing a finished reel.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		if logFormat != "" {
			loaded.Logging.Format = logFormat
		}
		cfg = loaded
		logger = observability.NewLogger(cfg.Logging)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, ./configs, /etc/tvreel, $HOME/.tvreel)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (text, json)")
	rootCmd.PersistentFlags().StringVar(&agentsDir, "agents-dir", "agents", "directory containing workflow and agent-definition documents")
}
