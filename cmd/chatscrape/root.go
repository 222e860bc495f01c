package main

import (
	"fmt"
	"os"
	"runtime"

	"chatscrape/pkg/config"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	uiMode     string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatscrape",
	Short: "Extract chat conversations from a live messaging page",
	Long: `chatscrape reads a conversation out of an open messaging web page.

It scrolls the message list towards the oldest message, snapshots the
page after every scroll and turns what it sees into plain text lines:

  --- Yesterday ---
  Alice: see you tomorrow
  You [10:42]: sounds good

Lines are streamed to stdout, a file or a local HTTP receiver as they are
found, and the whole conversation is written out as a transcript when
the session ends. Interrupted sessions can be resumed.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if verbose && !quiet && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintBanner()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.chatscrape.yaml or $HOME/.chatscrape.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&uiMode, "ui", "", "progress display (auto, plain, tui, quiet)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress everything except errors and output lines")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every discovered line and debug logs")

	rootCmd.SetVersionTemplate(`chatscrape {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + "/" + runtime.GOARCH + "\n")
}

// globalFlags adds the persistent flags the user set to a config flag map
func globalFlags(cmd *cobra.Command, flags map[string]interface{}) map[string]interface{} {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if uiMode != "" {
		flags["ui"] = uiMode
	}
	if verbose {
		flags["log-level"] = "debug"
	}
	if quiet {
		flags["ui"] = config.UIModeQuiet
		flags["log-level"] = "error"
	}
	return flags
}

// loadConfig loads the configuration and initializes the global logger
func loadConfig(cmd *cobra.Command, flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, globalFlags(cmd, flags))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
