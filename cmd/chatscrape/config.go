package main

import (
	"fmt"
	"os"
	"path/filepath"

	"chatscrape/pkg/auth"
	"chatscrape/pkg/config"
	"chatscrape/pkg/scanner"
	"chatscrape/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = ".chatscrape.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage chatscrape configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (CHATSCRAPE_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file holding every option at its default value,
including the scanner's selector cascades and noise lists.

The file is created as '.chatscrape.yaml' in the current directory unless
a different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it:
  - YAML syntax
  - Value ranges
  - Scanner selectors and noise patterns
  - Output and log paths
  - The saved session profile, when one is named`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Out, "\nNext steps:")
	fmt.Fprintln(ui.Out, "1. Set target.url, or pass the conversation URL to extract")
	fmt.Fprintln(ui.Out, "2. Run 'chatscrape config validate' to check the file")
	fmt.Fprintln(ui.Out, "3. Start with 'chatscrape extract'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd, nil))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))

	fmt.Fprintln(ui.Out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Out, "1. Command line flags")
	fmt.Fprintln(ui.Out, "2. Environment variables (CHATSCRAPE_*)")
	if configFile != "" {
		fmt.Fprintf(ui.Out, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(ui.Out, "3. Configuration file: (searched in default locations)")
	}
	fmt.Fprintln(ui.Out, "4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, globalFlags(cmd, nil))
	if err != nil {
		return err
	}

	var warnings, problems []string

	if _, err := scanner.NewRules(cfg.Scanner); err != nil {
		problems = append(problems, fmt.Sprintf("Scanner rules: %v", err))
	}
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if cfg.Target.URL == "" {
		warnings = append(warnings, "target.url is not set, pass the conversation URL to extract")
	}
	if cfg.Browser.Profile != "" {
		if manager, err := auth.NewManager(); err != nil {
			warnings = append(warnings, fmt.Sprintf("Profile store unavailable: %v", err))
		} else if _, err := manager.Retrieve(cfg.Browser.Profile); err != nil {
			warnings = append(warnings, fmt.Sprintf("Profile %q: %v", cfg.Browser.Profile, err))
		}
	}
	if cfg.Sink.HTTP.Enabled && cfg.Sink.HTTP.RequestsPerSecond <= 0 {
		warnings = append(warnings, "sink.http.requests_per_second is not positive, the HTTP sink is not rate limited")
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors")
		for _, p := range problems {
			fmt.Fprintf(ui.Out, "  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		for _, w := range warnings {
			fmt.Fprintf(ui.Out, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Out)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Out, "\nConfiguration summary:")
	fmt.Fprintf(ui.Out, "  Delay window: %s - %s\n", cfg.Extraction.DelayMin, cfg.Extraction.DelayMax)
	fmt.Fprintf(ui.Out, "  Max iterations: %d\n", cfg.Extraction.MaxIterations)
	fmt.Fprintf(ui.Out, "  No-progress threshold: %d\n", cfg.Extraction.NoProgressThreshold)
	fmt.Fprintf(ui.Out, "  Output: %s (%s)\n", cfg.Output.Directory, cfg.Output.Order)
	fmt.Fprintf(ui.Out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
