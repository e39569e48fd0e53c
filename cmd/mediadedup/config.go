package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mediadedup/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mediadedup configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (MEDIADEDUP_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.mediadedup.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources: command line
flags, environment variables, the configuration file and defaults.`,
	Run: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".mediadedup.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(os.Stderr, "Configuration file already exists: %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# mediadedup configuration file
#
# Every value can also be set through environment variables prefixed
# with MEDIADEDUP_, for example MEDIADEDUP_SCRAPER_URL and
# MEDIADEDUP_MONGO_URI.

# Upstream scraper REST interface
scraper:
  base_url: "http://localhost:5000"
  # Documents requested per query page
  batch_size: 5
  request_timeout: 30s

# Metadata and media storage
storage:
  uri: "mongodb://localhost:27017"
  database: "9GagMedia"
  connect_timeout: 10s

# Duplicate detection thresholds
detection:
  # Pairs whose aspect ratios differ by at least this much are never
  # compared further
  aspect_ratio_tolerance: 0.02
  # Perceptual hash distances at or below the cutoff count as a
  # hash-level match
  hash_cutoff: 10
  # Minimum structural similarity for a repost
  ssim_threshold: 0.75
  # Pairs at or above this mean squared error are treated as the same
  # template with different content, not as reposts
  mse_ceiling: 2000.0

# Logging
logging:
  level: "info"
  # Optional log file; empty logs to stdout
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write configuration file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration file created: %s\n", configPath)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(string(data))
}
