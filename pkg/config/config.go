package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the media analyzer
type Config struct {
	// Upstream scraper REST interface
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// Metadata/blob storage
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Duplicate detection thresholds
	Detection DetectionConfig `yaml:"detection" json:"detection"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScraperConfig holds upstream data source configuration
type ScraperConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// StorageConfig holds MongoDB connection configuration
type StorageConfig struct {
	URI            string        `yaml:"uri" json:"uri"`
	Database       string        `yaml:"database" json:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// DetectionConfig holds the similarity-scoring thresholds
type DetectionConfig struct {
	// Maximum allowed difference between aspect ratios before a pair is
	// declared not comparable
	AspectRatioTolerance float64 `yaml:"aspect_ratio_tolerance" json:"aspect_ratio_tolerance"`

	// Perceptual hash distance at or below which two images are
	// hash-level candidates
	HashCutoff int `yaml:"hash_cutoff" json:"hash_cutoff"`

	// Minimum structural similarity score for a candidate match
	SSIMThreshold float64 `yaml:"ssim_threshold" json:"ssim_threshold"`

	// Mean squared error at or above which a pair is rejected even when
	// hash and SSIM agree
	MSECeiling float64 `yaml:"mse_ceiling" json:"mse_ceiling"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:        "http://localhost:5000",
			BatchSize:      5,
			RequestTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "9GagMedia",
			ConnectTimeout: 10 * time.Second,
		},
		Detection: DetectionConfig{
			AspectRatioTolerance: 0.02,
			HashCutoff:           10,
			SSIMThreshold:        0.75,
			MSECeiling:           2000.0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("MEDIADEDUP_SCRAPER_URL"); baseURL != "" {
		c.Scraper.BaseURL = baseURL
	}
	if batchSize := os.Getenv("MEDIADEDUP_BATCH_SIZE"); batchSize != "" {
		var val int
		fmt.Sscanf(batchSize, "%d", &val)
		if val > 0 {
			c.Scraper.BatchSize = val
		}
	}
	if uri := os.Getenv("MEDIADEDUP_MONGO_URI"); uri != "" {
		c.Storage.URI = uri
	}
	if db := os.Getenv("MEDIADEDUP_MONGO_DATABASE"); db != "" {
		c.Storage.Database = db
	}
	if logLevel := os.Getenv("MEDIADEDUP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".mediadedup.yaml",
		".mediadedup.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "mediadedup", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".mediadedup.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid scraper base URL: %q", c.Scraper.BaseURL))
	}
	if c.Scraper.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Scraper.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Storage.URI == "" {
		errs = append(errs, errors.New("storage URI is required"))
	}
	if c.Storage.Database == "" {
		errs = append(errs, errors.New("storage database name is required"))
	}
	if c.Storage.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("storage connect timeout must be positive"))
	}

	if c.Detection.AspectRatioTolerance <= 0 {
		errs = append(errs, errors.New("aspect ratio tolerance must be positive"))
	}
	if c.Detection.HashCutoff < 0 {
		errs = append(errs, errors.New("hash cutoff cannot be negative"))
	}
	if c.Detection.SSIMThreshold < -1 || c.Detection.SSIMThreshold > 1 {
		errs = append(errs, errors.New("ssim threshold must be within [-1, 1]"))
	}
	if c.Detection.MSECeiling <= 0 {
		errs = append(errs, errors.New("mse ceiling must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["scraper-url"].(string); ok && baseURL != "" {
		c.Scraper.BaseURL = baseURL
	}
	if batchSize, ok := flags["batch-size"].(int); ok && batchSize > 0 {
		c.Scraper.BatchSize = batchSize
	}
	if uri, ok := flags["mongo-uri"].(string); ok && uri != "" {
		c.Storage.URI = uri
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".mediadedup.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
