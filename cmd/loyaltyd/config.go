package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds loyaltyd configuration, loaded from YAML config files and
// overridden by environment variables.
type Config struct {
	// SquareBaseURL is the payments service endpoint. Empty means production.
	SquareBaseURL     string `mapstructure:"square_base_url"`
	SquareAccessToken string `mapstructure:"square_access_token"`

	// ProgramID is the loyalty program new accounts enroll under.
	ProgramID string `mapstructure:"program_id"`
	// ExpectedSource is the order source attribution that earns points.
	ExpectedSource string `mapstructure:"expected_source"`

	DBPath string `mapstructure:"db_path"`
	Addr   string `mapstructure:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ProgramID:      "main",
		ExpectedSource: "Acuity Scheduling",
		DBPath:         defaultDBPath(),
		Addr:           ":8080",
	}
}

// LoadConfig loads and merges configuration: defaults, then the global config
// file, then the project-local one, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		loadFile(filepath.Join(home, ".loyaltysync", "config.yaml"), cfg)
	}
	if cwd, err := os.Getwd(); err == nil {
		loadFile(filepath.Join(cwd, "loyaltysync.yaml"), cfg)
	}

	if v := os.Getenv("SQUARE_BASE_URL"); v != "" {
		cfg.SquareBaseURL = v
	}
	if v := os.Getenv("SQUARE_ACCESS_TOKEN"); v != "" {
		cfg.SquareAccessToken = v
	}
	if v := os.Getenv("LOYALTYSYNC_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOYALTYSYNC_ADDR"); v != "" {
		cfg.Addr = v
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.SquareAccessToken == "" {
		return fmt.Errorf("SQUARE_ACCESS_TOKEN (or square_access_token in config) is required")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".loyaltysync/ledger.db"
	}
	return filepath.Join(home, ".loyaltysync", "ledger.db")
}
