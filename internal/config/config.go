package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL          string `yaml:"database_url"`
	ArchiveDir           string `yaml:"archive_dir"`
	CatalogTable         string `yaml:"catalog_table"`
	DescriptionBatchSize int    `yaml:"description_batch_size"`
	ProgressInterval     int    `yaml:"progress_interval"`
}

// New builds the configuration from defaults, the optional YAML file named by
// RULES_ARCHIVE_CONFIG, and the environment, in that order of precedence.
func New() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("RULES_ARCHIVE_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ArchiveDir = getEnv("ARCHIVE_DIR", cfg.ArchiveDir)
	cfg.CatalogTable = getEnv("CATALOG_TABLE", cfg.CatalogTable)

	var err error
	cfg.DescriptionBatchSize, err = getEnvAsInt("DESCRIPTION_BATCH_SIZE", cfg.DescriptionBatchSize)
	if err != nil {
		return nil, err
	}

	cfg.ProgressInterval, err = getEnvAsInt("PROGRESS_INTERVAL", cfg.ProgressInterval)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DatabaseURL:          "dbname=cuny_curriculum",
		ArchiveDir:           filepath.Join(home, "Projects", "cuny_curriculum", "rules_archive"),
		CatalogTable:         "cuny_courses",
		DescriptionBatchSize: 100000,
		ProgressInterval:     10000,
	}
}

// LoadFile overlays the values present in a YAML file onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url is not set")
	}
	if c.ArchiveDir == "" {
		return fmt.Errorf("archive dir is not set")
	}
	if c.CatalogTable == "" {
		return fmt.Errorf("catalog table is not set")
	}
	if c.DescriptionBatchSize <= 0 {
		return fmt.Errorf("invalid description batch size %d: must be positive", c.DescriptionBatchSize)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("invalid progress interval %d: must be positive", c.ProgressInterval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
