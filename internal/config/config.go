package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env         string `envconfig:"APP_ENV" default:"dev"`
	DBPath      string `envconfig:"DB_PATH" default:"./dev.db"`
	Port        string `envconfig:"PORT" default:"8080"`
	CatalogPath string `envconfig:"CATALOG_PATH"`
	Seller      string `envconfig:"SELLER"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	AutoMigrate *bool  `envconfig:"AUTO_MIGRATE"`
}

// Load reads .env from the working directory, if present, and then the
// environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. Variables already set in
// the environment win over the file; a missing file is not an error.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "dev") || strings.EqualFold(c.Env, "development")
}

// Migrate reports whether migrations run at startup. It defaults to IsDev.
func (c Config) Migrate() bool {
	if c.AutoMigrate != nil {
		return *c.AutoMigrate
	}
	return c.IsDev()
}

// Level parses LogLevel. An empty value means info.
func (c Config) Level() (zerolog.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
