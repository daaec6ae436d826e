package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// LLM provider names
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Feed publishers
const (
	PublisherFile  = "file"
	PublisherMinio = "minio"
)

// Environment overrides. Secrets are usually kept out of the TOML file.
const (
	EnvAPIKey         = "HNPULSE_API_KEY"
	EnvDSN            = "HNPULSE_DB_DSN"
	EnvMinioAccessKey = "HNPULSE_MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "HNPULSE_MINIO_SECRET_KEY"
)

// Config holds all application configuration
type Config struct {
	Version    int              `toml:"version"`
	Source     SourceConfig     `toml:"source"`
	Extraction ExtractionConfig `toml:"extraction"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Store      StoreConfig      `toml:"store"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Feed       FeedConfig       `toml:"feed"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

type SourceConfig struct {
	BaseURL        string `toml:"base_url"`
	TopN           int    `toml:"top_n"`
	MaxDepth       int    `toml:"max_depth"`
	MaxConcurrency int    `toml:"max_concurrency"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ExtractionConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ReaderBaseURL  string `toml:"reader_base_url"`
	UserAgent      string `toml:"user_agent"`
	BrowserEnabled bool   `toml:"browser_enabled"`
	Headless       bool   `toml:"headless"`
}

type AnalysisConfig struct {
	Provider         string  `toml:"provider"`
	APIKey           string  `toml:"api_key"`
	Model            string  `toml:"model"`
	BaseURL          string  `toml:"base_url"` // OpenAI-compatible endpoint
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	MaxInputChars    int     `toml:"max_input_chars"`
	MinComments      int     `toml:"min_comments"`
	MinDrift         int     `toml:"min_drift"`
	MinRelativeDrift float64 `toml:"min_relative_drift"`
	LogExchanges     bool    `toml:"log_exchanges"`
}

type StoreConfig struct {
	Driver        string `toml:"driver"`
	Path          string `toml:"path"` // sqlite file, defaults to <cache dir>/hnpulse.db
	DSN           string `toml:"dsn"`  // postgres connection string
	RetentionDays int    `toml:"retention_days"`
}

type ScheduleConfig struct {
	Cycle    string `toml:"cycle"`
	Evict    string `toml:"evict"`
	Timezone string `toml:"timezone"`
}

type FeedConfig struct {
	Title       string      `toml:"title"`
	HomePageURL string      `toml:"home_page_url"`
	FeedURL     string      `toml:"feed_url"`
	Description string      `toml:"description"`
	MaxItems    int         `toml:"max_items"`
	Publisher   string      `toml:"publisher"`
	OutputDir   string      `toml:"output_dir"`
	Minio       MinioConfig `toml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Secure    bool   `toml:"secure"`
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Source: SourceConfig{
			BaseURL:        "https://hacker-news.firebaseio.com/v0",
			TopN:           10,
			MaxDepth:       2,
			MaxConcurrency: 5,
			TimeoutSeconds: 30,
		},
		Extraction: ExtractionConfig{
			TimeoutSeconds: 10,
			ReaderBaseURL:  "https://r.jina.ai/",
			Headless:       true,
		},
		Analysis: AnalysisConfig{
			Provider:         ProviderAnthropic,
			Model:            "claude-sonnet-4-20250514",
			TimeoutSeconds:   120,
			MaxInputChars:    60000,
			MinComments:      5,
			MinDrift:         5,
			MinRelativeDrift: 0.10,
		},
		Store: StoreConfig{
			Driver:        DriverSQLite,
			RetentionDays: 30,
		},
		Schedule: ScheduleConfig{
			Cycle:    "0 */2 * * *",
			Evict:    "30 3 * * *",
			Timezone: "UTC",
		},
		Feed: FeedConfig{
			Title:       "Hacker News Pulse",
			HomePageURL: "https://news.ycombinator.com/",
			Description: "Top Hacker News discussions with AI perspectives",
			MaxItems:    50,
			Publisher:   PublisherFile,
			Minio: MinioConfig{
				Bucket: "hnpulse",
				Secure: true,
			},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Source.TopN < 1:
		return errors.New("source.top_n must be at least 1")
	case c.Source.MaxDepth < 0:
		return errors.New("source.max_depth must not be negative")
	case c.Source.MaxConcurrency < 1:
		return errors.New("source.max_concurrency must be at least 1")
	case c.Store.RetentionDays < 1:
		return errors.New("store.retention_days must be at least 1")
	case c.Analysis.MinRelativeDrift < 0:
		return errors.New("analysis.min_relative_drift must not be negative")
	}

	switch c.Analysis.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown analysis.provider %q", c.Analysis.Provider)
	}
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Feed.Publisher {
	case PublisherFile:
	case PublisherMinio:
		if c.Feed.Minio.Endpoint == "" || c.Feed.Minio.Bucket == "" {
			return errors.New("feed.minio.endpoint and feed.minio.bucket are required for the minio publisher")
		}
	default:
		return fmt.Errorf("unknown feed.publisher %q", c.Feed.Publisher)
	}
	return nil
}

// ApplyEnv overrides secrets from the environment. A .env file in the
// working directory is loaded first if present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		c.Analysis.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvDSN); ok {
		c.Store.DSN = v
	}
	if v, ok := os.LookupEnv(EnvMinioAccessKey); ok {
		c.Feed.Minio.AccessKey = v
	}
	if v, ok := os.LookupEnv(EnvMinioSecretKey); ok {
		c.Feed.Minio.SecretKey = v
	}
}

// DatabasePath returns the sqlite file location.
func (c *Config) DatabasePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hnpulse.db"), nil
}

// FeedDir returns the directory the file publisher writes to.
func (c *Config) FeedDir() (string, error) {
	if c.Feed.OutputDir != "" {
		return c.Feed.OutputDir, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "feed"), nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "hnpulse"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "hnpulse"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path. Keys missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
