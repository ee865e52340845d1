// Package config provides configuration management for the insights CLI.
// It supports loading configuration from YAML files and environment
// variables, with env vars taking precedence over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/meeting-insights/pkg/db"
	"github.com/otherjamesbrown/meeting-insights/pkg/llm"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultConfigDir       = ".meeting-insights"
	DefaultConfigFile      = "config.yaml"
	DefaultStorageSubdir   = "storage"
	DefaultVectorSubdir    = "vectors"
	DefaultOutputFormat    = OutputFormatText
	DefaultEmbeddingDim    = 256
	DefaultCacheCapacity   = 512
	DefaultPipelineTimeout = 30 * time.Minute
	DefaultAgentTimeout    = 60 * time.Second
)

// TranscriptionConfig points at a Whisper-compatible speech-to-text API.
type TranscriptionConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model,omitempty"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Timeout  time.Duration `yaml:"-"`
}

// EmbeddingConfig selects the embedding backend. With an empty endpoint the
// local hashing embedder is used.
type EmbeddingConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	LocalDim int    `yaml:"local_dim,omitempty"`
}

// RedisConfig holds optional Redis settings for the status cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// IsConfigured reports whether Redis is set up.
func (c *RedisConfig) IsConfigured() bool {
	return c != nil && c.Addr != ""
}

// Config holds the full CLI configuration.
type Config struct {
	// StorageDir is the root for per-meeting result directories.
	StorageDir string `yaml:"storage_dir"`

	// VectorDir is where the search index persists.
	VectorDir string `yaml:"vector_dir"`

	// OutputFormat is the default format for command output.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Providers is the ordered LLM failover chain.
	Providers []llm.Provider `yaml:"-"`

	// Retry tunes per-provider retry behavior.
	Retry llm.RetryPolicy `yaml:"-"`

	// CacheCapacity bounds the LLM response cache.
	CacheCapacity int `yaml:"cache_capacity,omitempty"`

	Transcription TranscriptionConfig `yaml:"transcription"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`

	// PipelineTimeout bounds one meeting end to end.
	PipelineTimeout time.Duration `yaml:"-"`

	// AgentTimeout bounds a single insight agent run.
	AgentTimeout time.Duration `yaml:"-"`

	// Database enables the Postgres results store when configured.
	Database *db.Config `yaml:"database,omitempty"`

	// Redis enables the shared status cache when configured.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns a Config with default values. Paths are left empty
// here and resolved against the config dir in LoadConfig.
func DefaultConfig() *Config {
	return &Config{
		OutputFormat:    DefaultOutputFormat,
		CacheCapacity:   DefaultCacheCapacity,
		Retry:           llm.DefaultRetryPolicy(),
		PipelineTimeout: DefaultPipelineTimeout,
		AgentTimeout:    DefaultAgentTimeout,
		Embedding:       EmbeddingConfig{LocalDim: DefaultEmbeddingDim},
	}
}

// ConfigDir returns the configuration directory path. Uses
// $INSIGHTS_CONFIG_DIR if set, otherwise ~/.meeting-insights.
func ConfigDir() (string, error) {
	if dir := os.Getenv("INSIGHTS_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// configFile mirrors Config with durations as strings for YAML.
type configFile struct {
	StorageDir    string       `yaml:"storage_dir"`
	VectorDir     string       `yaml:"vector_dir"`
	OutputFormat  OutputFormat `yaml:"output_format"`
	CacheCapacity int          `yaml:"cache_capacity"`

	Providers []struct {
		Name     string `yaml:"name"`
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"providers"`

	Retry struct {
		MaxRetries     int     `yaml:"max_retries"`
		InitialBackoff string  `yaml:"initial_backoff"`
		MaxBackoff     string  `yaml:"max_backoff"`
		BackoffFactor  float64 `yaml:"backoff_factor"`
	} `yaml:"retry"`

	Transcription struct {
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"transcription"`

	Embedding EmbeddingConfig `yaml:"embedding"`

	PipelineTimeout string `yaml:"pipeline_timeout"`
	AgentTimeout    string `yaml:"agent_timeout"`

	Database *db.Config   `yaml:"database"`
	Redis    *RedisConfig `yaml:"redis"`
	Debug    bool         `yaml:"debug"`
}

// LoadConfig loads configuration in order of precedence: defaults, then the
// config file, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if cfg.StorageDir == "" || cfg.VectorDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		if cfg.StorageDir == "" {
			cfg.StorageDir = filepath.Join(dir, DefaultStorageSubdir)
		}
		if cfg.VectorDir == "" {
			cfg.VectorDir = filepath.Join(dir, DefaultVectorSubdir)
		}
	}
	cfg.StorageDir = expandPath(cfg.StorageDir)
	cfg.VectorDir = expandPath(cfg.VectorDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc configFile
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fc.StorageDir != "" {
		cfg.StorageDir = fc.StorageDir
	}
	if fc.VectorDir != "" {
		cfg.VectorDir = fc.VectorDir
	}
	if fc.OutputFormat != "" {
		cfg.OutputFormat = fc.OutputFormat
	}
	if fc.CacheCapacity > 0 {
		cfg.CacheCapacity = fc.CacheCapacity
	}

	for _, p := range fc.Providers {
		provider := llm.Provider{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			Model:    p.Model,
			APIKey:   p.APIKey,
		}
		if p.Timeout != "" {
			d, err := time.ParseDuration(p.Timeout)
			if err != nil {
				return fmt.Errorf("parsing provider %q timeout: %w", p.Name, err)
			}
			provider.Timeout = d
		}
		cfg.Providers = append(cfg.Providers, provider)
	}

	if fc.Retry.MaxRetries > 0 {
		cfg.Retry.MaxRetries = fc.Retry.MaxRetries
	}
	if fc.Retry.BackoffFactor > 0 {
		cfg.Retry.BackoffFactor = fc.Retry.BackoffFactor
	}
	if fc.Retry.InitialBackoff != "" {
		d, err := time.ParseDuration(fc.Retry.InitialBackoff)
		if err != nil {
			return fmt.Errorf("parsing retry initial_backoff: %w", err)
		}
		cfg.Retry.InitialBackoff = d
	}
	if fc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(fc.Retry.MaxBackoff)
		if err != nil {
			return fmt.Errorf("parsing retry max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	cfg.Transcription.Endpoint = fc.Transcription.Endpoint
	cfg.Transcription.Model = fc.Transcription.Model
	cfg.Transcription.APIKey = fc.Transcription.APIKey
	if fc.Transcription.Timeout != "" {
		d, err := time.ParseDuration(fc.Transcription.Timeout)
		if err != nil {
			return fmt.Errorf("parsing transcription timeout: %w", err)
		}
		cfg.Transcription.Timeout = d
	}

	if fc.Embedding.Endpoint != "" || fc.Embedding.LocalDim > 0 {
		if fc.Embedding.LocalDim == 0 {
			fc.Embedding.LocalDim = cfg.Embedding.LocalDim
		}
		cfg.Embedding = fc.Embedding
	}

	if fc.PipelineTimeout != "" {
		d, err := time.ParseDuration(fc.PipelineTimeout)
		if err != nil {
			return fmt.Errorf("parsing pipeline_timeout: %w", err)
		}
		cfg.PipelineTimeout = d
	}
	if fc.AgentTimeout != "" {
		d, err := time.ParseDuration(fc.AgentTimeout)
		if err != nil {
			return fmt.Errorf("parsing agent_timeout: %w", err)
		}
		cfg.AgentTimeout = d
	}

	if fc.Database != nil {
		cfg.Database = fc.Database
	}
	if fc.Redis != nil {
		cfg.Redis = fc.Redis
	}
	cfg.Debug = fc.Debug
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("INSIGHTS_STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("INSIGHTS_VECTOR_DIR"); v != "" {
		cfg.VectorDir = v
	}
	if v := os.Getenv("INSIGHTS_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if v := os.Getenv("INSIGHTS_TRANSCRIPTION_ENDPOINT"); v != "" {
		cfg.Transcription.Endpoint = v
	}
	if v := os.Getenv("INSIGHTS_TRANSCRIPTION_API_KEY"); v != "" {
		cfg.Transcription.APIKey = v
	}
	if v := os.Getenv("INSIGHTS_EMBEDDING_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("INSIGHTS_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("INSIGHTS_PIPELINE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PipelineTimeout = d
		}
	}
	if v := os.Getenv("INSIGHTS_REDIS_ADDR"); v != "" {
		if cfg.Redis == nil {
			cfg.Redis = &RedisConfig{}
		}
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("INSIGHTS_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
	cfg.CacheCapacity = ParseIntEnv("INSIGHTS_CACHE_CAPACITY", cfg.CacheCapacity)
	cfg.Embedding.LocalDim = ParseIntEnv("INSIGHTS_EMBEDDING_DIM", cfg.Embedding.LocalDim)

	// Provider API keys may come from env as INSIGHTS_PROVIDER_<NAME>_API_KEY.
	for i := range cfg.Providers {
		envKey := "INSIGHTS_PROVIDER_" + strings.ToUpper(strings.ReplaceAll(cfg.Providers[i].Name, "-", "_")) + "_API_KEY"
		if v := os.Getenv(envKey); v != "" {
			cfg.Providers[i].APIKey = v
		}
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("pipeline_timeout must be positive")
	}
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("agent_timeout must be positive")
	}
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider name is required")
		}
		if p.Endpoint == "" {
			return fmt.Errorf("provider %q: endpoint is required", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// starterConfig seeds a fresh config file with commented-out examples.
const starterConfig = `# meeting-insights configuration
# Uncomment and adjust the sections you need. API keys can be stored here,
# in environment variables, or in the system keyring (insights credentials).

output_format: text
# cache_capacity: 512

# providers:
#   - name: mistral-local
#     endpoint: http://localhost:11434
#     model: mistral
#     timeout: 45s

# transcription:
#   endpoint: http://localhost:9000
#   model: whisper-large-v3
#   timeout: 5m

# embedding:
#   endpoint: http://localhost:8080
#   model: all-minilm

# redis:
#   addr: localhost:6379

# database:
#   host: localhost
#   port: 5432
#   database: insights
#   user: insights
`

// InitConfigFile creates the config directory and writes a starter config
// file. An existing file is left untouched. The second return value reports
// whether a new file was written.
func InitConfigFile() (string, bool, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", false, fmt.Errorf("creating config directory: %w", err)
	}
	path, err := ConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o600); err != nil {
		return "", false, fmt.Errorf("writing config file: %w", err)
	}
	return path, true, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ParseIntEnv reads an integer environment variable with a fallback.
func ParseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
