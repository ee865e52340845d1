package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INSIGHTS_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0o600))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("INSIGHTS_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, OutputFormatText, cfg.OutputFormat)
	assert.Equal(t, DefaultPipelineTimeout, cfg.PipelineTimeout)
	assert.Equal(t, DefaultAgentTimeout, cfg.AgentTimeout)
	assert.Equal(t, DefaultEmbeddingDim, cfg.Embedding.LocalDim)
	assert.Contains(t, cfg.StorageDir, DefaultStorageSubdir)
	assert.Contains(t, cfg.VectorDir, DefaultVectorSubdir)
	assert.Empty(t, cfg.Providers)
}

func TestLoadConfigFromFile(t *testing.T) {
	writeConfig(t, `
storage_dir: /data/meetings
output_format: json
cache_capacity: 128
providers:
  - name: mistral-local
    endpoint: http://localhost:11434
    model: mistral
    timeout: 45s
  - name: backup
    endpoint: https://api.example.com
    model: gpt-4o-mini
    api_key: key-123
retry:
  max_retries: 3
  initial_backoff: 250ms
transcription:
  endpoint: http://localhost:9000
  model: whisper-large-v3
  timeout: 5m
embedding:
  endpoint: http://localhost:8080
  model: all-minilm
pipeline_timeout: 20m
agent_timeout: 30s
redis:
  addr: localhost:6379
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/data/meetings", cfg.StorageDir)
	assert.Equal(t, OutputFormatJSON, cfg.OutputFormat)
	assert.Equal(t, 128, cfg.CacheCapacity)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "mistral-local", cfg.Providers[0].Name)
	assert.Equal(t, 45*time.Second, cfg.Providers[0].Timeout)
	assert.Equal(t, "key-123", cfg.Providers[1].APIKey)

	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialBackoff)

	assert.Equal(t, "http://localhost:9000", cfg.Transcription.Endpoint)
	assert.Equal(t, 5*time.Minute, cfg.Transcription.Timeout)
	assert.Equal(t, "http://localhost:8080", cfg.Embedding.Endpoint)
	assert.Equal(t, 20*time.Minute, cfg.PipelineTimeout)
	assert.Equal(t, 30*time.Second, cfg.AgentTimeout)
	require.NotNil(t, cfg.Redis)
	assert.True(t, cfg.Redis.IsConfigured())
}

func TestEnvOverridesFile(t *testing.T) {
	writeConfig(t, `
storage_dir: /data/meetings
providers:
  - name: mistral-local
    endpoint: http://localhost:11434
    model: mistral
`)
	t.Setenv("INSIGHTS_STORAGE_DIR", "/env/meetings")
	t.Setenv("INSIGHTS_OUTPUT_FORMAT", "yaml")
	t.Setenv("INSIGHTS_PROVIDER_MISTRAL_LOCAL_API_KEY", "env-key")
	t.Setenv("INSIGHTS_CACHE_CAPACITY", "64")
	t.Setenv("INSIGHTS_EMBEDDING_DIM", "128")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/env/meetings", cfg.StorageDir)
	assert.Equal(t, OutputFormatYAML, cfg.OutputFormat)
	assert.Equal(t, "env-key", cfg.Providers[0].APIKey)
	assert.Equal(t, 64, cfg.CacheCapacity)
	assert.Equal(t, 128, cfg.Embedding.LocalDim)
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("INSIGHTS_TEST_INT", "42")
	assert.Equal(t, 42, ParseIntEnv("INSIGHTS_TEST_INT", 7))

	// Malformed and unset values fall back.
	t.Setenv("INSIGHTS_TEST_INT", "not-a-number")
	assert.Equal(t, 7, ParseIntEnv("INSIGHTS_TEST_INT", 7))
	assert.Equal(t, 7, ParseIntEnv("INSIGHTS_TEST_INT_UNSET", 7))
}

func TestInitConfigFile(t *testing.T) {
	// A nested dir that does not exist yet proves the directory gets created.
	dir := filepath.Join(t.TempDir(), "nested")
	t.Setenv("INSIGHTS_CONFIG_DIR", dir)

	path, created, err := InitConfigFile()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(dir, DefaultConfigFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "output_format: text")

	// A second init leaves the existing file alone.
	require.NoError(t, os.WriteFile(path, []byte("output_format: json\n"), 0o600))
	_, created, err = InitConfigFile()
	require.NoError(t, err)
	assert.False(t, created)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, cfg.OutputFormat)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad output format", "output_format: xml"},
		{"provider missing endpoint", "providers:\n  - name: p1\n    model: m"},
		{"duplicate provider", "providers:\n  - name: p1\n    endpoint: http://a\n  - name: p1\n    endpoint: http://b"},
		{"bad duration", "pipeline_timeout: soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.content)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestOutputFormatIsValid(t *testing.T) {
	assert.True(t, OutputFormatText.IsValid())
	assert.True(t, OutputFormatJSON.IsValid())
	assert.True(t, OutputFormatYAML.IsValid())
	assert.False(t, OutputFormat("xml").IsValid())
}
