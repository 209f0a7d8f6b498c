package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "mistral"
  embed_model: "nomic-embed-text:latest"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  vector_dim: 768
  search_limit: 5

storage:
  bucket: "pdf-uploads"
  region: "eu-west-1"

processor:
  chunk_size: 500
  chunk_overlap: 100

server:
  port: "9090"
  timeout_seconds: 30
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "pdf-uploads", config.Storage.Bucket)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 30, config.Server.TimeoutSeconds)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "nomic-embed-text:latest", config.LLM.EmbedModel)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 0, config.Processor.ChunkOverlap)
	assert.Equal(t, "public/", config.Storage.KeyPrefix)
	assert.Equal(t, "8080", config.Server.Port)
}

func TestConfigValidation(t *testing.T) {
	valid, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Empty(t, valid.Validate())

	invalid, err := getDefaultConfig()
	require.NoError(t, err)
	invalid.LLM.BaseURL = ""
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Database.VectorDim = -1
	invalid.Processor.ChunkOverlap = invalid.Processor.ChunkSize

	errors := invalid.Validate()
	assert.Len(t, errors, 5)

	messages := make([]string, 0, len(errors))
	for _, e := range errors {
		messages = append(messages, e.Error())
	}
	assert.Contains(t, messages, "llm.base_url: Ollama base URL is required")
	assert.Contains(t, messages, "llm.max_tokens: max_tokens must be between 1 and 4096")
	assert.Contains(t, messages, "llm.temperature: temperature must be between 0 and 2")
	assert.Contains(t, messages, "database.vector_dim: vector_dim must be positive")
	assert.Contains(t, messages, "processor.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size")
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	os.Setenv("BUCKET_NAME", "env-bucket")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("BUCKET_NAME")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "env-bucket", config.Storage.Bucket)
}
