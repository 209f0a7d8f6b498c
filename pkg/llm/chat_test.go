package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/pdfrag/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       "mistral",
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigInvalidTemperature(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature: 1.5,
	})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{
		Temperature: 0,
	})
	assert.Error(t, err)
}

func TestNewWithConfigInvalidMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature: 0.7,
		MaxTokens:   -1,
	})
	assert.Error(t, err)
}
