package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInitializesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	config, err := Parse(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written to disk")
	assert.Equal(t, defaultConfig.BaseURL, config.BaseURL)
	assert.Equal(t, 66*time.Millisecond, config.Chat.RenderInterval())
	assert.Equal(t, time.Second, config.Chat.ScrollResumeDelay())
	assert.Equal(t, 60*time.Second, config.StreamIdleTimeoutDuration())
}

func TestParseFillsMissingFieldsFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"base_url": "http://rag.internal/api/rag-chat", "chat": {"near_bottom_lines": 7}}`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	config, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "http://rag.internal/api/rag-chat", config.BaseURL)
	assert.Equal(t, 7, config.Chat.NearBottomLines)
	assert.Equal(t, defaultConfig.Chat.RenderIntervalMs, config.Chat.RenderIntervalMs)
	assert.Equal(t, defaultConfig.KnowledgeBaseURL, config.KnowledgeBaseURL)
	assert.Equal(t, defaultConfig.Server.AnswerTemplate, config.Server.AnswerTemplate)
}

func TestParseAppliesEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("RAGCHAT_BASE_URL", "http://override/api/rag-chat")
	t.Setenv("RAGCHAT_STREAM_IDLE_TIMEOUT", "-1")
	t.Setenv("RAGCHAT_SERVER_PORT", "9999")

	config, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override/api/rag-chat", config.BaseURL)
	assert.Equal(t, time.Duration(0), config.StreamIdleTimeoutDuration())
	assert.Equal(t, 9999, config.Server.Port)
}

func TestParseRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling into config")
}

func TestDefaultExpandsPaths(t *testing.T) {
	config, err := Default()
	require.NoError(t, err)
	assert.NotContains(t, config.Server.Database, "~")
	assert.NotContains(t, config.Chat.HistoryFile, "~")
}
