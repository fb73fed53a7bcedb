package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 6, cfg.Chat.HistoryWindow)
	assert.Equal(t, 2*time.Minute, cfg.Chat.InflightTTL)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "key-from-env", cfg.Gemini.APIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := "app:\n  port: \"9000\"\nchat:\n  history_window: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, 4, cfg.Chat.HistoryWindow)
}
