package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SHOTLIST_AI_BASE_URL", "")
	t.Setenv("SHOTLIST_WORK_DIR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.AI.BatchSize)
	assert.Equal(t, 0.3, cfg.FFmpeg.SceneThreshold)
	assert.Equal(t, 5.0, cfg.Sampler.MaxGap)
	assert.Equal(t, 2*time.Second, cfg.AI.MinCallInterval)
	assert.False(t, cfg.Transcription.Required)
	assert.True(t, cfg.Report.DeriveInsights)
}

func TestLoadOverridesFromFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
work_dir: /tmp/custom
ai:
  batch_size: 4
  min_call_interval: 500ms
download:
  timeout: 90s
sampler:
  allow_partial: true
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom", cfg.WorkDir)
	assert.Equal(t, 4, cfg.AI.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.AI.MinCallInterval)
	assert.Equal(t, 90*time.Second, cfg.Download.Timeout)
	assert.True(t, cfg.Sampler.AllowPartial)
	// untouched keys keep their defaults
	assert.Equal(t, "whisper-1", cfg.AI.TranscriptionModel)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SHOTLIST_AI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("SHOTLIST_WORK_DIR", "/var/tmp/shots")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.BaseURL)
	assert.Equal(t, "/var/tmp/shots", cfg.WorkDir)
}

func TestSaveRedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.AI.APIKey = "sk-secret"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Contains(t, string(data), "min_call_interval: 2s")
	assert.Equal(t, "sk-secret", cfg.AI.APIKey)
}

func TestSaveThenLoadLeavesAPIKeyEmpty(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Default()
	cfg.AI.APIKey = "sk-secret"
	cfg.Concurrency = 4

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.AI.APIKey)
	assert.Equal(t, 4, loaded.Concurrency)
}

func TestMarshalRedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.AI.APIKey = "sk-secret"

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<redacted>")
	assert.NotContains(t, string(data), "sk-secret")

	cfg.AI.APIKey = ""
	data, err = cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<redacted>")
}

func TestContextRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 7

	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, 2, FromContext(context.Background()).Concurrency)
}
