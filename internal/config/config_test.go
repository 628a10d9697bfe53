package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	t.Setenv("MINDBIKE_WIDTH", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Width, cfg.Width)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
width: 640
height: 480
seed: 99
analyzer:
  provider: ollama
  model: nomic-embed-text
  timeout: 5s
save_dir: out
`), 0644))
	t.Setenv("MINDBIKE_HEIGHT", "360")
	t.Setenv("MINDBIKE_ADMIN_KEY", "k")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "ollama", cfg.Analyzer.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Analyzer.Model)
	assert.Equal(t, 5*time.Second, cfg.Analyzer.Timeout)
	assert.Equal(t, "out", cfg.SaveDir)
	assert.Equal(t, "k", cfg.AdminKey)
	assert.Equal(t, Default().FPS, cfg.FPS)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("width: [1, 2"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvErrors(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"MINDBIKE_FPS":              "fast",
		"MINDBIKE_SEED":             "x",
		"MINDBIKE_ANALYZER_TIMEOUT": "soon",
		"MINDBIKE_ANALYZER_URL":     "http://model:5001",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MINDBIKE_FPS")
	assert.Contains(t, err.Error(), "MINDBIKE_SEED")
	assert.Contains(t, err.Error(), "MINDBIKE_ANALYZER_TIMEOUT")
	assert.Equal(t, "http://model:5001", cfg.Analyzer.URL)
	assert.Equal(t, Default().FPS, cfg.FPS)
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--seed", "5", "--analyzer", "backend", "--db", ""}))

	cfg := Default()
	cfg.Width = 320 // from a file, say
	require.NoError(t, cfg.ApplyFlags(fs))
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, int64(5), cfg.Seed)
	assert.Equal(t, "backend", cfg.Analyzer.Provider)
	assert.Empty(t, cfg.DBPath)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Width = 0
	cfg.FPS = 1000
	cfg.Analyzer.Provider = "magic"
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"canvas size", "fps", "magic", "loud"} {
		assert.Contains(t, err.Error(), want)
	}
}
