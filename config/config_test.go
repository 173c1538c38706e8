package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := ParseFlags([]string{"-token-secret", "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:80", cfg.Addr)
	assert.Equal(t, "http://localhost:80", cfg.Url())
	assert.Equal(t, 8, cfg.PageSize)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.EscapeAnswers)
}

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("FORMFLOW_PORT", "9000")
	t.Setenv("FORMFLOW_TOKEN_SECRET", "from-env")
	t.Setenv("FORMFLOW_ESCAPE_ANSWERS", "true")

	cfg, err := ParseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "from-env", cfg.TokenSecret)
	assert.True(t, cfg.EscapeAnswers)
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("FORMFLOW_PORT", "9000")

	cfg, err := ParseFlags([]string{"-port", "8080", "-token-secret", "x", "-page-size", "4", "-debug"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, 4, cfg.PageSize)
	assert.True(t, cfg.Debug)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := ParseFlags(nil)
	assert.EqualError(t, err, "missing parameter -token-secret")

	_, err = ParseFlags([]string{"-token-secret", "x", "-page-size", "0"})
	assert.Error(t, err)
}

func TestParseFlags_IgnoresDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FORMFLOW_TOKEN_SECRET=from-dotenv\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	_, err = ParseFlags(nil)
	assert.EqualError(t, err, "missing parameter -token-secret")
	_, set := os.LookupEnv("FORMFLOW_TOKEN_SECRET")
	assert.False(t, set, "parsing flags must not load .env into the environment")
}
