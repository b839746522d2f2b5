package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, 150*time.Second, cfg.BackendTimeout)
	assert.True(t, cfg.DetectGender)
	assert.Equal(t, 5*time.Second, cfg.VideoPollInterval)
	assert.Equal(t, 120, cfg.VideoPollMaxAttempts)
	assert.Equal(t, int64(256<<20), cfg.DownloadCacheMaxBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("BACKEND_URL=http://api:3000\nDETECT_GENDER=false\nCORS_ORIGINS=http://a,http://b\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("BACKEND_URL")
		os.Unsetenv("DETECT_GENDER")
		os.Unsetenv("CORS_ORIGINS")
	})
	t.Setenv("VIDEO_POLL_INTERVAL", "1s")

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "http://api:3000", cfg.BackendURL)
	assert.False(t, cfg.DetectGender)
	assert.Equal(t, time.Second, cfg.VideoPollInterval)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadPolling(t *testing.T) {
	t.Setenv("VIDEO_POLL_MAX_ATTEMPTS", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "app.log")
	closer, err := InitLogger(&Config{LogLevel: "debug", LogFile: path})
	require.NoError(t, err)
	logrus.Info("hello")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	_, err = InitLogger(&Config{LogLevel: "loud"})
	assert.Error(t, err)
}
