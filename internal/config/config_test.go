package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.Equal(t, "egghunt.db", cfg.DBPath)
	assert.Equal(t, 60*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.ScriptTimeout)
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EGGHUNT_ADDR", ":9000")
	t.Setenv("EGGHUNT_LOG_LEVEL", "debug")
	t.Setenv("EGGHUNT_SCAN_WORKERS", "3")
	t.Setenv("EGGHUNT_SCAN_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 3, cfg.ScanWorkers)
	assert.Equal(t, 2*time.Second, cfg.ScanTimeout)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("EGGHUNT_SCAN_WORKERS", "many")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("EGGHUNT_SCAN_WORKERS", "-1")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("EGGHUNT_SCAN_WORKERS", "1")
	t.Setenv("EGGHUNT_LOG_LEVEL", "chatty")
	_, err = Load()
	assert.Error(t, err)
}
