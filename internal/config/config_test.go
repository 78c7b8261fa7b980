package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 0, cfg.Engine.TimeBudgetSecs)
	assert.Equal(t, 5000, cfg.Engine.ImportBatchSize)
	assert.Equal(t, 5, cfg.Classify.SizeSmallMax)
	assert.Equal(t, 20, cfg.Classify.SizeMediumMax)
	assert.InDelta(t, 5000, cfg.Classify.RevenueLowMax, 0.001)
	assert.InDelta(t, 25000, cfg.Classify.RevenueGrowingMax, 0.001)
	assert.InDelta(t, 100000, cfg.Classify.RevenueMediumMax, 0.001)
	assert.Equal(t, 90, cfg.Classify.ActiveDays)
	assert.Equal(t, 365, cfg.Classify.RecentDays)
	assert.Equal(t, 730, cfg.Classify.DormantDays)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: file:consolidate.db
rules:
  path: /etc/consolidate/rules.yaml
classify:
  revenue_low_max: 1000
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "file:consolidate.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "/etc/consolidate/rules.yaml", cfg.Rules.Path)
	assert.InDelta(t, 1000, cfg.Classify.RevenueLowMax, 0.001)
	// Untouched defaults survive partial overrides.
	assert.InDelta(t, 25000, cfg.Classify.RevenueGrowingMax, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chtemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [broken"), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
