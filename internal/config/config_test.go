package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaultsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LABELCTL_CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.json"))
	assert.Equal(t, "default", cfg.Organisation)
	assert.Equal(t, "s1.thcdn.com", cfg.ImageCDNHost)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 0, cfg.MaxConcurrentUploads)
}

func TestLoad_FileValuesAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LABELCTL_CONFIG_DIR", dir)

	body := `{
  "base_url": "http://labels.internal:8080/",
  "catalogue_url": "http://proxy.internal",
  "organisation": "",
  "max_concurrent_uploads": 4,
  "download_dir": "~/labels-out"
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o600))

	t.Run("file values", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://labels.internal:8080", cfg.BaseURL)
		assert.Equal(t, "http://proxy.internal", cfg.CatalogueURL)
		assert.Equal(t, "default", cfg.Organisation, "empty organisation falls back to default")
		assert.Equal(t, 4, cfg.MaxConcurrentUploads)
		assert.NotContains(t, cfg.DownloadDir, "~")
		assert.Equal(t, 10.0, cfg.RequestsPerSecond, "missing keys use defaults")
	})

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("LABELCTL_CATALOGUE_TOKEN", "tok-123")
		t.Setenv("LABELCTL_BASE_URL", "http://override:9000")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "tok-123", cfg.CatalogueToken)
		assert.Equal(t, "http://override:9000", cfg.BaseURL)
	})
}

func TestPathsFollowConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LABELCTL_CONFIG_DIR", dir)

	assert.Equal(t, filepath.Join(dir, "config.json"), ConfigPath())
	assert.Equal(t, filepath.Join(dir, "uploads.db"), JournalPath())
	assert.Equal(t, filepath.Join(dir, "store"), StoreDir())
	assert.Equal(t, filepath.Join(dir, "labelctl.log"), LogPath())
}
