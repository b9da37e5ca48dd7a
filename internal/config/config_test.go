package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.DebounceWindow())
	assert.True(t, cfg.Editor.RealtimePreview)
	assert.Equal(t, "@every 30s", cfg.AutosaveSchedule())
	assert.Equal(t, 40, cfg.MaxRevisions())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	yml := `
data_dir: /srv/site
editor:
  debounce: 250ms
  realtime_preview: false
autosave:
  enabled: false
history:
  max_revisions: 5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow())
	assert.False(t, cfg.Editor.RealtimePreview)
	assert.Empty(t, cfg.AutosaveSchedule())
	assert.Equal(t, 5, cfg.MaxRevisions())
	assert.Equal(t, "/srv/site/pagebuilder.db", cfg.DatabaseFile())
	assert.Equal(t, "/srv/site/media", cfg.MediaDir())
	assert.Equal(t, "/media", cfg.Media.BaseURL, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAGEBUILDER_DATA_DIR", "/data")
	t.Setenv("PAGEBUILDER_DB", "/db/site.db")
	t.Setenv("PAGEBUILDER_LOG_LEVEL", "warn")
	t.Setenv("PAGEBUILDER_MEDIA_BASE_URL", "https://cdn.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "/db/site.db", cfg.DatabaseFile())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "https://cdn.example.com", cfg.Media.BaseURL)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("editor: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := DefaultConfig()
	cfg.DataDir = "/x"
	cfg.History.MaxRevisions = 7
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Editor.Debounce = "soon"
	assert.Error(t, cfg.Validate())
	assert.Equal(t, time.Second, cfg.DebounceWindow())

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}
