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

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30, cfg.Viewer.FPS)
	assert.Equal(t, 15*time.Second, cfg.Viewer.LoadTimeout)
	assert.Equal(t, 45.0, cfg.Viewer.FOV)
	assert.Equal(t, "#1a1a2e", cfg.Viewer.Background)
	assert.Equal(t, 0.05, cfg.Viewer.Damping)
	assert.Equal(t, "gmsh", cfg.Decoder.STEP.Command)
	assert.True(t, cfg.Decoder.STEP.Enabled)
	assert.Equal(t, "catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
viewer:
  fps: 60
  load_timeout: 5s
  background: "#000000"
decoder:
  step:
    command: /opt/mesher
    args: ["{input}", "-o", "{output}"]
catalog:
  path: /srv/catalog.yaml
server:
  addr: ":9000"
logging:
  level: debug
  log_file: designview.log
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath))

	assert.Equal(t, 60, cfg.Viewer.FPS)
	assert.Equal(t, 5*time.Second, cfg.Viewer.LoadTimeout)
	assert.Equal(t, "#000000", cfg.Viewer.Background)
	assert.Equal(t, 45.0, cfg.Viewer.FOV, "unset keys keep defaults")
	assert.Equal(t, "/opt/mesher", cfg.Decoder.STEP.Command)
	assert.Equal(t, []string{"{input}", "-o", "{output}"}, cfg.Decoder.STEP.Args)
	assert.Equal(t, "/srv/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, "designs", cfg.Catalog.StorageDir)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "designview.log", cfg.Logging.LogFile)
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("viewer:\n  fps: lots\n  nope here\n"), 0o644))

	assert.Error(t, loadFromFile(Default(), configPath))
	assert.Error(t, loadFromFile(Default(), "/nonexistent/path/config.yaml"))
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("viewer:\n  fps: 60\ncatalog:\n  path: from-file.yaml\n"), 0o644))

	var flags Flags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Register(fs)
	require.NoError(t, fs.Parse([]string{
		"--config", configPath,
		"--fps", "12",
		"--debug",
		"--mesher", "",
	}))

	cfg, err := Load(&flags)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Viewer.FPS)
	assert.Equal(t, "from-file.yaml", cfg.Catalog.Path, "unset flag keeps file value")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Decoder.STEP.Enabled, "empty mesher disables STEP")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(&Flags{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir), "ConfigDir should be absolute, got %s", dir)
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Server.Addr = ":7000"
	cfg.Decoder.STEP.Args = []string{"{input}", "{output}"}
	require.NoError(t, cfg.SaveTo(path))

	loaded := Default()
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}
