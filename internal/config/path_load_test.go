package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{"VCINTERACT_SERVER_URL", "VCINTERACT_RIVA_GRPC", "VCINTERACT_SPEECH_CMD", "VCINTERACT_VIDEO_LIMIT_MS", "VCINTERACT_DEBUG"} {
		t.Setenv(key, "")
	}
}

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "vcinteract", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "vcinteract", "config.jsonc"), resolved)
}

func TestResolveCacheAndMediaDirs(t *testing.T) {
	cfg := Default()
	cfg.Capture.CacheDir = "/var/tmp/vc"
	dir, err := ResolveCacheDir(cfg)
	require.NoError(t, err)
	require.Equal(t, "/var/tmp/vc", dir)

	cache := t.TempDir()
	state := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Setenv("XDG_STATE_HOME", state)

	dir, err = ResolveCacheDir(Default())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cache, "vcinteract"), dir)

	dir, err = ResolveMediaDir(Default())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(state, "vcinteract", "media"), dir)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	clearEnvOverrides(t)
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	clearEnvOverrides(t)
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "server": {
    "base_url": "http://192.168.1.20:8000/"
  },
  "indicator": {
    "sound_enable": false
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "http://192.168.1.20:8000/", loaded.Config.Server.BaseURL)
	require.False(t, loaded.Config.Indicator.SoundEnable)
}

func TestLoadYAMLByExtension(t *testing.T) {
	clearEnvOverrides(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
server:
  base_url: http://10.1.1.1:8000/
  retry_on_connection_failure: false
speech:
  chunk_size: 1200
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://10.1.1.1:8000/", loaded.Config.Server.BaseURL)
	require.False(t, loaded.Config.Server.RetryOnConnectionFailure)
	require.Equal(t, 1200, loaded.Config.Speech.ChunkSize)
}

func TestLoadYAMLRejectsUnknownField(t *testing.T) {
	clearEnvOverrides(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  bogus: 1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bogus")
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("VCINTERACT_SERVER_URL", "http://override:9000/")
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://override:9000/", loaded.Config.Server.BaseURL)
}

func TestLoadRejectsInvalidEnvOverride(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("VCINTERACT_SERVER_URL", "not a url")
	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "VCINTERACT_SERVER_URL")
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}
