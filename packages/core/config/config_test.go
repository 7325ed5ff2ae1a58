package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetVerifyTLS())
	assert.True(t, cfg.GetReturnHeaders())
	assert.False(t, cfg.GetVerbose())
	assert.Equal(t, TransportAuto, cfg.Transport)
	assert.True(t, cfg.IsDefault())
	assert.NoError(t, cfg.Validate())
}

func TestGetBool_NilDefaults(t *testing.T) {
	cfg := &Config{}

	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetVerifyTLS())
	assert.False(t, cfg.GetNoColor())
}

func TestFindAndLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	content := `
timeout: 5000
verifyTLS: false
transport: socket
headers:
  X-Api-Key: secret
variables:
  host: api.test
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".httpdebug.yaml"), []byte(content), 0o644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Timeout)
	assert.False(t, cfg.GetVerifyTLS())
	assert.True(t, cfg.GetFollowRedirects(), "unset values keep their defaults")
	assert.Equal(t, TransportSocket, cfg.Transport)
	assert.Equal(t, "secret", cfg.Headers["X-Api-Key"])
	assert.Equal(t, "api.test", cfg.Variables["host"])
	assert.False(t, cfg.IsDefault())
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "httpdebug.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"maxRedirects": 3, "followRedirects": false}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxRedirects)
	assert.False(t, cfg.GetFollowRedirects())
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("transport: carrier-pigeon\n"), 0o644))
	_, err := LoadConfig(bad)
	assert.ErrorContains(t, err, "unknown transport")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))
	_, err = LoadConfig(broken)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1", "B": "1"}

	merged := base.Merge(&Config{
		Timeout:   1000,
		VerifyTLS: BoolPtr(false),
		Headers:   map[string]string{"B": "2"},
		Transport: TransportLibrary,
	})

	assert.Equal(t, 1000, merged.Timeout)
	assert.False(t, merged.GetVerifyTLS())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, TransportLibrary, merged.Transport)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, "1", base.Headers["B"], "merge must not mutate the receiver")

	assert.Same(t, base, base.Merge(nil))
}

func TestRequestOptions(t *testing.T) {
	cfg := DefaultConfig().Merge(&Config{
		Transport: TransportSocket,
		Proxy:     "http://proxy:3128",
		Headers:   map[string]string{"X-A": "1"},
		Cookie:    "a=1",
	})

	opts := cfg.RequestOptions()

	assert.Equal(t, false, opts["use_library"])
	assert.Equal(t, 30*time.Second, opts["timeout"])
	assert.Equal(t, "http://proxy:3128", opts["proxy"])
	assert.Equal(t, map[string]string{"X-A": "1"}, opts["header"])
	assert.Equal(t, "a=1", opts["cookie"])
	assert.Equal(t, 10, opts["max_redirects"])
	assert.Equal(t, true, opts["verify_tls"])
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Proxy = "http://proxy"
	cfg.Variables = map[string]string{"k": "v"}

	for _, name := range []string{"out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg, loaded, name)
	}
}
