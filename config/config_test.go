package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lookout/errors"
)

// isolateConfigEnv points HOME and XDG_CONFIG_HOME at an empty directory so
// tests never pick up a real user config.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	fakeHome := t.TempDir()
	t.Setenv("HOME", fakeHome)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(fakeHome, ".config"))
}

func TestLoad(t *testing.T) {
	isolateConfigEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lookout.yml")
	content := `
version: "1.0"
observer:
  debounce_ms: 250
  ignore:
    - "*.tmp"
  sort: name
  descending: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, path, cfg.Path)
	assert.Contains(t, cfg.Extensions, "observer")
	assert.Contains(t, cfg.Extensions, "logging")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yml"))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(bad, []byte("version: [unclosed"), 0644))
		_, err := Load(bad)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
	})
}

func TestUnmarshalExtension(t *testing.T) {
	isolateConfigEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "lookout.yml")
	content := `
version: "1.0"
observer:
  debounce_ms: 250
  sort: modtime
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)

	type obsSection struct {
		DebounceMs int    `yaml:"debounce_ms"`
		Sort       string `yaml:"sort"`
	}

	var section obsSection
	require.NoError(t, cfg.UnmarshalExtension("observer", &section))
	assert.Equal(t, 250, section.DebounceMs)
	assert.Equal(t, "modtime", section.Sort)

	t.Run("absent section stays zero valued", func(t *testing.T) {
		var missing obsSection
		require.NoError(t, cfg.UnmarshalExtension("nonexistent", &missing))
		assert.Zero(t, missing.DebounceMs)
	})
}

func TestEnvVarExpansion(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LOOKOUT_TEST_SORT", "name")
	dir := t.TempDir()
	path := filepath.Join(dir, "lookout.yml")
	content := `
version: "1.0"
observer:
  sort: ${LOOKOUT_TEST_SORT}
  fallback: ${LOOKOUT_TEST_UNSET:-default-value}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	var section struct {
		Sort     string `yaml:"sort"`
		Fallback string `yaml:"fallback"`
	}
	require.NoError(t, cfg.UnmarshalExtension("observer", &section))
	assert.Equal(t, "name", section.Sort)
	assert.Equal(t, "default-value", section.Fallback)
}

func TestFindConfigFileWalksUp(t *testing.T) {
	isolateConfigEnv(t)
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))
	expected := filepath.Join(root, "lookout.yml")
	require.NoError(t, os.WriteFile(expected, []byte("version: \"1.0\"\n"), 0644))

	found, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, expected, found)
}

func TestLoadFromWithoutConfigReturnsDefaults(t *testing.T) {
	isolateConfigEnv(t)
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Version)
	assert.Empty(t, cfg.Path)
}
