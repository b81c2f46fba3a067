package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prolog4go.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: ichiban
logging:
  level: debug
provers:
  - name: family
    driver: trealla
    theories: [family.pl]
store:
  path: kb.db
watch:
  debounce: 1s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ichiban", cfg.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "kb.db", cfg.Store.Path)
	assert.Equal(t, "maxsat", cfg.Diagnose.Solver)

	p, ok := cfg.Prover("family")
	require.True(t, ok)
	assert.Equal(t, []string{"family.pl"}, p.Theories)
	_, ok = cfg.Prover("other")
	assert.False(t, ok)

	d, err := cfg.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDriver, "mangle")
	t.Setenv(EnvStore, "/tmp/x.db")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mangle", cfg.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.yaml":      "provers: {",
		"debounce.yaml": "watch:\n  debounce: soon\n",
		"dup.yaml":      "provers:\n  - name: a\n  - name: a\n",
		"noname.yaml":   "provers:\n  - driver: ichiban\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "trealla"
	cfg.Provers = []ProverConfig{{Name: "kb", Theories: []string{"a.pl", "b.pl"}}}

	path := filepath.Join(t.TempDir(), "nested", "prolog4go.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
