package config

import (
	"os"
	"path/filepath"
	"testing"

	"blend-lens/pkg/analyzer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Output.Types)
	assert.True(t, cfg.Output.Data)
	assert.False(t, cfg.Output.RawPointers)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, analyzer.DefaultPaddingPattern, cfg.Heuristics.PaddingPattern)

	opts, err := cfg.PrinterOptions()
	require.NoError(t, err)
	assert.True(t, opts.TypeCatalog)
	assert.True(t, opts.Data)
	assert.True(t, opts.Heuristics.IsStringLike("filepath"))
	assert.True(t, opts.Heuristics.IsPadding("_pad3"))
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
output:
  types: false
  raw_pointers: true
  block_digest: true
log:
  level: debug
heuristics:
  flag_contains: [Mode]
  padding_pattern: '^gap\d*$'
`))
	require.NoError(t, err)
	assert.False(t, cfg.Output.Types)
	assert.True(t, cfg.Output.Data)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts, err := cfg.PrinterOptions()
	require.NoError(t, err)
	assert.False(t, opts.TypeCatalog)
	assert.True(t, opts.RawPointers)
	assert.True(t, opts.BlockDigest)
	assert.True(t, opts.Heuristics.IsFlagLike("blend_mode"))
	assert.False(t, opts.Heuristics.IsFlagLike("flag"))
	assert.True(t, opts.Heuristics.IsPadding("gap2"))
	assert.False(t, opts.Heuristics.IsPadding("pad"))
	// Lists that were not given keep their defaults
	assert.True(t, opts.Heuristics.IsStringLike("title"))
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":    "output:\n  colour: true\n",
		"bad level":      "log:\n  level: loud\n",
		"bad pattern":    "heuristics:\n  padding_pattern: '('\n",
		"wrong type":     "output:\n  types: maybe\n",
		"top level typo": "ouput: {}\n",
		"not a mapping":  "- a\n- b\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blend-lens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	t.Setenv(EnvFile, "")
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	t.Setenv(EnvFile, path)
	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)

	// An explicit path wins over the environment
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("log:\n  level: info\n"), 0o644))
	cfg, err = Resolve(other)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)

	_, err = Resolve(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
