package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"qzxopt/internal/zx"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qzx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, zx.AllRules, s.Order)
	assert.True(t, s.GraphLike)
	assert.Equal(t, zapcore.InfoLevel, cfg.ZapLevel())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
simplify:
  rule_order: [pivot, fusion]
  max_rounds: 50
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"pivot", "fusion"}, cfg.Simplify.RuleOrder)
	assert.Equal(t, 50, cfg.Simplify.MaxRounds)
	assert.True(t, cfg.Simplify.GraphLike, "unset keys keep their default")
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, zapcore.DebugLevel, cfg.ZapLevel())

	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, []zx.RuleKind{zx.Pivoting, zx.Fusion}, s.Order)
	assert.Equal(t, 50, s.MaxRounds)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown rule", "simplify:\n  rule_order: [fusion, bialgebra]\n"},
		{"duplicate rule", "simplify:\n  rule_order: [fusion, fusion]\n"},
		{"empty order", "simplify:\n  rule_order: []\n"},
		{"negative rounds", "simplify:\n  max_rounds: -1\n"},
		{"zero workers", "pipeline:\n  workers: 0\n"},
		{"huge verify", "pipeline:\n  verify_max_qubits: 40\n"},
		{"bad level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeFile(t, "simplify: [not, a, map"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "qzx.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	require.Error(t, WriteDefault(path), "existing file is not overwritten")
}
