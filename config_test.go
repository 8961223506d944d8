package relay

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/rp-tools/rp-relay/flags"
	"github.com/rp-tools/rp-relay/types"
)

func newCLIContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags.Flags {
		require.NoError(t, f.Apply(set))
	}
	for name, value := range args {
		require.NoError(t, set.Set(name, value))
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestNewConfigFromFlags(t *testing.T) {
	ctx := newCLIContext(t, map[string]string{
		"endpoint":  "https://rp.example.com/",
		"token":     "secret",
		"project":   "demo",
		"launch":    "nightly",
		"launch-id": "ext-42",
	})

	cfg, err := NewConfig(ctx, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com", cfg.Endpoint, "trailing slash is trimmed")
	assert.Equal(t, "nightly", cfg.LaunchName)
	assert.Equal(t, "ext-42", cfg.LaunchID)
	assert.Equal(t, types.StatusFailed, cfg.AbortStatus)
	assert.False(t, cfg.DryRun)
}

func TestNewConfigRequiresLaunchName(t *testing.T) {
	ctx := newCLIContext(t, map[string]string{
		"endpoint": "https://rp.example.com",
		"token":    "secret",
		"project":  "demo",
	})

	_, err := NewConfig(ctx, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch name")
}

func TestNewConfigLaunchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launch.yaml")
	content := `launch: smoke
description: smoke run
tags:
  - ci
  - smoke
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Run("file fills unset values", func(t *testing.T) {
		ctx := newCLIContext(t, map[string]string{
			"endpoint":      "https://rp.example.com",
			"token":         "secret",
			"project":       "demo",
			"launch-config": path,
		})

		cfg, err := NewConfig(ctx, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "smoke", cfg.LaunchName)
		assert.Equal(t, "smoke run", cfg.LaunchDoc)
		assert.Equal(t, []string{"ci", "smoke"}, cfg.LaunchTags)
	})

	t.Run("flags override the file", func(t *testing.T) {
		ctx := newCLIContext(t, map[string]string{
			"endpoint":      "https://rp.example.com",
			"token":         "secret",
			"project":       "demo",
			"launch":        "nightly",
			"launch-config": path,
		})

		cfg, err := NewConfig(ctx, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "nightly", cfg.LaunchName)
		assert.Equal(t, "smoke run", cfg.LaunchDoc, "unset fields still come from the file")
	})

	t.Run("unreadable file", func(t *testing.T) {
		ctx := newCLIContext(t, map[string]string{
			"endpoint":      "https://rp.example.com",
			"token":         "secret",
			"project":       "demo",
			"launch-config": filepath.Join(t.TempDir(), "missing.yaml"),
		})

		_, err := NewConfig(ctx, zerolog.Nop())
		require.Error(t, err)
	})
}

func TestNewConfigInvalidAbortStatus(t *testing.T) {
	ctx := newCLIContext(t, map[string]string{
		"endpoint":     "https://rp.example.com",
		"token":        "secret",
		"project":      "demo",
		"launch":       "nightly",
		"abort-status": "PASSED",
	})

	_, err := NewConfig(ctx, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abort status")
}

func TestNewConfigDryRunNeedsNoBackend(t *testing.T) {
	ctx := newCLIContext(t, map[string]string{
		"dry-run": "true",
		"launch":  "nightly",
	})

	cfg, err := NewConfig(ctx, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
	assert.Empty(t, cfg.Endpoint)
}
