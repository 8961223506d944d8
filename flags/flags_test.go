package flags

import (
	"flag"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, f := range Flags {
		name := f.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestHasEnvVar(t *testing.T) {
	for _, f := range Flags {
		flagName := f.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlag, ok := f.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "flag %s does not support env vars", flagName)
			envVars := envFlag.GetEnvVars()
			require.Len(t, envVars, 1)
			assert.True(t, strings.HasPrefix(envVars[0], EnvVarPrefix+"_"))
		})
	}
}

func TestCheckRequired(t *testing.T) {
	newCtx := func(args map[string]string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		for _, f := range Flags {
			require.NoError(t, f.Apply(set))
		}
		for name, value := range args {
			require.NoError(t, set.Set(name, value))
		}
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	t.Run("all required set", func(t *testing.T) {
		ctx := newCtx(map[string]string{
			"endpoint": "https://rp.example.com",
			"token":    "secret",
			"project":  "demo",
		})
		require.NoError(t, CheckRequired(ctx))
	})

	t.Run("missing token", func(t *testing.T) {
		ctx := newCtx(map[string]string{
			"endpoint": "https://rp.example.com",
			"project":  "demo",
		})
		err := CheckRequired(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token")
	})

	t.Run("dry run needs no backend", func(t *testing.T) {
		ctx := newCtx(map[string]string{"dry-run": "true"})
		require.NoError(t, CheckRequired(ctx))
	})
}
