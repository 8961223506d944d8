package relay

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/rp-tools/rp-relay/flags"
	"github.com/rp-tools/rp-relay/types"
)

// Config holds the application configuration
type Config struct {
	Endpoint   string
	Token      string
	Project    string
	LaunchName string
	LaunchDoc  string
	LaunchTags []string
	// LaunchID joins an externally created launch; its creator finishes it.
	LaunchID string

	Input       string // Event stream path, "-" for stdin
	OutputDir   string // Runner output directory for resolving attachments
	AbortStatus types.Status
	DryRun      bool
	MaxRetries  int
	HealthzAddr string
	MetricsAddr string

	Log zerolog.Logger
}

// launchFile is the optional YAML launch settings file. Flags and env vars
// override anything set here.
type launchFile struct {
	Launch      string   `yaml:"launch"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log zerolog.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		Endpoint:    strings.TrimRight(ctx.String(flags.Endpoint.Name), "/"),
		Token:       ctx.String(flags.Token.Name),
		Project:     ctx.String(flags.Project.Name),
		LaunchName:  ctx.String(flags.Launch.Name),
		LaunchDoc:   ctx.String(flags.LaunchDoc.Name),
		LaunchTags:  ctx.StringSlice(flags.LaunchTags.Name),
		LaunchID:    ctx.String(flags.LaunchID.Name),
		Input:       ctx.String(flags.Input.Name),
		OutputDir:   ctx.String(flags.OutputDir.Name),
		DryRun:      ctx.Bool(flags.DryRun.Name),
		MaxRetries:  ctx.Int(flags.MaxRetries.Name),
		HealthzAddr: ctx.String(flags.HealthzAddr.Name),
		MetricsAddr: ctx.String(flags.MetricsAddr.Name),
		Log:         log,
	}

	if path := ctx.String(flags.LaunchConfig.Name); path != "" {
		if err := cfg.applyLaunchFile(ctx, path); err != nil {
			return nil, err
		}
	}
	if cfg.LaunchName == "" {
		return nil, errors.New("launch name is required (flag, env var or launch config file)")
	}

	abortStatus := types.Status(strings.ToUpper(ctx.String(flags.AbortStatus.Name)))
	if abortStatus != types.StatusFailed && abortStatus != types.StatusSkipped {
		return nil, fmt.Errorf("invalid abort status %q: must be FAILED or SKIPPED", abortStatus)
	}
	cfg.AbortStatus = abortStatus

	if !cfg.DryRun && cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	return cfg, nil
}

// applyLaunchFile merges the YAML launch settings under anything already set
// from flags or env vars.
func (c *Config) applyLaunchFile(ctx *cli.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read launch config %s: %w", path, err)
	}
	var lf launchFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("failed to parse launch config %s: %w", path, err)
	}

	if !ctx.IsSet(flags.Launch.Name) && lf.Launch != "" {
		c.LaunchName = lf.Launch
	}
	if !ctx.IsSet(flags.LaunchDoc.Name) && lf.Description != "" {
		c.LaunchDoc = lf.Description
	}
	if !ctx.IsSet(flags.LaunchTags.Name) && len(lf.Tags) > 0 {
		c.LaunchTags = lf.Tags
	}
	return nil
}
