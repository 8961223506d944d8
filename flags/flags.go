package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "RP"

func prefixEnvVar(suffix string) []string {
	return []string{EnvVarPrefix + "_" + suffix}
}

var (
	// The backend flags are required unless --dry-run is set; CheckRequired
	// enforces that instead of the Required field.
	Endpoint = &cli.StringFlag{
		Name:    "endpoint",
		Value:   "",
		EnvVars: prefixEnvVar("ENDPOINT"),
		Usage:   "Base URL of the reporting backend (eg. 'https://rp.example.com')",
	}
	Token = &cli.StringFlag{
		Name:    "token",
		Value:   "",
		EnvVars: prefixEnvVar("UUID"),
		Usage:   "API token used as the bearer credential for the reporting backend",
	}
	Project = &cli.StringFlag{
		Name:    "project",
		Value:   "",
		EnvVars: prefixEnvVar("PROJECT"),
		Usage:   "Project name the launch is created under",
	}
	Launch = &cli.StringFlag{
		Name:    "launch",
		Value:   "",
		EnvVars: prefixEnvVar("LAUNCH"),
		Usage:   "Launch name shown on the backend",
	}
	LaunchDoc = &cli.StringFlag{
		Name:    "launch-doc",
		Value:   "",
		EnvVars: prefixEnvVar("LAUNCH_DOC"),
		Usage:   "Launch description",
	}
	LaunchTags = &cli.StringSliceFlag{
		Name:    "launch-tags",
		EnvVars: prefixEnvVar("LAUNCH_TAGS"),
		Usage:   "Tags attached to the launch (comma separated)",
	}
	LaunchID = &cli.StringFlag{
		Name:    "launch-id",
		Value:   "",
		EnvVars: prefixEnvVar("LAUNCH_ID"),
		Usage:   "Attach to an existing launch instead of starting one; whoever created it finishes it",
	}
	LaunchConfig = &cli.StringFlag{
		Name:    "launch-config",
		Value:   "",
		EnvVars: prefixEnvVar("LAUNCH_CONFIG"),
		Usage:   "Path to an optional YAML file with launch settings; flags override it",
	}
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   "-",
		EnvVars: prefixEnvVar("INPUT"),
		Usage:   "Path to the runner event stream, or '-' for stdin",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "",
		EnvVars: prefixEnvVar("OUTPUT_DIR"),
		Usage:   "Runner output directory used to resolve relative attachment paths",
	}
	AbortStatus = &cli.StringFlag{
		Name:    "abort-status",
		Value:   "FAILED",
		EnvVars: prefixEnvVar("ABORT_STATUS"),
		Usage:   "Status applied to scopes force-closed on abort (FAILED or SKIPPED)",
	}
	DryRun = &cli.BoolFlag{
		Name:    "dry-run",
		Value:   false,
		EnvVars: prefixEnvVar("DRY_RUN"),
		Usage:   "Consume the event stream without calling the reporting backend",
	}
	MaxRetries = &cli.IntFlag{
		Name:    "max-retries",
		Value:   3,
		EnvVars: prefixEnvVar("MAX_RETRIES"),
		Usage:   "Retry attempts per reporting call before the item is left unlinked",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "",
		EnvVars: prefixEnvVar("HEALTHZ_ADDR"),
		Usage:   "Address for the health endpoint (eg. ':8080'); empty disables it",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "",
		EnvVars: prefixEnvVar("METRICS_ADDR"),
		Usage:   "Address for the Prometheus metrics endpoint; empty disables it",
	}
)

var requiredFlags = []cli.Flag{
	Endpoint,
	Token,
	Project,
}

var optionalFlags = []cli.Flag{
	Launch,
	LaunchDoc,
	LaunchTags,
	LaunchID,
	LaunchConfig,
	Input,
	OutputDir,
	AbortStatus,
	DryRun,
	MaxRetries,
	LogLevel,
	HealthzAddr,
	MetricsAddr,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// CheckRequired validates that the required flags are set. In dry-run mode
// the backend credentials are not needed and the check is skipped.
func CheckRequired(ctx *cli.Context) error {
	if ctx.Bool(DryRun.Name) {
		return nil
	}
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
