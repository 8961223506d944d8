package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	relay "github.com/rp-tools/rp-relay"
	"github.com/rp-tools/rp-relay/exitcodes"
	"github.com/rp-tools/rp-relay/flags"
	"github.com/rp-tools/rp-relay/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "rp-relay"
	app.Usage = "Test run reporting relay"
	app.Description = "rp-relay mirrors a runner's lifecycle event stream to a reporting backend in real time"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		switch {
		case relay.IsReportingDegradedError(err):
			cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.ReportingDegraded))
		default:
			// Protocol violations and any unspecified failure mean the run
			// did not complete cleanly.
			cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.ProtocolViolation))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		zlog.Error().Err(err).Msg("application failed")
		os.Exit(exitcodes.ProtocolViolation)
	}
}

func run(ctx *cli.Context) error {
	logger, err := newLogger(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return cli.Exit(err.Error(), exitcodes.ProtocolViolation)
	}

	// Telemetry export is best effort; a missing collector must not stop
	// the run.
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName("rp-relay"),
		otelconfig.WithServiceVersion(Version),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry disabled")
	} else {
		defer otelShutdown()
	}

	cfg, err := relay.NewConfig(ctx, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create config: %v", err), exitcodes.ProtocolViolation)
	}

	r, err := relay.New(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create relay: %v", err), exitcodes.ProtocolViolation)
	}

	svc := service.New(r.Session(), cfg.HealthzAddr, cfg.MetricsAddr, logger)
	svc.Start(ctx.Context)
	defer svc.Shutdown()

	runCtx, span := otel.Tracer("rp-relay").Start(ctx.Context, "relay.run",
		trace.WithAttributes(attribute.String("launch", cfg.LaunchName)))
	defer span.End()

	return r.Run(runCtx)
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	logger := zlog.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339Nano,
	})
	zlog.Logger = logger
	return logger, nil
}
