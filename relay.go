package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/rp-tools/rp-relay/events"
	"github.com/rp-tools/rp-relay/reporting"
	"github.com/rp-tools/rp-relay/session"
)

// Relay consumes a runner lifecycle event stream and mirrors it to the
// reporting backend through a session. One relay instance serves one run.
type Relay struct {
	cfg     *Config
	log     zerolog.Logger
	session *session.Session
	client  *reporting.Client // nil in dry-run mode
}

func New(cfg *Config) (*Relay, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	var (
		reporter reporting.Reporter
		client   *reporting.Client
	)
	if cfg.DryRun {
		cfg.Log.Info().Msg("dry-run mode, reporting calls are discarded")
		reporter = reporting.NewDiscard()
	} else {
		var err error
		client, err = reporting.NewClient(reporting.ClientConfig{
			Endpoint:   cfg.Endpoint,
			Project:    cfg.Project,
			Token:      cfg.Token,
			MaxRetries: cfg.MaxRetries,
			Log:        cfg.Log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create reporting client: %w", err)
		}
		reporter = client
	}

	var formatter *events.Formatter
	if cfg.OutputDir != "" {
		formatter = &events.Formatter{OutputDir: cfg.OutputDir}
	}

	sess, err := session.New(session.Config{
		LaunchName:  cfg.LaunchName,
		LaunchDoc:   cfg.LaunchDoc,
		LaunchTags:  cfg.LaunchTags,
		LaunchID:    cfg.LaunchID,
		AbortStatus: cfg.AbortStatus,
		Reporter:    reporter,
		Formatter:   formatter,
		Log:         cfg.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Relay{
		cfg:     cfg,
		log:     cfg.Log,
		session: sess,
		client:  client,
	}, nil
}

// Session exposes the underlying session, primarily for the sidecar status
// endpoint.
func (r *Relay) Session() *session.Session {
	return r.session
}

// Run consumes the configured event stream to completion. It blocks until
// the stream ends or ctx is canceled; on cancellation the open scopes are
// force-closed so the backend is not left with items running forever.
//
// The returned error maps directly to the process exit code: nil for a
// clean run, *ReportingDegradedError when reporting calls were lost, and
// *ProtocolViolationError for a malformed event stream.
func (r *Relay) Run(ctx context.Context) error {
	in, closeIn, err := r.openInput()
	if err != nil {
		return NewProtocolViolationError(err)
	}
	defer closeIn()

	dec := events.NewDecoder(in, r.log)
	if err := r.consume(ctx, dec); err != nil {
		// The stream is unusable; close what we opened before bailing.
		if abortErr := r.session.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			r.log.Error().Err(abortErr).Msg("failed to abort open scopes")
		}
		r.printSummary()
		return NewProtocolViolationError(err)
	}

	if err := r.session.Close(context.WithoutCancel(ctx)); err != nil {
		r.printSummary()
		return NewProtocolViolationError(err)
	}

	r.printSummary()

	summary := r.session.Summary()
	if summary.Degraded {
		return NewReportingDegradedError("one or more reporting calls failed, backend results are incomplete")
	}
	return nil
}

func (r *Relay) consume(ctx context.Context, dec *events.Decoder) error {
	for {
		select {
		case <-ctx.Done():
			r.log.Warn().Msg("run canceled, aborting open scopes")
			return ctx.Err()
		default:
		}

		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			if dropped := dec.Dropped(); dropped > 0 {
				r.log.Warn().Int("dropped", dropped).Msg("event stream contained malformed lines")
			}
			return nil
		}
		if err != nil {
			return err
		}

		if err := session.Dispatch(ctx, r.session, ev); err != nil {
			return err
		}
	}
}

func (r *Relay) openInput() (io.Reader, func(), error) {
	if r.cfg.Input == "" || r.cfg.Input == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(r.cfg.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func (r *Relay) printSummary() {
	summary := r.session.Summary()
	fmt.Println(formatSummaryTable(summary))
	if r.client != nil && summary.LaunchID != "" {
		fmt.Printf("Launch: %s\n", r.client.LaunchURL(summary.LaunchID))
	}
}
