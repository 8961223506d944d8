package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rp-tools/rp-relay/session"
)

// Service bundles the optional sidecar HTTP servers that run alongside the
// relay: a health endpoint with live session status, and a Prometheus
// metrics endpoint. Either can be disabled with an empty address.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	log         zerolog.Logger
	healthzAddr string
	metricsAddr string
}

func New(sess *session.Session, healthzAddr, metricsAddr string, log zerolog.Logger) *Service {
	return &Service{
		Healthz:     NewHealthzServer(sess, log),
		Metrics:     &MetricsServer{},
		log:         log,
		healthzAddr: healthzAddr,
		metricsAddr: metricsAddr,
	}
}

func (s *Service) Start(ctx context.Context) {
	if s.healthzAddr != "" {
		go func() {
			s.log.Info().Str("addr", s.healthzAddr).Msg("starting healthz server")
			if err := s.Healthz.Start(ctx, s.healthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error().Err(err).Msg("error starting healthz server")
			}
		}()
	}

	if s.metricsAddr != "" {
		go func() {
			s.log.Info().Str("addr", s.metricsAddr).Msg("starting metrics server")
			if err := s.Metrics.Start(ctx, s.metricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error().Err(err).Msg("error starting metrics server")
			}
		}()
	}
}

func (s *Service) Shutdown() {
	if s.healthzAddr != "" {
		_ = s.Healthz.Shutdown()
		s.log.Info().Msg("healthz stopped")
	}
	if s.metricsAddr != "" {
		_ = s.Metrics.Shutdown()
		s.log.Info().Msg("metrics stopped")
	}
}
