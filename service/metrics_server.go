package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the Prometheus registry over HTTP.
type MetricsServer struct {
	mu     sync.Mutex
	ctx    context.Context
	server *http.Server
}

func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler: hdlr,
		Addr:    addr,
	}
	m.mu.Lock()
	m.server = server
	m.ctx = ctx
	m.mu.Unlock()
	return server.ListenAndServe()
}

// Shutdown is a no-op when the server never started.
func (m *MetricsServer) Shutdown() error {
	m.mu.Lock()
	server, ctx := m.server, m.ctx
	m.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
