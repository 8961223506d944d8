package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/rp-tools/rp-relay/session"
)

// HealthzServer serves liveness plus a status snapshot of the running
// session, so operators can see launch progress without the backend UI.
type HealthzServer struct {
	mu     sync.Mutex
	ctx    context.Context
	server *http.Server

	sess *session.Session
	log  zerolog.Logger
}

type statusResponse struct {
	State       string `json:"state"`
	LaunchID    string `json:"launch_id,omitempty"`
	OpenScopes  int    `json:"open_scopes"`
	Degraded    bool   `json:"degraded"`
	DroppedLogs int    `json:"dropped_logs"`
}

func NewHealthzServer(sess *session.Session, log zerolog.Logger) *HealthzServer {
	return &HealthzServer{sess: sess, log: log}
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	server := &http.Server{
		Handler: c.Handler(r),
		Addr:    addr,
	}
	h.mu.Lock()
	h.server = server
	h.ctx = ctx
	h.mu.Unlock()
	return server.ListenAndServe()
}

// Shutdown is a no-op when the server never started, which happens when the
// run finishes before the listener goroutine gets scheduled.
func (h *HealthzServer) Shutdown() error {
	h.mu.Lock()
	server, ctx := h.server, h.ctx
	h.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (h *HealthzServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK")) //nolint:errcheck
}

func (h *HealthzServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	// The relay goroutine owns the session; only the published snapshot is
	// safe to read from here.
	snap := h.sess.Snapshot()
	resp := statusResponse{
		State:       snap.State.String(),
		LaunchID:    snap.Summary.LaunchID,
		OpenScopes:  snap.OpenScopes,
		Degraded:    snap.Summary.Degraded,
		DroppedLogs: snap.Summary.DroppedLogs,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("failed to write status response")
	}
}
