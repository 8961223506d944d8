package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rp-tools/rp-relay/events"
	"github.com/rp-tools/rp-relay/reporting"
	"github.com/rp-tools/rp-relay/session"
)

func newStatusSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(session.Config{
		LaunchName: "nightly",
		Reporter:   reporting.NewDiscard(),
		Log:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return sess
}

func TestHandleStatusReportsSessionState(t *testing.T) {
	sess := newStatusSession(t)
	h := NewHealthzServer(sess, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, sess.StartSuite(ctx, events.Event{
		Action: events.ActionSuiteStart, Name: "s", Timestamp: time.Now(),
	}))

	rec := httptest.NewRecorder()
	h.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "open", resp.State)
	assert.Equal(t, 2, resp.OpenScopes)
	assert.NotEmpty(t, resp.LaunchID)
	assert.False(t, resp.Degraded)
}

// The relay dispatches events from one goroutine while the status endpoint
// reads from HTTP handler goroutines; the handler must only touch the
// published snapshot.
func TestHandleStatusConcurrentWithDispatch(t *testing.T) {
	sess := newStatusSession(t)
	h := NewHealthzServer(sess, zerolog.Nop())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, sess.StartSuite(ctx, events.Event{
			Action: events.ActionSuiteStart, Name: "s", Timestamp: time.Now(),
		}))
		for i := 0; i < 200; i++ {
			assert.NoError(t, sess.StartTest(ctx, events.Event{
				Action: events.ActionTestStart, Name: "t", Timestamp: time.Now(),
			}))
			assert.NoError(t, sess.EndTest(ctx, events.Event{
				Action: events.ActionTestEnd, Name: "t", Status: "PASS", Timestamp: time.Now(),
			}))
		}
		assert.NoError(t, sess.EndSuite(ctx, events.Event{
			Action: events.ActionSuiteEnd, Name: "s", Status: "PASS", Timestamp: time.Now(),
		}))
	}()

	for i := 0; i < 200; i++ {
		rec := httptest.NewRecorder()
		h.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	<-done

	rec := httptest.NewRecorder()
	h.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "closed", resp.State)
	assert.Zero(t, resp.OpenScopes)
}

func TestShutdownBeforeStart(t *testing.T) {
	sess := newStatusSession(t)
	h := NewHealthzServer(sess, zerolog.Nop())
	require.NoError(t, h.Shutdown())

	m := &MetricsServer{}
	require.NoError(t, m.Shutdown())
}
