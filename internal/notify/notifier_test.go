package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures deliveries.
type recordingSender struct {
	name  string
	err   error
	sends int
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.sends++
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_NoSenders(t *testing.T) {
	t.Parallel()

	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), EventTradeExecuted, "t", "m"))
}

func TestNotifier_EventFilter(t *testing.T) {
	t.Parallel()

	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, []string{EventOracleDegraded}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventTradeExecuted, "t", "m"))
	assert.Zero(t, s.sends, "filtered events are not delivered")

	require.NoError(t, n.Notify(context.Background(), EventOracleDegraded, "t", "m"))
	assert.Equal(t, 1, s.sends)
}

func TestNotifier_CollectsSenderFailures(t *testing.T) {
	t.Parallel()

	bad := &recordingSender{name: "bad", err: errors.New("webhook down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), EventTradeExecuted, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, 1, good.sends, "one failure must not block the other senders")
}

func TestDiscordSender(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Swap executed")
		got = map[string]any{"ok": true}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Swap executed", "buy 100 -> 1.98"))
	assert.NotNil(t, got)
	assert.Equal(t, "discord", s.Name())
}

func TestTelegramSender_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	s := NewTelegramSender("bad-token", "42")
	s.baseURL = srv.URL

	err := s.Send(context.Background(), "t", "m")
	assert.Error(t, err)
	assert.Equal(t, "telegram", s.Name())
}
