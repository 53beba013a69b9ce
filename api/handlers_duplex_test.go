package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/transport"
)

func TestDuplexChannel_AcceptsAndBroadcasts(t *testing.T) {
	broadcaster := transport.New(zap.NewNop())
	t.Cleanup(func() { _ = broadcaster.Close() })

	h := &handlers{d: &Deps{Broadcaster: broadcaster, Logger: zap.NewNop()}}

	srv := httptest.NewServer(http.HandlerFunc(h.duplexChannel))
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.Dial(t.Context(), wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	require.Eventually(t, broadcaster.HasConnection, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, broadcaster.Send(ctx, transport.Envelope{Type: transport.KindNotification}))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"notification"`)
}

func TestDuplexChannel_NewConnectionSupersedesOld(t *testing.T) {
	broadcaster := transport.New(zap.NewNop())
	t.Cleanup(func() { _ = broadcaster.Close() })

	h := &handlers{d: &Deps{Broadcaster: broadcaster, Logger: zap.NewNop()}}

	srv := httptest.NewServer(http.HandlerFunc(h.duplexChannel))
	t.Cleanup(srv.Close)
	wsURL := "ws" + srv.URL[len("http"):]

	first, _, err := websocket.Dial(t.Context(), wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close(websocket.StatusNormalClosure, "") })
	require.Eventually(t, broadcaster.HasConnection, time.Second, 10*time.Millisecond)

	second, _, err := websocket.Dial(t.Context(), wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close(websocket.StatusNormalClosure, "") })
	require.Eventually(t, broadcaster.HasConnection, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	_, _, err = first.Read(ctx)
	assert.Error(t, err)
}
