package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsTestServer(t *testing.T, b *Broadcaster) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		b.Accept(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialConn(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcasterSendDeliversEnvelopeToConnectedClient(t *testing.T) {
	b := New(nil)
	srv := wsTestServer(t, b)

	client := dialConn(t, srv)
	defer client.Close(websocket.StatusNormalClosure, "done")

	// give the server goroutine a moment to register the connection
	time.Sleep(50 * time.Millisecond)
	require.True(t, b.HasConnection())

	require.NoError(t, b.Send(t.Context(), Envelope{Type: KindNotification}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := client.Read(ctx)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, KindNotification, env.Type)
}

func TestBroadcasterAcceptReplacesPriorConnection(t *testing.T) {
	b := New(nil)
	srv := wsTestServer(t, b)

	first := dialConn(t, srv)
	defer first.Close(websocket.StatusNormalClosure, "done")
	time.Sleep(30 * time.Millisecond)

	second := dialConn(t, srv)
	defer second.Close(websocket.StatusNormalClosure, "done")
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := first.Read(ctx)
	assert.Error(t, err, "first connection should have been closed by last-connection-wins")

	require.True(t, b.HasConnection())
}

func TestBroadcasterSendWithNoConnectionIsNoop(t *testing.T) {
	b := New(nil)
	err := b.Send(t.Context(), Envelope{Type: KindNotification})
	assert.NoError(t, err)
}
