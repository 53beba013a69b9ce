package api

import (
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// duplexChannel upgrades the connection to a websocket and registers
// it with the broadcaster (§4.9: last-connection-wins), then blocks
// reading client frames until the connection closes.
func (h *handlers) duplexChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.d.Logger.Warn("duplex upgrade failed", zap.Error(err))
		return
	}

	h.d.Broadcaster.Accept(conn)

	ctx := r.Context()
	for {
		if _, err := h.d.Broadcaster.Read(ctx); err != nil {
			return
		}
	}
}
