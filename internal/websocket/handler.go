package websocket

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients. Authentication happens inside the
// connection via the authenticate message, not on the upgrade request.
func HandleWebSocket(hub *Hub, verifier TokenVerifier, guard AccessChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Server read/write timeouts would otherwise cut long-lived sockets.
		rc := http.NewResponseController(w)
		rc.SetReadDeadline(time.Time{})
		rc.SetWriteDeadline(time.Time{})

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Native mobile clients send no Origin
		})
		if err != nil {
			logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, verifier, guard, logger)
		client.Run(r.Context())
	}
}
