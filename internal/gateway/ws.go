// internal/gateway/ws.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades HTTP requests to WebSocket sessions and runs them against
// the gateway. Each session gets a fresh opaque connection id; there is no
// account identity behind it.
func WSHandler(logger *logrus.Logger, g *Gateway, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		ctx, cancel := context.WithCancel(r.Context())
		conn := &Conn{
			ID:      uuid.NewString(),
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, 16),
		}
		g.Register(conn)
		logger.WithFields(logrus.Fields{
			"conn":   conn.ID,
			"remote": r.RemoteAddr,
		}).Info("client connected")

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, g, conn, logger)

		// readPump returned: the transport is gone. Release every room seat,
		// queue entry and registry record this connection held.
		g.Disconnect(conn)
		cancel()
		logger.WithFields(logrus.Fields{"conn": conn.ID}).Info("client disconnected")
	}
}

// readPump reads frames until the connection dies and feeds each text frame to
// the gateway. Read errors are lifecycle, not game errors: the loop just ends
// and the caller runs disconnect cleanup.
func readPump(ctx context.Context, c *websocket.Conn, g *Gateway, conn *Conn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Debugf("conn %s closed normally", conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("conn %s read error: %v", conn.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("conn %s sent non-text message type %d, ignoring", conn.ID, typ)
			continue
		}

		g.HandleMessage(conn, msg)
	}
}

// writePump drains the connection's OutChan onto the wire and keeps the
// session alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("conn %s: failed to marshal outgoing message: %v", conn.ID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: write failed: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: ping failed, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
