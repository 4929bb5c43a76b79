// internal/gateway/conn.go
package gateway

import (
	"log"
)

// Conn is one live client session. The ID is server-generated and opaque; it
// is the only identity a client has (no accounts, no auth), and it is what the
// wire protocol calls a socket id.
type Conn struct {
	ID          string
	DisplayName string
	Cancel      func()
	OutChan     chan map[string]interface{}
}

// Write pushes a message onto the connection's OutChan non-blockingly. A full
// or closed channel drops the message with a log line rather than stalling the
// event loop on a slow client.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("Conn %s: OutChan closed or full, dropped message type %q", c.ID, msgType)
	}
}

// WriteError is a convenience to send an error event to this connection only.
func (c *Conn) WriteError(msg string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}
