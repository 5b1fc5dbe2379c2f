package telemetry

import (
	"context"
	"net/http"
	"strings"
)

// Stream delivers raw telemetry payloads. Close must be safe to call while
// another goroutine is blocked in Recv, and must make that Recv return.
type Stream interface {
	// Recv blocks for the next payload. io.EOF means the device ended the stream.
	Recv() ([]byte, error)
	Close() error
}

// Transport opens telemetry streams. Dial returns once the stream is open,
// which is when the connection counts as established.
type Transport interface {
	Dial(ctx context.Context, target string, header http.Header) (Stream, error)
}

// Transport names accepted by NewTransport
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// NewTransport returns the transport for name, defaulting to SSE.
func NewTransport(name string) Transport {
	switch strings.ToLower(name) {
	case TransportWebSocket, "ws":
		return NewWebSocketTransport()
	default:
		return NewSSETransport()
	}
}
