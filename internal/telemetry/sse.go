package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/muurk/garagectl/internal/deviceerr"
)

// maxEventSize bounds a single SSE line
const maxEventSize = 64 * 1024

// SSETransport reads telemetry from a text/event-stream response.
type SSETransport struct {
	// HTTPClient must not set a Timeout, which would cut the stream
	HTTPClient *http.Client
}

// NewSSETransport returns an SSETransport using a client without timeout.
func NewSSETransport() *SSETransport {
	return &SSETransport{HTTPClient: &http.Client{}}
}

// Dial issues the streaming GET and returns once response headers arrive.
func (t *SSETransport) Dial(ctx context.Context, target string, header http.Header) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, deviceerr.NewTransportError("invalid telemetry URL", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, deviceerr.NewTransportError("", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, deviceerr.NewHTTPStatusError(resp.StatusCode)
	}

	return newSSEStream(resp.Body), nil
}

type sseStream struct {
	body      io.ReadCloser
	scanner   *bufio.Scanner
	closeOnce sync.Once
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxEventSize)
	scanner.Split(scanSSELines)
	return &sseStream{body: body, scanner: scanner}
}

// Recv returns the data of the next "message" event. Comments, keep-alives
// and events of other types are skipped. Multi-line data is joined with "\n".
func (s *sseStream) Recv() ([]byte, error) {
	var (
		data      []byte
		hasData   bool
		eventType string
	)

	for s.scanner.Scan() {
		line := s.scanner.Bytes()

		if len(line) == 0 {
			// Blank line dispatches the event
			if len(data) > 0 && (eventType == "" || eventType == "message") {
				return data, nil
			}
			data, hasData, eventType = nil, false, ""
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "data":
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, value...)
			hasData = true
		case "event":
			eventType = string(value)
		}
		// id and retry are irrelevant: reconnection is never automatic
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

// scanSSELines splits on LF, CRLF or a lone CR.
func scanSSELines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: swallow a following LF, which may not have arrived yet
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
