package deviceerr

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindConfig indicates the client is missing an endpoint or API key
	KindConfig Kind = iota
	// KindTransport indicates the telemetry stream could not be opened or was lost
	KindTransport
	// KindDecode indicates a telemetry message could not be decoded
	KindDecode
	// KindCommandSend indicates a door command request failed
	KindCommandSend
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "Config Error"
	case KindTransport:
		return "Transport Error"
	case KindDecode:
		return "Decode Error"
	case KindCommandSend:
		return "Command Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Subtype provides more specific classification of transport failures
type Subtype int

const (
	SubtypeGeneral Subtype = iota
	SubtypeTimeout
	SubtypeConnectionRefused
	SubtypeDNS
	SubtypeHostUnreachable
	SubtypeNetworkUnreachable
	SubtypeHTTPStatus
	SubtypeStreamClosed
)

// Error is the error type returned by the credential, command and telemetry
// packages. None of these errors are fatal to the client.
type Error struct {
	Kind       Kind    // Category of error
	Message    string  // Short human-readable message
	StatusCode int     // HTTP status code (if applicable)
	Err        error   // Underlying error (if any)
	Subtype    Subtype // More specific transport classification
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Messages surfaced through the telemetry connection state
const (
	MsgNotConfigured = "not configured"
	MsgDecodeFailed  = "failed to parse status update"
	MsgStreamClosed  = "stream closed by device"
)

// ClassifyNetworkError analyzes a dial or read error and returns a transport
// error with a specific subtype. Returns nil for a nil error.
func ClassifyNetworkError(err error) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &Error{Kind: KindTransport, Message: "device not responding (timeout)", Err: err, Subtype: SubtypeTimeout}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Kind:    KindTransport,
			Message: fmt.Sprintf("cannot resolve %s", dnsErr.Name),
			Err:     err,
			Subtype: SubtypeDNS,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{Kind: KindTransport, Message: "device refused connection", Err: err, Subtype: SubtypeConnectionRefused}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{Kind: KindTransport, Message: "host unreachable", Err: err, Subtype: SubtypeHostUnreachable}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{Kind: KindTransport, Message: "network unreachable", Err: err, Subtype: SubtypeNetworkUnreachable}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Recursively classify the underlying error
		return ClassifyNetworkError(urlErr.Err)
	}

	return &Error{Kind: KindTransport, Message: err.Error(), Err: err, Subtype: SubtypeGeneral}
}

// NewConfigError creates the error reported when credentials are incomplete
func NewConfigError() *Error {
	return &Error{Kind: KindConfig, Message: MsgNotConfigured}
}

// NewTransportError creates a transport error with automatic classification.
// An empty message keeps the classified one.
func NewTransportError(message string, err error) *Error {
	if err == nil {
		return &Error{Kind: KindTransport, Message: message}
	}
	classified := ClassifyNetworkError(err)
	if message != "" {
		classified.Message = message
	}
	return classified
}

// NewHTTPStatusError creates a transport error for a stream endpoint that
// answered with a non-success status
func NewHTTPStatusError(statusCode int) *Error {
	return &Error{
		Kind:       KindTransport,
		Message:    fmt.Sprintf("device answered HTTP %d", statusCode),
		StatusCode: statusCode,
		Subtype:    SubtypeHTTPStatus,
	}
}

// NewStreamClosedError creates the error reported when the device ends the stream
func NewStreamClosedError() *Error {
	return &Error{Kind: KindTransport, Message: MsgStreamClosed, Subtype: SubtypeStreamClosed}
}

// NewDecodeError creates a telemetry decode error
func NewDecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Message: MsgDecodeFailed, Err: err}
}

// NewCommandSendError creates a command failure
func NewCommandSendError(command string, err error) *Error {
	message := fmt.Sprintf("%s command failed", command)
	if classified := ClassifyNetworkError(err); classified != nil {
		message = fmt.Sprintf("%s command failed: %s", command, classified.Message)
	}
	return &Error{Kind: KindCommandSend, Message: message, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConfig
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

// IsDecodeError checks if an error is a decode error
func IsDecodeError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindDecode
}

// IsCommandSendError checks if an error is a command failure
func IsCommandSendError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindCommandSend
}

// Message returns the short message for display, e.g. in a status line.
// Errors from other packages fall back to their full text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
