package command

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/muurk/garagectl/internal/logging"
)

// DefaultTimeout is the default per-request timeout
const DefaultTimeout = 10 * time.Second

// CredentialSource supplies the endpoint and key at send time.
type CredentialSource interface {
	Get() credentials.Credentials
}

// Dispatcher sends door commands to the controller.
type Dispatcher struct {
	// Credentials is read on every send, so updates apply immediately
	Credentials CredentialSource

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Timeout bounds each fire-and-forget request (0 = DefaultTimeout)
	Timeout time.Duration

	inflight sync.WaitGroup
}

// NewDispatcher creates a dispatcher reading credentials from src.
func NewDispatcher(src CredentialSource) *Dispatcher {
	return &Dispatcher{
		Credentials: src,
		HTTPClient:  &http.Client{},
		Timeout:     DefaultTimeout,
	}
}

// Send issues cmd in the background and returns immediately. Failures are
// logged and otherwise ignored. There is no retry.
func (d *Dispatcher) Send(cmd Command) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()

		timeout := d.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Post logs the outcome
		_, _ = d.Post(ctx, cmd)
	}()
}

// Wait blocks until all background sends have finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// Post performs a single synchronous attempt and returns the HTTP status
// code. Any status is accepted; only a failure to complete the exchange is
// an error.
func (d *Dispatcher) Post(ctx context.Context, cmd Command) (int, error) {
	creds := d.Credentials.Get()

	if !cmd.Valid() {
		err := deviceerr.NewCommandSendError(string(cmd), fmt.Errorf("unknown command %q", cmd))
		logging.LogCommand(string(cmd), creds.Endpoint, 0, err)
		return 0, err
	}
	if !creds.Configured() {
		err := deviceerr.NewCommandSendError(string(cmd), deviceerr.NewConfigError())
		logging.LogCommand(string(cmd), creds.Endpoint, 0, err)
		return 0, err
	}

	target := creds.Target(string(cmd))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, http.NoBody)
	if err != nil {
		sendErr := deviceerr.NewCommandSendError(string(cmd), err)
		logging.LogCommand(string(cmd), target, 0, sendErr)
		return 0, sendErr
	}
	req.Header.Set("Authorization", creds.BearerHeader())
	req.Header.Set("Content-Type", "application/json")

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		sendErr := deviceerr.NewCommandSendError(string(cmd), err)
		logging.LogCommand(string(cmd), target, 0, sendErr)
		return 0, sendErr
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	logging.LogCommand(string(cmd), target, resp.StatusCode, nil)
	return resp.StatusCode, nil
}
