package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/muurk/garagectl/internal/logging"
	"go.uber.org/zap"
)

// WatchPath is the telemetry stream path relative to the endpoint
const WatchPath = "watch-status"

// CredentialSource supplies the endpoint and key when connecting.
type CredentialSource interface {
	Get() credentials.Credentials
}

// CredentialNotifier is a CredentialSource that reports changes.
type CredentialNotifier interface {
	CredentialSource
	Subscribe(fn credentials.Listener) func()
}

// StatusListener receives every decoded event, in arrival order.
type StatusListener func(StatusEvent)

// StateListener receives a snapshot after every state or error change.
type StateListener func(Snapshot)

// Channel owns the single telemetry connection. Every connection attempt
// gets a generation number; results from an older generation are discarded
// and their streams closed.
//
// Listeners are called from the goroutine that caused the change, never
// concurrently with each other, and must not call back into the Channel.
type Channel struct {
	creds     CredentialSource
	transport Transport

	mu     sync.Mutex
	gen    uint64
	state  State
	err    error
	status *StatusEvent
	target string
	cancel context.CancelFunc
	stream Stream

	statusListeners map[int]StatusListener
	stateListeners  map[int]StateListener
	nextListenerID  int

	// notifyMu orders listener calls with the mutations that caused them
	notifyMu sync.Mutex

	wg sync.WaitGroup
}

// NewChannel creates a disconnected channel.
func NewChannel(creds CredentialSource, transport Transport) *Channel {
	if transport == nil {
		transport = NewSSETransport()
	}
	return &Channel{
		creds:           creds,
		transport:       transport,
		state:           StateDisconnected,
		statusListeners: make(map[int]StatusListener),
		stateListeners:  make(map[int]StateListener),
	}
}

// Connect tears down any existing connection and opens a new one in the
// background. With incomplete credentials it moves to StateError, makes no
// network call and returns the ConfigError.
func (c *Channel) Connect() error {
	creds := c.creds.Get()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.teardownLocked()

	if !creds.Configured() {
		err := deviceerr.NewConfigError()
		changed := c.transitionLocked(StateError, err)
		snap, listeners := c.snapshotLocked(), c.stateListenersLocked()
		c.mu.Unlock()
		if changed {
			notifyState(listeners, snap)
		}
		return err
	}

	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.target = creds.Target(WatchPath)
	target := c.target
	header := http.Header{}
	header.Set("Authorization", creds.BearerHeader())

	changed := c.transitionLocked(StateConnecting, c.err)
	snap, listeners := c.snapshotLocked(), c.stateListenersLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	if changed {
		notifyState(listeners, snap)
	}

	go c.run(ctx, gen, target, header)
	return nil
}

// Disconnect closes the connection, if any, and moves to
// StateDisconnected with the error cleared. Safe to call repeatedly and
// concurrently with an in-flight Connect.
func (c *Channel) Disconnect() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.teardownLocked()
	changed := c.transitionLocked(StateDisconnected, nil)
	snap, listeners := c.snapshotLocked(), c.stateListenersLocked()
	c.mu.Unlock()

	if changed {
		notifyState(listeners, snap)
	}
}

// Close disconnects and waits for the connection goroutine to exit.
func (c *Channel) Close() {
	c.Disconnect()
	c.wg.Wait()
}

// Follow reconnects whenever the credentials change. The returned function
// stops following.
func (c *Channel) Follow(store CredentialNotifier) func() {
	return store.Subscribe(func(credentials.Credentials) {
		c.Disconnect()
		_ = c.Connect()
	})
}

// Snapshot returns the current state, error and last event.
func (c *Channel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Generation returns the number of the current connection attempt.
func (c *Channel) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// OnStatus registers fn for decoded events.
func (c *Channel) OnStatus(fn StatusListener) func() {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.statusListeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.statusListeners, id)
		c.mu.Unlock()
	}
}

// OnState registers fn for state changes.
func (c *Channel) OnState(fn StateListener) func() {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.stateListeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.stateListeners, id)
		c.mu.Unlock()
	}
}

func (c *Channel) run(ctx context.Context, gen uint64, target string, header http.Header) {
	defer c.wg.Done()

	stream, err := c.transport.Dial(ctx, target, header)
	if err != nil {
		c.fail(gen, transportError(err))
		return
	}
	if !c.opened(gen, stream) {
		_ = stream.Close()
		return
	}

	for {
		data, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = deviceerr.NewStreamClosedError()
			}
			c.fail(gen, transportError(err))
			return
		}

		logging.LogTelemetryMessage(target, data)
		if !c.deliver(gen, data) {
			return
		}
	}
}

// opened records the stream for gen. It reports false when gen is stale.
func (c *Channel) opened(gen uint64, stream Stream) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.stream = stream
	changed := c.transitionLocked(StateConnected, nil)
	snap, listeners := c.snapshotLocked(), c.stateListenersLocked()
	c.mu.Unlock()

	if changed {
		notifyState(listeners, snap)
	}
	return true
}

// deliver decodes one payload for gen. It reports false when gen is stale.
func (c *Channel) deliver(gen uint64, data []byte) bool {
	ev, decodeErr := Decode(data)

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}

	if decodeErr != nil {
		logging.Warn("Dropping undecodable telemetry message",
			zap.String("target", c.target),
			zap.Error(decodeErr),
		)
		changed := c.transitionLocked(StateConnected, decodeErr)
		snap, listeners := c.snapshotLocked(), c.stateListenersLocked()
		c.mu.Unlock()
		if changed {
			notifyState(listeners, snap)
		}
		return true
	}

	c.status = &ev
	changed := c.transitionLocked(StateConnected, nil)
	snap := c.snapshotLocked()
	stateListeners := c.stateListenersLocked()
	statusListeners := c.statusListenersLocked()
	c.mu.Unlock()

	for _, fn := range statusListeners {
		fn(ev)
	}
	if changed {
		notifyState(stateListeners, snap)
	}
	return true
}

// fail ends gen with err unless it is stale.
func (c *Channel) fail(gen uint64, err error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.releaseLocked()
	changed := c.transitionLocked(StateDisconnected, err)
	snap, listeners := c.snapshotLocked(), c.stateListenersLocked()
	c.mu.Unlock()

	if changed {
		notifyState(listeners, snap)
	}
}

// teardownLocked invalidates the current generation and releases its
// resources. Caller holds mu.
func (c *Channel) teardownLocked() {
	c.gen++
	c.releaseLocked()
}

func (c *Channel) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
}

// transitionLocked sets state and error and reports whether either changed.
func (c *Channel) transitionLocked(next State, err error) bool {
	prev, prevErr := c.state, c.err
	c.state, c.err = next, err
	if prev == next && prevErr == err {
		return false
	}
	if prev != next {
		logging.LogConnectionState(c.target, prev.String(), next.String(), c.gen, err)
	}
	return true
}

func (c *Channel) snapshotLocked() Snapshot {
	snap := Snapshot{State: c.state, Err: c.err}
	if c.status != nil {
		ev := *c.status
		snap.Status = &ev
	}
	return snap
}

func (c *Channel) stateListenersLocked() []StateListener {
	out := make([]StateListener, 0, len(c.stateListeners))
	for id := 0; id < c.nextListenerID; id++ {
		if fn, ok := c.stateListeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (c *Channel) statusListenersLocked() []StatusListener {
	out := make([]StatusListener, 0, len(c.statusListeners))
	for id := 0; id < c.nextListenerID; id++ {
		if fn, ok := c.statusListeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notifyState(listeners []StateListener, snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func transportError(err error) error {
	if deviceerr.IsTransportError(err) {
		return err
	}
	return deviceerr.NewTransportError("", err)
}
