package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/muurk/garagectl/internal/reconcile"
	"github.com/muurk/garagectl/internal/server"
	"github.com/muurk/garagectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func newSimulator(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	srv, err := server.New(server.Config{APIKey: "sim-key", TravelTime: 10 * time.Second})
	require.NoError(t, err)
	srv.Door().Step(0)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func newStore(t *testing.T, endpoint, key string) *credentials.Store {
	t.Helper()
	store, err := credentials.NewStore(credentials.NewMemoryBackend())
	require.NoError(t, err)
	if endpoint != "" || key != "" {
		require.NoError(t, store.Set(credentials.SetBoth(endpoint, key)))
	}
	return store
}

func TestController_UnconfiguredWaitsForCredentials(t *testing.T) {
	_, ts := newSimulator(t)
	store := newStore(t, "", "")

	ctl := New(store, Options{})
	defer ctl.Stop()

	err := ctl.Start()
	require.Error(t, err)
	assert.True(t, deviceerr.IsConfigError(err))
	assert.Equal(t, telemetry.StateError, ctl.View().State)
	assert.Equal(t, deviceerr.MsgNotConfigured, ctl.View().Error)

	// Saving credentials connects without another Start
	require.NoError(t, store.Set(credentials.SetBoth(ts.URL, "sim-key")))
	require.Eventually(t, func() bool {
		v := ctl.View()
		return v.Connected && v.Status == "closed"
	}, waitFor, tick)
}

func TestController_TelemetryDrivesSetpoint(t *testing.T) {
	srv, ts := newSimulator(t)
	ctl := New(newStore(t, ts.URL, "sim-key"), Options{})
	defer ctl.Stop()

	var views atomic.Int32
	ctl.Subscribe(func(View) { views.Add(1) })
	require.NoError(t, ctl.Start())

	require.Eventually(t, func() bool { return ctl.View().Status == "closed" }, waitFor, tick)
	assert.Equal(t, 0.0, ctl.View().SetpointProgress)

	srv.Door().Open()
	srv.Door().Step(4 * time.Second)
	require.Eventually(t, func() bool {
		v := ctl.View()
		return v.Status == "moving_up" && v.OpenProgress > 0.39
	}, waitFor, tick)

	v := ctl.View()
	assert.Equal(t, 1.0, v.SetpointProgress)
	assert.InDelta(t, 0.4, v.OpenProgress, 1e-9)
	assert.Equal(t, reconcile.SourceRemote, v.Source)
	assert.Positive(t, views.Load())
}

func TestController_CommandReachesDevice(t *testing.T) {
	srv, ts := newSimulator(t)
	ctl := New(newStore(t, ts.URL, "sim-key"), Options{CommandTimeout: time.Second})
	defer ctl.Stop()
	require.NoError(t, ctl.Start())
	require.Eventually(t, func() bool { return ctl.View().Connected }, waitFor, tick)

	require.True(t, ctl.Send(command.Open))
	// Optimistic target before the device answers
	v := ctl.View()
	assert.Equal(t, 1.0, v.SetpointProgress)
	assert.Equal(t, reconcile.SourceCommand, v.Source)
	assert.Equal(t, reconcile.PhaseSettling, v.Phase)

	ctl.Dispatcher.Wait()
	assert.Equal(t, server.StateMovingUp, srv.Door().State())
	require.Eventually(t, func() bool { return ctl.View().Status == "moving_up" }, waitFor, tick)
}

func TestController_Primary(t *testing.T) {
	srv, ts := newSimulator(t)
	ctl := New(newStore(t, ts.URL, "sim-key"), Options{})
	defer ctl.Stop()
	require.NoError(t, ctl.Start())
	require.Eventually(t, func() bool { return ctl.View().Status == "closed" }, waitFor, tick)

	assert.Equal(t, command.Open, ctl.Primary())
	ctl.Dispatcher.Wait()
	assert.Equal(t, server.StateMovingUp, srv.Door().State())

	assert.Equal(t, command.Close, ctl.Primary())
}

func TestController_CredentialChangeReconnects(t *testing.T) {
	_, first := newSimulator(t)
	_, second := newSimulator(t)
	store := newStore(t, first.URL, "sim-key")

	ctl := New(store, Options{Transport: telemetry.NewTransport(telemetry.TransportWebSocket)})
	defer ctl.Stop()
	require.NoError(t, ctl.Start())
	require.Eventually(t, func() bool { return ctl.View().Connected }, waitFor, tick)
	gen := ctl.Channel.Generation()

	require.NoError(t, store.Set(credentials.SetEndpoint(second.URL)))
	require.Eventually(t, func() bool {
		return ctl.Channel.Generation() > gen && ctl.View().Connected
	}, waitFor, tick)
}

func TestController_WrongKeyReportsError(t *testing.T) {
	_, ts := newSimulator(t)
	ctl := New(newStore(t, ts.URL, "wrong"), Options{})
	defer ctl.Stop()
	require.NoError(t, ctl.Start())

	require.Eventually(t, func() bool {
		v := ctl.View()
		return v.State == telemetry.StateDisconnected && v.Error != ""
	}, waitFor, tick)
	assert.Contains(t, ctl.View().Error, "401")

	// No automatic retry; Reconnect tries again
	require.NoError(t, ctl.Reconnect())
}

func TestFetchStatus(t *testing.T) {
	_, ts := newSimulator(t)

	ev, err := FetchStatus(context.Background(), newStore(t, ts.URL, "sim-key"), nil)
	require.NoError(t, err)
	assert.Equal(t, "closed", ev.Status)
	assert.Equal(t, telemetry.SetpointClosed, ev.Setpoint)

	_, err = FetchStatus(context.Background(), newStore(t, ts.URL, "bad"), nil)
	require.Error(t, err)
	assert.True(t, deviceerr.IsTransportError(err))

	_, err = FetchStatus(context.Background(), newStore(t, "", ""), nil)
	assert.True(t, deviceerr.IsConfigError(err))
}

func TestFetchStatus_ContextTimeout(t *testing.T) {
	// Accepts the stream but never sends
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := FetchStatus(ctx, newStore(t, ts.URL, "k"), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
