package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/gesture"
	"github.com/muurk/garagectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []command.Command
}

func (s *recordingSender) Send(c command.Command) {
	s.mu.Lock()
	s.sent = append(s.sent, c)
	s.mu.Unlock()
}

func (s *recordingSender) commands() []command.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]command.Command(nil), s.sent...)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func status(sp telemetry.Setpoint) telemetry.StatusEvent {
	return telemetry.StatusEvent{Status: string(sp), Setpoint: sp}
}

// 100 units of drag move progress by 1.0; taps are within 10 units and 250ms.
var params = gesture.Params{DragScale: 100, TapMaxDistance: 10, TapMaxDuration: 250 * time.Millisecond}

func newReconciler(opts ...Option) (*Reconciler, *recordingSender, *fakeClock) {
	sender := &recordingSender{}
	clock := newClock()
	opts = append([]Option{WithClock(clock.now)}, opts...)
	return New(sender, params, opts...), sender, clock
}

func TestApplyStatus_Setpoints(t *testing.T) {
	tests := []struct {
		name string
		ev   telemetry.StatusEvent
		want float64
	}{
		{"open", status(telemetry.SetpointOpen), 1},
		{"closed", status(telemetry.SetpointClosed), 0},
		{"ajar with position", telemetry.StatusEvent{Setpoint: telemetry.SetpointAjar, Position: telemetry.Float(0.3)}, 0.3},
		{"ajar without position", telemetry.StatusEvent{Setpoint: telemetry.SetpointAjar}, 0.5},
		{"ajar above range", telemetry.StatusEvent{Setpoint: telemetry.SetpointAjar, Position: telemetry.Float(4)}, 1},
		{"ajar below range", telemetry.StatusEvent{Setpoint: telemetry.SetpointAjar, Position: telemetry.Float(-2)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newReconciler(WithInitial(0.75))
			assert.True(t, r.ApplyStatus(tt.ev))
			snap := r.Snapshot()
			assert.InDelta(t, tt.want, snap.Value, 1e-9)
			assert.Equal(t, SourceRemote, snap.Source)
			assert.Equal(t, PhaseSettling, snap.Phase)
		})
	}
}

func TestApplyStatus_UnknownSetpointIgnored(t *testing.T) {
	r, _, _ := newReconciler(WithInitial(0.4))
	assert.False(t, r.ApplyStatus(telemetry.StatusEvent{Status: "unknown", Setpoint: "moving_up"}))
	assert.Equal(t, 0.4, r.Value())
}

func TestApplyStatus_SameValueStaysIdle(t *testing.T) {
	r, _, _ := newReconciler()
	r.ApplyStatus(status(telemetry.SetpointClosed))
	assert.Equal(t, PhaseIdle, r.Snapshot().Phase)
}

func TestCommandThenTelemetryConverges(t *testing.T) {
	r, sender, _ := newReconciler()

	assert.True(t, r.Command(command.Open))
	assert.Equal(t, 1.0, r.Value())
	assert.Equal(t, SourceCommand, r.Snapshot().Source)
	r.ApplyStatus(status(telemetry.SetpointOpen))
	assert.Equal(t, 1.0, r.Value())

	assert.True(t, r.Command(command.Close))
	r.ApplyStatus(status(telemetry.SetpointClosed))
	assert.Equal(t, 0.0, r.Value())

	assert.Equal(t, []command.Command{command.Open, command.Close}, sender.commands())
}

func TestStatusIgnoredDuringGesture(t *testing.T) {
	r, _, clock := newReconciler()

	r.BeginGesture(0, 500)
	clock.advance(time.Second)
	r.UpdateGesture(0, 460)
	assert.InDelta(t, 0.4, r.Value(), 1e-9)

	for _, sp := range []telemetry.Setpoint{telemetry.SetpointOpen, telemetry.SetpointClosed, telemetry.SetpointAjar} {
		assert.False(t, r.ApplyStatus(status(sp)))
		assert.InDelta(t, 0.4, r.Value(), 1e-9)
	}

	// Released at 0.4 from 0 snaps closed, then telemetry applies again
	r.EndGesture(0, 460)
	assert.True(t, r.ApplyStatus(status(telemetry.SetpointOpen)))
	assert.Equal(t, 1.0, r.Value())
}

func TestDragToNinetyPercentOpens(t *testing.T) {
	r, sender, clock := newReconciler()

	r.BeginGesture(0, 500)
	clock.advance(400 * time.Millisecond)
	r.UpdateGesture(0, 450)
	r.UpdateGesture(0, 410)
	result := r.EndGesture(0, 410)

	assert.Equal(t, gesture.SnapOpen, result.Outcome)
	assert.InDelta(t, 0.9, result.Final, 1e-9)
	assert.Equal(t, 1.0, result.Target)
	assert.Equal(t, 1.0, r.Value())
	assert.Equal(t, PhaseSettling, r.Snapshot().Phase)
	assert.Equal(t, []command.Command{command.Open}, sender.commands())
}

func TestHeldReleaseAtStartReverts(t *testing.T) {
	r, sender, clock := newReconciler(WithInitial(0.5))

	r.BeginGesture(0, 300)
	clock.advance(2 * time.Second)
	r.UpdateGesture(0, 280)
	r.UpdateGesture(0, 300)
	result := r.EndGesture(0, 300)

	assert.Equal(t, gesture.Revert, result.Outcome)
	assert.Equal(t, 0.5, r.Value())
	assert.Equal(t, PhaseIdle, r.Snapshot().Phase)
	assert.Empty(t, sender.commands())
}

func TestDragDownCloses(t *testing.T) {
	r, sender, clock := newReconciler(WithInitial(1))

	r.BeginGesture(0, 100)
	clock.advance(time.Second)
	r.UpdateGesture(0, 190)
	r.EndGesture(0, 190)

	assert.Equal(t, 0.0, r.Value())
	assert.Equal(t, []command.Command{command.Close}, sender.commands())
}

func TestTapToggles(t *testing.T) {
	tests := []struct {
		name    string
		initial float64
		want    float64
	}{
		{"closed opens", 0, 1},
		{"half counts as closed", 0.5, 1},
		{"mostly open closes", 0.8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, sender, clock := newReconciler(WithInitial(tt.initial))

			r.BeginGesture(20, 200)
			clock.advance(100 * time.Millisecond)
			result := r.EndGesture(22, 203)

			assert.Equal(t, gesture.TapToggle, result.Outcome)
			assert.Equal(t, tt.want, r.Value())
			assert.Equal(t, []command.Command{command.Toggle}, sender.commands())
		})
	}
}

func TestDiscreteTap(t *testing.T) {
	r, sender, _ := newReconciler(WithInitial(0.9))
	r.Tap()
	assert.Equal(t, 0.0, r.Value())
	assert.Equal(t, []command.Command{command.Toggle}, sender.commands())
}

func TestCancelGestureRestoresStart(t *testing.T) {
	r, sender, _ := newReconciler(WithInitial(0.3))

	r.BeginGesture(0, 500)
	r.UpdateGesture(0, 450)
	assert.InDelta(t, 0.8, r.Value(), 1e-9)

	r.CancelGesture()
	snap := r.Snapshot()
	assert.Equal(t, 0.3, snap.Value)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Session)
	assert.Empty(t, sender.commands())

	// Cancelling again is a no-op
	r.CancelGesture()
	assert.Equal(t, 0.3, r.Value())
}

func TestUpdateWithoutBeginStartsFromCurrent(t *testing.T) {
	r, _, _ := newReconciler(WithInitial(0.2))

	assert.Equal(t, 0.2, r.UpdateGesture(0, 300))
	assert.Equal(t, PhaseGesturing, r.Snapshot().Phase)
	assert.InDelta(t, 0.5, r.UpdateGesture(0, 270), 1e-9)
}

func TestEndWithoutSessionIsNoop(t *testing.T) {
	r, sender, _ := newReconciler(WithInitial(0))
	result := r.EndGesture(0, 0)
	assert.Equal(t, gesture.Revert, result.Outcome)
	assert.Equal(t, 0.0, r.Value())
	assert.Empty(t, sender.commands())
}

func TestGestureValueAlwaysClamped(t *testing.T) {
	r, _, _ := newReconciler(WithInitial(0.5))
	r.BeginGesture(0, 500)
	assert.Equal(t, 1.0, r.UpdateGesture(0, -10000))
	assert.Equal(t, 0.0, r.UpdateGesture(0, 10000))
}

func TestArrivedOnlyForCurrentToken(t *testing.T) {
	r, _, _ := newReconciler()

	r.Command(command.Open)
	first := r.Snapshot().Token

	r.ApplyStatus(telemetry.StatusEvent{Setpoint: telemetry.SetpointAjar, Position: telemetry.Float(0.4)})
	second := r.Snapshot().Token
	require.NotEqual(t, first, second)

	assert.False(t, r.Arrived(first))
	assert.Equal(t, PhaseSettling, r.Snapshot().Phase)
	assert.True(t, r.Arrived(second))
	assert.Equal(t, PhaseIdle, r.Snapshot().Phase)
	assert.False(t, r.Arrived(second))
}

func TestBeginGestureAbandonsSettle(t *testing.T) {
	r, _, _ := newReconciler()
	r.Command(command.Open)
	token := r.Snapshot().Token

	r.BeginGesture(0, 100)
	assert.Equal(t, PhaseGesturing, r.Snapshot().Phase)
	assert.False(t, r.Arrived(token))
	assert.Equal(t, PhaseGesturing, r.Snapshot().Phase)

	// The gesture starts from the optimistic target
	assert.Equal(t, 1.0, r.Snapshot().Session.StartProgress)
}

func TestCommandIgnoredDuringGesture(t *testing.T) {
	r, sender, _ := newReconciler()
	r.BeginGesture(0, 100)
	assert.False(t, r.Command(command.Open))
	assert.Empty(t, sender.commands())
}

func TestPrimaryButton(t *testing.T) {
	r, sender, _ := newReconciler(WithInitial(0.6))
	assert.Equal(t, command.Close, r.Primary())
	assert.Equal(t, 0.0, r.Value())
	assert.Equal(t, command.Open, r.Primary())
	assert.Equal(t, 1.0, r.Value())
	assert.Equal(t, []command.Command{command.Close, command.Open}, sender.commands())
}

func TestSubscribeSeesEveryChange(t *testing.T) {
	r, _, _ := newReconciler()

	var values []float64
	unsubscribe := r.Subscribe(func(s Snapshot) { values = append(values, s.Value) })

	r.Command(command.Open)
	r.ApplyStatus(status(telemetry.SetpointClosed))
	unsubscribe()
	r.Command(command.Open)

	assert.Equal(t, []float64{1, 0}, values)
}

func TestSetParamsRescalesDrag(t *testing.T) {
	r, _, _ := newReconciler()
	r.SetParams(gesture.Params{DragScale: 10, TapMaxDistance: 1, TapMaxDuration: time.Millisecond})
	assert.Equal(t, 10.0, r.Params().DragScale)

	r.BeginGesture(0, 50)
	assert.InDelta(t, 0.5, r.UpdateGesture(0, 45), 1e-9)
}

func TestConcurrentUse(t *testing.T) {
	r, _, _ := newReconciler()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				switch (i + j) % 4 {
				case 0:
					r.ApplyStatus(status(telemetry.SetpointOpen))
				case 1:
					r.UpdateGesture(0, float64(j))
				case 2:
					r.EndGesture(0, float64(j))
				case 3:
					r.Arrived(r.Snapshot().Token)
				}
				v := r.Value()
				assert.True(t, v >= 0 && v <= 1)
			}
		}(i)
	}
	wg.Wait()
}
