// Package reconcile owns the door's setpoint progress, the single value in
// [0, 1] the view draws as the target door.
//
// Three sources write it:
//
//   - telemetry (ApplyStatus): open is 1, closed is 0, ajar is the reported
//     position clamped, or 0.5 when none is sent
//   - optimistic commands (Command, Primary, Tap): the value jumps to the
//     expected outcome and the command is dispatched
//   - drag gestures (BeginGesture, UpdateGesture, EndGesture, CancelGesture):
//     while a session is active the pointer alone drives the value and
//     telemetry is ignored, not buffered
//
// Phases are Idle, Gesturing and Settling. A new target whose value differs
// from the current one enters Settling; the renderer animates toward it and
// calls Arrived with the snapshot token. Every new target rotates the token,
// so an arrival report for an abandoned target is ignored.
//
// A command and a telemetry event already in flight can race, so the value
// may briefly flick back before the next event confirms the command. There
// is no request correlation.
package reconcile
