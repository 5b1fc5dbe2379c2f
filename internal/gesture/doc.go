// Package gesture interprets pointer input over the door view.
//
// Everything here is pure. A drag moves progress by displacement divided by
// the drag scale (30% of screen height by default). On release the drag
// snaps to whichever of closed (0), open (1) or its starting value is
// nearest, with ties resolved in that order.
//
// Tap and drag are mutually exclusive: Default is Exclusive(Drag, Tap), so a
// tap is only recognized when the drag recognizer rejects the release. A
// release within TapMaxDistance and TapMaxDuration of the press is a tap and
// always means toggle.
package gesture
