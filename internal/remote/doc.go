// Package remote assembles the client core: a credential store feeding a
// telemetry channel and command dispatcher, with the position reconciler
// merging telemetry, commands and gestures.
//
// Telemetry events go to Reconciler.ApplyStatus. The dispatcher is the
// reconciler's command sender. The channel follows the store, so saving
// new credentials reconnects. Renderers subscribe to View changes:
//
//	ctl := remote.New(store, remote.Options{Transport: telemetry.NewTransport("sse")})
//	defer ctl.Stop()
//	ctl.Subscribe(func(v remote.View) { redraw(v) })
//	_ = ctl.Start()
package remote
