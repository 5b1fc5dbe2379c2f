// Package server implements garage-sim, an in-memory garage door controller
// that speaks the same HTTP API as a real one.
//
// # Door Model
//
// The door travels from 0 (closed) to 1 (open) at 1/TravelTime per second,
// stepped every Tick. Limit switches at both ends stop it. Open and Close
// drive toward one end. Toggle behaves like the wall button of a
// single-button opener:
//   - a moving door stops (ajar)
//   - a closed door moves up, an open door moves down
//   - a door stopped halfway reverses its last direction
//
// # Endpoints
//
// Every endpoint except /health requires "Authorization: Bearer <key>".
//
//	POST /open            drive up
//	POST /close           drive down
//	POST /toggle          button pulse
//	GET  /watch-status    status stream
//	GET  /health          liveness
//
// /watch-status is server-sent events unless the request is a websocket
// upgrade. Either way the current status is sent immediately, followed by
// every change:
//
//	event:message
//	data:{"status":"moving_up","setpoint":"open","position":0.42}
//
// The SSE stream carries a ": keep-alive" comment every KeepAlive.
//
// # Usage Example
//
//	srv, err := server.New(server.Config{Port: 8080, Advertise: true})
//	if err != nil {
//	    return err
//	}
//	fmt.Println("API key:", srv.APIKey())
//	return srv.Start(ctx)
package server
