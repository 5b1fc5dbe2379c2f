// Package telemetry maintains the live status stream from the door
// controller.
//
// A Channel holds at most one connection to {endpoint}/watch-status,
// authenticated with the bearer key. Its state machine is:
//
//	Disconnected -> Connecting -> Connected -> Disconnected
//	Connecting/Connected --transport error--> Disconnected (error set)
//	Connect without credentials --> Error ("not configured")
//
// There is no automatic retry. After a transport error the channel stays
// inert until Connect is called again, either explicitly or through Follow,
// which reconnects whenever the credential store changes.
//
// Each message is a JSON object:
//
//	{"status": "moving_up", "setpoint": "open", "position": 0.4}
//
// A message that fails to decode sets the error "failed to parse status
// update" but leaves the connection up. A good message clears the error.
//
// Two transports are provided: SSETransport (text/event-stream, the
// default) and WebSocketTransport (text frames on the same path).
package telemetry
