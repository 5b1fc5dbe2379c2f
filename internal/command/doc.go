// Package command sends open, close and toggle requests to the door
// controller.
//
// Each command is a single POST to {endpoint}/{command} carrying the bearer
// token and a JSON content type with an empty body. Send is fire-and-forget:
// it never blocks the caller, never retries and ignores the response status.
// Post is the synchronous single attempt used by the CLI.
package command
