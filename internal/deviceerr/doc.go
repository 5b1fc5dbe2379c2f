// Package deviceerr defines the error taxonomy shared by the garage door
// client packages.
//
// Four kinds of error exist and none of them is fatal:
//
//   - KindConfig: endpoint or API key missing. The telemetry channel reports
//     it as "not configured" and makes no network call.
//   - KindTransport: the telemetry stream failed to open or dropped.
//     ClassifyNetworkError narrows it to timeout, refused, DNS or unreachable.
//   - KindDecode: a telemetry message was not valid JSON. The message is
//     dropped and the connection stays up.
//   - KindCommandSend: a door command request failed. It is logged only.
//
// Message extracts the short text shown to the user:
//
//	if err != nil {
//	    status = deviceerr.Message(err)
//	}
package deviceerr
