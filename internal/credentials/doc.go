// Package credentials holds the door endpoint and API key.
//
// A Store keeps the record in memory and persists it through a Backend. The
// production backend is a bolt database opened with 0600 permissions; the
// record lives in bucket "garagectl" under key "settings-storage" as JSON
// with the fields apiUrl and apiKey.
//
// Writes are partial:
//
//	store.Set(credentials.SetEndpoint("http://door.local:8080"))
//	store.Set(credentials.SetAPIKey(key))
//
// Subscribers run synchronously in the writer's goroutine, in registration
// order, and only when the record actually changed. A listener must not call
// Set. No validation is performed on either field.
package credentials
