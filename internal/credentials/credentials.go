package credentials

import "strings"

// Credentials identify the door controller and authorize requests to it.
// The JSON field names match the record written by earlier clients.
type Credentials struct {
	Endpoint string `json:"apiUrl"` // Base URL, e.g. http://door.local:8080
	APIKey   string `json:"apiKey"` // Bearer token
}

// Configured reports whether both the endpoint and the key are set.
func (c Credentials) Configured() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

// Target joins the endpoint and a path with exactly one slash between them.
func (c Credentials) Target(path string) string {
	return strings.TrimRight(c.Endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}

// BearerHeader returns the Authorization header value.
func (c Credentials) BearerHeader() string {
	return "Bearer " + c.APIKey
}

// Update is a partial write. Nil fields are left unchanged.
type Update struct {
	Endpoint *string
	APIKey   *string
}

// SetEndpoint returns an Update that changes only the endpoint.
func SetEndpoint(endpoint string) Update {
	return Update{Endpoint: &endpoint}
}

// SetAPIKey returns an Update that changes only the API key.
func SetAPIKey(key string) Update {
	return Update{APIKey: &key}
}

// SetBoth returns an Update that replaces the whole record.
func SetBoth(endpoint, key string) Update {
	return Update{Endpoint: &endpoint, APIKey: &key}
}

// Apply returns c with the update applied.
func (u Update) Apply(c Credentials) Credentials {
	if u.Endpoint != nil {
		c.Endpoint = *u.Endpoint
	}
	if u.APIKey != nil {
		c.APIKey = *u.APIKey
	}
	return c
}
