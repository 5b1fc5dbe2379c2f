package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDevice_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		device   Device
		expected string
	}{
		{"defaults to http", Device{IP: "10.0.0.2", Port: 80}, "http://10.0.0.2:80"},
		{"https scheme", Device{IP: "10.0.0.2", Port: 443, Metadata: map[string]string{"scheme": "https"}}, "https://10.0.0.2:443"},
		{"unknown scheme falls back", Device{IP: "10.0.0.2", Port: 80, Metadata: map[string]string{"scheme": "gopher"}}, "http://10.0.0.2:80"},
		{"path with trailing slash", Device{IP: "10.0.0.2", Port: 8080, Metadata: map[string]string{"path": "/garage/"}}, "http://10.0.0.2:8080/garage"},
		{"path without leading slash", Device{IP: "10.0.0.2", Port: 8080, Metadata: map[string]string{"path": "api"}}, "http://10.0.0.2:8080/api"},
		{"ipv6", Device{IP: "fe80::1", Port: 8080}, "http://[fe80::1]:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.device.Endpoint())
		})
	}
}

func TestDevice_String(t *testing.T) {
	d := &Device{Instance: "Garage", IP: "10.0.0.2", Port: 8080}
	assert.Equal(t, "Garage at http://10.0.0.2:8080", d.String())

	d.Metadata = map[string]string{"door": "Main"}
	assert.Equal(t, "Garage (Main) at http://10.0.0.2:8080", d.String())
}

func TestDevice_GetMetadata(t *testing.T) {
	d := &Device{}
	assert.Equal(t, "", d.GetMetadata("door"))

	d.Metadata = map[string]string{"version": "1.2.0"}
	assert.Equal(t, "1.2.0", d.GetMetadata("version"))
	assert.Equal(t, "", d.GetMetadata("missing"))
}
