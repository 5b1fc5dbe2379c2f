package command

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCreds credentials.Credentials

func (s staticCreds) Get() credentials.Credentials { return credentials.Credentials(s) }

type recorded struct {
	method, path, auth, contentType string
	body                            []byte
}

func recordingServer(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var got []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), got...)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{"open", Open, false},
		{" Close ", Close, false},
		{"TOGGLE", Toggle, false},
		{"stop", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPost_RequestShape(t *testing.T) {
	for _, cmd := range All {
		t.Run(string(cmd), func(t *testing.T) {
			server, requests := recordingServer(t, http.StatusOK)
			d := NewDispatcher(staticCreds{Endpoint: server.URL + "/", APIKey: "secret"})

			status, err := d.Post(context.Background(), cmd)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, status)

			got := requests()
			require.Len(t, got, 1)
			assert.Equal(t, http.MethodPost, got[0].method)
			assert.Equal(t, "/"+string(cmd), got[0].path)
			assert.Equal(t, "Bearer secret", got[0].auth)
			assert.Equal(t, "application/json", got[0].contentType)
			assert.Empty(t, got[0].body)
		})
	}
}

func TestPost_StatusIsNotAnError(t *testing.T) {
	server, _ := recordingServer(t, http.StatusInternalServerError)
	d := NewDispatcher(staticCreds{Endpoint: server.URL, APIKey: "k"})

	status, err := d.Post(context.Background(), Open)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestPost_UnreachableIsCommandSendError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	d := NewDispatcher(staticCreds{Endpoint: url, APIKey: "k"})
	_, err := d.Post(context.Background(), Close)
	require.Error(t, err)
	assert.True(t, deviceerr.IsCommandSendError(err))
}

func TestPost_NotConfigured(t *testing.T) {
	d := NewDispatcher(staticCreds{})
	_, err := d.Post(context.Background(), Open)
	require.Error(t, err)
	assert.True(t, deviceerr.IsCommandSendError(err))
}

func TestPost_InvalidCommand(t *testing.T) {
	server, requests := recordingServer(t, http.StatusOK)
	d := NewDispatcher(staticCreds{Endpoint: server.URL, APIKey: "k"})

	_, err := d.Post(context.Background(), Command("explode"))
	require.Error(t, err)
	assert.Empty(t, requests())
}

func TestSend_FireAndForget(t *testing.T) {
	server, requests := recordingServer(t, http.StatusAccepted)
	d := NewDispatcher(staticCreds{Endpoint: server.URL, APIKey: "k"})

	d.Send(Toggle)
	d.Send(Open)
	d.Wait()

	got := requests()
	require.Len(t, got, 2)
	paths := []string{got[0].path, got[1].path}
	assert.ElementsMatch(t, []string{"/toggle", "/open"}, paths)
}

func TestSend_FailureDoesNotPanic(t *testing.T) {
	d := NewDispatcher(staticCreds{Endpoint: "http://127.0.0.1:1", APIKey: "k"})
	d.Send(Open)
	d.Wait()
}
