package preview

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreate(t *testing.T) {
	var gotBody []byte
	var gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, 0).Create(context.Background(), HTMLPayload{HTML: DefaultHTML})
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"html":"<h1>v1 hello prod</h1>"}`, string(gotBody))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"ok": true}, resp.Body)

	var out bytes.Buffer
	require.NoError(t, resp.Print(&out))
	assert.Equal(t, "Status: 200\nResponse: map[ok:true]\n", out.String())
}

func TestClientErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"missing index.html"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, 0).Create(context.Background(), FilesPayload{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, resp.Body.(map[string]any)["success"])
}

func TestClientNotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, 0).Create(context.Background(), HTMLPayload{})
	assert.ErrorIs(t, err, ErrNotJSON)
	assert.Contains(t, err.Error(), "status 502")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Nil(t, resp.Body)
}

func TestClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, 0).Create(context.Background(), HTMLPayload{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotJSON)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(server.URL, 50*time.Millisecond).Create(context.Background(), HTMLPayload{})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
