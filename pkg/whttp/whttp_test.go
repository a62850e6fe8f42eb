package whttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHTTPRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>\n Privileges \n</title></head><body></body></html>"))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{
		URL:     srv.URL,
		Headers: []WHTTPHeader{{Name: "X-Test", Value: "yes"}},
	}, client)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "Privileges", res.HTTPTitle)
	assert.Contains(t, res.ContentType, "text/html")
}

func TestSendHTTPRequestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	_, err := NewClient(ClientOptions{Proxy: "://nope"})
	assert.Error(t, err)
}
