package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "feedKeeper-test/1.0")
	client.SetHeader("X-Test", "1")

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err, "a completed exchange is not an error, whatever the status")

	assert.Equal(t, "feedKeeper-test/1.0", gotUserAgent)
	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Equal(t, []byte("short and stout"), resp.Body)
	assert.Equal(t, "text/html", resp.ContentType())
	assert.Empty(t, resp.Header("Content-Length"), "framing headers are stripped")
}

func TestClientPost(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, "feedKeeper-test/1.0")

	resp, err := client.Post(context.Background(), server.URL, "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, []byte(`{"a":1}`), gotBody)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestClientGetTransportError(t *testing.T) {
	client := NewClient(time.Second, "feedKeeper-test/1.0")

	// Nothing listens here.
	_, err := client.Get(context.Background(), "http://127.0.0.1:1/")
	assert.Error(t, err)
}
