package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseEncodeDecode(t *testing.T) {
	resp := &Response{
		Status: 200,
		Headers: http.Header{
			"Content-Type": {"text/html; charset=utf-8"},
			"Etag":         {`"abc123"`},
		},
		Body: []byte("<html><body>hello</body></html>"),
	}

	decoded, err := Decode(resp.Encode())
	require.NoError(t, err)

	assert.Equal(t, resp.Status, decoded.Status)
	assert.Equal(t, resp.Body, decoded.Body)
	assert.Equal(t, "text/html; charset=utf-8", decoded.Header("Content-Type"))
	assert.Equal(t, `"abc123"`, decoded.Header("Etag"))
}

func TestResponseEncodeDecodeEmptyBody(t *testing.T) {
	resp := &Response{Status: 404, Headers: http.Header{}, Body: nil}

	decoded, err := Decode(resp.Encode())
	require.NoError(t, err)

	assert.Equal(t, 404, decoded.Status)
	assert.Empty(t, decoded.Body)
}

func TestResponseEncodeStripsStaleFramingHeaders(t *testing.T) {
	// A hand-built Response may carry framing headers that no longer
	// match the decoded body; Encode must not emit them alongside its
	// own Content-Length.
	resp := &Response{
		Status: 200,
		Headers: http.Header{
			"Content-Length":    {"999"},
			"Transfer-Encoding": {"chunked"},
			"Content-Type":      {"text/plain"},
		},
		Body: []byte("hello"),
	}

	decoded, err := Decode(resp.Encode())
	require.NoError(t, err)

	assert.Equal(t, []byte("hello"), decoded.Body)
	assert.Equal(t, "text/plain", decoded.Header("Content-Type"))
	assert.Empty(t, decoded.Header("Content-Length"))
	assert.Empty(t, decoded.Header("Transfer-Encoding"))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not an http response"))
	assert.Error(t, err)
}

func TestResponseSuccess(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{301, false},
		{404, false},
		{500, false},
		{0, false},
	}
	for _, tt := range tests {
		resp := &Response{Status: tt.status}
		assert.Equal(t, tt.want, resp.Success(), "status %d", tt.status)
	}
}

func TestResponseContentType(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"text/html; charset=utf-8", "text/html"},
		{"Application/RSS+XML", "application/rss+xml"},
		{"", ""},
	}
	for _, tt := range tests {
		resp := &Response{Headers: http.Header{"Content-Type": {tt.header}}}
		assert.Equal(t, tt.want, resp.ContentType())
	}
}

func TestTextBodyConvertsCharset(t *testing.T) {
	// 0xE9 is "é" in ISO-8859-1.
	resp := &Response{
		Status:  200,
		Headers: http.Header{"Content-Type": {"text/html; charset=iso-8859-1"}},
		Body:    []byte{'c', 'a', 'f', 0xE9},
	}

	assert.Equal(t, "café", resp.TextBody())
}

func TestTextBodyUTF8PassThrough(t *testing.T) {
	resp := &Response{
		Status:  200,
		Headers: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:    []byte("héllo"),
	}

	assert.Equal(t, "héllo", resp.TextBody())
}
