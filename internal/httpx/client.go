// Package httpx is the outbound HTTP collaborator: a small client with a
// hard timeout and a custom User-Agent, plus a raw Response type that
// round-trips through the cache.
package httpx

import (
	"context"
	"io"
	"net/http"
	"time"
)

// maxBodySize caps how much of a response body is read. Pages and feeds
// larger than this are truncated rather than exhausting memory.
const maxBodySize = 20 << 20

type Client struct {
	http      *http.Client
	userAgent string
	headers   map[string]string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		headers:   map[string]string{},
	}
}

// SetHeader adds a header sent with every request.
func (c *Client) SetHeader(name, value string) {
	c.headers[name] = value
}

// Get performs a GET request. A transport-level failure (connection,
// timeout) is returned as an error; any completed HTTP exchange, whatever
// its status, is returned as a Response.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Post performs a POST request with the given body. Error semantics
// match Get.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	headers := resp.Header.Clone()
	stripFramingHeaders(headers)

	return &Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body,
	}, nil
}
