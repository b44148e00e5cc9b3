package httpx

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"
)

// Response is the raw result of an HTTP exchange, detached from the
// transport so it can be cached and replayed.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Header returns the first value of the named header.
func (r *Response) Header(name string) string {
	return r.Headers.Get(name)
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// TextBody returns the body converted to UTF-8. The source encoding is
// taken from the Content-Type header when present, sniffed from the body
// otherwise. A body that cannot be interpreted is returned as-is.
func (r *Response) TextBody() string {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.Headers.Get("Content-Type"))
	if err != nil {
		return string(r.Body)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return string(r.Body)
	}
	return string(data)
}

// Encode serializes the response as a standard HTTP/1.1 message (status
// line, headers, body) so the cache round-trips exactly what was received.
func (r *Response) Encode() []byte {
	var b bytes.Buffer
	text := http.StatusText(r.Status)
	if text == "" {
		text = "Unknown"
	}
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", r.Status, text)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(r.Body))

	// The body is already decoded; stray framing headers on a
	// hand-constructed Response would make the message lie about it.
	headers := r.Headers.Clone()
	stripFramingHeaders(headers)
	for _, name := range sortedHeaderNames(headers) {
		for _, v := range headers[name] {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

// Decode reconstructs a Response from its Encode form.
func Decode(data []byte) (*Response, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("decoding cached response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding cached response body: %w", err)
	}

	headers := resp.Header.Clone()
	stripFramingHeaders(headers)

	return &Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body,
	}, nil
}

// stripFramingHeaders removes message-framing headers. The transport has
// already decoded the body, so keeping them would make Encode lie about
// the payload.
func stripFramingHeaders(h http.Header) {
	h.Del("Content-Length")
	h.Del("Transfer-Encoding")
	h.Del("Content-Encoding")
	h.Del("Connection")
}

func sortedHeaderNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
