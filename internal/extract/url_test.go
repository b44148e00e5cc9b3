package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsolutize(t *testing.T) {
	tests := []struct {
		rawURL string
		base   string
		want   string
	}{
		{"/img/cover.png", "https://example.com/posts/1", "https://example.com/img/cover.png"},
		{"cover.png", "https://example.com/posts/1", "https://example.com/posts/cover.png"},
		{"https://cdn.example.com/a.png", "https://example.com/", "https://cdn.example.com/a.png"},
		{"//cdn.example.com/a.png", "https://example.com/", "https://cdn.example.com/a.png"},
		{"", "https://example.com/", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Absolutize(tt.rawURL, tt.base), "Absolutize(%q, %q)", tt.rawURL, tt.base)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://Example.COM/Path", "https://example.com/Path"},
		{"https://example.com/a#section-2", "https://example.com/a"},
		{"https://example.com/a?utm_source=x&utm_medium=y&id=3", "https://example.com/a?id=3"},
		{"https://example.com/a?fbclid=abc", "https://example.com/a"},
		{"https://example.com/a?page=2", "https://example.com/a?page=2"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.rawURL), "Sanitize(%q)", tt.rawURL)
	}
}
