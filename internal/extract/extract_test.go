package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "og:title wins over a title in the body",
			html: `<html><head><meta property="og:title" content="A"></head><body><title>B</title></body></html>`,
			want: "A",
		},
		{
			name: "twitter:title when no og:title",
			html: `<html><head><meta name="twitter:title" content="From Twitter"></head><body></body></html>`,
			want: "From Twitter",
		},
		{
			name: "plain title tag",
			html: `<title>Hello</title>`,
			want: "Hello",
		},
		{
			name: "og:title misplaced in the body is still found",
			html: `<html><head></head><body><meta property="og:title" content="From body"></body></html>`,
			want: "From body",
		},
		{
			name: "title nested in an svg is ignored",
			html: `<html><head></head><body><svg><title>Chart of sales</title></svg></body></html>`,
			want: "",
		},
		{
			name: "empty og:title falls through to the title tag",
			html: `<html><head><meta property="og:title" content=""><title>Fallback</title></head><body></body></html>`,
			want: "Fallback",
		},
		{
			name: "nothing matches",
			html: `<html><head></head><body><p>No title anywhere</p></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(parseDoc(t, tt.html)))
		})
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "prefers the main element",
			html: `<body><nav>Menu</nav><main>The article text.</main></body>`,
			want: "The article text.",
		},
		{
			name: "falls back to id main",
			html: `<body><nav>Menu</nav><div id="main">Div content here.</div></body>`,
			want: "Div content here.",
		},
		{
			name: "falls back to the whole body",
			html: `<body><p>First.</p><p>Second.</p></body>`,
			want: "First. Second.",
		},
		{
			name: "scripts are stripped",
			html: `<body><main>Visible.<script>var hidden = 1;</script></main></body>`,
			want: "Visible.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Content(parseDoc(t, tt.html)))
		})
	}
}

func TestIllustration(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta property="og:image" content="/cover.png"></head><body></body></html>`)
	assert.Equal(t, "/cover.png", Illustration(doc))

	doc = parseDoc(t, `<html><head><meta name="twitter:image" content="https://cdn.example.com/t.jpg"></head><body></body></html>`)
	assert.Equal(t, "https://cdn.example.com/t.jpg", Illustration(doc))

	doc = parseDoc(t, `<html><head></head><body><p>No images</p></body></html>`)
	assert.Equal(t, "", Illustration(doc))
}
