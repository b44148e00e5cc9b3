// Package feed parses RSS/Atom payloads into the normalized model the
// differ works with, and fingerprints them so unchanged feeds are cheap
// no-ops.
package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
)

type Feed struct {
	Title       string
	Description string
	Link        string
	Entries     []Entry
}

type Entry struct {
	// ID is the feed-native identifier (Atom id, RSS guid). Empty when the
	// feed does not provide one.
	ID          string
	Link        string
	Title       string
	PublishedAt *time.Time
}

// Parse decodes an RSS or Atom payload. The payload must already be
// UTF-8. Entries without a link are dropped: they cannot be reconciled
// against anything.
func Parse(data string) (*Feed, error) {
	parsed, err := gofeed.NewParser().ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	entries := lo.FilterMap(parsed.Items, func(item *gofeed.Item, _ int) (Entry, bool) {
		if strings.TrimSpace(item.Link) == "" {
			return Entry{}, false
		}
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		return Entry{
			ID:          strings.TrimSpace(item.GUID),
			Link:        strings.TrimSpace(item.Link),
			Title:       strings.TrimSpace(item.Title),
			PublishedAt: published,
		}, true
	})

	return &Feed{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Link:        strings.TrimSpace(parsed.Link),
		Entries:     entries,
	}, nil
}

// Hash fingerprints the normalized feed content. Two payloads that decode
// to the same model hash identically, whatever their raw bytes looked
// like.
func (f *Feed) Hash() string {
	h := sha256.New()
	writeField(h, f.Title)
	writeField(h, f.Description)
	writeField(h, f.Link)
	for _, e := range f.Entries {
		writeField(h, e.ID)
		writeField(h, e.Link)
		writeField(h, e.Title)
		if e.PublishedAt != nil {
			writeField(h, e.PublishedAt.UTC().Format(time.RFC3339))
		} else {
			writeField(h, "")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h io.Writer, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0})
}

// feedContentTypes are the media types accepted as syndication payloads.
var feedContentTypes = []string{
	"application/atom+xml",
	"application/rss+xml",
	"application/x-rss+xml",
	"application/feed+json",
	"application/xml",
	"text/xml",
	"text/rss+xml",
}

// IsFeedContentType reports whether a Content-Type header value looks
// like a syndication format.
func IsFeedContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, accepted := range feedContentTypes {
		if strings.HasPrefix(contentType, accepted) {
			return true
		}
	}
	return false
}
