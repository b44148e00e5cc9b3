// Package model defines the records tracked by feedKeeper: links (single
// fetchable pages), collections (including feed-backed ones), fetch log
// entries and news candidates.
package model

import "time"

// Collection types. Feed-backed collections are the ones polled by the
// feed fetcher; bookmarks are per-user and feed the news picker.
const (
	CollectionTypeBookmarks  = "bookmarks"
	CollectionTypeCollection = "collection"
	CollectionTypeFeed       = "feed"
)

// News candidate provenance tags.
const (
	NewsViaBookmarks = "bookmarks"
	NewsViaFollowed  = "followed"
	NewsViaTopics    = "topics"
)

type Link struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	URL          string     `db:"url"`
	Title        string     `db:"title"`
	ReadingTime  int        `db:"reading_time"`
	Illustration string     `db:"illustration"`
	IsHidden     bool       `db:"is_hidden"`
	FeedEntryID  *string    `db:"feed_entry_id"`
	FetchedAt    *time.Time `db:"fetched_at"`
	FetchedCode  int        `db:"fetched_code"`
	FetchedError *string    `db:"fetched_error"`
	FetchedCount int        `db:"fetched_count"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (l *Link) LastFetchedAt() *time.Time { return l.FetchedAt }
func (l *Link) FetchFailed() bool         { return l.FetchedError != nil }
func (l *Link) FetchFailures() int        { return l.FetchedCount }

type Collection struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	Name             string     `db:"name"`
	Description      string     `db:"description"`
	Type             string     `db:"type"`
	IsPublic         bool       `db:"is_public"`
	FeedURL          string     `db:"feed_url"`
	FeedSiteURL      string     `db:"feed_site_url"`
	FeedLastHash     string     `db:"feed_last_hash"`
	FeedFetchedAt    *time.Time `db:"feed_fetched_at"`
	FeedFetchedCode  int        `db:"feed_fetched_code"`
	FeedFetchedError *string    `db:"feed_fetched_error"`
	FeedFetchedCount int        `db:"feed_fetched_count"`
	ImageURL         string     `db:"image_url"`
	ImageFetchedAt   *time.Time `db:"image_fetched_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

func (c *Collection) LastFetchedAt() *time.Time { return c.FeedFetchedAt }
func (c *Collection) FetchFailed() bool         { return c.FeedFetchedError != nil }
func (c *Collection) FetchFailures() int        { return c.FeedFetchedCount }

// FetchLogEntry records one outbound request attempt. Entries are
// append-only and only ever read in aggregate by the rate limiter.
type FetchLogEntry struct {
	ID        int64     `db:"id"`
	URL       string    `db:"url"`
	Host      string    `db:"host"`
	Type      string    `db:"type"`
	CreatedAt time.Time `db:"created_at"`
}

// NewsCandidate is a link picked for the news queue together with the pool
// it came from. ViaCollectionID is set for followed/topics candidates.
type NewsCandidate struct {
	Link

	ViaType         string  `db:"via_type"`
	ViaCollectionID *string `db:"via_collection_id"`
}
