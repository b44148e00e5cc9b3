package fetcher

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/0x0BSoD/feedKeeper/internal/extract"
	"github.com/0x0BSoD/feedKeeper/internal/feed"
	"github.com/0x0BSoD/feedKeeper/internal/model"
)

// collectionNameLimit caps the display name taken from a feed title.
const collectionNameLimit = 100

// FetchFeed polls a feed collection and reconciles its entries. The
// outcome is always recorded on the collection; an unchanged content
// hash stops processing after the fetch timestamp update so repeated
// polling of a quiet feed stays cheap.
func (f *Fetcher) FetchFeed(ctx context.Context, collection *model.Collection) {
	info := f.FetchURL(ctx, collection.FeedURL, PurposeFeed, true)

	now := time.Now().UTC()
	collection.FeedFetchedAt = &now
	collection.FeedFetchedCode = info.Status
	collection.FeedFetchedError = nil

	if info.Error != "" {
		msg := info.Error
		collection.FeedFetchedError = &msg
		collection.FeedFetchedCount++
		f.saveCollection(ctx, collection)
		return
	}
	collection.FeedFetchedCount = 0

	parsed := info.Feed
	hash := parsed.Hash()
	if hash == collection.FeedLastHash {
		// The feed didn't change, nothing to reconcile.
		f.saveCollection(ctx, collection)
		return
	}
	collection.FeedLastHash = hash

	// Parsed metadata only ever improves the record: empty values never
	// overwrite what we already have.
	if parsed.Title != "" {
		collection.Name = truncate(parsed.Title, collectionNameLimit)
	}
	if parsed.Description != "" {
		collection.Description = parsed.Description
	}
	if parsed.Link != "" {
		collection.FeedSiteURL = extract.Sanitize(extract.Absolutize(parsed.Link, collection.FeedURL))
	} else if collection.FeedSiteURL == "" {
		collection.FeedSiteURL = collection.FeedURL
	}

	f.saveCollection(ctx, collection)

	if err := f.syncEntries(ctx, collection, parsed); err != nil {
		log.Printf("[ERROR] failed to sync entries of collection %s: %v", collection.ID, err)
		return
	}

	if collection.ImageFetchedAt == nil {
		f.fetchCollectionImage(ctx, collection)
	}
}

// syncEntries reconciles parsed entries against the links already
// attached to the collection, by URL first and by feed-native entry id
// second. New links are inserted and attached as one batch at the end.
func (f *Fetcher) syncEntries(ctx context.Context, collection *model.Collection, parsed *feed.Feed) error {
	idsByURL, err := f.links.ListIDsByURLs(ctx, collection.ID)
	if err != nil {
		return err
	}
	byEntryID, err := f.links.ListByEntryIDs(ctx, collection.ID)
	if err != nil {
		return err
	}

	var (
		toCreate []*model.Link
		toAttach []string
	)
	for _, entry := range parsed.Entries {
		if entry.Link == "" {
			continue
		}

		entryURL := extract.Sanitize(extract.Absolutize(entry.Link, collection.FeedURL))
		if _, ok := idsByURL[entryURL]; ok {
			// Already ingested.
			continue
		}

		createdAt := time.Now().UTC()
		if entry.PublishedAt != nil {
			createdAt = *entry.PublishedAt
		}

		entryID := entry.ID
		if entryID == "" {
			entryID = entryURL
		}

		if existing, ok := byEntryID[entryID]; ok && existing.URL != entryURL {
			// The publisher changed the entry's URL but kept its identity.
			// Move the existing link instead of ingesting a duplicate; the
			// cleared fetch timestamp re-synchronizes it on the next pass.
			if err := f.links.RenameForEntry(ctx, existing.ID, entryURL, createdAt); err != nil {
				return err
			}
			idsByURL[entryURL] = existing.ID
			continue
		}

		title := entry.Title
		if title == "" {
			title = entryURL
		}

		link := &model.Link{
			ID:          uuid.NewString(),
			UserID:      collection.UserID,
			URL:         entryURL,
			Title:       title,
			FeedEntryID: &entryID,
			CreatedAt:   createdAt,
		}
		toCreate = append(toCreate, link)
		toAttach = append(toAttach, link.ID)
		idsByURL[entryURL] = link.ID
		byEntryID[entryID] = link
	}

	if err := f.links.BulkInsert(ctx, toCreate); err != nil {
		return err
	}
	return f.collections.AttachLinks(ctx, collection.ID, toAttach)
}

// fetchCollectionImage fills the collection illustration from its site
// page, once. Failures are non-fatal: a transport or HTTP error leaves
// the lookup unmarked so it is retried on the next feed change, anything
// else marks it attempted.
func (f *Fetcher) fetchCollectionImage(ctx context.Context, collection *model.Collection) {
	siteURL := collection.FeedSiteURL
	if siteURL == "" {
		siteURL = collection.FeedURL
	}

	info := f.FetchURL(ctx, siteURL, PurposePage, false)
	if info.Status == 0 || info.Response == nil || !info.Response.Success() {
		return
	}

	now := time.Now().UTC()

	if !strings.Contains(info.Response.ContentType(), "html") {
		f.saveCollectionImage(ctx, collection, "", now)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(info.Response.TextBody()))
	if err != nil {
		f.saveCollectionImage(ctx, collection, "", now)
		return
	}

	imageURL := extract.Illustration(doc)
	if imageURL != "" {
		imageURL = extract.Sanitize(extract.Absolutize(imageURL, siteURL))
	}
	f.saveCollectionImage(ctx, collection, imageURL, now)
}

func (f *Fetcher) saveCollection(ctx context.Context, collection *model.Collection) {
	if err := f.collections.UpdateAfterFeedFetch(ctx, collection); err != nil {
		log.Printf("[ERROR] failed to save collection %s: %v", collection.ID, err)
	}
}

func (f *Fetcher) saveCollectionImage(ctx context.Context, collection *model.Collection, imageURL string, fetchedAt time.Time) {
	collection.ImageURL = imageURL
	collection.ImageFetchedAt = &fetchedAt
	if err := f.collections.UpdateImage(ctx, collection.ID, imageURL, fetchedAt); err != nil {
		log.Printf("[ERROR] failed to save collection image %s: %v", collection.ID, err)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
