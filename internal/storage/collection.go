package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/0x0BSoD/feedKeeper/internal/model"
)

const collectionColumns = `id, user_id, name, description, type, is_public,
	feed_url, feed_site_url, feed_last_hash,
	feed_fetched_at, feed_fetched_code, feed_fetched_error, feed_fetched_count,
	image_url, image_fetched_at, created_at`

type CollectionStorage struct {
	db *sqlx.DB
}

func NewCollectionStorage(db *sqlx.DB) *CollectionStorage {
	return &CollectionStorage{db: db}
}

// FeedsToFetch returns feed collections whose last poll is older than
// before (or that were never polled) and that have not failed more than
// maxFailures times. The scheduler applies backoff and picks the batch.
func (s *CollectionStorage) FeedsToFetch(ctx context.Context, before time.Time, maxFailures int) ([]*model.Collection, error) {
	var collections []*model.Collection
	err := s.db.SelectContext(ctx, &collections, `
		SELECT `+collectionColumns+` FROM collections
		WHERE type = 'feed'
		AND feed_url <> ''
		AND (feed_fetched_at IS NULL OR feed_fetched_at < $1)
		AND feed_fetched_count <= $2
	`, before, maxFailures)
	if err != nil {
		return nil, fmt.Errorf("listing feeds to fetch: %w", err)
	}
	return collections, nil
}

// UpdateAfterFeedFetch persists the outcome of a feed poll.
func (s *CollectionStorage) UpdateAfterFeedFetch(ctx context.Context, collection *model.Collection) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE collections SET
			name = :name,
			description = :description,
			feed_site_url = :feed_site_url,
			feed_last_hash = :feed_last_hash,
			feed_fetched_at = :feed_fetched_at,
			feed_fetched_code = :feed_fetched_code,
			feed_fetched_error = :feed_fetched_error,
			feed_fetched_count = :feed_fetched_count
		WHERE id = :id
	`, collection)
	if err != nil {
		return fmt.Errorf("updating collection %s: %w", collection.ID, err)
	}
	return nil
}

// UpdateImage records the collection illustration. An empty imageURL with
// a non-zero fetchedAt marks the lookup as attempted so it is not retried.
func (s *CollectionStorage) UpdateImage(ctx context.Context, collectionID, imageURL string, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE collections SET image_url = $2, image_fetched_at = $3
		WHERE id = $1
	`, collectionID, imageURL, fetchedAt)
	if err != nil {
		return fmt.Errorf("updating collection image %s: %w", collectionID, err)
	}
	return nil
}

// AttachLinks associates a batch of links with a collection in one
// statement. Existing associations are left untouched.
func (s *CollectionStorage) AttachLinks(ctx context.Context, collectionID string, linkIDs []string) error {
	if len(linkIDs) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, 0, len(linkIDs))
	for _, linkID := range linkIDs {
		rows = append(rows, map[string]interface{}{
			"link_id":       linkID,
			"collection_id": collectionID,
		})
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO links_to_collections (link_id, collection_id)
		VALUES (:link_id, :collection_id)
		ON CONFLICT DO NOTHING
	`, rows)
	if err != nil {
		return fmt.Errorf("attaching links to collection %s: %w", collectionID, err)
	}
	return nil
}
