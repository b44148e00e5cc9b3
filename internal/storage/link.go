package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/0x0BSoD/feedKeeper/internal/model"
)

const linkColumns = `id, user_id, url, title, reading_time, illustration, is_hidden,
	feed_entry_id, fetched_at, fetched_code, fetched_error, fetched_count, created_at`

const linkColumnsPrefixed = `l.id, l.user_id, l.url, l.title, l.reading_time, l.illustration, l.is_hidden,
	l.feed_entry_id, l.fetched_at, l.fetched_code, l.fetched_error, l.fetched_count, l.created_at`

type LinkStorage struct {
	db *sqlx.DB
}

func NewLinkStorage(db *sqlx.DB) *LinkStorage {
	return &LinkStorage{db: db}
}

// CandidatesToFetch returns links that were never fetched or whose last
// fetch failed and whose failure count has not crossed maxFailures. The
// scheduler applies the backoff and picks the batch.
func (s *LinkStorage) CandidatesToFetch(ctx context.Context, maxFailures int) ([]*model.Link, error) {
	var links []*model.Link
	err := s.db.SelectContext(ctx, &links, `
		SELECT `+linkColumns+` FROM links
		WHERE fetched_at IS NULL
		OR (fetched_error IS NOT NULL AND fetched_count <= $1)
	`, maxFailures)
	if err != nil {
		return nil, fmt.Errorf("listing fetch candidates: %w", err)
	}
	return links, nil
}

// UpdateAfterFetch persists the outcome of a link fetch.
func (s *LinkStorage) UpdateAfterFetch(ctx context.Context, link *model.Link) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE links SET
			title = :title,
			reading_time = :reading_time,
			illustration = :illustration,
			fetched_at = :fetched_at,
			fetched_code = :fetched_code,
			fetched_error = :fetched_error,
			fetched_count = :fetched_count
		WHERE id = :id
	`, link)
	if err != nil {
		return fmt.Errorf("updating link %s: %w", link.ID, err)
	}
	return nil
}

// ListIDsByURLs returns the link ids of a collection indexed by URL.
func (s *LinkStorage) ListIDsByURLs(ctx context.Context, collectionID string) (map[string]string, error) {
	var rows []struct {
		ID  string `db:"id"`
		URL string `db:"url"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT l.id, l.url FROM links l
		JOIN links_to_collections lc ON lc.link_id = l.id
		WHERE lc.collection_id = $1
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("listing link ids by url: %w", err)
	}

	ids := make(map[string]string, len(rows))
	for _, row := range rows {
		ids[row.URL] = row.ID
	}
	return ids, nil
}

// ListByEntryIDs returns the links of a collection indexed by their
// feed-native entry id.
func (s *LinkStorage) ListByEntryIDs(ctx context.Context, collectionID string) (map[string]*model.Link, error) {
	var links []*model.Link
	err := s.db.SelectContext(ctx, &links, `
		SELECT `+linkColumnsPrefixed+` FROM links l
		JOIN links_to_collections lc ON lc.link_id = l.id
		WHERE lc.collection_id = $1
		AND l.feed_entry_id IS NOT NULL
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("listing links by entry id: %w", err)
	}

	byEntryID := make(map[string]*model.Link, len(links))
	for _, link := range links {
		byEntryID[*link.FeedEntryID] = link
	}
	return byEntryID, nil
}

// RenameForEntry moves a link to a new URL in place: the title falls back
// to the URL and the fetch timestamp is cleared so the link is
// re-synchronized on the next fetch pass.
func (s *LinkStorage) RenameForEntry(ctx context.Context, linkID, url string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE links SET
			url = $2,
			title = $2,
			created_at = $3,
			fetched_at = NULL
		WHERE id = $1
	`, linkID, url, createdAt)
	if err != nil {
		return fmt.Errorf("renaming link %s: %w", linkID, err)
	}
	return nil
}

// BulkInsert creates a batch of links in one statement.
func (s *LinkStorage) BulkInsert(ctx context.Context, links []*model.Link) error {
	if len(links) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES (:id, :user_id, :url, :title, :reading_time, :illustration, :is_hidden,
			:feed_entry_id, :fetched_at, :fetched_code, :fetched_error, :fetched_count, :created_at)
	`, links)
	if err != nil {
		return fmt.Errorf("bulk inserting links: %w", err)
	}
	return nil
}

// ListFromBookmarksForNews returns the user's bookmarked links in random
// order, tagged with their provenance.
func (s *LinkStorage) ListFromBookmarksForNews(ctx context.Context, userID string) ([]model.NewsCandidate, error) {
	var candidates []model.NewsCandidate
	err := s.db.SelectContext(ctx, &candidates, `
		SELECT `+linkColumnsPrefixed+`, 'bookmarks' AS via_type
		FROM links l
		JOIN links_to_collections lc ON lc.link_id = l.id
		JOIN collections c ON c.id = lc.collection_id
		WHERE c.user_id = $1
		AND l.user_id = $1
		AND c.type = 'bookmarks'
		ORDER BY random()
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks for news: %w", err)
	}
	return candidates, nil
}

// ListFromFollowedForNews returns public links from the collections the
// user follows, excluding anything already seen in their news, in random
// order and capped at limit to bound query cost.
func (s *LinkStorage) ListFromFollowedForNews(ctx context.Context, userID string, limit int) ([]model.NewsCandidate, error) {
	var candidates []model.NewsCandidate
	err := s.db.SelectContext(ctx, &candidates, `
		SELECT `+linkColumnsPrefixed+`, 'followed' AS via_type, c.id AS via_collection_id
		FROM links l
		JOIN links_to_collections lc ON lc.link_id = l.id
		JOIN collections c ON c.id = lc.collection_id
		JOIN followed_collections fc ON fc.collection_id = c.id
		WHERE fc.user_id = $1
		AND l.is_hidden = FALSE
		AND c.is_public = TRUE
		AND l.url NOT IN (
			SELECT nl.url FROM news_links nl WHERE nl.user_id = $1
		)
		ORDER BY random()
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing followed links for news: %w", err)
	}
	return candidates, nil
}

// ListFromTopicsForNews returns links from public collections matching
// the user's subscribed topics, excluding the user's own links and
// anything already seen.
func (s *LinkStorage) ListFromTopicsForNews(ctx context.Context, userID string, limit int) ([]model.NewsCandidate, error) {
	var candidates []model.NewsCandidate
	err := s.db.SelectContext(ctx, &candidates, `
		SELECT `+linkColumnsPrefixed+`, 'topics' AS via_type, ct.collection_id AS via_collection_id
		FROM links l
		JOIN links_to_collections lc ON lc.link_id = l.id
		JOIN collections_to_topics ct ON ct.collection_id = lc.collection_id
		WHERE ct.topic_id IN (
			SELECT ut.topic_id FROM users_to_topics ut WHERE ut.user_id = $1
		)
		AND l.is_hidden = FALSE
		AND l.user_id <> $1
		AND l.url NOT IN (
			SELECT nl.url FROM news_links nl WHERE nl.user_id = $1
		)
		ORDER BY random()
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing topic links for news: %w", err)
	}
	return candidates, nil
}
