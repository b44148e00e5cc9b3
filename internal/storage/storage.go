// Package storage holds the Postgres repositories for links, collections
// and the fetch log.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Init creates the schema when it does not exist yet.
func Init(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS links (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			url           TEXT NOT NULL,
			title         TEXT NOT NULL DEFAULT '',
			reading_time  INTEGER NOT NULL DEFAULT 0,
			illustration  TEXT NOT NULL DEFAULT '',
			is_hidden     BOOLEAN NOT NULL DEFAULT FALSE,
			feed_entry_id TEXT,
			fetched_at    TIMESTAMPTZ,
			fetched_code  INTEGER NOT NULL DEFAULT 0,
			fetched_error TEXT,
			fetched_count INTEGER NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_links_user_url ON links(user_id, url);
		CREATE INDEX IF NOT EXISTS idx_links_fetched_at ON links(fetched_at);

		CREATE TABLE IF NOT EXISTS collections (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL,
			name               TEXT NOT NULL DEFAULT '',
			description        TEXT NOT NULL DEFAULT '',
			type               TEXT NOT NULL DEFAULT 'collection',
			is_public          BOOLEAN NOT NULL DEFAULT FALSE,
			feed_url           TEXT NOT NULL DEFAULT '',
			feed_site_url      TEXT NOT NULL DEFAULT '',
			feed_last_hash     TEXT NOT NULL DEFAULT '',
			feed_fetched_at    TIMESTAMPTZ,
			feed_fetched_code  INTEGER NOT NULL DEFAULT 0,
			feed_fetched_error TEXT,
			feed_fetched_count INTEGER NOT NULL DEFAULT 0,
			image_url          TEXT NOT NULL DEFAULT '',
			image_fetched_at   TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_collections_type ON collections(type);

		CREATE TABLE IF NOT EXISTS links_to_collections (
			link_id       TEXT NOT NULL,
			collection_id TEXT NOT NULL,
			PRIMARY KEY (link_id, collection_id)
		);

		CREATE TABLE IF NOT EXISTS followed_collections (
			user_id       TEXT NOT NULL,
			collection_id TEXT NOT NULL,
			PRIMARY KEY (user_id, collection_id)
		);

		CREATE TABLE IF NOT EXISTS users_to_topics (
			user_id  TEXT NOT NULL,
			topic_id TEXT NOT NULL,
			PRIMARY KEY (user_id, topic_id)
		);

		CREATE TABLE IF NOT EXISTS collections_to_topics (
			collection_id TEXT NOT NULL,
			topic_id      TEXT NOT NULL,
			PRIMARY KEY (collection_id, topic_id)
		);

		CREATE TABLE IF NOT EXISTS news_links (
			user_id TEXT NOT NULL,
			url     TEXT NOT NULL,
			PRIMARY KEY (user_id, url)
		);

		CREATE TABLE IF NOT EXISTS fetch_logs (
			id         BIGSERIAL PRIMARY KEY,
			url        TEXT NOT NULL,
			host       TEXT NOT NULL,
			type       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_fetch_logs_host_type_at ON fetch_logs(host, type, created_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}
