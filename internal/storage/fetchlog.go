package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// FetchLogStorage records outbound fetch attempts and answers the
// per-host rate-limit question. The window is counted per host and
// purpose ("page" or "feed"); old entries are pruned externally.
type FetchLogStorage struct {
	db        *sqlx.DB
	window    time.Duration
	threshold int
}

func NewFetchLogStorage(db *sqlx.DB, window time.Duration, threshold int) *FetchLogStorage {
	return &FetchLogStorage{db: db, window: window, threshold: threshold}
}

// Log appends one entry for an attempted (not cached) request.
func (s *FetchLogStorage) Log(ctx context.Context, rawURL, purpose string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_logs (url, host, type, created_at)
		VALUES ($1, $2, $3, $4)
	`, rawURL, urlHost(rawURL), purpose, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("logging fetch of %s: %w", rawURL, err)
	}
	return nil
}

// HasReachedRateLimit reports whether the URL's host has been requested
// at least threshold times for the given purpose within the sliding
// window.
func (s *FetchLogStorage) HasReachedRateLimit(ctx context.Context, rawURL, purpose string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT count(*) FROM fetch_logs
		WHERE host = $1 AND type = $2 AND created_at >= $3
	`, urlHost(rawURL), purpose, time.Now().UTC().Add(-s.window))
	if err != nil {
		return false, fmt.Errorf("counting fetch logs for %s: %w", rawURL, err)
	}
	return count >= s.threshold, nil
}

// urlHost returns the lowercased host of a URL, ignoring the port. An
// unparseable URL is its own host so malformed input still rate-limits.
func urlHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}
