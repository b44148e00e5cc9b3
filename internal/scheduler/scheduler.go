// Package scheduler decides which resources are due for a fetch pass.
// The rules are shared by links and feed collections: never-fetched
// resources are always due, failing ones are retried with a superlinear
// backoff, and resources that failed too many times are left alone until
// an operator steps in.
package scheduler

import (
	"math/rand"
	"time"
)

// MaxFailures is the ceiling above which a resource is no longer retried
// automatically.
const MaxFailures = 25

// MinWait is the smallest possible backoff (a resource that failed once).
const MinWait = 5 * time.Second

// Resource is any record carrying fetch history.
type Resource interface {
	LastFetchedAt() *time.Time
	FetchFailed() bool
	FetchFailures() int
}

// Backoff returns how long a resource with the given failure count must
// wait between attempts: 5 + failures^4 seconds. One failure retries
// within seconds, three within minutes, twenty-five in years.
func Backoff(failures int) time.Duration {
	return time.Duration(5+failures*failures*failures*failures) * time.Second
}

// IsDue reports whether a link-like resource should be fetched now.
// Successfully fetched resources are not refetched; that is triggered
// explicitly (e.g. after a feed entry rename clears the fetch timestamp).
func IsDue(r Resource, now time.Time) bool {
	last := r.LastFetchedAt()
	if last == nil {
		return true
	}
	if !r.FetchFailed() {
		return false
	}
	if r.FetchFailures() > MaxFailures {
		return false
	}
	return now.Sub(*last) >= Backoff(r.FetchFailures())
}

// IsFeedDue reports whether a feed collection should be polled now.
// Healthy feeds are re-polled every pollInterval; failing ones follow the
// same backoff curve as links.
func IsFeedDue(r Resource, now time.Time, pollInterval time.Duration) bool {
	last := r.LastFetchedAt()
	if last == nil {
		return true
	}
	if r.FetchFailures() > MaxFailures {
		return false
	}
	if r.FetchFailed() {
		return now.Sub(*last) >= Backoff(r.FetchFailures())
	}
	return now.Sub(*last) >= pollInterval
}

// PickDue returns at most batchSize due resources, chosen at random so no
// subset of a large due set is starved across runs.
func PickDue[T Resource](resources []T, batchSize int, now time.Time) []T {
	var due []T
	for _, r := range resources {
		if IsDue(r, now) {
			due = append(due, r)
		}
	}
	return takeRandom(due, batchSize)
}

// PickDueFeeds is PickDue with the feed polling rule.
func PickDueFeeds[T Resource](resources []T, batchSize int, now time.Time, pollInterval time.Duration) []T {
	var due []T
	for _, r := range resources {
		if IsFeedDue(r, now, pollInterval) {
			due = append(due, r)
		}
	}
	return takeRandom(due, batchSize)
}

func takeRandom[T any](items []T, n int) []T {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}
