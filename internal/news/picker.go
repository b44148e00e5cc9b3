// Package news builds a bounded, randomized, duplicate-free set of link
// candidates for a user's news queue. It only reads already-ingested
// records; persistence of the resulting queue is the caller's business.
package news

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/samber/lo"

	"github.com/0x0BSoD/feedKeeper/internal/model"
)

// Source restrictions for Options.From.
const (
	FromBookmarks = "bookmarks"
	FromFollowed  = "followed"
)

// DefaultPoolLimit caps the followed/topics pools to bound query cost.
const DefaultPoolLimit = 500

type Options struct {
	// NumberLinks is how many candidates to return.
	NumberLinks int
	// From restricts the candidate pools ("bookmarks" or "followed");
	// empty means all pools.
	From string
	// MinDuration and MaxDuration filter candidates by reading time in
	// minutes; zero disables the bound.
	MinDuration int
	MaxDuration int
}

type LinkLister interface {
	ListFromBookmarksForNews(ctx context.Context, userID string) ([]model.NewsCandidate, error)
	ListFromFollowedForNews(ctx context.Context, userID string, limit int) ([]model.NewsCandidate, error)
	ListFromTopicsForNews(ctx context.Context, userID string, limit int) ([]model.NewsCandidate, error)
}

type Picker struct {
	links     LinkLister
	poolLimit int
}

func NewPicker(links LinkLister, poolLimit int) *Picker {
	if poolLimit <= 0 {
		poolLimit = DefaultPoolLimit
	}
	return &Picker{links: links, poolLimit: poolLimit}
}

// Pick gathers the pools allowed by opts.From, applies the duration
// filters, dedupes by URL and returns at most opts.NumberLinks candidates
// in random order. An empty combined pool yields an empty slice.
func (p *Picker) Pick(ctx context.Context, userID string, opts Options) ([]model.NewsCandidate, error) {
	var pool []model.NewsCandidate

	if opts.From == "" || opts.From == FromBookmarks {
		bookmarks, err := p.links.ListFromBookmarksForNews(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("picking from bookmarks: %w", err)
		}
		pool = append(pool, bookmarks...)
	}

	if opts.From == "" || opts.From == FromFollowed {
		followed, err := p.links.ListFromFollowedForNews(ctx, userID, p.poolLimit)
		if err != nil {
			return nil, fmt.Errorf("picking from followed collections: %w", err)
		}
		pool = append(pool, followed...)
	}

	if opts.From == "" {
		topics, err := p.links.ListFromTopicsForNews(ctx, userID, p.poolLimit)
		if err != nil {
			return nil, fmt.Errorf("picking from topics: %w", err)
		}
		pool = append(pool, topics...)
	}

	pool = lo.Filter(pool, func(c model.NewsCandidate, _ int) bool {
		if opts.MinDuration > 0 && c.ReadingTime < opts.MinDuration {
			return false
		}
		if opts.MaxDuration > 0 && c.ReadingTime > opts.MaxDuration {
			return false
		}
		return true
	})

	pool = lo.UniqBy(pool, func(c model.NewsCandidate) string { return c.URL })

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if opts.NumberLinks > 0 && len(pool) > opts.NumberLinks {
		pool = pool[:opts.NumberLinks]
	}
	return pool, nil
}
