// Package fetcher coordinates the fetch pipeline: response cache, rate
// limiter, network client and the downstream parsers. Failures never
// abort a batch; every outcome is reported as a value and recorded on
// the resource's fetch history.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/0x0BSoD/feedKeeper/internal/cache"
	"github.com/0x0BSoD/feedKeeper/internal/extract"
	"github.com/0x0BSoD/feedKeeper/internal/feed"
	"github.com/0x0BSoD/feedKeeper/internal/httpx"
	"github.com/0x0BSoD/feedKeeper/internal/model"
	"github.com/0x0BSoD/feedKeeper/internal/scheduler"
)

// Fetch purposes, logged per attempt and rate-limited independently.
const (
	PurposePage = "page"
	PurposeFeed = "feed"
)

type HTTPClient interface {
	Get(ctx context.Context, url string) (*httpx.Response, error)
}

type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Save(key string, data []byte) error
	Remove(key string) bool
}

type FetchLog interface {
	Log(ctx context.Context, url, purpose string) error
	HasReachedRateLimit(ctx context.Context, url, purpose string) (bool, error)
}

type LinkStorage interface {
	CandidatesToFetch(ctx context.Context, maxFailures int) ([]*model.Link, error)
	UpdateAfterFetch(ctx context.Context, link *model.Link) error
	ListIDsByURLs(ctx context.Context, collectionID string) (map[string]string, error)
	ListByEntryIDs(ctx context.Context, collectionID string) (map[string]*model.Link, error)
	RenameForEntry(ctx context.Context, linkID, url string, createdAt time.Time) error
	BulkInsert(ctx context.Context, links []*model.Link) error
}

type CollectionStorage interface {
	FeedsToFetch(ctx context.Context, before time.Time, maxFailures int) ([]*model.Collection, error)
	UpdateAfterFeedFetch(ctx context.Context, collection *model.Collection) error
	UpdateImage(ctx context.Context, collectionID, imageURL string, fetchedAt time.Time) error
	AttachLinks(ctx context.Context, collectionID string, linkIDs []string) error
}

// Reporter receives batch summaries. A nil Reporter is a no-op.
type Reporter interface {
	Report(kind string, results []Result)
}

type Config struct {
	CacheEnabled bool
	RateLimit    bool

	// SleepMin and SleepMax bound the randomized delay applied when a
	// single fetch hits the rate limit.
	SleepMin time.Duration
	SleepMax time.Duration

	MaxFailures      int
	FeedPollInterval time.Duration
	LinkBatchSize    int
	FeedBatchSize    int
}

type Fetcher struct {
	http        HTTPClient
	cache       ResponseCache
	logs        FetchLog
	links       LinkStorage
	collections CollectionStorage
	reporter    Reporter
	cfg         Config

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

func New(
	httpClient HTTPClient,
	responseCache ResponseCache,
	logs FetchLog,
	links LinkStorage,
	collections CollectionStorage,
	reporter Reporter,
	cfg Config,
) *Fetcher {
	if cfg.SleepMin <= 0 {
		cfg.SleepMin = 5 * time.Second
	}
	if cfg.SleepMax < cfg.SleepMin {
		cfg.SleepMax = cfg.SleepMin + 5*time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = scheduler.MaxFailures
	}
	if cfg.FeedPollInterval <= 0 {
		cfg.FeedPollInterval = time.Hour
	}
	if cfg.LinkBatchSize <= 0 {
		cfg.LinkBatchSize = 25
	}
	if cfg.FeedBatchSize <= 0 {
		cfg.FeedBatchSize = 25
	}

	return &Fetcher{
		http:        httpClient,
		cache:       responseCache,
		logs:        logs,
		links:       links,
		collections: collections,
		reporter:    reporter,
		cfg:         cfg,
		sleep:       sleepContext,
	}
}

// FetchInfo is the structured outcome of fetching one URL. A transport
// failure carries status 0; any completed HTTP exchange carries its
// status and, when something still went wrong (HTTP error, content-type
// mismatch, parse failure), a non-empty Error.
type FetchInfo struct {
	Status   int
	Error    string
	Response *httpx.Response
	Feed     *feed.Feed
}

// Result is one resource's outcome within a batch run.
type Result struct {
	URL     string
	Status  int
	Error   string
	Skipped bool
}

// FetchURL fetches a single URL through the full pipeline. A fresh cache
// entry short-circuits everything: cache hits are neither rate-limited
// nor logged. When the rate limit is reached the request is delayed, not
// rejected.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL, purpose string, wantFeed bool) FetchInfo {
	key := cache.Hash(rawURL)

	if f.cfg.CacheEnabled {
		if data, ok := f.cache.Get(key); ok {
			if resp, err := httpx.Decode(data); err == nil {
				return f.responseInfo(resp, wantFeed)
			}
		}
	}

	if f.cfg.RateLimit {
		limited, err := f.logs.HasReachedRateLimit(ctx, rawURL, purpose)
		if err != nil {
			slog.Warn("rate limit check failed", "url", rawURL, "err", err)
		}
		if limited {
			f.sleep(ctx, f.randomDelay())
		}
	}

	if err := f.logs.Log(ctx, rawURL, purpose); err != nil {
		slog.Warn("failed to log fetch attempt", "url", rawURL, "err", err)
	}

	resp, err := f.http.Get(ctx, rawURL)
	if err != nil {
		return FetchInfo{Status: 0, Error: err.Error()}
	}

	if resp.Success() {
		// Best-effort: the fetched content is usable even if caching fails.
		if err := f.cache.Save(key, resp.Encode()); err != nil {
			slog.Warn("failed to cache response", "url", rawURL, "err", err)
		}
	}

	return f.responseInfo(resp, wantFeed)
}

func (f *Fetcher) responseInfo(resp *httpx.Response, wantFeed bool) FetchInfo {
	info := FetchInfo{Status: resp.Status, Response: resp}

	if !resp.Success() {
		info.Error = fmt.Sprintf("HTTP error: status %d", resp.Status)
		return info
	}

	if !wantFeed {
		return info
	}

	contentType := resp.ContentType()
	if !feed.IsFeedContentType(contentType) {
		info.Error = fmt.Sprintf("invalid content type: %s", contentType)
		return info
	}

	parsed, err := feed.Parse(resp.TextBody())
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.Feed = parsed
	return info
}

// FetchLink fetches a page link, extracts its content and persists the
// outcome. The failure count resets on success and increments on any
// failure.
func (f *Fetcher) FetchLink(ctx context.Context, link *model.Link) FetchInfo {
	info := f.FetchURL(ctx, link.URL, PurposePage, false)

	now := time.Now().UTC()
	link.FetchedAt = &now
	link.FetchedCode = info.Status
	link.FetchedError = nil

	if info.Error != "" {
		msg := info.Error
		link.FetchedError = &msg
		link.FetchedCount++
	} else {
		link.FetchedCount = 0
		f.extractLinkContent(link, info.Response)
	}

	if err := f.links.UpdateAfterFetch(ctx, link); err != nil {
		log.Printf("[ERROR] failed to save link %s: %v", link.ID, err)
	}
	return info
}

func (f *Fetcher) extractLinkContent(link *model.Link, resp *httpx.Response) {
	if !strings.Contains(resp.ContentType(), "html") {
		if link.Title == "" {
			link.Title = link.URL
		}
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.TextBody()))
	if err != nil {
		if link.Title == "" {
			link.Title = link.URL
		}
		return
	}

	title := extract.Title(doc)
	if title == "" {
		title = link.URL
	}
	link.Title = title

	link.ReadingTime = ReadingTime(extract.Content(doc))

	if illustration := extract.Illustration(doc); illustration != "" {
		link.Illustration = extract.Sanitize(extract.Absolutize(illustration, link.URL))
	}
}

// ReadingTime estimates minutes of reading at 200 words per minute,
// rounded up so a short but real article still counts as one minute.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	return (words + 199) / 200
}

// FetchDue fetches a randomized batch of due links. Hosts are processed
// in parallel but requests to the same host stay sequential so the rate
// limiter's window is counted safely. A link whose host already reached
// the limit is skipped for this run, not delayed, so one slow host never
// blocks the batch.
func (f *Fetcher) FetchDue(ctx context.Context, batchSize int) ([]Result, error) {
	candidates, err := f.links.CandidatesToFetch(ctx, f.cfg.MaxFailures)
	if err != nil {
		return nil, err
	}

	due := scheduler.PickDue(candidates, batchSize, time.Now().UTC())

	results := forEachHost(ctx, due, func(link *model.Link) string { return urlHost(link.URL) },
		func(ctx context.Context, link *model.Link) Result {
			if f.skipRateLimited(ctx, link.URL, PurposePage) {
				return Result{URL: link.URL, Skipped: true}
			}
			info := f.FetchLink(ctx, link)
			return Result{URL: link.URL, Status: info.Status, Error: info.Error}
		})

	f.report("links", results)
	return results, nil
}

// FetchDueFeeds polls a randomized batch of due feed collections.
func (f *Fetcher) FetchDueFeeds(ctx context.Context, batchSize int) ([]Result, error) {
	before := time.Now().UTC().Add(-scheduler.MinWait)
	candidates, err := f.collections.FeedsToFetch(ctx, before, f.cfg.MaxFailures)
	if err != nil {
		return nil, err
	}

	due := scheduler.PickDueFeeds(candidates, batchSize, time.Now().UTC(), f.cfg.FeedPollInterval)

	results := forEachHost(ctx, due, func(c *model.Collection) string { return urlHost(c.FeedURL) },
		func(ctx context.Context, c *model.Collection) Result {
			if f.skipRateLimited(ctx, c.FeedURL, PurposeFeed) {
				return Result{URL: c.FeedURL, Skipped: true}
			}
			f.FetchFeed(ctx, c)
			result := Result{URL: c.FeedURL, Status: c.FeedFetchedCode}
			if c.FeedFetchedError != nil {
				result.Error = *c.FeedFetchedError
			}
			return result
		})

	f.report("feeds", results)
	return results, nil
}

// forEachHost fans resources out one goroutine per host and collects the
// results.
func forEachHost[T any](ctx context.Context, items []T, hostOf func(T) string, fetch func(context.Context, T) Result) []Result {
	byHost := map[string][]T{}
	for _, item := range items {
		host := hostOf(item)
		byHost[host] = append(byHost[host], item)
	}

	var (
		mu      sync.Mutex
		results []Result
		wg      sync.WaitGroup
	)
	for _, hostItems := range byHost {
		wg.Add(1)
		go func(hostItems []T) {
			defer wg.Done()
			for _, item := range hostItems {
				if ctx.Err() != nil {
					return
				}
				result := fetch(ctx, item)
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}(hostItems)
	}
	wg.Wait()

	return results
}

func (f *Fetcher) skipRateLimited(ctx context.Context, rawURL, purpose string) bool {
	if !f.cfg.RateLimit {
		return false
	}
	limited, err := f.logs.HasReachedRateLimit(ctx, rawURL, purpose)
	if err != nil {
		slog.Warn("rate limit check failed", "url", rawURL, "err", err)
		return false
	}
	return limited
}

// ClearCache drops the cached response for a URL, reporting whether one
// existed.
func (f *Fetcher) ClearCache(rawURL string) bool {
	return f.cache.Remove(cache.Hash(rawURL))
}

// Inspect returns the last cached raw response for a URL, if fresh.
func (f *Fetcher) Inspect(rawURL string) (*httpx.Response, bool) {
	data, ok := f.cache.Get(cache.Hash(rawURL))
	if !ok {
		return nil, false
	}
	resp, err := httpx.Decode(data)
	if err != nil {
		return nil, false
	}
	return resp, true
}

// Start runs the two batch loops until the context is canceled.
func (f *Fetcher) Start(ctx context.Context, linkInterval, feedInterval time.Duration) error {
	log.Printf("[INFO] fetcher started")

	linkTicker := time.NewTicker(linkInterval)
	defer linkTicker.Stop()
	feedTicker := time.NewTicker(feedInterval)
	defer feedTicker.Stop()

	f.runLinkBatch(ctx)
	f.runFeedBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-linkTicker.C:
			f.runLinkBatch(ctx)
		case <-feedTicker.C:
			f.runFeedBatch(ctx)
		}
	}
}

func (f *Fetcher) runLinkBatch(ctx context.Context) {
	if _, err := f.FetchDue(ctx, f.cfg.LinkBatchSize); err != nil {
		log.Printf("[ERROR] failed to fetch due links: %v", err)
	}
}

func (f *Fetcher) runFeedBatch(ctx context.Context) {
	if _, err := f.FetchDueFeeds(ctx, f.cfg.FeedBatchSize); err != nil {
		log.Printf("[ERROR] failed to fetch due feeds: %v", err)
	}
}

func (f *Fetcher) report(kind string, results []Result) {
	if f.reporter != nil {
		f.reporter.Report(kind, results)
	}
}

func (f *Fetcher) randomDelay() time.Duration {
	spread := f.cfg.SleepMax - f.cfg.SleepMin
	if spread <= 0 {
		return f.cfg.SleepMin
	}
	return f.cfg.SleepMin + time.Duration(rand.Int63n(int64(spread)))
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func urlHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}
