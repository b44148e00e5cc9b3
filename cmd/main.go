package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/0x0BSoD/feedKeeper/internal/cache"
	"github.com/0x0BSoD/feedKeeper/internal/config"
	"github.com/0x0BSoD/feedKeeper/internal/fetcher"
	"github.com/0x0BSoD/feedKeeper/internal/httpx"
	"github.com/0x0BSoD/feedKeeper/internal/news"
	"github.com/0x0BSoD/feedKeeper/internal/reporter"
	"github.com/0x0BSoD/feedKeeper/internal/storage"
)

func main() {
	db, err := sqlx.Connect("postgres", config.Get().DatabaseDSN)
	if err != nil {
		log.Printf("[ERROR] failed to connect to db: %v", err)
		return
	}
	defer db.Close()

	if err := storage.Init(db); err != nil {
		log.Printf("[ERROR] failed to init db schema: %v", err)
		return
	}

	responseCache, err := cache.New(config.Get().CachePath, config.Get().CacheTTL)
	if err != nil {
		log.Printf("[ERROR] failed to open cache: %v", err)
		return
	}

	var (
		linkStorage       = storage.NewLinkStorage(db)
		collectionStorage = storage.NewCollectionStorage(db)
		fetchLogStorage   = storage.NewFetchLogStorage(
			db,
			config.Get().RateLimitWindow,
			config.Get().RateLimitThreshold,
		)
		httpClient = httpx.NewClient(config.Get().FetchTimeout, config.Get().UserAgent)
		fetchSvc   = fetcher.New(
			httpClient,
			responseCache,
			fetchLogStorage,
			linkStorage,
			collectionStorage,
			reporter.New(slog.Default()),
			fetcher.Config{
				CacheEnabled:     true,
				RateLimit:        true,
				SleepMin:         config.Get().RateLimitSleepMin,
				SleepMax:         config.Get().RateLimitSleepMax,
				MaxFailures:      config.Get().MaxFetchFailures,
				FeedPollInterval: config.Get().FeedPollInterval,
				LinkBatchSize:    config.Get().LinkBatchSize,
				FeedBatchSize:    config.Get().FeedBatchSize,
			},
		)
		picker = news.NewPicker(linkStorage, config.Get().NewsPoolLimit)
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/debug/cache", func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodDelete:
			if !fetchSvc.ClearCache(url) {
				http.Error(w, "no cache entry", http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			resp, ok := fetchSvc.Inspect(url)
			if !ok {
				http.Error(w, "no cache entry", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "message/http")
			_, _ = w.Write(resp.Encode())
		}
	})
	mux.HandleFunc("/debug/news", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "missing user parameter", http.StatusBadRequest)
			return
		}
		numberLinks, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if numberLinks <= 0 {
			numberLinks = 9
		}

		candidates, err := picker.Pick(r.Context(), userID, news.Options{
			NumberLinks: numberLinks,
			From:        r.URL.Query().Get("from"),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(candidates)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func(ctx context.Context) {
		err := fetchSvc.Start(ctx, config.Get().LinkInterval, config.Get().FeedInterval)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[ERROR] failed to run fetcher: %v", err)
				return
			}

			log.Printf("[INFO] fetcher stopped")
		}
	}(ctx)

	server := &http.Server{Addr: config.Get().ListenAddr, Handler: mux}
	go func(ctx context.Context) {
		<-ctx.Done()
		_ = server.Close()
	}(ctx)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[ERROR] failed to run http server: %v", err)
	}
}
