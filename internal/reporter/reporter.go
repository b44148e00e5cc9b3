// Package reporter summarizes batch fetch outcomes as structured log
// lines. It is nil-safe: a nil receiver is a no-op.
package reporter

import (
	"log/slog"

	"github.com/0x0BSoD/feedKeeper/internal/fetcher"
)

type Reporter struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{log: log}
}

func (r *Reporter) Report(kind string, results []fetcher.Result) {
	if r == nil {
		return
	}

	var ok, failed, skipped int
	for _, result := range results {
		switch {
		case result.Skipped:
			skipped++
		case result.Error != "":
			failed++
			r.log.Warn("fetch failed",
				"kind", kind,
				"url", result.URL,
				"status", result.Status,
				"err", result.Error,
			)
		default:
			ok++
		}
	}

	if len(results) > 0 {
		r.log.Info("batch done", "kind", kind, "ok", ok, "failed", failed, "skipped", skipped)
	}
}
