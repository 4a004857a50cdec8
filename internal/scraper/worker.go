package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/tilemirror/internal/metrics"
	"github.com/sells-group/tilemirror/internal/store"
	"github.com/sells-group/tilemirror/internal/tile"
)

// Summary reports the outcome of one worker run.
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// Worker drains a work queue one tile at a time: fetch, upsert, pace, next.
// Fetch concurrency is fixed at 1; the pace interval is a rate limit on the
// remote service, not a concurrency knob.
type Worker struct {
	store   store.Store
	fetcher Fetcher
}

// NewWorker creates a fetch worker over the given store and tile fetcher.
func NewWorker(st store.Store, f Fetcher) *Worker {
	return &Worker{store: st, fetcher: f}
}

// Run processes the queue in order until targetCount fetches have succeeded
// or the queue is exhausted, waiting pace between consecutive attempts.
// Per-tile fetch and upsert failures are logged and counted, never fatal.
// A cancelled context stops the run and returns the context error alongside
// the partial summary.
func (w *Worker) Run(ctx context.Context, queue []tile.Tile, targetCount int, pace time.Duration) (Summary, error) {
	log := zap.L().With(zap.String("component", "scraper.worker"))

	limit := rate.Inf
	if pace > 0 {
		limit = rate.Every(pace)
	}
	limiter := rate.NewLimiter(limit, 1)

	var sum Summary
	log.Info("starting scrape run",
		zap.Int("queue", len(queue)),
		zap.Int("target", targetCount),
		zap.Duration("pace", pace),
	)

	for _, t := range queue {
		if sum.Succeeded >= targetCount {
			break
		}

		if err := limiter.Wait(ctx); err != nil {
			log.Warn("scrape run interrupted", zap.Error(err))
			w.logSummary(log, sum)
			return sum, err
		}

		sum.Attempted++
		metrics.FetchAttempts.Inc()

		data, err := w.fetcher.Fetch(ctx, t)
		if err != nil {
			metrics.FetchFailures.Inc()
			log.Warn("tile fetch failed", zap.String("tile", t.String()), zap.Error(err))
			continue
		}

		if err := w.store.UpsertTile(ctx, t, data, time.Now().UTC()); err != nil {
			metrics.FetchFailures.Inc()
			log.Warn("tile store failed", zap.String("tile", t.String()), zap.Error(err))
			continue
		}

		sum.Succeeded++
		metrics.FetchSuccesses.Inc()
		log.Debug("tile stored",
			zap.String("tile", t.String()),
			zap.Int("bytes", len(data)),
			zap.Int("succeeded", sum.Succeeded),
		)
	}

	w.logSummary(log, sum)
	return sum, nil
}

func (w *Worker) logSummary(log *zap.Logger, sum Summary) {
	log.Info("scrape run complete",
		zap.Int("attempted", sum.Attempted),
		zap.Int("succeeded", sum.Succeeded),
	)
}
