package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hundredandten/server/internal/config"
)

// SummaryRefresher replays one page of games and caches their summaries
type SummaryRefresher interface {
	RefreshSummaries(ctx context.Context, afterID string, batchSize int) (string, int, error)
}

// SummaryWorker periodically replays every game so game search can filter
// on cached status, active player and winner
type SummaryWorker struct {
	games   SummaryRefresher
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSummaryWorker creates a new summary worker
func NewSummaryWorker(games SummaryRefresher, cfg *config.SyncConfig, logger *slog.Logger) *SummaryWorker {
	return &SummaryWorker{
		games:  games,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *SummaryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("summary worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *SummaryWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("summary worker stopped")
	return nil
}

// run is the main worker loop
func (w *SummaryWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

// refreshAll walks every game page by page
func (w *SummaryWorker) refreshAll(ctx context.Context) int {
	w.logger.Info("starting summary refresh cycle")
	startTime := time.Now()

	batchSize := w.config.BatchSize
	if batchSize == 0 {
		batchSize = 500
	}

	refreshed := 0
	afterID := ""
	for {
		if ctx.Err() != nil {
			return refreshed
		}
		lastID, n, err := w.games.RefreshSummaries(ctx, afterID, batchSize)
		if err != nil {
			w.logger.Error("failed to refresh summaries", "after_id", afterID, "error", err)
			return refreshed
		}
		if lastID == "" {
			break
		}
		refreshed += n
		afterID = lastID
	}

	w.logger.Info("summary refresh cycle completed",
		"duration", time.Since(startTime),
		"refreshed", refreshed,
	)
	return refreshed
}

// IsRunning returns whether the worker is currently running
func (w *SummaryWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle and returns the number of games
// refreshed
func (w *SummaryWorker) RunOnce(ctx context.Context) int {
	return w.refreshAll(ctx)
}
