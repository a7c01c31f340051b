package fetch

import (
	"context"
	"sync"
	"time"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/shared/logger"
)

// Async dispatches every query as its own goroutine, bounded by a
// semaphore. Unlike the worker pool, Stop here is abortive: it cancels the
// run context, so outstanding requests are torn down instead of being
// allowed to finish.
type Async struct {
	session
	concurrency int

	cmu    sync.Mutex
	cancel context.CancelFunc
}

// NewAsync builds the async executor.
func NewAsync(client *Client, manager *antidetect.Manager, concurrency int) *Async {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Async{session: newSession(client, manager), concurrency: concurrency}
}

func (e *Async) Run(ctx context.Context, queries []string, onProgress Progress) (Results, error) {
	l := logger.WithComponent("Fetch/Executor")
	l.Info().Int("queries", len(queries)).Int("concurrency", e.concurrency).Msg("Starting async batch.")

	runCtx, cancel := context.WithCancel(ctx)
	e.cmu.Lock()
	e.cancel = cancel
	e.cmu.Unlock()
	defer cancel()

	start := time.Now()
	results := make(Results, len(queries))
	var resultsMu sync.Mutex
	var completed int

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for _, q := range queries {
		if e.stopped.Load() || runCtx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			defer func() { <-sem }()

			suggestions, ok := e.fetchOne(runCtx, q)

			resultsMu.Lock()
			if ok {
				results[q] = suggestions
			}
			completed++
			done := completed
			resultsMu.Unlock()

			if onProgress != nil {
				onProgress(done, len(queries), q)
			}
		}(q)
	}
	wg.Wait()

	e.setDuration(time.Since(start))
	l.Info().Int("successful", len(results)).Dur("duration", time.Since(start)).Msg("Async batch finished.")
	return results, nil
}

// Stop cancels the run context, aborting in-flight requests as well as
// preventing further dispatch.
func (e *Async) Stop() {
	e.stopped.Store(true)
	e.cmu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cmu.Unlock()
}
