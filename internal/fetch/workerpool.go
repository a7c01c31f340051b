package fetch

import (
	"context"
	"sync"
	"time"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/shared/logger"
)

// WorkerPool runs a fixed set of workers pulling from a shared queue. Each
// worker independently performs identity rotation, pacing and outcome
// reporting; results merge into one map under a lock. After a stop signal
// queued-but-undispatched queries are abandoned while already-dispatched
// ones complete or time out, never retried.
type WorkerPool struct {
	session
	workers int
}

// NewWorkerPool builds the worker-pool executor.
func NewWorkerPool(client *Client, manager *antidetect.Manager, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 3
	}
	return &WorkerPool{session: newSession(client, manager), workers: workers}
}

func (e *WorkerPool) Run(ctx context.Context, queries []string, onProgress Progress) (Results, error) {
	l := logger.WithComponent("Fetch/Executor")
	l.Info().Int("queries", len(queries)).Int("workers", e.workers).Msg("Starting worker-pool batch.")

	start := time.Now()
	queue := make(chan string, len(queries))
	for _, q := range queries {
		queue <- q
	}
	close(queue)

	results := make(Results, len(queries))
	var resultsMu sync.Mutex
	var completed int

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range queue {
				if e.stopped.Load() || ctx.Err() != nil {
					return
				}

				suggestions, ok := e.fetchOne(ctx, q)

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
			}
		}()
	}
	wg.Wait()

	e.setDuration(time.Since(start))
	l.Info().Int("successful", len(results)).Dur("duration", time.Since(start)).Msg("Worker-pool batch finished.")
	return results, nil
}

// Stop causes workers to exit before pulling further queries. In-flight
// requests run to completion or timeout.
func (e *WorkerPool) Stop() {
	e.stopped.Store(true)
}
