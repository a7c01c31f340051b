package fetch

import (
	"context"
	"time"

	"longtail_monitor/internal/antidetect"
	"longtail_monitor/internal/shared/logger"
)

// Sequential runs one query at a time, each preceded by the shared pacing
// delay. The pacing wait is a process-wide serialization point in this
// mode: nothing overlaps.
type Sequential struct {
	session
}

// NewSequential builds the sequential executor.
func NewSequential(client *Client, manager *antidetect.Manager) *Sequential {
	return &Sequential{session: newSession(client, manager)}
}

// Run executes the batch in order. A stop signal or context cancellation
// ends the loop before the next dispatch; the current query is allowed to
// finish.
func (e *Sequential) Run(ctx context.Context, queries []string, onProgress Progress) (Results, error) {
	l := logger.WithComponent("Fetch/Executor")
	l.Info().Int("queries", len(queries)).Msg("Starting sequential batch.")

	start := time.Now()
	results := make(Results, len(queries))

	for i, q := range queries {
		if e.stopped.Load() || ctx.Err() != nil {
			l.Info().Int("completed", i).Msg("Stop signal received, ending batch.")
			break
		}

		if suggestions, ok := e.fetchOne(ctx, q); ok {
			results[q] = suggestions
		}
		if onProgress != nil {
			onProgress(i+1, len(queries), q)
		}
	}

	e.setDuration(time.Since(start))
	l.Info().Int("successful", len(results)).Dur("duration", time.Since(start)).Msg("Sequential batch finished.")
	return results, nil
}

// Stop prevents dispatch of further queries.
func (e *Sequential) Stop() {
	e.stopped.Store(true)
}
