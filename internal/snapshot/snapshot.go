package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"longtail_monitor/internal/fetch"
)

// Metadata identifies one capture: which seed, on which day, under which
// run.
type Metadata struct {
	RunID     string    `json:"run_id"`
	Seed      string    `json:"seed"`
	Date      string    `json:"date"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
}

// Statistics aggregates one capture's fetch outcomes.
type Statistics struct {
	TotalQueries      int     `json:"total_queries"`
	SuccessfulQueries int     `json:"successful_queries"`
	TotalSuggestions  int     `json:"total_suggestions"`
	UniqueSuggestions int     `json:"unique_suggestions"`
	AveragePerQuery   float64 `json:"average_per_query"`
	SuccessRate       float64 `json:"success_rate"`
	DurationSeconds   float64 `json:"duration_seconds"`
	QueriesPerMinute  float64 `json:"queries_per_minute"`
}

// Snapshot is the full persisted record of one day's capture for one seed.
type Snapshot struct {
	Metadata     Metadata            `json:"metadata"`
	QueryResults map[string][]string `json:"query_results"`
	Statistics   Statistics          `json:"statistics"`
}

// New assembles a snapshot from a finished batch. The date is derived from
// the creation instant in UTC so a capture spanning midnight files under
// the day it started being written.
func New(seed, mode string, results fetch.Results, stats fetch.RunStats) *Snapshot {
	now := time.Now().UTC()
	unique := countUnique(results)

	s := &Snapshot{
		Metadata: Metadata{
			RunID:     uuid.NewString(),
			Seed:      seed,
			Date:      now.Format("2006-01-02"),
			CreatedAt: now,
			Mode:      mode,
		},
		QueryResults: results,
		Statistics: Statistics{
			TotalQueries:      stats.TotalRequests,
			SuccessfulQueries: stats.Successful,
			TotalSuggestions:  stats.TotalSuggestions,
			UniqueSuggestions: unique,
			SuccessRate:       stats.SuccessRate(),
			DurationSeconds:   stats.Duration.Seconds(),
			QueriesPerMinute:  stats.QueriesPerMinute(),
		},
	}
	if len(results) > 0 {
		s.Statistics.AveragePerQuery = float64(s.Statistics.TotalSuggestions) / float64(len(results))
	}
	return s
}

// Keywords returns the deduplicated union of all suggestions in the
// snapshot, compared case-insensitively, sorted for stable output.
func (s *Snapshot) Keywords() []string {
	seen := make(map[string]string)
	for _, suggestions := range s.QueryResults {
		for _, kw := range suggestions {
			key := strings.ToLower(kw)
			if _, ok := seen[key]; !ok {
				seen[key] = kw
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, kw := range seen {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// KeywordSet returns the snapshot's keywords as a lowercase membership set.
func (s *Snapshot) KeywordSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, suggestions := range s.QueryResults {
		for _, kw := range suggestions {
			set[strings.ToLower(kw)] = struct{}{}
		}
	}
	return set
}

func countUnique(results fetch.Results) int {
	seen := make(map[string]struct{})
	for _, suggestions := range results {
		for _, kw := range suggestions {
			seen[strings.ToLower(kw)] = struct{}{}
		}
	}
	return len(seen)
}
