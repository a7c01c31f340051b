package drift

import (
	"sort"
	"strings"

	"longtail_monitor/internal/snapshot"
)

// Direction labels how a keyword's presence is moving across the window.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// KeywordTrend describes one keyword's behaviour across the analysis
// window. Stability is the fraction of window days the keyword appeared on,
// in [0, 1].
type KeywordTrend struct {
	Keyword     string  `json:"keyword"`
	Occurrences int     `json:"occurrences"`
	Stability   float64 `json:"stability"`
	Direction   string  `json:"direction"`
	FirstSeen   string  `json:"first_seen"`
	LastSeen    string  `json:"last_seen"`
}

// TrendReport is the per-seed trend analysis over a trailing window of
// daily snapshots.
type TrendReport struct {
	Seed     string         `json:"seed"`
	Days     int            `json:"days"`
	Keywords []KeywordTrend `json:"keywords"`
}

// AnalyzeTrends classifies every keyword seen in the window by comparing
// its presence in the most recent third of days against the earliest third.
// More recent appearances than early ones reads as rising, fewer as
// falling, the rest as stable. The history must be ascending by date, as
// Store.History returns it.
func AnalyzeTrends(seed string, history []*snapshot.Snapshot) *TrendReport {
	report := &TrendReport{Seed: seed, Days: len(history), Keywords: []KeywordTrend{}}
	if len(history) == 0 {
		return report
	}

	type presence struct {
		display string
		dates   []int // indexes into history
	}
	seen := make(map[string]*presence)
	for i, snap := range history {
		for key, kw := range keywordIndex(snap) {
			p, ok := seen[key]
			if !ok {
				p = &presence{display: kw}
				seen[key] = p
			}
			p.display = kw // keep the latest casing
			p.dates = append(p.dates, i)
		}
	}

	// Thirds round up so short windows still have non-empty segments.
	third := (len(history) + 2) / 3
	earlyEnd := third                   // [0, earlyEnd)
	recentStart := len(history) - third // [recentStart, len)

	for _, p := range seen {
		early, recent := 0, 0
		for _, i := range p.dates {
			if i < earlyEnd {
				early++
			}
			if i >= recentStart {
				recent++
			}
		}

		direction := TrendStable
		switch {
		case recent > early:
			direction = TrendRising
		case recent < early:
			direction = TrendFalling
		}

		first := history[p.dates[0]].Metadata.Date
		last := history[p.dates[len(p.dates)-1]].Metadata.Date
		report.Keywords = append(report.Keywords, KeywordTrend{
			Keyword:     p.display,
			Occurrences: len(p.dates),
			Stability:   float64(len(p.dates)) / float64(len(history)),
			Direction:   direction,
			FirstSeen:   first,
			LastSeen:    last,
		})
	}

	sort.Slice(report.Keywords, func(i, j int) bool {
		a, b := report.Keywords[i], report.Keywords[j]
		if a.Stability != b.Stability {
			return a.Stability > b.Stability
		}
		return strings.ToLower(a.Keyword) < strings.ToLower(b.Keyword)
	})
	return report
}

// Rising filters the report down to its rising keywords.
func (r *TrendReport) Rising() []KeywordTrend { return r.filter(TrendRising) }

// Falling filters the report down to its falling keywords.
func (r *TrendReport) Falling() []KeywordTrend { return r.filter(TrendFalling) }

func (r *TrendReport) filter(direction string) []KeywordTrend {
	var out []KeywordTrend
	for _, kt := range r.Keywords {
		if kt.Direction == direction {
			out = append(out, kt)
		}
	}
	return out
}
