package drift

import (
	"sort"
	"strings"

	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/snapshot"
)

// ComparisonResult is the day-over-day keyword diff between two captures of
// the same seed. Keyword lists are sorted; membership is decided
// case-insensitively but reported in the current capture's casing (the
// previous capture's for disappeared keywords).
type ComparisonResult struct {
	Seed         string `json:"seed"`
	Date         string `json:"date"`
	PreviousDate string `json:"previous_date"`

	NewKeywords         []string `json:"new_keywords"`
	DisappearedKeywords []string `json:"disappeared_keywords"`
	StableKeywords      []string `json:"stable_keywords"`

	CurrentCount  int     `json:"current_count"`
	PreviousCount int     `json:"previous_count"`
	ChangeRate    float64 `json:"change_rate"`
}

// Compare diffs the current capture against the previous one. The change
// rate is the net keyword delta relative to the previous day's population,
// in percent; it is negative when more keywords disappeared than arrived,
// and zero when the previous capture was empty.
func Compare(current, previous *snapshot.Snapshot) *ComparisonResult {
	currentSet := keywordIndex(current)
	previousSet := keywordIndex(previous)

	r := &ComparisonResult{
		Seed:                current.Metadata.Seed,
		Date:                current.Metadata.Date,
		PreviousDate:        previous.Metadata.Date,
		NewKeywords:         []string{},
		DisappearedKeywords: []string{},
		StableKeywords:      []string{},
		CurrentCount:        len(currentSet),
		PreviousCount:       len(previousSet),
	}

	for key, kw := range currentSet {
		if _, ok := previousSet[key]; ok {
			r.StableKeywords = append(r.StableKeywords, kw)
		} else {
			r.NewKeywords = append(r.NewKeywords, kw)
		}
	}
	for key, kw := range previousSet {
		if _, ok := currentSet[key]; !ok {
			r.DisappearedKeywords = append(r.DisappearedKeywords, kw)
		}
	}
	sort.Strings(r.NewKeywords)
	sort.Strings(r.DisappearedKeywords)
	sort.Strings(r.StableKeywords)

	if r.PreviousCount > 0 {
		r.ChangeRate = float64(len(r.NewKeywords)-len(r.DisappearedKeywords)) / float64(r.PreviousCount) * 100
	}

	logger.WithComponent("Drift/Compare").Info().
		Str("seed", r.Seed).
		Str("date", r.Date).
		Int("new", len(r.NewKeywords)).
		Int("disappeared", len(r.DisappearedKeywords)).
		Int("stable", len(r.StableKeywords)).
		Float64("change_rate", r.ChangeRate).
		Msg("Snapshots compared.")
	return r
}

// CompareWithPrevious diffs the capture against the most recent earlier
// snapshot in the store and persists the result next to it. A first-ever
// capture has nothing to diff against and returns nil without error.
func CompareWithPrevious(st *snapshot.Store, current *snapshot.Snapshot) (*ComparisonResult, error) {
	prev, err := st.Previous(current.Metadata.Seed, current.Metadata.Date)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}

	result := Compare(current, prev)
	if err := st.SaveComparison(current.Metadata.Seed, current.Metadata.Date, result); err != nil {
		return nil, err
	}
	return result, nil
}

// keywordIndex maps each lowercase keyword to its original casing.
func keywordIndex(s *snapshot.Snapshot) map[string]string {
	idx := make(map[string]string)
	for _, kw := range s.Keywords() {
		idx[strings.ToLower(kw)] = kw
	}
	return idx
}
