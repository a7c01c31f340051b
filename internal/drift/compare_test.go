package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longtail_monitor/internal/fetch"
	"longtail_monitor/internal/snapshot"
)

func snapFor(seed, date string, keywords ...string) *snapshot.Snapshot {
	s := snapshot.New(seed, "sequential", fetch.Results{seed: keywords}, fetch.RunStats{
		TotalRequests: 1, Successful: 1, TotalSuggestions: len(keywords),
	})
	s.Metadata.Date = date
	return s
}

func TestCompare_Basic(t *testing.T) {
	prev := snapFor("coffee", "2026-08-24", "a", "b", "c")
	curr := snapFor("coffee", "2026-08-25", "b", "c", "d")

	r := Compare(curr, prev)
	assert.Equal(t, "coffee", r.Seed)
	assert.Equal(t, "2026-08-25", r.Date)
	assert.Equal(t, "2026-08-24", r.PreviousDate)
	assert.Equal(t, []string{"d"}, r.NewKeywords)
	assert.Equal(t, []string{"a"}, r.DisappearedKeywords)
	assert.Equal(t, []string{"b", "c"}, r.StableKeywords)
	assert.Equal(t, 3, r.CurrentCount)
	assert.Equal(t, 3, r.PreviousCount)
	assert.InDelta(t, 0.0, r.ChangeRate, 0.001)
}

func TestCompare_IdenticalSnapshots(t *testing.T) {
	prev := snapFor("coffee", "2026-08-24", "a", "b")
	curr := snapFor("coffee", "2026-08-25", "a", "b")

	r := Compare(curr, prev)
	assert.Empty(t, r.NewKeywords)
	assert.Empty(t, r.DisappearedKeywords)
	assert.Equal(t, []string{"a", "b"}, r.StableKeywords)
	assert.InDelta(t, 0.0, r.ChangeRate, 0.001)
}

func TestCompare_ChangeRateSign(t *testing.T) {
	prev := snapFor("coffee", "2026-08-24", "a", "b", "c", "d")
	grown := snapFor("coffee", "2026-08-25", "a", "b", "c", "d", "e", "f")
	r := Compare(grown, prev)
	assert.InDelta(t, 50.0, r.ChangeRate, 0.001)

	shrunk := snapFor("coffee", "2026-08-25", "a", "b")
	r = Compare(shrunk, prev)
	assert.InDelta(t, -50.0, r.ChangeRate, 0.001)
}

func TestCompare_EmptyPrevious(t *testing.T) {
	prev := snapFor("coffee", "2026-08-24")
	curr := snapFor("coffee", "2026-08-25", "a", "b")

	r := Compare(curr, prev)
	assert.Equal(t, []string{"a", "b"}, r.NewKeywords)
	assert.Zero(t, r.PreviousCount)
	assert.InDelta(t, 0.0, r.ChangeRate, 0.001)
}

func TestCompare_CaseInsensitiveMembership(t *testing.T) {
	prev := snapFor("coffee", "2026-08-24", "Cold Brew", "latte")
	curr := snapFor("coffee", "2026-08-25", "cold brew", "mocha")

	r := Compare(curr, prev)
	assert.Equal(t, []string{"mocha"}, r.NewKeywords)
	assert.Equal(t, []string{"latte"}, r.DisappearedKeywords)
	// Stable keywords carry the current capture's casing.
	assert.Equal(t, []string{"cold brew"}, r.StableKeywords)
}

func TestCompareWithPrevious(t *testing.T) {
	st, err := snapshot.NewStore(t.TempDir())
	require.NoError(t, err)

	first := snapFor("coffee", "2026-08-24", "a", "b")
	require.NoError(t, st.Save(first))

	// Nothing earlier than the first capture: no comparison, no error.
	r, err := CompareWithPrevious(st, first)
	require.NoError(t, err)
	assert.Nil(t, r)

	second := snapFor("coffee", "2026-08-25", "b", "c")
	require.NoError(t, st.Save(second))

	r, err = CompareWithPrevious(st, second)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "2026-08-24", r.PreviousDate)
	assert.Equal(t, []string{"c"}, r.NewKeywords)
	assert.Equal(t, []string{"a"}, r.DisappearedKeywords)
}

func TestAnalyzeTrends(t *testing.T) {
	history := []*snapshot.Snapshot{
		snapFor("coffee", "2026-08-19", "old timer", "steady"),
		snapFor("coffee", "2026-08-20", "old timer", "steady"),
		snapFor("coffee", "2026-08-21", "steady"),
		snapFor("coffee", "2026-08-22", "steady", "newcomer"),
		snapFor("coffee", "2026-08-23", "steady", "newcomer"),
		snapFor("coffee", "2026-08-24", "steady", "newcomer"),
	}

	report := AnalyzeTrends("coffee", history)
	require.Equal(t, 6, report.Days)

	byKeyword := make(map[string]KeywordTrend)
	for _, kt := range report.Keywords {
		byKeyword[kt.Keyword] = kt
	}
	require.Len(t, byKeyword, 3)

	steady := byKeyword["steady"]
	assert.Equal(t, TrendStable, steady.Direction)
	assert.InDelta(t, 1.0, steady.Stability, 0.001)
	assert.Equal(t, 6, steady.Occurrences)

	newcomer := byKeyword["newcomer"]
	assert.Equal(t, TrendRising, newcomer.Direction)
	assert.InDelta(t, 0.5, newcomer.Stability, 0.001)
	assert.Equal(t, "2026-08-22", newcomer.FirstSeen)
	assert.Equal(t, "2026-08-24", newcomer.LastSeen)

	old := byKeyword["old timer"]
	assert.Equal(t, TrendFalling, old.Direction)
	assert.InDelta(t, 2.0/6.0, old.Stability, 0.001)

	assert.Equal(t, []KeywordTrend{newcomer}, report.Rising())
	assert.Equal(t, []KeywordTrend{old}, report.Falling())
}

func TestAnalyzeTrends_SortedByStability(t *testing.T) {
	history := []*snapshot.Snapshot{
		snapFor("coffee", "2026-08-23", "always", "sometimes"),
		snapFor("coffee", "2026-08-24", "always"),
	}
	report := AnalyzeTrends("coffee", history)
	require.Len(t, report.Keywords, 2)
	assert.Equal(t, "always", report.Keywords[0].Keyword)
	assert.Equal(t, "sometimes", report.Keywords[1].Keyword)
}

func TestAnalyzeTrends_EmptyHistory(t *testing.T) {
	report := AnalyzeTrends("coffee", nil)
	assert.Zero(t, report.Days)
	assert.Empty(t, report.Keywords)
}
