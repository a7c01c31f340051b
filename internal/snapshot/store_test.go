package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longtail_monitor/internal/fetch"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return st
}

func testSnapshot(seed, date string) *Snapshot {
	s := New(seed, "sequential", fetch.Results{
		seed + " a": {"alpha one", "alpha two"},
		seed + " b": {"beta one"},
	}, fetch.RunStats{TotalRequests: 2, Successful: 2, TotalSuggestions: 3, Duration: time.Minute})
	s.Metadata.Date = date
	return s
}

func TestSanitizeSeed(t *testing.T) {
	cases := map[string]string{
		"coffee":             "coffee",
		"coffee beans":       "coffee_beans",
		"  best / cafe?  ":   "best_cafe",
		"a***b":              "a_b",
		"---":                "---",
		"café au lait":       "caf_au_lait",
		"/../../etc/passwd":  "etc_passwd",
		strings.Repeat("a", 80): strings.Repeat("a", 50),
	}
	for seed, want := range cases {
		assert.Equal(t, want, SanitizeSeed(seed), "seed %q", seed)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	st := testStore(t)
	snap := testSnapshot("coffee beans", "2026-08-25")
	require.NoError(t, st.Save(snap))

	assert.FileExists(t, filepath.Join(st.Dir(), "2026-08-25_coffee_beans.json"))
	assert.True(t, st.Exists("coffee beans", "2026-08-25"))

	got, err := st.Load("coffee beans", "2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, snap.Metadata.RunID, got.Metadata.RunID)
	assert.Equal(t, snap.QueryResults, got.QueryResults)
	assert.Equal(t, 3, got.Statistics.UniqueSuggestions)
}

func TestSave_SameDayOverwrites(t *testing.T) {
	st := testStore(t)
	first := testSnapshot("tea", "2026-08-25")
	require.NoError(t, st.Save(first))

	second := testSnapshot("tea", "2026-08-25")
	require.NoError(t, st.Save(second))

	got, err := st.Load("tea", "2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, second.Metadata.RunID, got.Metadata.RunID)

	dates, err := st.Dates("tea")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-25"}, dates)
}

func TestLoad_MissingSnapshot(t *testing.T) {
	st := testStore(t)
	_, err := st.Load("ghost", "2026-01-01")
	require.Error(t, err)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "load", perr.Op)
	assert.Contains(t, perr.Path, "ghost")
}

func TestPrevious(t *testing.T) {
	st := testStore(t)
	for _, date := range []string{"2026-08-20", "2026-08-22", "2026-08-24"} {
		require.NoError(t, st.Save(testSnapshot("coffee", date)))
	}
	// Another seed on a nearer date must not leak in.
	require.NoError(t, st.Save(testSnapshot("tea", "2026-08-23")))

	prev, err := st.Previous("coffee", "2026-08-25")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "2026-08-24", prev.Metadata.Date)

	prev, err = st.Previous("coffee", "2026-08-24")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "2026-08-22", prev.Metadata.Date)

	prev, err = st.Previous("coffee", "2026-08-20")
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestHistory_WindowBounds(t *testing.T) {
	st := testStore(t)
	for _, date := range []string{"2026-08-18", "2026-08-20", "2026-08-23", "2026-08-25"} {
		require.NoError(t, st.Save(testSnapshot("coffee", date)))
	}

	history, err := st.History("coffee", "2026-08-25", 7)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2026-08-20", history[0].Metadata.Date)
	assert.Equal(t, "2026-08-25", history[2].Metadata.Date)
}

func TestLatestWithin(t *testing.T) {
	st := testStore(t)
	for _, date := range []string{"2026-08-10", "2026-08-21"} {
		require.NoError(t, st.Save(testSnapshot("coffee", date)))
	}

	got, err := st.LatestWithin("coffee", "2026-08-25", 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2026-08-21", got.Metadata.Date)

	got, err = st.LatestWithin("coffee", "2026-08-25", 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveComparison(t *testing.T) {
	st := testStore(t)
	payload := map[string]any{"new_keywords": []string{"a"}, "change_rate": 12.5}
	require.NoError(t, st.SaveComparison("coffee beans", "2026-08-25", payload))

	data, err := os.ReadFile(filepath.Join(st.Dir(), "2026-08-25_coffee_beans_changes.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "change_rate")
}

func TestCleanupOlderThan(t *testing.T) {
	st := testStore(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Save(testSnapshot("coffee", "2026-07-01")))
	require.NoError(t, st.SaveComparison("coffee", "2026-07-01", map[string]int{}))
	require.NoError(t, st.Save(testSnapshot("coffee", "2026-08-24")))
	// Undated files survive cleanup untouched.
	stray := filepath.Join(st.Dir(), "notes.json")
	require.NoError(t, os.WriteFile(stray, []byte("{}"), 0o644))

	removed, err := st.CleanupOlderThan(30, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, st.Exists("coffee", "2026-07-01"))
	assert.True(t, st.Exists("coffee", "2026-08-24"))
	assert.FileExists(t, stray)
}

func TestSnapshotKeywords(t *testing.T) {
	s := New("coffee", "pool", fetch.Results{
		"coffee a": {"Arabica beans", "barista course"},
		"coffee b": {"arabica beans", "cold brew"},
	}, fetch.RunStats{TotalRequests: 2, Successful: 2, TotalSuggestions: 4})

	assert.Equal(t, []string{"Arabica beans", "barista course", "cold brew"}, s.Keywords())
	assert.Equal(t, 3, s.Statistics.UniqueSuggestions)
	assert.InDelta(t, 2.0, s.Statistics.AveragePerQuery, 0.001)

	set := s.KeywordSet()
	assert.Contains(t, set, "arabica beans")
	assert.Len(t, set, 3)
}
