package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"longtail_monitor/internal/shared/logger"
)

const (
	dateFormat    = "2006-01-02"
	changesSuffix = "_changes"
	maxSeedSlug   = 50
)

// PersistenceError wraps a failed store operation with the file it touched.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store persists snapshots and comparison results as JSON files, one pair
// per seed per day. Filenames are {date}_{slug}.json and
// {date}_{slug}_changes.json so a directory listing reads chronologically.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) the snapshot directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Op: "init", Path: dir, Err: err}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (st *Store) Dir() string { return st.dir }

// SanitizeSeed maps a seed to its filename slug: anything outside letters,
// digits and hyphens becomes an underscore, runs collapse to one, edges are
// trimmed, and the slug is capped at 50 characters.
func SanitizeSeed(seed string) string {
	var b strings.Builder
	b.Grow(len(seed))
	lastUnderscore := false
	for _, r := range seed {
		safe := r == '-' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if safe {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	slug := strings.Trim(b.String(), "_")
	if len(slug) > maxSeedSlug {
		slug = strings.Trim(slug[:maxSeedSlug], "_")
	}
	return slug
}

// Save writes the snapshot for its seed and date, overwriting any capture
// already recorded for that day. The write goes through a temp file and
// rename so readers never observe a partial snapshot.
func (st *Store) Save(s *Snapshot) error {
	path := st.snapshotPath(s.Metadata.Seed, s.Metadata.Date)
	if err := st.writeJSON(path, s); err != nil {
		return err
	}
	logger.WithComponent("Snapshot/Store").Info().
		Str("seed", s.Metadata.Seed).
		Str("date", s.Metadata.Date).
		Int("keywords", s.Statistics.UniqueSuggestions).
		Msg("Snapshot saved.")
	return nil
}

// Load reads the snapshot for a seed on a given date. A missing file is an
// error; use Exists to probe.
func (st *Store) Load(seed, date string) (*Snapshot, error) {
	path := st.snapshotPath(seed, date)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &PersistenceError{Op: "decode", Path: path, Err: err}
	}
	return &s, nil
}

// Exists reports whether a snapshot is recorded for the seed on that date.
func (st *Store) Exists(seed, date string) bool {
	_, err := os.Stat(st.snapshotPath(seed, date))
	return err == nil
}

// Dates lists the dates with a recorded snapshot for the seed, ascending.
func (st *Store) Dates(seed string) ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Path: st.dir, Err: err}
	}

	wantSuffix := "_" + SanitizeSeed(seed) + ".json"
	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, wantSuffix) {
			continue
		}
		date := strings.TrimSuffix(name, wantSuffix)
		if _, err := time.Parse(dateFormat, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Previous returns the most recent snapshot recorded strictly before the
// given date, or nil when no earlier capture exists. A first-ever run is
// expected to find nothing, so the nil result is not an error.
func (st *Store) Previous(seed, before string) (*Snapshot, error) {
	dates, err := st.Dates(seed)
	if err != nil {
		return nil, err
	}
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] < before {
			return st.Load(seed, dates[i])
		}
	}
	return nil, nil
}

// LatestWithin returns the most recent snapshot dated within the trailing
// window ending at the given date (inclusive), or nil when the window holds
// no capture.
func (st *Store) LatestWithin(seed, until string, days int) (*Snapshot, error) {
	end, err := time.Parse(dateFormat, until)
	if err != nil {
		return nil, fmt.Errorf("invalid window end date %q: %w", until, err)
	}
	cutoff := end.AddDate(0, 0, -(days - 1)).Format(dateFormat)

	dates, err := st.Dates(seed)
	if err != nil {
		return nil, err
	}
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] <= until && dates[i] >= cutoff {
			return st.Load(seed, dates[i])
		}
	}
	return nil, nil
}

// History loads the snapshots for the seed dated within the trailing window
// ending at the given date, ascending by date.
func (st *Store) History(seed, until string, days int) ([]*Snapshot, error) {
	end, err := time.Parse(dateFormat, until)
	if err != nil {
		return nil, fmt.Errorf("invalid history end date %q: %w", until, err)
	}
	cutoff := end.AddDate(0, 0, -(days - 1)).Format(dateFormat)

	dates, err := st.Dates(seed)
	if err != nil {
		return nil, err
	}

	var history []*Snapshot
	for _, date := range dates {
		if date < cutoff || date > until {
			continue
		}
		s, err := st.Load(seed, date)
		if err != nil {
			return nil, err
		}
		history = append(history, s)
	}
	return history, nil
}

// SaveComparison writes a day-over-day comparison next to its snapshot.
func (st *Store) SaveComparison(seed, date string, result any) error {
	path := filepath.Join(st.dir, date+"_"+SanitizeSeed(seed)+changesSuffix+".json")
	return st.writeJSON(path, result)
}

// CleanupOlderThan deletes snapshot and comparison files whose filename
// date is older than the retention window, returning how many files were
// removed. Files that do not carry a parseable date prefix are left alone.
func (st *Store) CleanupOlderThan(days int, now time.Time) (int, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return 0, &PersistenceError{Op: "cleanup", Path: st.dir, Err: err}
	}
	cutoff := now.UTC().AddDate(0, 0, -days).Format(dateFormat)

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || len(name) < len(dateFormat)+1 {
			continue
		}
		date := name[:len(dateFormat)]
		if _, err := time.Parse(dateFormat, date); err != nil || date >= cutoff {
			continue
		}
		path := filepath.Join(st.dir, name)
		if err := os.Remove(path); err != nil {
			return removed, &PersistenceError{Op: "cleanup", Path: path, Err: err}
		}
		removed++
	}

	if removed > 0 {
		logger.WithComponent("Snapshot/Store").Info().
			Int("removed", removed).
			Str("cutoff", cutoff).
			Msg("Expired snapshot files removed.")
	}
	return removed, nil
}

func (st *Store) snapshotPath(seed, date string) string {
	return filepath.Join(st.dir, date+"_"+SanitizeSeed(seed)+".json")
}

func (st *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Path: path, Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}
