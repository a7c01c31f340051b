package query

import (
	"fmt"
	"sort"
	"strings"

	"longtail_monitor/internal/shared/logger"
	"longtail_monitor/internal/shared/types"
)

const (
	maxSeedLength  = 100
	maxQueryLength = 150
)

// forbiddenChars break either the endpoint query string or downstream
// report rendering, so seeds carrying them are rejected outright.
var forbiddenChars = []string{"<", ">", `"`, "'", "&", "%"}

// ValidationError describes why a seed was rejected before any network
// activity happened.
type ValidationError struct {
	Seed   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid seed %q: %s", e.Seed, e.Reason)
}

// Validate rejects empty, over-length or markup-bearing seeds.
func Validate(seed string) error {
	trimmed := strings.TrimSpace(seed)
	if trimmed == "" {
		return &ValidationError{Seed: seed, Reason: "seed must not be empty"}
	}
	if len(trimmed) > maxSeedLength {
		return &ValidationError{Seed: seed, Reason: fmt.Sprintf("seed exceeds %d characters", maxSeedLength)}
	}
	for _, ch := range forbiddenChars {
		if strings.Contains(trimmed, ch) {
			return &ValidationError{Seed: seed, Reason: fmt.Sprintf("seed contains forbidden character %q", ch)}
		}
	}
	return nil
}

// Generator expands a seed into the full probe query set. The four
// expansion axes are independently toggleable; with everything disabled
// the output is exactly the bare seed.
type Generator struct {
	singleLetters bool
	doubleLetters bool
	prefix        bool
	suffix        bool
}

// NewGenerator builds a generator from the [search] configuration section.
func NewGenerator(cfg types.SearchConf) *Generator {
	return &Generator{
		singleLetters: cfg.IncludeSingleLetters,
		doubleLetters: cfg.IncludeDoubleLetters,
		prefix:        cfg.IncludePrefix,
		suffix:        cfg.IncludeSuffix,
	}
}

// Generate returns the deduplicated, alphabetically sorted probe queries
// for seed. The bare seed is always included.
func (g *Generator) Generate(seed string) []string {
	seed = strings.TrimSpace(seed)

	queries := []string{seed}
	if g.singleLetters {
		queries = append(queries, g.letterCombos(seed, 1)...)
	}
	if g.doubleLetters {
		queries = append(queries, g.letterCombos(seed, 2)...)
	}

	cleaned := Normalize(queries)
	sort.Strings(cleaned)

	l := logger.WithComponent("Query/Generator")
	l.Debug().Str("seed", seed).Int("count", len(cleaned)).Msg("Generated probe queries.")
	return cleaned
}

// letterCombos produces the suffix/prefix expansions for all letter strings
// of the given width (1 for a-z, 2 for aa-zz).
func (g *Generator) letterCombos(seed string, width int) []string {
	var combos []string
	switch width {
	case 1:
		for c := 'a'; c <= 'z'; c++ {
			combos = append(combos, string(c))
		}
	case 2:
		for c1 := 'a'; c1 <= 'z'; c1++ {
			for c2 := 'a'; c2 <= 'z'; c2++ {
				combos = append(combos, string(c1)+string(c2))
			}
		}
	}

	queries := make([]string, 0, len(combos)*2)
	for _, combo := range combos {
		if g.suffix {
			queries = append(queries, seed+" "+combo)
		}
		if g.prefix {
			queries = append(queries, combo+" "+seed)
		}
	}
	return queries
}

// Normalize trims, collapses internal whitespace, drops empty or over-length
// entries, and deduplicates while preserving first-seen order.
func Normalize(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || len(q) > maxQueryLength {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// Priority buckets, smallest first.
const (
	priorityBase = iota + 1
	prioritySingleSuffix
	prioritySinglePrefix
	priorityDoubleSuffix
	priorityDoublePrefix
	priorityOther
)

// Priority orders queries for optional scheduling: base query first, then
// single-letter expansions, then double-letter, then anything else.
func Priority(q, seed string) int {
	if q == seed {
		return priorityBase
	}
	if rest, ok := strings.CutPrefix(q, seed+" "); ok {
		switch len(rest) {
		case 1:
			return prioritySingleSuffix
		case 2:
			return priorityDoubleSuffix
		}
	}
	if rest, ok := strings.CutSuffix(q, " "+seed); ok {
		switch len(rest) {
		case 1:
			return prioritySinglePrefix
		case 2:
			return priorityDoublePrefix
		}
	}
	return priorityOther
}

// SortByPriority orders queries by Priority, alphabetical within a bucket.
func SortByPriority(queries []string, seed string) {
	sort.SliceStable(queries, func(i, j int) bool {
		pi, pj := Priority(queries[i], seed), Priority(queries[j], seed)
		if pi != pj {
			return pi < pj
		}
		return queries[i] < queries[j]
	})
}
