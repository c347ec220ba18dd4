package category

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
)

// KeywordMatch is a single keyword hit against a candidate label.
type KeywordMatch struct {
	CategoryID uuid.UUID
	Keyword    string // normalized pattern that fired
	Learned    bool   // true when the keyword came from user reinforcement
	Priority   int    // higher wins across all hits
}

// KeywordEngine matches a candidate label against every category keyword in a
// single Aho-Corasick pass. Learned keywords outrank tokens derived from
// category names, and longer patterns outrank shorter ones.
type KeywordEngine struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	metadata [][]KeywordMatch
	mu       sync.RWMutex
}

// NewKeywordEngine builds an engine for the given category set.
func NewKeywordEngine(cats []Category) *KeywordEngine {
	e := &KeywordEngine{}
	e.Build(cats)
	return e
}

// Build reconstructs the matcher. Called whenever the user's category set
// changes. A keyword may belong to several categories; all of its owners are
// grouped under one pattern and the priority rule picks between them.
func (e *KeywordEngine) Build(cats []Category) {
	e.mu.Lock()
	defer e.mu.Unlock()

	patternToIndex := make(map[string]int)
	var patterns []string
	var metadata [][]KeywordMatch

	addPattern := func(pattern string, match KeywordMatch) {
		if idx, exists := patternToIndex[pattern]; exists {
			metadata[idx] = append(metadata[idx], match)
			return
		}
		patternToIndex[pattern] = len(patterns)
		patterns = append(patterns, pattern)
		metadata = append(metadata, []KeywordMatch{match})
	}

	for _, cat := range cats {
		// The "Other" bucket is a fallback, never a keyword target.
		if cat.IsOther {
			continue
		}

		for _, kw := range cat.Keywords {
			pattern := strings.ToUpper(strings.TrimSpace(kw))
			if pattern == "" {
				continue
			}
			addPattern(pattern, KeywordMatch{
				CategoryID: cat.ID,
				Keyword:    pattern,
				Learned:    true,
				Priority:   1000 + len(pattern),
			})
		}

		// Name tokens act as implicit keywords so a bare category name
		// still matches without any learning having happened. Short
		// tokens are skipped: substring matching on them over-fires.
		for _, token := range strings.Fields(normalizeName(cat.Name)) {
			if len([]rune(token)) <= 3 {
				continue
			}
			pattern := strings.ToUpper(token)
			addPattern(pattern, KeywordMatch{
				CategoryID: cat.ID,
				Keyword:    pattern,
				Priority:   len(pattern),
			})
		}
	}

	e.patterns = patterns
	e.metadata = metadata

	if len(patterns) == 0 {
		e.matcher = nil
		return
	}

	bytePatterns := make([][]byte, len(patterns))
	for i, p := range patterns {
		bytePatterns[i] = []byte(p)
	}
	e.matcher = ahocorasick.NewMatcher(bytePatterns)
}

// Match returns the highest-priority keyword hit for the label, or nil when
// nothing fires.
func (e *KeywordEngine) Match(label string) *KeywordMatch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	hits := e.matcher.Match([]byte(strings.ToUpper(label)))
	if len(hits) == 0 {
		return nil
	}

	var best *KeywordMatch
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.metadata) {
			continue
		}
		for i := range e.metadata[idx] {
			match := &e.metadata[idx][i]
			if best == nil || match.Priority > best.Priority {
				copied := *match
				best = &copied
			}
		}
	}
	return best
}

// IsEmpty reports whether the engine has any patterns loaded.
func (e *KeywordEngine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher == nil
}
