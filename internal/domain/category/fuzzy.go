package category

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FuzzyMatch is a category ranked by textual similarity to a candidate label.
type FuzzyMatch struct {
	CategoryID uuid.UUID
	Name       string
	Score      int // 0-100, higher is closer
	Distance   int // Levenshtein edit distance
}

// FuzzyRanker scores a candidate label against category names. It backs the
// last resolution step before the fallback bucket, catching typos and near
// misses the keyword engine cannot.
type FuzzyRanker struct {
	entries []fuzzyEntry
}

type fuzzyEntry struct {
	categoryID uuid.UUID
	name       string
	normalized string
}

// NewFuzzyRanker builds a ranker over the given category set. The "Other"
// bucket is excluded so it never wins on similarity alone.
func NewFuzzyRanker(cats []Category) *FuzzyRanker {
	fr := &FuzzyRanker{entries: make([]fuzzyEntry, 0, len(cats))}
	for _, cat := range cats {
		if cat.IsOther {
			continue
		}
		normalized := strings.ToUpper(normalizeName(cat.Name))
		if normalized == "" {
			continue
		}
		fr.entries = append(fr.entries, fuzzyEntry{
			categoryID: cat.ID,
			name:       cat.Name,
			normalized: normalized,
		})
	}
	return fr
}

// Best returns the closest category scoring at or above threshold, or nil.
func (fr *FuzzyRanker) Best(label string, threshold int) *FuzzyMatch {
	ranked := fr.Rank(label, 1)
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return nil
	}
	return &ranked[0]
}

// Rank scores every category against the label, highest first.
func (fr *FuzzyRanker) Rank(label string, limit int) []FuzzyMatch {
	if len(fr.entries) == 0 {
		return nil
	}

	normalized := strings.ToUpper(normalizeName(label))
	results := make([]FuzzyMatch, 0, len(fr.entries))
	for _, e := range fr.entries {
		results = append(results, FuzzyMatch{
			CategoryID: e.categoryID,
			Name:       e.name,
			Score:      fuzzyScore(normalized, e.normalized),
			Distance:   levenshteinDistance(normalized, e.normalized),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// fuzzyScore rates similarity of two normalized strings on a 0-100 scale:
// exact match, then containment weighted by length ratio, then the better of
// a Levenshtein percentage and a subsequence rank.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}

	if strings.Contains(s1, s2) {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len(s1) / len(s2))
	}

	distance := levenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))
	if maxLen == 0 {
		return 0
	}
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	subsequenceScore := 0
	if rank := fuzzy.RankMatch(s2, s1); rank >= 0 && rank < len(s1) {
		subsequenceScore = 60 - (rank * 40 / len(s1))
	}

	return max(levenshteinScore, subsequenceScore)
}

// levenshteinDistance is the rune-wise edit distance, computed over two
// rolling rows.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len([]rune(s2))
	}
	if len(s2) == 0 {
		return len([]rune(s1))
	}

	r1 := []rune(s1)
	r2 := []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
