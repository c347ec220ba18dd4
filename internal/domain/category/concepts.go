package category

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

//go:embed concepts.csv
var conceptsCSV []byte

// conceptRow is one line of the embedded concept table: a coarse semantic
// group and its synonym list.
type conceptRow struct {
	Concept  string `csv:"concept"`
	Synonyms string `csv:"synonyms"`
}

// conceptTable maps every synonym (lowercased) to the full synonym set of its
// group, so a lookup by any member yields all siblings.
type conceptTable struct {
	groups map[string][]string
}

var (
	conceptsOnce sync.Once
	concepts     *conceptTable
	conceptsErr  error
)

// loadConcepts parses the embedded table once per process.
func loadConcepts() (*conceptTable, error) {
	conceptsOnce.Do(func() {
		var rows []conceptRow
		if err := gocsv.UnmarshalBytes(conceptsCSV, &rows); err != nil {
			conceptsErr = fmt.Errorf("parse concept table: %w", err)
			return
		}

		table := &conceptTable{groups: make(map[string][]string, len(rows)*8)}
		for _, row := range rows {
			synonyms := strings.Split(row.Synonyms, ";")
			members := make([]string, 0, len(synonyms)+1)
			for _, s := range synonyms {
				s = strings.ToLower(strings.TrimSpace(s))
				if s != "" {
					members = append(members, s)
				}
			}
			key := strings.ToLower(strings.TrimSpace(row.Concept))
			if key != "" && !contains(members, key) {
				members = append(members, key)
			}
			for _, m := range members {
				table.groups[m] = members
			}
		}
		concepts = table
	})
	return concepts, conceptsErr
}

// synonymsFor returns the synonym group the label belongs to, checking the
// whole label first and then its individual words. Nil when the label maps to
// no known group.
func (t *conceptTable) synonymsFor(label string) []string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if group, ok := t.groups[normalized]; ok {
		return group
	}
	for _, word := range strings.Fields(normalized) {
		if group, ok := t.groups[word]; ok {
			return group
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
