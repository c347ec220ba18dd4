package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// fuzzyRescueThreshold gates the similarity-based last resort: a bleve hit
// only counts when the plain similarity score agrees this strongly.
const fuzzyRescueThreshold = 70

// Resolver maps a candidate label (from the AI parser or a keyword guess)
// onto one of the user's categories. It never fails to produce a category:
// every unmatched label lands in the "Other" bucket, created on demand.
type Resolver struct {
	store  Store
	logger *slog.Logger

	mu     sync.RWMutex
	states map[uuid.UUID]*userState
}

// userState caches the per-user matchers, keyed by a fingerprint of the
// category set so edits invalidate it.
type userState struct {
	fingerprint string
	engine      *KeywordEngine
	ranker      *FuzzyRanker
	index       *SearchIndex
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		states: make(map[uuid.UUID]*userState),
	}
}

// Resolve runs the matching cascade, first hit wins:
//
//  1. exact name match, emoji-stripped and case-folded
//  2. substring match in either direction
//  3. keyword engine (learned keywords, then name tokens)
//  4. concept table (semantic synonym groups, probed in both cases)
//  5. cafe/restaurant override for coffee-adjacent labels
//  6. similarity rescue (bleve ranking confirmed by fuzzy score)
//  7. the "Other" bucket
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, label string) (*Category, error) {
	cats, err := r.store.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	normalized := normalizeName(label)
	if normalized == "" {
		return r.ensureOther(ctx, userID, cats)
	}

	for i := range cats {
		if normalizeName(cats[i].Name) == normalized {
			return &cats[i], nil
		}
	}

	for i := range cats {
		if cats[i].IsOther {
			continue
		}
		catName := normalizeName(cats[i].Name)
		if catName == "" {
			continue
		}
		if strings.Contains(catName, normalized) || strings.Contains(normalized, catName) {
			return &cats[i], nil
		}
	}

	state, err := r.stateFor(userID, cats)
	if err != nil {
		// Matcher construction is best-effort; the cascade still has the
		// concept table and the fallback bucket.
		r.logger.Warn("category matcher rebuild failed", "user_id", userID, "error", err)
		state = nil
	}

	if state != nil {
		if match := state.engine.Match(normalized); match != nil {
			if cat := findByID(cats, match.CategoryID); cat != nil {
				return cat, nil
			}
		}
	}

	if cat := r.conceptMatch(normalized, cats); cat != nil {
		return cat, nil
	}

	if cat := cafeOverride(normalized, cats); cat != nil {
		return cat, nil
	}

	if state != nil {
		if cat := r.similarityRescue(normalized, cats, state); cat != nil {
			return cat, nil
		}
	}

	return r.ensureOther(ctx, userID, cats)
}

// conceptMatch expands the label into its synonym group and looks for a
// category name containing any synonym. Each synonym is probed as-is and
// upper-cased, since case folding of non-Latin scripts differs between the
// table and stored names.
func (r *Resolver) conceptMatch(normalized string, cats []Category) *Category {
	table, err := loadConcepts()
	if err != nil {
		r.logger.Warn("concept table unavailable", "error", err)
		return nil
	}

	group := table.synonymsFor(normalized)
	if group == nil {
		return nil
	}

	for i := range cats {
		if cats[i].IsOther {
			continue
		}
		catName := normalizeName(cats[i].Name)
		catUpper := strings.ToUpper(catName)
		for _, synonym := range group {
			if strings.Contains(catName, synonym) || strings.Contains(catUpper, strings.ToUpper(synonym)) {
				return &cats[i]
			}
		}
	}
	return nil
}

// cafeOverride routes any coffee-rooted label into a cafe or restaurant
// category before the label can fall through to "Other".
func cafeOverride(normalized string, cats []Category) *Category {
	roots := []string{"cafe", "coffee", "кафе", "кофе"}
	matched := false
	for _, root := range roots {
		if strings.Contains(normalized, root) {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	targets := []string{"cafe", "restaurant", "кафе", "ресторан"}
	for i := range cats {
		catName := normalizeName(cats[i].Name)
		for _, target := range targets {
			if strings.Contains(catName, target) {
				return &cats[i]
			}
		}
	}
	return nil
}

// similarityRescue cross-checks the full-text index against the fuzzy
// ranker: the top bleve hit is accepted only when the ranker scores the same
// category above the threshold, so a weak full-text hit cannot hijack the
// fallback. With no bleve hit at all the ranker alone may still rescue a
// close typo.
func (r *Resolver) similarityRescue(normalized string, cats []Category, state *userState) *Category {
	closest := state.ranker.Best(normalized, fuzzyRescueThreshold)
	if closest == nil {
		return nil
	}

	hit, ok, err := state.index.Best(normalized)
	if err != nil {
		r.logger.Warn("category search failed", "error", err)
		return nil
	}
	if ok && hit.CategoryID != closest.CategoryID {
		return nil
	}
	return findByID(cats, closest.CategoryID)
}

// ensureOther returns the user's fallback bucket, creating it when missing.
func (r *Resolver) ensureOther(ctx context.Context, userID uuid.UUID, cats []Category) (*Category, error) {
	for i := range cats {
		if cats[i].IsOther {
			return &cats[i], nil
		}
	}
	for i := range cats {
		if strings.Contains(normalizeName(cats[i].Name), "other") {
			return &cats[i], nil
		}
	}

	other := &Category{UserID: userID, Name: DefaultOtherName, IsOther: true}
	if err := r.store.Create(ctx, other); err != nil {
		return nil, fmt.Errorf("create fallback category: %w", err)
	}
	r.invalidate(userID)
	return other, nil
}

// Invalidate drops the cached matchers for a user. Called by the learner
// after keyword writes.
func (r *Resolver) Invalidate(userID uuid.UUID) {
	r.invalidate(userID)
}

func (r *Resolver) invalidate(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[userID]; ok {
		if state.index != nil {
			_ = state.index.Close()
		}
		delete(r.states, userID)
	}
}

// stateFor returns the cached matchers for the user, rebuilding them when the
// category set has changed since the last call.
func (r *Resolver) stateFor(userID uuid.UUID, cats []Category) (*userState, error) {
	fp := fingerprint(cats)

	r.mu.RLock()
	state, ok := r.states[userID]
	r.mu.RUnlock()
	if ok && state.fingerprint == fp {
		return state, nil
	}

	index, err := NewSearchIndex()
	if err != nil {
		return nil, err
	}
	if err := index.IndexCategories(cats); err != nil {
		_ = index.Close()
		return nil, err
	}

	fresh := &userState{
		fingerprint: fp,
		engine:      NewKeywordEngine(cats),
		ranker:      NewFuzzyRanker(cats),
		index:       index,
	}

	r.mu.Lock()
	if stale, ok := r.states[userID]; ok && stale.index != nil {
		_ = stale.index.Close()
	}
	r.states[userID] = fresh
	r.mu.Unlock()

	return fresh, nil
}

func fingerprint(cats []Category) string {
	var b strings.Builder
	for _, cat := range cats {
		b.WriteString(cat.ID.String())
		b.WriteByte(':')
		b.WriteString(cat.Name)
		for _, kw := range cat.Keywords {
			b.WriteByte(',')
			b.WriteString(kw)
		}
		b.WriteByte(';')
	}
	return b.String()
}

func findByID(cats []Category, id uuid.UUID) *Category {
	for i := range cats {
		if cats[i].ID == id {
			return &cats[i]
		}
	}
	return nil
}
