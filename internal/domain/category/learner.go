package category

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-lens/internal/domain/nlp"
)

// maxReinforcedKeywords caps how many tokens one correction may teach.
const maxReinforcedKeywords = 3

// defaultLearnTimeout bounds the background keyword-learning run.
const defaultLearnTimeout = 30 * time.Second

// KeywordChange is one suggestion from the advisor: attach or detach a
// keyword on a category.
type KeywordChange struct {
	CategoryID uuid.UUID
	Keyword    string
	Remove     bool
}

// KeywordAdvisor proposes keyword changes across the user's whole category
// set. Implemented by the AI collaborator; best-effort by contract.
type KeywordAdvisor interface {
	SuggestKeywords(ctx context.Context, cats []Category) ([]KeywordChange, error)
}

// Learner maintains the learned-keyword associations that sharpen future
// resolution.
type Learner struct {
	store    Store
	advisor  KeywordAdvisor
	resolver *Resolver
	logger   *slog.Logger
	timeout  time.Duration
}

func NewLearner(store Store, advisor KeywordAdvisor, resolver *Resolver, logger *slog.Logger) *Learner {
	return &Learner{
		store:    store,
		advisor:  advisor,
		resolver: resolver,
		logger:   logger,
		timeout:  defaultLearnTimeout,
	}
}

// Reinforce runs when the user manually re-categorizes a recorded entry: up
// to three meaningful tokens from the description become keywords of the
// chosen category. Tokens already associated are skipped.
func (l *Learner) Reinforce(ctx context.Context, userID, categoryID uuid.UUID, description string) error {
	tokens := meaningfulTokens(description)
	if len(tokens) == 0 {
		return nil
	}

	cats, err := l.store.ListActive(ctx, userID)
	if err != nil {
		return err
	}
	target := findByID(cats, categoryID)
	if target == nil {
		return nil
	}

	existing := make(map[string]bool, len(target.Keywords))
	for _, kw := range target.Keywords {
		existing[strings.ToLower(kw)] = true
	}

	added := false
	for _, token := range tokens {
		if existing[token] {
			continue
		}
		if err := l.store.AddKeyword(ctx, categoryID, token); err != nil {
			return err
		}
		existing[token] = true
		added = true
	}

	if added {
		l.resolver.Invalidate(userID)
	}
	return nil
}

// LearnAsync kicks off an advisor pass over the user's categories without
// blocking the caller. Errors are logged, never returned; the category set is
// re-read inside the goroutine so concurrent edits are picked up rather than
// clobbered by a stale snapshot.
func (l *Learner) LearnAsync(userID uuid.UUID) {
	if l.advisor == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if err := l.learn(ctx, userID); err != nil {
			l.logger.Warn("keyword learning failed", "user_id", userID, "error", err)
		}
	}()
}

func (l *Learner) learn(ctx context.Context, userID uuid.UUID) error {
	cats, err := l.store.ListActive(ctx, userID)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return nil
	}

	changes, err := l.advisor.SuggestKeywords(ctx, cats)
	if err != nil {
		return err
	}

	applied := false
	for _, change := range changes {
		keyword := strings.ToLower(strings.TrimSpace(change.Keyword))
		if keyword == "" || findByID(cats, change.CategoryID) == nil {
			continue
		}
		if change.Remove {
			err = l.store.RemoveKeyword(ctx, change.CategoryID, keyword)
		} else {
			err = l.store.AddKeyword(ctx, change.CategoryID, keyword)
		}
		if err != nil {
			return err
		}
		applied = true
	}

	if applied {
		l.resolver.Invalidate(userID)
	}
	return nil
}

// meaningfulTokens picks the description tokens worth learning: normalized,
// longer than three runes, non-numeric, deduplicated, at most three.
func meaningfulTokens(description string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, token := range nlp.Normalize(description) {
		if len([]rune(token)) <= 3 || nlp.IsNumericToken(token) || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
		if len(tokens) == maxReinforcedKeywords {
			break
		}
	}
	return tokens
}
