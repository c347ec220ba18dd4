// Package classify decides whether an incoming message is a new financial
// record or a conversational/reporting request.
package classify

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/ledger-lens/internal/domain/nlp"
)

// Label is the classification outcome for a message.
type Label string

const (
	// LabelRecord marks a message as a new expense/income entry.
	LabelRecord Label = "record"
	// LabelChat marks a message as conversational or a query.
	LabelChat Label = "chat"
)

// Result carries the label, a confidence in [0,1] and the names of the
// heuristic rules that fired, for diagnostics.
type Result struct {
	Label      Label
	Confidence float64
	Indicators []string
}

var numericRe = regexp.MustCompile(`\d`)

// interrogativePrefixes mark a question even without a trailing question mark.
var interrogativePrefixes = []string{
	"what", "why", "how", "when", "where", "who", "which", "whose",
	"can", "could", "should", "would", "will", "do", "does", "did",
	"is", "are", "am", "was", "were",
}

// greetingPhrases are assistant-directed smalltalk markers.
var greetingPhrases = []string{
	"hello", "hi", "hey", "good morning", "good afternoon",
	"good evening", "thanks", "thank you", "please help", "how are you",
}

// commandKeywords route to menus and reports rather than a new entry.
var commandKeywords = []string{
	"report", "statistics", "stats", "settings", "balance", "summary",
	"export", "subscription", "categories", "help", "menu",
}

// purchaseVerbs strongly signal a financial record.
var purchaseVerbs = []string{
	"bought", "paid for", "paid", "spent", "purchased", "ordered",
	"refueled", "topped up", "subscribed",
}

// Classifier labels free-text messages with a rule cascade. The rule order
// is load-bearing: each step returns immediately on match, so reordering
// changes output. Tuned by observation, not by principle.
type Classifier struct {
	tagger nlp.Tagger
}

// NewClassifier creates a classifier using the given part-of-speech tagger
// for the noun-phrase rule.
func NewClassifier(tagger nlp.Tagger) *Classifier {
	return &Classifier{tagger: tagger}
}

// Classify labels the message. It never fails: untaggable or empty input
// falls through to the record-biased default.
func (c *Classifier) Classify(text string) Result {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)
	words := strings.Fields(trimmed)
	padded := paddedWords(lowered)
	endsInQuestion := strings.HasSuffix(trimmed, "?")

	// 1. Question shape.
	if endsInQuestion || startsWithAny(lowered, interrogativePrefixes) {
		return Result{LabelChat, 0.95, []string{"question"}}
	}

	// 2. Greeting / assistant-directed phrase.
	if phrase, ok := containsPhrase(padded, greetingPhrases); ok {
		return Result{LabelChat, 0.9, []string{"greeting:" + phrase}}
	}

	// 3. Command or report keyword.
	if kw, ok := containsPhrase(padded, commandKeywords); ok {
		return Result{LabelChat, 0.85, []string{"command:" + kw}}
	}

	// 4. Purchase verb.
	if verb, ok := containsPhrase(padded, purchaseVerbs); ok {
		return Result{LabelRecord, 0.9, []string{"purchase_verb:" + verb}}
	}

	// 5. Any numeric substring.
	hasNumeric := numericRe.MatchString(trimmed)
	if hasNumeric {
		return Result{LabelRecord, 0.85, []string{"numeric"}}
	}

	// 6. Short noun-phrase shape ("new shoes", "car wash").
	if len(words) <= 4 {
		tokens := nlp.Normalize(trimmed)
		if len(tokens) > 0 && nlp.MatchesEntryShape(c.tagger.Tag(tokens)) {
			return Result{LabelRecord, 0.8, []string{"noun_phrase"}}
		}
	}

	// 7. Very short non-question.
	if len(words) > 0 && len(words) <= 2 && !endsInQuestion {
		return Result{LabelRecord, 0.7, []string{"short_message"}}
	}

	// 8. Long prose without numbers.
	if len(words) > 5 && !hasNumeric {
		return Result{LabelChat, 0.7, []string{"long_no_numeric"}}
	}

	// 9. Bias toward attempting a record rather than dropping a potential
	// expense on the floor.
	return Result{LabelRecord, 0.5, []string{"default"}}
}

func startsWithAny(text string, prefixes []string) bool {
	first, _, _ := strings.Cut(text, " ")
	for _, p := range prefixes {
		if first == p {
			return true
		}
	}
	return false
}

// paddedWords rewrites text so that every word is surrounded by single
// spaces, letting multi-word phrases match on word boundaries.
func paddedWords(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	for _, r := range text {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127 {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

func containsPhrase(padded string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return p, true
		}
	}
	return "", false
}
