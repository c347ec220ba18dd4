package nlp

// PartOfSpeech is the coarse tag set used by the phrase-shape check.
type PartOfSpeech string

const (
	PosNoun      PartOfSpeech = "noun"
	PosAdjective PartOfSpeech = "adj"
	PosNumber    PartOfSpeech = "num"
	PosOther     PartOfSpeech = "other"
)

// Tagger assigns a part-of-speech tag to each token. Implementations may call
// out to a real morphological analyzer; the pipeline only depends on this
// interface.
type Tagger interface {
	Tag(tokens []string) []PartOfSpeech
}

// LexiconTagger is a small dictionary-backed tagger. Numbers are detected
// syntactically, known adjectives and verbs come from the lexicon, everything
// else is assumed to be a noun. Good enough as an offline default; swap in a
// real tagger for production quality.
type LexiconTagger struct {
	lexicon map[string]PartOfSpeech
}

// NewLexiconTagger creates a tagger backed by the built-in lexicon merged
// with any extra entries.
func NewLexiconTagger(extra map[string]PartOfSpeech) *LexiconTagger {
	lex := make(map[string]PartOfSpeech, len(baseLexicon)+len(extra))
	for w, pos := range baseLexicon {
		lex[w] = pos
	}
	for w, pos := range extra {
		lex[w] = pos
	}
	return &LexiconTagger{lexicon: lex}
}

// Tag implements Tagger.
func (t *LexiconTagger) Tag(tokens []string) []PartOfSpeech {
	tags := make([]PartOfSpeech, len(tokens))
	for i, tok := range tokens {
		switch {
		case IsNumericToken(tok):
			tags[i] = PosNumber
		default:
			if pos, ok := t.lexicon[tok]; ok {
				tags[i] = pos
			} else {
				tags[i] = PosNoun
			}
		}
	}
	return tags
}

var baseLexicon = map[string]PartOfSpeech{
	// common adjectives and participles seen in short expense notes
	"new": PosAdjective, "old": PosAdjective, "big": PosAdjective,
	"small": PosAdjective, "large": PosAdjective, "cheap": PosAdjective,
	"expensive": PosAdjective, "fresh": PosAdjective, "hot": PosAdjective,
	"cold": PosAdjective, "monthly": PosAdjective, "weekly": PosAdjective,
	"yearly": PosAdjective, "annual": PosAdjective, "red": PosAdjective,
	"green": PosAdjective, "black": PosAdjective, "white": PosAdjective,
	"good": PosAdjective, "quick": PosAdjective, "fast": PosAdjective,
	"used": PosAdjective, "broken": PosAdjective, "second": PosAdjective,
	"roasted": PosAdjective, "fried": PosAdjective, "iced": PosAdjective,

	// verbs must not be mistaken for nouns in the phrase check
	"buy": PosOther, "bought": PosOther, "pay": PosOther, "paid": PosOther,
	"spend": PosOther, "spent": PosOther, "get": PosOther, "got": PosOther,
	"ordered": PosOther, "show": PosOther, "tell": PosOther, "give": PosOther,
	"want": PosOther, "need": PosOther, "go": PosOther, "went": PosOther,
}
