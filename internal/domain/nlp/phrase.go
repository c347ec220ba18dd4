package nlp

// phraseShapes are the token-tag sequences accepted as a plausible expense
// note: a bare noun ("groceries"), adjective+noun ("new shoes"), noun+noun
// ("car wash"), noun+number ("bus 2") and adjective+adjective+noun. Order is
// significant; the qualifier always precedes the noun.
var phraseShapes = [][]PartOfSpeech{
	{PosNoun},
	{PosAdjective, PosNoun},
	{PosNoun, PosNoun},
	{PosNoun, PosNumber},
	{PosAdjective, PosAdjective, PosNoun},
}

// MatchesEntryShape reports whether the tagged token sequence has the shape
// of a short noun phrase naming a purchase.
func MatchesEntryShape(tags []PartOfSpeech) bool {
	for _, shape := range phraseShapes {
		if len(shape) != len(tags) {
			continue
		}
		ok := true
		for i, pos := range shape {
			if tags[i] != pos {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
