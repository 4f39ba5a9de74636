package tokenizer

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/ollama/bytepair/logutil"
)

// Special is a literal that was forced to have its own symbol.
type Special struct {
	Literal string
	Symbol  Symbol
}

// AddSpecial makes sure the normalized literal encodes to exactly one
// symbol and returns that symbol. It reports false for a literal that
// normalizes to nothing.
//
// If the literal does not already encode to a single symbol, AddSpecial
// repeatedly merges the most frequent pair within the literal's own
// encoding (ties broken as in Train) until one symbol remains. The new
// entries go into the shared vocabulary, so they also apply to any later
// input that contains the same bytes. Calling AddSpecial again with the
// same literal returns the same symbol and adds nothing.
func (t *Tokenizer) AddSpecial(literal string) (Symbol, bool) {
	seq := t.encodeChunk([]byte(t.normalizer.Normalize(literal)))
	if len(seq) == 0 {
		return 0, false
	}

	added := 0
	for len(seq) > 1 {
		best, _, _ := mostFrequentPair(seq)
		s := t.vocab.push(best)
		seq = replacePair(seq, best, s)
		added++
	}

	if added > 0 {
		slog.Debug("added special token", "literal", literal, "symbol", seq[0], "entries", added)
	} else {
		logutil.Trace("special token already present", "literal", literal, "symbol", seq[0])
	}

	t.specials[literal] = seq[0]
	return seq[0], true
}

// Specials returns the literals registered with AddSpecial since the
// tokenizer was created or last loaded, ordered by symbol. The registry is
// not persisted.
func (t *Tokenizer) Specials() []Special {
	specials := make([]Special, 0, len(t.specials))
	for _, literal := range slices.Sorted(maps.Keys(t.specials)) {
		specials = append(specials, Special{Literal: literal, Symbol: t.specials[literal]})
	}

	slices.SortStableFunc(specials, func(a, b Special) int {
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return specials
}
