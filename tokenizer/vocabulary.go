package tokenizer

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Entry is a single learned merge rule.
type Entry struct {
	Pair   Pair
	Merged Symbol
}

// Vocabulary holds the learned merge rules. The forward mapping is the only
// source of truth; the reverse index used for decoding is a cache rebuilt
// whenever its version falls behind the forward mapping's.
//
// Entries are dense: the k-th entry added has code FirstComposite+k, and
// both components of every entry are smaller than its code.
type Vocabulary struct {
	merges  map[Pair]Symbol
	version uint64

	reverse        []Pair
	reverseVersion uint64
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{merges: make(map[Pair]Symbol)}
}

// Clone returns an independent copy of v. The reverse index is rebuilt on
// the copy's first Expand.
func (v *Vocabulary) Clone() *Vocabulary {
	return &Vocabulary{merges: maps.Clone(v.merges), version: v.version + 1}
}

// Len returns the number of learned entries.
func (v *Vocabulary) Len() int {
	return len(v.merges)
}

// Size returns the number of symbols in the alphabet, leaves included.
func (v *Vocabulary) Size() int {
	return NumBytes + len(v.merges)
}

// Next returns the code the next entry will receive.
func (v *Vocabulary) Next() Symbol {
	return FirstComposite + Symbol(len(v.merges))
}

// Lookup returns the merged code for p. It only reads the forward mapping
// and is safe for concurrent use as long as nothing mutates v.
func (v *Vocabulary) Lookup(p Pair) (Symbol, bool) {
	s, ok := v.merges[p]
	return s, ok
}

// Add appends a new entry for p and returns its code. Both components must
// already exist and p must not already be merged.
func (v *Vocabulary) Add(p Pair) (Symbol, error) {
	next := v.Next()
	if p.Left >= next || p.Right >= next {
		return 0, fmt.Errorf("pair %s references a symbol not below %d", p, next)
	}

	if s, ok := v.merges[p]; ok {
		return 0, fmt.Errorf("pair %s already merged into %d", p, s)
	}

	return v.push(p), nil
}

// push appends p without validation. Callers guarantee p is new.
func (v *Vocabulary) push(p Pair) Symbol {
	s := v.Next()
	v.merges[p] = s
	v.version++
	return s
}

// Expand returns the pair that s was merged from. It may rebuild the
// reverse index and therefore must not run concurrently with any other
// call on v.
func (v *Vocabulary) Expand(s Symbol) (Pair, bool) {
	if s.IsByte() {
		return Pair{}, false
	}

	reverse := v.reverseIndex()
	i := int(s - FirstComposite)
	if i >= len(reverse) {
		return Pair{}, false
	}

	return reverse[i], true
}

func (v *Vocabulary) reverseIndex() []Pair {
	if v.reverseVersion == v.version && len(v.reverse) == len(v.merges) {
		return v.reverse
	}

	reverse := slices.Grow(v.reverse[:0], len(v.merges))[:len(v.merges)]
	for p, s := range v.merges {
		reverse[s-FirstComposite] = p
	}

	v.reverse = reverse
	v.reverseVersion = v.version
	return v.reverse
}

// Entries returns every entry in ascending code order. It reads only the
// forward mapping.
func (v *Vocabulary) Entries() []Entry {
	entries := make([]Entry, 0, len(v.merges))
	for p, s := range v.merges {
		entries = append(entries, Entry{Pair: p, Merged: s})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Merged, b.Merged)
	})
	return entries
}
