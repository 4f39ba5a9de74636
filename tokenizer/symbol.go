package tokenizer

import (
	"cmp"
	"fmt"
	"log/slog"
)

// Symbol is a code in the tokenizer's output alphabet. Codes below
// FirstComposite are raw bytes and are never stored in a Vocabulary. Every
// other code is created by exactly one vocabulary entry, and its value
// doubles as the entry's merge priority: lower codes merge first.
type Symbol uint32

const (
	// NumBytes is the number of leaf symbols.
	NumBytes = 256

	// FirstComposite is the code assigned to the first learned merge.
	FirstComposite Symbol = NumBytes
)

// IsByte reports whether s is a leaf symbol.
func (s Symbol) IsByte() bool {
	return s < FirstComposite
}

// Pair is an ordered pair of adjacent symbols.
type Pair struct {
	Left, Right Symbol
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Left, p.Right)
}

// Compare orders pairs lexicographically by (Left, Right).
func (p Pair) Compare(q Pair) int {
	if c := cmp.Compare(p.Left, q.Left); c != 0 {
		return c
	}
	return cmp.Compare(p.Right, q.Right)
}

func bytesToSymbols(b []byte) []Symbol {
	s := make([]Symbol, len(b))
	for i, c := range b {
		s[i] = Symbol(c)
	}
	return s
}

// symbols defers formatting of a symbol slice until the record is emitted.
type symbols []Symbol

func (s symbols) LogValue() slog.Value {
	return slog.AnyValue(fmt.Sprint([]Symbol(s)))
}
