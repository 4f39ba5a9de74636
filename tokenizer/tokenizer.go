// Package tokenizer implements a byte-pair-encoding tokenizer: it learns
// merge rules from a corpus and uses them to convert text to and from
// sequences of symbols.
//
// A Tokenizer performs no locking. Encode and EncodeBytes only read the
// vocabulary and may run concurrently with each other. Decode rebuilds the
// vocabulary's reverse index on demand, and Train, AddSpecial and Load
// grow or replace the vocabulary, so each of those needs exclusive access.
package tokenizer

import (
	"fmt"
	"maps"
	"unicode/utf8"

	"github.com/ollama/bytepair/logutil"
	"github.com/ollama/bytepair/normalize"
)

// DefaultChunkSize bounds the number of bytes merged together by a single
// encode step. Merges never cross a chunk boundary.
const DefaultChunkSize = 4096

type Tokenizer struct {
	vocab      *Vocabulary
	normalizer normalize.Normalizer
	chunkSize  int

	specials map[string]Symbol
}

type Option func(*Tokenizer)

// WithVocabulary starts the tokenizer from an existing vocabulary instead of
// an empty one.
func WithVocabulary(v *Vocabulary) Option {
	return func(t *Tokenizer) {
		t.vocab = v
	}
}

func WithNormalizer(n normalize.Normalizer) Option {
	return func(t *Tokenizer) {
		t.normalizer = n
	}
}

// WithChunkSize sets the encode chunk size in bytes. Values below 1 keep
// the default.
func WithChunkSize(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		vocab:      NewVocabulary(),
		normalizer: normalize.Whitespace{},
		chunkSize:  DefaultChunkSize,
		specials:   make(map[string]Symbol),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Clone returns a tokenizer with its own copy of the vocabulary and special
// token registry. Growing the copy leaves t untouched.
func (t *Tokenizer) Clone() *Tokenizer {
	return &Tokenizer{
		vocab:      t.vocab.Clone(),
		normalizer: t.normalizer,
		chunkSize:  t.chunkSize,
		specials:   maps.Clone(t.specials),
	}
}

func (t *Tokenizer) Vocabulary() *Vocabulary {
	return t.vocab
}

// Size returns the vocabulary size, leaf symbols included.
func (t *Tokenizer) Size() int {
	return t.vocab.Size()
}

func (t *Tokenizer) ChunkSize() int {
	return t.chunkSize
}

// Encode normalizes text and encodes its bytes.
func (t *Tokenizer) Encode(text string) []Symbol {
	ids := t.EncodeBytes([]byte(t.normalizer.Normalize(text)))
	logutil.Trace("encoded", "text", text, "ids", symbols(ids))
	return ids
}

// EncodeBytes encodes b without normalization. The input is split into
// chunks of ChunkSize bytes which are merged independently and
// concatenated in order.
func (t *Tokenizer) EncodeBytes(b []byte) []Symbol {
	ids := make([]Symbol, 0, len(b))
	for start := 0; start < len(b); start += t.chunkSize {
		end := min(start+t.chunkSize, len(b))
		ids = append(ids, t.encodeChunk(b[start:end])...)
	}

	return ids
}

func (t *Tokenizer) encodeChunk(b []byte) []Symbol {
	return mergeHeap(bytesToSymbols(b), t.vocab)
}

// DecodeBytes expands every composite symbol in ids back into leaf symbols
// and returns them as bytes.
func (t *Tokenizer) DecodeBytes(ids []Symbol) ([]byte, error) {
	seq := ids
	for {
		expanded := false
		next := make([]Symbol, 0, len(seq))
		for _, s := range seq {
			if s.IsByte() {
				next = append(next, s)
				continue
			}

			p, ok := t.vocab.Expand(s)
			if !ok {
				return nil, &UnknownSymbolError{Symbol: s}
			}

			next = append(next, p.Left, p.Right)
			expanded = true
		}

		seq = next
		if !expanded {
			break
		}
	}

	b := make([]byte, len(seq))
	for i, s := range seq {
		b[i] = byte(s)
	}

	return b, nil
}

// Decode is DecodeBytes followed by a check that the result is valid UTF-8.
func (t *Tokenizer) Decode(ids []Symbol) (string, error) {
	b, err := t.DecodeBytes(ids)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: decoded %d bytes are not valid UTF-8", ErrInvalidTextEncoding, len(b))
	}

	logutil.Trace("decoded", "text", string(b), "from", symbols(ids))
	return string(b), nil
}
