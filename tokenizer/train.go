package tokenizer

import (
	"fmt"
	"log/slog"

	"github.com/ollama/bytepair/logutil"
)

// progressInterval is how many merges Train performs between debug logs.
const progressInterval = 500

// TrainProgressFunc is called after every merge Train stages, with the
// number of merges staged so far and the number requested.
type TrainProgressFunc func(done, total int)

// Train grows the vocabulary to size by repeatedly merging the most
// frequent adjacent pair in corpus, and returns the final piece sequence.
//
// Existing merges are applied to the corpus before training starts so a
// pair that is already in the vocabulary is never learned twice. For an
// empty vocabulary this is a no-op and training starts from raw bytes.
//
// New entries are committed only after every merge succeeded: on error the
// vocabulary is left unchanged.
func (t *Tokenizer) Train(corpus []byte, size int) ([]Symbol, error) {
	return t.TrainFunc(corpus, size, nil)
}

// TrainFunc is Train with a progress callback. fn may be nil.
func (t *Tokenizer) TrainFunc(corpus []byte, size int, fn TrainProgressFunc) ([]Symbol, error) {
	current := t.vocab.Size()
	if size <= current {
		return nil, fmt.Errorf("%w: target size %d must exceed current size %d", ErrInvalidTrainingTarget, size, current)
	}

	n := size - current
	slog.Debug("training", "bytes", len(corpus), "merges", n, "from", current)

	seq := Merge(bytesToSymbols(corpus), t.vocab)
	next := t.vocab.Next()

	// every merge removes at least one piece
	if n > len(seq)-1 {
		return nil, fmt.Errorf("%w: %d pieces allow at most %d merges, %d requested", ErrInsufficientCorpus, len(seq), max(len(seq)-1, 0), n)
	}

	staged := make([]Pair, 0, n)
	for len(staged) < n {
		best, count, ok := mostFrequentPair(seq)
		if !ok {
			return nil, fmt.Errorf("%w: no adjacent pairs left after %d of %d merges", ErrInsufficientCorpus, len(staged), n)
		}

		s := next + Symbol(len(staged))
		seq = replacePair(seq, best, s)
		staged = append(staged, best)

		logutil.Trace("merge", "pair", best, "symbol", s, "count", count, "pieces", len(seq))
		if fn != nil {
			fn(len(staged), n)
		}
		if len(staged)%progressInterval == 0 {
			slog.Debug("training progress", "merges", len(staged), "of", n, "pieces", len(seq))
		}
	}

	for _, p := range staged {
		t.vocab.push(p)
	}

	slog.Debug("training complete", "size", t.vocab.Size(), "bytes", len(corpus), "pieces", len(seq))
	return seq, nil
}
