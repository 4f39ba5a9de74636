package tokenizer

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ReadVocabulary parses a persisted vocabulary: a JSON object mapping each
// composite code, as a decimal string, to its [left, right] pair. Keys may
// appear in any order but must form the dense range starting at
// FirstComposite.
func ReadVocabulary(r io.Reader) (*Vocabulary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}

	om := orderedmap.New[string, []int64]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVocabularyParse, err)
	}

	entries := make([]Entry, 0, om.Len())
	for kv := om.Oldest(); kv != nil; kv = kv.Next() {
		code, err := strconv.ParseUint(kv.Key, 10, 32)
		if err != nil || Symbol(code) < FirstComposite {
			return nil, fmt.Errorf("%w: key %q is not a composite symbol", ErrVocabularyParse, kv.Key)
		}

		if len(kv.Value) != 2 {
			return nil, fmt.Errorf("%w: symbol %d has %d components, want 2", ErrVocabularyParse, code, len(kv.Value))
		}

		var p [2]Symbol
		for i, c := range kv.Value {
			if c < 0 || c >= int64(code) {
				return nil, fmt.Errorf("%w: symbol %d has component %d, want a value below %d", ErrVocabularyParse, code, c, code)
			}
			p[i] = Symbol(c)
		}

		entries = append(entries, Entry{Pair: Pair{p[0], p[1]}, Merged: Symbol(code)})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Merged, b.Merged)
	})

	v := NewVocabulary()
	for _, e := range entries {
		if e.Merged != v.Next() {
			return nil, fmt.Errorf("%w: expected symbol %d, found %d", ErrVocabularyParse, v.Next(), e.Merged)
		}

		if _, err := v.Add(e.Pair); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVocabularyParse, err)
		}
	}

	v.reverseIndex()
	return v, nil
}

// WriteTo writes v in the format read by ReadVocabulary, keys in ascending
// code order.
func (v *Vocabulary) WriteTo(w io.Writer) (int64, error) {
	om := orderedmap.New[string, [2]Symbol]()
	for _, e := range v.Entries() {
		om.Set(strconv.FormatUint(uint64(e.Merged), 10), [2]Symbol{e.Pair.Left, e.Pair.Right})
	}

	data, err := json.MarshalIndent(om, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}

	n, err := w.Write(append(data, '\n'))
	if err != nil {
		return int64(n), fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}

	return int64(n), nil
}

// Load replaces the tokenizer's vocabulary with the one read from r. On
// error the current vocabulary is kept.
func (t *Tokenizer) Load(r io.Reader) error {
	v, err := ReadVocabulary(r)
	if err != nil {
		return err
	}

	t.vocab = v
	clear(t.specials)
	return nil
}

// Save writes the tokenizer's vocabulary to w.
func (t *Tokenizer) Save(w io.Writer) error {
	_, err := t.vocab.WriteTo(w)
	return err
}

// LoadFile loads the vocabulary stored at name. A missing file is reported
// with an error matching fs.ErrNotExist and leaves the tokenizer unchanged.
func (t *Tokenizer) LoadFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	return t.Load(f)
}

// SaveFile writes the vocabulary to name through a temporary file in the
// same directory, so readers never observe a partial write.
func (t *Tokenizer) SaveFile(name string) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}

	f, err := os.CreateTemp(dir, ".vocab-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}
	defer os.Remove(f.Name())

	if err := t.Save(f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}

	if err := os.Rename(f.Name(), name); err != nil {
		return fmt.Errorf("%w: %w", ErrVocabularyIO, err)
	}

	slog.Debug("saved vocabulary", "path", name, "size", t.Size())
	return nil
}
