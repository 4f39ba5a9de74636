package tokenizer

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
)

func TestSaveLoad(t *testing.T) {
	tok := trained(t, 300)
	tok.AddSpecial("<|endoftext|>")

	var buf bytes.Buffer
	if err := tok.Save(&buf); err != nil {
		t.Fatal(err)
	}

	loaded := New()
	if err := loaded.Load(&buf); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(tok.Vocabulary().Entries(), loaded.Vocabulary().Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	for _, text := range []string{corpus, "<|endoftext|>", "something else entirely"} {
		if diff := cmp.Diff(tok.Encode(text), loaded.Encode(text)); diff != "" {
			t.Errorf("Encode(%q) mismatch (-want +got):\n%s", text, diff)
		}
	}

	if len(loaded.Specials()) != 0 {
		t.Errorf("expected no specials after load, got %v", loaded.Specials())
	}
}

func TestWriteOrder(t *testing.T) {
	tok := trained(t, 270)

	var buf bytes.Buffer
	if _, err := tok.Vocabulary().WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	s := buf.String()
	last := -1
	for _, e := range tok.Vocabulary().Entries() {
		i := strings.Index(s, strconv.Quote(strconv.Itoa(int(e.Merged))))
		if i <= last {
			t.Fatalf("key %d out of order in:\n%s", e.Merged, s)
		}
		last = i
	}

	if !strings.HasSuffix(s, "\n") {
		t.Error("expected a trailing newline")
	}
}

func TestReadVocabulary(t *testing.T) {
	t.Run("any key order", func(t *testing.T) {
		v, err := ReadVocabulary(strings.NewReader(`{"258": [256, 257], "256": [72, 105], "257": [33, 33]}`))
		if err != nil {
			t.Fatal(err)
		}

		want := []Entry{
			{Pair: Pair{72, 105}, Merged: 256},
			{Pair: Pair{33, 33}, Merged: 257},
			{Pair: Pair{256, 257}, Merged: 258},
		}
		if diff := cmp.Diff(want, v.Entries()); diff != "" {
			t.Errorf("entries mismatch (-want +got):\n%s", diff)
		}

		tok := New(WithVocabulary(v))
		got, err := tok.Decode([]Symbol{258})
		if err != nil {
			t.Fatal(err)
		}

		if got != "Hi!!" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		v, err := ReadVocabulary(strings.NewReader(`{}`))
		if err != nil {
			t.Fatal(err)
		}

		if v.Len() != 0 {
			t.Errorf("expected no entries, got %d", v.Len())
		}
	})
}

func TestReadVocabularyErrors(t *testing.T) {
	cases := []struct {
		name, input string
	}{
		{"not json", `merges`},
		{"array", `[[72, 105]]`},
		{"truncated", `{"256": [72, 105]`},
		{"leaf key", `{"72": [1, 2]}`},
		{"non-numeric key", `{"hi": [72, 105]}`},
		{"gap", `{"256": [72, 105], "258": [256, 256]}`},
		{"missing first", `{"257": [72, 105]}`},
		{"one component", `{"256": [72]}`},
		{"three components", `{"256": [72, 105, 33]}`},
		{"negative component", `{"256": [-1, 105]}`},
		{"forward reference", `{"256": [72, 256]}`},
		{"string component", `{"256": ["H", "i"]}`},
		{"duplicate pair", `{"256": [72, 105], "257": [72, 105]}`},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVocabulary(strings.NewReader(tt.input))
			if !errors.Is(err, ErrVocabularyParse) {
				t.Errorf("expected ErrVocabularyParse, got %v", err)
			}
		})
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestVocabularyIO(t *testing.T) {
	tok := trained(t, 260)
	before := tok.Vocabulary().Entries()

	if err := tok.Load(iotest.ErrReader(errors.New("connection reset"))); !errors.Is(err, ErrVocabularyIO) {
		t.Errorf("expected ErrVocabularyIO, got %v", err)
	}

	if err := tok.Load(strings.NewReader(`{"300": [1, 2]}`)); !errors.Is(err, ErrVocabularyParse) {
		t.Errorf("expected ErrVocabularyParse, got %v", err)
	}

	if diff := cmp.Diff(before, tok.Vocabulary().Entries()); diff != "" {
		t.Errorf("failed load changed the vocabulary:\n%s", diff)
	}

	if err := tok.Save(errWriter{}); !errors.Is(err, ErrVocabularyIO) {
		t.Errorf("expected ErrVocabularyIO, got %v", err)
	}
}

func TestSaveLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "nested", "vocab.json")

	tok := New()
	if err := tok.LoadFile(name); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}

	tok = trained(t, 280)
	if err := tok.SaveFile(name); err != nil {
		t.Fatal(err)
	}

	// overwrite in place
	tok.AddSpecial("<|endoftext|>")
	if err := tok.SaveFile(name); err != nil {
		t.Fatal(err)
	}

	loaded := New()
	if err := loaded.LoadFile(name); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(tok.Vocabulary().Entries(), loaded.Vocabulary().Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(name), ".vocab-*"))
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}
