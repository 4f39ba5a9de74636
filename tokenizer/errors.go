package tokenizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTrainingTarget is returned by Train when the requested size
	// does not exceed the current vocabulary size.
	ErrInvalidTrainingTarget = errors.New("invalid training target")

	// ErrInsufficientCorpus is returned by Train when the corpus runs out of
	// adjacent pairs before the requested size is reached.
	ErrInsufficientCorpus = errors.New("insufficient corpus")

	// ErrInvalidTextEncoding is returned by Decode when the decoded bytes are
	// not valid UTF-8.
	ErrInvalidTextEncoding = errors.New("invalid text encoding")

	// ErrUnknownSymbol matches every *UnknownSymbolError.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrVocabularyIO wraps failures of the underlying reader or writer.
	ErrVocabularyIO = errors.New("vocabulary i/o error")

	// ErrVocabularyParse wraps structural problems in a persisted vocabulary.
	ErrVocabularyParse = errors.New("malformed vocabulary")
)

// UnknownSymbolError reports a composite symbol with no vocabulary entry,
// usually because the sequence was produced with a different vocabulary.
type UnknownSymbolError struct {
	Symbol Symbol
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %d", e.Symbol)
}

func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}
