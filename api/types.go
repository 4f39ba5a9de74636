// Package api holds the request and response types of the bytepair HTTP
// service and a client for it.
package api

import (
	"fmt"

	"github.com/ollama/bytepair/tokenizer"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the bytepair server logs for details"
	}
}

// EncodeRequest is the request passed to [Client.Encode].
type EncodeRequest struct {
	Text string `json:"text"`

	// Raw skips normalization.
	Raw bool `json:"raw,omitempty"`
}

type EncodeResponse struct {
	Symbols []tokenizer.Symbol `json:"symbols"`
}

// DecodeRequest is the request passed to [Client.Decode].
type DecodeRequest struct {
	Symbols []tokenizer.Symbol `json:"symbols"`
}

type DecodeResponse struct {
	Text string `json:"text"`
}

// SpecialRequest is the request passed to [Client.AddSpecial].
type SpecialRequest struct {
	Literal string `json:"literal"`
}

type SpecialResponse struct {
	Symbol tokenizer.Symbol `json:"symbol"`

	// Added is the number of vocabulary entries the literal needed.
	Added int `json:"added"`
}

// TrainRequest is the request passed to [Client.Train]. Size is the target
// vocabulary size, leaf symbols included.
type TrainRequest struct {
	Corpus string `json:"corpus"`
	Size   int    `json:"size"`
}

type TrainResponse struct {
	Size   int `json:"size"`
	Pieces int `json:"pieces"`
}

type Entry struct {
	Symbol tokenizer.Symbol    `json:"symbol"`
	Pair   [2]tokenizer.Symbol `json:"pair"`
}

type Special struct {
	Literal string           `json:"literal"`
	Symbol  tokenizer.Symbol `json:"symbol"`
}

// VocabularyResponse describes the server's tokenizer.
type VocabularyResponse struct {
	Size      int       `json:"size"`
	ChunkSize int       `json:"chunk_size"`
	Entries   []Entry   `json:"entries,omitempty"`
	Specials  []Special `json:"specials,omitempty"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
