package model

import "errors"

// Sentinel errors for the query pipeline, checked with errors.Is.
var (
	// ErrEmptyQuery is returned when the query text is blank after
	// normalization. It is the only error Process surfaces to the caller.
	ErrEmptyQuery = errors.New("empty query")

	// ErrLLMUnavailable indicates the LLM backend could not be reached
	// within its timeout.
	ErrLLMUnavailable = errors.New("llm backend unavailable")

	// ErrNoDocumentMatch indicates a FORM query could not be resolved to a
	// retrievable document identifier.
	ErrNoDocumentMatch = errors.New("no retrievable document matches")

	// ErrCacheUnavailable indicates the cache backend failed; callers treat
	// it as non-fatal.
	ErrCacheUnavailable = errors.New("cache backend unavailable")
)
