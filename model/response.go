package model

import "time"

// Citation is a reference from generated text back to a source document that
// was actually supplied as context. Citations are never invented.
type Citation struct {
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	Page        *int   `json:"page,omitempty"`
}

// QueryResponse is the final answer returned for a query. Every failure path
// in the pipeline still terminates in a well-formed QueryResponse.
type QueryResponse struct {
	Text           string        `json:"text"`
	QueryType      QueryType     `json:"query_type"`
	Confidence     float64       `json:"confidence"`
	Sources        []Citation    `json:"sources"`
	Warnings       []string      `json:"warnings,omitempty"`
	CacheHit       bool          `json:"cache_hit"`
	ProcessingTime time.Duration `json:"processing_time"`
}
