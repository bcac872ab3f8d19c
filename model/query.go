package model

import "time"

// QueryType classifies what kind of answer a query needs
type QueryType string

const (
	QueryTypeContact  QueryType = "CONTACT"
	QueryTypeForm     QueryType = "FORM"
	QueryTypeProtocol QueryType = "PROTOCOL"
	QueryTypeCriteria QueryType = "CRITERIA"
	QueryTypeDosage   QueryType = "DOSAGE"
	QueryTypeSummary  QueryType = "SUMMARY"
)

// AllQueryTypes lists every valid query type
var AllQueryTypes = []QueryType{
	QueryTypeContact,
	QueryTypeForm,
	QueryTypeProtocol,
	QueryTypeCriteria,
	QueryTypeDosage,
	QueryTypeSummary,
}

// Valid reports whether t is one of the defined query types
func (t QueryType) Valid() bool {
	for _, qt := range AllQueryTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// ClassificationMethod records which strategy produced a classification
type ClassificationMethod string

const (
	MethodRule     ClassificationMethod = "rule"
	MethodLLM      ClassificationMethod = "llm"
	MethodFallback ClassificationMethod = "fallback"
)

// Query represents a single incoming question. It is transient and never
// persisted beyond logging.
type Query struct {
	Text       string    `json:"text"`
	SessionID  string    `json:"session_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Classification is the result of intent classification. It is computed once
// per query and immutable afterwards.
type Classification struct {
	Type       QueryType            `json:"type"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
}
