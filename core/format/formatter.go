// Package format turns raw synthesized text into the final QueryResponse.
// It extracts citations strictly from the context that was actually supplied
// to the synthesizer, enforces dosage safety checks, and decides cache
// eligibility per query type.
package format

import (
	"strings"
	"time"

	"github.com/clinref/clinref/model"
)

// Formatter builds the final response from raw answer text
type Formatter struct {
	cfg *model.PipelineConfig
}

// NewFormatter creates a formatter
func NewFormatter(cfg *model.PipelineConfig) *Formatter {
	return &Formatter{cfg: cfg}
}

// Format builds a QueryResponse from raw answer text and the context it was
// generated from. queryText is the original question, used only to resolve
// which medication a dosage answer refers to. confidence is the upstream
// confidence (classification or curated); the formatter only ever lowers it.
func (f *Formatter) Format(rawText string, queryText string, blocks []model.ContextBlock, queryType model.QueryType, confidence float64) *model.QueryResponse {
	response := &model.QueryResponse{
		Text:       rawText,
		QueryType:  queryType,
		Confidence: clamp01(confidence),
		Sources:    []model.Citation{},
	}

	if f.isInsufficient(rawText) {
		if response.Confidence > f.cfg.InsufficientConfidence {
			response.Confidence = f.cfg.InsufficientConfidence
		}
		return response
	}

	response.Sources = extractCitations(rawText, blocks)

	if queryType == model.QueryTypeDosage {
		warnings, capped := checkDosage(f.cfg.DosageTable, rawText, queryText)
		response.Warnings = append(response.Warnings, warnings...)
		if capped && response.Confidence > f.cfg.DegradedConfidenceCap {
			response.Confidence = f.cfg.DegradedConfidenceCap
		}
	}

	return response
}

// CacheTTL decides cache eligibility for a response type. FORM and CONTACT
// are hardcoded never-cache regardless of configuration; the on-call
// schedule and the live form registry must always be consulted fresh.
func (f *Formatter) CacheTTL(queryType model.QueryType) (time.Duration, bool) {
	if queryType == model.QueryTypeForm || queryType == model.QueryTypeContact {
		return 0, false
	}
	ttl := f.cfg.CacheTTLs[queryType]
	if ttl <= 0 {
		return 0, false
	}
	return ttl, true
}

// isInsufficient reports whether the text is the canonical no-answer message
func (f *Formatter) isInsufficient(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(f.cfg.InsufficientMessage))
}

// extractCitations resolves the sources of a response. A document is cited
// when the text mentions its display name or filename; a mention that does
// not trace back to a supplied block is dropped, never surfaced. When the
// text names no document at all, every supplied block is cited, since all
// of it was the answer's material.
func extractCitations(rawText string, blocks []model.ContextBlock) []model.Citation {
	lower := strings.ToLower(rawText)

	seen := make(map[string]bool)
	var cited []model.Citation
	for _, block := range blocks {
		if seen[block.Filename] {
			continue
		}
		mentioned := (block.DisplayName != "" && strings.Contains(lower, strings.ToLower(block.DisplayName))) ||
			(block.Filename != "" && strings.Contains(lower, strings.ToLower(block.Filename)))
		if mentioned {
			seen[block.Filename] = true
			cited = append(cited, model.Citation{
				DisplayName: block.DisplayName,
				Filename:    block.Filename,
				Page:        block.Page,
			})
		}
	}

	if len(cited) > 0 {
		return cited
	}

	// Nothing mentioned by name: cite all supplied context
	for _, block := range blocks {
		if seen[block.Filename] {
			continue
		}
		seen[block.Filename] = true
		cited = append(cited, model.Citation{
			DisplayName: block.DisplayName,
			Filename:    block.Filename,
			Page:        block.Page,
		})
	}
	if cited == nil {
		cited = []model.Citation{}
	}
	return cited
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
