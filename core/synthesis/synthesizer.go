// Package synthesis turns retrieved context into answer text via a
// deterministic LLM call. The prompt constrains the model to the supplied
// context only; general medical knowledge not present in context is
// forbidden, and the model must say so when the context does not answer.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/llm"
	"github.com/clinref/clinref/model"
)

// Synthesizer generates grounded answer text from context blocks
type Synthesizer struct {
	cfg *model.PipelineConfig
	gen llm.Generator
}

// NewSynthesizer creates a synthesizer over the given generator
func NewSynthesizer(cfg *model.PipelineConfig, gen llm.Generator) *Synthesizer {
	return &Synthesizer{
		cfg: cfg,
		gen: gen,
	}
}

// Synthesize produces raw answer text for the query from the supplied
// context blocks. Returns model.ErrLLMUnavailable when the backend cannot
// be reached within its timeout.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, queryType model.QueryType, blocks []model.ContextBlock) (string, error) {
	if s.gen == nil {
		return "", model.ErrLLMUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SynthesizeTimeout)
	defer cancel()

	maxTokens := s.cfg.MaxOutputTokens[queryType]
	if maxTokens == 0 {
		maxTokens = 512
	}

	response, err := s.gen.Generate(ctx, llm.GenerateRequest{
		System:   systemPrompt(queryType, s.cfg.InsufficientMessage),
		Prompt:   buildPrompt(text, blocks),
		Decoding: llm.DeterministicDecoding(maxTokens),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", helper.NewError("generate answer", fmt.Errorf("%w: %v", model.ErrLLMUnavailable, err))
	}

	return strings.TrimSpace(response), nil
}

// typeInstructions are the per-type additions to the shared guardrails
var typeInstructions = map[model.QueryType]string{
	model.QueryTypeContact:  "Answer with the contact's role, name and phone number only. Keep it to one or two lines.",
	model.QueryTypeForm:     "Answer with the exact form name and its document filename. Do not describe the form's contents.",
	model.QueryTypeProtocol: "Walk through the protocol steps in order. Keep every timing figure, threshold and contact number exactly as written in the context.",
	model.QueryTypeCriteria: "State each criterion exactly as written in the context, as a list.",
	model.QueryTypeDosage:   "State the dose, route and frequency exactly as written in the context. Never round, convert or adjust a number.",
	model.QueryTypeSummary:  "Summarize what the context says about the topic in a short paragraph.",
}

// systemPrompt builds the strict document-only instruction set for a type
func systemPrompt(queryType model.QueryType, insufficientMessage string) string {
	var sb strings.Builder
	sb.WriteString("You answer questions for clinical staff using ONLY the reference document excerpts provided in the context.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Use only information present in the context. Do not add general medical knowledge.\n")
	sb.WriteString("- Cite the source document by its display name in square brackets after the relevant statement, e.g. [STEMI Protocol].\n")
	sb.WriteString(fmt.Sprintf("- If the context does not answer the question, reply exactly: %s\n", insufficientMessage))
	if instruction, ok := typeInstructions[queryType]; ok {
		sb.WriteString("- ")
		sb.WriteString(instruction)
		sb.WriteString("\n")
	}
	return sb.String()
}

// buildPrompt lays out the context blocks and the question
func buildPrompt(text string, blocks []model.ContextBlock) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, block := range blocks {
		sb.WriteString(fmt.Sprintf("[%s]", block.DisplayName))
		if block.Page != nil {
			sb.WriteString(fmt.Sprintf(" (page %d)", *block.Page))
		}
		sb.WriteString("\n")
		sb.WriteString(block.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(text)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
