// Package classify assigns one of the six query types to incoming text.
// Classification runs an ordered chain of strategies: anchored rule patterns
// first, the LLM for ambiguous queries, and a rule/summary fallback when the
// LLM is unavailable. LLM failures degrade, they never propagate.
package classify

import (
	"context"
	"strings"

	"github.com/clinref/clinref/llm"
	"github.com/clinref/clinref/model"
)

// Classifier assigns a query type with a confidence and a method tag
type Classifier struct {
	cfg   *model.PipelineConfig
	gen   llm.Generator
	rules []typeRule
}

// NewClassifier creates a classifier. gen may be nil, in which case every
// query below the rule threshold resolves through the fallback strategy.
func NewClassifier(cfg *model.PipelineConfig, gen llm.Generator) *Classifier {
	return &Classifier{
		cfg:   cfg,
		gen:   gen,
		rules: defaultRules(),
	}
}

// Classify assigns a type to the query text. The only error it returns is
// model.ErrEmptyQuery for blank input.
func (c *Classifier) Classify(ctx context.Context, text string) (*model.Classification, error) {
	normalized := normalize(text)
	if normalized == "" {
		return nil, model.ErrEmptyQuery
	}

	ruleMatch := bestRuleMatch(c.rules, normalized)
	if ruleMatch != nil && ruleMatch.Confidence > c.cfg.RuleConfidenceThreshold {
		return ruleMatch, nil
	}

	if c.gen != nil {
		llmMatch, err := c.classifyWithLLM(ctx, normalized)
		if err == nil {
			return llmMatch, nil
		}
	}

	// Fallback: best rule match below the threshold, else SUMMARY
	if ruleMatch != nil {
		return &model.Classification{
			Type:       ruleMatch.Type,
			Confidence: ruleMatch.Confidence,
			Method:     model.MethodFallback,
		}, nil
	}

	return &model.Classification{
		Type:       model.QueryTypeSummary,
		Confidence: c.cfg.FallbackConfidence,
		Method:     model.MethodFallback,
	}, nil
}

const classifySystemPrompt = `You classify questions from clinical staff against a set of hospital reference documents. Reply with exactly one word, the category:
CONTACT - who to call or page, phone numbers, on-call staff
FORM - requests for a specific form, consent document or checklist
PROTOCOL - treatment protocols, clinical pathways, step-by-step management
CRITERIA - decision rules, scores, indications, when to order or admit
DOSAGE - medication doses, routes, frequencies, infusion rates
SUMMARY - general questions asking to explain or summarize a topic

Examples:
"who is on call for cardiology" -> CONTACT
"show me the blood transfusion form" -> FORM
"what is the stemi protocol" -> PROTOCOL
"when do I order a ct for ankle injury" -> CRITERIA
"epinephrine dose for cardiac arrest" -> DOSAGE
"tell me about sepsis management goals" -> SUMMARY`

// classifyWithLLM asks the model for a single category token
func (c *Classifier) classifyWithLLM(ctx context.Context, text string) (*model.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ClassifyTimeout)
	defer cancel()

	response, err := c.gen.Generate(ctx, llm.GenerateRequest{
		System:   classifySystemPrompt,
		Prompt:   text,
		Decoding: llm.DeterministicDecoding(8),
	})
	if err != nil {
		return nil, err
	}

	queryType, ok := parseQueryType(response)
	if !ok {
		return nil, model.ErrLLMUnavailable
	}

	return &model.Classification{
		Type:       queryType,
		Confidence: 0.8,
		Method:     model.MethodLLM,
	}, nil
}

// parseQueryType finds the first query type token in the model output.
// Tokens must stand alone as words; "FORM" inside "INFORMATION" is not a
// category.
func parseQueryType(response string) (model.QueryType, bool) {
	for _, field := range strings.Fields(strings.ToUpper(response)) {
		token := model.QueryType(strings.Trim(field, ".,:;!?\"'()"))
		for _, queryType := range model.AllQueryTypes {
			if token == queryType {
				return queryType, true
			}
		}
	}
	return "", false
}

// normalize lowercases and collapses whitespace
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
