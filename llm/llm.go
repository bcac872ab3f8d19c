// Package llm defines the language model boundary of the pipeline. The
// backend is modeled as a pure function of (prompt, decoding config) so tests
// substitute fakes without depending on actual model behavior.
package llm

import "context"

// DecodingConfig controls sampling. The pipeline always requests
// deterministic decoding; the zero temperature is intentional.
type DecodingConfig struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop,omitempty"`
	MaxTokens   int      `json:"max_tokens"`
}

// DeterministicDecoding returns the decoding configuration used for grounded
// answer synthesis: greedy sampling with a bounded output length.
func DeterministicDecoding(maxTokens int) DecodingConfig {
	return DecodingConfig{
		Temperature: 0,
		TopP:        0.1,
		Stop:        []string{"\n\nQuestion:", "\n\nContext:"},
		MaxTokens:   maxTokens,
	}
}

// GenerateRequest is a single call to the model
type GenerateRequest struct {
	System   string         `json:"system,omitempty"`
	Prompt   string         `json:"prompt"`
	Decoding DecodingConfig `json:"decoding"`
}

// Generator produces text from a language model
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
