package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/clinref/clinref/llm"
	"github.com/clinref/clinref/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testConfig() *model.PipelineConfig {
	cfg := model.DefaultPipelineConfig()
	return &cfg
}

func TestClassifyRules(t *testing.T) {
	gen := &fakeGenerator{response: "SUMMARY"}
	classifier := NewClassifier(testConfig(), gen)

	tests := []struct {
		name     string
		text     string
		expected model.QueryType
	}{
		{"On-call query", "who is on call for cardiology tonight?", model.QueryTypeContact},
		{"Pager query", "what is the pager for the stroke team", model.QueryTypeContact},
		{"Form query", "show me the blood transfusion consent form", model.QueryTypeForm},
		{"Dosage query", "epinephrine dose for anaphylaxis", model.QueryTypeDosage},
		{"Protocol query", "what is the stemi protocol", model.QueryTypeProtocol},
		{"Criteria query", "wells score for pulmonary embolism", model.QueryTypeCriteria},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gen.calls = 0
			classification, err := classifier.Classify(context.Background(), test.text)
			require.NoError(t, err)
			assert.Equal(t, test.expected, classification.Type)
			assert.Equal(t, model.MethodRule, classification.Method)
			assert.Greater(t, classification.Confidence, 0.9)
			assert.Equal(t, 0, gen.calls, "Expected high-confidence rule match to skip the LLM")
		})
	}
}

func TestClassifyPriorityOnEqualConfidence(t *testing.T) {
	classifier := NewClassifier(testConfig(), nil)

	t.Run("Form beats dosage at equal confidence", func(t *testing.T) {
		classification, err := classifier.Classify(context.Background(), "consent form for high dose chemotherapy")
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeForm, classification.Type)
	})

	t.Run("Contact beats form at equal confidence", func(t *testing.T) {
		classification, err := classifier.Classify(context.Background(), "who is on call to sign the consent form")
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeContact, classification.Type)
	})
}

func TestClassifyEmptyQuery(t *testing.T) {
	classifier := NewClassifier(testConfig(), nil)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := classifier.Classify(context.Background(), text)
		assert.ErrorIs(t, err, model.ErrEmptyQuery)
	}
}

func TestClassifyLLM(t *testing.T) {
	t.Run("Ambiguous query goes to the LLM", func(t *testing.T) {
		gen := &fakeGenerator{response: "CRITERIA"}
		classifier := NewClassifier(testConfig(), gen)

		classification, err := classifier.Classify(context.Background(), "can my patient fly home after a pneumothorax")
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeCriteria, classification.Type)
		assert.Equal(t, model.MethodLLM, classification.Method)
		assert.Equal(t, 0.8, classification.Confidence)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("Chatty LLM output still parses", func(t *testing.T) {
		gen := &fakeGenerator{response: "The category is DOSAGE."}
		classifier := NewClassifier(testConfig(), gen)

		classification, err := classifier.Classify(context.Background(), "how strong should the drip be for this patient")
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeDosage, classification.Type)
	})

	t.Run("LLM failure falls back to best rule below threshold", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("connection refused")}
		classifier := NewClassifier(testConfig(), gen)

		classification, err := classifier.Classify(context.Background(), "tell me about sepsis management")
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeSummary, classification.Type)
		assert.Equal(t, model.MethodFallback, classification.Method)
		assert.Equal(t, 0.7, classification.Confidence)
	})

	t.Run("LLM failure with no rule match defaults to summary", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("connection refused")}
		cfg := testConfig()
		classifier := NewClassifier(cfg, gen)

		classification, err := classifier.Classify(context.Background(), "needle decompression landmarks")
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeSummary, classification.Type)
		assert.Equal(t, model.MethodFallback, classification.Method)
		assert.Equal(t, cfg.FallbackConfidence, classification.Confidence)
	})

	t.Run("Unparseable LLM output falls back", func(t *testing.T) {
		gen := &fakeGenerator{response: "I am not sure about this one."}
		classifier := NewClassifier(testConfig(), gen)

		classification, err := classifier.Classify(context.Background(), "needle decompression landmarks")
		require.NoError(t, err)
		assert.Equal(t, model.MethodFallback, classification.Method)
	})
}

func TestClassifyDeterminism(t *testing.T) {
	classifier := NewClassifier(testConfig(), nil)

	first, err := classifier.Classify(context.Background(), "What is the STEMI protocol?")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := classifier.Classify(context.Background(), "what is the stemi  protocol?")
		require.NoError(t, err)
		assert.Equal(t, first.Type, again.Type, "Expected identical classification for equivalent queries")
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestParseQueryType(t *testing.T) {
	t.Run("First type token wins", func(t *testing.T) {
		queryType, ok := parseQueryType("PROTOCOL or maybe SUMMARY")
		require.True(t, ok)
		assert.Equal(t, model.QueryTypeProtocol, queryType)
	})

	t.Run("No token", func(t *testing.T) {
		_, ok := parseQueryType("no idea")
		assert.False(t, ok)
	})

	t.Run("Type token inside a longer word does not match", func(t *testing.T) {
		queryType, ok := parseQueryType("Based on the information provided, the category is DOSAGE")
		require.True(t, ok)
		assert.Equal(t, model.QueryTypeDosage, queryType)
	})

	t.Run("Trailing punctuation is stripped", func(t *testing.T) {
		queryType, ok := parseQueryType("CRITERIA.")
		require.True(t, ok)
		assert.Equal(t, model.QueryTypeCriteria, queryType)
	})
}
