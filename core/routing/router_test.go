package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/clinref/clinref/core/curated"
	"github.com/clinref/clinref/core/retrieval"
	"github.com/clinref/clinref/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContactDirectory struct {
	contacts []*model.Contact
	err      error
}

func (f *fakeContactDirectory) SelectAllContacts() ([]*model.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *model.PipelineConfig {
	cfg := model.DefaultPipelineConfig()
	cfg.DosageTable = []model.DosageGuideline{
		{
			Medication: "epinephrine",
			Indication: "anaphylaxis",
			Dose:       0.3,
			Unit:       "mg",
			Route:      "IM",
			Frequency:  "every 5-15 minutes",
			MinDose:    0.1,
			MaxDose:    0.5,
			Source:     "anaphylaxis_guide.pdf",
		},
	}
	return &cfg
}

func testRouter(cfg *model.PipelineConfig) *Router {
	entries := []*model.CuratedEntry{
		{
			ID:        1,
			Variants:  []string{"what is the door to balloon target for stemi"},
			Answer:    "The door-to-balloon target for STEMI is 90 minutes.",
			QueryType: model.QueryTypeProtocol,
			Source:    "stemi_protocol_2024.pdf",
			Anchors:   []string{"balloon"},
		},
	}
	documents := []*model.Document{
		{ID: 1, Filename: "stemi_protocol_2024.pdf", DisplayName: "STEMI Management Protocol"},
		{ID: 2, Filename: "blood_transfusion_consent.pdf", DisplayName: "Blood Transfusion Consent Form"},
	}
	chunks := []*model.Chunk{
		{ID: 1, DocumentID: 1, Content: "STEMI management: obtain ECG within 10 minutes, aspirin 325 mg, activate the cath lab."},
	}
	store := curated.NewStore(cfg, entries)
	engine := retrieval.NewEngine(cfg, chunks, documents, nil, nil, testLogger())
	contacts := &fakeContactDirectory{contacts: []*model.Contact{
		{Specialty: "cardiology", Name: "Dr. Rivera", Phone: "555-0100"},
	}}
	return NewRouter(cfg, store, engine, contacts, testLogger())
}

func classification(queryType model.QueryType, confidence float64) *model.Classification {
	return &model.Classification{Type: queryType, Confidence: confidence, Method: model.MethodRule}
}

func TestRouteCurated(t *testing.T) {
	router := testRouter(testConfig())

	result, err := router.Route(context.Background(), "what is the door to balloon target for stemi",
		classification(model.QueryTypeProtocol, 0.95))
	require.NoError(t, err)
	assert.Equal(t, RouteCurated, result.Kind)
	assert.Equal(t, "The door-to-balloon target for STEMI is 90 minutes.", result.Answer)
	assert.Equal(t, 1.0, result.Confidence)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "stemi_protocol_2024.pdf", result.Blocks[0].Filename)
}

func TestRouteRerouteGuard(t *testing.T) {
	router := testRouter(testConfig())

	t.Run("Strong curated match of another type re-routes", func(t *testing.T) {
		// Classified SUMMARY with low confidence, but the curated PROTOCOL
		// entry matches the text almost exactly.
		result, err := router.Route(context.Background(), "what is the door to balloon target for stemi",
			classification(model.QueryTypeSummary, 0.5))
		require.NoError(t, err)
		assert.Equal(t, RouteCurated, result.Kind)
		assert.Equal(t, model.QueryTypeProtocol, result.QueryType)
	})

	t.Run("Weak curated match of another type does not re-route", func(t *testing.T) {
		// Shares only the anchor token; score stays below confidence+margin.
		result, err := router.Route(context.Background(), "tell me about balloon angioplasty complications and recovery",
			classification(model.QueryTypeSummary, 0.7))
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeSummary, result.QueryType)
	})
}

func TestRouteForm(t *testing.T) {
	router := testRouter(testConfig())

	t.Run("Form resolves to a registered document", func(t *testing.T) {
		result, err := router.Route(context.Background(), "where is the blood transfusion consent form",
			classification(model.QueryTypeForm, 0.95))
		require.NoError(t, err)
		assert.Equal(t, RouteStructured, result.Kind)
		assert.Contains(t, result.Answer, "Blood Transfusion Consent Form")
		assert.Contains(t, result.Answer, "blood_transfusion_consent.pdf")
		require.Len(t, result.Blocks, 1)
		assert.Equal(t, "blood_transfusion_consent.pdf", result.Blocks[0].Filename)
	})

	t.Run("Unknown form fails explicitly, never a paraphrase", func(t *testing.T) {
		result, err := router.Route(context.Background(), "where is the helicopter transport request form",
			classification(model.QueryTypeForm, 0.95))
		require.NoError(t, err)
		assert.Equal(t, RouteStructured, result.Kind)
		assert.Contains(t, result.Answer, "No matching form")
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], model.ErrNoDocumentMatch.Error())
		assert.Empty(t, result.Blocks)
	})
}

func TestRouteContact(t *testing.T) {
	t.Run("Known specialty answers from the directory", func(t *testing.T) {
		router := testRouter(testConfig())
		result, err := router.Route(context.Background(), "who is on call for cardiology",
			classification(model.QueryTypeContact, 0.95))
		require.NoError(t, err)
		assert.Equal(t, RouteStructured, result.Kind)
		assert.Contains(t, result.Answer, "Dr. Rivera")
		assert.Contains(t, result.Answer, "555-0100")
	})

	t.Run("Directory failure falls back to retrieval", func(t *testing.T) {
		cfg := testConfig()
		router := testRouter(cfg)
		router.contacts = &fakeContactDirectory{err: errors.New("connection refused")}

		result, err := router.Route(context.Background(), "who is on call for cardiology",
			classification(model.QueryTypeContact, 0.95))
		require.NoError(t, err)
		assert.NotEqual(t, RouteStructured, result.Kind, "Expected a directory failure to skip the structured path")
	})
}

func TestRouteDosageTable(t *testing.T) {
	cfg := testConfig()
	cfg.DosageTable = append(cfg.DosageTable, model.DosageGuideline{
		Medication: "epinephrine",
		Indication: "cardiac arrest",
		Dose:       1,
		Unit:       "mg",
		Route:      "IV",
		Frequency:  "every 3-5 minutes",
		MinDose:    0.5,
		MaxDose:    1,
		Source:     "acls_guide.pdf",
	})
	router := testRouter(cfg)

	t.Run("Matching medication and indication answers from the table", func(t *testing.T) {
		result, err := router.Route(context.Background(), "epinephrine dose for anaphylaxis",
			classification(model.QueryTypeDosage, 0.95))
		require.NoError(t, err)
		assert.Equal(t, RouteStructured, result.Kind)
		assert.Contains(t, result.Answer, "0.3 mg")
		assert.Contains(t, result.Answer, "anaphylaxis_guide.pdf")
	})

	t.Run("Indication selects between rows for the same medication", func(t *testing.T) {
		result, err := router.Route(context.Background(), "epinephrine dose for cardiac arrest",
			classification(model.QueryTypeDosage, 0.95))
		require.NoError(t, err)
		assert.Equal(t, RouteStructured, result.Kind)
		assert.Contains(t, result.Answer, "1 mg")
		assert.Contains(t, result.Answer, "acls_guide.pdf")
		assert.NotContains(t, result.Answer, "anaphylaxis",
			"Expected the anaphylaxis row to be skipped for a cardiac arrest query")
	})

	t.Run("Unmatched indication skips the structured path", func(t *testing.T) {
		result, err := router.Route(context.Background(), "epinephrine dose for croup",
			classification(model.QueryTypeDosage, 0.95))
		require.NoError(t, err)
		assert.NotEqual(t, RouteStructured, result.Kind,
			"Expected a query about an uncovered indication to continue past the table")
	})
}

func TestRouteHybrid(t *testing.T) {
	router := testRouter(testConfig())

	result, err := router.Route(context.Background(), "aspirin and cath lab activation for stemi",
		classification(model.QueryTypeProtocol, 0.8))
	require.NoError(t, err)
	assert.Equal(t, RouteHybrid, result.Kind)
	assert.Empty(t, result.Answer, "Expected the hybrid path to leave synthesis to the caller")
	require.NotEmpty(t, result.Blocks)
	assert.Equal(t, "STEMI Management Protocol", result.Blocks[0].DisplayName)
	assert.NotEmpty(t, result.Blocks[0].Content)
}

func TestRouteInsufficient(t *testing.T) {
	cfg := testConfig()
	router := testRouter(cfg)

	result, err := router.Route(context.Background(), "quetzalcoatl feather maintenance",
		classification(model.QueryTypeSummary, 0.3))
	require.NoError(t, err)
	assert.Equal(t, RouteInsufficient, result.Kind)
	assert.Equal(t, cfg.InsufficientMessage, result.Answer)
	assert.Equal(t, cfg.InsufficientConfidence, result.Confidence)
	assert.Empty(t, result.Blocks)
}
