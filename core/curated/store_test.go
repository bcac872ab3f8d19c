package curated

import (
	"testing"

	"github.com/clinref/clinref/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *model.PipelineConfig {
	cfg := model.DefaultPipelineConfig()
	return &cfg
}

func testEntries() []*model.CuratedEntry {
	return []*model.CuratedEntry{
		{
			ID:        1,
			Variants:  []string{"what is the door-to-balloon target for stemi", "stemi door to balloon time"},
			Answer:    "The door-to-balloon target for STEMI is 90 minutes.",
			QueryType: model.QueryTypeProtocol,
			Source:    "stemi_protocol_2024.pdf",
			Anchors:   []string{"stemi"},
		},
		{
			ID:        2,
			Variants:  []string{"epinephrine dose for anaphylaxis"},
			Answer:    "Epinephrine for anaphylaxis: 0.3 mg IM.",
			QueryType: model.QueryTypeDosage,
			Source:    "anaphylaxis_guide.pdf",
			Anchors:   []string{"epinephrine", "anaphylaxis"},
		},
		{
			ID:        3,
			Variants:  []string{"epinephrine dose for cardiac arrest"},
			Answer:    "Epinephrine for cardiac arrest: 1 mg IV every 3-5 minutes.",
			QueryType: model.QueryTypeDosage,
			Source:    "acls_guide.pdf",
			Anchors:   []string{"epinephrine", "arrest"},
		},
	}
}

func TestStoreLookup(t *testing.T) {
	store := NewStore(testConfig(), testEntries())

	t.Run("Exact variant match scores full", func(t *testing.T) {
		match := store.Lookup("epinephrine dose for anaphylaxis", model.QueryTypeDosage)
		require.NotNil(t, match)
		assert.Equal(t, int64(2), match.Entry.ID)
		assert.Equal(t, 1.0, match.Score)
		assert.Equal(t, 1.0, match.Confidence)
	})

	t.Run("Paraphrase above threshold matches", func(t *testing.T) {
		match := store.Lookup("what is the stemi door to balloon time", model.QueryTypeProtocol)
		require.NotNil(t, match)
		assert.Equal(t, int64(1), match.Entry.ID)
		assert.GreaterOrEqual(t, match.Score, 0.35)
	})

	t.Run("Anchor token rescues low overlap", func(t *testing.T) {
		match := store.Lookup("stemi pathway quick reference card", model.QueryTypeProtocol)
		require.NotNil(t, match)
		assert.Equal(t, int64(1), match.Entry.ID)
		assert.Less(t, match.Score, 0.35)
	})

	t.Run("Wrong type misses", func(t *testing.T) {
		match := store.Lookup("epinephrine dose for anaphylaxis", model.QueryTypeForm)
		assert.Nil(t, match)
	})

	t.Run("Unrelated query misses", func(t *testing.T) {
		match := store.Lookup("parking validation for visitors", model.QueryTypeProtocol)
		assert.Nil(t, match)
	})

	t.Run("Empty query misses", func(t *testing.T) {
		assert.Nil(t, store.Lookup("", model.QueryTypeProtocol))
		assert.Nil(t, store.Lookup("  ?!  ", model.QueryTypeProtocol))
	})
}

func TestStoreConfidence(t *testing.T) {
	cfg := testConfig()
	store := NewStore(cfg, testEntries())

	match := store.Lookup("what is the stemi door to balloon time", model.QueryTypeProtocol)
	require.NotNil(t, match)
	expected := cfg.CuratedConfidenceBase + match.Score*cfg.CuratedConfidenceSlope
	if expected > 1.0 {
		expected = 1.0
	}
	assert.InDelta(t, expected, match.Confidence, 1e-9)
	assert.LessOrEqual(t, match.Confidence, 1.0)
}

func TestStoreTieDeterminism(t *testing.T) {
	// Two entries matching at the same score: the earlier one must win,
	// every time.
	entries := []*model.CuratedEntry{
		{ID: 10, Variants: []string{"heparin infusion rate"}, QueryType: model.QueryTypeDosage, Anchors: []string{"heparin"}},
		{ID: 11, Variants: []string{"heparin infusion rate"}, QueryType: model.QueryTypeDosage, Anchors: []string{"heparin"}},
	}
	store := NewStore(testConfig(), entries)

	for i := 0; i < 20; i++ {
		match := store.Lookup("heparin infusion rate", model.QueryTypeDosage)
		require.NotNil(t, match)
		assert.Equal(t, int64(10), match.Entry.ID, "Expected ties to resolve to the earliest entry")
	}
}

func TestStoreBestMatchAnyType(t *testing.T) {
	store := NewStore(testConfig(), testEntries())

	match := store.BestMatchAnyType("epinephrine dose for anaphylaxis")
	require.NotNil(t, match)
	assert.Equal(t, model.QueryTypeDosage, match.Entry.QueryType)
	assert.Equal(t, int64(2), match.Entry.ID)
}

func TestStoreReload(t *testing.T) {
	store := NewStore(testConfig(), testEntries())
	assert.Equal(t, 3, store.Len())

	store.Reload(nil)
	assert.Equal(t, 0, store.Len())
	assert.Nil(t, store.Lookup("epinephrine dose for anaphylaxis", model.QueryTypeDosage))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Door-to-Balloon time? (STEMI/MI)")
	assert.True(t, tokens["door"])
	assert.True(t, tokens["to"])
	assert.True(t, tokens["balloon"])
	assert.True(t, tokens["stemi"])
	assert.True(t, tokens["mi"])
	assert.False(t, tokens["(stemi/mi)"])
}
