package database

import (
	"testing"

	"github.com/clinref/clinref/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCuratedNewCuratedDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewCuratedDBHandler", func(t *testing.T) {
		curatedDbHandler, err := NewCuratedDBHandler(database, true)
		assert.NoError(t, err, "Expected NewCuratedDBHandler to not return an error")
		require.NotNil(t, curatedDbHandler, "Expected NewCuratedDBHandler to return a non-nil instance")
		require.NotNil(t, curatedDbHandler.db, "Expected NewCuratedDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewCuratedDBHandler with nil database", func(t *testing.T) {
		_, err := NewCuratedDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating CuratedDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestCuratedInsert(t *testing.T) {
	database := initDB(t)

	curatedDbHandler, err := NewCuratedDBHandler(database, true)
	require.NoError(t, err, "Expected NewCuratedDBHandler to not return an error")

	t.Run("Insert curated entry", func(t *testing.T) {
		entry := &model.CuratedEntry{
			Variants:  []string{"what is the door to balloon target for stemi", "stemi door to balloon time"},
			Answer:    "The door-to-balloon target for STEMI is 90 minutes.",
			QueryType: model.QueryTypeProtocol,
			Source:    "stemi_protocol_2024.pdf",
			Anchors:   []string{"stemi", "balloon"},
			Version:   1,
		}

		err := curatedDbHandler.InsertCuratedEntry(entry)
		assert.NoError(t, err, "Expected InsertCuratedEntry to not return an error")
		assert.NotZero(t, entry.ID, "Expected inserted entry to have an ID")
		assert.NotEmpty(t, entry.RID, "Expected inserted entry to have a RID")
		assert.Len(t, entry.Variants, 2, "Expected variants to round-trip")
		assert.Equal(t, model.QueryTypeProtocol, entry.QueryType, "Expected query type to round-trip")

		// Cleanup
		curatedDbHandler.DeleteCuratedEntry(entry.RID)
	})
}

func TestCuratedSelectAllKeepsInsertionOrder(t *testing.T) {
	database := initDB(t)

	curatedDbHandler, err := NewCuratedDBHandler(database, true)
	require.NoError(t, err)

	first := &model.CuratedEntry{
		Variants:  []string{"first entry"},
		Answer:    "First.",
		QueryType: model.QueryTypeSummary,
		Source:    "a.pdf",
		Version:   1,
	}
	second := &model.CuratedEntry{
		Variants:  []string{"second entry"},
		Answer:    "Second.",
		QueryType: model.QueryTypeSummary,
		Source:    "b.pdf",
		Version:   1,
	}
	require.NoError(t, curatedDbHandler.InsertCuratedEntry(first))
	require.NoError(t, curatedDbHandler.InsertCuratedEntry(second))
	defer curatedDbHandler.DeleteCuratedEntry(first.RID)
	defer curatedDbHandler.DeleteCuratedEntry(second.RID)

	entries, err := curatedDbHandler.SelectAllCuratedEntries()
	assert.NoError(t, err, "Expected SelectAllCuratedEntries to not return an error")
	require.GreaterOrEqual(t, len(entries), 2)

	// Insertion order is the lookup tie-break, so it must survive the round trip
	firstIdx, secondIdx := -1, -1
	for i, entry := range entries {
		switch entry.RID {
		case first.RID:
			firstIdx = i
		case second.RID:
			secondIdx = i
		}
	}
	require.NotEqual(t, -1, firstIdx, "Expected the first entry in the result")
	require.NotEqual(t, -1, secondIdx, "Expected the second entry in the result")
	assert.Less(t, firstIdx, secondIdx, "Expected entries in insertion order")
}

func TestCuratedDelete(t *testing.T) {
	database := initDB(t)

	curatedDbHandler, err := NewCuratedDBHandler(database, true)
	require.NoError(t, err)

	entry := &model.CuratedEntry{
		Variants:  []string{"to delete"},
		Answer:    "Gone soon.",
		QueryType: model.QueryTypeSummary,
		Source:    "c.pdf",
		Version:   1,
	}
	require.NoError(t, curatedDbHandler.InsertCuratedEntry(entry))

	err = curatedDbHandler.DeleteCuratedEntry(entry.RID)
	assert.NoError(t, err, "Expected DeleteCuratedEntry to not return an error")

	entries, err := curatedDbHandler.SelectAllCuratedEntries()
	require.NoError(t, err)
	for _, remaining := range entries {
		assert.NotEqual(t, entry.RID, remaining.RID, "Expected the deleted entry to be gone")
	}
}
