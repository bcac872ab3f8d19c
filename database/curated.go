package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/model"
	"github.com/clinref/clinref/sql"
)

// CuratedDBHandlerFunctions defines the interface for curated entry database operations.
type CuratedDBHandlerFunctions interface {
	InsertCuratedEntry(entry *model.CuratedEntry) error
	SelectAllCuratedEntries() ([]*model.CuratedEntry, error)
	DeleteCuratedEntry(rid uuid.UUID) error
}

// CuratedDBHandler handles the versioned curated fact store
type CuratedDBHandler struct {
	db *helper.Database
}

// NewCuratedDBHandler creates a new curated entries database handler.
// It initializes the database connection and loads curated-entry SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCuratedDBHandler(db *helper.Database, force bool) (*CuratedDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	curatedDbHandler := &CuratedDBHandler{
		db: db,
	}

	err := sql.LoadCuratedSql(curatedDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load curated sql", err)
	}

	err = curatedDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CuratedDBHandler")

	return curatedDbHandler, nil
}

// CreateTable creates the 'curated_entries' table in the database.
// If the table already exists, it does not create it again.
func (h *CuratedDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_curated_entries();`)
	if err != nil {
		log.Panicf("error initializing curated_entries table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table curated_entries")

	return nil
}

// InsertCuratedEntry inserts a new curated entry
func (h *CuratedDBHandler) InsertCuratedEntry(entry *model.CuratedEntry) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_curated_entry($1, $2, $3, $4, $5, $6)`,
		pq.Array(entry.Variants),
		entry.Answer,
		string(entry.QueryType),
		entry.Source,
		pq.Array(entry.Anchors),
		entry.Version,
	)

	err := row.Scan(
		&entry.ID,
		&entry.RID,
		pq.Array(&entry.Variants),
		&entry.Answer,
		&entry.QueryType,
		&entry.Source,
		pq.Array(&entry.Anchors),
		&entry.Version,
		&entry.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectAllCuratedEntries retrieves every curated entry in insertion order.
// Insertion order is the tie-break for equal match scores, so the ordering
// here is load-bearing.
func (h *CuratedDBHandler) SelectAllCuratedEntries() ([]*model.CuratedEntry, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_curated_entries()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.CuratedEntry
	for rows.Next() {
		entry := &model.CuratedEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.RID,
			pq.Array(&entry.Variants),
			&entry.Answer,
			&entry.QueryType,
			&entry.Source,
			pq.Array(&entry.Anchors),
			&entry.Version,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entries, nil
}

// DeleteCuratedEntry deletes a curated entry by RID
func (h *CuratedDBHandler) DeleteCuratedEntry(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_curated_entry($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
