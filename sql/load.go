package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed curated.sql
var curatedSQL string

//go:embed contacts.sql
var contactsSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document_by_filename",
	"select_all_documents",
	"update_document",
	"delete_document",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunk",
	"select_all_chunks",
	"select_chunks_by_similarity",
	"delete_chunk",
}

var CuratedFunctions = []string{
	"init_curated_entries",
	"insert_curated_entry",
	"select_all_curated_entries",
	"delete_curated_entry",
}

var ContactsFunctions = []string{
	"init_oncall_contacts",
	"upsert_oncall_contact",
	"select_oncall_contact",
	"select_all_oncall_contacts",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-registry SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadSql(db, "documents", documentsSQL, DocumentsFunctions, force)
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadSql(db, "chunks", chunksSQL, ChunksFunctions, force)
}

// LoadCuratedSql loads curated-entry SQL functions
func LoadCuratedSql(db *sql.DB, force bool) error {
	return loadSql(db, "curated", curatedSQL, CuratedFunctions, force)
}

// LoadContactsSql loads on-call contact SQL functions
func LoadContactsSql(db *sql.DB, force bool) error {
	return loadSql(db, "contacts", contactsSQL, ContactsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadCuratedSql(db, force); err != nil {
		return err
	}

	if err := LoadContactsSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSql executes the given SQL and verifies the expected functions exist.
// If force is false, loading is skipped when all functions already exist.
func loadSql(db *sql.DB, name string, sqlText string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
