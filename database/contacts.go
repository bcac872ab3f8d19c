package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/model"
	loadSql "github.com/clinref/clinref/sql"
)

// ContactsDBHandlerFunctions defines the interface for contact database operations.
type ContactsDBHandlerFunctions interface {
	UpsertContact(contact *model.Contact) error
	SelectContact(ctx context.Context, specialty string) (*model.Contact, error)
	SelectAllContacts() ([]*model.Contact, error)
}

// ContactsDBHandler handles the on-call contact directory
type ContactsDBHandler struct {
	db *helper.Database
}

// NewContactsDBHandler creates a new contacts database handler.
// It initializes the database connection and loads contact-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewContactsDBHandler(db *helper.Database, force bool) (*ContactsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	contactsDbHandler := &ContactsDBHandler{
		db: db,
	}

	err := loadSql.LoadContactsSql(contactsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load contacts sql", err)
	}

	err = contactsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ContactsDBHandler")

	return contactsDbHandler, nil
}

// CreateTable creates the 'oncall_contacts' table in the database.
// If the table already exists, it does not create it again.
func (h *ContactsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_oncall_contacts();`)
	if err != nil {
		log.Panicf("error initializing oncall_contacts table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table oncall_contacts")

	return nil
}

// UpsertContact inserts or updates the contact for a specialty
func (h *ContactsDBHandler) UpsertContact(contact *model.Contact) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_oncall_contact($1, $2, $3, $4)`,
		contact.Specialty,
		contact.Name,
		contact.Phone,
		contact.Pager,
	)

	err := row.Scan(
		&contact.ID,
		&contact.Specialty,
		&contact.Name,
		&contact.Phone,
		&contact.Pager,
		&contact.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectContact retrieves the on-call contact for a specialty.
// Returns nil without error when no contact is registered.
func (h *ContactsDBHandler) SelectContact(ctx context.Context, specialty string) (*model.Contact, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_oncall_contact($1)`,
		specialty,
	)

	contact := &model.Contact{}
	err := row.Scan(
		&contact.ID,
		&contact.Specialty,
		&contact.Name,
		&contact.Phone,
		&contact.Pager,
		&contact.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return contact, nil
}

// SelectAllContacts retrieves the full on-call directory
func (h *ContactsDBHandler) SelectAllContacts() ([]*model.Contact, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_oncall_contacts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var contacts []*model.Contact
	for rows.Next() {
		contact := &model.Contact{}
		err := rows.Scan(
			&contact.ID,
			&contact.Specialty,
			&contact.Name,
			&contact.Phone,
			&contact.Pager,
			&contact.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		contacts = append(contacts, contact)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return contacts, nil
}
