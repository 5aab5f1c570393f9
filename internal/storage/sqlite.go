package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/models"
)

// SQLiteStore is a single-file key-value adapter for all three store
// contracts, for deployments that prefer one database file over a directory
// tree. Same contract as FileStore: one record per key, upsert saves,
// last-write-wins.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS templates (
    key         TEXT PRIMARY KEY,
    subject     TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    markup      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS venues (
    key  TEXT PRIMARY KEY,
    vars TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS schemas (
    template_key TEXT PRIMARY KEY,
    fields       TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the database at dataSource and ensures
// the table layout exists. The driver comes from driver_native.go unless the
// cgo_sqlite build tag selects the cgo driver.
func NewSQLiteStore(dataSource string) (*SQLiteStore, error) {
	db, err := openDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the template stored under key.
func (s *SQLiteStore) Load(key string) (*models.Template, error) {
	tmpl := &models.Template{Key: key}
	err := s.db.QueryRow(
		`SELECT subject, name, description, markup FROM templates WHERE key = ?`, key,
	).Scan(&tmpl.Subject, &tmpl.Name, &tmpl.Description, &tmpl.Markup)
	if err == sql.ErrNoRows {
		return nil, errors.TemplateNotFound(key)
	}
	if err != nil {
		return nil, errors.StorageError("load template", err)
	}
	return tmpl, nil
}

// List returns all templates sorted by key.
func (s *SQLiteStore) List() ([]*models.Template, error) {
	rows, err := s.db.Query(
		`SELECT key, subject, name, description, markup FROM templates ORDER BY key`)
	if err != nil {
		return nil, errors.StorageError("list templates", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		tmpl := &models.Template{}
		if err := rows.Scan(&tmpl.Key, &tmpl.Subject, &tmpl.Name, &tmpl.Description, &tmpl.Markup); err != nil {
			return nil, errors.StorageError("scan template", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("list templates", err)
	}
	return templates, nil
}

// SaveTemplate upserts a template record. Used by seeding and tests; the
// render pipeline itself only reads templates.
func (s *SQLiteStore) SaveTemplate(tmpl *models.Template) error {
	_, err := s.db.Exec(
		`INSERT INTO templates (key, subject, name, description, markup)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   subject = excluded.subject,
		   name = excluded.name,
		   description = excluded.description,
		   markup = excluded.markup`,
		tmpl.Key, tmpl.Subject, tmpl.Name, tmpl.Description, tmpl.Markup)
	if err != nil {
		return errors.StorageError("save template", err).WithContext("template", tmpl.Key)
	}
	return nil
}

// LoadVenue returns the variable mapping stored under key.
func (s *SQLiteStore) LoadVenue(key string) (models.Vars, error) {
	var raw string
	err := s.db.QueryRow(`SELECT vars FROM venues WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, errors.VenueNotFound(key)
	}
	if err != nil {
		return nil, errors.StorageError("load venue", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, errors.StorageError("parse venue", err).WithContext("venue", key)
	}

	vars, err := models.NormalizeVars(decoded)
	if err != nil {
		return nil, errors.StorageError("normalize venue", err).WithContext("venue", key)
	}
	return vars, nil
}

// SaveVenue replaces the record under key, creating it if absent.
func (s *SQLiteStore) SaveVenue(key string, vars models.Vars) error {
	data, err := json.Marshal(vars)
	if err != nil {
		return errors.StorageError("encode venue", err).WithContext("venue", key)
	}

	_, err = s.db.Exec(
		`INSERT INTO venues (key, vars) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET vars = excluded.vars`,
		key, string(data))
	if err != nil {
		return errors.StorageError("save venue", err).WithContext("venue", key)
	}
	return nil
}

// ListVenues returns all venue keys sorted.
func (s *SQLiteStore) ListVenues() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM venues ORDER BY key`)
	if err != nil {
		return nil, errors.StorageError("list venues", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.StorageError("scan venue key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("list venues", err)
	}
	return keys, nil
}

// LoadSchema returns the schema declared for templateKey, or (nil, nil) when
// the template has none.
func (s *SQLiteStore) LoadSchema(templateKey string) (*models.Schema, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT fields FROM schemas WHERE template_key = ?`, templateKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil // no schema declared; not an error
	}
	if err != nil {
		return nil, errors.StorageError("load schema", err)
	}

	var fields []models.Field
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, errors.StorageError("parse schema", err).WithContext("template", templateKey)
	}
	return &models.Schema{TemplateKey: templateKey, Fields: fields}, nil
}

// SaveSchema upserts the schema for templateKey. Used by seeding and tests.
func (s *SQLiteStore) SaveSchema(schema *models.Schema) error {
	data, err := json.Marshal(schema.Fields)
	if err != nil {
		return errors.StorageError("encode schema", err).WithContext("template", schema.TemplateKey)
	}

	_, err = s.db.Exec(
		`INSERT INTO schemas (template_key, fields) VALUES (?, ?)
		 ON CONFLICT(template_key) DO UPDATE SET fields = excluded.fields`,
		schema.TemplateKey, string(data))
	if err != nil {
		return errors.StorageError("save schema", err).WithContext("template", schema.TemplateKey)
	}
	return nil
}

// Venues returns the store viewed as a VenueStore.
func (s *SQLiteStore) Venues() VenueStore { return &sqliteVenueStore{s} }

// Schemas returns the store viewed as a SchemaStore.
func (s *SQLiteStore) Schemas() SchemaStore { return &sqliteSchemaStore{s} }

type sqliteVenueStore struct{ *SQLiteStore }

func (s *sqliteVenueStore) Load(key string) (models.Vars, error) { return s.LoadVenue(key) }
func (s *sqliteVenueStore) Save(key string, v models.Vars) error { return s.SaveVenue(key, v) }
func (s *sqliteVenueStore) List() ([]string, error)              { return s.ListVenues() }

type sqliteSchemaStore struct{ *SQLiteStore }

func (s *sqliteSchemaStore) Load(key string) (*models.Schema, error) { return s.LoadSchema(key) }
