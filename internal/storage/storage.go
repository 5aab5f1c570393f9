// Package storage defines the store contracts for templates, venue records,
// and schemas, together with the conforming adapters.
//
// The render pipeline never depends on a storage medium: it sees only the
// capability interfaces below (load, save, list). The file-backed adapter in
// files.go is the default; sqlite.go provides a single-file key-value
// alternative. Key-to-single-record correspondence is part of the contract:
// each template, venue, and schema is exactly one record under its key.
package storage

import "github.com/venuehub/mailforge/internal/models"

// TemplateStore resolves template keys to markup. Read-only.
type TemplateStore interface {
	// Load returns the template for key, or a TemplateNotFound error.
	Load(key string) (*models.Template, error)
	// List enumerates all templates in stable (key-sorted) order.
	List() ([]*models.Template, error)
}

// VenueStore resolves venue keys to their persisted variable mappings.
// Save is a full replacement upsert: the caller submits the complete desired
// state, and concurrent saves to the same key are last-write-wins.
type VenueStore interface {
	// Load returns the venue's variable mapping, or a VenueNotFound error.
	Load(key string) (models.Vars, error)
	// Save durably replaces the record under key, creating it if absent.
	Save(key string, vars models.Vars) error
	// List enumerates all venue keys in stable (sorted) order.
	List() ([]string, error)
}

// SchemaStore resolves template keys to optional field schemas. A template
// with no schema yields (nil, nil): absence is a valid outcome, distinct from
// a storage failure.
type SchemaStore interface {
	Load(templateKey string) (*models.Schema, error)
}
