// Package service wires the stores and the render pipeline into the
// operations the HTTP layer exposes.
//
// The pipeline is a linear, synchronous transformation per call:
//
//	(templateKey, venueKey?, overrides?) -> resolve -> compile -> inline -> html
//
// There is no shared mutable state between calls and no caching: every render
// and preview recomputes from scratch, which keeps concurrent calls fully
// independent. The only mutable path is SaveVenue, which is last-write-wins
// by contract.
package service

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/inliner"
	"github.com/venuehub/mailforge/internal/models"
	"github.com/venuehub/mailforge/internal/renderer"
	"github.com/venuehub/mailforge/internal/resolver"
	"github.com/venuehub/mailforge/internal/storage"
	"github.com/venuehub/mailforge/internal/validation"
)

// Service provides the render pipeline and store passthroughs.
type Service struct {
	templates storage.TemplateStore
	venues    storage.VenueStore
	schemas   storage.SchemaStore
}

// New creates a service over the given stores.
func New(templates storage.TemplateStore, venues storage.VenueStore, schemas storage.SchemaStore) *Service {
	return &Service{
		templates: templates,
		venues:    venues,
		schemas:   schemas,
	}
}

// Render produces the final inlined HTML for a template and a persisted
// venue, with optional overrides layered on top. Fails with TemplateNotFound
// or VenueNotFound when either key does not resolve; a failure at any stage
// returns no HTML.
func (s *Service) Render(templateKey, venueKey string, overrides models.Vars) (string, error) {
	tmpl, err := s.templates.Load(templateKey)
	if err != nil {
		return "", err
	}

	base, err := s.venues.Load(venueKey)
	if err != nil {
		return "", err
	}

	return s.renderWith(tmpl, base, overrides)
}

// Preview renders without requiring a persisted venue: an empty venueKey
// starts from an empty base mapping and the overrides carry the editor's
// in-flight field values. A non-empty venueKey still has to resolve.
func (s *Service) Preview(templateKey, venueKey string, overrides models.Vars) (string, error) {
	tmpl, err := s.templates.Load(templateKey)
	if err != nil {
		return "", err
	}

	base := models.Vars{}
	if venueKey != "" {
		loaded, err := s.venues.Load(venueKey)
		if err != nil {
			return "", err
		}
		base = loaded
	}

	return s.renderWith(tmpl, base, overrides)
}

// renderWith runs the shared pipeline tail: resolve, apply schema defaults,
// compile, inline.
func (s *Service) renderWith(tmpl *models.Template, base, overrides models.Vars) (string, error) {
	schema, err := s.schemas.Load(tmpl.Key)
	if err != nil {
		return "", err
	}

	vars := resolver.Resolve(base, overrides)
	vars = resolver.ApplyDefaults(schema, vars)

	compiled, err := renderer.Compile(tmpl.Key, tmpl.Markup, vars)
	if err != nil {
		return "", err
	}

	return inliner.Inline(compiled)
}

// GetTemplate returns a template with its markup.
func (s *Service) GetTemplate(key string) (*models.Template, error) {
	return s.templates.Load(key)
}

// ListTemplates returns all templates in stable key order.
func (s *Service) ListTemplates() ([]*models.Template, error) {
	return s.templates.List()
}

// SearchTemplates fuzzy-matches templates by key, name, and description. An
// empty query returns the full list.
func (s *Service) SearchTemplates(query string) ([]*models.Template, error) {
	templates, err := s.templates.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return templates, nil
	}

	var searchStrings []string
	for _, t := range templates {
		searchStrings = append(searchStrings,
			fmt.Sprintf("%s %s %s", t.Key, t.Name, t.Description))
	}

	matches := fuzzy.Find(query, searchStrings)

	var results []*models.Template
	for _, match := range matches {
		results = append(results, templates[match.Index])
	}
	return results, nil
}

// GetSchema returns the schema for a template, or nil when none is declared.
// The template itself must exist: schema absence is only meaningful for a
// real template.
func (s *Service) GetSchema(templateKey string) (*models.Schema, error) {
	if _, err := s.templates.Load(templateKey); err != nil {
		return nil, err
	}
	return s.schemas.Load(templateKey)
}

// GetVenue returns a venue's persisted variable mapping.
func (s *Service) GetVenue(key string) (models.Vars, error) {
	return s.venues.Load(key)
}

// SaveVenue replaces a venue record in full. Unknown keys are created; the
// editor submits the complete desired state, never a partial update.
func (s *Service) SaveVenue(key string, vars models.Vars) error {
	if strings.TrimSpace(key) == "" {
		return errors.InvalidInput("venue key must not be empty")
	}
	if vars == nil {
		vars = models.Vars{}
	}
	return s.venues.Save(key, vars)
}

// ListVenues returns all venue keys.
func (s *Service) ListVenues() ([]string, error) {
	return s.venues.List()
}

// CheckVenue runs the advisory schema check for a venue against a template's
// schema, with optional overrides merged in first so the editor can validate
// unsaved edits. A venue that has never been saved checks against an empty
// base, so the editor can validate before the first save. A template without
// a schema yields no problems.
func (s *Service) CheckVenue(templateKey, venueKey string, overrides models.Vars) ([]validation.Problem, error) {
	base, err := s.venues.Load(venueKey)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		base = models.Vars{}
	}

	schema, err := s.GetSchema(templateKey)
	if err != nil {
		return nil, err
	}

	return validation.Check(schema, resolver.Resolve(base, overrides)), nil
}
