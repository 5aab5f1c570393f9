package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/models"
)

// FileStore is the file-backed adapter for all three store contracts.
//
// Layout under the root directory:
//
//	templates/<key>.html  markup, optionally preceded by YAML frontmatter
//	venues/<key>.json     flat JSON object of variable values
//	schemas/<key>.yaml    ordered field descriptors for the template
//
// Reads are stateless; venue saves go through an atomic rename so a crashed
// write never leaves a torn record behind.
type FileStore struct {
	rootPath string
}

// NewFileStore creates a file store rooted at rootPath and ensures the
// directory layout exists.
func NewFileStore(rootPath string) (*FileStore, error) {
	if rootPath == "" {
		rootPath = "data"
	}

	s := &FileStore{rootPath: rootPath}
	for _, dir := range []string{
		rootPath,
		filepath.Join(rootPath, "templates"),
		filepath.Join(rootPath, "venues"),
		filepath.Join(rootPath, "schemas"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return s, nil
}

// BaseDir returns the root path of the store.
func (s *FileStore) BaseDir() string {
	return s.rootPath
}

// Load returns the template stored under key.
func (s *FileStore) Load(key string) (*models.Template, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(s.rootPath, "templates", key+".html"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.TemplateNotFound(key)
		}
		return nil, errors.StorageError("load template", err)
	}

	tmpl, err := parseTemplateFile(content)
	if err != nil {
		return nil, errors.StorageError("parse template", err).WithContext("template", key)
	}
	tmpl.Key = key

	return tmpl, nil
}

// List returns all templates sorted by key.
func (s *FileStore) List() ([]*models.Template, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootPath, "templates"))
	if err != nil {
		return nil, errors.StorageError("list templates", err)
	}

	var templates []*models.Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".html")
		tmpl, err := s.Load(key)
		if err != nil {
			// Skip unreadable entries but keep walking
			fmt.Fprintf(os.Stderr, "Warning: failed to load template %s: %v\n", key, err)
			continue
		}
		templates = append(templates, tmpl)
	}

	sort.Slice(templates, func(i, j int) bool { return templates[i].Key < templates[j].Key })
	return templates, nil
}

// LoadVenue returns the variable mapping stored under key.
func (s *FileStore) LoadVenue(key string) (models.Vars, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(s.rootPath, "venues", key+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.VenueNotFound(key)
		}
		return nil, errors.StorageError("load venue", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, errors.StorageError("parse venue", err).WithContext("venue", key)
	}

	vars, err := models.NormalizeVars(raw)
	if err != nil {
		return nil, errors.StorageError("normalize venue", err).WithContext("venue", key)
	}
	return vars, nil
}

// SaveVenue durably replaces the record under key. Unknown keys are created:
// save is an upsert, and the submitted mapping is the complete new state.
func (s *FileStore) SaveVenue(key string, vars models.Vars) error {
	if err := checkKey(key); err != nil {
		return err
	}

	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return errors.StorageError("encode venue", err).WithContext("venue", key)
	}

	path := filepath.Join(s.rootPath, "venues", key+".json")
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.StorageError("write venue", err).WithContext("venue", key)
	}
	return nil
}

// ListVenues returns all venue keys sorted.
func (s *FileStore) ListVenues() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootPath, "venues"))
	if err != nil {
		return nil, errors.StorageError("list venues", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(entry.Name(), ".json"))
	}

	sort.Strings(keys)
	return keys, nil
}

// LoadSchema returns the schema declared for templateKey, or (nil, nil) when
// the template has none.
func (s *FileStore) LoadSchema(templateKey string) (*models.Schema, error) {
	if err := checkKey(templateKey); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(s.rootPath, "schemas", templateKey+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no schema declared; not an error
		}
		return nil, errors.StorageError("load schema", err)
	}

	var schema models.Schema
	if err := yaml.Unmarshal(content, &schema); err != nil {
		return nil, errors.StorageError("parse schema", err).WithContext("template", templateKey)
	}
	schema.TemplateKey = templateKey

	return &schema, nil
}

// venueStore and schemaStore expose the single FileStore under the narrower
// contract names so callers wire interfaces, not the concrete type.

// Venues returns the store viewed as a VenueStore.
func (s *FileStore) Venues() VenueStore { return &fileVenueStore{s} }

// Schemas returns the store viewed as a SchemaStore.
func (s *FileStore) Schemas() SchemaStore { return &fileSchemaStore{s} }

type fileVenueStore struct{ *FileStore }

func (s *fileVenueStore) Load(key string) (models.Vars, error)  { return s.LoadVenue(key) }
func (s *fileVenueStore) Save(key string, v models.Vars) error  { return s.SaveVenue(key, v) }
func (s *fileVenueStore) List() ([]string, error)               { return s.ListVenues() }

type fileSchemaStore struct{ *FileStore }

func (s *fileSchemaStore) Load(key string) (*models.Schema, error) { return s.LoadSchema(key) }

// parseTemplateFile splits optional YAML frontmatter from the markup. A file
// that does not open with a "---" line is taken as pure markup.
func parseTemplateFile(content []byte) (*models.Template, error) {
	var tmpl models.Template

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() || scanner.Text() != "---" {
		tmpl.Markup = string(content)
		return &tmpl, nil
	}

	// Read frontmatter up to the closing delimiter
	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "---" {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	frontmatter := strings.Join(frontmatterLines, "\n")
	if err := yaml.Unmarshal([]byte(frontmatter), &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	var markupLines []string
	for scanner.Scan() {
		markupLines = append(markupLines, scanner.Text())
	}
	tmpl.Markup = strings.TrimLeft(strings.Join(markupLines, "\n"), " \t\n")

	return &tmpl, nil
}

// checkKey rejects keys that would escape the store directories. Keys are
// filesystem-safe identifiers by contract.
func checkKey(key string) error {
	if key == "" {
		return errors.InvalidInput("key must not be empty")
	}
	if strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return errors.InvalidInput(fmt.Sprintf("key %q is not filesystem-safe", key))
	}
	return nil
}
