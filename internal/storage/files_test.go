package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/models"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	return store
}

func writeTemplate(t *testing.T, store *FileStore, key, content string) {
	t.Helper()
	path := filepath.Join(store.BaseDir(), "templates", key+".html")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTemplatePlainMarkup(t *testing.T) {
	store := newTestFileStore(t)
	writeTemplate(t, store, "confirmation", "<p>{{greeting}} [FULLNAME]</p>")

	tmpl, err := store.Load("confirmation")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tmpl.Key != "confirmation" {
		t.Errorf("Expected key 'confirmation', got %q", tmpl.Key)
	}
	if tmpl.Markup != "<p>{{greeting}} [FULLNAME]</p>" {
		t.Errorf("Unexpected markup: %q", tmpl.Markup)
	}
}

func TestLoadTemplateWithFrontmatter(t *testing.T) {
	store := newTestFileStore(t)
	writeTemplate(t, store, "confirmation",
		"---\nsubject: Your booking at {{venue_name}}\nname: Booking confirmation\n---\n\n<p>Hi</p>\n")

	tmpl, err := store.Load("confirmation")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tmpl.Subject != "Your booking at {{venue_name}}" {
		t.Errorf("Unexpected subject: %q", tmpl.Subject)
	}
	if tmpl.Name != "Booking confirmation" {
		t.Errorf("Unexpected name: %q", tmpl.Name)
	}
	if tmpl.Markup != "<p>Hi</p>" {
		t.Errorf("Unexpected markup: %q", tmpl.Markup)
	}
}

func TestLoadTemplateNotFound(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Load("missing")
	if err == nil {
		t.Fatal("Expected error for missing template, got nil")
	}
	if !errors.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
	if errors.GetAppError(err).Code != errors.ErrCodeTemplateNotFound {
		t.Errorf("Expected TEMPLATE_NOT_FOUND, got %s", errors.GetAppError(err).Code)
	}
}

func TestListTemplatesSorted(t *testing.T) {
	store := newTestFileStore(t)
	writeTemplate(t, store, "welcome", "<p>b</p>")
	writeTemplate(t, store, "confirmation", "<p>a</p>")

	templates, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("Expected 2 templates, got %d", len(templates))
	}
	if templates[0].Key != "confirmation" || templates[1].Key != "welcome" {
		t.Errorf("Expected key-sorted order, got %q, %q", templates[0].Key, templates[1].Key)
	}
}

func TestVenueSaveLoadRoundTrip(t *testing.T) {
	store := newTestFileStore(t)
	vars := models.Vars{"greeting": "Welcome", "accent": "#336699"}

	if err := store.SaveVenue("SoulBar", vars); err != nil {
		t.Fatalf("SaveVenue failed: %v", err)
	}

	loaded, err := store.LoadVenue("SoulBar")
	if err != nil {
		t.Fatalf("LoadVenue failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, vars) {
		t.Errorf("Round trip mismatch: saved %v, loaded %v", vars, loaded)
	}
}

func TestVenueSaveIsFullReplacement(t *testing.T) {
	store := newTestFileStore(t)

	if err := store.SaveVenue("SoulBar", models.Vars{"greeting": "Welcome", "old": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveVenue("SoulBar", models.Vars{"greeting": "Hi"}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadVenue("SoulBar")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded["old"]; ok {
		t.Error("Save should fully replace the record, stale key survived")
	}
	if loaded["greeting"] != "Hi" {
		t.Errorf("Expected replaced value, got %q", loaded["greeting"])
	}
}

func TestLoadVenueNormalizesScalars(t *testing.T) {
	store := newTestFileStore(t)
	path := filepath.Join(store.BaseDir(), "venues", "SoulBar.json")
	if err := os.WriteFile(path, []byte(`{"greeting":"Welcome","capacity":120}`), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadVenue("SoulBar")
	if err != nil {
		t.Fatalf("LoadVenue failed: %v", err)
	}
	if loaded["capacity"] != "120" {
		t.Errorf("Expected numeric scalar normalized to string, got %q", loaded["capacity"])
	}
}

func TestLoadVenueNotFound(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.LoadVenue("Unknown")
	if err == nil {
		t.Fatal("Expected error for unknown venue, got nil")
	}
	if errors.GetAppError(err).Code != errors.ErrCodeVenueNotFound {
		t.Errorf("Expected VENUE_NOT_FOUND, got %s", errors.GetAppError(err).Code)
	}
}

func TestListVenuesSorted(t *testing.T) {
	store := newTestFileStore(t)
	for _, key := range []string{"Zanzibar", "SoulBar", "Aurora"} {
		if err := store.SaveVenue(key, models.Vars{}); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := store.ListVenues()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Aurora", "SoulBar", "Zanzibar"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Expected %v, got %v", want, keys)
	}
}

func TestLoadSchemaAbsentIsNotAnError(t *testing.T) {
	store := newTestFileStore(t)

	schema, err := store.LoadSchema("confirmation")
	if err != nil {
		t.Fatalf("Schema absence must not be an error, got %v", err)
	}
	if schema != nil {
		t.Errorf("Expected nil schema, got %+v", schema)
	}
}

func TestLoadSchema(t *testing.T) {
	store := newTestFileStore(t)
	content := `fields:
  - key: greeting
    label: Greeting
    kind: text
    required: true
    default: Hello
  - key: logo_url
    label: Logo
    kind: url
`
	path := filepath.Join(store.BaseDir(), "schemas", "confirmation.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	schema, err := store.LoadSchema("confirmation")
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}
	if schema.TemplateKey != "confirmation" {
		t.Errorf("Expected template key set, got %q", schema.TemplateKey)
	}
	if len(schema.Fields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(schema.Fields))
	}
	first := schema.Fields[0]
	if first.Key != "greeting" || first.Kind != models.KindText || !first.Required || first.Default != "Hello" {
		t.Errorf("Unexpected first field: %+v", first)
	}
	if schema.Fields[1].Kind != models.KindURL {
		t.Errorf("Unexpected second field kind: %q", schema.Fields[1].Kind)
	}
}

func TestCheckKeyRejectsTraversal(t *testing.T) {
	store := newTestFileStore(t)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		if _, err := store.Load(key); err == nil {
			t.Errorf("Expected error for unsafe key %q", key)
		}
	}
}
