package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/models"
	"github.com/venuehub/mailforge/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return New(store, store.Venues(), store.Schemas()), store
}

func writeFixture(t *testing.T, store *storage.FileStore, rel, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(store.BaseDir(), rel), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRenderConfirmationScenario(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}} [FULLNAME]</p>")
	writeFixture(t, store, "venues/SoulBar.json", `{"greeting": "Welcome"}`)

	html, err := svc.Render("confirmation", "SoulBar", nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(html, "<p>Welcome [FULLNAME]</p>") {
		t.Errorf("Expected substituted greeting with untouched placeholder, got:\n%s", html)
	}
}

func TestRenderInlinesStyles(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/styled.html",
		"<html><head><style>p{color:red}</style></head><body><p>{{greeting}}</p></body></html>")
	writeFixture(t, store, "venues/SoulBar.json", `{"greeting": "Hi"}`)

	html, err := svc.Render("styled", "SoulBar", nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(html, `<p style="color:red">Hi</p>`) {
		t.Errorf("Expected inlined style, got:\n%s", html)
	}
	if !strings.Contains(html, "<style>") {
		t.Errorf("Style block should be retained, got:\n%s", html)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "venues/SoulBar.json", `{}`)

	_, err := svc.Render("missing", "SoulBar", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if errors.GetAppError(err).Code != errors.ErrCodeTemplateNotFound {
		t.Errorf("Expected TEMPLATE_NOT_FOUND, got %s", errors.GetAppError(err).Code)
	}
}

func TestRenderUnknownVenueReturnsNoHTML(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}}</p>")

	html, err := svc.Render("confirmation", "Unknown", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if errors.GetAppError(err).Code != errors.ErrCodeVenueNotFound {
		t.Errorf("Expected VENUE_NOT_FOUND, got %s", errors.GetAppError(err).Code)
	}
	if html != "" {
		t.Errorf("Failed render must return no HTML, got %q", html)
	}
}

func TestRenderSyntaxErrorNamesTemplate(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/broken.html", "<p>{{greeting</p>")
	writeFixture(t, store, "venues/SoulBar.json", `{"greeting": "Hi"}`)

	_, err := svc.Render("broken", "SoulBar", nil)
	if err == nil {
		t.Fatal("Expected TemplateSyntax error, got nil")
	}
	appErr := errors.GetAppError(err)
	if appErr.Code != errors.ErrCodeTemplateSyntax {
		t.Errorf("Expected TEMPLATE_SYNTAX, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "broken") {
		t.Errorf("Error should identify the template key: %s", appErr.Message)
	}
}

func TestPreviewOverrideWins(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}}</p>")
	writeFixture(t, store, "venues/SoulBar.json", `{"greeting": "Welcome"}`)

	html, err := svc.Preview("confirmation", "SoulBar", models.Vars{"greeting": "Hi"})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !strings.Contains(html, "<p>Hi</p>") {
		t.Errorf("Override should win over persisted value, got:\n%s", html)
	}
}

func TestPreviewWithoutVenue(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}}{{missing}}</p>")

	html, err := svc.Preview("confirmation", "", models.Vars{"greeting": "Hi"})
	if err != nil {
		t.Fatalf("Preview without venue should work: %v", err)
	}
	if !strings.Contains(html, "<p>Hi</p>") {
		t.Errorf("Expected overrides-only preview, got:\n%s", html)
	}
}

func TestRenderAppliesSchemaDefaults(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}}</p>")
	writeFixture(t, store, "venues/SoulBar.json", `{}`)
	writeFixture(t, store, "schemas/confirmation.yaml",
		"fields:\n  - key: greeting\n    kind: text\n    default: Hello\n")

	html, err := svc.Render("confirmation", "SoulBar", nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(html, "<p>Hello</p>") {
		t.Errorf("Expected schema default to fill absent key, got:\n%s", html)
	}
}

func TestRenderWithoutSchemaSucceeds(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}} [X] [Y]</p>")
	writeFixture(t, store, "venues/SoulBar.json", `{"greeting": "Welcome"}`)

	html, err := svc.Render("confirmation", "SoulBar", nil)
	if err != nil {
		t.Fatalf("Render without schema must succeed: %v", err)
	}
	for _, ph := range []string{"[X]", "[Y]"} {
		if !strings.Contains(html, ph) {
			t.Errorf("Placeholder %s missing from output:\n%s", ph, html)
		}
	}
}

func TestSaveVenueUpsertAndRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	vars := models.Vars{"greeting": "Welcome"}

	// unseen key: save creates the venue
	if err := svc.SaveVenue("NewVenue", vars); err != nil {
		t.Fatalf("Upsert save failed: %v", err)
	}

	loaded, err := svc.GetVenue("NewVenue")
	if err != nil {
		t.Fatalf("GetVenue failed: %v", err)
	}
	if loaded["greeting"] != "Welcome" {
		t.Errorf("Round trip mismatch: %v", loaded)
	}
}

func TestSaveVenueRejectsEmptyKey(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.SaveVenue("  ", models.Vars{}); err == nil {
		t.Error("Expected error for blank venue key")
	}
}

func TestSearchTemplates(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html",
		"---\nname: Booking confirmation\n---\n<p>a</p>")
	writeFixture(t, store, "templates/newsletter.html", "<p>b</p>")

	all, err := svc.SearchTemplates("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("Empty query should return all templates, got %d", len(all))
	}

	results, err := svc.SearchTemplates("booking")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Key != "confirmation" {
		t.Errorf("Expected fuzzy match on name, got %+v", results)
	}
}

func TestGetSchemaRequiresTemplate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetSchema("missing")
	if err == nil {
		t.Fatal("Expected error for schema of unknown template")
	}
	if errors.GetAppError(err).Code != errors.ErrCodeTemplateNotFound {
		t.Errorf("Expected TEMPLATE_NOT_FOUND, got %s", errors.GetAppError(err).Code)
	}
}

func TestCheckVenueReportsProblems(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}}</p>")
	writeFixture(t, store, "venues/SoulBar.json", `{"logo_url": "nope"}`)
	writeFixture(t, store, "schemas/confirmation.yaml",
		"fields:\n  - key: greeting\n    kind: text\n    required: true\n  - key: logo_url\n    kind: url\n")

	problems, err := svc.CheckVenue("confirmation", "SoulBar", nil)
	if err != nil {
		t.Fatalf("CheckVenue failed: %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("Expected 2 problems, got %d: %v", len(problems), problems)
	}

	// overrides fix the record without saving
	problems, err = svc.CheckVenue("confirmation", "SoulBar",
		models.Vars{"greeting": "Hi", "logo_url": "https://example.com/a.png"})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Errorf("Expected no problems after overrides, got %v", problems)
	}
}

func TestCheckVenueBeforeFirstSave(t *testing.T) {
	svc, store := newTestService(t)
	writeFixture(t, store, "templates/confirmation.html", "<p>{{greeting}}</p>")
	writeFixture(t, store, "schemas/confirmation.yaml",
		"fields:\n  - key: greeting\n    kind: text\n    required: true\n")

	// a venue that was never saved checks against an empty base
	problems, err := svc.CheckVenue("confirmation", "NewPlace", nil)
	if err != nil {
		t.Fatalf("CheckVenue failed for unsaved venue: %v", err)
	}
	if len(problems) != 1 || problems[0].Field != "greeting" {
		t.Errorf("Expected required-greeting problem, got %v", problems)
	}

	problems, err = svc.CheckVenue("confirmation", "NewPlace", models.Vars{"greeting": "Hi"})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Errorf("Overrides alone should satisfy the schema, got %v", problems)
	}

	// the template still has to exist
	if _, err := svc.CheckVenue("missing", "NewPlace", nil); !errors.IsNotFound(err) {
		t.Errorf("Expected not-found for unknown template, got %v", err)
	}
}
