// Package api provides the HTTP surface of mailforge.
//
// SYSTEM ARCHITECTURE ROLE:
// This module exposes the render pipeline and the store passthroughs over
// HTTP. The render route returns finished text/html for mail tooling; the
// /api/v1 routes speak JSON for the venue editor (template listing and
// search, schema retrieval, venue read/save, live preview, advisory
// validation).
//
// ENDPOINT STRUCTURE:
//   - GET  /render/{templateKey}?venue={venueKey}  final inlined HTML
//   - POST /api/v1/preview                         render with overrides
//   - GET  /api/v1/templates                       list / fuzzy search (?q=)
//   - GET  /api/v1/templates/{key}                 metadata + markup
//   - GET  /api/v1/templates/{key}/schema          schema or null
//   - GET  /api/v1/venues                          venue keys
//   - GET  /api/v1/venues/{key}                    venue record
//   - PUT  /api/v1/venues/{key}                    full-replacement save
//   - POST /api/v1/venues/{key}/check              advisory schema check
//   - GET  /api/v1/health                          liveness
//
// JSON responses use a standardized envelope (success, data, message, error,
// timestamp); errors flow through the HTTPErrorHandler so status codes track
// the error taxonomy (not found -> 404, malformed markup -> 422, invalid
// input -> 400).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/models"
	"github.com/venuehub/mailforge/internal/service"
	"github.com/venuehub/mailforge/internal/validation"
)

// Server serves the mailforge HTTP API.
type Server struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	port         int
	server       *http.Server
}

// NewServer creates a new API server instance.
func NewServer(svc *service.Service, port int) *Server {
	return &Server{
		service:      svc,
		errorHandler: errors.NewHTTPErrorHandler(true), // include details in responses
		port:         port,
	}
}

// Router builds the chi router with the full middleware stack. Exposed for
// httptest-based handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware, s.corsMiddleware, s.recoverMiddleware)

	r.Get("/render/{templateKey}", s.handleRender)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/preview", s.handlePreview)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{key}", s.handleGetTemplate)
		r.Get("/templates/{key}/schema", s.handleGetSchema)
		r.Get("/venues", s.handleListVenues)
		r.Get("/venues/{key}", s.handleGetVenue)
		r.Put("/venues/{key}", s.handleSaveVenue)
		r.Post("/venues/{key}/check", s.handleCheckVenue)
		r.Get("/health", s.handleHealth)
	})

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("mailforge API listening on http://localhost:%d", s.port)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests with timing.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s %s - %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// corsMiddleware handles CORS headers for the editor UI.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware converts handler panics into 500 responses.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic in handler: %v", err)
				s.errorHandler.WriteHTTPError(w, errors.InternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// APIResponse represents a standardized API response.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeResponse writes a standardized JSON response.
func (s *Server) writeResponse(w http.ResponseWriter, data any, message string, statusCode int) {
	response := APIResponse{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// handleRender serves the finished email HTML for a template and venue.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	templateKey := chi.URLParam(r, "templateKey")
	venueKey := r.URL.Query().Get("venue")
	if venueKey == "" {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("venue query parameter is required"))
		return
	}

	html, err := s.service.Render(templateKey, venueKey, nil)
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// previewRequest is the editor's live-preview payload. Venue is optional;
// overrides are the in-flight field values.
type previewRequest struct {
	Template  string         `json:"template"`
	Venue     string         `json:"venue,omitempty"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("invalid request body").WithDetails(err.Error()))
		return
	}
	if req.Template == "" {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("template is required"))
		return
	}

	overrides, err := models.NormalizeVars(req.Overrides)
	if err != nil {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("invalid overrides").WithDetails(err.Error()))
		return
	}

	html, err := s.service.Preview(req.Template, req.Venue, overrides)
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}

	s.writeResponse(w, map[string]string{"html": html}, "", http.StatusOK)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.SearchTemplates(r.URL.Query().Get("q"))
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}

	// Listing returns metadata only; markup comes from the single-template
	// route.
	type templateInfo struct {
		Key         string `json:"key"`
		Subject     string `json:"subject,omitempty"`
		Name        string `json:"name,omitempty"`
		Description string `json:"description,omitempty"`
	}
	infos := make([]templateInfo, 0, len(templates))
	for _, t := range templates {
		infos = append(infos, templateInfo{
			Key:         t.Key,
			Subject:     t.Subject,
			Name:        t.Name,
			Description: t.Description,
		})
	}

	s.writeResponse(w, infos, "", http.StatusOK)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.service.GetTemplate(chi.URLParam(r, "key"))
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}
	s.writeResponse(w, tmpl, "", http.StatusOK)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.service.GetSchema(chi.URLParam(r, "key"))
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}
	// schema may be nil: a template without a schema is a valid outcome and
	// serializes as null.
	s.writeResponse(w, schema, "", http.StatusOK)
}

func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	keys, err := s.service.ListVenues()
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	s.writeResponse(w, keys, "", http.StatusOK)
}

func (s *Server) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	vars, err := s.service.GetVenue(chi.URLParam(r, "key"))
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}
	s.writeResponse(w, vars, "", http.StatusOK)
}

func (s *Server) handleSaveVenue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("invalid request body").WithDetails(err.Error()))
		return
	}

	vars, err := models.NormalizeVars(raw)
	if err != nil {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("invalid venue record").WithDetails(err.Error()))
		return
	}

	if err := s.service.SaveVenue(key, vars); err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}

	s.writeResponse(w, vars, "venue saved", http.StatusOK)
}

// checkRequest names the template whose schema the venue should be checked
// against, with optional unsaved edits merged in.
type checkRequest struct {
	Template  string         `json:"template"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

func (s *Server) handleCheckVenue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("invalid request body").WithDetails(err.Error()))
		return
	}
	if req.Template == "" {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("template is required"))
		return
	}

	overrides, err := models.NormalizeVars(req.Overrides)
	if err != nil {
		s.errorHandler.WriteHTTPError(w, errors.InvalidInput("invalid overrides").WithDetails(err.Error()))
		return
	}

	problems, err := s.service.CheckVenue(req.Template, key, overrides)
	if err != nil {
		s.errorHandler.WriteHTTPError(w, err)
		return
	}
	if problems == nil {
		problems = []validation.Problem{}
	}

	s.writeResponse(w, map[string]any{"problems": problems}, "", http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]string{"status": "ok"}, "", http.StatusOK)
}
