package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/quote"
	"github.com/Simplici0/vidrieria/internal/validation"
)

type server struct {
	builder *quote.Builder
	quotes  *quote.Service
	log     zerolog.Logger
}

func newServer(b *quote.Builder, svc *quote.Service, log zerolog.Logger) *server {
	return &server{builder: b, quotes: svc, log: log}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))

	r.Get("/catalog", s.handleCatalog)

	r.Route("/items", func(r chi.Router) {
		r.Post("/standard", s.handleStandardItem)
		r.Post("/configured", s.handleConfiguredItem)
		r.Post("/auto", s.handleAutoItem)
	})

	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", s.handleQuotesList)
		r.Post("/", s.handleQuoteCreate)
		r.Get("/summary", s.handleQuotesSummary)
		r.Get("/{id}", s.handleQuoteDetail)
		r.Put("/{id}", s.handleQuoteUpdate)
		r.Post("/{id}/approve", s.handleQuoteApprove)
		r.Post("/{id}/reject", s.handleQuoteReject)
		r.Get("/{id}/export/{format}", s.handleQuoteExport)
	})
	return r
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, quote.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quote.ErrTerminalStatus),
		errors.Is(err, quote.ErrUnpricedItems),
		errors.Is(err, quote.ErrStage),
		errors.Is(err, quote.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, quote.ErrPersistence):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Fields: validation.Fields(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. Malformed bodies are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validation.Errorf("body", "invalid JSON: %v", err)
	}
	return nil
}
