package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/export"
	"github.com/Simplici0/vidrieria/internal/quote"
	"github.com/Simplici0/vidrieria/internal/validation"
)

// itemRequest names one line item to build on the server. Exactly one field
// is set.
type itemRequest struct {
	Standard   *quote.StandardRequest `json:"standard,omitempty"`
	Auto       *quote.AutoRequest     `json:"auto,omitempty"`
	Configured *configuredRequest     `json:"configured,omitempty"`
}

type quoteRequest struct {
	Customer        *quote.Customer `json:"customer"`
	Items           []itemRequest   `json:"items"`
	ShippingService string          `json:"shipping_service"`
	ShippingCost    string          `json:"shipping_cost"`
	TravelCost      string          `json:"travel_cost"`
	Seller          string          `json:"seller"`
	ConfirmUnpriced bool            `json:"confirm_unpriced"`
}

// build prices req against the catalog. Prices and flags never come from the
// client.
func (s *server) build(req itemRequest) (quote.LineItem, error) {
	set := 0
	for _, ok := range []bool{req.Standard != nil, req.Auto != nil, req.Configured != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, validation.Errorf("", "exactly one of standard, auto or configured is required")
	}
	switch {
	case req.Standard != nil:
		return s.builder.BuildStandard(*req.Standard)
	case req.Auto != nil:
		return s.builder.BuildAutoDoorOrWindow(*req.Auto)
	default:
		return s.configure(*req.Configured)
	}
}

func (s *server) draft(req quoteRequest) (quote.Draft, error) {
	var v validation.Collector
	d := quote.Draft{
		Customer:        req.Customer,
		ShippingService: req.ShippingService,
		Seller:          req.Seller,
		ConfirmUnpriced: req.ConfirmUnpriced,
	}
	for i, ir := range req.Items {
		item, err := s.build(ir)
		if err != nil {
			v.Add(validation.Prefix(fmt.Sprintf("items[%d]", i), err))
			continue
		}
		d.Items = append(d.Items, item)
	}
	d.ShippingCost = money(&v, "shipping_cost", req.ShippingCost)
	d.TravelCost = money(&v, "travel_cost", req.TravelCost)
	return d, v.Err()
}

// money parses an optional amount. Empty means zero.
func money(v *validation.Collector, field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v.Add(validation.Errorf(field, "must be a number"))
		return decimal.Zero
	}
	return d
}

type quoteView struct {
	ID              string              `json:"id"`
	Customer        quote.Customer      `json:"customer"`
	Items           []itemView          `json:"items"`
	ShippingService string              `json:"shipping_service,omitempty"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	TravelCost      decimal.Decimal     `json:"travel_cost"`
	Seller          string              `json:"seller,omitempty"`
	Status          quote.Status        `json:"status"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	Warnings        []quote.ItemWarning `json:"warnings,omitempty"`
	ShareURL        string              `json:"share_url,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func newQuoteView(q quote.Quote) quoteView {
	v := quoteView{
		ID:              q.ID,
		Customer:        q.Customer,
		ShippingService: q.ShippingService,
		ShippingCost:    q.ShippingCost,
		TravelCost:      q.TravelCost,
		Seller:          q.Seller,
		Status:          q.Status,
		RejectionReason: q.RejectionReason,
		Subtotal:        q.Subtotal(),
		Total:           q.Total,
		Warnings:        q.Warnings(),
		ShareURL:        export.ShareURL(export.FromQuote(q)),
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	for _, item := range q.Items {
		v.Items = append(v.Items, newItemView(item))
	}
	return v
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.draft(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.quotes.Create(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuoteView(q))
}

func (s *server) handleQuoteUpdate(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.draft(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.quotes.Update(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(q))
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	f := quote.ListFilter{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := quote.ParseStatus(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f.Status = st
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, validation.Errorf("limit", "must be a non-negative integer"))
			return
		}
		f.Limit = n
	}

	quotes, err := s.quotes.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]quoteView, 0, len(quotes))
	for _, q := range quotes {
		views = append(views, newQuoteView(q))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) handleQuotesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.quotes.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(q))
}

func (s *server) handleQuoteApprove(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotes.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(q))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *server) handleQuoteReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.quotes.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(q))
}

func (s *server) handleQuoteExport(w http.ResponseWriter, r *http.Request) {
	renderer, err := export.ForFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, validation.Errorf("format", "%v", err))
		return
	}
	q, err := s.quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := renderer.Render(r.Context(), export.FromQuote(q))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("render %s: %w", renderer.Extension(), err))
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", q.ID+"."+renderer.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
