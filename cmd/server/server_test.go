package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/db"
	"github.com/Simplici0/vidrieria/internal/quote"
	"github.com/Simplici0/vidrieria/internal/store"
	"github.com/Simplici0/vidrieria/internal/validation"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrateAndSeed(database, zerolog.Nop(), ""))

	repo := store.New(database)
	cat, err := repo.LoadCatalog(t.Context())
	require.NoError(t, err)

	srv := newServer(quote.NewBuilder(cat, nil), quote.NewService(repo, zerolog.Nop(), quote.WithSeller("Taller")), zerolog.Nop())
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

type testItem struct {
	Kind  string          `json:"kind"`
	Item  json.RawMessage `json:"item"`
	Price decimal.Decimal `json:"price"`
}

type testQuote struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Items    []testItem      `json:"items"`
	Seller   string          `json:"seller"`
	ShareURL string          `json:"share_url"`
	Warnings []struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"warnings"`
}

func doorRequest() *quote.AutoRequest {
	return &quote.AutoRequest{
		Category: catalog.CategoryDoor, Glass: "Vidrio Templado", Thickness: "3",
		Width: "1", Height: "2.1", Frame: "Marco de aluminio", Travel: "0", Margin: "25",
	}
}

func TestAutoItemPreview(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/items/auto", doorRequest())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var item testItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "configured", item.Kind)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("820.63")), item.Price.String())
}

func TestCatalogEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodGet, "/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view catalogView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.Version)
	assert.Len(t, view.Categories, 3)
	assert.Equal(t, catalog.RuleComponentsPlusGlass, view.Categories[0].Rule)
	assert.NotEmpty(t, view.Glass)
	assert.True(t, view.Labor.Minimum.Equal(decimal.NewFromInt(50)))
}

func TestCreateAndExportQuote(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/quotes", map[string]any{
		"customer":      map[string]string{"dni": "45678912", "name": "Rosa Quispe", "phone": "987654321"},
		"items":         []itemRequest{{Auto: doorRequest()}},
		"shipping_cost": "20",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var q testQuote
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, "COT-000001", q.ID)
	assert.Equal(t, "pending", q.Status)
	assert.Equal(t, "Taller", q.Seller)
	assert.True(t, q.Total.Equal(decimal.RequireFromString("840.63")), q.Total.String())
	assert.True(t, strings.HasPrefix(q.ShareURL, "https://wa.me/51987654321"))

	resp, body = do(t, ts, http.MethodGet, "/quotes/COT-000001/export/pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "COT-000001.pdf")
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	resp, body = do(t, ts, http.MethodGet, "/quotes/COT-000001/export/txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Total: S/ 840.63")

	resp, _ = do(t, ts, http.MethodGet, "/quotes/COT-000001/export/docx", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, ts, http.MethodGet, "/quotes?q=rosa", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []testQuote
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "COT-000001", list[0].ID)
}

func TestUnpricedQuoteNeedsConfirmation(t *testing.T) {
	ts := newTestServer(t)

	draft := map[string]any{
		"customer": map[string]string{"dni": "123", "name": "Luis"},
		"items": []itemRequest{{Standard: &quote.StandardRequest{
			Product: "Vitral artesanal", Width: "1", Height: "1",
		}}},
	}
	resp, body := do(t, ts, http.MethodPost, "/quotes", draft)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	draft["confirm_unpriced"] = true
	resp, body = do(t, ts, http.MethodPost, "/quotes", draft)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var q testQuote
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, "COT-000001", q.ID)
	var codes []string
	for _, w := range q.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "unpriced")
}

func TestQuoteLifecycleEndpoints(t *testing.T) {
	ts := newTestServer(t)
	door := []itemRequest{{Auto: doorRequest()}}

	resp, body := do(t, ts, http.MethodPost, "/quotes", map[string]any{
		"customer": map[string]string{"dni": "777", "name": "Marta"},
		"items":    door,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, ts, http.MethodPost, "/quotes/COT-000001/reject", map[string]string{"reason": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = do(t, ts, http.MethodPost, "/quotes/COT-000001/reject", map[string]string{"reason": "precio alto"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var q testQuote
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, "rejected", q.Status)

	resp, _ = do(t, ts, http.MethodPost, "/quotes/COT-000001/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPut, "/quotes/COT-000001", map[string]any{
		"customer": map[string]string{"dni": "777", "name": "Marta"},
		"items":    door,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/quotes/COT-000404/approve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, ts, http.MethodGet, "/quotes/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary quote.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Rejected)
}

func TestConfiguredScreenEndpoint(t *testing.T) {
	ts := newTestServer(t)
	off := false

	resp, body := do(t, ts, http.MethodPost, "/items/configured", configuredRequest{
		Category: catalog.CategoryScreen,
		Width:    "1",
		Height:   "1",
		Components: []componentChoice{
			{Name: "Guía", Selected: &off},
			{Name: "Cremona", Selected: &off},
			{Name: "Manija redonda", Selected: &off},
			{Name: "Marco de hoja", Selected: &off},
			{Name: "Felpa (Flo/Fs)", Quantity: "1"},
		},
		Labor:  "200",
		Travel: "0",
		Margin: "20",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var item testItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.True(t, item.Price.Equal(decimal.NewFromInt(624)), item.Price.String())
}

func TestConfiguredRequiredComponentRejected(t *testing.T) {
	ts := newTestServer(t)
	off := false

	resp, body := do(t, ts, http.MethodPost, "/items/configured", configuredRequest{
		Category:   catalog.CategoryScreen,
		Width:      "1",
		Height:     "1",
		Components: []componentChoice{{Name: "Ángulos Martinelli", Selected: &off}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.NotEmpty(t, e.Fields)
}

func TestMalformedBodies(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/items/standard", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPost, "/quotes", map[string]any{
		"customer": map[string]string{"dni": "1", "name": "A"},
		"items":    []itemRequest{{}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, []string{"items[0]"}, e.Fields)
}

func TestQuoteRejectsClientPricedItems(t *testing.T) {
	ts := newTestServer(t)

	// A priced snapshot with its unpriced flag stripped is not accepted.
	forged := json.RawMessage(`{"kind":"standard","item":{"id":"x","name":"Vitral artesanal","unit_price":"0","width":"1","height":"1","quantity":1,"glass_multiplier":"1"},"price":"0"}`)
	resp, body := do(t, ts, http.MethodPost, "/quotes", map[string]any{
		"customer": map[string]string{"dni": "1", "name": "A"},
		"items":    []json.RawMessage{forged},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = do(t, ts, http.MethodPost, "/quotes", map[string]any{
		"customer": map[string]string{"dni": "1", "name": "A"},
		"items": []itemRequest{
			{Standard: &quote.StandardRequest{Product: "Espejo", Width: "-1.5", Height: "1", Quantity: "2"}},
			{Standard: &quote.StandardRequest{Product: "Espejo", Width: "1", Height: "1"}, Auto: doorRequest()},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.ElementsMatch(t, []string{"items[0].width", "items[1]"}, e.Fields)

	resp, body = do(t, ts, http.MethodGet, "/quotes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{validation.Errorf("x", "bad"), http.StatusBadRequest},
		{fmt.Errorf("get: %w", quote.ErrNotFound), http.StatusNotFound},
		{&catalog.LookupError{Kind: "glass", Key: "x"}, http.StatusNotFound},
		{quote.ErrTerminalStatus, http.StatusConflict},
		{quote.ErrUnpricedItems, http.StatusConflict},
		{quote.ErrStage, http.StatusConflict},
		{fmt.Errorf("%w: save: %w", quote.ErrPersistence, errors.New("disk full")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
