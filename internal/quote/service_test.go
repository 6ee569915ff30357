package quote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/vidrieria/internal/validation"
)

type memorySink struct {
	mu     sync.Mutex
	seq    int64
	quotes map[string]Quote
	fail   error
}

func newMemorySink() *memorySink {
	return &memorySink{quotes: make(map[string]Quote)}
}

func (m *memorySink) NextSequence(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	m.seq++
	return m.seq, nil
}

func (m *memorySink) SaveQuote(_ context.Context, q Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.quotes[q.ID] = q
	return nil
}

func (m *memorySink) UpdateQuote(_ context.Context, q Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[q.ID]; !ok {
		return ErrNotFound
	}
	m.quotes[q.ID] = q
	return nil
}

func (m *memorySink) UpdateStatus(_ context.Context, id string, status Status, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return ErrNotFound
	}
	if q.Status != StatusPending {
		return ErrTerminalStatus
	}
	q.Status, q.RejectionReason, q.UpdatedAt = status, reason, at
	m.quotes[id] = q
	return nil
}

func (m *memorySink) GetQuote(_ context.Context, id string) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return Quote{}, m.fail
	}
	q, ok := m.quotes[id]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return q, nil
}

func (m *memorySink) ListQuotes(_ context.Context, f ListFilter) ([]Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quote
	for _, q := range m.quotes {
		if f.Query == "" || strings.Contains(q.Customer.Name, f.Query) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memorySink) {
	t.Helper()
	sink := newMemorySink()
	clock := func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return NewService(sink, zerolog.Nop(), WithSeller("Mostrador"), WithClock(clock)), sink
}

func testDraft(items ...LineItem) Draft {
	return Draft{Customer: testCustomer(), Items: items, ShippingCost: d("0"), TravelCost: d("0")}
}

func TestServiceCreate(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	q1, err := svc.Create(ctx, testDraft(standardItem("a", "100")))
	require.NoError(t, err)
	q2, err := svc.Create(ctx, testDraft(standardItem("b", "50")))
	require.NoError(t, err)

	assert.Equal(t, "COT-000001", q1.ID)
	assert.Equal(t, "COT-000002", q2.ID)
	assert.Equal(t, "Mostrador", q1.Seller)
	assert.Equal(t, StatusPending, q1.Status)
	assert.Len(t, sink.quotes, 2)
}

func TestServiceCreateInvalidSpendsNoSequence(t *testing.T) {
	svc, sink := newTestService(t)

	_, err := svc.Create(context.Background(), Draft{})
	require.ErrorIs(t, err, validation.ErrInvalid)
	assert.Zero(t, sink.seq)
}

func TestServiceRefusesUnpricedWithoutConfirmation(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()
	item, err := newTestBuilder(t).BuildStandard(StandardRequest{Product: "Policarbonato", Width: "1", Height: "1", Quantity: "1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, testDraft(item))
	require.ErrorIs(t, err, ErrUnpricedItems)
	assert.Empty(t, sink.quotes)

	draft := testDraft(item)
	draft.ConfirmUnpriced = true
	q, err := svc.Create(ctx, draft)
	require.NoError(t, err)
	assert.True(t, q.Unpriced())
}

func TestServicePersistenceFailure(t *testing.T) {
	svc, sink := newTestService(t)
	sink.fail = errors.New("disk full")

	_, err := svc.Create(context.Background(), testDraft(standardItem("a", "1")))
	require.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")

	_, err = svc.Get(context.Background(), "COT-000001")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestServiceTransitions(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()
	q, err := svc.Create(ctx, testDraft(standardItem("a", "100")))
	require.NoError(t, err)

	_, err = svc.Reject(ctx, q.ID, "")
	require.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, StatusPending, sink.quotes[q.ID].Status)

	approved, err := svc.Approve(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, StatusApproved, sink.quotes[q.ID].Status)

	_, err = svc.Reject(ctx, q.ID, "tarde")
	assert.ErrorIs(t, err, ErrTerminalStatus)
	_, err = svc.Update(ctx, q.ID, testDraft(standardItem("b", "1")))
	assert.ErrorIs(t, err, ErrTerminalStatus)

	_, err = svc.Approve(ctx, "COT-999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceUpdateAndSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	q, err := svc.Create(ctx, testDraft(standardItem("a", "100")))
	require.NoError(t, err)
	other, err := svc.Create(ctx, testDraft(standardItem("b", "40")))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, q.ID, testDraft(standardItem("a", "100"), standardItem("c", "60")))
	require.NoError(t, err)
	assert.Equal(t, q.ID, updated.ID)
	assert.Equal(t, q.CreatedAt, updated.CreatedAt)
	equalDec(t, "updated total", updated.Total, "160")

	_, err = svc.Approve(ctx, q.ID)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, other.ID, "presupuesto")
	require.NoError(t, err)

	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Approved)
	assert.Equal(t, 1, s.Rejected)
	equalDec(t, "sales", s.Sales, "160")
}
