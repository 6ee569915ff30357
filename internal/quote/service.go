package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is matched when a quote or item id is unknown.
	ErrNotFound = errors.New("quote not found")
	// ErrPersistence wraps every sink failure. Committing again is safe.
	ErrPersistence = errors.New("quote persistence failed")
	// ErrUnpricedItems is returned when a quote with unpriced items is saved
	// without confirmation.
	ErrUnpricedItems = errors.New("quote has unpriced items")
)

// ListFilter narrows ListQuotes. Query matches the quote id, customer name or
// DNI.
type ListFilter struct {
	Query  string
	Status Status
	Limit  int
}

// Sink stores quotes. GetQuote returns an error matching ErrNotFound for an
// unknown id; UpdateStatus returns one matching ErrTerminalStatus when the
// stored quote is no longer pending.
type Sink interface {
	NextSequence(ctx context.Context) (int64, error)
	SaveQuote(ctx context.Context, q Quote) error
	UpdateQuote(ctx context.Context, q Quote) error
	UpdateStatus(ctx context.Context, id string, status Status, reason string, at time.Time) error
	GetQuote(ctx context.Context, id string) (Quote, error)
	ListQuotes(ctx context.Context, f ListFilter) ([]Quote, error)
}

// SequenceID formats a persistent sequence number as a quote id.
func SequenceID(n int64) string {
	return fmt.Sprintf("COT-%06d", n)
}

// Draft is a quote as submitted by the operator.
type Draft struct {
	Customer        *Customer
	Items           []LineItem
	ShippingService string
	ShippingCost    decimal.Decimal
	TravelCost      decimal.Decimal
	Seller          string
	// ConfirmUnpriced allows saving a quote whose items carry unpriced flags.
	ConfirmUnpriced bool
}

func (d Draft) input(id string, created time.Time, defaultSeller string) Input {
	seller := strings.TrimSpace(d.Seller)
	if seller == "" {
		seller = defaultSeller
	}
	return Input{
		ID:              id,
		Customer:        d.Customer,
		Items:           d.Items,
		ShippingService: d.ShippingService,
		ShippingCost:    d.ShippingCost,
		TravelCost:      d.TravelCost,
		Seller:          seller,
		CreatedAt:       created,
	}
}

// Service commits quotes to a sink and drives their transitions.
type Service struct {
	sink   Sink
	log    zerolog.Logger
	seller string
	now    func() time.Time
}

type ServiceOption func(*Service)

// WithSeller sets the seller recorded when a draft names none.
func WithSeller(name string) ServiceOption {
	return func(s *Service) { s.seller = strings.TrimSpace(name) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(sink Sink, log zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		sink: sink,
		log:  log.With().Str("component", "quote_service").Logger(),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) persistence(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTerminalStatus) {
		return err
	}
	s.log.Error().Err(err).Str("op", op).Msg("sink failure")
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func checkUnpriced(q Quote, confirmed bool) error {
	if q.Unpriced() && !confirmed {
		return fmt.Errorf("%w: confirm to save %d flagged line(s)", ErrUnpricedItems, len(q.Warnings()))
	}
	return nil
}

// Create validates the draft, allocates a sequence id and stores a pending
// quote.
func (s *Service) Create(ctx context.Context, d Draft) (Quote, error) {
	now := s.now()
	// No sequence number is spent on a rejected draft.
	candidate, err := Build(d.input("draft", now, s.seller))
	if err != nil {
		return Quote{}, err
	}
	if err := checkUnpriced(candidate, d.ConfirmUnpriced); err != nil {
		return Quote{}, err
	}

	n, err := s.sink.NextSequence(ctx)
	if err != nil {
		return Quote{}, s.persistence("next sequence", err)
	}
	q, err := Build(d.input(SequenceID(n), now, s.seller))
	if err != nil {
		return Quote{}, err
	}
	if err := s.sink.SaveQuote(ctx, q); err != nil {
		return Quote{}, s.persistence("save quote", err)
	}
	s.log.Info().
		Str("quote_id", q.ID).
		Str("customer_dni", q.Customer.DNI).
		Int("items", len(q.Items)).
		Str("total", q.Total.StringFixed(2)).
		Bool("unpriced", q.Unpriced()).
		Msg("quote created")
	return q, nil
}

// Update replaces the content of a pending quote. Id, status and creation
// time are kept.
func (s *Service) Update(ctx context.Context, id string, d Draft) (Quote, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if current.Status.Terminal() {
		return Quote{}, fmt.Errorf("%w: quote %s is %s", ErrTerminalStatus, id, current.Status)
	}
	q, err := Build(d.input(current.ID, current.CreatedAt, s.seller))
	if err != nil {
		return Quote{}, err
	}
	if err := checkUnpriced(q, d.ConfirmUnpriced); err != nil {
		return Quote{}, err
	}
	q.UpdatedAt = s.now()
	if err := s.sink.UpdateQuote(ctx, q); err != nil {
		return Quote{}, s.persistence("update quote", err)
	}
	s.log.Info().Str("quote_id", q.ID).Str("total", q.Total.StringFixed(2)).Msg("quote updated")
	return q, nil
}

// Approve moves a pending quote to approved.
func (s *Service) Approve(ctx context.Context, id string) (Quote, error) {
	return s.transition(ctx, id, StatusApproved, "")
}

// Reject moves a pending quote to rejected. reason is mandatory.
func (s *Service) Reject(ctx context.Context, id, reason string) (Quote, error) {
	return s.transition(ctx, id, StatusRejected, reason)
}

func (s *Service) transition(ctx context.Context, id string, to Status, reason string) (Quote, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	next, err := current.Transition(to, reason)
	if err != nil {
		return current, err
	}
	next.UpdatedAt = s.now()
	if err := s.sink.UpdateStatus(ctx, id, next.Status, next.RejectionReason, next.UpdatedAt); err != nil {
		return current, s.persistence("update status", err)
	}
	s.log.Info().Str("quote_id", id).Str("status", string(next.Status)).Msg("quote status changed")
	return next, nil
}

func (s *Service) Get(ctx context.Context, id string) (Quote, error) {
	q, err := s.sink.GetQuote(ctx, strings.TrimSpace(id))
	if err != nil {
		return Quote{}, s.persistence("get quote", err)
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Quote, error) {
	quotes, err := s.sink.ListQuotes(ctx, f)
	if err != nil {
		return nil, s.persistence("list quotes", err)
	}
	return quotes, nil
}

// Summary rolls up every stored quote.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	quotes, err := s.List(ctx, ListFilter{})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(quotes), nil
}
