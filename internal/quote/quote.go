// Package quote assembles priced line items into customer quotes and drives
// their approval lifecycle.
package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/validation"
)

// Quote is immutable: edits and transitions return a new value.
type Quote struct {
	ID              string
	Customer        Customer
	Items           []LineItem
	ShippingService string
	ShippingCost    decimal.Decimal
	TravelCost      decimal.Decimal
	Seller          string
	Status          Status
	RejectionReason string
	Total           decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Input is everything needed to build a quote.
type Input struct {
	ID              string
	Customer        *Customer
	Items           []LineItem
	ShippingService string
	ShippingCost    decimal.Decimal
	TravelCost      decimal.Decimal
	Seller          string
	CreatedAt       time.Time
}

// Validate checks everything except the sequence id.
func (in Input) Validate() error {
	var v validation.Collector
	if in.Customer == nil {
		v.Add(validation.Errorf("customer", "is required"))
	} else {
		v.Add(in.Customer.Validate())
	}
	v.Check(len(in.Items) > 0, "items", "at least one item is required")
	for i, item := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item == nil {
			v.Add(validation.Errorf(field, "is empty"))
			continue
		}
		v.Add(validation.Prefix(field, item.Validate()))
	}
	v.Check(!in.ShippingCost.IsNegative(), "shipping_cost", "must not be negative")
	v.Check(!in.TravelCost.IsNegative(), "travel_cost", "must not be negative")
	return v.Err()
}

// Build validates in and returns a pending quote.
func Build(in Input) (Quote, error) {
	var v validation.Collector
	v.Add(in.Validate())
	v.Check(strings.TrimSpace(in.ID) != "", "id", "is required")
	if err := v.Err(); err != nil {
		return Quote{}, err
	}

	created := in.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := Quote{
		ID:              strings.TrimSpace(in.ID),
		Customer:        in.Customer.Normalize(),
		Items:           append([]LineItem(nil), in.Items...),
		ShippingService: strings.TrimSpace(in.ShippingService),
		ShippingCost:    in.ShippingCost,
		TravelCost:      in.TravelCost,
		Seller:          strings.TrimSpace(in.Seller),
		Status:          StatusPending,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	q.Total = q.computeTotal()
	return q, nil
}

// Subtotal is the sum of line prices.
func (q Quote) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range q.Items {
		sum = sum.Add(item.Price())
	}
	return sum
}

func (q Quote) computeTotal() decimal.Decimal {
	return q.Subtotal().Add(q.ShippingCost).Add(q.TravelCost)
}

// Verify checks a loaded quote: known status, at least one item and a total
// equal to its parts.
func (q Quote) Verify() error {
	if !q.Status.Valid() {
		return fmt.Errorf("unknown status %q", q.Status)
	}
	if len(q.Items) == 0 {
		return fmt.Errorf("quote %s has no items", q.ID)
	}
	if want := q.computeTotal(); !want.Equal(q.Total) {
		return fmt.Errorf("quote %s total %s does not match items %s", q.ID, q.Total, want)
	}
	return nil
}

// ItemWarning is a flag raised on one item of a quote.
type ItemWarning struct {
	Position int    `json:"position"`
	ItemID   string `json:"item_id"`
	Item     string `json:"item"`
	Flag
}

// Warnings lists every flagged item field in item order.
func (q Quote) Warnings() []ItemWarning {
	var out []ItemWarning
	for i, item := range q.Items {
		for _, f := range item.Warnings() {
			out = append(out, ItemWarning{Position: i, ItemID: item.ItemID(), Item: item.Title(), Flag: f})
		}
	}
	return out
}

// Unpriced reports whether any item has a price taken from a missed lookup.
func (q Quote) Unpriced() bool {
	for _, item := range q.Items {
		if item.Warnings().Has(FlagUnpriced) {
			return true
		}
	}
	return false
}

// Item finds an item by id.
func (q Quote) Item(id string) (LineItem, bool) {
	i := q.index(id)
	if i < 0 {
		return nil, false
	}
	return q.Items[i], true
}

func (q Quote) index(id string) int {
	for i, item := range q.Items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}

func (q Quote) editable() error {
	if q.Status.Terminal() {
		return fmt.Errorf("%w: quote %s is %s", ErrTerminalStatus, q.ID, q.Status)
	}
	return nil
}

func (q Quote) withItems(items []LineItem) Quote {
	q.Items = items
	q.Total = q.computeTotal()
	q.UpdatedAt = time.Now().UTC()
	return q
}

func checkItem(item LineItem) error {
	if item == nil {
		return validation.Errorf("items", "item is empty")
	}
	return validation.Prefix("items", item.Validate())
}

// AppendItem returns q with item added at the end.
func (q Quote) AppendItem(item LineItem) (Quote, error) {
	if err := q.editable(); err != nil {
		return q, err
	}
	if err := checkItem(item); err != nil {
		return q, err
	}
	items := append(append([]LineItem(nil), q.Items...), item)
	return q.withItems(items), nil
}

// ReplaceItem returns q with the item identified by id swapped for item. The
// position is kept.
func (q Quote) ReplaceItem(id string, item LineItem) (Quote, error) {
	if err := q.editable(); err != nil {
		return q, err
	}
	i := q.index(id)
	if i < 0 {
		return q, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	if err := checkItem(item); err != nil {
		return q, err
	}
	items := append([]LineItem(nil), q.Items...)
	items[i] = item
	return q.withItems(items), nil
}

// RemoveItem returns q without the item identified by id. The last item
// cannot be removed.
func (q Quote) RemoveItem(id string) (Quote, error) {
	if err := q.editable(); err != nil {
		return q, err
	}
	i := q.index(id)
	if i < 0 {
		return q, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	if len(q.Items) == 1 {
		return q, validation.Errorf("items", "a quote needs at least one item")
	}
	items := make([]LineItem, 0, len(q.Items)-1)
	items = append(items, q.Items[:i]...)
	items = append(items, q.Items[i+1:]...)
	return q.withItems(items), nil
}

// Summary is the dashboard roll-up of a set of quotes.
type Summary struct {
	Total    int             `json:"total"`
	Pending  int             `json:"pending"`
	Approved int             `json:"approved"`
	Rejected int             `json:"rejected"`
	Sales    decimal.Decimal `json:"sales"`
}

// Summarize counts quotes by status. Sales is the sum of approved totals.
func Summarize(quotes []Quote) Summary {
	s := Summary{Sales: decimal.Zero}
	for _, q := range quotes {
		s.Total++
		switch q.Status {
		case StatusPending:
			s.Pending++
		case StatusApproved:
			s.Approved++
			s.Sales = s.Sales.Add(q.Total)
		case StatusRejected:
			s.Rejected++
		}
	}
	return s
}
