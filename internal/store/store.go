// Package store persists quotes and reads the seeded catalog from SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/quote"
)

const timeLayout = time.RFC3339Nano

// Repository implements quote.Sink over SQLite.
type Repository struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type quoteRow struct {
	ID              string          `db:"id"`
	ShippingService string          `db:"shipping_service"`
	ShippingCost    decimal.Decimal `db:"shipping_cost"`
	TravelCost      decimal.Decimal `db:"travel_cost"`
	Seller          string          `db:"seller"`
	Status          string          `db:"status"`
	RejectionReason string          `db:"rejection_reason"`
	Total           decimal.Decimal `db:"total"`
	CreatedAt       string          `db:"created_at"`
	UpdatedAt       string          `db:"updated_at"`
	quote.Customer
}

type itemRow struct {
	QuoteID  string `db:"quote_id"`
	Position int    `db:"position"`
	ItemID   string `db:"item_id"`
	Kind     string `db:"kind"`
	Name     string `db:"name"`
	Price    string `db:"price"`
	ItemJSON string `db:"item_json"`
}

const selectQuotes = `
	SELECT
		q.id, q.shipping_service, q.shipping_cost, q.travel_cost, q.seller,
		q.status, q.rejection_reason, q.total, q.created_at, q.updated_at,
		c.dni, c.name, c.email, c.phone, c.address, c.company
	FROM quotes q
	JOIN customers c ON c.dni = q.customer_dni
`

// NextSequence increments and returns the persistent quote counter.
func (r *Repository) NextSequence(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `
		UPDATE quote_sequence SET last_value = last_value + 1 WHERE id = 1
		RETURNING last_value
	`)
	if err != nil {
		return 0, fmt.Errorf("advance quote sequence: %w", err)
	}
	return n, nil
}

// SaveQuote stores a new quote, its customer and its items in one transaction.
func (r *Repository) SaveQuote(ctx context.Context, q quote.Quote) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertCustomer(ctx, tx, q.Customer, q.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (
				id, customer_dni, shipping_service, shipping_cost, travel_cost,
				seller, status, rejection_reason, total, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, q.ID, q.Customer.DNI, q.ShippingService, q.ShippingCost.String(), q.TravelCost.String(),
			q.Seller, string(q.Status), q.RejectionReason, q.Total.String(),
			q.CreatedAt.UTC().Format(timeLayout), q.UpdatedAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("insert quote %s: %w", q.ID, err)
		}
		return insertItems(ctx, tx, q)
	})
}

// UpdateQuote replaces the content of a pending quote.
func (r *Repository) UpdateQuote(ctx context.Context, q quote.Quote) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertCustomer(ctx, tx, q.Customer, q.UpdatedAt); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE quotes
			SET customer_dni = ?, shipping_service = ?, shipping_cost = ?, travel_cost = ?,
				seller = ?, total = ?, updated_at = ?
			WHERE id = ? AND status = 'pending'
		`, q.Customer.DNI, q.ShippingService, q.ShippingCost.String(), q.TravelCost.String(),
			q.Seller, q.Total.String(), q.UpdatedAt.UTC().Format(timeLayout), q.ID)
		if err != nil {
			return fmt.Errorf("update quote %s: %w", q.ID, err)
		}
		if err := r.checkPending(ctx, tx, res, q.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, q.ID); err != nil {
			return fmt.Errorf("clear items of %s: %w", q.ID, err)
		}
		return insertItems(ctx, tx, q)
	})
}

// UpdateStatus records a transition. Only pending quotes are changed.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status quote.Status, reason string, at time.Time) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE quotes SET status = ?, rejection_reason = ?, updated_at = ?
			WHERE id = ? AND status = 'pending'
		`, string(status), reason, at.UTC().Format(timeLayout), id)
		if err != nil {
			return fmt.Errorf("update status of %s: %w", id, err)
		}
		return r.checkPending(ctx, tx, res, id)
	})
}

// checkPending turns a zero-row guarded update into ErrNotFound or
// ErrTerminalStatus.
func (r *Repository) checkPending(ctx context.Context, tx *sqlx.Tx, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var status string
	err = tx.GetContext(ctx, &status, `SELECT status FROM quotes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", quote.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("read status of %s: %w", id, err)
	}
	return fmt.Errorf("%w: quote %s is %s", quote.ErrTerminalStatus, id, status)
}

func (r *Repository) GetQuote(ctx context.Context, id string) (quote.Quote, error) {
	var row quoteRow
	err := r.db.GetContext(ctx, &row, selectQuotes+` WHERE q.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return quote.Quote{}, fmt.Errorf("%w: %s", quote.ErrNotFound, id)
	}
	if err != nil {
		return quote.Quote{}, fmt.Errorf("select quote %s: %w", id, err)
	}
	items, err := r.items(ctx, []string{id})
	if err != nil {
		return quote.Quote{}, err
	}
	return row.toQuote(items[id])
}

// ListQuotes returns quotes newest first.
func (r *Repository) ListQuotes(ctx context.Context, f quote.ListFilter) ([]quote.Quote, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, `(LOWER(q.id) LIKE ? OR LOWER(c.name) LIKE ? OR c.dni LIKE ?)`)
		args = append(args, like, like, like)
	}
	if f.Status != "" {
		where = append(where, `q.status = ?`)
		args = append(args, string(f.Status))
	}
	query := selectQuotes
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY q.created_at DESC, q.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []quoteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]quote.Quote, 0, len(rows))
	for _, row := range rows {
		q, err := row.toQuote(items[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *Repository) items(ctx context.Context, quoteIDs []string) (map[string][]quote.LineItem, error) {
	query, args, err := sqlx.In(`
		SELECT quote_id, position, item_id, kind, name, price, item_json
		FROM quote_items
		WHERE quote_id IN (?)
		ORDER BY quote_id, position
	`, quoteIDs)
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select quote items: %w", err)
	}

	out := make(map[string][]quote.LineItem, len(quoteIDs))
	for _, row := range rows {
		item, err := quote.UnmarshalItem([]byte(row.ItemJSON))
		if err != nil {
			return nil, fmt.Errorf("quote %s item %d: %w", row.QuoteID, row.Position, err)
		}
		out[row.QuoteID] = append(out[row.QuoteID], item)
	}
	return out, nil
}

func (row quoteRow) toQuote(items []quote.LineItem) (quote.Quote, error) {
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("quote %s created_at: %w", row.ID, err)
	}
	updated, err := time.Parse(timeLayout, row.UpdatedAt)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("quote %s updated_at: %w", row.ID, err)
	}
	q := quote.Quote{
		ID:              row.ID,
		Customer:        row.Customer,
		Items:           items,
		ShippingService: row.ShippingService,
		ShippingCost:    row.ShippingCost,
		TravelCost:      row.TravelCost,
		Seller:          row.Seller,
		Status:          quote.Status(row.Status),
		RejectionReason: row.RejectionReason,
		Total:           row.Total,
		CreatedAt:       created,
		UpdatedAt:       updated,
	}
	if err := q.Verify(); err != nil {
		return quote.Quote{}, fmt.Errorf("stored quote %s: %w", row.ID, err)
	}
	return q, nil
}

func upsertCustomer(ctx context.Context, tx *sqlx.Tx, c quote.Customer, at time.Time) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO customers (dni, name, email, phone, address, company, updated_at)
		VALUES (:dni, :name, :email, :phone, :address, :company, :updated_at)
		ON CONFLICT (dni) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			company = excluded.company,
			updated_at = excluded.updated_at
	`, struct {
		quote.Customer
		UpdatedAt string `db:"updated_at"`
	}{c, at.UTC().Format(timeLayout)})
	if err != nil {
		return fmt.Errorf("upsert customer %s: %w", c.DNI, err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sqlx.Tx, q quote.Quote) error {
	rows := make([]itemRow, 0, len(q.Items))
	for i, item := range q.Items {
		data, err := quote.MarshalItem(item)
		if err != nil {
			return err
		}
		rows = append(rows, itemRow{
			QuoteID:  q.ID,
			Position: i,
			ItemID:   item.ItemID(),
			Kind:     string(item.Kind()),
			Name:     item.Title(),
			Price:    item.Price().String(),
			ItemJSON: string(data),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO quote_items (quote_id, position, item_id, kind, name, price, item_json)
		VALUES (:quote_id, :position, :item_id, :kind, :name, :price, :item_json)
	`, rows); err != nil {
		return fmt.Errorf("insert items of %s: %w", q.ID, err)
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
