// Package export renders quotes for customers as PDF, XLSX or a plain-text
// share message.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/quote"
)

const dateLayout = "02/01/2006"

// Document is the printable view of a quote. Amounts are already final; the
// renderers only format them.
type Document struct {
	Title     string
	QuoteID   string
	Date      string
	Status    string
	Seller    string
	Customer  quote.Customer
	Lines     []Line
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Travel    decimal.Decimal
	Total     decimal.Decimal
	Notes     []string
	Rejection string
}

// Line is one printed quote line.
type Line struct {
	Index       string
	Description string
	Detail      string
	Quantity    int
	Unit        string
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Renderer turns a Document into file bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer registered for format ("pdf", "xlsx" or
// "txt").
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pdf":
		return PDFRenderer{}, nil
	case "xlsx", "excel":
		return ExcelRenderer{}, nil
	case "txt", "text":
		return TextRenderer{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

var statusLabels = map[quote.Status]string{
	quote.StatusPending:  "Pendiente",
	quote.StatusApproved: "Aprobada",
	quote.StatusRejected: "Rechazada",
}

var flagLabels = map[quote.FlagCode]string{
	quote.FlagDefaulted: "valor por defecto",
	quote.FlagUnpriced:  "sin precio en catálogo",
}

// FromQuote builds the printable view of q.
func FromQuote(q quote.Quote) Document {
	doc := Document{
		Title:     "Cotización " + q.ID,
		QuoteID:   q.ID,
		Date:      q.CreatedAt.Format(dateLayout),
		Status:    statusLabels[q.Status],
		Seller:    q.Seller,
		Customer:  q.Customer,
		Subtotal:  q.Subtotal(),
		Shipping:  q.ShippingCost,
		Travel:    q.TravelCost,
		Total:     q.Total,
		Rejection: q.RejectionReason,
	}
	if doc.Status == "" {
		doc.Status = string(q.Status)
	}
	for i, item := range q.Items {
		doc.Lines = append(doc.Lines, line(i+1, item))
	}
	for _, w := range q.Warnings() {
		doc.Notes = append(doc.Notes, fmt.Sprintf("Ítem %d (%s): %s %s", w.Position+1, w.Item, w.Field, flagLabels[w.Code]))
	}
	return doc
}

func line(n int, item quote.LineItem) Line {
	l := Line{
		Index:       fmt.Sprintf("%d", n),
		Description: item.Title(),
		Quantity:    item.Units(),
		Amount:      item.Price(),
		Unit:        "und",
	}
	if l.Quantity > 0 {
		l.UnitPrice = l.Amount.Div(decimal.NewFromInt(int64(l.Quantity))).Round(2)
	}

	switch it := item.(type) {
	case quote.StandardItem:
		if it.UnitOfMeasure != "" {
			l.Unit = it.UnitOfMeasure
		}
		detail := []string{dimensions(it.Width, it.Height)}
		if it.GlassType != "" {
			detail = append(detail, it.GlassType)
		}
		l.Detail = strings.Join(detail, " · ")
	case quote.ConfiguredItem:
		detail := []string{dimensions(it.Width, it.Height), it.Glass.String()}
		for _, part := range []string{it.Frame, it.Opening, it.Lock} {
			if part != "" {
				detail = append(detail, part)
			}
		}
		l.Detail = strings.Join(detail, " · ")
	}
	return l
}

func dimensions(w, h decimal.Decimal) string {
	return w.StringFixed(2) + " x " + h.StringFixed(2) + " m"
}
