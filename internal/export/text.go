package export

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// countryCode is prefixed to local nine-digit phone numbers in share links.
const countryCode = "51"

// TextRenderer writes the short message sent to a customer with the quote.
type TextRenderer struct{}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }
func (TextRenderer) Extension() string   { return "txt" }

func (TextRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(Message(doc)), nil
}

// Message is the greeting plus quote id, date and total.
func Message(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s, aquí tienes tu cotización:\n\n", doc.Customer.Name)
	fmt.Fprintf(&b, "Cotización: %s\n", doc.QuoteID)
	fmt.Fprintf(&b, "Fecha: %s\n", doc.Date)
	for _, l := range doc.Lines {
		fmt.Fprintf(&b, "- %s x%d: %s\n", l.Description, l.Quantity, FormatPEN(l.Amount))
	}
	fmt.Fprintf(&b, "Total: %s\n\n", FormatPEN(doc.Total))
	b.WriteString("¡Gracias por confiar en nosotros!")
	return b.String()
}

// ShareURL returns a wa.me link that opens a chat with the customer with the
// message prefilled. It returns "" when the customer has no phone.
func ShareURL(doc Document) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, doc.Customer.Phone)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryCode) || len(digits) <= 9 {
		digits = countryCode + digits
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(Message(doc))
}
