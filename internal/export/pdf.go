package export

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var (
	grayText   = &props.Color{Red: 90, Green: 90, Blue: 90}
	headerFill = &props.Color{Red: 33, Green: 37, Blue: 41}
	stripeFill = &props.Color{Red: 245, Green: 245, Blue: 245}
	totalFill  = &props.Color{Red: 235, Green: 235, Blue: 235}
)

// PDFRenderer prints a quote on A4 portrait pages.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

func (PDFRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   grayText,
		}).
		Build()

	m := maroto.New(cfg)
	pdfHeader(m, doc)
	pdfCustomer(m, doc)
	pdfTableHeader(m)
	for i, l := range doc.Lines {
		pdfLine(m, l, i%2 == 1)
	}
	pdfTotals(m, doc)
	pdfNotes(m, doc)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func pdfHeader(m core.Maroto, doc Document) {
	m.AddRows(
		row.New(12).Add(
			col.New(8).Add(text.New(doc.Title, props.Text{Size: 16, Style: fontstyle.Bold})),
			col.New(4).Add(text.New(doc.Status, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right})),
		),
		row.New(6).Add(
			col.New(6).Add(text.New("Fecha: "+doc.Date, props.Text{Size: 9, Color: grayText})),
			col.New(6).Add(text.New("Vendedor: "+doc.Seller, props.Text{Size: 9, Align: align.Right, Color: grayText})),
		),
		row.New(4),
	)
}

func pdfCustomer(m core.Maroto, doc Document) {
	c := doc.Customer
	label := props.Text{Size: 8, Style: fontstyle.Bold}
	value := props.Text{Size: 8}
	field := func(name, v string) core.Row {
		return row.New(5).Add(
			col.New(3).Add(text.New(name, label)),
			col.New(9).Add(text.New(v, value)),
		)
	}

	m.AddRows(field("Cliente", c.Name), field("DNI", c.DNI))
	for _, f := range []struct{ name, value string }{
		{"Empresa", c.Company},
		{"Teléfono", c.Phone},
		{"Correo", c.Email},
		{"Dirección", c.Address},
	} {
		if f.value != "" {
			m.AddRows(field(f.name, f.value))
		}
	}
	m.AddRows(row.New(4))
}

func pdfTableHeader(m core.Maroto) {
	head := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headLeft := head
	headLeft.Align = align.Left
	cell := &props.Cell{BackgroundColor: headerFill}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("#", head)).WithStyle(cell),
			col.New(5).Add(text.New("Descripción", headLeft)).WithStyle(cell),
			col.New(1).Add(text.New("Cant.", head)).WithStyle(cell),
			col.New(1).Add(text.New("Und.", head)).WithStyle(cell),
			col.New(2).Add(text.New("P. unitario", head)).WithStyle(cell),
			col.New(2).Add(text.New("Importe", head)).WithStyle(cell),
		),
	)
}

func pdfLine(m core.Maroto, l Line, striped bool) {
	base := props.Text{Size: 8, Align: align.Center, Top: 1}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right
	detail := props.Text{Size: 7, Top: 5, Color: grayText}

	cols := []core.Col{
		col.New(1).Add(text.New(l.Index, base)),
		col.New(5).Add(text.New(l.Description, left), text.New(l.Detail, detail)),
		col.New(1).Add(text.New(fmt.Sprintf("%d", l.Quantity), base)),
		col.New(1).Add(text.New(l.Unit, base)),
		col.New(2).Add(text.New(FormatPEN(l.UnitPrice), right)),
		col.New(2).Add(text.New(FormatPEN(l.Amount), right)),
	}
	if striped {
		cell := &props.Cell{BackgroundColor: stripeFill}
		for i := range cols {
			cols[i] = cols[i].WithStyle(cell)
		}
	}
	m.AddRows(row.New(10).Add(cols...))
}

func pdfTotals(m core.Maroto, doc Document) {
	m.AddRows(row.New(4))
	total := func(label string, amount decimal.Decimal, cell *props.Cell) core.Row {
		style := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Top: 1}
		r := row.New(7).Add(
			col.New(9).Add(text.New(label, style)),
			col.New(3).Add(text.New(FormatPEN(amount), style)),
		)
		if cell != nil {
			r = r.WithStyle(cell)
		}
		return r
	}

	m.AddRows(total("Subtotal", doc.Subtotal, nil))
	if doc.Shipping.IsPositive() {
		m.AddRows(total("Envío", doc.Shipping, nil))
	}
	if doc.Travel.IsPositive() {
		m.AddRows(total("Movilidad", doc.Travel, nil))
	}
	m.AddRows(total("Total", doc.Total, &props.Cell{BackgroundColor: totalFill}))
}

func pdfNotes(m core.Maroto, doc Document) {
	note := props.Text{Size: 7, Color: grayText}
	if doc.Rejection != "" {
		m.AddRows(row.New(4), row.New(5).Add(col.New(12).Add(text.New("Motivo de rechazo: "+doc.Rejection, note))))
	}
	if len(doc.Notes) == 0 {
		return
	}
	m.AddRows(row.New(4))
	for _, n := range doc.Notes {
		m.AddRows(row.New(5).Add(col.New(12).Add(text.New(n, note))))
	}
}
