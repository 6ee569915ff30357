package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

// ExcelRenderer writes a quote into a single-sheet workbook.
type ExcelRenderer struct{}

func (ExcelRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (ExcelRenderer) Extension() string { return "xlsx" }

var excelColumns = []string{"A", "B", "C", "D", "E", "F", "G"}

func (ExcelRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.QuoteID
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if sheet == "" {
		sheet = "Cotización"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	widths := []float64{6, 32, 36, 8, 8, 16, 16}
	for i, c := range excelColumns {
		if err := f.SetColWidth(sheet, c, c, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	styles, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}
	last := excelColumns[len(excelColumns)-1]

	w := &sheetWriter{f: f, sheet: sheet}
	w.merge("A1", last+"1")
	w.value("A1", sanitizeExcelCell(doc.Title))
	w.style("A1", last+"1", styles.title)

	info := [][2]string{
		{"Fecha", doc.Date},
		{"Estado", doc.Status},
		{"Vendedor", doc.Seller},
		{"Cliente", doc.Customer.Name},
		{"DNI", doc.Customer.DNI},
		{"Teléfono", doc.Customer.Phone},
		{"Correo", doc.Customer.Email},
	}
	r := 2
	for _, kv := range info {
		if kv[1] == "" {
			continue
		}
		cell := func(c string) string { return fmt.Sprintf("%s%d", c, r) }
		w.value(cell("A"), kv[0])
		w.style(cell("A"), cell("A"), styles.label)
		w.value(cell("B"), sanitizeExcelCell(kv[1]))
		r++
	}
	r++

	headers := []string{"#", "Descripción", "Detalle", "Cant.", "Und.", "P. unitario", "Importe"}
	for i, h := range headers {
		w.value(fmt.Sprintf("%s%d", excelColumns[i], r), h)
	}
	w.style(fmt.Sprintf("A%d", r), fmt.Sprintf("%s%d", last, r), styles.header)
	r++

	for _, l := range doc.Lines {
		row := fmt.Sprintf("%d", r)
		w.value("A"+row, l.Index)
		w.value("B"+row, sanitizeExcelCell(l.Description))
		w.value("C"+row, sanitizeExcelCell(l.Detail))
		w.value("D"+row, l.Quantity)
		w.value("E"+row, sanitizeExcelCell(l.Unit))
		w.value("F"+row, FormatPEN(l.UnitPrice))
		w.value("G"+row, FormatPEN(l.Amount))
		w.style("A"+row, last+row, styles.line)
		r++
	}
	r++

	totals := []struct {
		label  string
		amount decimal.Decimal
		show   bool
	}{
		{"Subtotal", doc.Subtotal, true},
		{"Envío", doc.Shipping, doc.Shipping.IsPositive()},
		{"Movilidad", doc.Travel, doc.Travel.IsPositive()},
		{"Total", doc.Total, true},
	}
	for _, t := range totals {
		if !t.show {
			continue
		}
		row := fmt.Sprintf("%d", r)
		w.value("F"+row, t.label+":")
		w.style("F"+row, "F"+row, styles.totalLabel)
		w.value("G"+row, FormatPEN(t.amount))
		w.style("G"+row, "G"+row, styles.totalValue)
		r++
	}

	notes := doc.Notes
	if doc.Rejection != "" {
		notes = append([]string{"Motivo de rechazo: " + doc.Rejection}, notes...)
	}
	if len(notes) > 0 {
		r++
		for _, n := range notes {
			w.value(fmt.Sprintf("A%d", r), sanitizeExcelCell(n))
			r++
		}
	}

	if w.err != nil {
		return nil, fmt.Errorf("fill sheet: %w", w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter fills one sheet and keeps every cell error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) value(cell string, v any) {
	if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
		w.err = multierr.Append(w.err, fmt.Errorf("set %s: %w", cell, err))
	}
}

func (w *sheetWriter) style(from, to string, id int) {
	if err := w.f.SetCellStyle(w.sheet, from, to, id); err != nil {
		w.err = multierr.Append(w.err, fmt.Errorf("style %s:%s: %w", from, to, err))
	}
}

func (w *sheetWriter) merge(from, to string) {
	if err := w.f.MergeCell(w.sheet, from, to); err != nil {
		w.err = multierr.Append(w.err, fmt.Errorf("merge %s:%s: %w", from, to, err))
	}
}

type excelStyles struct {
	title, label, header, line, totalLabel, totalValue int
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	defs := []struct {
		dst   *int
		name  string
		style *excelize.Style
	}{
		{&s.title, "title", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&s.label, "label", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 10}}},
		{&s.header, "header", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorders(),
		}},
		{&s.line, "line", &excelize.Style{
			Font:      &excelize.Font{Size: 10},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    thinBorders(),
		}},
		{&s.totalLabel, "total label", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{&s.totalValue, "total value", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return s, fmt.Errorf("create %s style: %w", d.name, err)
		}
		*d.dst = id
	}
	return s, nil
}

// sanitizeExcelCell prefixes values Excel would read as a formula.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
