package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Simplici0/vidrieria/internal/catalog"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type col struct {
	name  string
	value any
}

// row is one catalog record: keys identify it, values are kept in sync with the
// document.
type row struct {
	table  string
	keys   []col
	values []col
}

// Run writes a catalog document into the catalog tables in an idempotent way.
// Missing rows are inserted and rows whose values differ are updated; rows
// absent from the document are left alone.
func Run(db *sqlx.DB, doc catalog.Document) (Stats, error) {
	if _, err := catalog.New(doc); err != nil {
		return Stats{}, fmt.Errorf("validate catalog document: %w", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, r := range rows(doc) {
		if err := ensure(tx, r, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func rows(doc catalog.Document) []row {
	out := []row{{
		table:  "catalog_meta",
		keys:   []col{{"id", 1}},
		values: []col{{"version", doc.Version}},
	}}

	for i, g := range doc.Glass {
		thicknesses := make([]int, 0, len(g.Prices))
		for mm := range g.Prices {
			thicknesses = append(thicknesses, mm)
		}
		sort.Ints(thicknesses)
		for _, mm := range thicknesses {
			out = append(out, row{
				table:  "glass_prices",
				keys:   []col{{"name", clean(g.Name)}, {"thickness_mm", mm}},
				values: []col{{"price_per_m2", clean(g.Prices[mm])}, {"position", i}},
			})
		}
	}
	for i, gt := range doc.GlassTypes {
		out = append(out, row{
			table:  "glass_types",
			keys:   []col{{"name", clean(gt.Name)}},
			values: []col{{"multiplier", clean(gt.Multiplier)}, {"position", i}},
		})
	}
	for i, p := range doc.StandardProducts {
		unit := clean(p.Unit)
		if unit == "" {
			unit = "m2"
		}
		out = append(out, row{
			table:  "standard_products",
			keys:   []col{{"name", clean(p.Name)}},
			values: []col{{"price", clean(p.Price)}, {"unit", unit}, {"position", i}},
		})
	}
	out = append(out, row{
		table: "labor_rates",
		keys:  []col{{"id", 1}},
		values: []col{
			{"per_m2_rate", clean(doc.Labor.PerM2Rate)},
			{"minimum", clean(doc.Labor.Minimum)},
			{"default_cost", clean(doc.Labor.DefaultCost)},
			{"default_travel", clean(doc.Labor.DefaultTravel)},
			{"default_margin_percent", clean(doc.Labor.DefaultMarginPercent)},
		},
	})

	for i, c := range doc.Categories {
		cat := string(c.Category)
		out = append(out, row{
			table:  "categories",
			keys:   []col{{"category", cat}},
			values: []col{{"name", clean(c.Name)}, {"rule", string(c.Rule)}, {"position", i}},
		})
		for j, p := range c.Products {
			out = append(out, row{
				table:  "configurable_products",
				keys:   []col{{"category", cat}, {"name", clean(p.Name)}},
				values: []col{{"series", clean(p.Series)}, {"position", j}},
			})
		}
		out = append(out, componentRows(cat, 0, c.Components)...)
		out = append(out, componentRows(cat, 1, c.AutoHardware)...)
		out = append(out, optionRows(cat, "frame", c.Frames)...)
		out = append(out, optionRows(cat, "opening", c.Openings)...)
		out = append(out, optionRows(cat, "lock", c.Locks)...)
	}
	return out
}

func componentRows(cat string, auto int, docs []catalog.ComponentDoc) []row {
	out := make([]row, 0, len(docs))
	for i, c := range docs {
		required := 0
		if c.Required {
			required = 1
		}
		qty := c.Quantity
		if qty == 0 {
			qty = 1
		}
		out = append(out, row{
			table: "category_components",
			keys:  []col{{"category", cat}, {"auto", auto}, {"name", clean(c.Name)}},
			values: []col{
				{"price", clean(c.Price)},
				{"quantity", qty},
				{"required", required},
				{"min_quantity", c.MinQuantity},
				{"position", i},
			},
		})
	}
	return out
}

func optionRows(cat, kind string, docs []catalog.OptionDoc) []row {
	out := make([]row, 0, len(docs))
	for i, o := range docs {
		out = append(out, row{
			table:  "category_options",
			keys:   []col{{"category", cat}, {"kind", kind}, {"name", clean(o.Name)}},
			values: []col{{"price", clean(o.Price)}, {"position", i}},
		})
	}
	return out
}

func ensure(tx *sqlx.Tx, r row, stats *Stats) error {
	where := make([]string, len(r.keys))
	args := make([]any, len(r.keys))
	for i, k := range r.keys {
		where[i] = k.name + " = ?"
		args[i] = k.value
	}
	selects := make([]string, len(r.values))
	for i, v := range r.values {
		selects[i] = "CAST(" + v.name + " AS TEXT)"
	}

	current := make([]string, len(r.values))
	dest := make([]any, len(r.values))
	for i := range current {
		dest[i] = &current[i]
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, strings.Join(selects, ", "), r.table, strings.Join(where, " AND "))
	err := tx.QueryRow(query, args...).Scan(dest...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return insert(tx, r, stats)
	case err != nil:
		return fmt.Errorf("check %s existence: %w", r.table, err)
	}

	var sets []string
	var setArgs []any
	for i, v := range r.values {
		if current[i] != fmt.Sprint(v.value) {
			sets = append(sets, v.name+" = ?")
			setArgs = append(setArgs, v.value)
		}
	}
	if len(sets) == 0 {
		return nil
	}
	update := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, r.table, strings.Join(sets, ", "), strings.Join(where, " AND "))
	if _, err := tx.Exec(update, append(setArgs, args...)...); err != nil {
		return fmt.Errorf("update %s: %w", r.table, err)
	}
	stats.Updates++
	return nil
}

func insert(tx *sqlx.Tx, r row, stats *Stats) error {
	cols := append(append([]col(nil), r.keys...), r.values...)
	names := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = c.name
		args[i] = c.value
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		r.table, strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
	stats.Inserts++
	return nil
}

func clean(s string) string { return strings.TrimSpace(s) }
