package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/vidrieria/internal/catalog"
)

// LoadCatalog reads the seeded catalog tables and builds an immutable catalog.
// Empty or inconsistent tables fail with catalog.ErrCorrupt.
func (r *Repository) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	doc, err := r.CatalogDocument(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.New(doc)
}

// CatalogDocument reads the catalog tables back into document form.
func (r *Repository) CatalogDocument(ctx context.Context) (catalog.Document, error) {
	var doc catalog.Document

	err := r.db.GetContext(ctx, &doc.Version, `SELECT version FROM catalog_meta WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%w: catalog tables are not seeded", catalog.ErrCorrupt)
	}
	if err != nil {
		return doc, fmt.Errorf("read catalog version: %w", err)
	}

	var glass []struct {
		Name      string `db:"name"`
		Thickness int    `db:"thickness_mm"`
		Price     string `db:"price_per_m2"`
	}
	if err := r.db.SelectContext(ctx, &glass, `
		SELECT name, thickness_mm, price_per_m2 FROM glass_prices ORDER BY position, name, thickness_mm
	`); err != nil {
		return doc, fmt.Errorf("read glass prices: %w", err)
	}
	for _, g := range glass {
		n := len(doc.Glass)
		if n == 0 || doc.Glass[n-1].Name != g.Name {
			doc.Glass = append(doc.Glass, catalog.GlassDoc{Name: g.Name, Prices: map[int]string{}})
			n++
		}
		doc.Glass[n-1].Prices[g.Thickness] = g.Price
	}

	if err := r.db.SelectContext(ctx, &doc.GlassTypes, `
		SELECT name, multiplier FROM glass_types ORDER BY position
	`); err != nil {
		return doc, fmt.Errorf("read glass types: %w", err)
	}
	if err := r.db.SelectContext(ctx, &doc.StandardProducts, `
		SELECT name, price, unit FROM standard_products ORDER BY position
	`); err != nil {
		return doc, fmt.Errorf("read standard products: %w", err)
	}
	err = r.db.GetContext(ctx, &doc.Labor, `
		SELECT per_m2_rate, minimum, default_cost, default_travel, default_margin_percent
		FROM labor_rates WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%w: labor rates are not seeded", catalog.ErrCorrupt)
	}
	if err != nil {
		return doc, fmt.Errorf("read labor rates: %w", err)
	}

	if err := r.db.SelectContext(ctx, &doc.Categories, `
		SELECT category, name, rule FROM categories ORDER BY position
	`); err != nil {
		return doc, fmt.Errorf("read categories: %w", err)
	}
	for i := range doc.Categories {
		c := &doc.Categories[i]
		if err := r.categoryDetails(ctx, c); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

func (r *Repository) categoryDetails(ctx context.Context, c *catalog.CategoryDoc) error {
	cat := string(c.Category)
	if err := r.db.SelectContext(ctx, &c.Products, `
		SELECT name, series FROM configurable_products WHERE category = ? ORDER BY position
	`, cat); err != nil {
		return fmt.Errorf("read %s products: %w", cat, err)
	}

	components := `
		SELECT name, price, quantity, required, min_quantity
		FROM category_components WHERE category = ? AND auto = ? ORDER BY position
	`
	if err := r.db.SelectContext(ctx, &c.Components, components, cat, 0); err != nil {
		return fmt.Errorf("read %s components: %w", cat, err)
	}
	if err := r.db.SelectContext(ctx, &c.AutoHardware, components, cat, 1); err != nil {
		return fmt.Errorf("read %s hardware: %w", cat, err)
	}

	options := `SELECT name, price FROM category_options WHERE category = ? AND kind = ? ORDER BY position`
	for _, o := range []struct {
		kind string
		dst  *[]catalog.OptionDoc
	}{
		{"frame", &c.Frames},
		{"opening", &c.Openings},
		{"lock", &c.Locks},
	} {
		if err := r.db.SelectContext(ctx, o.dst, options, cat, o.kind); err != nil {
			return fmt.Errorf("read %s %s options: %w", cat, o.kind, err)
		}
	}
	return nil
}
