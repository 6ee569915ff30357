package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// New validates a document and builds an immutable catalog from it. Any
// inconsistency is reported as ErrCorrupt: a catalog that prices wrongly must
// not load.
func New(doc Document) (*Catalog, error) {
	if doc.Version != SchemaVersion {
		return nil, corruptf("unsupported schema version %d", doc.Version)
	}

	c := &Catalog{
		version:    doc.Version,
		glass:      make(map[glassKey]GlassSpec),
		glassTypes: make(map[string]GlassType),
		standard:   make(map[string]StandardProductSpec),
		categories: make(map[Category]categorySpec),
	}

	for _, g := range doc.Glass {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, corruptf("glass entry without name")
		}
		if len(g.Prices) == 0 {
			return nil, corruptf("glass %q has no prices", name)
		}
		for thickness, raw := range g.Prices {
			if thickness <= 0 {
				return nil, corruptf("glass %q: thickness %d must be positive", name, thickness)
			}
			price, err := amount(raw, "glass "+name)
			if err != nil {
				return nil, err
			}
			k := glassKey{name: key(name), thickness: thickness}
			if _, dup := c.glass[k]; dup {
				return nil, corruptf("duplicate glass %q %dmm", name, thickness)
			}
			c.glass[k] = GlassSpec{Name: name, ThicknessMM: thickness, PricePerM2: price}
		}
		c.glassNames = append(c.glassNames, name)
	}

	for _, gt := range doc.GlassTypes {
		name := strings.TrimSpace(gt.Name)
		m, err := amount(gt.Multiplier, "glass type "+name)
		if err != nil {
			return nil, err
		}
		if name == "" || !m.IsPositive() {
			return nil, corruptf("glass type %q needs a name and a positive multiplier", name)
		}
		if _, dup := c.glassTypes[key(name)]; dup {
			return nil, corruptf("duplicate glass type %q", name)
		}
		c.glassTypes[key(name)] = GlassType{Name: name, Multiplier: m}
		c.typeOrder = append(c.typeOrder, key(name))
	}

	for _, p := range doc.StandardProducts {
		name := strings.TrimSpace(p.Name)
		price, err := amount(p.Price, "standard product "+name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, corruptf("standard product without name")
		}
		if _, dup := c.standard[key(name)]; dup {
			return nil, corruptf("duplicate standard product %q", name)
		}
		unit := strings.TrimSpace(p.Unit)
		if unit == "" {
			unit = "m2"
		}
		c.standard[key(name)] = StandardProductSpec{Name: name, Price: price, UnitOfMeasure: unit}
		c.stdOrder = append(c.stdOrder, key(name))
	}

	labor, err := buildLabor(doc.Labor)
	if err != nil {
		return nil, err
	}
	c.labor = labor

	for _, cd := range doc.Categories {
		spec, err := buildCategory(cd)
		if err != nil {
			return nil, err
		}
		if _, dup := c.categories[cd.Category]; dup {
			return nil, corruptf("duplicate category %q", cd.Category)
		}
		c.categories[cd.Category] = spec
	}

	return c, nil
}

func buildLabor(doc LaborDoc) (LaborRates, error) {
	var (
		l   LaborRates
		err error
	)
	fields := []struct {
		raw  string
		dst  *decimal.Decimal
		name string
	}{
		{doc.PerM2Rate, &l.PerM2Rate, "labor per_m2_rate"},
		{doc.Minimum, &l.Minimum, "labor minimum"},
		{doc.DefaultCost, &l.DefaultCost, "labor default_cost"},
		{doc.DefaultTravel, &l.DefaultTravel, "labor default_travel"},
		{doc.DefaultMarginPercent, &l.DefaultMarginPercent, "labor default_margin_percent"},
	}
	for _, f := range fields {
		if *f.dst, err = amount(f.raw, f.name); err != nil {
			return LaborRates{}, err
		}
	}
	return l, nil
}

func buildCategory(cd CategoryDoc) (categorySpec, error) {
	want, ok := categoryRules[cd.Category]
	if !ok {
		return categorySpec{}, corruptf("unknown category %q", cd.Category)
	}
	if cd.Rule != want {
		return categorySpec{}, corruptf("category %q must use rule %q, got %q", cd.Category, want, cd.Rule)
	}

	spec := categorySpec{name: strings.TrimSpace(cd.Name), rule: cd.Rule}
	if spec.name == "" {
		spec.name = string(cd.Category)
	}

	for _, p := range cd.Products {
		if strings.TrimSpace(p.Name) == "" {
			return categorySpec{}, corruptf("category %q: product without name", cd.Category)
		}
		spec.products = append(spec.products, ConfigurableProduct{
			Category: cd.Category,
			Name:     strings.TrimSpace(p.Name),
			Series:   strings.TrimSpace(p.Series),
		})
	}

	var err error
	if spec.components, err = buildComponents(cd.Category, cd.Components); err != nil {
		return categorySpec{}, err
	}
	if spec.autoHardware, err = buildComponents(cd.Category, cd.AutoHardware); err != nil {
		return categorySpec{}, err
	}
	if spec.frames, err = buildOptions(cd.Category, "frame", cd.Frames); err != nil {
		return categorySpec{}, err
	}
	if spec.openings, err = buildOptions(cd.Category, "opening", cd.Openings); err != nil {
		return categorySpec{}, err
	}
	if spec.locks, err = buildOptions(cd.Category, "lock", cd.Locks); err != nil {
		return categorySpec{}, err
	}
	return spec, nil
}

func buildComponents(cat Category, docs []ComponentDoc) ([]ComponentSpec, error) {
	out := make([]ComponentSpec, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		name := strings.TrimSpace(d.Name)
		price, err := amount(d.Price, fmt.Sprintf("%s component %s", cat, name))
		if err != nil {
			return nil, err
		}
		if name == "" || seen[key(name)] {
			return nil, corruptf("%s: component %q is unnamed or duplicated", cat, name)
		}
		seen[key(name)] = true

		qty := d.Quantity
		if qty == 0 {
			qty = 1
		}
		minQty := d.MinQuantity
		if d.Required && minQty == 0 {
			minQty = 1
		}
		if qty < 0 || minQty < 0 || qty < minQty {
			return nil, corruptf("%s: component %q quantity %d below minimum %d", cat, name, qty, minQty)
		}
		out = append(out, ComponentSpec{
			Name:            name,
			UnitPrice:       price,
			DefaultQuantity: qty,
			Required:        d.Required,
			MinQuantity:     minQty,
		})
	}
	return out, nil
}

func buildOptions(cat Category, kind string, docs []OptionDoc) ([]Option, error) {
	out := make([]Option, 0, len(docs))
	for _, d := range docs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, corruptf("%s: %s without name", cat, kind)
		}
		price, err := amount(d.Price, fmt.Sprintf("%s %s %s", cat, kind, name))
		if err != nil {
			return nil, err
		}
		out = append(out, Option{Name: name, Price: price})
	}
	return out, nil
}

// amount parses a non-negative decimal string.
func amount(raw, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, corruptf("%s: invalid amount %q", what, raw)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, corruptf("%s: negative amount %s", what, raw)
	}
	return d, nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
