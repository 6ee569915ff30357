package catalog

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefaultGlassPrice(t *testing.T) {
	c := mustDefault(t)

	spec, err := c.GlassPrice("vidrio templado", 6)
	require.NoError(t, err)
	assert.Equal(t, "Vidrio Templado", spec.Name)
	assert.True(t, spec.PricePerM2.Equal(decimal.RequireFromString("115")), spec.PricePerM2.String())
	assert.Equal(t, []int{3, 4, 5, 6, 8, 10, 12}, c.Thicknesses("Vidrio Templado"))
}

func TestGlassPriceMiss(t *testing.T) {
	c := mustDefault(t)

	_, err := c.GlassPrice("Nonexistent Glass", 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var lookup *LookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "glass", lookup.Kind)

	_, err = c.GlassPrice("Vidrio Templado", 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupMisses(t *testing.T) {
	c := mustDefault(t)

	_, err := c.GlassMultiplier("Vidrio Imaginario")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.StandardProduct("Policarbonato")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Frame(CategoryDoor, "Marco de madera")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Rule(Category("stairs"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, c.Components(Category("stairs")))
}

func TestCategoryRules(t *testing.T) {
	c := mustDefault(t)

	tests := []struct {
		cat  Category
		want PricingRule
	}{
		{CategoryScreen, RuleComponentsPlusGlass},
		{CategoryDoor, RuleGlassFrameOpening},
		{CategoryWindow, RuleGlassFrameOpening},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			got, err := c.Rule(tt.cat)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, tt.cat.Valid())
		})
	}
	assert.False(t, Category("stairs").Valid())
}

func TestDoorAutoHardwareTotal(t *testing.T) {
	c := mustDefault(t)

	sum := decimal.Zero
	for _, h := range c.AutoHardware(CategoryDoor) {
		assert.True(t, h.Required, h.Name)
		sum = sum.Add(h.UnitPrice.Mul(decimal.NewFromInt(int64(h.DefaultQuantity))))
	}
	assert.Equal(t, "190", sum.String())
}

func TestScreenRequiredComponent(t *testing.T) {
	c := mustDefault(t)

	var found bool
	for _, comp := range c.Components(CategoryScreen) {
		if comp.Name == "Ángulos Martinelli" {
			found = true
			assert.True(t, comp.Required)
			assert.Equal(t, 4, comp.MinQuantity)
		}
	}
	assert.True(t, found)
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	c := mustDefault(t)

	frames := c.FrameOptions(CategoryDoor)
	require.NotEmpty(t, frames)
	frames[0].Price = decimal.NewFromInt(9999)

	again := c.FrameOptions(CategoryDoor)
	assert.False(t, again[0].Price.Equal(decimal.NewFromInt(9999)))
}

func TestStandardProductsKeepDocumentOrder(t *testing.T) {
	c := mustDefault(t)

	products := c.StandardProducts()
	require.Len(t, products, 6)
	assert.Equal(t, "Vidrio Templado", products[0].Name)
	assert.Equal(t, "Vidrio Acústico", products[5].Name)
	assert.Equal(t, "m2", products[0].UnitOfMeasure)
}

func TestNewRejectsCorruptDocuments(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"unknown version", func(d *Document) { d.Version = 2 }},
		{"wrong rule", func(d *Document) { d.Categories[0].Rule = RuleGlassFrameOpening }},
		{"unknown category", func(d *Document) { d.Categories[0].Category = "stairs" }},
		{"negative price", func(d *Document) { d.StandardProducts[0].Price = "-1" }},
		{"invalid amount", func(d *Document) { d.Labor.PerM2Rate = "eighty" }},
		{"duplicate product", func(d *Document) { d.StandardProducts[1].Name = d.StandardProducts[0].Name }},
		{"quantity below minimum", func(d *Document) {
			comps := d.Categories[0].Components
			comps[len(comps)-1].Quantity = 2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DefaultDocument()
			require.NoError(t, err)
			tt.mutate(&doc)

			_, err = New(doc)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestParseYAML(t *testing.T) {
	c, err := Parse([]byte(`
version: 1
glass:
  - name: Crudo
    prices: {6: "75.00"}
labor: {per_m2_rate: "80", minimum: "50", default_cost: "200", default_travel: "0", default_margin_percent: "20"}
categories:
  - category: window
    rule: glass_frame_opening
    frames: [{name: Aluminio, price: "95"}]
`))
	require.NoError(t, err)

	spec, err := c.GlassPrice("Crudo", 6)
	require.NoError(t, err)
	assert.Equal(t, "75", spec.PricePerM2.String())
	assert.Equal(t, "window", c.CategoryName(CategoryWindow))

	_, err = Parse([]byte("version: [1"))
	assert.Error(t, err)
}
