package quote

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/validation"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func equalDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	assert.Truef(t, got.Equal(d(want)), "%s = %s, want %s", name, got, want)
}

func sequentialIDs() IDGenerator {
	var n atomic.Int64
	return IDFunc(func() string { return fmt.Sprintf("item-%d", n.Add(1)) })
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewBuilder(cat, sequentialIDs())
}

func TestBuildStandardExplicitPrice(t *testing.T) {
	b := newTestBuilder(t)

	item, err := b.BuildStandard(StandardRequest{
		Product:   "Vidrio Flotado",
		UnitPrice: "45",
		Width:     "1.5",
		Height:    "1.0",
		Quantity:  "2",
		GlassType: "Vidrio Crudo",
	})
	require.NoError(t, err)

	assert.Equal(t, "item-1", item.ID)
	equalDec(t, "price", item.Price(), "135.00")
	assert.Empty(t, item.Flags)
}

func TestBuildStandardCatalogPriceAndMultiplier(t *testing.T) {
	b := newTestBuilder(t)

	item, err := b.BuildStandard(StandardRequest{
		Product:   "espejo",
		Width:     "2",
		Height:    "0.5",
		Quantity:  "1",
		GlassType: "Espejo",
	})
	require.NoError(t, err)

	assert.Equal(t, "Espejo", item.Name)
	equalDec(t, "unit price", item.UnitPrice, "80")
	equalDec(t, "price", item.Price(), "104")
}

func TestBuildStandardDefaultsAndFlags(t *testing.T) {
	b := newTestBuilder(t)

	item, err := b.BuildStandard(StandardRequest{
		Product:   "Policarbonato",
		Width:     "1",
		Height:    "1",
		Quantity:  "",
		GlassType: "Vidrio Imaginario",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, Flags{
		{Code: FlagDefaulted, Field: "quantity"},
		{Code: FlagUnpriced, Field: "unit_price"},
		{Code: FlagUnpriced, Field: "glass_multiplier"},
	}, item.Flags)
	equalDec(t, "multiplier", item.GlassMultiplier, "1")
	assert.True(t, item.Warnings().Has(FlagUnpriced))
}

func TestBuildStandardRejectsBadDimensions(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.BuildStandard(StandardRequest{Product: "Espejo", Width: "", Height: "abc", Quantity: "-1"})
	require.ErrorIs(t, err, validation.ErrInvalid)
	assert.ElementsMatch(t, []string{"width", "height", "quantity"}, validation.Fields(err))

	_, err = b.BuildStandard(StandardRequest{Product: "Espejo", Width: "0", Height: "1"})
	require.ErrorIs(t, err, validation.ErrInvalid)
}

func TestBuildAutoDoor(t *testing.T) {
	b := newTestBuilder(t)

	item, err := b.BuildAutoDoorOrWindow(AutoRequest{
		Category:  catalog.CategoryDoor,
		Product:   "Puerta Batiente",
		Glass:     "Vidrio Templado",
		Thickness: "3",
		Width:     "1",
		Height:    "2.1",
		Quantity:  "1",
		Frame:     "Marco de aluminio",
		Travel:    "0",
		Margin:    "25",
	})
	require.NoError(t, err)

	br := item.Breakdown
	assert.Equal(t, PathAuto, item.Path)
	equalDec(t, "glass", br.GlassTotalCost, "178.50")
	equalDec(t, "frame", br.FrameCost, "120")
	equalDec(t, "hardware", br.OpeningCost, "190")
	equalDec(t, "labor", br.LaborCost, "168")
	equalDec(t, "margin", br.ProfitMarginAmount, "164.13")
	equalDec(t, "total", br.Total, "820.63")
	equalDec(t, "price", item.Price(), "820.63")
	assert.Len(t, item.Hardware, 4)
	assert.Empty(t, item.Flags)
}

func TestBuildAutoAgreedPrice(t *testing.T) {
	b := newTestBuilder(t)

	item, err := b.BuildAutoDoorOrWindow(AutoRequest{
		Category:    catalog.CategoryDoor,
		Glass:       "Vidrio Templado",
		Thickness:   "3mm",
		Width:       "1",
		Height:      "2.1",
		Quantity:    "2",
		Frame:       "Marco de aluminio",
		Travel:      "0",
		Margin:      "25",
		AgreedPrice: "600",
	})
	require.NoError(t, err)

	equalDec(t, "real profit", item.Breakdown.RealProfit.Decimal, "-56.50")
	equalDec(t, "real profit %", item.Breakdown.RealProfitPercentage.Decimal, "-8.61")
	assert.True(t, item.Breakdown.IsLoss)
	equalDec(t, "price", item.Price(), "1200")
	assert.Equal(t, "Puerta Batiente", item.Name)
}

func TestBuildAutoGlassMissIsFlagged(t *testing.T) {
	b := newTestBuilder(t)

	item, err := b.BuildAutoDoorOrWindow(AutoRequest{
		Category:  catalog.CategoryWindow,
		Glass:     "Nonexistent Glass",
		Thickness: "6",
		Width:     "1",
		Height:    "1",
		Frame:     "Marco de aluminio",
	})
	require.NoError(t, err)

	assert.Contains(t, item.Flags, Flag{Code: FlagUnpriced, Field: "glass_cost_per_area"})
	assert.Contains(t, item.Flags, Flag{Code: FlagDefaulted, Field: "travel_cost"})
	assert.Contains(t, item.Flags, Flag{Code: FlagDefaulted, Field: "profit_margin_percentage"})
	equalDec(t, "glass", item.Breakdown.GlassTotalCost, "0")
	equalDec(t, "labor floor", item.Breakdown.LaborCost, "80")
}

func TestBuildAutoRejectsScreen(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.BuildAutoDoorOrWindow(AutoRequest{
		Category: catalog.CategoryScreen,
		Width:    "1",
		Height:   "1",
	})
	require.ErrorIs(t, err, validation.ErrInvalid)
	assert.ElementsMatch(t, []string{"category", "frame"}, validation.Fields(err))
}
