package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/pricing"
)

func autoDoor(t *testing.T) ConfiguredItem {
	t.Helper()
	item, err := newTestBuilder(t).BuildAutoDoorOrWindow(AutoRequest{
		Category:    catalog.CategoryDoor,
		Glass:       "Vidrio Templado",
		Thickness:   "3",
		Width:       "1",
		Height:      "2.1",
		Frame:       "Marco de aluminio",
		Travel:      "0",
		Margin:      "25",
		AgreedPrice: "600",
	})
	require.NoError(t, err)
	return item
}

func TestItemEnvelopeKeepsBreakdown(t *testing.T) {
	item := autoDoor(t)

	data, err := MarshalItem(item)
	require.NoError(t, err)
	back, err := UnmarshalItem(data)
	require.NoError(t, err)

	got, ok := back.(ConfiguredItem)
	require.True(t, ok)
	want := item.Breakdown
	for name, pair := range map[string][2]string{
		"glass area":  {got.Breakdown.GlassArea.String(), want.GlassArea.String()},
		"glass total": {got.Breakdown.GlassTotalCost.String(), want.GlassTotalCost.String()},
		"materials":   {got.Breakdown.MaterialsCost.String(), want.MaterialsCost.String()},
		"margin":      {got.Breakdown.ProfitMarginAmount.String(), want.ProfitMarginAmount.String()},
		"total":       {got.Breakdown.Total.String(), want.Total.String()},
		"agreed":      {got.Breakdown.AgreedPrice.Decimal.String(), want.AgreedPrice.Decimal.String()},
		"real profit": {got.Breakdown.RealProfitPercentage.Decimal.String(), want.RealProfitPercentage.Decimal.String()},
	} {
		assert.Equal(t, pair[1], pair[0], name)
	}
	assert.True(t, got.Breakdown.IsLoss)
	assert.Equal(t, item.Hardware[0].Name, got.Hardware[0].Name)
	assert.Equal(t, item.Price().String(), got.Price().String())
}

func TestItemEnvelopeStandard(t *testing.T) {
	item := standardItem("a", "45")
	item.Flags = Flags{{Code: FlagDefaulted, Field: "quantity"}}

	data, err := MarshalItem(item)
	require.NoError(t, err)
	back, err := UnmarshalItem(data)
	require.NoError(t, err)

	got, ok := back.(StandardItem)
	require.True(t, ok)
	assert.Equal(t, item.Flags, got.Flags)
	equalDec(t, "price", got.Price(), "45")
}

func TestUnmarshalRejectsTamperedBreakdown(t *testing.T) {
	item := autoDoor(t)
	item.Breakdown.Total = d("1")

	data, err := MarshalItem(item)
	require.NoError(t, err)
	_, err = UnmarshalItem(data)
	assert.ErrorIs(t, err, pricing.ErrInconsistent)

	_, err = UnmarshalItem([]byte(`{"kind":"bundle","item":{}}`))
	assert.Error(t, err)
}
