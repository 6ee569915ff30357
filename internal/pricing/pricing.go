// Package pricing computes line prices and cost breakdowns for standard and
// configured items. All functions are pure and operate on exact decimals.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/validation"
)

// ErrInconsistent is matched when a stored breakdown no longer adds up.
var ErrInconsistent = errors.New("inconsistent cost breakdown")

var hundred = decimal.NewFromInt(100)

// Round rounds to 2 decimals, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CostBreakdown contains every intermediate value of a configured item price.
// It is frozen when the item is committed.
type CostBreakdown struct {
	GlassArea              decimal.Decimal     `json:"glass_area"`
	GlassCostPerArea       decimal.Decimal     `json:"glass_cost_per_area"`
	GlassTotalCost         decimal.Decimal     `json:"glass_total_cost"`
	ComponentsCost         decimal.Decimal     `json:"components_cost"`
	FrameCost              decimal.Decimal     `json:"frame_cost"`
	OpeningCost            decimal.Decimal     `json:"opening_cost"`
	MaterialsCost          decimal.Decimal     `json:"materials_cost"`
	LaborCost              decimal.Decimal     `json:"labor_cost"`
	TravelCost             decimal.Decimal     `json:"travel_cost"`
	ProfitMarginPercentage decimal.Decimal     `json:"profit_margin_percentage"`
	ProfitMarginAmount     decimal.Decimal     `json:"profit_margin_amount"`
	Total                  decimal.Decimal     `json:"total"`
	AgreedPrice            decimal.NullDecimal `json:"agreed_price"`
	RealProfit             decimal.NullDecimal `json:"real_profit"`
	RealProfitPercentage   decimal.NullDecimal `json:"real_profit_percentage"`
	IsLoss                 bool                `json:"is_loss"`
}

// BaseCost is materials + labor + travel.
func (b CostBreakdown) BaseCost() decimal.Decimal {
	return b.MaterialsCost.Add(b.LaborCost).Add(b.TravelCost)
}

// ChargedTotal is the agreed price when one was set, otherwise the total.
func (b CostBreakdown) ChargedTotal() decimal.Decimal {
	if b.AgreedPrice.Valid {
		return b.AgreedPrice.Decimal
	}
	return b.Total
}

// Verify checks the arithmetic identities of a breakdown.
func (b CostBreakdown) Verify() error {
	materials := b.GlassTotalCost.Add(b.ComponentsCost).Add(b.FrameCost).Add(b.OpeningCost)
	if !materials.Equal(b.MaterialsCost) {
		return fmt.Errorf("%w: materials %s != parts %s", ErrInconsistent, b.MaterialsCost, materials)
	}
	if !b.GlassArea.Mul(b.GlassCostPerArea).Equal(b.GlassTotalCost) {
		return fmt.Errorf("%w: glass total %s", ErrInconsistent, b.GlassTotalCost)
	}
	if want := margin(b.BaseCost(), b.ProfitMarginPercentage); !want.Equal(b.ProfitMarginAmount) {
		return fmt.Errorf("%w: margin %s, want %s", ErrInconsistent, b.ProfitMarginAmount, want)
	}
	if total := b.BaseCost().Add(b.ProfitMarginAmount); !total.Equal(b.Total) {
		return fmt.Errorf("%w: total %s, want %s", ErrInconsistent, b.Total, total)
	}
	if !b.AgreedPrice.Valid {
		if b.RealProfit.Valid || b.RealProfitPercentage.Valid || b.IsLoss {
			return fmt.Errorf("%w: real profit without agreed price", ErrInconsistent)
		}
		return nil
	}
	profit := b.AgreedPrice.Decimal.Sub(b.BaseCost())
	if !b.RealProfit.Valid || !b.RealProfit.Decimal.Equal(profit) || b.IsLoss != profit.IsNegative() {
		return fmt.Errorf("%w: real profit does not match agreed price", ErrInconsistent)
	}
	return nil
}

// Costs are the labor, travel and margin inputs shared by every rule.
type Costs struct {
	Labor         decimal.Decimal
	Travel        decimal.Decimal
	MarginPercent decimal.Decimal
}

// ComponentLine is one row of a screen bill of materials.
type ComponentLine struct {
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Selected    bool            `json:"selected"`
	Required    bool            `json:"required,omitempty"`
	MinQuantity int             `json:"min_quantity,omitempty"`
}

// Check enforces the required-component floor.
func (l ComponentLine) Check() error {
	field := "components." + l.Name
	if l.Required && !l.Selected {
		return validation.Errorf(field, "is required and cannot be removed")
	}
	if !l.Selected {
		return nil
	}
	if l.Quantity <= 0 {
		return validation.Errorf(field, "quantity must be greater than 0")
	}
	if l.Required && l.Quantity < l.MinQuantity {
		return validation.Errorf(field, "quantity must be at least %d", l.MinQuantity)
	}
	return nil
}

// Cost is unit price × quantity for a selected line, 0 otherwise.
func (l ComponentLine) Cost() decimal.Decimal {
	if !l.Selected {
		return decimal.Zero
	}
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type ScreenInput struct {
	Width            decimal.Decimal
	Height           decimal.Decimal
	GlassCostPerArea decimal.Decimal
	Components       []ComponentLine
	Costs            Costs
}

type DoorWindowInput struct {
	Width            decimal.Decimal
	Height           decimal.Decimal
	GlassCostPerArea decimal.Decimal
	FramePrice       decimal.Decimal
	OpeningPrice     decimal.Decimal
	Costs            Costs
}

// PriceStandardItem returns unitPrice × width × height × quantity × multiplier.
// A zero multiplier means 1.
func PriceStandardItem(unitPrice, width, height decimal.Decimal, quantity int, multiplier decimal.Decimal) (decimal.Decimal, error) {
	var c validation.Collector
	c.Add(positive("width", width))
	c.Add(positive("height", height))
	c.Check(quantity > 0, "quantity", "must be greater than 0")
	c.Check(!unitPrice.IsNegative(), "unit_price", "must not be negative")
	if err := c.Err(); err != nil {
		return decimal.Decimal{}, err
	}
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}
	return unitPrice.Mul(width).Mul(height).Mul(decimal.NewFromInt(int64(quantity))).Mul(multiplier), nil
}

// PriceScreen prices a components_plus_glass assembly.
func PriceScreen(in ScreenInput) (CostBreakdown, error) {
	var c validation.Collector
	c.Add(positive("width", in.Width))
	c.Add(positive("height", in.Height))
	components := decimal.Zero
	for _, line := range in.Components {
		c.Add(line.Check())
		components = components.Add(line.Cost())
	}
	c.Add(checkCosts(in.Costs))
	c.Check(!in.GlassCostPerArea.IsNegative(), "glass_cost_per_area", "must not be negative")
	if err := c.Err(); err != nil {
		return CostBreakdown{}, err
	}

	b := glass(in.Width, in.Height, in.GlassCostPerArea)
	b.ComponentsCost = components
	b.MaterialsCost = b.GlassTotalCost.Add(components)
	return finish(b, in.Costs), nil
}

// PriceDoorOrWindow prices a glass_frame_opening assembly.
func PriceDoorOrWindow(in DoorWindowInput) (CostBreakdown, error) {
	var c validation.Collector
	c.Add(positive("width", in.Width))
	c.Add(positive("height", in.Height))
	c.Check(!in.GlassCostPerArea.IsNegative(), "glass_cost_per_area", "must not be negative")
	c.Check(!in.FramePrice.IsNegative(), "frame", "price must not be negative")
	c.Check(!in.OpeningPrice.IsNegative(), "opening", "price must not be negative")
	c.Add(checkCosts(in.Costs))
	if err := c.Err(); err != nil {
		return CostBreakdown{}, err
	}

	b := glass(in.Width, in.Height, in.GlassCostPerArea)
	b.FrameCost = in.FramePrice
	b.OpeningCost = in.OpeningPrice
	b.MaterialsCost = b.GlassTotalCost.Add(in.FramePrice).Add(in.OpeningPrice)
	return finish(b, in.Costs), nil
}

// AutoLabor returns max(area × perM2Rate, floor).
func AutoLabor(area, perM2Rate, floor decimal.Decimal) decimal.Decimal {
	return decimal.Max(area.Mul(perM2Rate), floor)
}

// ApplyAgreedPrice records a negotiated price on b. Materials, labor and
// travel are left untouched.
func ApplyAgreedPrice(b CostBreakdown, agreed decimal.Decimal) (CostBreakdown, error) {
	if agreed.IsNegative() {
		return b, validation.Errorf("agreed_price", "must not be negative")
	}
	base := b.BaseCost()
	profit := agreed.Sub(base)

	b.AgreedPrice = decimal.NewNullDecimal(agreed)
	b.RealProfit = decimal.NewNullDecimal(profit)
	b.RealProfitPercentage = decimal.NullDecimal{}
	if !base.IsZero() {
		b.RealProfitPercentage = decimal.NewNullDecimal(Round(profit.Div(base).Mul(hundred)))
	}
	b.IsLoss = profit.IsNegative()
	return b, nil
}

// ClearAgreedPrice drops a negotiated price.
func ClearAgreedPrice(b CostBreakdown) CostBreakdown {
	b.AgreedPrice = decimal.NullDecimal{}
	b.RealProfit = decimal.NullDecimal{}
	b.RealProfitPercentage = decimal.NullDecimal{}
	b.IsLoss = false
	return b
}

func glass(width, height, perArea decimal.Decimal) CostBreakdown {
	area := width.Mul(height)
	return CostBreakdown{
		GlassArea:        area,
		GlassCostPerArea: perArea,
		GlassTotalCost:   area.Mul(perArea),
	}
}

func finish(b CostBreakdown, costs Costs) CostBreakdown {
	b.LaborCost = costs.Labor
	b.TravelCost = costs.Travel
	b.ProfitMarginPercentage = costs.MarginPercent
	b.ProfitMarginAmount = margin(b.BaseCost(), costs.MarginPercent)
	b.Total = b.BaseCost().Add(b.ProfitMarginAmount)
	return b
}

func margin(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

func checkCosts(c Costs) error {
	var v validation.Collector
	v.Check(!c.Labor.IsNegative(), "labor_cost", "must not be negative")
	v.Check(!c.Travel.IsNegative(), "travel_cost", "must not be negative")
	v.Check(!c.MarginPercent.IsNegative(), "profit_margin_percentage", "must not be negative")
	return v.Err()
}

func positive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return validation.Errorf(field, "must be greater than 0")
	}
	return nil
}
