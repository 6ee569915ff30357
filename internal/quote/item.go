package quote

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/pricing"
	"github.com/Simplici0/vidrieria/internal/validation"
)

// FlagCode says why a line item field did not come from the operator as-is.
type FlagCode string

const (
	// FlagDefaulted: an empty or unparsable input was replaced by its default.
	FlagDefaulted FlagCode = "defaulted"
	// FlagUnpriced: a catalog lookup missed and the price was taken as 0.
	FlagUnpriced FlagCode = "unpriced"
)

// Flag marks one field of a line item.
type Flag struct {
	Code  FlagCode `json:"code"`
	Field string   `json:"field"`
}

// Flags is an ordered set of flags keyed by field.
type Flags []Flag

// Has reports whether any flag carries code.
func (f Flags) Has(code FlagCode) bool {
	for _, fl := range f {
		if fl.Code == code {
			return true
		}
	}
	return false
}

func (f Flags) set(code FlagCode, field string) Flags {
	out := f.clear(field)
	return append(out, Flag{Code: code, Field: field})
}

func (f Flags) clear(field string) Flags {
	out := make(Flags, 0, len(f))
	for _, fl := range f {
		if fl.Field != field {
			out = append(out, fl)
		}
	}
	return out
}

// Kind distinguishes the two line item variants.
type Kind string

const (
	KindStandard   Kind = "standard"
	KindConfigured Kind = "configured"
)

// LineItem is implemented by StandardItem and ConfiguredItem only.
type LineItem interface {
	ItemID() string
	Kind() Kind
	Title() string
	Units() int
	// Price is the line total: unit price × units for standard items, the
	// charged breakdown total × units for configured ones.
	Price() decimal.Decimal
	Warnings() Flags
	// Validate checks the invariants every priced item holds. Failures are
	// validation errors keyed by item field.
	Validate() error
	lineItem()
}

// StandardItem is a cut-to-size catalog product priced by area.
type StandardItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Width           decimal.Decimal `json:"width"`
	Height          decimal.Decimal `json:"height"`
	Quantity        int             `json:"quantity"`
	UnitOfMeasure   string          `json:"unit_of_measure"`
	GlassType       string          `json:"glass_type,omitempty"`
	GlassMultiplier decimal.Decimal `json:"glass_multiplier"`
	Flags           Flags           `json:"flags,omitempty"`
}

func (s StandardItem) ItemID() string { return s.ID }
func (s StandardItem) Kind() Kind { return KindStandard }
func (s StandardItem) Title() string { return s.Name }
func (s StandardItem) Units() int { return s.Quantity }
func (s StandardItem) Warnings() Flags { return append(Flags(nil), s.Flags...) }
func (StandardItem) lineItem() {}

// Area is width × height.
func (s StandardItem) Area() decimal.Decimal { return s.Width.Mul(s.Height) }

func (s StandardItem) Validate() error {
	var v validation.Collector
	v.Check(strings.TrimSpace(s.Name) != "", "product", "is required")
	v.Check(s.Width.IsPositive(), "width", "must be greater than 0")
	v.Check(s.Height.IsPositive(), "height", "must be greater than 0")
	v.Check(s.Quantity > 0, "quantity", "must be greater than 0")
	v.Check(!s.UnitPrice.IsNegative(), "unit_price", "must not be negative")
	v.Check(s.GlassMultiplier.IsPositive(), "glass_multiplier", "must be greater than 0")
	return v.Err()
}

func (s StandardItem) Price() decimal.Decimal {
	m := s.GlassMultiplier
	if m.IsZero() {
		m = decimal.NewFromInt(1)
	}
	return s.UnitPrice.Mul(s.Width).Mul(s.Height).Mul(decimal.NewFromInt(int64(s.Quantity))).Mul(m)
}

// PricingPath tells how a configured door or window was priced.
type PricingPath string

const (
	PathManual PricingPath = "manual"
	PathAuto   PricingPath = "auto"
)

// GlassSelection is the glass chosen for a configured item. An empty name
// means no glass.
type GlassSelection struct {
	Name        string `json:"name,omitempty"`
	ThicknessMM int    `json:"thickness_mm,omitempty"`
}

func (g GlassSelection) String() string {
	if g.Name == "" {
		return "Sin vidrio"
	}
	return fmt.Sprintf("%s %dmm", g.Name, g.ThicknessMM)
}

// ConfiguredItem is a screen, door or window priced through a cost
// breakdown. The breakdown is the source of truth once committed.
type ConfiguredItem struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Series     string                  `json:"series,omitempty"`
	Category   catalog.Category        `json:"category"`
	Glass      GlassSelection          `json:"glass"`
	Width      decimal.Decimal         `json:"width"`
	Height     decimal.Decimal         `json:"height"`
	Quantity   int                     `json:"quantity"`
	Components []pricing.ComponentLine `json:"components,omitempty"`
	Hardware   []pricing.ComponentLine `json:"hardware,omitempty"`
	Frame      string                  `json:"frame,omitempty"`
	Opening    string                  `json:"opening,omitempty"`
	Lock       string                  `json:"lock,omitempty"`
	Path       PricingPath             `json:"path"`
	Breakdown  pricing.CostBreakdown   `json:"breakdown"`
	Flags      Flags                   `json:"flags,omitempty"`
}

func (c ConfiguredItem) ItemID() string { return c.ID }
func (c ConfiguredItem) Kind() Kind { return KindConfigured }
func (c ConfiguredItem) Title() string { return c.Name }
func (c ConfiguredItem) Units() int { return c.Quantity }
func (c ConfiguredItem) Warnings() Flags { return append(Flags(nil), c.Flags...) }
func (ConfiguredItem) lineItem() {}

// Validate checks dimensions, the bill of materials and the frozen breakdown.
// The breakdown must add up and its glass area must be width × height.
func (c ConfiguredItem) Validate() error {
	var v validation.Collector
	b := c.Breakdown
	v.Check(c.Category.Valid(), "category", "is unknown")
	v.Check(c.Path == PathManual || c.Path == PathAuto, "path", "is unknown")
	v.Check(c.Width.IsPositive(), "width", "must be greater than 0")
	v.Check(c.Height.IsPositive(), "height", "must be greater than 0")
	v.Check(c.Quantity > 0, "quantity", "must be greater than 0")
	v.Check(b.GlassArea.Equal(c.Width.Mul(c.Height)), "breakdown.glass_area", "must equal width × height")
	for _, f := range []struct {
		name   string
		amount decimal.Decimal
	}{
		{"glass_cost_per_area", b.GlassCostPerArea},
		{"frame_cost", b.FrameCost},
		{"opening_cost", b.OpeningCost},
		{"labor_cost", b.LaborCost},
		{"travel_cost", b.TravelCost},
		{"profit_margin_percentage", b.ProfitMarginPercentage},
	} {
		v.Check(!f.amount.IsNegative(), "breakdown."+f.name, "must not be negative")
	}

	components := decimal.Zero
	for _, line := range c.Components {
		v.Add(line.Check())
		components = components.Add(line.Cost())
	}
	v.Check(components.Equal(b.ComponentsCost), "breakdown.components_cost", "must equal the selected components")
	if c.Path == PathAuto {
		hardware := decimal.Zero
		for _, line := range c.Hardware {
			hardware = hardware.Add(line.Cost())
		}
		v.Check(hardware.Equal(b.OpeningCost), "breakdown.opening_cost", "must equal the hardware bill")
	}
	if err := b.Verify(); err != nil {
		v.Add(validation.Errorf("breakdown", "%v", err))
	}
	return v.Err()
}

func (c ConfiguredItem) Price() decimal.Decimal {
	return c.Breakdown.ChargedTotal().Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type envelope struct {
	Kind Kind            `json:"kind"`
	Item json.RawMessage `json:"item"`
}

// MarshalItem encodes a line item with its kind so it can be decoded back
// into the right variant.
func MarshalItem(item LineItem) ([]byte, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode line item: %w", err)
	}
	return json.Marshal(envelope{Kind: item.Kind(), Item: raw})
}

// UnmarshalItem decodes an item written by MarshalItem. Items that fail
// Validate are rejected, and a configured breakdown that does not add up
// matches pricing.ErrInconsistent.
func UnmarshalItem(data []byte) (LineItem, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode line item: %w", err)
	}
	switch env.Kind {
	case KindStandard:
		var s StandardItem
		if err := json.Unmarshal(env.Item, &s); err != nil {
			return nil, fmt.Errorf("decode standard item: %w", err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("standard item %s: %w", s.ID, err)
		}
		return s, nil
	case KindConfigured:
		var c ConfiguredItem
		if err := json.Unmarshal(env.Item, &c); err != nil {
			return nil, fmt.Errorf("decode configured item: %w", err)
		}
		if err := c.Breakdown.Verify(); err != nil {
			return nil, fmt.Errorf("configured item %s: %w", c.ID, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("configured item %s: %w", c.ID, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("decode line item: unknown kind %q", env.Kind)
	}
}
