package quote

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/pricing"
	"github.com/Simplici0/vidrieria/internal/validation"
)

// IDGenerator hands out line item identities.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

// UUIDs generates random v4 UUIDs.
var UUIDs IDGenerator = IDFunc(uuid.NewString)

// Builder turns raw operator input into priced line items. It is safe for
// concurrent use.
type Builder struct {
	catalog *catalog.Catalog
	ids     IDGenerator
}

// NewBuilder returns a builder over cat. A nil ids uses UUIDs.
func NewBuilder(cat *catalog.Catalog, ids IDGenerator) *Builder {
	if ids == nil {
		ids = UUIDs
	}
	return &Builder{catalog: cat, ids: ids}
}

// Catalog returns the catalog the builder prices against.
func (b *Builder) Catalog() *catalog.Catalog { return b.catalog }

// StandardRequest carries the raw form fields of a standard item.
type StandardRequest struct {
	Product   string `json:"product"`
	UnitPrice string `json:"unit_price"`
	Width     string `json:"width"`
	Height    string `json:"height"`
	Quantity  string `json:"quantity"`
	GlassType string `json:"glass_type"`
}

// BuildStandard prices a standard item. An empty unit price takes the catalog
// price; a product absent from the catalog is priced 0 and flagged.
func (b *Builder) BuildStandard(req StandardRequest) (StandardItem, error) {
	var (
		v     validation.Collector
		flags Flags
	)
	name := strings.TrimSpace(req.Product)
	v.Check(name != "", "product", "is required")
	width, werr := requiredDecimal("width", req.Width)
	v.Add(werr)
	height, herr := requiredDecimal("height", req.Height)
	v.Add(herr)
	qty, defaulted, qerr := quantity(req.Quantity)
	v.Add(qerr)
	if defaulted {
		flags = flags.set(FlagDefaulted, "quantity")
	}
	if err := v.Err(); err != nil {
		return StandardItem{}, err
	}

	unit := "m2"
	price := decimal.Zero
	spec, lookupErr := b.catalog.StandardProduct(name)
	if lookupErr == nil {
		name = spec.Name
		unit = spec.UnitOfMeasure
		price = spec.Price
	}
	switch raw := strings.TrimSpace(req.UnitPrice); {
	case raw == "" && lookupErr != nil:
		flags = flags.set(FlagUnpriced, "unit_price")
	case raw == "":
	default:
		if p, ok := parseDecimal(raw); ok {
			price = p
		} else if lookupErr != nil {
			flags = flags.set(FlagUnpriced, "unit_price")
		} else {
			flags = flags.set(FlagDefaulted, "unit_price")
		}
	}

	multiplier := decimal.NewFromInt(1)
	glassType := strings.TrimSpace(req.GlassType)
	if glassType != "" {
		m, err := b.catalog.GlassMultiplier(glassType)
		if err != nil {
			flags = flags.set(FlagUnpriced, "glass_multiplier")
		} else {
			multiplier = m
		}
	}

	if _, err := pricing.PriceStandardItem(price, width, height, qty, multiplier); err != nil {
		return StandardItem{}, err
	}
	return StandardItem{
		ID:              b.ids.NewID(),
		Name:            name,
		UnitPrice:       price,
		Width:           width,
		Height:          height,
		Quantity:        qty,
		UnitOfMeasure:   unit,
		GlassType:       glassType,
		GlassMultiplier: multiplier,
		Flags:           flags,
	}, nil
}

// AutoRequest carries the raw fields of an automatically priced door or
// window: fixed hardware, labor by area, frame chosen by the operator.
type AutoRequest struct {
	Category    catalog.Category `json:"category"`
	Product     string           `json:"product"`
	Glass       string           `json:"glass"`
	Thickness   string           `json:"thickness"`
	Width       string           `json:"width"`
	Height      string           `json:"height"`
	Quantity    string           `json:"quantity"`
	Frame       string           `json:"frame"`
	Travel      string           `json:"travel"`
	Margin      string           `json:"margin"`
	AgreedPrice string           `json:"agreed_price"`
}

// BuildAutoDoorOrWindow prices a door or window from its fixed hardware bill
// of materials. Hardware is summed into the opening price and labor is
// max(area × rate, minimum).
func (b *Builder) BuildAutoDoorOrWindow(req AutoRequest) (ConfiguredItem, error) {
	var (
		v     validation.Collector
		flags Flags
	)
	v.Check(req.Category == catalog.CategoryDoor || req.Category == catalog.CategoryWindow,
		"category", "must be door or window")
	width, werr := requiredDecimal("width", req.Width)
	v.Add(werr)
	height, herr := requiredDecimal("height", req.Height)
	v.Add(herr)
	qty, defaulted, qerr := quantity(req.Quantity)
	v.Add(qerr)
	if defaulted {
		flags = flags.set(FlagDefaulted, "quantity")
	}
	frameName := strings.TrimSpace(req.Frame)
	v.Check(frameName != "", "frame", "is required")
	if err := v.Err(); err != nil {
		return ConfiguredItem{}, err
	}

	name, series, perr := b.product(req.Category, req.Product)
	if perr != nil {
		flags = flags.set(FlagUnpriced, "product")
	}

	glass, glassPrice, glassFlags, err := b.glass(req.Glass, req.Thickness)
	if err != nil {
		return ConfiguredItem{}, err
	}
	flags = append(flags, glassFlags...)

	framePrice := decimal.Zero
	if frame, err := b.catalog.Frame(req.Category, frameName); err != nil {
		flags = flags.set(FlagUnpriced, "frame")
	} else {
		frameName = frame.Name
		framePrice = frame.Price
	}

	hardware := b.catalog.AutoHardware(req.Category)
	lines := make([]pricing.ComponentLine, 0, len(hardware))
	opening := decimal.Zero
	for _, h := range hardware {
		line := pricing.ComponentLine{
			Name:        h.Name,
			UnitPrice:   h.UnitPrice,
			Quantity:    h.DefaultQuantity,
			Selected:    true,
			Required:    h.Required,
			MinQuantity: h.MinQuantity,
		}
		opening = opening.Add(line.Cost())
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		flags = flags.set(FlagUnpriced, "hardware")
	}

	rates := b.catalog.Labor()
	labor := pricing.AutoLabor(width.Mul(height), rates.PerM2Rate, rates.Minimum)
	travel, flags := orDefault(flags, "travel_cost", req.Travel, rates.DefaultTravel)
	margin, flags := orDefault(flags, "profit_margin_percentage", req.Margin, rates.DefaultMarginPercent)

	breakdown, err := pricing.PriceDoorOrWindow(pricing.DoorWindowInput{
		Width:            width,
		Height:           height,
		GlassCostPerArea: glassPrice,
		FramePrice:       framePrice,
		OpeningPrice:     opening,
		Costs:            pricing.Costs{Labor: labor, Travel: travel, MarginPercent: margin},
	})
	if err != nil {
		return ConfiguredItem{}, err
	}
	if breakdown, err = agree(breakdown, req.AgreedPrice); err != nil {
		return ConfiguredItem{}, err
	}

	return ConfiguredItem{
		ID:        b.ids.NewID(),
		Name:      name,
		Series:    series,
		Category:  req.Category,
		Glass:     glass,
		Width:     width,
		Height:    height,
		Quantity:  qty,
		Hardware:  lines,
		Frame:     frameName,
		Path:      PathAuto,
		Breakdown: breakdown,
		Flags:     flags,
	}, nil
}

// product resolves a configurable product name. A miss still returns the raw
// name together with the lookup error so the caller can flag it.
func (b *Builder) product(cat catalog.Category, raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		products := b.catalog.ConfigurableProducts(cat)
		if len(products) > 0 {
			return products[0].Name, products[0].Series, nil
		}
		return b.catalog.CategoryName(cat), "", nil
	}
	p, err := b.catalog.ConfigurableProduct(cat, raw)
	if err != nil {
		return raw, "", err
	}
	return p.Name, p.Series, nil
}

// glass resolves a glass selection. An empty name means no glass. A catalog
// miss prices the glass at 0 and flags it.
func (b *Builder) glass(name, thickness string) (GlassSelection, decimal.Decimal, Flags, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return GlassSelection{}, decimal.Zero, nil, nil
	}
	mm, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(thickness), "mm")))
	if err != nil || mm <= 0 {
		return GlassSelection{}, decimal.Zero, nil, validation.Errorf("thickness", "must be a positive number of millimetres")
	}
	sel := GlassSelection{Name: name, ThicknessMM: mm}
	spec, err := b.catalog.GlassPrice(name, mm)
	if err != nil {
		return sel, decimal.Zero, Flags{{Code: FlagUnpriced, Field: "glass_cost_per_area"}}, nil
	}
	sel.Name = spec.Name
	return sel, spec.PricePerM2, nil, nil
}

func agree(b pricing.CostBreakdown, raw string) (pricing.CostBreakdown, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pricing.ClearAgreedPrice(b), nil
	}
	price, ok := parseDecimal(raw)
	if !ok {
		return b, validation.Errorf("agreed_price", "must be a number")
	}
	return pricing.ApplyAgreedPrice(b, price)
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func requiredDecimal(field, raw string) (decimal.Decimal, error) {
	d, ok := parseDecimal(raw)
	if !ok {
		return decimal.Decimal{}, validation.Errorf(field, "must be a number")
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, validation.Errorf(field, "must be greater than 0")
	}
	return d, nil
}

// quantity parses a raw quantity. Empty or unparsable input defaults to 1.
func quantity(raw string) (int, bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1, true, nil
	}
	if n <= 0 {
		return 0, false, validation.Errorf("quantity", "must be greater than 0")
	}
	return n, false, nil
}

// orDefault parses an amount, falling back to def and flagging field for
// empty or unparsable input. Negative amounts are left for pricing to reject.
func orDefault(flags Flags, field, raw string, def decimal.Decimal) (decimal.Decimal, Flags) {
	d, ok := parseDecimal(raw)
	if !ok {
		return def, flags.set(FlagDefaulted, field)
	}
	return d, flags
}
