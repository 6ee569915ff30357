// Package catalog exposes the read-only reference data used to price quotes:
// glass price tables, standard products, hardware components and the
// frame/opening/lock options of each configurable category.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is matched by every lookup miss.
var ErrNotFound = errors.New("catalog entry not found")

// ErrCorrupt is matched when a catalog document cannot be trusted.
var ErrCorrupt = errors.New("corrupt catalog data")

// LookupError reports a missing catalog key.
type LookupError struct {
	Kind string
	Key  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found in catalog", e.Kind, e.Key)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrNotFound
}

// Category is one of the configurable product families.
type Category string

const (
	CategoryScreen Category = "screen"
	CategoryDoor   Category = "door"
	CategoryWindow Category = "window"
)

// Categories lists every configurable category in display order.
func Categories() []Category {
	return []Category{CategoryScreen, CategoryDoor, CategoryWindow}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryRules[c]
	return ok
}

// PricingRule names the cost formula bound to a category.
type PricingRule string

const (
	// RuleComponentsPlusGlass: materials = selected components + glass area × price/m².
	RuleComponentsPlusGlass PricingRule = "components_plus_glass"
	// RuleGlassFrameOpening: materials = glass area × price/m² + frame + opening/lock.
	RuleGlassFrameOpening PricingRule = "glass_frame_opening"
)

var categoryRules = map[Category]PricingRule{
	CategoryScreen: RuleComponentsPlusGlass,
	CategoryDoor:   RuleGlassFrameOpening,
	CategoryWindow: RuleGlassFrameOpening,
}

// GlassSpec is a glass price for one thickness.
type GlassSpec struct {
	Name        string
	ThicknessMM int
	PricePerM2  decimal.Decimal
}

// GlassType is the legacy per-name multiplier over a standard product price.
type GlassType struct {
	Name       string
	Multiplier decimal.Decimal
}

type ComponentSpec struct {
	Name            string
	UnitPrice       decimal.Decimal
	DefaultQuantity int
	Required        bool
	MinQuantity     int
}

// Option is a priced add-on: a frame type, an opening system or a lock type.
type Option struct {
	Name  string
	Price decimal.Decimal
}

type StandardProductSpec struct {
	Name          string
	Price         decimal.Decimal
	UnitOfMeasure string
}

type ConfigurableProduct struct {
	Category Category
	Name     string
	Series   string
}

// LaborRates holds labor, travel and margin defaults.
type LaborRates struct {
	PerM2Rate            decimal.Decimal
	Minimum              decimal.Decimal
	DefaultCost          decimal.Decimal
	DefaultTravel        decimal.Decimal
	DefaultMarginPercent decimal.Decimal
}

type categorySpec struct {
	name         string
	rule         PricingRule
	products     []ConfigurableProduct
	components   []ComponentSpec
	autoHardware []ComponentSpec
	frames       []Option
	openings     []Option
	locks        []Option
}

type glassKey struct {
	name      string
	thickness int
}

// Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	version    int
	glass      map[glassKey]GlassSpec
	glassNames []string
	glassTypes map[string]GlassType
	typeOrder  []string
	standard   map[string]StandardProductSpec
	stdOrder   []string
	categories map[Category]categorySpec
	labor      LaborRates
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Version returns the schema version the catalog was built from.
func (c *Catalog) Version() int { return c.version }

// GlassPrice returns the price per m² for a glass name and thickness.
func (c *Catalog) GlassPrice(name string, thicknessMM int) (GlassSpec, error) {
	spec, ok := c.glass[glassKey{name: key(name), thickness: thicknessMM}]
	if !ok {
		return GlassSpec{}, &LookupError{Kind: "glass", Key: fmt.Sprintf("%s %dmm", name, thicknessMM)}
	}
	return spec, nil
}

// Glass lists every priced glass, ordered by name then thickness.
func (c *Catalog) Glass() []GlassSpec {
	out := make([]GlassSpec, 0, len(c.glass))
	for _, spec := range c.glass {
		out = append(out, spec)
	}
	order := make(map[string]int, len(c.glassNames))
	for i, n := range c.glassNames {
		order[key(n)] = i
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := order[key(out[i].Name)], order[key(out[j].Name)]
		if oi != oj {
			return oi < oj
		}
		return out[i].ThicknessMM < out[j].ThicknessMM
	})
	return out
}

// Thicknesses lists the priced thicknesses of a glass name.
func (c *Catalog) Thicknesses(name string) []int {
	var out []int
	for k := range c.glass {
		if k.name == key(name) {
			out = append(out, k.thickness)
		}
	}
	sort.Ints(out)
	return out
}

// GlassMultiplier returns the standard-item multiplier of a glass type.
func (c *Catalog) GlassMultiplier(name string) (decimal.Decimal, error) {
	gt, ok := c.glassTypes[key(name)]
	if !ok {
		return decimal.Decimal{}, &LookupError{Kind: "glass type", Key: name}
	}
	return gt.Multiplier, nil
}

func (c *Catalog) GlassTypes() []GlassType {
	out := make([]GlassType, 0, len(c.typeOrder))
	for _, n := range c.typeOrder {
		out = append(out, c.glassTypes[n])
	}
	return out
}

func (c *Catalog) StandardProduct(name string) (StandardProductSpec, error) {
	p, ok := c.standard[key(name)]
	if !ok {
		return StandardProductSpec{}, &LookupError{Kind: "standard product", Key: name}
	}
	return p, nil
}

func (c *Catalog) StandardProducts() []StandardProductSpec {
	out := make([]StandardProductSpec, 0, len(c.stdOrder))
	for _, n := range c.stdOrder {
		out = append(out, c.standard[n])
	}
	return out
}

// Rule returns the pricing rule bound to a category.
func (c *Catalog) Rule(cat Category) (PricingRule, error) {
	spec, ok := c.categories[cat]
	if !ok {
		return "", &LookupError{Kind: "category", Key: string(cat)}
	}
	return spec.rule, nil
}

// CategoryName returns the display name of a category.
func (c *Catalog) CategoryName(cat Category) string {
	return c.categories[cat].name
}

func (c *Catalog) ConfigurableProducts(cat Category) []ConfigurableProduct {
	return append([]ConfigurableProduct(nil), c.categories[cat].products...)
}

// ConfigurableProduct finds a product offered in a category.
func (c *Catalog) ConfigurableProduct(cat Category, name string) (ConfigurableProduct, error) {
	for _, p := range c.categories[cat].products {
		if key(p.Name) == key(name) {
			return p, nil
		}
	}
	return ConfigurableProduct{}, &LookupError{Kind: "product", Key: name}
}

// Components returns the selectable bill of materials of a category.
func (c *Catalog) Components(cat Category) []ComponentSpec {
	return append([]ComponentSpec(nil), c.categories[cat].components...)
}

// AutoHardware returns the fixed hardware list used by the automatic
// door/window pricing path.
func (c *Catalog) AutoHardware(cat Category) []ComponentSpec {
	return append([]ComponentSpec(nil), c.categories[cat].autoHardware...)
}

func (c *Catalog) FrameOptions(cat Category) []Option {
	return append([]Option(nil), c.categories[cat].frames...)
}

func (c *Catalog) OpeningOptions(cat Category) []Option {
	return append([]Option(nil), c.categories[cat].openings...)
}

func (c *Catalog) LockOptions(cat Category) []Option {
	return append([]Option(nil), c.categories[cat].locks...)
}

func (c *Catalog) Frame(cat Category, name string) (Option, error) {
	return findOption(c.categories[cat].frames, "frame", name)
}

func (c *Catalog) Opening(cat Category, name string) (Option, error) {
	return findOption(c.categories[cat].openings, "opening system", name)
}

func (c *Catalog) Lock(cat Category, name string) (Option, error) {
	return findOption(c.categories[cat].locks, "lock", name)
}

func findOption(opts []Option, kind, name string) (Option, error) {
	for _, o := range opts {
		if key(o.Name) == key(name) {
			return o, nil
		}
	}
	return Option{}, &LookupError{Kind: kind, Key: name}
}

// Labor returns the labor, travel and margin defaults.
func (c *Catalog) Labor() LaborRates { return c.labor }
