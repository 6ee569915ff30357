package quote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/pricing"
	"github.com/Simplici0/vidrieria/internal/validation"
)

var (
	// ErrSessionClosed is returned by every session method after Commit or Cancel.
	ErrSessionClosed = errors.New("configuration session is closed")
	// ErrStage is returned when a step is taken before its predecessor.
	ErrStage = errors.New("configuration step out of order")
)

// Stage is the progress of a configuration session.
type Stage int

const (
	StageCategorySelected Stage = iota + 1
	StageGlassSelected
	StageDimensionsEntered
	StageHardwareSelected
	StageCostsReviewed
	StageCommitted
	StageCancelled
)

func (s Stage) String() string {
	switch s {
	case StageCategorySelected:
		return "category_selected"
	case StageGlassSelected:
		return "glass_selected"
	case StageDimensionsEntered:
		return "dimensions_entered"
	case StageHardwareSelected:
		return "hardware_selected"
	case StageCostsReviewed:
		return "costs_reviewed"
	case StageCommitted:
		return "committed"
	case StageCancelled:
		return "cancelled"
	default:
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// Session walks one screen, door or window through configuration. It is not
// safe for concurrent use.
type Session struct {
	b       *Builder
	cat     catalog.Category
	rule    catalog.PricingRule
	name    string
	series  string
	stage   Stage
	flags   Flags
	glass   GlassSelection
	perArea decimal.Decimal
	width   decimal.Decimal
	height  decimal.Decimal
	qty     int

	components []pricing.ComponentLine

	frame   catalog.Option
	opening catalog.Option
	lock    catalog.Option

	costs    pricing.Costs
	costsSet bool

	breakdown pricing.CostBreakdown
}

// NewSession starts configuring product in cat. An empty product takes the
// first product the category offers.
func (b *Builder) NewSession(cat catalog.Category, product string) (*Session, error) {
	rule, err := b.catalog.Rule(cat)
	if err != nil {
		return nil, validation.Errorf("category", "%v", err)
	}
	s := &Session{b: b, cat: cat, rule: rule, stage: StageCategorySelected, qty: 1}

	name, series, perr := b.product(cat, product)
	if perr != nil {
		s.flags = s.flags.set(FlagUnpriced, "product")
	}
	s.name, s.series = name, series

	if rule == catalog.RuleComponentsPlusGlass {
		for _, c := range b.catalog.Components(cat) {
			s.components = append(s.components, pricing.ComponentLine{
				Name:        c.Name,
				UnitPrice:   c.UnitPrice,
				Quantity:    c.DefaultQuantity,
				Selected:    true,
				Required:    c.Required,
				MinQuantity: c.MinQuantity,
			})
		}
	}
	return s, nil
}

// Stage returns the current stage.
func (s *Session) Stage() Stage { return s.stage }

// Category returns the category being configured.
func (s *Session) Category() catalog.Category { return s.cat }

// Flags returns the flags recorded so far.
func (s *Session) Flags() Flags { return append(Flags(nil), s.flags...) }

// Components returns the current bill of materials of a screen.
func (s *Session) Components() []pricing.ComponentLine {
	return append([]pricing.ComponentLine(nil), s.components...)
}

func (s *Session) open() error {
	if s.stage == StageCommitted || s.stage == StageCancelled {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) require(want Stage, step string) error {
	if err := s.open(); err != nil {
		return err
	}
	if s.stage < want {
		return fmt.Errorf("%w: %s requires %s, session is at %s", ErrStage, step, want, s.stage)
	}
	return nil
}

// ready is the stage after which costs can be reviewed.
func (s *Session) ready() Stage {
	if s.rule == catalog.RuleGlassFrameOpening {
		return StageHardwareSelected
	}
	return StageDimensionsEntered
}

// advance moves forward to stage, or rewinds a reviewed session so that
// costs have to be reviewed again.
func (s *Session) advance(to Stage) {
	switch {
	case s.stage < to:
		s.stage = to
	case s.stage == StageCostsReviewed:
		s.stage = s.ready()
		s.breakdown = pricing.CostBreakdown{}
	}
}

// touch rewinds a reviewed session without advancing it.
func (s *Session) touch() { s.advance(StageCategorySelected) }

// SelectGlass picks the glass. An empty name means no glass. A glass absent
// from the catalog is priced 0 and flagged unpriced.
func (s *Session) SelectGlass(name, thickness string) error {
	if err := s.require(StageCategorySelected, "select glass"); err != nil {
		return err
	}
	sel, price, flags, err := s.b.glass(name, thickness)
	if err != nil {
		return err
	}
	s.flags = s.flags.clear("glass_cost_per_area")
	s.flags = append(s.flags, flags...)
	s.glass, s.perArea = sel, price
	s.advance(StageGlassSelected)
	return nil
}

// SetDimensions records width and height in metres.
func (s *Session) SetDimensions(width, height string) error {
	if err := s.require(StageGlassSelected, "set dimensions"); err != nil {
		return err
	}
	var v validation.Collector
	w, err := requiredDecimal("width", width)
	v.Add(err)
	h, err := requiredDecimal("height", height)
	v.Add(err)
	if err := v.Err(); err != nil {
		return err
	}
	s.width, s.height = w, h
	s.advance(StageDimensionsEntered)
	return nil
}

// SetQuantity records how many identical units the item stands for.
func (s *Session) SetQuantity(raw string) error {
	if err := s.open(); err != nil {
		return err
	}
	qty, defaulted, err := quantity(raw)
	if err != nil {
		return err
	}
	s.flags = s.flags.clear("quantity")
	if defaulted {
		s.flags = s.flags.set(FlagDefaulted, "quantity")
	}
	s.qty = qty
	s.touch()
	return nil
}

// SetComponent selects or deselects a screen component. An empty or
// unparsable quantity keeps the catalog default.
func (s *Session) SetComponent(name string, selected bool, qty string) error {
	if err := s.open(); err != nil {
		return err
	}
	if s.rule != catalog.RuleComponentsPlusGlass {
		return fmt.Errorf("%w: %s has no selectable components", ErrStage, s.cat)
	}
	idx := -1
	for i, c := range s.components {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return validation.Errorf("components."+name, "is not offered for %s", s.cat)
	}

	line := s.components[idx]
	field := "components." + line.Name + ".quantity"
	line.Selected = selected
	defaulted := false
	if n, err := strconv.Atoi(strings.TrimSpace(qty)); err == nil {
		line.Quantity = n
	} else if selected {
		defaulted = true
		for _, c := range s.b.catalog.Components(s.cat) {
			if c.Name == line.Name {
				line.Quantity = c.DefaultQuantity
			}
		}
	}
	if err := line.Check(); err != nil {
		return err
	}

	s.components[idx] = line
	s.flags = s.flags.clear(field)
	if defaulted {
		s.flags = s.flags.set(FlagDefaulted, field)
	}
	s.touch()
	return nil
}

// SelectHardware picks the frame, opening system and optional lock of a door
// or window. Options absent from the catalog are priced 0 and flagged.
func (s *Session) SelectHardware(frame, opening, lock string) error {
	if err := s.require(StageDimensionsEntered, "select hardware"); err != nil {
		return err
	}
	if s.rule != catalog.RuleGlassFrameOpening {
		return fmt.Errorf("%w: %s has no frame or opening options", ErrStage, s.cat)
	}
	frame, opening, lock = strings.TrimSpace(frame), strings.TrimSpace(opening), strings.TrimSpace(lock)

	var v validation.Collector
	v.Check(frame != "", "frame", "is required")
	v.Check(opening != "", "opening", "is required")
	if err := v.Err(); err != nil {
		return err
	}

	pick := func(field, name string, find func(catalog.Category, string) (catalog.Option, error)) catalog.Option {
		s.flags = s.flags.clear(field)
		if name == "" {
			return catalog.Option{}
		}
		o, err := find(s.cat, name)
		if err != nil {
			s.flags = s.flags.set(FlagUnpriced, field)
			return catalog.Option{Name: name}
		}
		return o
	}
	s.frame = pick("frame", frame, s.b.catalog.Frame)
	s.opening = pick("opening", opening, s.b.catalog.Opening)
	s.lock = pick("lock", lock, s.b.catalog.Lock)
	s.advance(StageHardwareSelected)
	return nil
}

// SetCosts records labor, travel and margin percentage. Empty or unparsable
// values take the catalog defaults and are flagged.
func (s *Session) SetCosts(labor, travel, margin string) error {
	if err := s.open(); err != nil {
		return err
	}
	rates := s.b.catalog.Labor()
	flags := s.flags.clear("labor_cost").clear("travel_cost").clear("profit_margin_percentage")

	var costs pricing.Costs
	costs.Labor, flags = orDefault(flags, "labor_cost", labor, rates.DefaultCost)
	costs.Travel, flags = orDefault(flags, "travel_cost", travel, rates.DefaultTravel)
	costs.MarginPercent, flags = orDefault(flags, "profit_margin_percentage", margin, rates.DefaultMarginPercent)

	s.flags, s.costs, s.costsSet = flags, costs, true
	s.touch()
	return nil
}

// Review computes the cost breakdown. Costs never set take the defaults.
func (s *Session) Review() (pricing.CostBreakdown, error) {
	if err := s.require(s.ready(), "review costs"); err != nil {
		return pricing.CostBreakdown{}, err
	}
	if !s.costsSet {
		if err := s.SetCosts("", "", ""); err != nil {
			return pricing.CostBreakdown{}, err
		}
	}

	var (
		b   pricing.CostBreakdown
		err error
	)
	switch s.rule {
	case catalog.RuleComponentsPlusGlass:
		b, err = pricing.PriceScreen(pricing.ScreenInput{
			Width:            s.width,
			Height:           s.height,
			GlassCostPerArea: s.perArea,
			Components:       s.components,
			Costs:            s.costs,
		})
	case catalog.RuleGlassFrameOpening:
		b, err = pricing.PriceDoorOrWindow(pricing.DoorWindowInput{
			Width:            s.width,
			Height:           s.height,
			GlassCostPerArea: s.perArea,
			FramePrice:       s.frame.Price,
			OpeningPrice:     s.opening.Price.Add(s.lock.Price),
			Costs:            s.costs,
		})
	default:
		err = fmt.Errorf("unsupported pricing rule %q", s.rule)
	}
	if err != nil {
		return pricing.CostBreakdown{}, err
	}
	s.breakdown = b
	s.stage = StageCostsReviewed
	return b, nil
}

// AgreePrice records a negotiated price on the reviewed breakdown. An empty
// value clears it.
func (s *Session) AgreePrice(raw string) (pricing.CostBreakdown, error) {
	if err := s.require(StageCostsReviewed, "agree price"); err != nil {
		return pricing.CostBreakdown{}, err
	}
	b, err := agree(s.breakdown, raw)
	if err != nil {
		return pricing.CostBreakdown{}, err
	}
	s.breakdown = b
	return b, nil
}

// Commit freezes the reviewed breakdown into a configured item and closes the
// session.
func (s *Session) Commit() (ConfiguredItem, error) {
	if err := s.require(StageCostsReviewed, "commit"); err != nil {
		return ConfiguredItem{}, err
	}
	item := ConfiguredItem{
		ID:        s.b.ids.NewID(),
		Name:      s.name,
		Series:    s.series,
		Category:  s.cat,
		Glass:     s.glass,
		Width:     s.width,
		Height:    s.height,
		Quantity:  s.qty,
		Frame:     s.frame.Name,
		Opening:   s.opening.Name,
		Lock:      s.lock.Name,
		Path:      PathManual,
		Breakdown: s.breakdown,
		Flags:     s.Flags(),
	}
	if s.rule == catalog.RuleComponentsPlusGlass {
		item.Components = s.Components()
	}
	s.stage = StageCommitted
	return item, nil
}

// Cancel abandons the session. Nothing is recorded.
func (s *Session) Cancel() error {
	if err := s.open(); err != nil {
		return err
	}
	s.stage = StageCancelled
	return nil
}
