package main

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/quote"
)

type glassView struct {
	Name        string          `json:"name"`
	ThicknessMM int             `json:"thickness_mm"`
	PricePerM2  decimal.Decimal `json:"price_per_m2"`
}

type optionView struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type componentView struct {
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DefaultQuantity int             `json:"default_quantity"`
	Required        bool            `json:"required,omitempty"`
	MinQuantity     int             `json:"min_quantity,omitempty"`
}

type categoryView struct {
	Category     catalog.Category    `json:"category"`
	Name         string              `json:"name"`
	Rule         catalog.PricingRule `json:"rule"`
	Products     []optionView        `json:"products"`
	Components   []componentView     `json:"components,omitempty"`
	AutoHardware []componentView     `json:"auto_hardware,omitempty"`
	Frames       []optionView        `json:"frames,omitempty"`
	Openings     []optionView        `json:"openings,omitempty"`
	Locks        []optionView        `json:"locks,omitempty"`
}

type catalogView struct {
	Version          int            `json:"version"`
	Glass            []glassView    `json:"glass"`
	GlassTypes       []optionView   `json:"glass_types"`
	StandardProducts []optionView   `json:"standard_products"`
	Categories       []categoryView `json:"categories"`
	Labor            struct {
		PerM2Rate            decimal.Decimal `json:"per_m2_rate"`
		Minimum              decimal.Decimal `json:"minimum"`
		DefaultCost          decimal.Decimal `json:"default_cost"`
		DefaultTravel        decimal.Decimal `json:"default_travel"`
		DefaultMarginPercent decimal.Decimal `json:"default_margin_percent"`
	} `json:"labor"`
}

func components(specs []catalog.ComponentSpec) []componentView {
	out := make([]componentView, 0, len(specs))
	for _, c := range specs {
		out = append(out, componentView{
			Name:            c.Name,
			UnitPrice:       c.UnitPrice,
			DefaultQuantity: c.DefaultQuantity,
			Required:        c.Required,
			MinQuantity:     c.MinQuantity,
		})
	}
	return out
}

func options(opts []catalog.Option) []optionView {
	out := make([]optionView, 0, len(opts))
	for _, o := range opts {
		out = append(out, optionView{Name: o.Name, Price: o.Price})
	}
	return out
}

func newCatalogView(c *catalog.Catalog) catalogView {
	v := catalogView{Version: c.Version()}
	for _, g := range c.Glass() {
		v.Glass = append(v.Glass, glassView{Name: g.Name, ThicknessMM: g.ThicknessMM, PricePerM2: g.PricePerM2})
	}
	for _, t := range c.GlassTypes() {
		v.GlassTypes = append(v.GlassTypes, optionView{Name: t.Name, Price: t.Multiplier})
	}
	for _, p := range c.StandardProducts() {
		v.StandardProducts = append(v.StandardProducts, optionView{Name: p.Name, Price: p.Price})
	}
	for _, cat := range catalog.Categories() {
		rule, err := c.Rule(cat)
		if err != nil {
			continue
		}
		cv := categoryView{
			Category:     cat,
			Name:         c.CategoryName(cat),
			Rule:         rule,
			Components:   components(c.Components(cat)),
			AutoHardware: components(c.AutoHardware(cat)),
			Frames:       options(c.FrameOptions(cat)),
			Openings:     options(c.OpeningOptions(cat)),
			Locks:        options(c.LockOptions(cat)),
		}
		for _, p := range c.ConfigurableProducts(cat) {
			cv.Products = append(cv.Products, optionView{Name: p.Name})
		}
		v.Categories = append(v.Categories, cv)
	}
	labor := c.Labor()
	v.Labor.PerM2Rate = labor.PerM2Rate
	v.Labor.Minimum = labor.Minimum
	v.Labor.DefaultCost = labor.DefaultCost
	v.Labor.DefaultTravel = labor.DefaultTravel
	v.Labor.DefaultMarginPercent = labor.DefaultMarginPercent
	return v
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCatalogView(s.builder.Catalog()))
}

// itemView is the wire form of a priced line item.
type itemView struct {
	Kind  quote.Kind      `json:"kind"`
	Item  quote.LineItem  `json:"item"`
	Price decimal.Decimal `json:"price"`
}

func newItemView(item quote.LineItem) itemView {
	return itemView{Kind: item.Kind(), Item: item, Price: item.Price()}
}

func (s *server) handleStandardItem(w http.ResponseWriter, r *http.Request) {
	var req quote.StandardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.builder.BuildStandard(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(item))
}

func (s *server) handleAutoItem(w http.ResponseWriter, r *http.Request) {
	var req quote.AutoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.builder.BuildAutoDoorOrWindow(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(item))
}

type componentChoice struct {
	Name     string `json:"name"`
	Selected *bool  `json:"selected"`
	Quantity string `json:"quantity"`
}

// configuredRequest carries every step of a configuration session at once.
type configuredRequest struct {
	Category    catalog.Category  `json:"category"`
	Product     string            `json:"product"`
	Glass       string            `json:"glass"`
	Thickness   string            `json:"thickness"`
	Width       string            `json:"width"`
	Height      string            `json:"height"`
	Quantity    string            `json:"quantity"`
	Components  []componentChoice `json:"components"`
	Frame       string            `json:"frame"`
	Opening     string            `json:"opening"`
	Lock        string            `json:"lock"`
	Labor       string            `json:"labor"`
	Travel      string            `json:"travel"`
	Margin      string            `json:"margin"`
	AgreedPrice string            `json:"agreed_price"`
}

func (s *server) configure(req configuredRequest) (quote.ConfiguredItem, error) {
	sess, err := s.builder.NewSession(catalog.Category(strings.ToLower(strings.TrimSpace(string(req.Category)))), req.Product)
	if err != nil {
		return quote.ConfiguredItem{}, err
	}
	if err := sess.SelectGlass(req.Glass, req.Thickness); err != nil {
		return quote.ConfiguredItem{}, err
	}
	if err := sess.SetDimensions(req.Width, req.Height); err != nil {
		return quote.ConfiguredItem{}, err
	}
	if req.Quantity != "" {
		if err := sess.SetQuantity(req.Quantity); err != nil {
			return quote.ConfiguredItem{}, err
		}
	}
	for _, c := range req.Components {
		selected := c.Selected == nil || *c.Selected
		if err := sess.SetComponent(c.Name, selected, c.Quantity); err != nil {
			return quote.ConfiguredItem{}, err
		}
	}
	if sess.Category() != catalog.CategoryScreen {
		if err := sess.SelectHardware(req.Frame, req.Opening, req.Lock); err != nil {
			return quote.ConfiguredItem{}, err
		}
	}
	if err := sess.SetCosts(req.Labor, req.Travel, req.Margin); err != nil {
		return quote.ConfiguredItem{}, err
	}
	if _, err := sess.Review(); err != nil {
		return quote.ConfiguredItem{}, err
	}
	if req.AgreedPrice != "" {
		if _, err := sess.AgreePrice(req.AgreedPrice); err != nil {
			return quote.ConfiguredItem{}, err
		}
	}
	return sess.Commit()
}

func (s *server) handleConfiguredItem(w http.ResponseWriter, r *http.Request) {
	var req configuredRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.configure(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(item))
}
