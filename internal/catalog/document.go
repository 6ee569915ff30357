package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the only catalog document version this build understands.
const SchemaVersion = 1

//go:embed default.yaml
var defaultDocument []byte

// Document is the serialized form of a catalog. Amounts are decimal strings
// so that prices survive YAML and SQLite without float rounding.
type Document struct {
	Version          int            `yaml:"version"`
	Glass            []GlassDoc     `yaml:"glass"`
	GlassTypes       []GlassTypeDoc `yaml:"glass_types"`
	StandardProducts []StandardDoc  `yaml:"standard_products"`
	Labor            LaborDoc       `yaml:"labor"`
	Categories       []CategoryDoc  `yaml:"categories"`
}

// GlassDoc lists absolute prices per m² keyed by thickness in mm.
type GlassDoc struct {
	Name   string         `yaml:"name"`
	Prices map[int]string `yaml:"prices"`
}

// GlassTypeDoc carries the legacy multiplier applied to standard items.
type GlassTypeDoc struct {
	Name       string `yaml:"name"`
	Multiplier string `yaml:"multiplier"`
}

type StandardDoc struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Unit  string `yaml:"unit"`
}

type LaborDoc struct {
	PerM2Rate            string `yaml:"per_m2_rate" db:"per_m2_rate"`
	Minimum              string `yaml:"minimum" db:"minimum"`
	DefaultCost          string `yaml:"default_cost" db:"default_cost"`
	DefaultTravel        string `yaml:"default_travel" db:"default_travel"`
	DefaultMarginPercent string `yaml:"default_margin_percent" db:"default_margin_percent"`
}

// CategoryDoc binds a category to its pricing rule and option lists.
type CategoryDoc struct {
	Category     Category       `yaml:"category"`
	Name         string         `yaml:"name"`
	Rule         PricingRule    `yaml:"rule"`
	Products     []ProductDoc   `yaml:"products"`
	Components   []ComponentDoc `yaml:"components"`
	AutoHardware []ComponentDoc `yaml:"auto_hardware"`
	Frames       []OptionDoc    `yaml:"frames"`
	Openings     []OptionDoc    `yaml:"openings"`
	Locks        []OptionDoc    `yaml:"locks"`
}

type ProductDoc struct {
	Name   string `yaml:"name"`
	Series string `yaml:"series"`
}

type ComponentDoc struct {
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Quantity    int    `yaml:"quantity"`
	Required    bool   `yaml:"required"`
	MinQuantity int    `yaml:"min_quantity" db:"min_quantity"`
}

type OptionDoc struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// ParseDocument decodes a YAML catalog document without validating it.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode catalog document: %w", err)
	}
	return doc, nil
}

// Parse decodes a YAML catalog document and builds the catalog from it.
func Parse(data []byte) (*Catalog, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// LoadFile reads a YAML catalog document from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// DefaultDocument returns the embedded catalog document.
func DefaultDocument() (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(defaultDocument, &doc); err != nil {
		return Document{}, fmt.Errorf("decode default catalog: %w", err)
	}
	return doc, nil
}

// Default builds the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultDocument)
}
