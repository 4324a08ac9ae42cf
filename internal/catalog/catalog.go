// Package catalog loads the product catalog: the physical book sizes an order
// can be produced in.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bookforge/internal/book"
	"bookforge/internal/services"
)

// SchemaV1 identifies the catalog file format.
const SchemaV1 = "bookforge.catalog.v1"

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is an immutable set of product specs keyed by ID.
type Catalog struct {
	products map[string]book.ProductSpec
	order    []string
}

type file struct {
	Schema   string             `yaml:"schema"`
	Products []book.ProductSpec `yaml:"products"`
}

// Parse decodes and validates a catalog document.
func Parse(input []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(input, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if strings.TrimSpace(f.Schema) != SchemaV1 {
		return nil, fmt.Errorf("catalog.schema must be %q", SchemaV1)
	}
	if len(f.Products) == 0 {
		return nil, errors.New("catalog.products must be non-empty")
	}
	c := &Catalog{products: make(map[string]book.ProductSpec, len(f.Products))}
	for i, spec := range f.Products {
		spec.ID = strings.TrimSpace(spec.ID)
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("catalog.products[%d]: %w", i, err)
		}
		if _, dup := c.products[spec.ID]; dup {
			return nil, fmt.Errorf("catalog.products[%d].id must be unique (duplicate %q)", i, spec.ID)
		}
		c.products[spec.ID] = spec
		c.order = append(c.order, spec.ID)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Load reads the catalog at path. A missing file yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "read", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "parse", path, err)
	}
	return c, nil
}

// Get returns the spec for id.
func (c *Catalog) Get(id string) (book.ProductSpec, error) {
	spec, ok := c.products[strings.TrimSpace(id)]
	if !ok {
		return book.ProductSpec{}, services.Wrap(services.ErrValidation, "catalog", "lookup", fmt.Sprintf("unknown product %q (have %s)", id, strings.Join(c.IDs(), ", ")), nil)
	}
	return spec, nil
}

// List returns every spec in file order.
func (c *Catalog) List() []book.ProductSpec {
	out := make([]book.ProductSpec, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// IDs returns the product IDs sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

// Marshal encodes the catalog back to its YAML form.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(file{Schema: SchemaV1, Products: c.List()})
}
