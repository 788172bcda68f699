package model

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type CategoryIcon struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon" json:"icon"`
}

type ColorPage struct {
	Page   string   `yaml:"page" json:"page"`
	Values []string `yaml:"values" json:"values"`
}

type IconPage struct {
	Page   string         `yaml:"page" json:"page"`
	Values []CategoryIcon `yaml:"values" json:"values"`
}

// Catalog is the fixed set of category colors and icons.
type Catalog struct {
	Colors []ColorPage `yaml:"colors" json:"colors"`
	Icons  []IconPage  `yaml:"icons" json:"icons"`

	icons map[string]CategoryIcon
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	c := new(Catalog)
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("ParseCatalog: %w", err)
	}
	c.icons = make(map[string]CategoryIcon)
	for _, page := range c.Colors {
		for _, color := range page.Values {
			if !hexColorRegexp.MatchString(color) {
				return nil, fmt.Errorf("ParseCatalog: page %q has invalid color %q", page.Page, color)
			}
		}
	}
	for _, page := range c.Icons {
		for _, icon := range page.Values {
			if icon.Icon == "" {
				return nil, fmt.Errorf("ParseCatalog: page %q has an icon without a symbol", page.Page)
			}
			c.icons[icon.Icon] = icon
		}
	}
	return c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog. It panics if the embedded
// document is broken, which the tests guard against.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func (c *Catalog) HasIcon(icon string) bool {
	_, ok := c.icons[icon]
	return ok
}

// Icon looks up the display entry for an icon symbol.
func (c *Catalog) Icon(icon string) (CategoryIcon, bool) {
	i, ok := c.icons[icon]
	return i, ok
}
