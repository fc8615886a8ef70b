package devserver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/onboard/internal/shared/utils"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

// Variant is one arm of a campaign
type Variant struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Weight int    `json:"weight" yaml:"weight" toml:"weight"`
	Flow   string `json:"flow" yaml:"flow" toml:"flow"`
}

// Campaign targets a placement with weighted variants
type Campaign struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Placement string `json:"placement" yaml:"placement" toml:"placement"`
	// Audience maps a targeting property to one accepted value or a list
	Audience       map[string]any `json:"audience,omitempty" yaml:"audience" toml:"audience"`
	HoldoutPercent float64        `json:"holdoutPercent,omitempty" yaml:"holdoutPercent" toml:"holdoutPercent"`
	Sticky         bool           `json:"sticky" yaml:"sticky" toml:"sticky"`
	Variants       []Variant      `json:"variants" yaml:"variants" toml:"variants"`

	audience map[string][]value.Value
}

// Catalog is the contents of a campaigns file
type Catalog struct {
	Campaigns []*Campaign `json:"campaigns" yaml:"campaigns" toml:"campaigns"`
}

// LoadCatalog reads a campaigns file. The format follows the extension:
// .yaml/.yml, .toml or .json.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaigns: %w", err)
	}
	return ParseCatalog(filepath.Ext(path), data)
}

// ParseCatalog decodes campaigns in the format named by ext
func ParseCatalog(ext string, data []byte) (*Catalog, error) {
	var cat Catalog
	var err error
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &cat)
	case "toml":
		err = toml.Unmarshal(data, &cat)
	case "json":
		err = sonic.Unmarshal(data, &cat)
	default:
		return nil, fmt.Errorf("unsupported campaigns format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse campaigns: %w", err)
	}
	for _, c := range cat.Campaigns {
		if c == nil {
			return nil, errors.New("parse campaigns: empty campaign entry")
		}
		if err := c.compile(); err != nil {
			return nil, fmt.Errorf("campaign %q: %w", c.ID, err)
		}
	}
	return &cat, nil
}

// Validate checks every campaign against the known flows and compiles its
// audience, so catalogs built in code target the same way as parsed ones.
func (cat *Catalog) Validate(flows Flows) error {
	var errs []error
	seen := make(map[string]bool, len(cat.Campaigns))
	for i, c := range cat.Campaigns {
		if c == nil {
			errs = append(errs, fmt.Errorf("campaigns[%d]: empty campaign entry", i))
			continue
		}
		if err := c.compile(); err != nil {
			errs = append(errs, fmt.Errorf("campaign %q: %w", c.ID, err))
		}
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("campaigns[%d]: id is required", i))
			continue
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("campaign %q: duplicate id", c.ID))
		}
		seen[c.ID] = true
		if err := utils.ValidatePlacement(c.Placement); err != nil {
			errs = append(errs, fmt.Errorf("campaign %q: %w", c.ID, err))
		}
		if c.HoldoutPercent < 0 || c.HoldoutPercent > 100 {
			errs = append(errs, fmt.Errorf("campaign %q: holdoutPercent must be within 0..100", c.ID))
		}
		if len(c.Variants) == 0 {
			errs = append(errs, fmt.Errorf("campaign %q: no variants", c.ID))
		}
		if c.totalWeight() <= 0 && len(c.Variants) > 0 {
			errs = append(errs, fmt.Errorf("campaign %q: variant weights sum to zero", c.ID))
		}
		for _, v := range c.Variants {
			if v.ID == "" {
				errs = append(errs, fmt.Errorf("campaign %q: variant without id", c.ID))
			}
			if v.Weight < 0 {
				errs = append(errs, fmt.Errorf("campaign %q variant %q: negative weight", c.ID, v.ID))
			}
			if _, ok := flows[v.Flow]; !ok {
				errs = append(errs, fmt.Errorf("campaign %q variant %q: unknown flow %q", c.ID, v.ID, v.Flow))
			}
		}
	}
	return errors.Join(errs...)
}

// ForPlacement returns the campaigns targeting a placement in file order
func (cat *Catalog) ForPlacement(name string) []*Campaign {
	var out []*Campaign
	for _, c := range cat.Campaigns {
		if c.Placement == name {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether targeting properties satisfy the audience. Every
// audience key must be present and equal to one of its accepted values.
func (c *Campaign) Matches(props value.Map) bool {
	for key, accepted := range c.audience {
		got, ok := props[key]
		if !ok || got.IsNull() {
			return false
		}
		if !anyEqual(got, accepted) {
			return false
		}
	}
	return true
}

func (c *Campaign) compile() error {
	c.audience = make(map[string][]value.Value, len(c.Audience))
	for key, raw := range c.Audience {
		var list []any
		switch t := raw.(type) {
		case []any:
			list = t
		case []string:
			for _, item := range t {
				list = append(list, item)
			}
		default:
			list = []any{raw}
		}
		vals := make([]value.Value, 0, len(list))
		for _, item := range list {
			v, err := value.FromAny(item)
			if err != nil {
				return fmt.Errorf("audience %q: %w", key, err)
			}
			vals = append(vals, v)
		}
		c.audience[key] = vals
	}
	return nil
}

func (c *Campaign) totalWeight() int {
	total := 0
	for _, v := range c.Variants {
		if v.Weight > 0 {
			total += v.Weight
		}
	}
	return total
}

func anyEqual(got value.Value, accepted []value.Value) bool {
	for _, want := range accepted {
		if got.Equal(want) {
			return true
		}
		if cmp, ok := got.Compare(want); ok && cmp == 0 {
			return true
		}
	}
	return false
}
