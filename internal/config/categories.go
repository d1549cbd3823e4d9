package config

import "fmt"

// Modifier kinds.
const (
	ModifierMultiply = "multiply"
	ModifierCategory = "category"
)

// Definitions declares the modifiers and categories a server registers.
type Definitions struct {
	Modifiers  []ModifierDef `yaml:"modifiers"`
	Categories []CategoryDef `yaml:"categories"`
}

// ModifierDef declares one modifier.
type ModifierDef struct {
	ID       string  `yaml:"id"`
	Priority int     `yaml:"priority"`
	Kind     string  `yaml:"kind"`     // multiply, category
	Factor   float32 `yaml:"factor"`   // multiply
	Category string  `yaml:"category"` // category: the source category id
}

// CategoryDef declares one scale category.
type CategoryDef struct {
	ID                string   `yaml:"id"`
	DefaultBaseScale  float32  `yaml:"default_base_scale"`
	DefaultTickDelay  int32    `yaml:"default_tick_delay"`
	DefaultEasing     string   `yaml:"default_easing"`
	DefaultModifiers  []string `yaml:"default_modifiers"`
	Persistent        bool     `yaml:"persistent"`
	MinScale          float32  `yaml:"min_scale"` // 0 = unbounded
	MaxScale          float32  `yaml:"max_scale"` // 0 = unbounded
	AffectsDimensions bool     `yaml:"affects_dimensions"`
}

// Validate checks identifiers and cross references.
func (d Definitions) Validate() error {
	modifiers := make(map[string]struct{}, len(d.Modifiers))
	categories := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		if c.ID == "" {
			return fmt.Errorf("category with empty id")
		}
		if _, dup := categories[c.ID]; dup {
			return fmt.Errorf("duplicate category %q", c.ID)
		}
		if c.DefaultTickDelay < 0 {
			return fmt.Errorf("category %q: negative default_tick_delay", c.ID)
		}
		if c.MaxScale != 0 && c.MinScale > c.MaxScale {
			return fmt.Errorf("category %q: min_scale %v > max_scale %v", c.ID, c.MinScale, c.MaxScale)
		}
		categories[c.ID] = struct{}{}
	}

	for _, m := range d.Modifiers {
		if m.ID == "" {
			return fmt.Errorf("modifier with empty id")
		}
		if _, dup := modifiers[m.ID]; dup {
			return fmt.Errorf("duplicate modifier %q", m.ID)
		}
		switch m.Kind {
		case ModifierMultiply:
		case ModifierCategory:
			if _, ok := categories[m.Category]; !ok {
				return fmt.Errorf("modifier %q: unknown category %q", m.ID, m.Category)
			}
		default:
			return fmt.Errorf("modifier %q: unknown kind %q", m.ID, m.Kind)
		}
		modifiers[m.ID] = struct{}{}
	}

	for _, c := range d.Categories {
		for _, id := range c.DefaultModifiers {
			if _, ok := modifiers[id]; !ok {
				return fmt.Errorf("category %q: unknown default modifier %q", c.ID, id)
			}
		}
	}
	return nil
}

// DefaultDefinitions returns the built-in categories: an overall base scale
// and width, height and reach scales multiplied by it.
func DefaultDefinitions() Definitions {
	return Definitions{
		Modifiers: []ModifierDef{
			{ID: "scale:base_multiplier", Priority: -1000, Kind: ModifierCategory, Category: "scale:base"},
		},
		Categories: []CategoryDef{
			{
				ID:                "scale:base",
				DefaultBaseScale:  1,
				DefaultTickDelay:  20,
				Persistent:        true,
				AffectsDimensions: true,
			},
			{
				ID:                "scale:width",
				DefaultBaseScale:  1,
				DefaultTickDelay:  20,
				DefaultModifiers:  []string{"scale:base_multiplier"},
				Persistent:        true,
				AffectsDimensions: true,
			},
			{
				ID:                "scale:height",
				DefaultBaseScale:  1,
				DefaultTickDelay:  20,
				DefaultModifiers:  []string{"scale:base_multiplier"},
				Persistent:        true,
				AffectsDimensions: true,
			},
			{
				ID:               "scale:reach",
				DefaultBaseScale: 1,
				DefaultTickDelay: 20,
				DefaultModifiers: []string{"scale:base_multiplier"},
				Persistent:       true,
			},
		},
	}
}

// LoadCategories loads definitions from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadCategories(path string) (Definitions, error) {
	defs := DefaultDefinitions()
	if err := loadYAML(path, &defs); err != nil {
		return defs, err
	}
	if err := defs.Validate(); err != nil {
		return defs, fmt.Errorf("validating %s: %w", path, err)
	}
	return defs, nil
}
