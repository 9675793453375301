package models

// Config row keys in user_configs.
const (
	ConfigKeySpecies     = "species_list"
	ConfigKeyOperations  = "operations_list"
	ConfigKeyStatuses    = "status_list"
	ConfigKeyRecipeTypes = "recipe_types"
	ConfigKeyLanguage    = "language"
)

type SpeciesConfig struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Abbreviation string `json:"abbreviation" yaml:"abbreviation"`
	ColorTheme   string `json:"colorTheme,omitempty" yaml:"color_theme,omitempty"`
	ColorHex     string `json:"colorHex,omitempty" yaml:"color_hex,omitempty"`
}

type OperationConfig struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	ColorTheme string `json:"colorTheme,omitempty" yaml:"color_theme,omitempty"`
	ColorHex   string `json:"colorHex,omitempty" yaml:"color_hex,omitempty"`
}

type StatusConfig struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	ColorHex string     `json:"colorHex" yaml:"color_hex"`
	Kind     StatusKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

type UserConfigs struct {
	Species     []SpeciesConfig   `json:"species" yaml:"species"`
	Operations  []OperationConfig `json:"operations" yaml:"operations"`
	Statuses    []StatusConfig    `json:"statuses" yaml:"statuses"`
	RecipeTypes []string          `json:"recipeTypes" yaml:"recipe_types"`
	Language    string            `json:"language" yaml:"language"`
}

// ConfigRow is one persisted key-value configuration entry.
type ConfigRow struct {
	Key   string
	Value []byte // JSON
}

// FindSpecies returns the species with an exactly matching name.
func (c *UserConfigs) FindSpecies(name string) (SpeciesConfig, bool) {
	for _, s := range c.Species {
		if s.Name == name {
			return s, true
		}
	}
	return SpeciesConfig{}, false
}

// FindSpeciesByID returns the species with the given config id.
func (c *UserConfigs) FindSpeciesByID(id string) (SpeciesConfig, bool) {
	for _, s := range c.Species {
		if s.ID == id {
			return s, true
		}
	}
	return SpeciesConfig{}, false
}

// StatusKindFor resolves an outcome label to the kind configured for it, if any.
func (c *UserConfigs) StatusKindFor(outcome string) (StatusKind, bool) {
	for _, s := range c.Statuses {
		if s.Name == outcome && s.Kind.Valid() {
			return s.Kind, true
		}
	}
	return "", false
}
