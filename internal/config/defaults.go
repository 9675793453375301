package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultUserConfigs returns the taxonomy a user starts with. Each call
// returns a fresh copy.
func DefaultUserConfigs() (models.UserConfigs, error) {
	var c models.UserConfigs
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		return models.UserConfigs{}, fmt.Errorf("parse default user configs: %w", err)
	}
	return c, nil
}
