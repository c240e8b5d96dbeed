package scraper

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoAliases = errors.New("entity needs at least one alias")

// Entity is a named subject searched for under each of its aliases.
type Entity struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// Validate checks the entity has a name and usable aliases.
func (e Entity) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("entity name is required")
	}
	for _, alias := range e.Aliases {
		if strings.TrimSpace(alias) != "" {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", e.Name, ErrNoAliases)
}
