package results

import (
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/aclement30/raceresults/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PointsRouting decides at which level a combined group's upgrade points are
// computed. Never both: awarding at umbrella and member level would count
// the same finish twice.
type PointsRouting string

// Routing modes.
const (
	PointsAtUmbrella    PointsRouting = "UMBRELLA"
	PointsAtSubcategory PointsRouting = "SUBCATEGORY"
)

// CombinationGroup declares that several concrete categories race together
// and should be consolidated under one umbrella for ranking purposes.
type CombinationGroup struct {
	Label string `json:"label" yaml:"label" validate:"required"`

	// UmbrellaCategory names an existing category to act as the umbrella.
	// When absent, a synthetic umbrella is built from the members.
	UmbrellaCategory string `json:"umbrellaCategory,omitempty" yaml:"umbrellaCategory,omitempty"`

	// CategoriesForPoints routes point computation. Defaults to UMBRELLA
	// when unset.
	CategoriesForPoints PointsRouting `json:"categoriesForPoints,omitempty" yaml:"categoriesForPoints,omitempty" validate:"omitempty,oneof=UMBRELLA SUBCATEGORY"`

	Categories []string `json:"categories" yaml:"categories" validate:"required,min=1"`
}

// Routing returns the effective points routing for the group.
func (g *CombinationGroup) Routing() PointsRouting {
	if g.CategoriesForPoints == "" {
		return PointsAtUmbrella
	}
	return g.CategoriesForPoints
}

// Validate checks the group's shape, including that the declared umbrella
// alias is not also listed as a member.
func (g *CombinationGroup) Validate() error {
	if err := validate.Struct(g); err != nil {
		return errors.NewConfigError("combination group", g.Label, err)
	}
	for _, alias := range g.Categories {
		if g.UmbrellaCategory != "" && alias == g.UmbrellaCategory {
			return errors.NewConfigError("combination group", g.Label+": umbrella listed as its own member", nil)
		}
	}
	return nil
}

// ParseCombinationGroups decodes and validates a per-serie combination group
// document from YAML. The document maps a serie key to its groups.
func ParseCombinationGroups(text string) (map[string][]CombinationGroup, error) {
	var groups map[string][]CombinationGroup
	if err := yaml.Unmarshal([]byte(text), &groups); err != nil {
		return nil, errors.WrapParse("yaml", "combination groups", err)
	}
	for serie, serieGroups := range groups {
		for i := range serieGroups {
			if err := serieGroups[i].Validate(); err != nil {
				return nil, errors.NewConfigError("combination groups", serie, err)
			}
		}
	}
	return groups, nil
}
