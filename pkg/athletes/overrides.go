package athletes

import (
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/aclement30/raceresults/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldOverrides is the allow-listed set of profile fields an operator may
// pin. Overrides are applied after all automated merging, so an operator
// correction always wins over reconciliation.
type FieldOverrides struct {
	FirstName *string `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	Gender    *string `json:"gender,omitempty" yaml:"gender,omitempty" validate:"omitempty,oneof=M F X"`
	City      *string `json:"city,omitempty" yaml:"city,omitempty"`
	Province  *string `json:"province,omitempty" yaml:"province,omitempty"`
	BirthYear *int    `json:"birthYear,omitempty" yaml:"birthYear,omitempty" validate:"omitempty,gte=1900"`

	// SkillLevels pins the athlete's level per discipline. A pinned level
	// clears any estimated upgrade date, since it no longer derives from
	// observed results.
	SkillLevels map[Discipline]int `json:"skillLevels,omitempty" yaml:"skillLevels,omitempty" validate:"omitempty,dive,gte=1,lte=5"`
}

// Apply writes the pinned fields onto a profile.
func (f *FieldOverrides) Apply(p *Profile) {
	if f.FirstName != nil {
		p.FirstName = *f.FirstName
	}
	if f.LastName != nil {
		p.LastName = *f.LastName
	}
	if f.Gender != nil {
		p.Gender = *f.Gender
	}
	if f.City != nil {
		p.City = *f.City
	}
	if f.Province != nil {
		p.Province = *f.Province
	}
	if f.BirthYear != nil {
		p.BirthYear = *f.BirthYear
	}
	for discipline, level := range f.SkillLevels {
		if p.SkillLevels == nil {
			p.SkillLevels = make(map[Discipline]SkillLevel)
		}
		p.SkillLevels[discipline] = SkillLevel{Level: level}
	}
}

// Overrides is the manually curated override document consulted during
// identity resolution and profile merging.
type Overrides struct {
	// ReplacedUciIDs maps a retired or mistyped UCI ID to its replacement.
	ReplacedUciIDs map[string]string `json:"replacedUciIds,omitempty" yaml:"replacedUciIds,omitempty" validate:"omitempty,dive,keys,len=11,numeric,endkeys,len=11,numeric"`

	// AlternateNames maps a lower-cased "first|last" name key to a UCI ID,
	// for athletes who race under a name their license doesn't carry.
	AlternateNames map[string]string `json:"alternateNames,omitempty" yaml:"alternateNames,omitempty" validate:"omitempty,dive,len=11,numeric"`

	// AthleteData holds per-athlete field pins, keyed by UCI ID.
	AthleteData map[string]FieldOverrides `json:"athleteData,omitempty" yaml:"athleteData,omitempty" validate:"omitempty,dive"`

	// IgnoredTeams lists team names that never carry into the registry
	// (sponsor placeholders, "Independent", data-entry noise).
	IgnoredTeams []string `json:"ignoredTeams,omitempty" yaml:"ignoredTeams,omitempty"`
}

// Validate checks the override document's shape.
func (o *Overrides) Validate() error {
	if err := validate.Struct(o); err != nil {
		return errors.NewConfigError("overrides", "invalid override document", err)
	}
	return nil
}

// TeamIgnored reports whether a team name is on the ignore list.
func (o *Overrides) TeamIgnored(team string) bool {
	return slices.Contains(o.IgnoredTeams, team)
}

// ReplacementFor returns the replacement UCI ID for a flagged ID, if any.
func (o *Overrides) ReplacementFor(uciID string) (string, bool) {
	target, ok := o.ReplacedUciIDs[uciID]
	return target, ok
}

// ParseOverrides decodes and validates an override document from YAML.
func ParseOverrides(text string) (*Overrides, error) {
	var overrides Overrides
	if err := yaml.Unmarshal([]byte(text), &overrides); err != nil {
		return nil, errors.WrapParse("yaml", "overrides", err)
	}
	if err := overrides.Validate(); err != nil {
		return nil, err
	}
	return &overrides, nil
}
