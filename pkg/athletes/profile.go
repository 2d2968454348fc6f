package athletes

import (
	"slices"
	"strings"
)

// Profile is the canonical persisted record for one athlete, keyed by UCI ID.
// Profiles are created on first sighting, mutated by every subsequent merge,
// and never deleted. License lists grow monotonically per year.
type Profile struct {
	UciID     string `json:"uciId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`
	BirthYear int    `json:"birthYear,omitempty"`

	// Licenses maps a season year to the license codes seen that year.
	// Append-only set: codes are added by union, never removed.
	Licenses map[int][]string `json:"licenses,omitempty"`

	// Teams maps a season year to the team the athlete raced for.
	Teams map[int]string `json:"teams,omitempty"`

	SkillLevels   map[Discipline]SkillLevel `json:"skillLevels,omitempty"`
	AgeCategories map[Discipline]string     `json:"ageCategories,omitempty"`

	// LastUpdated is the date of the most recent contributing observation.
	LastUpdated Date `json:"lastUpdated"`
}

// NewProfile creates a profile from the first observation of a UCI ID.
func NewProfile(uciID string, obs *Observation, year int) *Profile {
	p := &Profile{
		UciID:       uciID,
		FirstName:   obs.FirstName,
		LastName:    obs.LastName,
		Gender:      obs.Gender,
		City:        obs.City,
		Province:    obs.Province,
		BirthYear:   obs.BirthYear,
		LastUpdated: obs.EventDate,
	}
	if len(obs.Licenses) > 0 {
		p.Licenses = map[int][]string{year: slices.Clone(obs.Licenses)}
	}
	if obs.Team != "" {
		p.Teams = map[int]string{year: obs.Team}
	}
	for discipline, level := range obs.SkillLevels {
		if p.SkillLevels == nil {
			p.SkillLevels = make(map[Discipline]SkillLevel)
		}
		p.SkillLevels[discipline] = SkillLevel{Level: level}
	}
	for discipline, category := range obs.AgeCategories {
		if p.AgeCategories == nil {
			p.AgeCategories = make(map[Discipline]string)
		}
		p.AgeCategories[discipline] = category
	}
	return p
}

// Name returns the athlete's display name.
func (p *Profile) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AddLicenses unions license codes into the given year's list, preserving
// discovery order of new codes.
func (p *Profile) AddLicenses(year int, codes []string) {
	if len(codes) == 0 {
		return
	}
	if p.Licenses == nil {
		p.Licenses = make(map[int][]string)
	}
	existing := p.Licenses[year]
	for _, code := range codes {
		if !slices.Contains(existing, code) {
			existing = append(existing, code)
		}
	}
	p.Licenses[year] = existing
}

// Matches reports whether an observation is field-wise identical to the
// profile for the given year, meaning a merge would be a no-op apart from
// LastUpdated.
func (p *Profile) Matches(obs *Observation, year int) bool {
	if p.FirstName != obs.FirstName || p.LastName != obs.LastName {
		return false
	}
	if obs.Gender != "" && p.Gender != obs.Gender {
		return false
	}
	if obs.City != "" && p.City != obs.City {
		return false
	}
	if obs.Province != "" && p.Province != obs.Province {
		return false
	}
	if obs.BirthYear != 0 && p.BirthYear != obs.BirthYear {
		return false
	}
	if obs.Team != "" && p.Teams[year] != obs.Team {
		return false
	}
	for _, code := range obs.Licenses {
		if !slices.Contains(p.Licenses[year], code) {
			return false
		}
	}
	for discipline, level := range obs.SkillLevels {
		if p.SkillLevels[discipline].Level != level {
			return false
		}
	}
	for discipline, category := range obs.AgeCategories {
		if p.AgeCategories[discipline] != category {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the profile.
func (p *Profile) Copy() *Profile {
	clone := *p
	if p.Licenses != nil {
		clone.Licenses = make(map[int][]string, len(p.Licenses))
		for year, codes := range p.Licenses {
			clone.Licenses[year] = slices.Clone(codes)
		}
	}
	if p.Teams != nil {
		clone.Teams = make(map[int]string, len(p.Teams))
		for year, team := range p.Teams {
			clone.Teams[year] = team
		}
	}
	if p.SkillLevels != nil {
		clone.SkillLevels = make(map[Discipline]SkillLevel, len(p.SkillLevels))
		for discipline, level := range p.SkillLevels {
			if level.UpgradedAt != nil {
				upgraded := *level.UpgradedAt
				level.UpgradedAt = &upgraded
			}
			clone.SkillLevels[discipline] = level
		}
	}
	if p.AgeCategories != nil {
		clone.AgeCategories = make(map[Discipline]string, len(p.AgeCategories))
		for discipline, category := range p.AgeCategories {
			clone.AgeCategories[discipline] = category
		}
	}
	return &clone
}
