// Package reconcile merges partial athlete observations into the canonical
// registry. Conflicts resolve by recency: the most recently dated
// observation's value wins, with ties favoring the incoming record. License
// lists union per year and never shrink. Operator field overrides are
// applied after all automated merging, so they always win.
package reconcile

import (
	"context"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/identity"
	"github.com/aclement30/raceresults/pkg/logging"
)

// Merger folds observations into the registry one batch at a time.
type Merger struct {
	resolver  *identity.Resolver
	overrides *athletes.Overrides
}

// NewMerger creates a merger. A nil overrides document behaves as empty.
func NewMerger(resolver *identity.Resolver, overrides *athletes.Overrides) *Merger {
	if overrides == nil {
		overrides = &athletes.Overrides{}
	}
	return &Merger{resolver: resolver, overrides: overrides}
}

// Result summarizes one merge pass.
type Result struct {
	Inserted   int
	Updated    int
	Unchanged  int
	Skipped    int // malformed observations
	Unresolved int // observations with no attributable identity
}

// MergeObservations folds a batch of observations into the registry for the
// given season year, sequentially in input order so later duplicates of the
// same athlete in the batch still merge deterministically. The registry is
// mutated in place. Malformed or unattributable observations are logged and
// skipped, never fatal.
func (m *Merger) MergeObservations(ctx context.Context, registry *athletes.Registry, observations []athletes.Observation, year int) *Result {
	log := logging.FromContext(ctx)
	result := &Result{}

	for i := range observations {
		obs := observations[i]

		if err := obs.Validate(); err != nil {
			log.Warn().
				Err(err).
				Str("name", obs.Name()).
				Str("event", obs.EventHash).
				Msg("Skipping malformed observation")
			result.Skipped++
			continue
		}

		key, err := m.resolver.Resolve(&obs)
		if err != nil {
			log.Warn().
				Err(err).
				Str("name", obs.Name()).
				Str("event", obs.EventHash).
				Msg("Dropping unattributable observation")
			result.Unresolved++
			continue
		}

		if m.overrides.TeamIgnored(obs.Team) {
			obs.Team = ""
		}

		existing := registry.Get(key)
		switch {
		case existing == nil:
			registry.Set(athletes.NewProfile(key, &obs, year))
			result.Inserted++
		case existing.Matches(&obs, year):
			result.Unchanged++
		default:
			mergeProfile(existing, &obs, year)
			result.Updated++
		}
	}

	// Operator corrections always win over automated reconciliation.
	m.ApplyAthleteOverrides(registry)

	return result
}

// ApplyAthleteOverrides applies per-athlete field pins to every profile they
// reference. Unknown UCI IDs are ignored: the athlete may simply not have
// been sighted yet.
func (m *Merger) ApplyAthleteOverrides(registry *athletes.Registry) {
	for uciID, fields := range m.overrides.AthleteData {
		if profile := registry.Get(uciID); profile != nil {
			fields.Apply(profile)
		}
	}
}

// mergeProfile reconciles one observation into an existing profile.
func mergeProfile(p *athletes.Profile, obs *athletes.Observation, year int) {
	// Ties favor the incoming record: same-day observations overwrite.
	incomingWins := !obs.EventDate.Before(p.LastUpdated)

	mergeString(&p.FirstName, obs.FirstName, incomingWins)
	mergeString(&p.LastName, obs.LastName, incomingWins)
	mergeString(&p.Gender, obs.Gender, incomingWins)
	mergeString(&p.City, obs.City, incomingWins)
	mergeString(&p.Province, obs.Province, incomingWins)

	if obs.BirthYear != 0 && (p.BirthYear == 0 || (p.BirthYear != obs.BirthYear && incomingWins)) {
		p.BirthYear = obs.BirthYear
	}

	if obs.Team != "" {
		if current, ok := p.Teams[year]; !ok || current == "" || (current != obs.Team && incomingWins) {
			if p.Teams == nil {
				p.Teams = make(map[int]string)
			}
			p.Teams[year] = obs.Team
		}
	}

	p.AddLicenses(year, obs.Licenses)

	for discipline, category := range obs.AgeCategories {
		if current, ok := p.AgeCategories[discipline]; !ok || current == "" || (current != category && incomingWins) {
			if p.AgeCategories == nil {
				p.AgeCategories = make(map[athletes.Discipline]string)
			}
			p.AgeCategories[discipline] = category
		}
	}

	mergeSkillLevels(p, obs, incomingWins)

	p.LastUpdated = athletes.MaxDate(p.LastUpdated, obs.EventDate)
}

// mergeSkillLevels reconciles per-discipline levels. A level decrease is an
// upgrade (level 1 is fastest) and records an estimated upgrade date from
// the observation. A level first established on an existing profile carries
// reduced confidence, since the change cannot be dated.
func mergeSkillLevels(p *athletes.Profile, obs *athletes.Observation, incomingWins bool) {
	for discipline, level := range obs.SkillLevels {
		current, known := p.SkillLevels[discipline]
		if p.SkillLevels == nil {
			p.SkillLevels = make(map[athletes.Discipline]athletes.SkillLevel)
		}

		switch {
		case !known:
			upgraded := obs.EventDate
			p.SkillLevels[discipline] = athletes.SkillLevel{
				Level:      level,
				UpgradedAt: &upgraded,
				Confidence: athletes.UpgradeConfidenceInferred,
			}
		case current.Level == level || !incomingWins:
			// No change, or the observation is stale.
		case level < current.Level:
			upgraded := obs.EventDate
			p.SkillLevels[discipline] = athletes.SkillLevel{
				Level:      level,
				UpgradedAt: &upgraded,
				Confidence: athletes.UpgradeConfidenceObserved,
			}
		default:
			// Downgrade: take the level, but it dates no upgrade.
			p.SkillLevels[discipline] = athletes.SkillLevel{Level: level}
		}
	}
}

// mergeString applies recency-wins resolution to one scalar field.
func mergeString(existing *string, incoming string, incomingWins bool) {
	if incoming == "" {
		return
	}
	if *existing == "" || (*existing != incoming && incomingWins) {
		*existing = incoming
	}
}
