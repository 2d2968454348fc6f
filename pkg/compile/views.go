// Package compile derives read-optimized views from the merged registry and
// point store. Both views are pure derivations: they scan the persisted
// documents and never mutate them.
package compile

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/points"
)

const (
	// recentUpgradeWindow is how far back an upgrade still counts as recent.
	recentUpgradeWindow = 7 * 24 * time.Hour

	// upgradeCooldown keeps freshly upgraded athletes off the collectors
	// list while they settle into the new category.
	upgradeCooldown = 30 * 24 * time.Hour

	// confidenceThreshold separates reliably dated upgrades from inferred
	// ones. Only directly observed category changes cross it.
	confidenceThreshold = 0.8

	// collectorThreshold is the accumulated un-stale point total at which
	// an athlete becomes eligible for an upgrade.
	collectorThreshold = 60
)

// Upgrade is one row of the recently-upgraded view.
type Upgrade struct {
	UciID      string              `json:"uciId"`
	Name       string              `json:"name"`
	Discipline athletes.Discipline `json:"discipline"`
	Level      int                 `json:"level"`
	UpgradedAt athletes.Date       `json:"upgradedAt"`
}

// Collector is one row of the points-collectors view: an athlete whose
// accumulated points meet the upgrade threshold.
type Collector struct {
	UciID      string              `json:"uciId"`
	Name       string              `json:"name"`
	Discipline athletes.Discipline `json:"discipline"`
	Level      int                 `json:"level"`
	Points     int                 `json:"points"`

	// RacedFaster is set when the athlete has since raced in a faster
	// category than their recorded level, a signal they may already be
	// under-categorized.
	RacedFaster bool `json:"racedFaster,omitempty"`
}

// RecentUpgrades returns athletes whose most recent reliably dated upgrade
// falls within the last 7 days, sorted by UCI ID then discipline.
func RecentUpgrades(registry *athletes.Registry, now time.Time) []Upgrade {
	cutoff := athletes.DateOf(now.Add(-recentUpgradeWindow))
	var upgrades []Upgrade

	for _, uciID := range registry.Keys() {
		profile := registry.Get(uciID)
		for _, discipline := range sortedDisciplines(profile) {
			level := profile.SkillLevels[discipline]
			if level.UpgradedAt == nil || level.Confidence < confidenceThreshold {
				continue
			}
			if level.UpgradedAt.Before(cutoff) {
				continue
			}
			upgrades = append(upgrades, Upgrade{
				UciID:      uciID,
				Name:       profile.Name(),
				Discipline: discipline,
				Level:      level.Level,
				UpgradedAt: *level.UpgradedAt,
			})
		}
	}
	return upgrades
}

// PointsCollectors returns athletes below the top level and above novice,
// not upgraded within the cooldown (or never reliably dated), whose
// un-stale UPGRADE points meet the threshold.
func PointsCollectors(registry *athletes.Registry, store *points.Store, now time.Time) []Collector {
	cooldownCutoff := athletes.DateOf(now.Add(-upgradeCooldown))
	var collectors []Collector

	for _, uciID := range registry.Keys() {
		profile := registry.Get(uciID)
		for _, discipline := range sortedDisciplines(profile) {
			level := profile.SkillLevels[discipline]
			if level.Level <= athletes.SkillLevelTop || level.Level >= athletes.SkillLevelNovice {
				continue
			}

			reliablyDated := level.UpgradedAt != nil && level.Confidence >= confidenceThreshold
			if reliablyDated && !level.UpgradedAt.Before(cooldownCutoff) {
				continue
			}

			// Points predating the last confirmed level change are stale.
			var since *athletes.Date
			if reliablyDated {
				since = level.UpgradedAt
			}
			total := store.ActivePoints(uciID, points.TypeUpgrade, since)
			if total < collectorThreshold {
				continue
			}

			collectors = append(collectors, Collector{
				UciID:       uciID,
				Name:        profile.Name(),
				Discipline:  discipline,
				Level:       level.Level,
				Points:      total,
				RacedFaster: racedFaster(store, uciID, level, since),
			})
		}
	}
	return collectors
}

// racedFaster reports whether any counted entry came from a category whose
// implied level is faster than the athlete's recorded level.
func racedFaster(store *points.Store, uciID string, level athletes.SkillLevel, since *athletes.Date) bool {
	from := athletes.Date{}
	if since != nil {
		from = *since
	}
	for _, entry := range store.EntriesSince(uciID, from) {
		if implied, ok := impliedLevel(entry.Category); ok && implied < level.Level {
			return true
		}
	}
	return false
}

// impliedLevel extracts the fastest skill level implied by a category alias
// such as "cat-3" or "cat-1-2-men". Aliases without a level digit imply
// nothing.
func impliedLevel(alias string) (int, bool) {
	best := 0
	digit := 0
	inNumber := false
	flush := func() {
		if inNumber && digit >= athletes.SkillLevelTop && digit <= athletes.SkillLevelNovice {
			if best == 0 || digit < best {
				best = digit
			}
		}
		digit = 0
		inNumber = false
	}
	for _, r := range alias {
		if r >= '0' && r <= '9' {
			digit = digit*10 + int(r-'0')
			inNumber = true
			continue
		}
		flush()
	}
	flush()
	return best, best != 0
}

// sortedDisciplines returns a profile's disciplines in stable order.
func sortedDisciplines(profile *athletes.Profile) []athletes.Discipline {
	disciplines := make([]athletes.Discipline, 0, len(profile.SkillLevels))
	for discipline := range profile.SkillLevels {
		disciplines = append(disciplines, discipline)
	}
	sort.Slice(disciplines, func(i, j int) bool { return disciplines[i] < disciplines[j] })
	return disciplines
}

// EncodeUpgrades serializes the recently-upgraded view document.
func EncodeUpgrades(upgrades []Upgrade) (string, error) {
	return encode(upgrades)
}

// EncodeCollectors serializes the points-collectors view document.
func EncodeCollectors(collectors []Collector) (string, error) {
	return encode(collectors)
}

func encode(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
