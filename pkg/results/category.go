// Package results models per-event race results: categories, finisher
// rosters, and the combination groups that fold split categories into
// umbrella groupings. Everything here is recomputed from provider data on
// every run; only the event's result document persists it.
package results

import (
	"github.com/aclement30/raceresults/pkg/errors"
)

// ResultStatus is the recorded outcome for one athlete in one category.
type ResultStatus string

// Result statuses as published by providers.
const (
	StatusFinished ResultStatus = "FINISHED"
	StatusDNF      ResultStatus = "DNF"
	StatusDNS      ResultStatus = "DNS"
	StatusDSQ      ResultStatus = "DSQ"
)

// RaceResult is one athlete's line in a category's results.
type RaceResult struct {
	// AthleteKey is the UCI ID when the provider published one, otherwise a
	// lower-cased "first|last" name key awaiting resolution.
	AthleteKey string       `json:"athleteKey"`
	Name       string       `json:"name,omitempty"`
	Position   int          `json:"position,omitempty"` // 0 = unranked
	Status     ResultStatus `json:"status"`

	// FinishTime is elapsed seconds; 0 means the finish was recorded
	// without a usable time.
	FinishTime int `json:"finishTime,omitempty"`

	// Gap is seconds behind the category winner.
	Gap int `json:"gap,omitempty"`
}

// Category is one category's results within an event. A category is a plain
// category, an umbrella (CombinedCategories set), or a member of an umbrella
// (UmbrellaCategory set). Never both roles at once.
type Category struct {
	Alias  string `json:"alias"`
	Label  string `json:"label"`
	Gender string `json:"gender,omitempty"`

	Results []RaceResult `json:"results"`

	CombinedCategories []string `json:"combinedCategories,omitempty"`
	UmbrellaCategory   string   `json:"umbrellaCategory,omitempty"`

	Starters  int    `json:"starters,omitempty"`
	Finishers int    `json:"finishers,omitempty"`
	Laps      int    `json:"laps,omitempty"`
	Distance  string `json:"distance,omitempty"`
}

// IsUmbrella reports whether the category aggregates other categories.
func (c *Category) IsUmbrella() bool {
	return len(c.CombinedCategories) > 0
}

// IsMember reports whether the category belongs to an umbrella.
func (c *Category) IsMember() bool {
	return c.UmbrellaCategory != ""
}

// ValidateRole checks the umbrella/member exclusivity invariant.
func (c *Category) ValidateRole() error {
	if c.IsUmbrella() && c.IsMember() {
		return errors.NewValidationError("category", c.Alias, "cannot be both umbrella and member")
	}
	return nil
}

// FieldSize is the count of category participants excluding athletes who
// did not start.
func (c *Category) FieldSize() int {
	size := 0
	for _, result := range c.Results {
		if result.Status != StatusDNS {
			size++
		}
	}
	return size
}
