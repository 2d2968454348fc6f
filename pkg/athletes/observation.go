package athletes

import (
	"strings"

	"github.com/aclement30/raceresults/pkg/errors"
)

// Observation is one athlete sighting in one event's results, already
// normalized by a provider-specific parser. Observations are ephemeral:
// they are produced per ingestion run and never persisted as-is.
type Observation struct {
	UciID     string `json:"uciId,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`

	// BirthYear is derived by the parser from the published age and the
	// event year, so it can be off by one.
	BirthYear int `json:"birthYear,omitempty"`

	Team     string   `json:"team,omitempty"`
	Licenses []string `json:"licenses,omitempty"`

	// Categories lists the event category aliases the athlete appeared
	// in. Consolidation filters umbrella aliases out of this list before
	// the event document is written back.
	Categories []string `json:"categories,omitempty"`

	SkillLevels   map[Discipline]int    `json:"skillLevels,omitempty"`
	AgeCategories map[Discipline]string `json:"ageCategories,omitempty"`

	EventDate Date   `json:"eventDate"`
	EventHash string `json:"eventHash"`
}

// Validate checks the fields every observation must carry. A failing
// observation is skipped and logged, never fatal to the batch.
func (o *Observation) Validate() error {
	if strings.TrimSpace(o.FirstName) == "" {
		return errors.NewValidationError("firstName", o.FirstName, "required")
	}
	if strings.TrimSpace(o.LastName) == "" {
		return errors.NewValidationError("lastName", o.LastName, "required")
	}
	if o.EventDate.IsZero() {
		return errors.NewValidationError("eventDate", "", "required")
	}
	for discipline, level := range o.SkillLevels {
		if !ValidLevel(level) {
			return errors.NewValidationError("skillLevels."+string(discipline), level, "level out of range")
		}
	}
	return nil
}

// Name returns the athlete's display name.
func (o *Observation) Name() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
