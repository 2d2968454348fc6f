package results

import (
	"encoding/json"

	"github.com/aclement30/raceresults/pkg/athletes"
)

// Event is one race event's consolidated result document.
type Event struct {
	Hash string        `json:"hash"`
	Name string        `json:"name"`
	Date athletes.Date `json:"date"`

	// Serie groups recurring events so combination groups and point rules
	// can be configured once per series.
	Serie      string              `json:"serie,omitempty"`
	Discipline athletes.Discipline `json:"discipline"`

	// PointsEligible is false for non-sanctioned events, which never grant
	// upgrade points.
	PointsEligible bool `json:"pointsEligible"`

	// DoublePoints doubles every award (provincial championships).
	DoublePoints bool `json:"doublePoints,omitempty"`

	Categories map[string]*Category `json:"categories"`
}

// Category returns the category with the given alias, or nil.
func (e *Event) Category(alias string) *Category {
	return e.Categories[alias]
}

// SetCategory stores a category under its alias.
func (e *Event) SetCategory(c *Category) {
	if e.Categories == nil {
		e.Categories = make(map[string]*Category)
	}
	e.Categories[c.Alias] = c
}

// ParseEvent decodes an event result document from JSON.
func ParseEvent(text string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(text), &event); err != nil {
		return nil, err
	}
	if event.Categories == nil {
		event.Categories = make(map[string]*Category)
	}
	return &event, nil
}

// Encode serializes the event to its persisted JSON document.
func (e *Event) Encode() (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
