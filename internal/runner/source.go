package runner

import (
	"encoding/json"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/results"
)

// EventSource is one event's normalized source document: the event with its
// per-category results plus the athlete observations extracted from them.
// Upstream ingestion produces these; a run consolidates the categories in
// place and writes the document back.
type EventSource struct {
	Path         string                 `json:"-"`
	Event        *results.Event         `json:"event"`
	Observations []athletes.Observation `json:"observations"`
}

// ParseEventSource decodes an event source document.
func ParseEventSource(content string) (*EventSource, error) {
	var source EventSource
	if err := json.Unmarshal([]byte(content), &source); err != nil {
		return nil, err
	}
	return &source, nil
}

// Encode serializes the event source document.
func (s *EventSource) Encode() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
