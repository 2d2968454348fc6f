package identity

import (
	"encoding/json"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/aclement30/raceresults/pkg/athletes"
)

// maxSuggestionDistance is the levenshtein distance under which two distinct
// athletes' name keys are flagged as possible aliases of one another.
const maxSuggestionDistance = 2

// Suggestion flags two registry athletes whose names are nearly identical,
// for manual review as potential duplicates or alternate spellings.
type Suggestion struct {
	KeyA     string `json:"keyA"`
	KeyB     string `json:"keyB"`
	UciIDA   string `json:"uciIdA"`
	UciIDB   string `json:"uciIdB"`
	Distance int    `json:"distance"`
}

// Duplicates is the side file produced alongside the lookup table. An
// ambiguous name key must never silently resolve to one of two real people,
// so every collision lands here instead of in the table.
type Duplicates struct {
	Ambiguous   map[string][]string `json:"ambiguous"`
	Suggestions []Suggestion        `json:"suggestions,omitempty"`
}

// Empty reports whether the side file carries nothing worth reviewing.
func (d *Duplicates) Empty() bool {
	return len(d.Ambiguous) == 0 && len(d.Suggestions) == 0
}

// Encode serializes the duplicates side file to JSON.
func (d *Duplicates) Encode() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseLookup deserializes a persisted lookup table document.
func ParseLookup(content string) (LookupTable, error) {
	table := make(LookupTable)
	if err := json.Unmarshal([]byte(content), &table); err != nil {
		return nil, err
	}
	return table, nil
}

// Encode serializes the lookup table to JSON.
func (t LookupTable) Encode() (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// BuildLookup constructs the name-to-ID lookup table from the full registry.
// Colliding name keys are removed from the table entirely and all their
// UCI IDs recorded in the duplicates side file. Near-identical name pairs
// are reported as suggestions.
func BuildLookup(registry *athletes.Registry) (LookupTable, *Duplicates) {
	table := make(LookupTable, registry.Len())
	duplicates := &Duplicates{Ambiguous: make(map[string][]string)}

	for _, uciID := range registry.Keys() {
		profile := registry.Get(uciID)
		key := NameKey(profile.FirstName, profile.LastName)

		if ids, ambiguous := duplicates.Ambiguous[key]; ambiguous {
			duplicates.Ambiguous[key] = append(ids, uciID)
			continue
		}
		if existing, taken := table[key]; taken {
			delete(table, key)
			duplicates.Ambiguous[key] = []string{existing, uciID}
			continue
		}
		table[key] = uciID
	}

	duplicates.Suggestions = nearMisses(table)
	return table, duplicates
}

// nearMisses finds unambiguous name keys within maxSuggestionDistance edits
// of each other that belong to different athletes.
func nearMisses(table LookupTable) []Suggestion {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var suggestions []Suggestion
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			distance := levenshtein.ComputeDistance(keys[i], keys[j])
			if distance > maxSuggestionDistance {
				continue
			}
			suggestions = append(suggestions, Suggestion{
				KeyA:     keys[i],
				KeyB:     keys[j],
				UciIDA:   table[keys[i]],
				UciIDB:   table[keys[j]],
				Distance: distance,
			})
		}
	}
	return suggestions
}
