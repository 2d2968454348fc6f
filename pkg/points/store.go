package points

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/identity"
	"github.com/aclement30/raceresults/pkg/logging"
)

// retentionMonths is the rolling window length for persisted entries.
const retentionMonths = 12

// Entry is one persisted point award.
type Entry struct {
	AthleteKey string        `json:"athleteKey"`
	EventHash  string        `json:"eventHash"`
	Category   string        `json:"category"`
	Date       athletes.Date `json:"date"`
	Points     int           `json:"points"`
	Type       EntryType     `json:"type"`
	FieldSize  int           `json:"fieldSize,omitempty"`
}

// Store is the athlete-indexed upgrade-point store, read in full at the
// start of a run and written in full at the end. At most one entry exists
// per (athlete, eventHash, category).
type Store struct {
	Entries map[string][]Entry `json:"entries"`
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{Entries: make(map[string][]Entry)}
}

// ParseStore decodes a store from its persisted JSON document.
func ParseStore(text string) (*Store, error) {
	store := NewStore()
	if err := json.Unmarshal([]byte(text), store); err != nil {
		return nil, err
	}
	if store.Entries == nil {
		store.Entries = make(map[string][]Entry)
	}
	return store, nil
}

// Encode serializes the store to its persisted JSON document.
func (s *Store) Encode() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Len returns the total number of entries across all athletes.
func (s *Store) Len() int {
	total := 0
	for _, entries := range s.Entries {
		total += len(entries)
	}
	return total
}

// MergeResult summarizes one store merge.
type MergeResult struct {
	Inserted int
	Replaced int
	Dropped  int // entries whose athlete key stayed unresolved
	Pruned   int // entries outside the rolling window
}

// Merge folds new entries into the store. Stored entries dated within the
// target year are removed first, so a full re-run for that year fully
// replaces prior results. Name-keyed entries are resolved through the
// lookup table and overrides; entries that remain unresolved are dropped.
// After all insertions, entries older than now minus 12 months are pruned,
// so the persisted store never grows unbounded.
func (s *Store) Merge(ctx context.Context, entries []Entry, year int, now time.Time, resolver *identity.Resolver) *MergeResult {
	log := logging.FromContext(ctx)
	result := &MergeResult{}

	// A re-processed year replaces its prior results completely.
	for athlete, stored := range s.Entries {
		kept := stored[:0]
		for _, entry := range stored {
			if entry.Date.Year() != year {
				kept = append(kept, entry)
			}
		}
		s.Entries[athlete] = kept
	}

	for _, entry := range entries {
		key, err := resolver.ResolveKey(entry.AthleteKey)
		if err != nil {
			log.Warn().
				Err(err).
				Str("athlete_key", entry.AthleteKey).
				Str("event", entry.EventHash).
				Msg("Dropping point entry with unresolved athlete")
			result.Dropped++
			continue
		}
		entry.AthleteKey = key

		if s.upsert(entry) {
			result.Inserted++
		} else {
			result.Replaced++
		}
	}

	result.Pruned = s.prune(now)
	s.compact()
	return result
}

// upsert inserts an entry, replacing any stored entry for the same
// (athlete, eventHash, category). Returns true on insert, false on replace.
func (s *Store) upsert(entry Entry) bool {
	stored := s.Entries[entry.AthleteKey]
	for i := range stored {
		if stored[i].EventHash == entry.EventHash && stored[i].Category == entry.Category {
			stored[i] = entry
			return false
		}
	}
	s.Entries[entry.AthleteKey] = append(stored, entry)
	return true
}

// prune removes entries older than now minus the retention window and
// returns how many were removed.
func (s *Store) prune(now time.Time) int {
	cutoff := athletes.DateOf(now.AddDate(0, -retentionMonths, 0))
	pruned := 0
	for athlete, stored := range s.Entries {
		kept := stored[:0]
		for _, entry := range stored {
			if entry.Date.Before(cutoff) {
				pruned++
				continue
			}
			kept = append(kept, entry)
		}
		s.Entries[athlete] = kept
	}
	return pruned
}

// compact drops athletes left with no entries.
func (s *Store) compact() {
	for athlete, stored := range s.Entries {
		if len(stored) == 0 {
			delete(s.Entries, athlete)
		}
	}
}

// ActivePoints sums an athlete's points of one type, counting only entries
// dated on or after the since date. A nil since counts everything retained.
func (s *Store) ActivePoints(athleteKey string, entryType EntryType, since *athletes.Date) int {
	total := 0
	for _, entry := range s.Entries[athleteKey] {
		if entry.Type != entryType {
			continue
		}
		if since != nil && entry.Date.Before(*since) {
			continue
		}
		total += entry.Points
	}
	return total
}

// EntriesSince returns an athlete's entries dated on or after the given
// date, sorted by date ascending.
func (s *Store) EntriesSince(athleteKey string, since athletes.Date) []Entry {
	var matched []Entry
	for _, entry := range s.Entries[athleteKey] {
		if !entry.Date.Before(since) {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.Before(matched[j].Date)
	})
	return matched
}
