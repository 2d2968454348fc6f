// Package identity resolves raw athlete observations to canonical athlete
// keys. Resolution order: verified UCI ID (with replacement overrides),
// then the persisted name lookup table, then manual alternate-name
// overrides. Observations that resolve through none of these are not
// attributable and are excluded from the registry.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aclement30/raceresults/pkg/athletes"
	"github.com/aclement30/raceresults/pkg/errors"
)

// uciIDLength is the fixed length of a valid UCI ID.
const uciIDLength = 11

var lower = cases.Lower(language.Und)

// ValidUciID reports whether a value matches the canonical UCI ID format:
// a fixed-length numeric string.
func ValidUciID(id string) bool {
	if len(id) != uciIDLength {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NameKey derives the case-folded "first|last" lookup key for a name.
func NameKey(firstName, lastName string) string {
	return lower.String(strings.TrimSpace(firstName)) + "|" + lower.String(strings.TrimSpace(lastName))
}

// LookupTable maps a name key to a UCI ID. It is rebuilt from the full
// registry at the end of every merge pass; ambiguous keys are absent.
type LookupTable map[string]string

// Resolver resolves observations against the lookup table and overrides.
// It is a pure function over the supplied tables: resolving has no side
// effects.
type Resolver struct {
	lookup    LookupTable
	overrides *athletes.Overrides
}

// NewResolver creates a resolver. A nil overrides document behaves as empty.
func NewResolver(lookup LookupTable, overrides *athletes.Overrides) *Resolver {
	if overrides == nil {
		overrides = &athletes.Overrides{}
	}
	return &Resolver{lookup: lookup, overrides: overrides}
}

// Resolve returns the canonical athlete key for an observation, or an
// ErrUnresolvedIdentity error when the observation is not attributable.
func (r *Resolver) Resolve(obs *athletes.Observation) (string, error) {
	if ValidUciID(obs.UciID) {
		if target, ok := r.overrides.ReplacementFor(obs.UciID); ok {
			return target, nil
		}
		return obs.UciID, nil
	}

	key := NameKey(obs.FirstName, obs.LastName)
	return r.resolveNameKey(key, obs.Name(), obs.UciID)
}

// ResolveKey resolves an athlete key that may be either a UCI ID or a name
// key, as carried by point entries awaiting resolution.
func (r *Resolver) ResolveKey(key string) (string, error) {
	if ValidUciID(key) {
		if target, ok := r.overrides.ReplacementFor(key); ok {
			return target, nil
		}
		return key, nil
	}
	return r.resolveNameKey(key, key, "")
}

func (r *Resolver) resolveNameKey(key, name, rawID string) (string, error) {
	if uciID, ok := r.lookup[key]; ok {
		return uciID, nil
	}
	if uciID, ok := r.overrides.AlternateNames[key]; ok {
		return uciID, nil
	}
	return "", errors.NewIdentityError(name, rawID, "no verified UCI ID and no name match")
}
