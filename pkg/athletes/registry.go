package athletes

import (
	"encoding/json"
	"sort"
)

// Registry is the canonical athlete registry: an in-memory map keyed by UCI
// ID, read in full at the start of a run and written in full at the end.
type Registry struct {
	Athletes map[string]*Profile `json:"athletes"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{Athletes: make(map[string]*Profile)}
}

// Get returns the profile for a UCI ID, or nil.
func (r *Registry) Get(uciID string) *Profile {
	return r.Athletes[uciID]
}

// Set stores a profile under its UCI ID.
func (r *Registry) Set(p *Profile) {
	if r.Athletes == nil {
		r.Athletes = make(map[string]*Profile)
	}
	r.Athletes[p.UciID] = p
}

// Len returns the number of athletes in the registry.
func (r *Registry) Len() int {
	return len(r.Athletes)
}

// Keys returns all UCI IDs in sorted order for deterministic iteration.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.Athletes))
	for key := range r.Athletes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a deep copy of the registry.
func (r *Registry) Copy() *Registry {
	clone := NewRegistry()
	for key, profile := range r.Athletes {
		clone.Athletes[key] = profile.Copy()
	}
	return clone
}

// ParseRegistry decodes a registry from its persisted JSON document.
func ParseRegistry(text string) (*Registry, error) {
	registry := NewRegistry()
	if err := json.Unmarshal([]byte(text), registry); err != nil {
		return nil, err
	}
	if registry.Athletes == nil {
		registry.Athletes = make(map[string]*Profile)
	}
	return registry, nil
}

// Encode serializes the registry to its persisted JSON document.
func (r *Registry) Encode() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
