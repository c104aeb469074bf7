// Package officials holds the player's appointed officials. Other systems
// keep only an OfficialID and resolve it here; a missing id is an ordinary
// "not found" result.
package officials

import (
	"sort"

	"github.com/talgya/hegemon/internal/economy"
)

// OfficialID is a stable identifier for an official.
type OfficialID string

// Official is a servant of the crown who may be appointed governor.
type Official struct {
	ID             OfficialID        `json:"id"`
	Name           string            `json:"name"`
	Prestige       float64           `json:"prestige"`       // 0–100
	Administrative float64           `json:"administrative"` // 0–100
	Military       float64           `json:"military"`       // 0–100
	Loyalty        float64           `json:"loyalty"`        // 0–100
	SourceStratum  economy.StratumID `json:"source_stratum"`
}

// Registry is the arena of officials, indexed by id.
type Registry struct {
	byID map[OfficialID]Official
}

// NewRegistry builds a registry from a list; later duplicates win.
func NewRegistry(list []Official) *Registry {
	r := &Registry{byID: make(map[OfficialID]Official, len(list))}
	for _, o := range list {
		r.byID[o.ID] = o
	}
	return r
}

// Lookup resolves id. A nil registry resolves nothing.
func (r *Registry) Lookup(id OfficialID) (Official, bool) {
	if r == nil || id == "" {
		return Official{}, false
	}
	o, ok := r.byID[id]
	return o, ok
}

// Put inserts or replaces an official.
func (r *Registry) Put(o Official) {
	r.byID[o.ID] = o
}

// Remove deletes an official. References to it elsewhere become dangling.
func (r *Registry) Remove(id OfficialID) {
	delete(r.byID, id)
}

// All returns every official sorted by id.
func (r *Registry) All() []Official {
	if r == nil {
		return nil
	}
	out := make([]Official, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of officials.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}
