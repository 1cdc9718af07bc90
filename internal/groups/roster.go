// Package groups exposes the external group roster the coordinator reads
// membership from. Members are referenced by ZK commitment, never by name.
package groups

import (
	"context"
	"sync"
)

// Group is one roster entry.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Roster is the read-only group source.
type Roster interface {
	AllGroups(ctx context.Context) ([]Group, error)
}

// MemoryRoster is an in-memory roster for tests/dev.
type MemoryRoster struct {
	mu     sync.RWMutex
	groups []Group
}

// NewMemoryRoster constructs a roster with the given groups.
func NewMemoryRoster(groups ...Group) *MemoryRoster {
	return &MemoryRoster{groups: groups}
}

func (r *MemoryRoster) AllGroups(_ context.Context) ([]Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Group, len(r.groups))
	copy(out, r.groups)
	return out, nil
}

// SetGroups replaces the roster contents.
func (r *MemoryRoster) SetGroups(groups []Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = make([]Group, len(groups))
	copy(r.groups, groups)
}

// Contains reports whether a commitment is a member of the group.
func (g Group) Contains(commitment string) bool {
	for _, member := range g.Members {
		if member == commitment {
			return true
		}
	}
	return false
}
