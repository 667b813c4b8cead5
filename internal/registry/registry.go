// Package registry maintains the process-wide table of live connections.
package registry

import (
	"sync"

	"github.com/stride-hr/presence-gateway/internal/model"
)

// entry pairs a connection record with its transport-level group
// memberships. Membership lives and dies with the entry, so group state can
// never outlive the connection it belongs to.
type entry struct {
	conn   *model.Connection
	groups map[string]struct{}
}

// Registry is a concurrency-safe table of live connections keyed by
// connection id. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register atomically inserts a connection. It fails with ErrAlreadyExists
// if the same connection id is still present.
func (r *Registry) Register(conn *model.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[conn.ID]; ok {
		return model.ErrAlreadyExists
	}
	r.entries[conn.ID] = &entry{
		conn:   conn,
		groups: make(map[string]struct{}),
	}
	return nil
}

// Remove atomically deletes a connection and returns the removed record so
// callers can log connection duration.
func (r *Registry) Remove(connectionID string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[connectionID]
	if !ok {
		return nil, model.ErrConnectionNotFound
	}
	delete(r.entries, connectionID)
	return e.conn, nil
}

// Get returns the record for a connection id.
func (r *Registry) Get(connectionID string) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[connectionID]
	if !ok {
		return nil, model.ErrConnectionNotFound
	}
	return e.conn, nil
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a point-in-time copy of all records. Only the copy itself
// holds the lock; callers may iterate freely afterwards.
func (r *Registry) Snapshot() []*model.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*model.Connection, 0, len(r.entries))
	for _, e := range r.entries {
		conns = append(conns, e.conn)
	}
	return conns
}

// AggregateByBranch returns connection counts grouped by branch id.
func (r *Registry) AggregateByBranch() map[string]int {
	return CountByBranch(r.Snapshot())
}

// AggregateByRole returns connection counts grouped by role name.
func (r *Registry) AggregateByRole() map[string]int {
	return CountByRole(r.Snapshot())
}

// CountByBranch counts connections per branch id over a snapshot.
// Connections without a branch are not counted. Callers needing several
// aggregates over a consistent view pass the same snapshot to each.
func CountByBranch(conns []*model.Connection) map[string]int {
	counts := make(map[string]int)
	for _, conn := range conns {
		if conn.Identity.BranchID != "" {
			counts[conn.Identity.BranchID]++
		}
	}
	return counts
}

// CountByRole counts connections per role name over a snapshot. A
// connection holding several roles is counted once per role.
func CountByRole(conns []*model.Connection) map[string]int {
	counts := make(map[string]int)
	for _, conn := range conns {
		for _, role := range conn.Identity.Roles {
			counts[role]++
		}
	}
	return counts
}

// JoinGroup adds the connection to a group. Joining a group twice is a
// no-op. Returns ErrConnectionNotFound if the connection is gone.
func (r *Registry) JoinGroup(connectionID, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[connectionID]
	if !ok {
		return model.ErrConnectionNotFound
	}
	e.groups[group] = struct{}{}
	return nil
}

// LeaveGroup removes the connection from a group. Leaving a group the
// connection is not a member of is a no-op.
func (r *Registry) LeaveGroup(connectionID, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[connectionID]
	if !ok {
		return model.ErrConnectionNotFound
	}
	delete(e.groups, group)
	return nil
}

// InGroup reports whether the connection is currently a member of the group.
func (r *Registry) InGroup(connectionID, group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[connectionID]
	if !ok {
		return false
	}
	_, member := e.groups[group]
	return member
}

// MembersOf returns the ids of all connections currently in the group. The
// result is a snapshot; delivery happens outside the registry lock.
func (r *Registry) MembersOf(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, e := range r.entries {
		if _, ok := e.groups[group]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// AllIDs returns the ids of all live connections.
func (r *Registry) AllIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
