package relay

import (
	"fmt"
	"time"
)

// Connection is the session state of one live transport connection.
// Destroyed the moment the transport reports disconnection.
type Connection struct {
	ID             string
	Name           string
	Role           Role
	Status         Status
	LastLocation   *Location
	LastAcceptedAt time.Time
}

// Registry maps connection ids to their session records. It is owned
// exclusively by the Engine, which serializes all access under its own
// lock; the registry itself is not safe for concurrent use.
type Registry struct {
	conns   map[string]*Connection
	order   []string // insertion order, for stable snapshots
	nextSeq int
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Add creates a record for a new connection with a sequential placeholder
// name and returns it.
func (r *Registry) Add(id string) *Connection {
	r.nextSeq++
	c := &Connection{
		ID:     id,
		Name:   fmt.Sprintf("Bus %d", r.nextSeq),
		Status: StatusAvailable,
	}
	r.conns[id] = c
	r.order = append(r.order, id)
	return c
}

// Get returns the record for id, or nil when it is already gone.
func (r *Registry) Get(id string) *Connection {
	return r.conns[id]
}

// Remove deletes the record for id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of live records.
func (r *Registry) Len() int { return len(r.conns) }

// Buses derives the current snapshot: every bus-role connection with an
// accepted location, in insertion order, at most one entry per id.
func (r *Registry) Buses() []BusSnapshot {
	buses := make([]BusSnapshot, 0, len(r.conns))
	for _, id := range r.order {
		c := r.conns[id]
		if c == nil || c.Role != RoleBus || c.LastLocation == nil {
			continue
		}
		buses = append(buses, snapshotOf(c))
	}
	return buses
}

func snapshotOf(c *Connection) BusSnapshot {
	return BusSnapshot{
		ID:       c.ID,
		Name:     c.Name,
		Status:   c.Status,
		Location: *c.LastLocation,
	}
}
