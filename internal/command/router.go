package command

import (
	"sync"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// receiver is the minimal surface the Router needs from a Connection: an
// opportunity to inspect a PC-directed frame and decide for itself
// whether it is the reply it is waiting for.
type receiver interface {
	offer(ems.Frame)
}

// Router fans out inbound PC-directed frames to every live connection.
// Connections are tracked by an integer handle rather than a direct
// pointer so that a connection which closes mid-dispatch simply stops
// resolving, instead of requiring shared ownership with the server.
type Router struct {
	mu      sync.Mutex
	nextID  uint64
	members map[uint64]receiver
}

// NewRouter builds an empty Router.
func NewRouter() *Router {
	return &Router{members: make(map[uint64]receiver)}
}

// Register adds a connection to the live set and returns its handle.
func (r *Router) Register(c receiver) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.members[id] = c
	return id
}

// Unregister removes a connection from the live set. It is idempotent: a
// handle that was already removed, or never existed, resolves to
// "gone" and is a no-op.
func (r *Router) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
}

// Len reports the number of live connections. The live-connection
// metric is a separate gauge kept by Server, not read from Len.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Dispatch offers a PC-directed frame to every live connection. Called
// from the single reactor thread driving the bus gateway's inbound
// callback: this preserves the receive order of matching across
// connections even though each connection accepts or ignores the frame
// independently.
func (r *Router) Dispatch(f ems.Frame) {
	r.mu.Lock()
	snapshot := make([]receiver, 0, len(r.members))
	for _, c := range r.members {
		snapshot = append(snapshot, c)
	}
	r.mu.Unlock()
	for _, c := range snapshot {
		c.offer(f)
	}
}
