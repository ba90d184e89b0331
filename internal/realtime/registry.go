package realtime

import "sync"

// Registry maps a user identity to its current realtime connection id.
// At most one entry per user: a registration from a second tab or device
// overwrites the first (last write wins). The mapping is process-local and
// rebuilt empty on restart; pushes to unregistered users are dropped while
// the durable notification record remains the source of truth.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string // userID -> connID
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]string)}
}

// Set inserts or overwrites the registration for userID.
func (r *Registry) Set(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
}

// Get returns the current connection id for userID.
func (r *Registry) Get(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

// RemoveByConnID removes any entry pointing at connID. Entries for the
// same user that already point at a newer connection are left intact,
// which covers a reconnect racing the old socket's disconnect.
func (r *Registry) RemoveByConnID(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, id := range r.conns {
		if id == connID {
			delete(r.conns, userID)
		}
	}
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
