package realtime

import "sync"

// rooms tracks thread broadcast groups: which connections joined which
// thread. A connection may be a member of multiple threads at once.
type rooms struct {
	mu      sync.RWMutex
	members map[string]map[*conn]struct{} // threadID -> members
}

func newRooms() *rooms {
	return &rooms{members: make(map[string]map[*conn]struct{})}
}

func (r *rooms) join(threadID string, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.members[threadID]
	if !ok {
		group = make(map[*conn]struct{})
		r.members[threadID] = group
	}
	group[c] = struct{}{}
}

// leave removes the connection from every thread group, deleting groups
// that become empty.
func (r *rooms) leave(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for threadID, group := range r.members {
		delete(group, c)
		if len(group) == 0 {
			delete(r.members, threadID)
		}
	}
}

// broadcast queues a prepared frame on every member of the thread group,
// including the sender if joined.
func (r *rooms) broadcast(threadID string, frame []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.members[threadID] {
		c.queue(frame)
	}
}
