package realtime

import "sync"

// Status is the coarse state of a tracked background job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
)

// Handle references an in-flight background process and its cancellation
// capability.
type Handle struct {
	kill   func() error
	status Status
}

// Status returns the job's coarse state.
func (h Handle) Status() Status {
	return h.status
}

// Kill sends a forceful termination signal to the underlying process.
// Safe to invoke when no process has been attached yet or when the
// process already exited: failures are swallowed, cancellation is
// best-effort with no confirmation wait.
func (h Handle) Kill() {
	if h.kill != nil {
		_ = h.kill()
	}
}

// Tracker maps job identifiers (submission ids) to handles of in-flight
// background processes. Process-local; every created handle must be
// removed on completion, cancellation, or failure.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]Handle
}

// NewTracker creates an empty job tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]Handle)}
}

// Start inserts or overwrites the handle for jobID. A nil kill function
// is valid for jobs that are queued but not yet running.
func (t *Tracker) Start(jobID string, kill func() error, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[jobID] = Handle{kill: kill, status: status}
}

// Get returns a snapshot of the handle for jobID.
func (t *Tracker) Get(jobID string) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.jobs[jobID]
	return h, ok
}

// Remove deletes the handle for jobID. No-op if absent.
func (t *Tracker) Remove(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, jobID)
}

// UpdateStatus changes the status of an existing handle. No-op if absent.
func (t *Tracker) UpdateStatus(jobID string, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.jobs[jobID]; ok {
		h.status = status
		t.jobs[jobID] = h
	}
}

// Len returns the number of tracked jobs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}
