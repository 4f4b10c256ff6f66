// internal/orchestrator/registry.go
package orchestrator

import "sync"

// Registry is the concurrent job map keyed by organization id. It is
// injected so the transport layer never owns job state and a durable
// implementation can replace the in-memory one.
type Registry interface {
	// Get returns the job currently registered for the organization.
	Get(orgID string) (*Job, bool)
	// UpsertIfAbsent registers the job unless a non-terminal job already
	// holds the key. A terminal job counts as absent and is replaced; the
	// invariant is at most one non-terminal job per organization.
	UpsertIfAbsent(orgID string, job *Job) (*Job, bool)
}

type memoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryRegistry() Registry {
	return &memoryRegistry{jobs: make(map[string]*Job)}
}

func (r *memoryRegistry) Get(orgID string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[orgID]
	return job, ok
}

func (r *memoryRegistry) UpsertIfAbsent(orgID string, job *Job) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[orgID]; ok && !existing.State().Terminal() {
		return existing, false
	}
	r.jobs[orgID] = job
	return job, true
}
