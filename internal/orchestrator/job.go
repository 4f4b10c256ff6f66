// internal/orchestrator/job.go
package orchestrator

import (
	"sync"
	"time"

	"affiliation-validator/internal/models"
)

// Job is the live state of one validation pass. The orchestrator owns every
// transition; collaborators return pure outcomes and never mutate the job.
// Checklist updates are visible to pollers as soon as written and never
// regress.
type Job struct {
	mu         sync.Mutex
	orgID      string
	state      models.JobState
	startedAt  time.Time
	progress   models.JobProgress
	entries    []models.ChecklistEntry
	result     *models.JobResult
	diagnostic string
}

func NewJob(orgID string) *Job {
	return &Job{
		orgID:     orgID,
		state:     models.JobStateRunning,
		startedAt: time.Now().UTC(),
	}
}

func (j *Job) State() models.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Snapshot returns a poll-safe copy of the job.
func (j *Job) Snapshot() models.JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := models.JobSnapshot{
		OrganizationID: j.orgID,
		State:          j.state,
		StartedAt:      j.startedAt,
		Progress:       j.progress,
		Diagnostic:     j.diagnostic,
	}
	if len(j.entries) > 0 {
		snap.Members = make([]models.ChecklistEntry, len(j.entries))
		copy(snap.Members, j.entries)
	}
	if j.result != nil {
		r := *j.result
		snap.Result = &r
	}
	return snap
}

// seed installs one queued checklist entry per member and sets the total.
func (j *Job) seed(members []models.Member) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = make([]models.ChecklistEntry, 0, len(members))
	for _, m := range members {
		entry := models.ChecklistEntry{
			MemberID: m.ID,
			Name:     m.Name,
			Type:     m.Type,
			Status:   models.StatusQueued,
		}
		if bucket, ok := models.BucketFromCategory(m.ExpectedCategory); ok {
			entry.ExpectedBucket = bucket
		}
		j.entries = append(j.entries, entry)
	}
	j.progress = models.JobProgress{Total: len(members)}
}

// setMemberStatus records a terminal per-member status and advances
// progress. Reason text is already sanitized by the caller.
func (j *Job) setMemberStatus(memberID string, status models.MemberStatus, reasonCode, reasonMessage string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range j.entries {
		if j.entries[i].MemberID != memberID {
			continue
		}
		wasTerminal := j.entries[i].Status.Terminal()
		j.entries[i].Status = status
		j.entries[i].ReasonCode = reasonCode
		j.entries[i].ReasonMessage = reasonMessage
		if status.Terminal() && !wasTerminal {
			j.progress.Validated++
		}
		return
	}
}

func (j *Job) checklist() []models.ChecklistEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := make([]models.ChecklistEntry, len(j.entries))
	copy(entries, j.entries)
	return entries
}

func (j *Job) complete(result models.JobResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = models.JobStateDone
	j.result = &result
}

func (j *Job) fail(diagnostic string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = models.JobStateError
	j.diagnostic = diagnostic
}

func (j *Job) block(diagnostic string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = models.JobStateBlocked
	j.diagnostic = diagnostic
}
