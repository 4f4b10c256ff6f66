// internal/models/job.go
package models

import "time"

// JobState is the lifecycle state of a validation job.
type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateError   JobState = "error"
	JobStateBlocked JobState = "blocked"
)

// Terminal reports whether the state ends the job. Terminal jobs are never
// resurrected; a later trigger creates a fresh job object.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateError || s == JobStateBlocked
}

// MemberStatus is the sanitized per-member vocabulary exposed to pollers.
// Raw diagnostics never appear here.
type MemberStatus string

const (
	StatusQueued       MemberStatus = "queued"
	StatusValidated    MemberStatus = "validated"
	StatusAmbiguous    MemberStatus = "ambiguous"
	StatusUnauthorized MemberStatus = "unauthorized"
	StatusNotFound     MemberStatus = "not_found"
	StatusMismatch     MemberStatus = "mismatch"
	StatusError        MemberStatus = "error"
	StatusNoRequest    MemberStatus = "no_request"
	StatusManual       MemberStatus = "manual"
)

// Terminal reports whether the status is final for the member in this pass.
func (s MemberStatus) Terminal() bool {
	return s != StatusQueued
}

// JobProgress counts members with a terminal status against the total.
type JobProgress struct {
	Validated int `json:"validated"`
	Total     int `json:"total"`
}

// ChecklistEntry is the live per-member line of a running job.
type ChecklistEntry struct {
	MemberID       string         `json:"id"`
	Name           string         `json:"name"`
	Type           MembershipType `json:"type"`
	ExpectedBucket Bucket         `json:"expected_bucket,omitempty"`
	Status         MemberStatus   `json:"status"`
	ReasonCode     string         `json:"reason_code,omitempty"`
	ReasonMessage  string         `json:"reason_message,omitempty"`
}

// JobResult is present only once a job reaches done.
type JobResult struct {
	DocumentID    string    `json:"documentId"`
	DownloadToken string    `json:"downloadToken"`
	FileName      string    `json:"fileName"`
	TotalFee      float64   `json:"totalFee"`
	FeeWaived     bool      `json:"feeWaived"`
	NoMonthlyFee  bool      `json:"noMonthlyFee"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// JobSnapshot is the poll-safe copy of a validation job.
type JobSnapshot struct {
	OrganizationID string           `json:"-"`
	State          JobState         `json:"state"`
	StartedAt      time.Time        `json:"startedAt"`
	Progress       JobProgress      `json:"progress"`
	Members        []ChecklistEntry `json:"members,omitempty"`
	Result         *JobResult       `json:"result,omitempty"`
	Diagnostic     string           `json:"diagnostic,omitempty"`
}
