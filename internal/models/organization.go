// internal/models/organization.go
package models

import "time"

// Organization is a club record in the persistent store. It owns the
// member links and the append-only attachment list.
type Organization struct {
	ID                   string       `json:"id"`
	Token                string       `json:"token"`
	Name                 string       `json:"name"`
	ContactEmail         string       `json:"contactEmail,omitempty"`
	FormSubmitted        bool         `json:"formSubmitted"`
	ConfirmationRecorded bool         `json:"confirmationRecorded"`
	Attachments          []Attachment `json:"attachments,omitempty"`
	AttachmentCreatedAt  *time.Time   `json:"attachmentCreatedAt,omitempty"`
}

// Attachment is one entry in an organization's attachment list. Entries are
// only ever appended, never replaced.
type Attachment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// EligibilityGatesMet reports whether organization-level preconditions hold:
// the form is submitted, confirmation is recorded, and at least one
// representative-flagged member has themselves submitted.
func (o *Organization) EligibilityGatesMet(members []Member) bool {
	if !o.FormSubmitted || !o.ConfirmationRecorded {
		return false
	}
	for _, m := range members {
		if m.Representative && m.Submitted {
			return true
		}
	}
	return false
}
