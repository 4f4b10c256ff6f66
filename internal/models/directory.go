// internal/models/directory.go
package models

import "time"

// DirectoryCandidate is a record returned by the external identity search
// representing a possible person match. Candidates are transient and never
// persisted.
type DirectoryCandidate struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email,omitempty"`
	LookupID  string            `json:"lookupId,omitempty"`
	BirthDate string            `json:"birthDate,omitempty"` // YYYY-MM-DD, full records only
	Codes     []AffiliationCode `json:"codes,omitempty"`
}

// AffiliationCode is one affiliation entry on a directory record.
type AffiliationCode struct {
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	ModifiedAt  *time.Time `json:"modifiedAt,omitempty"`
}
