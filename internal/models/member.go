// internal/models/member.go
package models

import (
	"strings"
	"time"
)

// MembershipType classifies how a member participates.
type MembershipType string

const (
	MembershipFull   MembershipType = "full"
	MembershipCasual MembershipType = "casual"
	MembershipDay    MembershipType = "day"
)

// ValidationOutcome is the per-member result of an eligibility pass. It is
// overwritten on each pass; no history is retained.
type ValidationOutcome string

const (
	OutcomeValid     ValidationOutcome = "valid"
	OutcomeInvalid   ValidationOutcome = "invalid"
	OutcomeAmbiguous ValidationOutcome = "ambiguous"
	OutcomeNotFound  ValidationOutcome = "not_found"
	OutcomeError     ValidationOutcome = "error"
	OutcomeSkipped   ValidationOutcome = "skipped"
)

// NoDiscountSentinel is the expected-category value meaning the member
// declared they want no discount.
const NoDiscountSentinel = "none"

// Member belongs to exactly one Organization via OrganizationID. The link is
// by id, never by name, so it survives renames.
type Member struct {
	ID               string            `json:"id"`
	OrganizationID   string            `json:"organizationId"`
	Name             string            `json:"name"`
	Email            string            `json:"email,omitempty"`
	DateOfBirth      string            `json:"dateOfBirth,omitempty"` // YYYY-MM-DD, components may be blank
	Type             MembershipType    `json:"type"`
	LookupID         string            `json:"lookupId,omitempty"`
	ExpectedCategory string            `json:"expectedCategory,omitempty"`
	ManualCheck      bool              `json:"manualCheck"`
	ManualCategory   string            `json:"manualCategory,omitempty"`
	Representative   bool              `json:"representative"`
	Submitted        bool              `json:"submitted"`
	Outcome          ValidationOutcome `json:"outcome,omitempty"`
	ValidationDate   *time.Time        `json:"validationDate,omitempty"`
	DiscountExpiry   *time.Time        `json:"discountExpiry,omitempty"` // alumni only
}

// HasManualOverride reports whether an operator-entered category bypasses
// external validation for this member.
func (m *Member) HasManualOverride() bool {
	return m.ManualCheck && strings.TrimSpace(m.ManualCategory) != ""
}

// RequestsDiscount reports whether the member actually asked for a discount.
func (m *Member) RequestsDiscount() bool {
	cat := strings.ToLower(strings.TrimSpace(m.ExpectedCategory))
	return cat != "" && cat != NoDiscountSentinel
}

// EffectiveCategory returns the category pricing should honor: the manual
// override wins over the user-declared expectation when present.
func (m *Member) EffectiveCategory() string {
	if m.HasManualOverride() {
		return m.ManualCategory
	}
	return m.ExpectedCategory
}
