// internal/pricing/assembler.go
package pricing

import (
	"affiliation-validator/internal/models"
)

// Line is one member's share of the monthly fee.
type Line struct {
	MemberID   string                `json:"memberId"`
	Name       string                `json:"name"`
	Type       models.MembershipType `json:"type"`
	Category   string                `json:"category,omitempty"`
	Bucket     models.Bucket         `json:"bucket,omitempty"`
	Rate       float64               `json:"rate"`
	Discounted bool                  `json:"discounted"`
}

// Quote aggregates per-member rates into the organization's monthly fee.
// FeeWaived marks a zero total despite chargeable members; NoMonthlyFee
// applies only when every member is day-type.
type Quote struct {
	Total        float64 `json:"total"`
	Lines        []Line  `json:"lines"`
	FeeWaived    bool    `json:"feeWaived"`
	NoMonthlyFee bool    `json:"noMonthlyFee"`
}

// ComputeFee deterministically prices a member list against the matrix.
// Day members never contribute. Full and casual members pay the base rate
// for their type unless their effective discount category has been marked
// valid, in which case the category is keyword-mapped onto a matrix column.
func ComputeFee(members []models.Member, matrix *Matrix) Quote {
	quote := Quote{Lines: make([]Line, 0, len(members))}
	chargeable := 0

	for _, m := range members {
		line := Line{
			MemberID: m.ID,
			Name:     m.Name,
			Type:     m.Type,
		}

		if m.Type == models.MembershipDay {
			quote.Lines = append(quote.Lines, line)
			continue
		}

		chargeable++
		line.Rate = matrix.BaseFor(m.Type)

		// Manual overrides are operator-verified and price as valid even
		// though validation itself was skipped.
		if m.Outcome == models.OutcomeValid || m.HasManualOverride() {
			category := m.EffectiveCategory()
			if bucket, ok := models.BucketFromCategory(category); ok {
				line.Category = category
				line.Bucket = bucket
				line.Rate = matrix.RateFor(m.Type, bucket)
				line.Discounted = true
			}
		}

		quote.Total += line.Rate
		quote.Lines = append(quote.Lines, line)
	}

	if chargeable == 0 {
		quote.NoMonthlyFee = true
	} else if quote.Total == 0 {
		quote.FeeWaived = true
	}

	return quote
}
