// internal/resolver/buckets.go
package resolver

import (
	"strings"
	"time"

	"affiliation-validator/internal/models"
)

// Derived carries the buckets computed from one candidate's affiliation
// codes, plus the alumni commencement and expiry dates when applicable.
type Derived struct {
	Buckets      []models.Bucket
	Commencement *time.Time
	Expiry       *time.Time
}

// Primary returns the highest-precedence derived bucket.
func (d Derived) Primary() models.Bucket {
	return models.PrimaryBucket(d.Buckets)
}

// DeriveBuckets maps affiliation codes onto discount buckets. Only student,
// staff and alumni codes matter; everything else is ignored.
//
// Active student codes give current-student. Staff codes give current-staff
// while active, otherwise a former-staff label split at 12 months since the
// code was last modified (falling back to its start date). Alumni codes are
// split at 12 months since the code start date; the start date is recorded
// as commencement and expiry is commencement plus 12 months.
func DeriveBuckets(codes []models.AffiliationCode, now time.Time) Derived {
	var d Derived

	for _, code := range codes {
		desc := strings.ToLower(code.Description)

		switch {
		case strings.Contains(desc, "student"):
			if code.Active {
				d.add(models.BucketCurrentStudent)
			}

		case strings.Contains(desc, "staff"):
			if code.Active {
				d.add(models.BucketCurrentStaff)
				continue
			}
			ref := code.ModifiedAt
			if ref == nil {
				ref = code.StartDate
			}
			if ref == nil {
				continue
			}
			if withinTwelveMonths(*ref, now) {
				d.add(models.BucketFormerStaffWithin12M)
			} else {
				d.add(models.BucketFormerStaffOver12M)
			}

		case strings.Contains(desc, "alumni"), strings.Contains(desc, "alumnus"):
			if code.StartDate == nil {
				continue
			}
			start := *code.StartDate
			expiry := start.AddDate(0, 12, 0)
			if withinTwelveMonths(start, now) {
				d.add(models.BucketAlumniWithin12M)
			} else {
				d.add(models.BucketAlumniOver12M)
			}
			if d.Commencement == nil || start.After(*d.Commencement) {
				d.Commencement = &start
				d.Expiry = &expiry
			}
		}
	}

	return d
}

func (d *Derived) add(b models.Bucket) {
	if !models.ContainsBucket(d.Buckets, b) {
		d.Buckets = append(d.Buckets, b)
	}
}

// withinTwelveMonths reports whether now falls before ref plus 12 calendar
// months. Exactly 12 months counts as over.
func withinTwelveMonths(ref, now time.Time) bool {
	return now.Before(ref.AddDate(0, 12, 0))
}
