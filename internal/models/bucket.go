// internal/models/bucket.go
package models

import "strings"

// Bucket is a normalized eligibility label derived from a directory
// candidate's affiliation codes.
type Bucket string

const (
	BucketCurrentStudent       Bucket = "current_student"
	BucketCurrentStaff         Bucket = "current_staff"
	BucketAlumniWithin12M      Bucket = "alumni_within_12_months"
	BucketAlumniOver12M        Bucket = "alumni_over_12_months"
	BucketFormerStaffWithin12M Bucket = "former_staff_within_12_months"
	BucketFormerStaffOver12M   Bucket = "former_staff_over_12_months"
)

// BucketPrecedence lists buckets from highest to lowest priority. The first
// bucket a candidate holds from this list is their primary bucket.
var BucketPrecedence = []Bucket{
	BucketCurrentStudent,
	BucketCurrentStaff,
	BucketAlumniWithin12M,
	BucketAlumniOver12M,
	BucketFormerStaffWithin12M,
	BucketFormerStaffOver12M,
}

// PrimaryBucket returns the highest-precedence bucket among those supplied,
// or "" when none apply.
func PrimaryBucket(buckets []Bucket) Bucket {
	for _, p := range BucketPrecedence {
		for _, b := range buckets {
			if b == p {
				return p
			}
		}
	}
	return ""
}

// ContainsBucket reports whether buckets includes b.
func ContainsBucket(buckets []Bucket, b Bucket) bool {
	for _, x := range buckets {
		if x == b {
			return true
		}
	}
	return false
}

// BucketFromCategory maps free-text category labels ("current UTS student",
// "alumni (graduated this year)") onto one of the six fixed buckets by
// keyword match. ok is false when no keyword applies.
func BucketFromCategory(text string) (Bucket, bool) {
	t := strings.ToLower(text)
	over := strings.Contains(t, "over") || strings.Contains(t, "more than")

	switch {
	case strings.Contains(t, "student"):
		return BucketCurrentStudent, true
	case strings.Contains(t, "staff"):
		if strings.Contains(t, "former") || strings.Contains(t, "past") || strings.Contains(t, "ex ") {
			if over {
				return BucketFormerStaffOver12M, true
			}
			return BucketFormerStaffWithin12M, true
		}
		return BucketCurrentStaff, true
	case strings.Contains(t, "alumni"), strings.Contains(t, "alumnus"), strings.Contains(t, "graduate"):
		if over {
			return BucketAlumniOver12M, true
		}
		return BucketAlumniWithin12M, true
	}
	return "", false
}
