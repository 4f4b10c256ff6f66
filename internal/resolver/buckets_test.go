// internal/resolver/buckets_test.go
package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliation-validator/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// ==========================
// Bucket Derivation Tests
// ==========================

func TestDeriveBuckets(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		codes    []models.AffiliationCode
		expected []models.Bucket
	}{
		{
			name:     "active student",
			codes:    []models.AffiliationCode{{Description: "Student enrolment", Active: true}},
			expected: []models.Bucket{models.BucketCurrentStudent},
		},
		{
			name:     "inactive student yields nothing",
			codes:    []models.AffiliationCode{{Description: "Student enrolment", Active: false}},
			expected: nil,
		},
		{
			name:     "active staff",
			codes:    []models.AffiliationCode{{Description: "Staff appointment", Active: true}},
			expected: []models.Bucket{models.BucketCurrentStaff},
		},
		{
			name: "former staff within twelve months via modified date",
			codes: []models.AffiliationCode{
				{Description: "Staff appointment", Active: false, ModifiedAt: datePtr(2024, time.January, 10)},
			},
			expected: []models.Bucket{models.BucketFormerStaffWithin12M},
		},
		{
			name: "former staff over twelve months",
			codes: []models.AffiliationCode{
				{Description: "Staff appointment", Active: false, ModifiedAt: datePtr(2022, time.January, 10)},
			},
			expected: []models.Bucket{models.BucketFormerStaffOver12M},
		},
		{
			name: "former staff falls back to start date",
			codes: []models.AffiliationCode{
				{Description: "Staff appointment", Active: false, StartDate: datePtr(2024, time.February, 1)},
			},
			expected: []models.Bucket{models.BucketFormerStaffWithin12M},
		},
		{
			name: "former staff without any date yields nothing",
			codes: []models.AffiliationCode{
				{Description: "Staff appointment", Active: false},
			},
			expected: nil,
		},
		{
			name: "recent alumni",
			codes: []models.AffiliationCode{
				{Description: "Alumni association", StartDate: datePtr(2024, time.January, 15)},
			},
			expected: []models.Bucket{models.BucketAlumniWithin12M},
		},
		{
			name: "old alumni",
			codes: []models.AffiliationCode{
				{Description: "Alumni association", StartDate: datePtr(2021, time.January, 15)},
			},
			expected: []models.Bucket{models.BucketAlumniOver12M},
		},
		{
			name: "exactly twelve months counts as over",
			codes: []models.AffiliationCode{
				{Description: "Alumni association", StartDate: datePtr(2023, time.June, 1)},
			},
			expected: []models.Bucket{models.BucketAlumniOver12M},
		},
		{
			name:     "unrelated code ignored",
			codes:    []models.AffiliationCode{{Description: "Library access", Active: true}},
			expected: nil,
		},
		{
			name: "duplicates collapse",
			codes: []models.AffiliationCode{
				{Description: "Student enrolment", Active: true},
				{Description: "International student program", Active: true},
			},
			expected: []models.Bucket{models.BucketCurrentStudent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DeriveBuckets(tt.codes, now)
			assert.Equal(t, tt.expected, d.Buckets)
		})
	}
}

func TestDeriveBuckets_AlumniExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	codes := []models.AffiliationCode{
		{Description: "Alumni association", StartDate: datePtr(2024, time.January, 15)},
	}

	d := DeriveBuckets(codes, now)

	require.NotNil(t, d.Commencement)
	require.NotNil(t, d.Expiry)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), *d.Commencement)
	assert.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), *d.Expiry)
}

func TestDeriveBuckets_LatestAlumniStartWinsCommencement(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	codes := []models.AffiliationCode{
		{Description: "Alumni association", StartDate: datePtr(2020, time.March, 1)},
		{Description: "Alumni chapter", StartDate: datePtr(2024, time.February, 1)},
	}

	d := DeriveBuckets(codes, now)

	require.NotNil(t, d.Commencement)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *d.Commencement)
	assert.ElementsMatch(t, []models.Bucket{models.BucketAlumniOver12M, models.BucketAlumniWithin12M}, d.Buckets)
}

func TestDerivedPrimaryFollowsPrecedence(t *testing.T) {
	d := Derived{Buckets: []models.Bucket{
		models.BucketAlumniOver12M,
		models.BucketCurrentStaff,
		models.BucketFormerStaffOver12M,
	}}
	assert.Equal(t, models.BucketCurrentStaff, d.Primary())
}
