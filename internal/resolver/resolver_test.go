// internal/resolver/resolver_test.go
package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeDirectory struct {
	searchResults   map[string][]models.DirectoryCandidate
	people          map[string]*models.DirectoryCandidate
	affiliations    map[string][]models.AffiliationCode
	searchErr       error
	affiliationsErr error

	searchCalls       []string
	affiliationsCalls []string
}

func (f *fakeDirectory) SearchPeople(ctx context.Context, lookupID string) ([]models.DirectoryCandidate, error) {
	f.searchCalls = append(f.searchCalls, lookupID)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[lookupID], nil
}

func (f *fakeDirectory) GetPerson(ctx context.Context, id string) (*models.DirectoryCandidate, error) {
	if p, ok := f.people[id]; ok {
		return p, nil
	}
	return nil, stderrors.NewDirectoryNotFoundError(id)
}

func (f *fakeDirectory) GetAffiliations(ctx context.Context, id string) ([]models.AffiliationCode, error) {
	f.affiliationsCalls = append(f.affiliationsCalls, id)
	if f.affiliationsErr != nil {
		return nil, f.affiliationsErr
	}
	return f.affiliations[id], nil
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func createTestResolver(t *testing.T, dir *fakeDirectory) *Resolver {
	return NewWithClock(dir, logger.NewTestLogger(t), fixedNow)
}

func activeStudentCode() models.AffiliationCode {
	return models.AffiliationCode{Description: "Student enrolment", Active: true}
}

func activeStaffCode() models.AffiliationCode {
	return models.AffiliationCode{Description: "Staff appointment", Active: true}
}

// ==========================
// Sanitization Tests
// ==========================

func TestSanitizeLookupID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "trailing whitespace", input: "UTS-001  ", expected: "UTS-001"},
		{name: "leading whitespace", input: "  UTS-001", expected: "UTS-001"},
		{name: "internal whitespace collapsed", input: "UTS  001", expected: "UTS 001"},
		{name: "trailing punctuation stripped", input: "UTS-001.", expected: "UTS-001"},
		{name: "mixed trailing noise", input: " UTS-001;, ", expected: "UTS-001"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeLookupID(tt.input))
		})
	}
}

func TestResolve_SanitizesBeforeSearching(t *testing.T) {
	dir := &fakeDirectory{searchResults: map[string][]models.DirectoryCandidate{}}
	r := createTestResolver(t, dir)

	r.Resolve(context.Background(), Query{LookupID: "UTS-001  "})

	require.Len(t, dir.searchCalls, 1)
	assert.Equal(t, "UTS-001", dir.searchCalls[0])
}

// ==========================
// Core Resolution Tests
// ==========================

func TestResolve_EmptyLookupID(t *testing.T) {
	dir := &fakeDirectory{}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "  "})

	assert.Equal(t, StatusNotFound, out.Status)
	assert.Empty(t, dir.searchCalls)
}

func TestResolve_NoResults(t *testing.T) {
	dir := &fakeDirectory{searchResults: map[string][]models.DirectoryCandidate{}}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-404"})

	assert.Equal(t, StatusNotFound, out.Status)
}

func TestResolve_ExcludesEchoCandidates(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Jane Doe", LookupID: "UTS-001"},
				{ID: "p2", Name: "Jane Doe", LookupID: "uts-001"},
			},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001"})

	assert.Equal(t, StatusNotFound, out.Status)
	assert.Empty(t, dir.affiliationsCalls)
}

func TestResolve_EmailMatchIgnoresRestOfPool(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Jane Smith", Email: "other@example.edu"},
				{ID: "p2", Name: "Jane Doe", Email: "Jane.Doe@Example.edu"},
				{ID: "p3", Name: "Janet Doe", Email: "janet@example.edu"},
			},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p2": {activeStudentCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{
		LookupID:       "UTS-001",
		Email:          "jane.doe@example.edu",
		ExpectedBucket: models.BucketCurrentStudent,
	})

	require.Equal(t, StatusValid, out.Status)
	require.NotNil(t, out.Candidate)
	assert.Equal(t, "p2", out.Candidate.ID)
	assert.Equal(t, []string{"p2"}, dir.affiliationsCalls)
	assert.Equal(t, models.BucketCurrentStudent, out.PrimaryBucket)
}

func TestResolve_SingleCandidateAutoResolves(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {{ID: "p1", Name: "Jane Doe"}},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p1": {activeStaffCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001", ExpectedBucket: models.BucketCurrentStaff})

	assert.Equal(t, StatusValid, out.Status)
}

func TestResolve_ExpectedBucketMismatch(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {{ID: "p1", Name: "Jane Doe"}},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p1": {activeStaffCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001", ExpectedBucket: models.BucketCurrentStudent})

	assert.Equal(t, StatusInvalid, out.Status)
	assert.Contains(t, out.Buckets, models.BucketCurrentStaff)
}

func TestResolve_NoExpectedBucketAcceptsAnyDerived(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {{ID: "p1", Name: "Jane Doe"}},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p1": {activeStudentCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001"})

	assert.Equal(t, StatusValid, out.Status)
}

// ==========================
// Disambiguation Tests
// ==========================

func TestResolve_NameScoringPicksExactMatch(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "John Citizen"},
				{ID: "p2", Name: "Jane Doe"},
			},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p2": {activeStudentCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{
		LookupID:       "UTS-001",
		Name:           "jane doe",
		ExpectedBucket: models.BucketCurrentStudent,
	})

	require.Equal(t, StatusValid, out.Status)
	assert.Equal(t, "p2", out.Candidate.ID)
}

func TestResolve_BirthDateFallback(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Alex Morgan"},
				{ID: "p2", Name: "Sam Reyes"},
			},
		},
		people: map[string]*models.DirectoryCandidate{
			"p1": {ID: "p1", Name: "Alex Morgan", BirthDate: "1999-03-14"},
			"p2": {ID: "p2", Name: "Sam Reyes", BirthDate: "2001-07-02"},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p2": {activeStudentCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{
		LookupID:       "UTS-001",
		ExpectedBucket: models.BucketCurrentStudent,
		BirthYear:      2001,
		BirthMonth:     7,
	})

	require.Equal(t, StatusValid, out.Status)
	assert.Equal(t, "p2", out.Candidate.ID)
}

func TestResolve_BirthDateFallbackAmbiguousOnDuplicate(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Alex Morgan"},
				{ID: "p2", Name: "Sam Reyes"},
			},
		},
		people: map[string]*models.DirectoryCandidate{
			"p1": {ID: "p1", Name: "Alex Morgan", BirthDate: "2001-07-02"},
			"p2": {ID: "p2", Name: "Sam Reyes", BirthDate: "2001-07-02"},
		},
		affiliations: map[string][]models.AffiliationCode{},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001", BirthYear: 2001})

	assert.Equal(t, StatusAmbiguous, out.Status)
}

// ==========================
// Pool Evaluation Tests
// ==========================

func TestResolve_PoolUniqueBucketMatchResolves(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Alex Morgan"},
				{ID: "p2", Name: "Sam Reyes"},
			},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p1": {activeStaffCode()},
			"p2": {activeStudentCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001", ExpectedBucket: models.BucketCurrentStudent})

	require.Equal(t, StatusValid, out.Status)
	assert.Equal(t, "p2", out.Candidate.ID)
}

func TestResolve_PoolAmbiguityListsMatchingCandidatesOnly(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Alex Morgan"},
				{ID: "p2", Name: "Sam Reyes"},
				{ID: "p3", Name: "Kim Lee"},
			},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p1": {activeStudentCode()},
			"p2": {activeStudentCode()},
			"p3": {activeStaffCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001", ExpectedBucket: models.BucketCurrentStudent})

	require.Equal(t, StatusAmbiguous, out.Status)
	require.Len(t, out.Pool, 2)
	ids := []string{out.Pool[0].Candidate.ID, out.Pool[1].Candidate.ID}
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)
}

func TestResolve_PoolNoMatchReportsAllCandidates(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: map[string][]models.DirectoryCandidate{
			"UTS-001": {
				{ID: "p1", Name: "Alex Morgan"},
				{ID: "p2", Name: "Sam Reyes"},
			},
		},
		affiliations: map[string][]models.AffiliationCode{
			"p1": {activeStaffCode()},
			"p2": {activeStaffCode()},
		},
	}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001", ExpectedBucket: models.BucketCurrentStudent})

	require.Equal(t, StatusInvalid, out.Status)
	assert.Len(t, out.Pool, 2)
}

// ==========================
// Error Path Tests
// ==========================

func TestResolve_UpstreamError(t *testing.T) {
	dir := &fakeDirectory{searchErr: stderrors.NewDirectoryUpstreamError(503, "backend down")}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001"})

	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, 503, out.UpstreamStatus)
}

func TestResolve_UnauthorizedError(t *testing.T) {
	dir := &fakeDirectory{searchErr: stderrors.NewDirectoryUnauthorizedError("token rejected")}
	r := createTestResolver(t, dir)

	out := r.Resolve(context.Background(), Query{LookupID: "UTS-001"})

	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, 401, out.UpstreamStatus)
}
