// internal/resolver/resolver.go

// Package resolver decides, for one member's identifying attributes, whether
// a single directory entity matches and which discount buckets it carries.
// Resolution is pure relative to the directory: it mutates nothing.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	stderrors "affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/directory"
	"affiliation-validator/internal/models"
)

// Status is the resolution outcome class.
type Status string

const (
	StatusValid     Status = "valid"
	StatusInvalid   Status = "invalid"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
)

// Query carries a member's identifying attributes. LookupID is required;
// everything else narrows disambiguation. Birth components equal to zero are
// wildcards.
type Query struct {
	LookupID       string
	ExpectedBucket models.Bucket
	Email          string
	Name           string
	BirthYear      int
	BirthMonth     int
	BirthDay       int
}

// CandidateBuckets pairs a pool candidate with its derived buckets, for
// reporting on invalid and ambiguous outcomes.
type CandidateBuckets struct {
	Candidate models.DirectoryCandidate `json:"candidate"`
	Buckets   []models.Bucket           `json:"buckets"`
}

// Outcome is the full result of one resolution pass.
type Outcome struct {
	Status         Status                     `json:"status"`
	Candidate      *models.DirectoryCandidate `json:"candidate,omitempty"`
	Buckets        []models.Bucket            `json:"buckets,omitempty"`
	PrimaryBucket  models.Bucket              `json:"primaryBucket,omitempty"`
	Commencement   *time.Time                 `json:"commencement,omitempty"`
	DiscountExpiry *time.Time                 `json:"discountExpiry,omitempty"`
	Pool           []CandidateBuckets         `json:"pool,omitempty"`
	UpstreamStatus int                        `json:"upstreamStatus,omitempty"`
	Reason         string                     `json:"reason,omitempty"`
}

type Resolver struct {
	dir    directory.API
	logger logger.Logger
	now    func() time.Time
}

func New(dir directory.API, log logger.Logger) *Resolver {
	return &Resolver{
		dir:    dir,
		logger: log.WithFields(map[string]interface{}{"component": "resolver"}),
		now:    time.Now,
	}
}

// NewWithClock fixes the reference time, for deterministic tests.
func NewWithClock(dir directory.API, log logger.Logger, now func() time.Time) *Resolver {
	r := New(dir, log)
	r.now = now
	return r
}

// Resolve runs the full disambiguation pipeline against the directory.
func (r *Resolver) Resolve(ctx context.Context, q Query) Outcome {
	lookupID := SanitizeLookupID(q.LookupID)
	if lookupID == "" {
		return Outcome{Status: StatusNotFound, Reason: "empty lookup id"}
	}

	candidates, err := r.dir.SearchPeople(ctx, lookupID)
	if err != nil {
		return r.errorOutcome("search", err)
	}
	if len(candidates) == 0 {
		return Outcome{Status: StatusNotFound, Reason: fmt.Sprintf("no directory record for %q", lookupID)}
	}

	// Candidates carrying the queried lookup id themselves are stale echoes
	// of the searched record and are excluded from disambiguation.
	pool := make([]models.DirectoryCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if strings.EqualFold(strings.TrimSpace(cand.LookupID), lookupID) {
			continue
		}
		pool = append(pool, cand)
	}
	if len(pool) == 0 {
		return Outcome{Status: StatusNotFound, Reason: "all candidates excluded from pool"}
	}

	if cand := r.disambiguate(ctx, q, pool); cand != nil {
		return r.evaluateCandidate(ctx, q, *cand)
	}

	return r.evaluatePool(ctx, q, pool)
}

// disambiguate picks a single pool candidate, in priority order: exact
// case-insensitive email match, name-similarity scoring, birth-date match.
func (r *Resolver) disambiguate(ctx context.Context, q Query, pool []models.DirectoryCandidate) *models.DirectoryCandidate {
	if q.Email != "" {
		for i := range pool {
			if strings.EqualFold(strings.TrimSpace(pool[i].Email), strings.TrimSpace(q.Email)) {
				return &pool[i]
			}
		}
	}

	if len(pool) == 1 {
		return &pool[0]
	}

	if cand := pickByName(q.Name, pool); cand != nil {
		return cand
	}

	if q.BirthYear != 0 || q.BirthMonth != 0 || q.BirthDay != 0 {
		if cand := r.pickByBirthDate(ctx, q, pool); cand != nil {
			return cand
		}
	}

	return nil
}

// pickByBirthDate fetches full records for the pool and accepts only when
// exactly one candidate matches every supplied birth component.
func (r *Resolver) pickByBirthDate(ctx context.Context, q Query, pool []models.DirectoryCandidate) *models.DirectoryCandidate {
	var match *models.DirectoryCandidate

	for i := range pool {
		person, err := r.dir.GetPerson(ctx, pool[i].ID)
		if err != nil {
			r.logger.Warn("failed to fetch full record for birth-date check", map[string]interface{}{
				"personId": pool[i].ID,
				"error":    err.Error(),
			})
			continue
		}

		if birthDateMatches(person.BirthDate, q.BirthYear, q.BirthMonth, q.BirthDay) {
			if match != nil {
				return nil
			}
			match = &pool[i]
		}
	}

	return match
}

// birthDateMatches checks a YYYY-MM-DD record date against the supplied
// components; omitted (zero) components are wildcards.
func birthDateMatches(recorded string, year, month, day int) bool {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(recorded))
	if err != nil {
		return false
	}
	if year != 0 && t.Year() != year {
		return false
	}
	if month != 0 && int(t.Month()) != month {
		return false
	}
	if day != 0 && t.Day() != day {
		return false
	}
	return true
}

// evaluateCandidate fetches the resolved candidate's codes and judges the
// expected bucket against the derived set.
func (r *Resolver) evaluateCandidate(ctx context.Context, q Query, cand models.DirectoryCandidate) Outcome {
	codes, err := r.dir.GetAffiliations(ctx, cand.ID)
	if err != nil {
		return r.errorOutcome("get_affiliations", err)
	}

	derived := DeriveBuckets(codes, r.now())

	out := Outcome{
		Candidate:      &cand,
		Buckets:        derived.Buckets,
		PrimaryBucket:  derived.Primary(),
		Commencement:   derived.Commencement,
		DiscountExpiry: derived.Expiry,
	}

	switch {
	case q.ExpectedBucket == "":
		if len(derived.Buckets) > 0 {
			out.Status = StatusValid
		} else {
			out.Status = StatusInvalid
			out.Reason = "no qualifying affiliation codes"
		}
	case models.ContainsBucket(derived.Buckets, q.ExpectedBucket):
		out.Status = StatusValid
	default:
		out.Status = StatusInvalid
		out.Reason = fmt.Sprintf("expected %s not among derived buckets", q.ExpectedBucket)
	}

	return out
}

// evaluatePool handles the still-unresolved case: derive buckets for every
// pool candidate and let the expected bucket arbitrate.
func (r *Resolver) evaluatePool(ctx context.Context, q Query, pool []models.DirectoryCandidate) Outcome {
	evaluated := make([]CandidateBuckets, 0, len(pool))
	for _, cand := range pool {
		codes, err := r.dir.GetAffiliations(ctx, cand.ID)
		if err != nil {
			return r.errorOutcome("get_affiliations", err)
		}
		derived := DeriveBuckets(codes, r.now())
		evaluated = append(evaluated, CandidateBuckets{Candidate: cand, Buckets: derived.Buckets})
	}

	if q.ExpectedBucket == "" {
		return Outcome{
			Status: StatusAmbiguous,
			Pool:   evaluated,
			Reason: "multiple candidates and no expected bucket to arbitrate",
		}
	}

	matching := make([]CandidateBuckets, 0, len(evaluated))
	for _, cb := range evaluated {
		if models.ContainsBucket(cb.Buckets, q.ExpectedBucket) {
			matching = append(matching, cb)
		}
	}

	switch len(matching) {
	case 1:
		return r.evaluateCandidate(ctx, q, matching[0].Candidate)
	case 0:
		return Outcome{
			Status: StatusInvalid,
			Pool:   evaluated,
			Reason: fmt.Sprintf("no pool candidate carries %s", q.ExpectedBucket),
		}
	default:
		return Outcome{
			Status: StatusAmbiguous,
			Pool:   matching,
			Reason: fmt.Sprintf("%d candidates carry %s", len(matching), q.ExpectedBucket),
		}
	}
}

func (r *Resolver) errorOutcome(op string, err error) Outcome {
	stdErr := stderrors.Normalize(err)

	status := stderrors.UpstreamStatus(err)
	if stdErr.Code == stderrors.ErrCodeDirectoryUnauthorized {
		status = 401
	}

	r.logger.Error("directory call failed", map[string]interface{}{
		"operation": op,
		"code":      string(stdErr.Code),
		"status":    status,
	})

	return Outcome{
		Status:         StatusError,
		UpstreamStatus: status,
		Reason:         string(stdErr.Code),
	}
}
