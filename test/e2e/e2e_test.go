// test/e2e/e2e_test.go

// Package e2e drives the whole service in-process: real directory client and
// token provider against a stub directory, real resolver, orchestrator,
// pricing, renderer client, and HTTP surface. Only the SQL store is faked.
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliation-validator/internal/common/config"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/directory"
	"affiliation-validator/internal/downloads"
	"affiliation-validator/internal/models"
	"affiliation-validator/internal/orchestrator"
	"affiliation-validator/internal/pricing"
	"affiliation-validator/internal/renderer"
	"affiliation-validator/internal/resolver"
	"affiliation-validator/internal/server"
	"affiliation-validator/internal/store"
)

// ==========================
// In-Memory Store
// ==========================

type memStore struct {
	mu      sync.Mutex
	org     models.Organization
	members []models.Member
	atts    []models.Attachment
}

func (s *memStore) GetOrganizationByToken(ctx context.Context, token string) (*models.Organization, error) {
	if s.org.Token != token {
		return nil, store.ErrOrganizationNotFound
	}
	org := s.org
	return &org, nil
}

func (s *memStore) ListMembers(ctx context.Context, orgID string) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

func (s *memStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == memberID {
			m := s.members[i]
			return &m, nil
		}
	}
	return nil, store.ErrMemberNotFound
}

func (s *memStore) UpdateMemberValidation(ctx context.Context, memberID string, outcome models.ValidationOutcome, validatedAt time.Time, expiry *time.Time, effectiveCategory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID != memberID {
			continue
		}
		s.members[i].Outcome = outcome
		s.members[i].ValidationDate = &validatedAt
		s.members[i].DiscountExpiry = expiry
		return nil
	}
	return store.ErrMemberNotFound
}

func (s *memStore) AppendAttachment(ctx context.Context, orgID string, att models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atts = append(s.atts, att)
	return nil
}

// ==========================
// Stub Directory Upstream
// ==========================

// newDirectoryUpstream serves the token endpoint plus search, person, and
// affiliation routes for a small fixed population.
func newDirectoryUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	studentStart := time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "issued-token",
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("GET /people/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer issued-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var results []models.DirectoryCandidate
		switch r.URL.Query().Get("lookup_id") {
		case "UTS-100":
			results = []models.DirectoryCandidate{
				{ID: "p100", Name: "Jane Doe", Email: "jane@uni.example.edu", LookupID: "X-1"},
			}
		case "UTS-200":
			results = []models.DirectoryCandidate{
				{ID: "p200", Name: "Sam Reyes", LookupID: "X-2"},
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	})
	mux.HandleFunc("GET /people/p100/affiliations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"codes": []models.AffiliationCode{
				{Description: "Undergraduate Student", Active: true, StartDate: &studentStart},
			},
		})
	})
	mux.HandleFunc("GET /people/p200/affiliations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"codes": []models.AffiliationCode{
				{Description: "Academic Staff", Active: true, StartDate: &studentStart},
			},
		})
	})
	mux.HandleFunc("GET /people/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ==========================
// Service Assembly
// ==========================

const matrixJSON = `{
	"rows": {
		"full": {
			"base": 55,
			"rates": {
				"current_student": 27.5,
				"current_staff": 33
			}
		},
		"casual": {"base": 30},
		"day": {"base": 0}
	}
}`

func assembleService(t *testing.T, st *memStore) *httptest.Server {
	t.Helper()

	log := logger.NewTestLogger(t)

	dirUpstream := newDirectoryUpstream(t)
	rendered := []byte("%PDF-1.7 outcome document")
	rendUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(rendered)
	}))
	t.Cleanup(rendUpstream.Close)

	tokens := directory.NewOAuthTokenProvider(dirUpstream.URL+"/token", "client-id", "client-secret")
	dirCfg := config.DirectoryConfig{BaseURL: dirUpstream.URL, Timeout: 5000}
	dirClient := directory.NewClient(dirCfg, tokens, log)

	res := resolver.New(dirClient, log)

	matrix, err := pricing.ParseMatrix([]byte(matrixJSON))
	require.NoError(t, err)

	rend := renderer.NewClient(config.RendererConfig{BaseURL: rendUpstream.URL, Timeout: 5000})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dl := downloads.New(rdb, 30*time.Minute)

	orch := orchestrator.New(
		st, res, matrix, rend, dl, nil,
		orchestrator.NewMemoryRegistry(), nil, log,
		orchestrator.Options{},
	)

	srv := httptest.NewServer(server.New(orch, res, st, dl, nil, nil, log).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// ==========================
// Full Flow
// ==========================

func TestFullValidationFlow(t *testing.T) {
	st := &memStore{
		org: models.Organization{
			ID:                   "org-1",
			Token:                "club-token",
			Name:                 "Rowing Club",
			FormSubmitted:        true,
			ConfirmationRecorded: true,
		},
		members: []models.Member{
			{
				ID: "m1", OrganizationID: "org-1", Name: "Jane Doe",
				Type: models.MembershipFull, LookupID: "UTS-100",
				ExpectedCategory: "current student",
				Representative:   true, Submitted: true,
			},
			{
				ID: "m2", OrganizationID: "org-1", Name: "Sam Reyes",
				Type: models.MembershipFull, LookupID: "UTS-200",
				ExpectedCategory: "current student",
			},
			{
				ID: "m3", OrganizationID: "org-1", Name: "Ana Park",
				Type: models.MembershipCasual,
			},
		},
	}
	srv := assembleService(t, st)

	// Trigger.
	resp, err := http.Post(srv.URL+"/validate-and-generate/club-token", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Poll until terminal.
	var statusBody struct {
		Job models.JobSnapshot `json:"job"`
	}
	require.Eventually(t, func() bool {
		getJSON(t, srv.URL+"/job-status/club-token", &statusBody)
		return statusBody.Job.State.Terminal()
	}, 10*time.Second, 25*time.Millisecond)

	snap := statusBody.Job
	require.Equal(t, models.JobStateDone, snap.State)
	require.NotNil(t, snap.Result)

	// Jane matched her expected bucket, Sam resolved to staff instead, Ana
	// never asked.
	statuses := map[string]models.MemberStatus{}
	for _, e := range snap.Members {
		statuses[e.MemberID] = e.Status
	}
	assert.Equal(t, models.StatusValidated, statuses["m1"])
	assert.Equal(t, models.StatusMismatch, statuses["m2"])
	assert.Equal(t, models.StatusNoRequest, statuses["m3"])

	// Jane at the student rate, Sam back at base, Ana at casual base.
	assert.Equal(t, 27.5+55+30, snap.Result.TotalFee)

	// Download once, then gone.
	dlResp, err := http.Get(srv.URL + "/download/" + snap.Result.DownloadToken)
	require.NoError(t, err)
	defer dlResp.Body.Close()
	require.Equal(t, http.StatusOK, dlResp.StatusCode)
	assert.Equal(t, "application/pdf", dlResp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusGone, getJSON(t, srv.URL+"/download/"+snap.Result.DownloadToken, nil))

	// The attachment was appended exactly once and outcomes were persisted.
	st.mu.Lock()
	defer st.mu.Unlock()
	require.Len(t, st.atts, 1)
	assert.Equal(t, "application/pdf", st.atts[0].MimeType)
	assert.Equal(t, models.OutcomeValid, st.members[0].Outcome)
	assert.Equal(t, models.OutcomeInvalid, st.members[1].Outcome)
	assert.Equal(t, models.OutcomeSkipped, st.members[2].Outcome)
}

func TestBlockedOrganizationFlow(t *testing.T) {
	st := &memStore{
		org: models.Organization{
			ID:            "org-2",
			Token:         "unready-token",
			Name:          "Chess Club",
			FormSubmitted: false,
		},
		members: []models.Member{
			{ID: "m1", OrganizationID: "org-2", Name: "Jane Doe", Type: models.MembershipFull},
		},
	}
	srv := assembleService(t, st)

	resp, err := http.Post(srv.URL+"/validate-and-generate/unready-token", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var statusBody struct {
		Job models.JobSnapshot `json:"job"`
	}
	require.Eventually(t, func() bool {
		getJSON(t, srv.URL+"/job-status/unready-token", &statusBody)
		return statusBody.Job.State.Terminal()
	}, 10*time.Second, 25*time.Millisecond)

	assert.Equal(t, models.JobStateBlocked, statusBody.Job.State)
	assert.Nil(t, statusBody.Job.Result)
}
