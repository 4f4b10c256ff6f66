// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stderrors "affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/downloads"
	"affiliation-validator/internal/models"
	"affiliation-validator/internal/orchestrator"
	"affiliation-validator/internal/resolver"
	"affiliation-validator/internal/store"
)

// triggerView is the trimmed snapshot returned on trigger. Pollers get the
// full checklist from the status endpoint.
type triggerView struct {
	State     models.JobState    `json:"state"`
	StartedAt time.Time          `json:"startedAt"`
	Progress  models.JobProgress `json:"progress"`
}

// handleTrigger starts a validation job. Re-triggering while a job runs is
// a no-op returning the running job's snapshot.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	orgToken := r.PathValue("orgToken")
	if orgToken == "" {
		s.respondWithError(w, http.StatusBadRequest, "BAD_REQUEST", "orgToken is required")
		return
	}

	snap, err := s.orch.Trigger(r.Context(), orgToken)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": triggerView{State: snap.State, StartedAt: snap.StartedAt, Progress: snap.Progress},
	})
}

// handleJobStatus returns the sanitized view of the organization's current
// job. It never blocks on running work.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	orgToken := r.PathValue("orgToken")
	if orgToken == "" {
		s.respondWithError(w, http.StatusBadRequest, "BAD_REQUEST", "orgToken is required")
		return
	}

	snap, err := s.orch.Status(r.Context(), orgToken)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{"job": snap})
}

type discountCheckRequest struct {
	MemberID         string `json:"memberId,omitempty"`
	LookupID         string `json:"lookupId"`
	ExpectedCategory string `json:"expectedCategory,omitempty"`
	Email            string `json:"email,omitempty"`
	Name             string `json:"name,omitempty"`
	DateOfBirth      string `json:"dateOfBirth,omitempty"`
}

type storeUpdateView struct {
	Applied           bool       `json:"applied"`
	MemberID          string     `json:"memberId,omitempty"`
	Outcome           string     `json:"outcome,omitempty"`
	ValidatedAt       *time.Time `json:"validatedAt,omitempty"`
	DiscountExpiry    *time.Time `json:"discountExpiry,omitempty"`
	EffectiveCategory string     `json:"effectiveCategory,omitempty"`
}

// handleDiscountCheck resolves a single member's eligibility on demand.
// When a memberId is supplied the outcome is also written to the store and
// the write is reported back.
func (s *Server) handleDiscountCheck(w http.ResponseWriter, r *http.Request) {
	var req discountCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.LookupID) == "" {
		s.respondWithError(w, http.StatusBadRequest, "BAD_REQUEST", "lookupId is required")
		return
	}

	member := models.Member{
		ID:               req.MemberID,
		LookupID:         req.LookupID,
		ExpectedCategory: req.ExpectedCategory,
		Email:            req.Email,
		Name:             req.Name,
		DateOfBirth:      req.DateOfBirth,
	}

	outcome := s.resolver.Resolve(r.Context(), orchestrator.BuildQuery(&member))
	update := s.applyCheckOutcome(r, req, outcome)

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"input":       req,
			"result":      outcome,
			"storeUpdate": update,
		},
	})
}

func (s *Server) applyCheckOutcome(r *http.Request, req discountCheckRequest, out resolver.Outcome) storeUpdateView {
	if req.MemberID == "" {
		return storeUpdateView{Applied: false}
	}

	now := time.Now().UTC()
	persisted := orchestrator.OutcomeFromResolution(out)

	err := s.store.UpdateMemberValidation(r.Context(), req.MemberID, persisted, now, out.DiscountExpiry, req.ExpectedCategory)
	if err != nil {
		s.logger.Error("discount check store update failed", map[string]interface{}{
			"memberId": req.MemberID,
			"error":    err.Error(),
		})
		return storeUpdateView{Applied: false, MemberID: req.MemberID}
	}

	return storeUpdateView{
		Applied:           true,
		MemberID:          req.MemberID,
		Outcome:           string(persisted),
		ValidatedAt:       &now,
		DiscountExpiry:    out.DiscountExpiry,
		EffectiveCategory: req.ExpectedCategory,
	}
}

// handleDownload streams a stashed document exactly once. A consumed or
// expired token answers 410.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		s.respondWithError(w, http.StatusBadRequest, "BAD_REQUEST", "token is required")
		return
	}

	doc, err := s.downloads.Take(r.Context(), token)
	if err != nil {
		if errors.Is(err, downloads.ErrGone) {
			s.respondWithError(w, http.StatusGone, "DOCUMENT_GONE", "document expired or already downloaded")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "download failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		s.logger.Warn("download write interrupted", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"postgres": "healthy", "redis": "healthy"}
	status := http.StatusOK

	if s.postgres != nil {
		if err := s.postgres.Ping(r.Context()); err != nil {
			checks["postgres"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()); err != nil {
			checks["redis"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	s.respondWithJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
}

// respondStoreError maps store sentinels onto HTTP statuses without leaking
// internals.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrOrganizationNotFound) {
		s.respondWithError(w, http.StatusNotFound, "ORGANIZATION_NOT_FOUND", "no organization for that token")
		return
	}

	stdErr := stderrors.Normalize(err)
	s.logger.Error("request failed", map[string]interface{}{
		"code":  string(stdErr.Code),
		"error": err.Error(),
	})
	s.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "request could not be completed")
}
