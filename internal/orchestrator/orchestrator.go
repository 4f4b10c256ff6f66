// internal/orchestrator/orchestrator.go

// Package orchestrator runs the per-organization validation job: gate
// check, sequential member resolution, pricing, rendering, and the
// exactly-once attachment write.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	stderrors "affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/common/metrics"
	"affiliation-validator/internal/common/observability"
	"affiliation-validator/internal/downloads"
	"affiliation-validator/internal/models"
	"affiliation-validator/internal/notify"
	"affiliation-validator/internal/pricing"
	"affiliation-validator/internal/renderer"
	"affiliation-validator/internal/resolver"
	"affiliation-validator/internal/store"
)

// Resolver is the slice of the eligibility resolver the orchestrator needs.
type Resolver interface {
	Resolve(ctx context.Context, q resolver.Query) resolver.Outcome
}

type Options struct {
	PacingDelay     time.Duration
	DownloadBaseURL string
}

type Orchestrator struct {
	store     store.Store
	resolver  Resolver
	matrix    *pricing.Matrix
	renderer  renderer.Renderer
	downloads *downloads.Store
	notifier  notify.Notifier
	registry  Registry
	obs       *observability.Observability
	logger    logger.Logger
	opts      Options
}

func New(
	st store.Store,
	res Resolver,
	matrix *pricing.Matrix,
	rend renderer.Renderer,
	dl *downloads.Store,
	notifier notify.Notifier,
	registry Registry,
	obs *observability.Observability,
	log logger.Logger,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		resolver:  res,
		matrix:    matrix,
		renderer:  rend,
		downloads: dl,
		notifier:  notifier,
		registry:  registry,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		opts:      opts,
	}
}

// Trigger starts a validation job for the organization, or returns the
// existing snapshot when a non-terminal job already runs. The per-member
// work detaches from the triggering request.
func (o *Orchestrator) Trigger(ctx context.Context, orgToken string) (models.JobSnapshot, error) {
	org, err := o.store.GetOrganizationByToken(ctx, orgToken)
	if err != nil {
		return models.JobSnapshot{}, err
	}

	job := NewJob(org.ID)
	stored, inserted := o.registry.UpsertIfAbsent(org.ID, job)
	if !inserted {
		return stored.Snapshot(), nil
	}

	go o.run(job, org)

	return job.Snapshot(), nil
}

// Status returns the sanitized view of the organization's current job. It
// never blocks on running work.
func (o *Orchestrator) Status(ctx context.Context, orgToken string) (models.JobSnapshot, error) {
	org, err := o.store.GetOrganizationByToken(ctx, orgToken)
	if err != nil {
		return models.JobSnapshot{}, err
	}

	job, ok := o.registry.Get(org.ID)
	if !ok {
		return models.JobSnapshot{OrganizationID: org.ID, State: models.JobStateIdle}, nil
	}
	return job.Snapshot(), nil
}

// run executes the whole pass. It detaches from the trigger request, so it
// carries its own context; a stuck external call stalls this job only.
func (o *Orchestrator) run(job *Job, org *models.Organization) {
	ctx := context.Background()
	started := time.Now()

	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("validation job panicked", map[string]interface{}{
				"organizationId": org.ID,
				"panic":          fmt.Sprint(r),
			})
			job.fail("internal error")
		}
		o.recordTerminal(ctx, job, started)
	}()

	members, err := o.store.ListMembers(ctx, org.ID)
	if err != nil {
		o.failJob(job, org.ID, "member list fetch failed", err)
		return
	}

	// Gates are checked once, before any per-member work. A blocked job is
	// terminal for this trigger; it never auto-resumes.
	if !org.EligibilityGatesMet(members) {
		o.logger.Info("eligibility gates unmet, blocking job", map[string]interface{}{
			"organizationId": org.ID,
		})
		job.block("organization eligibility gates are not satisfied")
		return
	}

	job.seed(members)

	for i := range members {
		if i > 0 && o.opts.PacingDelay > 0 {
			time.Sleep(o.opts.PacingDelay)
		}
		o.processMember(ctx, job, &members[i])
	}

	o.finalize(ctx, job, org, members)
}

// processMember resolves one member and persists the outcome. Per-member
// failures are recorded and never abort the job.
func (o *Orchestrator) processMember(ctx context.Context, job *Job, m *models.Member) {
	now := time.Now().UTC()

	if m.HasManualOverride() {
		m.Outcome = models.OutcomeSkipped
		o.persistOutcome(ctx, job, m, models.OutcomeSkipped, now, nil, m.ManualCategory)
		o.record(job, m, models.StatusManual, "MANUAL_OVERRIDE", "manually verified by operator")
		return
	}

	if !m.RequestsDiscount() {
		m.Outcome = models.OutcomeSkipped
		o.persistOutcome(ctx, job, m, models.OutcomeSkipped, now, nil, "")
		o.record(job, m, models.StatusNoRequest, "NO_REQUEST", "no discount requested")
		return
	}

	query := BuildQuery(m)
	outcome := o.resolver.Resolve(ctx, query)

	status, reasonCode, reasonMessage := sanitize(outcome)
	m.Outcome = OutcomeFromResolution(outcome)

	o.persistOutcome(ctx, job, m, m.Outcome, now, outcome.DiscountExpiry, m.EffectiveCategory())
	o.record(job, m, status, reasonCode, reasonMessage)

	if m.DiscountExpiry == nil && outcome.DiscountExpiry != nil {
		m.DiscountExpiry = outcome.DiscountExpiry
	}
}

func (o *Orchestrator) persistOutcome(ctx context.Context, job *Job, m *models.Member, outcome models.ValidationOutcome, at time.Time, expiry *time.Time, category string) {
	if err := o.store.UpdateMemberValidation(ctx, m.ID, outcome, at, expiry, category); err != nil {
		// Best-effort policy: the write failure is recorded, the loop
		// continues, and nothing already written is rolled back.
		o.logger.Error("failed to persist member outcome", map[string]interface{}{
			"memberId": m.ID,
			"error":    err.Error(),
		})
	}
}

// failJob logs the full error, upstream bodies included, and fails the job
// with a diagnostic of stage and error code only. The diagnostic is served
// on the status endpoint, so nothing from the underlying error's payload
// may reach it.
func (o *Orchestrator) failJob(job *Job, orgID, stage string, err error) {
	stdErr := stderrors.Normalize(err)
	o.logger.Error(stage, map[string]interface{}{
		"organizationId": orgID,
		"code":           string(stdErr.Code),
		"error":          err.Error(),
		"details":        stdErr.Details,
	})
	job.fail(fmt.Sprintf("%s (%s)", stage, stdErr.Code))
}

func (o *Orchestrator) record(job *Job, m *models.Member, status models.MemberStatus, reasonCode, reasonMessage string) {
	job.setMemberStatus(m.ID, status, reasonCode, reasonMessage)
	metrics.MemberValidations.WithLabelValues(string(status)).Inc()
}

// finalize prices the pass, renders the document, and appends the
// attachment exactly once.
func (o *Orchestrator) finalize(ctx context.Context, job *Job, org *models.Organization, members []models.Member) {
	quote := pricing.ComputeFee(members, o.matrix)
	generatedAt := time.Now().UTC()

	payload := &renderer.Payload{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Members:          job.checklist(),
		Quote:            quote,
		GeneratedAt:      generatedAt,
	}

	doc, err := o.renderer.Render(ctx, payload)
	if err != nil {
		o.failJob(job, org.ID, "document generation failed", err)
		return
	}

	documentID := uuid.NewString()
	token := uuid.NewString()
	fileName := fmt.Sprintf("validation-outcome-%s.pdf", generatedAt.Format("2006-01-02"))

	if err := o.downloads.Put(ctx, token, doc); err != nil {
		o.failJob(job, org.ID, "document stash failed", err)
		return
	}

	att := models.Attachment{
		ID:        documentID,
		Name:      fileName,
		MimeType:  "application/pdf",
		Size:      len(doc),
		CreatedAt: generatedAt,
	}
	if err := o.store.AppendAttachment(ctx, org.ID, att); err != nil {
		o.failJob(job, org.ID, "attachment write failed", err)
		return
	}

	job.complete(models.JobResult{
		DocumentID:    documentID,
		DownloadToken: token,
		FileName:      fileName,
		TotalFee:      quote.Total,
		FeeWaived:     quote.FeeWaived,
		NoMonthlyFee:  quote.NoMonthlyFee,
		GeneratedAt:   generatedAt,
	})

	o.notifyCompletion(ctx, org, token)
}

func (o *Orchestrator) notifyCompletion(ctx context.Context, org *models.Organization, token string) {
	if o.notifier == nil || org.ContactEmail == "" {
		return
	}
	url := fmt.Sprintf("%s/download/%s", strings.TrimSuffix(o.opts.DownloadBaseURL, "/"), token)
	if err := o.notifier.SendCompletion(ctx, org.ContactEmail, org.Name, url); err != nil {
		o.logger.Warn("completion notification failed", map[string]interface{}{
			"organizationId": org.ID,
			"error":          err.Error(),
		})
	}
}

func (o *Orchestrator) recordTerminal(ctx context.Context, job *Job, started time.Time) {
	state := job.State()
	if !state.Terminal() {
		return
	}
	metrics.JobsCompleted.WithLabelValues(string(state)).Inc()
	metrics.JobDuration.WithLabelValues(string(state)).Observe(time.Since(started).Seconds())
	if o.obs != nil {
		o.obs.RecordJobProcessed(ctx, string(state))
		o.obs.RecordJobDuration(ctx, time.Since(started), string(state))
	}
}

// BuildQuery maps a member's identifying attributes onto a resolver query.
func BuildQuery(m *models.Member) resolver.Query {
	q := resolver.Query{
		LookupID: m.LookupID,
		Email:    m.Email,
		Name:     m.Name,
	}
	if bucket, ok := models.BucketFromCategory(m.ExpectedCategory); ok {
		q.ExpectedBucket = bucket
	}
	q.BirthYear, q.BirthMonth, q.BirthDay = parseBirthComponents(m.DateOfBirth)
	return q
}

// parseBirthComponents splits a YYYY-MM-DD string into components; blank or
// unparsable parts stay zero and act as wildcards.
func parseBirthComponents(s string) (year, month, day int) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 3)
	if len(parts) > 0 {
		year, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		month, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		day, _ = strconv.Atoi(parts[2])
	}
	return year, month, day
}

// sanitize maps a resolver outcome onto the public status vocabulary. Raw
// upstream bodies never pass through.
func sanitize(out resolver.Outcome) (models.MemberStatus, string, string) {
	switch out.Status {
	case resolver.StatusValid:
		return models.StatusValidated, "", ""
	case resolver.StatusInvalid:
		return models.StatusMismatch, "DISCOUNT_MISMATCH", "resolved affiliations do not include the expected discount"
	case resolver.StatusAmbiguous:
		return models.StatusAmbiguous, "MATCH_AMBIGUOUS", "multiple directory candidates matched"
	case resolver.StatusNotFound:
		return models.StatusNotFound, "DIRECTORY_NOT_FOUND", "no directory record matched"
	case resolver.StatusError:
		if out.UpstreamStatus == 401 {
			return models.StatusUnauthorized, "DIRECTORY_UNAUTHORIZED", "directory rejected credentials"
		}
		return models.StatusError, "DIRECTORY_UPSTREAM_ERROR", "directory call failed"
	default:
		return models.StatusError, "INTERNAL_ERROR", "unexpected resolution state"
	}
}

// OutcomeFromResolution maps the resolver status onto the persisted
// enumeration.
func OutcomeFromResolution(out resolver.Outcome) models.ValidationOutcome {
	switch out.Status {
	case resolver.StatusValid:
		return models.OutcomeValid
	case resolver.StatusInvalid:
		return models.OutcomeInvalid
	case resolver.StatusAmbiguous:
		return models.OutcomeAmbiguous
	case resolver.StatusNotFound:
		return models.OutcomeNotFound
	case resolver.StatusSkipped:
		return models.OutcomeSkipped
	default:
		return models.OutcomeError
	}
}
