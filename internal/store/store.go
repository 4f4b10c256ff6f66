// internal/store/store.go

// Package store is the persistent-store boundary: source of truth for
// organization and member data, and the write target for validation
// outcomes and document attachments.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"affiliation-validator/internal/common/config"
	stderrors "affiliation-validator/internal/common/errors"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/models"
)

var (
	ErrOrganizationNotFound = errors.New("ORGANIZATION_NOT_FOUND")
	ErrMemberNotFound       = errors.New("MEMBER_NOT_FOUND")
)

// Store exposes the reads and writes the pipeline performs. Outcome fields
// are overwritten on each pass; the attachment list is append-only.
type Store interface {
	GetOrganizationByToken(ctx context.Context, token string) (*models.Organization, error)
	ListMembers(ctx context.Context, orgID string) ([]models.Member, error)
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	UpdateMemberValidation(ctx context.Context, memberID string, outcome models.ValidationOutcome, validatedAt time.Time, expiry *time.Time, effectiveCategory string) error
	AppendAttachment(ctx context.Context, orgID string, att models.Attachment) error
}

type SQLStore struct {
	db     *sql.DB
	fields config.StoreFieldsConfig
	logger logger.Logger
}

func New(db *sql.DB, fields config.StoreFieldsConfig, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		fields: fields,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

func (s *SQLStore) GetOrganizationByToken(ctx context.Context, token string) (*models.Organization, error) {
	var org models.Organization
	query := `SELECT id, token, name, COALESCE(contact_email, ''), form_submitted, confirmation_recorded, attachment_created_at
		FROM organizations WHERE token = $1`
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&org.ID, &org.Token, &org.Name, &org.ContactEmail,
		&org.FormSubmitted, &org.ConfirmationRecorded, &org.AttachmentCreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, stderrors.NewStoreError("get_organization", err)
	}
	return &org, nil
}

// ListMembers returns an organization's linked members in stable fetch
// order; jobs process members strictly in this order.
func (s *SQLStore) ListMembers(ctx context.Context, orgID string) ([]models.Member, error) {
	query := memberSelect + ` WHERE organization_id = $1 ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, stderrors.NewStoreError("list_members", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, stderrors.NewStoreError("scan_member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewStoreError("list_members", err)
	}
	return members, nil
}

func (s *SQLStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, memberSelect+` WHERE id = $1`, memberID)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, stderrors.NewStoreError("get_member", err)
	}
	return &m, nil
}

// UpdateMemberValidation overwrites the member's outcome fields. The column
// names come from the validated field configuration built at startup.
func (s *SQLStore) UpdateMemberValidation(ctx context.Context, memberID string, outcome models.ValidationOutcome, validatedAt time.Time, expiry *time.Time, effectiveCategory string) error {
	query := fmt.Sprintf(
		`UPDATE members SET %s = $1, %s = $2, %s = $3, %s = $4 WHERE id = $5`,
		s.fields.ValidationSelect,
		s.fields.ValidationDate,
		s.fields.DiscountExpiry,
		s.fields.EffectiveCategory,
	)

	result, err := s.db.ExecContext(ctx, query, string(outcome), validatedAt, expiry, effectiveCategory, memberID)
	if err != nil {
		return stderrors.NewStoreError("update_member_validation", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// AppendAttachment adds one entry to the organization's attachment list and
// stamps the creation date. Existing entries are never touched.
func (s *SQLStore) AppendAttachment(ctx context.Context, orgID string, att models.Attachment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stderrors.NewStoreError("append_attachment", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attachments (id, organization_id, name, mime_type, size, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		att.ID, orgID, att.Name, att.MimeType, att.Size, att.CreatedAt,
	)
	if err != nil {
		return stderrors.NewStoreError("append_attachment", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE organizations SET attachment_created_at = $1 WHERE id = $2`,
		att.CreatedAt, orgID,
	)
	if err != nil {
		return stderrors.NewStoreError("append_attachment", err)
	}

	if err := tx.Commit(); err != nil {
		return stderrors.NewStoreError("append_attachment", err)
	}
	return nil
}

const memberSelect = `SELECT id, organization_id, name, COALESCE(email, ''), COALESCE(date_of_birth, ''),
	membership_type, COALESCE(lookup_id, ''), COALESCE(expected_category, ''),
	manual_check, COALESCE(manual_category, ''), representative, submitted
	FROM members`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMember(row rowScanner) (models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.Name, &m.Email, &m.DateOfBirth,
		&m.Type, &m.LookupID, &m.ExpectedCategory,
		&m.ManualCheck, &m.ManualCategory, &m.Representative, &m.Submitted,
	)
	return m, err
}
