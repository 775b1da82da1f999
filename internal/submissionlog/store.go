// Package submissionlog appends CRM submission attempts to Postgres.
package submissionlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entry statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const defaultRecentLimit = 20

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one submission attempt.
type Entry struct {
	ID              uuid.UUID `json:"id"`
	Status          string    `json:"status"`
	CRMRecordID     string    `json:"crm_record_id,omitempty"`
	CRMRevision     string    `json:"crm_revision,omitempty"`
	ErrorDetail     string    `json:"error_detail,omitempty"`
	OperatorName    string    `json:"operator_name"`
	OperatorCode    string    `json:"operator_code"`
	ClientID        string    `json:"client_id"`
	ActivityType    string    `json:"activity_type"`
	ActionDate      string    `json:"action_date"`
	AttachmentCount int       `json:"attachment_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store writes entries to the submission_log table.
type Store struct {
	db db
}

func NewStore(db db) *Store {
	if db == nil {
		panic("submissionlog: db required")
	}
	return &Store{db: db}
}

// Append inserts e. A zero ID is replaced with a new UUID.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.Status == "" {
		return errors.New("submissionlog: status required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO submission_log (
			id, status, crm_record_id, crm_revision, error_detail,
			operator_name, operator_code, client_id, activity_type, action_date, attachment_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := s.db.Exec(ctx, query,
		e.ID,
		e.Status,
		e.CRMRecordID,
		e.CRMRevision,
		e.ErrorDetail,
		e.OperatorName,
		e.OperatorCode,
		e.ClientID,
		e.ActivityType,
		e.ActionDate,
		e.AttachmentCount,
	); err != nil {
		return fmt.Errorf("submissionlog: insert failed: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `
		SELECT id, status, crm_record_id, crm_revision, error_detail,
			operator_name, operator_code, client_id, activity_type, action_date,
			attachment_count, created_at
		FROM submission_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("submissionlog: select failed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Status,
			&e.CRMRecordID,
			&e.CRMRevision,
			&e.ErrorDetail,
			&e.OperatorName,
			&e.OperatorCode,
			&e.ClientID,
			&e.ActivityType,
			&e.ActionDate,
			&e.AttachmentCount,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("submissionlog: scan failed: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("submissionlog: rows: %w", err)
	}
	return out, nil
}
