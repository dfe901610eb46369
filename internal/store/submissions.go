package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arxenbot/internal/delivery"
	"arxenbot/internal/estimate"
)

// Submission statuses.
const (
	StatusPending     = "pending"
	StatusDelivered   = "delivered"
	StatusEmailFailed = "email_failed"
)

// ErrSubmissionNotFound is returned for unknown reference numbers.
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionRecord is a stored submission without its PDF.
type SubmissionRecord struct {
	ReferenceNumber string            `json:"reference_number"`
	Form            estimate.FormData `json:"form"`
	Status          string            `json:"status"`
	EmailError      string            `json:"email_error,omitempty"`
	RelayError      string            `json:"relay_error,omitempty"`
	HasPDF          bool              `json:"has_pdf"`
	CreatedAt       time.Time         `json:"created_at"`
	FinishedAt      *time.Time        `json:"finished_at,omitempty"`
}

type submissionRow struct {
	ID              int64          `db:"id"`
	ReferenceNumber string         `db:"reference_number"`
	Form            string         `db:"form"`
	HasPDF          bool           `db:"has_pdf"`
	Status          string         `db:"status"`
	EmailError      sql.NullString `db:"email_error"`
	RelayError      sql.NullString `db:"relay_error"`
	CreatedAt       int64          `db:"created_at"`
	FinishedAt      sql.NullInt64  `db:"finished_at"`
}

var _ delivery.Recorder = (*Store)(nil)

// CreateSubmission records a submission before delivery starts.
func (s *Store) CreateSubmission(ctx context.Context, sub delivery.Submission) error {
	form, err := json.Marshal(sub.Form.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode submission form: %w", err)
	}
	var pdf any
	if len(sub.PDF) > 0 {
		pdf = sub.PDF
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (reference_number, form, pdf, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		sub.ReferenceNumber, string(form), pdf, StatusPending, sub.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// FinishSubmission stores the delivery result on the latest submission for ref.
func (s *Store) FinishSubmission(ctx context.Context, ref string, res delivery.Result) error {
	status := StatusDelivered
	if res.EmailErr != nil {
		status = StatusEmailFailed
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = s.now()
	}
	out, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, email_error = ?, relay_error = ?, finished_at = ?
		 WHERE id = (SELECT MAX(id) FROM submissions WHERE reference_number = ?)`,
		status, errString(res.EmailErr), relayErrString(res.RelayErr), finished.UnixMilli(), ref)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// Submission returns the latest submission recorded under ref.
func (s *Store) Submission(ctx context.Context, ref string) (SubmissionRecord, error) {
	var row submissionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, reference_number, form, pdf IS NOT NULL AS has_pdf, status, email_error, relay_error, created_at, finished_at
		 FROM submissions WHERE reference_number = ? ORDER BY id DESC LIMIT 1`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return SubmissionRecord{}, ErrSubmissionNotFound
	}
	if err != nil {
		return SubmissionRecord{}, fmt.Errorf("failed to select submission: %w", err)
	}

	rec := SubmissionRecord{
		ReferenceNumber: row.ReferenceNumber,
		Status:          row.Status,
		EmailError:      row.EmailError.String,
		RelayError:      row.RelayError.String,
		HasPDF:          row.HasPDF,
		CreatedAt:       time.UnixMilli(row.CreatedAt),
	}
	if row.FinishedAt.Valid {
		t := time.UnixMilli(row.FinishedAt.Int64)
		rec.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(row.Form), &rec.Form); err != nil {
		return SubmissionRecord{}, fmt.Errorf("failed to decode submission %s: %w", ref, err)
	}
	return rec, nil
}

// SubmissionPDF returns the rendered PDF for ref.
func (s *Store) SubmissionPDF(ctx context.Context, ref string) ([]byte, error) {
	var pdf []byte
	err := s.db.GetContext(ctx, &pdf,
		`SELECT pdf FROM submissions WHERE reference_number = ? AND pdf IS NOT NULL ORDER BY id DESC LIMIT 1`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select submission pdf: %w", err)
	}
	return pdf, nil
}

func errString(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}

// A disabled relay is not a failure worth recording.
func relayErrString(err error) sql.NullString {
	if errors.Is(err, delivery.ErrRelayDisabled) {
		return sql.NullString{}
	}
	return errString(err)
}
