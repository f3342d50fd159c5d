package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
)

const applicantColumns = `id, first_name, last_name, email, phone, download_link, status, start_time, end_time, submission_link, is_suspended`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ListAll returns every applicant in storage order. Callers must not
// rely on any particular ordering.
func (s *Store) ListAll(ctx context.Context) ([]model.Applicant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+applicantColumns+` FROM applicants`)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	defer rows.Close()

	var applicants []model.Applicant
	for rows.Next() {
		applicant, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("list applicants: %w", err)
		}
		applicants = append(applicants, applicant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	return applicants, nil
}

// GetByID returns (nil, nil) for an absent record.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Applicant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = ?`, id)
	applicant, err := scanApplicant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get applicant: %w", err)
	}
	return &applicant, nil
}

// Insert creates a record from the supplied identity fields. The id is
// generated here, status is forced to PENDING and suspension to false
// regardless of what the caller passed.
func (s *Store) Insert(ctx context.Context, fields model.Applicant) (*model.Applicant, error) {
	applicant := fields
	applicant.ID = uuid.NewString()
	applicant.Status = model.StatusPending
	applicant.IsSuspended = false
	applicant.StartTime = nil
	applicant.EndTime = nil
	applicant.SubmissionLink = nil

	if err := insertApplicant(ctx, s.db, applicant); err != nil {
		return nil, fmt.Errorf("insert applicant: %w", err)
	}
	return &applicant, nil
}

// Update merges patch onto the current record and writes the result
// back. Set patch fields overwrite; unset fields are preserved, so a
// partial update never clobbers unrelated columns. Returns (nil, nil)
// when the record is absent; it is never created.
func (s *Store) Update(ctx context.Context, id string, patch model.ApplicantPatch) (*model.Applicant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update applicant: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = ?`, id)
	current, err := scanApplicant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update applicant: %w", err)
	}

	merged := mergePatch(current, patch)

	_, err = tx.ExecContext(ctx, `
UPDATE applicants
SET first_name = ?, last_name = ?, email = ?, phone = ?, download_link = ?,
    status = ?, start_time = ?, end_time = ?, submission_link = ?, is_suspended = ?
WHERE id = ?`,
		merged.FirstName,
		merged.LastName,
		merged.Email,
		merged.Phone,
		merged.DownloadLink,
		string(merged.Status),
		nullInt64(merged.StartTime),
		nullInt64(merged.EndTime),
		nullString(merged.SubmissionLink),
		boolToInt(merged.IsSuspended),
		merged.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update applicant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update applicant: %w", err)
	}
	committed = true
	return &merged, nil
}

// Delete removes the record. A missing record is ErrNotFound so the
// caller can roll back an optimistic removal and re-list.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applicants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete applicant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete applicant: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func insertApplicant(ctx context.Context, db execer, applicant model.Applicant) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO applicants (`+applicantColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		applicant.ID,
		applicant.FirstName,
		applicant.LastName,
		applicant.Email,
		applicant.Phone,
		applicant.DownloadLink,
		string(applicant.Status),
		nullInt64(applicant.StartTime),
		nullInt64(applicant.EndTime),
		nullString(applicant.SubmissionLink),
		boolToInt(applicant.IsSuspended),
	)
	return err
}

func mergePatch(current model.Applicant, patch model.ApplicantPatch) model.Applicant {
	merged := current
	if patch.FirstName != nil {
		merged.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		merged.LastName = *patch.LastName
	}
	if patch.Email != nil {
		merged.Email = *patch.Email
	}
	if patch.Phone != nil {
		merged.Phone = *patch.Phone
	}
	if patch.DownloadLink != nil {
		merged.DownloadLink = *patch.DownloadLink
	}
	if patch.Status != nil {
		merged.Status = *patch.Status
	}
	if patch.StartTime != nil {
		merged.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = patch.EndTime
	}
	if patch.SubmissionLink != nil {
		merged.SubmissionLink = patch.SubmissionLink
	}
	if patch.IsSuspended != nil {
		merged.IsSuspended = *patch.IsSuspended
	}
	return merged
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row rowScanner) (model.Applicant, error) {
	var (
		applicant      model.Applicant
		status         string
		startTime      sql.NullInt64
		endTime        sql.NullInt64
		submissionLink sql.NullString
		suspended      int
	)
	err := row.Scan(
		&applicant.ID,
		&applicant.FirstName,
		&applicant.LastName,
		&applicant.Email,
		&applicant.Phone,
		&applicant.DownloadLink,
		&status,
		&startTime,
		&endTime,
		&submissionLink,
		&suspended,
	)
	if err != nil {
		return model.Applicant{}, err
	}
	applicant.Status = model.Status(status)
	if startTime.Valid {
		applicant.StartTime = &startTime.Int64
	}
	if endTime.Valid {
		applicant.EndTime = &endTime.Int64
	}
	if submissionLink.Valid {
		applicant.SubmissionLink = &submissionLink.String
	}
	applicant.IsSuspended = suspended != 0
	return applicant, nil
}

func nullInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
