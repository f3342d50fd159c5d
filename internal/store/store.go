package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
)

// ErrNotFound is returned by Delete when no record carries the id.
// Reads report an absent record as a nil result instead, since a
// missing record is a valid outcome for them.
var ErrNotFound = errors.New("applicant not found")

const seedFlagKey = "seeded"

// Store is the durable keyed collection of applicant records. It is
// single-writer per call: every Update is an independent
// read-modify-write with no cross-call locking, so at-most-once
// completion of a session is the caller's responsibility.
type Store struct {
	db *sql.DB

	mu          sync.Mutex
	initialized bool
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Initialize creates the schema and performs one-time seeding. It is
// idempotent per instance, and seeding runs at most once per database
// file: a persisted flag in store_meta is checked before the row
// count, so an empty collection after seeding already ran is never
// re-seeded.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS applicants (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	download_link TEXT NOT NULL,
	status TEXT NOT NULL,
	start_time INTEGER NULL,
	end_time INTEGER NULL,
	submission_link TEXT NULL,
	is_suspended INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS store_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if err := s.seedOnce(ctx); err != nil {
		return err
	}

	s.initialized = true
	return nil
}

func (s *Store) seedOnce(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var flag string
	err = tx.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, seedFlagKey).Scan(&flag)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("seed: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM applicants`).Scan(&count); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if count == 0 {
		for _, seed := range seedApplicants() {
			if err := insertApplicant(ctx, tx, seed); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO store_meta (key, value) VALUES (?, ?)`, seedFlagKey, "true"); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	committed = true
	return nil
}

func seedApplicants() []model.Applicant {
	return []model.Applicant{
		{
			ID:           uuid.NewString(),
			FirstName:    "Demo",
			LastName:     "Admin",
			Email:        "admin@livigui.com",
			Phone:        "999888777",
			DownloadLink: "https://docs.google.com/spreadsheets/d/example_admin",
			Status:       model.StatusPending,
		},
		{
			ID:           uuid.NewString(),
			FirstName:    "Juan",
			LastName:     "Pérez",
			Email:        "juan@example.com",
			Phone:        "987654321",
			DownloadLink: "https://docs.google.com/spreadsheets/d/example_juan",
			Status:       model.StatusPending,
		},
	}
}
