package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := New(db)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func TestInitializeSeedsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	s := New(db)
	for i := 0; i < 3; i++ {
		if err := s.Initialize(ctx); err != nil {
			t.Fatalf("initialize %d: %v", i, err)
		}
	}
	applicants, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(applicants) != 2 {
		t.Fatalf("expected 2 seed records, got %d", len(applicants))
	}

	// A second instance over the same file must honor the persisted
	// flag even after the collection is emptied.
	for _, applicant := range applicants {
		if err := s.Delete(ctx, applicant.ID); err != nil {
			t.Fatalf("delete seed: %v", err)
		}
	}
	fresh := New(db)
	if err := fresh.Initialize(ctx); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	applicants, err = fresh.ListAll(ctx)
	if err != nil {
		t.Fatalf("list after re-init: %v", err)
	}
	if len(applicants) != 0 {
		t.Fatalf("expected no re-seeding, got %d records", len(applicants))
	}
}

func TestInsertForcesPendingAndUnsuspended(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	suspended := true
	startTime := int64(12345)
	created, err := s.Insert(ctx, model.Applicant{
		FirstName:    "Ana",
		LastName:     "Lopez",
		Email:        "ana@example.com",
		Phone:        "123456789",
		DownloadLink: "https://example.com/material",
		Status:       model.StatusCompleted,
		IsSuspended:  suspended,
		StartTime:    &startTime,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Status != model.StatusPending {
		t.Fatalf("expected status forced to PENDING, got %s", created.Status)
	}
	if created.IsSuspended {
		t.Fatalf("expected suspension forced to false")
	}
	if created.StartTime != nil {
		t.Fatalf("expected no start time on creation")
	}

	stored, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil || stored.Email != "ana@example.com" {
		t.Fatalf("stored record mismatch: %+v", stored)
	}
}

func TestGetByIDAbsentIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	applicant, err := s.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("expected nil error for absent record, got %v", err)
	}
	if applicant != nil {
		t.Fatalf("expected nil record, got %+v", applicant)
	}
}

func TestUpdateMergesWithoutClobbering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.Insert(ctx, model.Applicant{
		FirstName:    "Maria",
		LastName:     "Quispe",
		Email:        "maria@example.com",
		Phone:        "555000111",
		DownloadLink: "https://example.com/excel.xlsx",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	startTime := int64(1700000000000)
	status := model.StatusInProgress
	updated, err := s.Update(ctx, created.ID, model.ApplicantPatch{
		StartTime: &startTime,
		Status:    &status,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", updated.Status)
	}
	if updated.StartTime == nil || *updated.StartTime != startTime {
		t.Fatalf("expected start time %d, got %v", startTime, updated.StartTime)
	}
	if updated.DownloadLink != created.DownloadLink {
		t.Fatalf("patch clobbered download link: %s", updated.DownloadLink)
	}
	if updated.FirstName != "Maria" || updated.LastName != "Quispe" || updated.Phone != "555000111" {
		t.Fatalf("patch clobbered identity fields: %+v", updated)
	}
	if updated.EndTime != nil || updated.SubmissionLink != nil {
		t.Fatalf("patch set fields it should not have: %+v", updated)
	}
}

func TestUpdateAbsentReturnsNil(t *testing.T) {
	s := newTestStore(t)
	name := "Ghost"
	updated, err := s.Update(context.Background(), "missing", model.ApplicantPatch{FirstName: &name})
	if err != nil {
		t.Fatalf("expected nil error for absent record, got %v", err)
	}
	if updated != nil {
		t.Fatalf("expected no record to be created, got %+v", updated)
	}
	applicant, err := s.GetByID(context.Background(), "missing")
	if err != nil || applicant != nil {
		t.Fatalf("update of absent record must not create one")
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created, err := s.Insert(ctx, model.Applicant{
		FirstName:    "Luis",
		LastName:     "Torres",
		Email:        "luis@example.com",
		Phone:        "444",
		DownloadLink: "https://example.com/l",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	applicant, err := s.GetByID(ctx, created.ID)
	if err != nil || applicant != nil {
		t.Fatalf("expected record gone, got %+v err %v", applicant, err)
	}
}
