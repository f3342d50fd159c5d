package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
)

type fakeRecords struct {
	applicants []model.Applicant
	err        error
}

func (f *fakeRecords) ListAll(context.Context) ([]model.Applicant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.applicants, nil
}

func TestResolveAdminSkipsStore(t *testing.T) {
	records := &fakeRecords{err: errors.New("store down")}
	g := New(records, "Admin@LIVIGUI.com")

	identity, err := g.Resolve(context.Background(), "  ADMIN@livigui.COM ")
	if err != nil {
		t.Fatalf("resolve admin: %v", err)
	}
	if identity.Role != model.RoleAdmin {
		t.Fatalf("expected ADMIN role, got %s", identity.Role)
	}
	if identity.ApplicantID != "" {
		t.Fatalf("expected no applicant binding for admin")
	}
}

func TestResolveApplicantCaseInsensitive(t *testing.T) {
	records := &fakeRecords{applicants: []model.Applicant{
		{ID: "a1", Email: "juan@example.com"},
		{ID: "a2", Email: "maria@example.com"},
	}}
	g := New(records, "admin@livigui.com")

	identity, err := g.Resolve(context.Background(), "Maria@Example.COM")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.Role != model.RolePostulante {
		t.Fatalf("expected POSTULANTE role, got %s", identity.Role)
	}
	if identity.ApplicantID != "a2" {
		t.Fatalf("expected binding to a2, got %s", identity.ApplicantID)
	}
	if identity.Email != "maria@example.com" {
		t.Fatalf("expected normalized email, got %s", identity.Email)
	}
}

func TestResolveSuspendedIsDenied(t *testing.T) {
	records := &fakeRecords{applicants: []model.Applicant{
		{ID: "a1", Email: "juan@example.com", IsSuspended: true},
	}}
	g := New(records, "admin@livigui.com")

	if _, err := g.Resolve(context.Background(), "juan@example.com"); !errors.Is(err, ErrSuspended) {
		t.Fatalf("expected ErrSuspended, got %v", err)
	}
}

func TestResolveUnknownEmail(t *testing.T) {
	g := New(&fakeRecords{}, "admin@livigui.com")
	if _, err := g.Resolve(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := g.Resolve(context.Background(), "   "); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered for blank email, got %v", err)
	}
}

func TestResolveStoreFailureIsDistinct(t *testing.T) {
	storeErr := errors.New("store down")
	g := New(&fakeRecords{err: storeErr}, "admin@livigui.com")

	_, err := g.Resolve(context.Background(), "juan@example.com")
	if err == nil || errors.Is(err, ErrNotRegistered) || errors.Is(err, ErrSuspended) {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
