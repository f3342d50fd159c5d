// Package gate resolves a login email to a role, binding applicants to
// their record and refusing suspended ones.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
)

// Records is the read-only slice of the record store the gate needs.
type Records interface {
	ListAll(ctx context.Context) ([]model.Applicant, error)
}

var (
	ErrNotRegistered = errors.New("email not registered")
	ErrSuspended     = errors.New("access suspended")
)

type Gate struct {
	records    Records
	adminEmail string
}

func New(records Records, adminEmail string) *Gate {
	return &Gate{
		records:    records,
		adminEmail: normalize(adminEmail),
	}
}

// Resolve maps an email to an identity. The reserved administrator
// address resolves without touching the store. Everyone else is looked
// up by a case-insensitive scan of the applicant records; a store
// failure surfaces as-is and is never conflated with ErrNotRegistered.
func (g *Gate) Resolve(ctx context.Context, email string) (model.Identity, error) {
	clean := normalize(email)
	if clean == "" {
		return model.Identity{}, ErrNotRegistered
	}

	if clean == g.adminEmail {
		return model.Identity{Role: model.RoleAdmin, Email: clean}, nil
	}

	applicants, err := g.records.ListAll(ctx)
	if err != nil {
		return model.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	for _, applicant := range applicants {
		if normalize(applicant.Email) != clean {
			continue
		}
		if applicant.IsSuspended {
			return model.Identity{}, ErrSuspended
		}
		return model.Identity{
			Role:        model.RolePostulante,
			Email:       clean,
			ApplicantID: applicant.ID,
		}, nil
	}
	return model.Identity{}, ErrNotRegistered
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
