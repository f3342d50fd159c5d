// Package admin is the administrative controller: CRUD over applicant
// records, suspension toggles, and a polled local snapshot of the
// collection.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/store"
)

// Records is the slice of the record store the controller needs.
type Records interface {
	ListAll(ctx context.Context) ([]model.Applicant, error)
	GetByID(ctx context.Context, id string) (*model.Applicant, error)
	Insert(ctx context.Context, fields model.Applicant) (*model.Applicant, error)
	Update(ctx context.Context, id string, patch model.ApplicantPatch) (*model.Applicant, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound   = errors.New("applicant not found")
	ErrValidation = errors.New("missing required field")
)

// Controller keeps a local snapshot of the collection so listings stay
// cheap between polls. Mutations apply to the snapshot optimistically;
// a failed delete replays the snapshot from the store's last confirmed
// read rather than reverting fields by hand.
type Controller struct {
	records  Records
	interval time.Duration

	mu       sync.Mutex
	snapshot []model.Applicant
	synced   bool
}

func New(records Records, pollInterval time.Duration) *Controller {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Controller{records: records, interval: pollInterval}
}

// StartPolling refreshes the snapshot on a fixed interval until ctx is
// cancelled.
func (c *Controller) StartPolling(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Refresh(ctx); err != nil {
					log.Printf("applicant poll error: %v", err)
				}
			}
		}
	}()
}

// Refresh re-lists from the store and replaces the snapshot.
func (c *Controller) Refresh(ctx context.Context) ([]model.Applicant, error) {
	applicants, err := c.records.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snapshot = applicants
	c.synced = true
	c.mu.Unlock()
	return copyApplicants(applicants), nil
}

// List returns the snapshot, fetching it first if no poll has run yet.
func (c *Controller) List(ctx context.Context) ([]model.Applicant, error) {
	c.mu.Lock()
	if c.synced {
		defer c.mu.Unlock()
		return copyApplicants(c.snapshot), nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Create validates the identity fields and inserts a new record. The
// store forces status PENDING and clears suspension.
func (c *Controller) Create(ctx context.Context, fields model.Applicant) (*model.Applicant, error) {
	if err := validateRequired(fields); err != nil {
		return nil, err
	}
	created, err := c.records.Insert(ctx, fields)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.synced {
		c.snapshot = append(c.snapshot, *created)
	}
	c.mu.Unlock()
	return created, nil
}

// Edit merges a patch of identity fields onto the record. Clearing a
// required field is rejected before any store call.
func (c *Controller) Edit(ctx context.Context, id string, patch model.ApplicantPatch) (*model.Applicant, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: empty patch", ErrValidation)
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	updated, err := c.records.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	c.replaceInSnapshot(*updated)
	return updated, nil
}

// ToggleSuspension flips the suspension flag and nothing else.
// Suspension never implies a status change.
func (c *Controller) ToggleSuspension(ctx context.Context, id string) (*model.Applicant, error) {
	current, err := c.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	suspended := !current.IsSuspended
	updated, err := c.records.Update(ctx, id, model.ApplicantPatch{IsSuspended: &suspended})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	c.replaceInSnapshot(*updated)
	return updated, nil
}

// Delete removes the record, applying the removal to the snapshot
// before the durable delete. On failure the snapshot is re-listed from
// the store so the visible state converges within one failure cycle.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.synced {
		kept := c.snapshot[:0:0]
		for _, applicant := range c.snapshot {
			if applicant.ID != id {
				kept = append(kept, applicant)
			}
		}
		c.snapshot = kept
	}
	c.mu.Unlock()

	if err := c.records.Delete(ctx, id); err != nil {
		if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
			log.Printf("re-sync after failed delete: %v", refreshErr)
		}
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (c *Controller) replaceInSnapshot(updated model.Applicant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.synced {
		return
	}
	for i := range c.snapshot {
		if c.snapshot[i].ID == updated.ID {
			c.snapshot[i] = updated
			return
		}
	}
}

func validateRequired(fields model.Applicant) error {
	required := map[string]string{
		"firstName":    fields.FirstName,
		"lastName":     fields.LastName,
		"email":        fields.Email,
		"phone":        fields.Phone,
		"downloadLink": fields.DownloadLink,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%w: %s", ErrValidation, name)
		}
	}
	return nil
}

func validatePatch(patch model.ApplicantPatch) error {
	cleared := map[string]*string{
		"firstName":    patch.FirstName,
		"lastName":     patch.LastName,
		"email":        patch.Email,
		"phone":        patch.Phone,
		"downloadLink": patch.DownloadLink,
	}
	for name, value := range cleared {
		if value != nil && *value == "" {
			return fmt.Errorf("%w: %s", ErrValidation, name)
		}
	}
	return nil
}

func copyApplicants(applicants []model.Applicant) []model.Applicant {
	out := make([]model.Applicant, len(applicants))
	copy(out, applicants)
	return out
}
