// Package session governs one applicant's progression through the
// timed evaluation: PENDING to IN_PROGRESS on start, IN_PROGRESS to
// COMPLETED on manual submit or countdown expiry. COMPLETED is
// terminal. The declared EXPIRED status is never produced; expiry
// routes through COMPLETED with whatever payload was attached,
// possibly none.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
)

// Records is the slice of the record store the state machine needs.
type Records interface {
	GetByID(ctx context.Context, id string) (*model.Applicant, error)
	Update(ctx context.Context, id string, patch model.ApplicantPatch) (*model.Applicant, error)
}

var (
	ErrNotFound  = errors.New("applicant not found")
	ErrCompleted = errors.New("evaluation already completed")
	// ErrSubmitInFlight means another completion attempt holds the
	// in-flight guard; the caller may retry once it settles.
	ErrSubmitInFlight = errors.New("submission in flight")
	ErrNotStarted     = errors.New("evaluation not started")
	ErrNoPayload      = errors.New("no file attached")
)

// Manager owns the live sessions of this process. Each applicant id
// maps to one runner carrying its own mutex, so updates for the same
// record serialize even under true parallelism while distinct
// applicants never contend.
type Manager struct {
	records  Records
	duration time.Duration

	// tick and now are fixed at construction; tests shrink the tick
	// and swap the clock.
	tick time.Duration
	now  func() time.Time

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	runners map[string]*runner
}

type runner struct {
	mu          sync.Mutex
	payload     string
	payloadName string
	submitting  bool
	stopTimer   context.CancelFunc
}

func NewManager(records Records, duration time.Duration) *Manager {
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		records:  records,
		duration: duration,
		tick:     time.Second,
		now:      time.Now,
		base:     base,
		cancel:   cancel,
		runners:  make(map[string]*runner),
	}
}

// SetTick overrides the once-per-second countdown tick. It affects
// countdowns started afterwards only.
func (m *Manager) SetTick(tick time.Duration) {
	if tick > 0 {
		m.tick = tick
	}
}

// Close cancels every live countdown. Timers are discarded, never
// paused: a later Load rebuilds them from the persisted start time.
func (m *Manager) Close() {
	m.cancel()
}

// Start transitions a PENDING applicant to IN_PROGRESS, persisting the
// start time, and begins the countdown. Starting an applicant already
// IN_PROGRESS resumes instead: the countdown is reconstructed from the
// persisted start time, not from any in-memory value. A COMPLETED
// applicant is returned unchanged.
func (m *Manager) Start(ctx context.Context, id string) (*model.Applicant, error) {
	r := m.runner(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	applicant, err := m.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant == nil {
		return nil, ErrNotFound
	}

	switch applicant.Status {
	case model.StatusCompleted:
		return applicant, nil
	case model.StatusInProgress:
		if applicant.StartTime != nil {
			m.startCountdown(r, id, *applicant.StartTime)
		}
		return applicant, nil
	}

	start := m.now().UnixMilli()
	status := model.StatusInProgress
	updated, err := m.records.Update(ctx, id, model.ApplicantPatch{
		StartTime: &start,
		Status:    &status,
	})
	if err != nil {
		return nil, fmt.Errorf("start evaluation: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	m.startCountdown(r, id, start)
	return updated, nil
}

// Load reads the applicant and, when IN_PROGRESS, makes sure a
// countdown is running for it. This is the reload path after a client
// or process restart.
func (m *Manager) Load(ctx context.Context, id string) (*model.Applicant, error) {
	r := m.runner(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	applicant, err := m.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant == nil {
		return nil, ErrNotFound
	}
	if applicant.Status == model.StatusInProgress && applicant.StartTime != nil && r.stopTimer == nil {
		m.startCountdown(r, id, *applicant.StartTime)
	}
	return applicant, nil
}

// Attach keeps a file payload in memory until submit. Nothing is
// persisted here.
func (m *Manager) Attach(id, name, payload string) {
	r := m.runner(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = payload
	r.payloadName = name
}

// Attached returns the in-memory payload name, if any.
func (m *Manager) Attached(id string) (string, bool) {
	r := m.runner(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloadName, r.payload != ""
}

// Submit is the manual completion path. An explicit payload wins over
// the attached one; submitting with neither is rejected. A write
// failure releases the guard so the user can retry; nothing is retried
// silently.
func (m *Manager) Submit(ctx context.Context, id, payload string) (*model.Applicant, error) {
	r := m.runner(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	if payload == "" {
		payload = r.payload
	}
	if payload == "" {
		return nil, ErrNoPayload
	}
	return m.complete(ctx, r, id, payload)
}

// Remaining is the countdown value for an applicant record, clamped to
// zero. It is always derived from the persisted start time.
func (m *Manager) Remaining(applicant *model.Applicant) time.Duration {
	if applicant == nil || applicant.StartTime == nil || applicant.Status != model.StatusInProgress {
		return 0
	}
	remaining := time.UnixMilli(*applicant.StartTime).Add(m.duration).Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (m *Manager) runner(id string) *runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runners[id]
	if !ok {
		r = &runner{}
		m.runners[id] = r
	}
	return r
}

// startCountdown replaces any countdown for the runner with one
// anchored at the persisted start time. Caller holds r.mu.
func (m *Manager) startCountdown(r *runner, id string, startMillis int64) {
	if r.stopTimer != nil {
		r.stopTimer()
	}
	ctx, cancel := context.WithCancel(m.base)
	r.stopTimer = cancel

	deadline := time.UnixMilli(startMillis).Add(m.duration)
	ticker := time.NewTicker(m.tick)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m.now().Before(deadline) {
					continue
				}
				m.autoSubmit(id)
				return
			}
		}
	}()
}

// autoSubmit is the countdown-expiry completion path. It submits
// whatever payload is attached, or the empty string.
func (m *Manager) autoSubmit(id string) {
	r := m.runner(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := m.complete(m.base, r, id, r.payload)
	if err != nil && !errors.Is(err, ErrCompleted) && !errors.Is(err, ErrSubmitInFlight) {
		log.Printf("auto submit %s: %v", id, err)
	}
}

// complete performs the terminal write. Caller holds r.mu. The
// in-flight flag and the persisted-state check are separate guards:
// the flag stops two near-simultaneous triggers from both attempting
// the write, the state check stops a second completion after the first
// has landed.
func (m *Manager) complete(ctx context.Context, r *runner, id, payload string) (*model.Applicant, error) {
	if r.submitting {
		return nil, ErrSubmitInFlight
	}
	r.submitting = true
	defer func() { r.submitting = false }()

	applicant, err := m.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if applicant == nil {
		return nil, ErrNotFound
	}
	switch applicant.Status {
	case model.StatusCompleted:
		return nil, ErrCompleted
	case model.StatusInProgress:
	default:
		return nil, ErrNotStarted
	}

	end := m.now().UnixMilli()
	status := model.StatusCompleted
	updated, err := m.records.Update(ctx, id, model.ApplicantPatch{
		EndTime:        &end,
		Status:         &status,
		SubmissionLink: &payload,
	})
	if err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
	return updated, nil
}
