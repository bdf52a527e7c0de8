// ABOUTME: Access-scoped repository for ECG recordings
// ABOUTME: Every operation is bound to a principal; records owned by others are invisible

package recordings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ecg-gateway/internal/insight"
	"github.com/2389/ecg-gateway/internal/store"
)

var (
	// ErrNotFound is returned for ids that do not exist and for ids owned by
	// another principal. The two cases are indistinguishable to the caller.
	ErrNotFound = errors.New("ECG not found")

	// ErrValidation is returned when a create payload is rejected.
	ErrValidation = errors.New("invalid recording")

	// ErrCreateFailed is returned when a recording could not be persisted.
	// Nothing from the failed attempt is stored.
	ErrCreateFailed = errors.New("error creating ECG")

	// ErrNoPrincipal is returned by a Scope that was built without an owner.
	ErrNoPrincipal = errors.New("no principal bound to scope")
)

// Store is the persistence surface the repository needs.
type Store interface {
	store.RecordingStore
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
}

// Repository hands out principal-bound scopes over recording storage.
type Repository struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the clock used to stamp new recordings.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a Repository backed by s.
func NewRepository(s Store, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		store:  s,
		logger: logger.With("component", "recordings"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// For returns a Scope that can only see recordings owned by owner.
func (r *Repository) For(owner *store.User) *Scope {
	return &Scope{repo: r, owner: owner}
}

// Scope is a view of the repository restricted to one owner.
type Scope struct {
	repo  *Repository
	owner *store.User
}

// Owner returns the principal this scope is bound to.
func (s *Scope) Owner() *store.User {
	return s.owner
}

// Create validates leads and stores them as a new recording owned by the
// scope's principal. The date is set here and never changes afterwards.
func (s *Scope) Create(ctx context.Context, leads []store.Lead) (*store.Recording, error) {
	if s.owner == nil {
		return nil, ErrNoPrincipal
	}
	if err := ValidateLeads(leads); err != nil {
		return nil, err
	}

	rec := &store.Recording{
		ID:      uuid.New().String(),
		OwnerID: s.owner.ID,
		Date:    s.repo.now().UTC(),
		Leads:   make([]store.Lead, len(leads)),
	}
	for i, lead := range leads {
		signal := append([]int{}, lead.Signal...)
		n := len(signal)
		rec.Leads[i] = store.Lead{
			ID:              uuid.New().String(),
			RecordingID:     rec.ID,
			Identifier:      lead.Identifier,
			Signal:          signal,
			NumberOfSamples: &n,
		}
	}

	if err := s.repo.store.CreateRecording(ctx, rec); err != nil {
		s.repo.logger.Error("failed to create recording", "owner_id", s.owner.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	s.audit(ctx, store.AuditCreateRecording, rec.ID, map[string]any{"leads": len(rec.Leads)})
	s.repo.logger.Info("created recording", "id", rec.ID, "owner_id", s.owner.ID, "leads", len(rec.Leads))
	return rec, nil
}

// List returns every recording owned by the scope's principal.
func (s *Scope) List(ctx context.Context) ([]*store.Recording, error) {
	if s.owner == nil {
		return nil, ErrNoPrincipal
	}
	recs, err := s.repo.store.ListRecordings(ctx, s.owner.ID)
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	return recs, nil
}

// Get returns one recording if it exists and belongs to the scope's principal.
func (s *Scope) Get(ctx context.Context, id string) (*store.Recording, error) {
	return s.load(ctx, id)
}

// Insights computes derived statistics for one of the principal's recordings.
func (s *Scope) Insights(ctx context.Context, id string) (insight.Insights, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return insight.Insights{}, err
	}
	return insight.Compute(rec.Leads), nil
}

// Delete removes one of the principal's recordings and its leads.
func (s *Scope) Delete(ctx context.Context, id string) error {
	if s.owner == nil {
		return ErrNoPrincipal
	}
	err := s.repo.store.DeleteRecording(ctx, s.owner.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting recording: %w", err)
	}

	s.audit(ctx, store.AuditDeleteRecording, id, nil)
	return nil
}

// load is the single read path for individual recordings.
func (s *Scope) load(ctx context.Context, id string) (*store.Recording, error) {
	if s.owner == nil {
		return nil, ErrNoPrincipal
	}
	rec, err := s.repo.store.GetRecording(ctx, s.owner.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading recording: %w", err)
	}
	return rec, nil
}

func (s *Scope) audit(ctx context.Context, action store.AuditAction, targetID string, detail map[string]any) {
	entry := &store.AuditEntry{
		ActorID:    s.owner.ID,
		Action:     action,
		TargetType: "recording",
		TargetID:   targetID,
		Detail:     detail,
	}
	if err := s.repo.store.AppendAuditLog(ctx, entry); err != nil {
		// Audit failures don't undo the operation.
		s.repo.logger.Warn("failed to append audit log", "action", action, "target", targetID, "error", err)
	}
}
