package holds

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/register"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

// AutoHoldNote marks holds the engine created itself while resuming another
// transaction.
const AutoHoldNote = "auto-held when resuming another transaction"

// HeldTransaction is a suspended cart. The cart is a frozen deep copy; the
// registry never hands out live references and never mutates an entry in
// place.
type HeldTransaction struct {
	ID     uuid.UUID  `json:"id"`
	Cart   *cart.Cart `json:"cart"`
	HeldAt time.Time  `json:"held_at"`
	Note   string     `json:"note,omitempty"`
}

// Repository is the optional write-through cache behind the registry. The
// in-memory registry stays correct when it is nil or failing.
type Repository interface {
	Save(ctx context.Context, held HeldTransaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]HeldTransaction, error)
}

// Service suspends and resumes carts for a register.
type Service interface {
	Hold(ctx context.Context, sess *register.Session, note string) (*HeldTransaction, error)
	Resume(ctx context.Context, sess *register.Session, id uuid.UUID) (*HeldTransaction, error)
	Remove(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) []HeldTransaction
}

type service struct {
	repo Repository
	logg *logger.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*HeldTransaction
}

// NewService builds the hold registry, rehydrating cached entries when a
// repository is attached.
func NewService(ctx context.Context, repo Repository, logg *logger.Logger) Service {
	s := &service{
		repo:    repo,
		logg:    logg,
		entries: make(map[uuid.UUID]*HeldTransaction),
	}
	if repo != nil {
		cached, err := repo.List(ctx)
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "hold cache rehydrate failed, starting empty")
			}
			return s
		}
		for i := range cached {
			entry := cached[i]
			s.entries[entry.ID] = &entry
		}
	}
	return s
}

// Hold snapshots a non-empty live cart into the registry and clears the
// register. Holding an empty cart is rejected and nothing changes.
func (s *service) Hold(ctx context.Context, sess *register.Session, note string) (*HeldTransaction, error) {
	var held *HeldTransaction
	err := sess.Mutate(ctx, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot hold an empty cart")
		}
		held = s.store(ctx, c, note)
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return held, nil
}

// Resume restores the held cart onto the register and removes it from the
// registry. A non-empty live cart is auto-held first so nothing is lost. A
// resumed id can never be resumed again.
func (s *service) Resume(ctx context.Context, sess *register.Session, id uuid.UUID) (*HeldTransaction, error) {
	// Claim the entry atomically with the lookup so a concurrent resume for
	// the same id sees NotFound rather than a second copy.
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "held transaction not found")
	}

	err := sess.Mutate(ctx, func(c *cart.Cart) error {
		if !c.IsEmpty() {
			s.store(ctx, c, AutoHoldNote)
		}
		c.Restore(entry.Cart)
		c.HoldID = entry.ID.String()
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.entries[id] = entry
		s.mu.Unlock()
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "hold cache delete failed")
		}
	}
	return entry, nil
}

// Remove deletes the hold without restoring it.
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "held transaction not found")
	}
	s.delete(ctx, id)
	return nil
}

// List returns the current holds ordered oldest first.
func (s *service) List(ctx context.Context) []HeldTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]HeldTransaction, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].HeldAt.Before(result[j].HeldAt)
	})
	return result
}

func (s *service) store(ctx context.Context, live *cart.Cart, note string) *HeldTransaction {
	snapshot := live.Clone()
	snapshot.HoldID = ""
	entry := &HeldTransaction{
		ID:     uuid.New(),
		Cart:   snapshot,
		HeldAt: time.Now().UTC(),
		Note:   note,
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, *entry); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "hold cache save failed")
		}
	}
	return entry
}

func (s *service) delete(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "hold cache delete failed")
		}
	}
}
