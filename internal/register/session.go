// Package register owns the live cart for each terminal. A Session is an
// explicit object handed to the cart and checkout workflows rather than a
// module-level singleton, so multiple registers can run side by side.
package register

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

// CartCache is the optional write-through persistence for live carts. It is
// a recovery cache, never the source of truth; every session operation stays
// correct when the cache is absent or failing.
type CartCache interface {
	SaveCart(ctx context.Context, registerID string, payload []byte) error
	LoadCart(ctx context.Context, registerID string) ([]byte, bool, error)
	DeleteCart(ctx context.Context, registerID string) error
}

// Session is the single logical owner of one register's live cart. All
// mutations run under its lock, so no two mutations ever interleave.
type Session struct {
	id    string
	cache CartCache
	logg  *logger.Logger

	mu   sync.Mutex
	cart *cart.Cart
}

func newSession(id string, cache CartCache, logg *logger.Logger) *Session {
	return &Session{id: id, cache: cache, logg: logg, cart: cart.New()}
}

// ID returns the register identifier.
func (s *Session) ID() string {
	return s.id
}

// Mutate runs fn against the live cart under the session lock. When fn
// returns an error the cart is left exactly as fn left it (operations are
// expected to reject without partial writes); on success the snapshot is
// written through to the cache best-effort.
func (s *Session) Mutate(ctx context.Context, fn func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.cart); err != nil {
		return err
	}
	s.writeThrough(ctx)
	return nil
}

// View runs fn against the live cart under the session lock without
// persisting afterwards. fn must not retain the cart pointer.
func (s *Session) View(fn func(c *cart.Cart)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cart)
}

// Snapshot returns a deep copy of the live cart.
func (s *Session) Snapshot() *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Session) writeThrough(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if s.cart.IsEmpty() {
		if err := s.cache.DeleteCart(ctx, s.id); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithRegisterID(ctx, s.id), "cart cache delete failed")
		}
		return
	}
	payload, err := json.Marshal(s.cart)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithRegisterID(ctx, s.id), "cart cache marshal failed")
		}
		return
	}
	if err := s.cache.SaveCart(ctx, s.id, payload); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithRegisterID(ctx, s.id), "cart cache save failed")
	}
}

func (s *Session) hydrate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	payload, ok, err := s.cache.LoadCart(ctx, s.id)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithRegisterID(ctx, s.id), "cart cache load failed")
		}
		return
	}
	if !ok {
		return
	}
	restored := cart.New()
	if err := json.Unmarshal(payload, restored); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithRegisterID(ctx, s.id), "cart cache payload corrupt, starting empty")
		}
		return
	}
	s.cart = restored
}

// Manager hands out one session per register id, creating it on first use
// and rehydrating the live cart from the cache after a restart.
type Manager struct {
	cache CartCache
	logg  *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a session manager. cache may be nil.
func NewManager(cache CartCache, logg *logger.Logger) *Manager {
	return &Manager{
		cache:    cache,
		logg:     logg,
		sessions: make(map[string]*Session),
	}
}

// Session returns the register's session, creating it when first seen.
func (m *Manager) Session(ctx context.Context, registerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[registerID]; ok {
		return existing
	}
	created := newSession(registerID, m.cache, m.logg)
	created.hydrate(ctx)
	m.sessions[registerID] = created
	return created
}
