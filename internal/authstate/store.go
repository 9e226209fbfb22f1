// Package authstate holds the client's single view of who is logged in.
//
// A Store is created once per application session. Start issues the one
// identity-check call; every guard and view reads the same Store instead
// of fetching on its own. Bootstrap failures are absorbed: the session is
// simply treated as logged out.
package authstate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

// State is a snapshot of the store. User is nil when no valid identity is
// established. Loading is true exactly while bootstrap is in flight.
type State struct {
	User    *domain.Identity
	Loading bool
}

// IdentityChecker resolves the identity behind the session credential.
type IdentityChecker interface {
	CurrentIdentity(ctx context.Context) (domain.Identity, error)
}

// Store is safe for concurrent use.
type Store struct {
	checker IdentityChecker
	logger  *zap.Logger

	mu    sync.RWMutex
	state State
	// bumped by Login/Logout so an in-flight bootstrap cannot overwrite them
	generation uint64

	once sync.Once
	done chan struct{}
}

// NewStore creates a store with no user and no bootstrap in flight.
func NewStore(checker IdentityChecker, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		checker: checker,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start launches the bootstrap call at most once per store. Loading is set
// before Start returns. The returned channel closes when bootstrap finishes.
func (s *Store) Start(ctx context.Context) <-chan struct{} {
	s.once.Do(func() {
		s.mu.Lock()
		s.state.Loading = true
		gen := s.generation
		s.mu.Unlock()

		go s.bootstrap(ctx, gen)
	})
	return s.done
}

// Bootstrap starts bootstrap if needed and waits for it to finish.
func (s *Store) Bootstrap(ctx context.Context) State {
	<-s.Start(ctx)
	return s.State()
}

func (s *Store) bootstrap(ctx context.Context, gen uint64) {
	defer close(s.done)

	var user *domain.Identity
	defer func() {
		s.mu.Lock()
		if s.generation == gen {
			s.state.User = user
		}
		s.state.Loading = false
		s.mu.Unlock()
	}()

	identity, err := s.checker.CurrentIdentity(ctx)
	switch {
	case err != nil:
		s.logger.Debug("bootstrap: not logged in", zap.Error(err))
	case !identity.Role.Valid():
		s.logger.Warn("bootstrap: ignoring identity with unknown role", zap.String("role", string(identity.Role)))
	default:
		user = &identity
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// Login records an identity obtained from an explicit login. Identities with
// an unknown role leave the store logged out.
func (s *Store) Login(identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if !identity.Role.Valid() || identity.UserID == "" {
		s.state.User = nil
		return
	}
	s.state.User = &identity
}

// Logout clears the user.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state.User = nil
}
