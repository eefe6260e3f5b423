package shop

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session is the server-side rendition of one browser profile: its own cart,
// favorites, and identity, plus an in-flight checkout draft when one exists.
// Operations within a session are issued by a single client in order; across
// sessions only the shared stores synchronize.
type Session struct {
	ID        string
	Cart      *CartStore
	Favorites *FavoritesStore
	User      *UserStore

	mu       sync.Mutex
	checkout *Checkout
}

// StartCheckout begins a new wizard, replacing any abandoned draft.
func (s *Session) StartCheckout(pricing PricingPolicy) (*Checkout, error) {
	checkout, err := BeginCheckout(s.User, s.Cart, pricing)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.checkout = checkout
	s.mu.Unlock()
	return checkout, nil
}

// ActiveCheckout returns the in-flight draft.
func (s *Session) ActiveCheckout() (*Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil {
		return nil, ErrCheckoutNotStarted
	}
	return s.checkout, nil
}

// EndCheckout discards the draft. The cart is left exactly as it was.
func (s *Session) EndCheckout() {
	s.mu.Lock()
	s.checkout = nil
	s.mu.Unlock()
}

// Sessions lazily materializes per-session store sets from the snapshot
// repository, so a session id presented after a restart reconstructs its
// persisted state.
type Sessions struct {
	mu   sync.Mutex
	repo SnapshotRepo
	auth Authenticator
	byID map[string]*Session
}

// NewSessions builds the registry over the shared snapshot repository.
func NewSessions(repo SnapshotRepo, auth Authenticator) *Sessions {
	return &Sessions{
		repo: repo,
		auth: auth,
		byID: make(map[string]*Session),
	}
}

// Create mints a fresh session id with empty stores.
func (s *Sessions) Create(ctx context.Context) (*Session, error) {
	return s.Get(ctx, uuid.NewString())
}

// Get resolves a session id, hydrating its stores from persisted snapshots on
// first sight.
func (s *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	if session, ok := s.byID[id]; ok {
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()

	cart, err := NewCartStore(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	favorites, err := NewFavoritesStore(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	users, err := NewUserStore(ctx, s.repo, s.auth, id)
	if err != nil {
		return nil, err
	}
	session := &Session{
		ID:        id,
		Cart:      cart,
		Favorites: favorites,
		User:      users,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byID[id]; ok {
		return existing, nil
	}
	s.byID[id] = session
	return session, nil
}
