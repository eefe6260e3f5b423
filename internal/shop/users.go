package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned when the simulated credential check
// rejects a login or registration attempt. No store state changes.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLen = 6

// Authenticator is the seam where a real identity provider would plug in.
// The shipped implementation only simulates a remote call.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (User, error)
	Register(ctx context.Context, name, email, password string) (User, error)
}

// SimulatedAuthenticator accepts any non-empty email with a password of at
// least six characters after a fixed latency. This is a mock credential
// check, not authentication.
type SimulatedAuthenticator struct {
	Latency time.Duration
}

func (a SimulatedAuthenticator) Login(ctx context.Context, email, password string) (User, error) {
	if err := a.wait(ctx); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(email) == "" || len(password) < minPasswordLen {
		return User{}, ErrInvalidCredentials
	}
	name := emailLocalPart(email)
	return newIdentity(name, email), nil
}

func (a SimulatedAuthenticator) Register(ctx context.Context, name, email, password string) (User, error) {
	if err := a.wait(ctx); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || len(password) < minPasswordLen {
		return User{}, ErrInvalidCredentials
	}
	return newIdentity(name, email), nil
}

func (a SimulatedAuthenticator) wait(ctx context.Context) error {
	if a.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(a.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newIdentity(name, email string) User {
	return User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  email,
		Avatar: fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=0D8ABC&color=fff", url.QueryEscape(name)),
	}
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// UserStore holds the session's identity: anonymous or authenticated, nothing
// in between. The persisted identity has no expiry.
type UserStore struct {
	mu   sync.Mutex
	user *User
	auth Authenticator
	repo SnapshotRepo
	key  string
}

type userSnapshot struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"is_authenticated"`
}

// NewUserStore loads the persisted identity for the given session.
func NewUserStore(ctx context.Context, repo SnapshotRepo, auth Authenticator, sessionID string) (*UserStore, error) {
	u := &UserStore{
		auth: auth,
		repo: repo,
		key:  userStorageKey + "/" + sessionID,
	}
	blob, ok, err := repo.Load(ctx, u.key)
	if err != nil {
		return nil, err
	}
	if ok {
		var snap userSnapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("decode user snapshot: %w", err)
		}
		if snap.IsAuthenticated {
			u.user = snap.User
		}
	}
	return u, nil
}

// Login runs the simulated credential check and, on success, materializes the
// identity. On failure the store stays anonymous.
func (u *UserStore) Login(ctx context.Context, email, password string) (User, error) {
	user, err := u.auth.Login(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	return user, u.setIdentity(ctx, user)
}

// Register behaves like Login but keeps the provided display name.
func (u *UserStore) Register(ctx context.Context, name, email, password string) (User, error) {
	user, err := u.auth.Register(ctx, name, email, password)
	if err != nil {
		return User{}, err
	}
	return user, u.setIdentity(ctx, user)
}

// Logout unconditionally discards the identity.
func (u *UserStore) Logout(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.user = nil
	return u.persist(ctx)
}

// Current returns the identity and whether one is active.
func (u *UserStore) Current() (User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.user == nil {
		return User{}, false
	}
	return *u.user, true
}

// IsAuthenticated reports whether an identity is active.
func (u *UserStore) IsAuthenticated() bool {
	_, ok := u.Current()
	return ok
}

func (u *UserStore) setIdentity(ctx context.Context, user User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.user = &user
	return u.persist(ctx)
}

func (u *UserStore) persist(ctx context.Context) error {
	snap := userSnapshot{User: u.user, IsAuthenticated: u.user != nil}
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}
	return u.repo.Save(ctx, u.key, blob)
}
