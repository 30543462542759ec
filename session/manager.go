package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/localstore"
	"github.com/google/uuid"
)

const (
	TokenKey        = "reblog.token"
	UserKey         = "reblog.user"
	ProfileCacheKey = "reblog.profileCache"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Remote is the server side of a session.
type Remote interface {
	Register(ctx context.Context, name, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Me(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)
	SetToken(token string)
}

// cachedProfile is the profile cache entry. It only fills gaps for the
// user it was taken from.
type cachedProfile struct {
	UserId uuid.UUID `json:"userId"`
	domain.Profile
}

type Manager struct {
	mu       sync.Mutex
	storage  localstore.Storage
	remote   Remote
	state    State
	restored bool
}

// NewManager resumes a stored session, if any. The stored user is trusted
// until Restore fetches a fresh one.
func NewManager(storage localstore.Storage, remote Remote) *Manager {
	m := &Manager{storage: storage, remote: remote}

	var token string
	var user domain.User
	okToken := m.load(TokenKey, &token) && token != ""
	okUser := m.load(UserKey, &user)
	if okToken && okUser {
		m.state = Reduce(m.state, LoginSucceeded{Token: token, User: &user})
		remote.SetToken(token)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	return m.authenticate(func() (string, *domain.User, error) {
		return m.remote.Register(ctx, name, email, password)
	})
}

func (m *Manager) Login(ctx context.Context, email, password string) error {
	return m.authenticate(func() (string, *domain.User, error) {
		return m.remote.Login(ctx, email, password)
	})
}

func (m *Manager) authenticate(call func() (string, *domain.User, error)) error {
	m.mu.Lock()
	if m.state.Status == Authenticated {
		m.mu.Unlock()
		return nil
	}
	m.state = Reduce(m.state, LoginStarted{})
	m.mu.Unlock()

	token, user, err := call()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = Reduce(m.state, LoginFailed{Err: err})
		return err
	}

	m.state = Reduce(m.state, LoginSucceeded{Token: token, User: user})
	if m.state.Status != Authenticated {
		return nil
	}
	if cached := m.cachedFor(m.state.User.Id); cached != nil {
		u := copyUser(m.state.User)
		server := u.Profile
		u.Profile = Reconcile(&server, nil, cached)
		m.state.User = u
	}
	m.remote.SetToken(token)
	m.save(TokenKey, token)
	m.save(UserKey, m.state.User)
	m.saveProfileCache(m.state.User)
	return nil
}

// Logout keeps the profile projection in the cache so the next login
// starts from it, then forgets the token and user.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.User != nil {
		m.saveProfileCache(m.state.User)
	}
	for _, key := range []string{TokenKey, UserKey} {
		if err := m.storage.Delete(key); err != nil {
			slog.Warn("could not clear session value", slog.String("key", key), slog.Any("error", err))
		}
	}
	m.remote.SetToken("")
	m.state = Reduce(m.state, LoggedOut{})
}

// Restore reconciles the profile from the server, the stored user and the
// profile cache. Only the first call per Manager merges; later calls return
// the current profile.
func (m *Manager) Restore(ctx context.Context) domain.Profile {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return m.Profile()
	}
	m.restored = true
	authenticated := m.state.Status == Authenticated
	m.mu.Unlock()

	var fresh *domain.User
	if authenticated {
		u, err := m.remote.Me(ctx)
		if err != nil {
			slog.Debug("profile refresh failed, using local copies", slog.Any("error", err))
		} else {
			fresh = u
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != Authenticated {
		return Reconcile(nil, nil, m.cachedAny())
	}
	cached := m.cachedFor(m.state.User.Id)

	var freshP *domain.Profile
	if fresh != nil {
		freshP = &fresh.Profile
	}
	last := m.state.User.Profile
	merged := Reconcile(freshP, &last, cached)

	u := copyUser(m.state.User)
	if fresh != nil {
		u = copyUser(fresh)
	}
	u.Profile = merged
	m.state.User = u
	m.save(UserKey, u)
	m.saveProfileCache(u)
	return merged
}

// Profile is the reconciled profile without contacting the server.
func (m *Manager) Profile() domain.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.User == nil {
		return Reconcile(nil, nil, m.cachedAny())
	}
	last := m.state.User.Profile
	return Reconcile(nil, &last, m.cachedFor(m.state.User.Id))
}

// UpdateProfile sends update to the server. When the server can't be
// reached the change is applied locally and synced is false.
func (m *Manager) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (user *domain.User, synced bool, err error) {
	if m.State().Status != Authenticated {
		return nil, false, ErrNotAuthenticated
	}

	remote, rerr := m.remote.UpdateProfile(ctx, update)
	if rerr != nil {
		if errors.Is(rerr, domain.ErrValidation) {
			return nil, false, rerr
		}
		slog.Warn("profile update kept locally", slog.Any("error", rerr))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != Authenticated {
		return nil, false, ErrNotAuthenticated
	}

	m.state = Reduce(m.state, ProfileUpdated{Fields: update})
	if rerr == nil && remote != nil {
		m.state.User = copyUser(remote)
	}
	m.save(UserKey, m.state.User)
	m.saveProfileCache(m.state.User)
	return copyUser(m.state.User), rerr == nil, nil
}

// cachedAny is the cached profile whoever it belongs to. Logged-out views
// show the last snapshot.
func (m *Manager) cachedAny() *domain.Profile {
	var c cachedProfile
	if !m.load(ProfileCacheKey, &c) {
		return nil
	}
	return &c.Profile
}

// cachedFor is the cached profile if it was taken from the user with id.
func (m *Manager) cachedFor(id uuid.UUID) *domain.Profile {
	var c cachedProfile
	if !m.load(ProfileCacheKey, &c) || c.UserId != id {
		return nil
	}
	return &c.Profile
}

func (m *Manager) saveProfileCache(u *domain.User) {
	m.save(ProfileCacheKey, cachedProfile{UserId: u.Id, Profile: u.Profile})
}

func (m *Manager) load(key string, v any) bool {
	data, err := m.storage.Load(key)
	if err != nil {
		slog.Warn("could not read session value", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("ignoring corrupt session value", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (m *Manager) save(key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = m.storage.Save(key, data)
	}
	if err != nil {
		slog.Warn("could not persist session value", slog.String("key", key), slog.Any("error", err))
	}
}
