package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"nextgenrdp/api/internal/models"
	"nextgenrdp/api/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory UserStore with failure injection.
type memStore struct {
	mu    sync.Mutex
	users map[string]models.User

	calls int

	failFind    bool
	failGet     bool
	failCreate  error
	failRecord  bool
	failSuccess bool
	failTouch   bool
}

func newMemStore() *memStore {
	return &memStore{users: map[string]models.User{}}
}

func (m *memStore) put(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failFind {
		return models.User{}, errStoreDown
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memStore) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failGet {
		return models.User{}, errStoreDown
	}
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failCreate != nil {
		return m.failCreate
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) RecordFailedLogin(_ context.Context, id string, attempts int, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failRecord {
		return errStoreDown
	}
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FailedLoginAttempts = attempts
	u.AccountLocked = u.AccountLocked || locked
	m.users[id] = u
	return nil
}

func (m *memStore) RecordSuccessfulLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failSuccess {
		return errStoreDown
	}
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FailedLoginAttempts = 0
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *memStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failTouch {
		return errStoreDown
	}
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *memStore) Unlock(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.AccountLocked = false
	u.FailedLoginAttempts = 0
	m.users[id] = u
	return nil
}

func (m *memStore) CountLocked(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.AccountLocked {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Ping(context.Context) error {
	return nil
}

type recordingRevoker struct {
	jti string
	ttl time.Duration
	err error
}

func (r *recordingRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.jti = jti
	r.ttl = ttl
	return r.err
}
