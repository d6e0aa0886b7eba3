package http

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/model"
	"github.com/beemart/server/internal/repo"
)

// memStore is an in-memory AccountRepo and OtpRepo
type memStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]model.Account
	passcodes map[uuid.UUID]model.OneTimePasscode
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[uuid.UUID]model.Account),
		passcodes: make(map[uuid.UUID]model.OneTimePasscode),
	}
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, repo.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

func (m *memStore) Create(_ context.Context, in model.NewAccount) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == in.Email {
			return model.Account{}, repo.ErrDuplicate
		}
	}
	a := model.Account{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		FullName:     in.FullName,
		IsSuperuser:  in.IsSuperuser,
		IsActive:     in.IsActive,
		IsVerified:   in.IsActive,
		AuthProvider: in.AuthProvider,
		AvatarURL:    in.AvatarURL,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memStore) Activate(_ context.Context, id uuid.UUID, codeHash, defaultRole string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passcodes[id]
	if !ok || p.CodeHash != codeHash {
		return model.Account{}, repo.ErrNotFound
	}
	delete(m.passcodes, id)
	a := m.accounts[id]
	if a.Role == nil {
		a.Role = &model.Role{ID: 1, Name: defaultRole}
	}
	a.IsActive, a.IsVerified = true, true
	m.accounts[id] = a
	return a, nil
}

func (m *memStore) ActivateFederated(_ context.Context, id uuid.UUID, provider, defaultRole string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.IsVerified {
		return model.Account{}, repo.ErrNotFound
	}
	delete(m.passcodes, id)
	if a.Role == nil {
		a.Role = &model.Role{ID: 1, Name: defaultRole}
	}
	a.IsActive, a.IsVerified = true, true
	a.PasswordHash = nil
	a.AuthProvider = &provider
	m.accounts[id] = a
	return a, nil
}

func (m *memStore) Promote(ctx context.Context, id uuid.UUID) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, repo.ErrNotFound
	}
	a.IsSuperuser, a.IsActive, a.IsVerified = true, true, true
	m.accounts[id] = a
	return a, nil
}

func (m *memStore) Upsert(_ context.Context, id uuid.UUID, codeHash string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passcodes[id] = model.OneTimePasscode{AccountID: id, CodeHash: codeHash, CreatedAt: createdAt}
	return nil
}

func (m *memStore) Find(_ context.Context, id uuid.UUID, codeHash string) (model.OneTimePasscode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passcodes[id]
	if !ok || p.CodeHash != codeHash {
		return model.OneTimePasscode{}, repo.ErrNotFound
	}
	return p, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID, codeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passcodes[id]
	if !ok || p.CodeHash != codeHash {
		return repo.ErrNotFound
	}
	delete(m.passcodes, id)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) SendOTP(context.Context, string, string) error { return nil }

type fakeProvider struct {
	profile auth.ExternalProfile
	err     error
}

func (p *fakeProvider) Name() string { return "google" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (auth.ExternalProfile, error) {
	return p.profile, p.err
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }
