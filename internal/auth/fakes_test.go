package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beemart/server/internal/model"
	"github.com/beemart/server/internal/repo"
)

// memStore is an in-memory AccountRepo and OtpRepo
type memStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]model.Account
	passcodes map[uuid.UUID]model.OneTimePasscode
	roles     map[string]int64
	creates   int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[uuid.UUID]model.Account),
		passcodes: make(map[uuid.UUID]model.OneTimePasscode),
		roles:     make(map[string]int64),
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
	now := time.Now()
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
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.accounts[a.ID] = a
	m.creates++
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

	roleID, ok := m.roles[defaultRole]
	if !ok {
		roleID = int64(len(m.roles) + 1)
		m.roles[defaultRole] = roleID
	}
	a := m.accounts[id]
	if a.Role == nil {
		a.Role = &model.Role{ID: roleID, Name: defaultRole}
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

func (m *memStore) Promote(_ context.Context, id uuid.UUID) (model.Account, error) {
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

func (m *memStore) hasPasscode(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.passcodes[id]
	return ok
}

func (m *memStore) setRole(id uuid.UUID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	a.Role = &model.Role{ID: 99, Name: name}
	m.accounts[id] = a
}

// recordingNotifier remembers the last code sent per email
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	err   error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{codes: make(map[string]string)}
}

func (n *recordingNotifier) SendOTP(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	n.codes[email] = code
	return n.err
}

func (n *recordingNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

var errSMTPDown = errors.New("smtp: connection refused")

// denyAfter allows the first n calls
type denyAfter struct{ n int }

func (d *denyAfter) Allow(string) bool {
	d.n--
	return d.n >= 0
}
