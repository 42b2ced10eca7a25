// Package clinictest provides in-memory repositories for tests of code built
// on the clinic workflow.
package clinictest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-booking/internal/events"
	"clinic-booking/internal/model"
	"clinic-booking/internal/store"
)

// Accounts stores accounts and login sessions.
type Accounts struct {
	mu       sync.Mutex
	byID     map[string]*model.Account
	sessions map[string]*store.Session
}

func NewAccounts() *Accounts {
	return &Accounts{byID: map[string]*model.Account{}, sessions: map[string]*store.Session{}}
}

func (m *Accounts) CreateAccount(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Username == a.Username || x.Email == a.Email {
			return store.ErrDuplicate
		}
	}
	a.CreatedAt = time.Now()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *Accounts) AccountByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *Accounts) AccountByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Accounts) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := m.AccountByUsername(ctx, username)
	return err == nil, nil
}

func (m *Accounts) EmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *Accounts) ListProviders(_ context.Context) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Account
	for _, a := range m.byID {
		if a.IsProvider() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *Accounts) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Accounts) CreateSession(_ context.Context, accountID, tokenHash string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.sessions[tokenHash] = &store.Session{ID: id, AccountID: accountID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return id, nil
}

func (m *Accounts) SessionByHash(_ context.Context, tokenHash string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tokenHash]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *Accounts) SessionByID(_ context.Context, id string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Accounts) RotateSession(_ context.Context, oldID, newID, accountID, newHash string, newExpiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == oldID && !s.Revoked {
			now := time.Now()
			s.Revoked = true
			s.ReplacedBy = &newID
			s.RotatedAt = &now
			m.sessions[newHash] = &store.Session{ID: newID, AccountID: accountID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: time.Now()}
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Accounts) RevokeSessions(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.AccountID == accountID {
			s.Revoked = true
		}
	}
	return nil
}

// Requests is an insertion-ordered request ledger.
type Requests[P any] struct {
	mu    sync.Mutex
	order []string
	rows  map[string]model.Request[P]
}

func NewRequests[P any]() *Requests[P] {
	return &Requests[P]{rows: map[string]model.Request[P]{}}
}

func (m *Requests[P]) Insert(_ context.Context, r *model.Request[P]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now()
	m.rows[r.ID] = *r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *Requests[P]) Get(_ context.Context, id string) (*model.Request[P], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *Requests[P]) Update(_ context.Context, id string, fn func(*model.Request[P]) error) (*model.Request[P], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := fn(&r); err != nil {
		return nil, err
	}
	m.rows[id] = r
	return &r, nil
}

func (m *Requests[P]) ListByPatient(_ context.Context, accountID string) ([]model.Request[P], error) {
	return m.filter(func(r model.Request[P]) bool { return r.PatientID == accountID }), nil
}

func (m *Requests[P]) ListByProvider(_ context.Context, accountID string) ([]model.Request[P], error) {
	return m.filter(func(r model.Request[P]) bool { return r.ProviderID == accountID }), nil
}

func (m *Requests[P]) filter(keep func(model.Request[P]) bool) []model.Request[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Request[P]
	for _, id := range m.order {
		if r := m.rows[id]; keep(r) {
			out = append(out, r)
		}
	}
	return out
}

type VideoCalls struct {
	*Requests[model.Session]
}

func NewVideoCalls() VideoCalls { return VideoCalls{NewRequests[model.Session]()} }

func (m VideoCalls) ByRoom(_ context.Context, room string) (*model.VideoCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Payload.Room == room {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *Publisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
