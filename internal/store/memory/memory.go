package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type txKey struct {
	kind core.Kind
	id   string
}

// Store keeps users and transactions in process memory.
type Store struct {
	mu      sync.Mutex
	users   map[string]core.User
	byEmail map[string]string
	txs     map[txKey]core.Transaction
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]core.User),
		byEmail: make(map[string]string),
		txs:     make(map[txKey]core.Transaction),
	}
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[txKey{tx.Kind, tx.ID}] = tx
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey{tx.Kind, tx.ID}
	cur, ok := s.txs[key]
	if !ok || cur.UserID != tx.UserID {
		return store.ErrNotFound
	}
	tx.CreatedAt = cur.CreatedAt
	s.txs[key] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, kind core.Kind, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey{kind, id}
	cur, ok := s.txs[key]
	if !ok || cur.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.txs, key)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, kind core.Kind, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[txKey{kind, id}]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, kind core.Kind, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0)
	for k, tx := range s.txs {
		if k.kind == kind && tx.UserID == userID {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()
	store.SortByDateDesc(out)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := core.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return store.ErrEmailTaken
	}
	u.Email = email
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return s.users[id], nil
}

// UpdateUser replaces profile and password fields. The email is immutable.
func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	u.Email = cur.Email
	u.CreatedAt = cur.CreatedAt
	s.users[u.ID] = u
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
