package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

// MemoryAccountRepo is used when no database is configured. Accounts are
// lost on restart.
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]model.Account)}
}

func (r *MemoryAccountRepo) Create(ctx context.Context, acct model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[acct.ID]; ok {
		return ErrDuplicate
	}
	for _, a := range r.accounts {
		if a.Username == acct.Username {
			return ErrDuplicate
		}
	}
	r.accounts[acct.ID] = acct
	return nil
}

func (r *MemoryAccountRepo) Get(ctx context.Context, id string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryAccountRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return model.Account{}, ErrNotFound
}

func (r *MemoryAccountRepo) List(ctx context.Context) ([]model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryAccountRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}
