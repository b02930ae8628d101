package repo

import (
	"context"
	"sync"

	"pyrates-identitydb/internal/domain"
)

// MemoryRepo 进程内存储，按插入顺序保存；进程退出即丢失
type MemoryRepo struct {
	mu   sync.RWMutex
	rows []*domain.Pyrate
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) List(_ context.Context) ([]*domain.Pyrate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Pyrate, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id string) (*domain.Pyrate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexByID(id); i >= 0 {
		return r.rows[i].Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) FindByEmail(_ context.Context, email string) (*domain.Pyrate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexByEmail(email); i >= 0 {
		return r.rows[i].Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) Create(_ context.Context, p *domain.Pyrate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexByEmail(p.Email) >= 0 {
		return ErrDuplicateEmail
	}
	r.rows = append(r.rows, p.Clone())
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, p *domain.Pyrate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexByID(p.ID)
	if i < 0 {
		return ErrNotFound
	}
	if j := r.indexByEmail(p.Email); j >= 0 && j != i {
		return ErrDuplicateEmail
	}
	r.rows[i] = p.Clone()
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexByID(id)
	if i < 0 {
		return ErrNotFound
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
	return nil
}

func (r *MemoryRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rows)), nil
}

func (r *MemoryRepo) indexByID(id string) int {
	for i, p := range r.rows {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepo) indexByEmail(email string) int {
	for i, p := range r.rows {
		if p.Email == email {
			return i
		}
	}
	return -1
}
