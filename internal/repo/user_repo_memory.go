package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"campus-feedback/internal/domain"
)

// MemoryUserRepo 进程内实现，db.driver=memory 时使用，也供单测
type MemoryUserRepo struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	deleted map[string]bool
	now     func() time.Time
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:   make(map[string]*domain.User),
		deleted: make(map[string]bool),
		now:     time.Now,
	}
}

var _ domain.UserRepository = (*MemoryUserRepo)(nil)

func (r *MemoryUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.users {
		if id == u.ID || (!r.deleted[id] && existing.Email == u.Email) {
			return domain.ErrAlreadyExists
		}
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.live(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.users {
		if !r.deleted[id] && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryUserRepo) List(_ context.Context, f domain.ListFilter) ([]domain.User, int64, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	r.mu.RLock()
	all := r.filter(f.WithDeleted, func(u *domain.User) bool {
		if f.Status != "" && u.IdentityStatus() != f.Status {
			return false
		}
		return q == "" ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.Name), q)
	})
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if f.Limit <= 0 {
		return all, total, nil
	}
	f.Offset = max(f.Offset, 0)
	if f.Offset >= len(all) {
		return []domain.User{}, total, nil
	}
	end := min(f.Offset+f.Limit, len(all))
	return all[f.Offset:end], total, nil
}

func (r *MemoryUserRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(id); !ok {
		return domain.ErrNotFound
	}
	r.deleted[id] = true
	return nil
}

func (r *MemoryUserRepo) RecordCommitment(_ context.Context, id, commitment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.live(id)
	if !ok {
		return domain.ErrNotFound
	}
	c := commitment
	u.IdentityCommitment = &c
	u.IsVerified = true
	u.IsOnChain = false
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryUserRepo) ListPending(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	out := r.filter(false, func(u *domain.User) bool { return u.IsPending() })
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryUserRepo) MarkOnChain(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.live(id); ok && u.IsVerified {
		u.IsOnChain = true
		u.UpdatedAt = r.now()
	}
	return nil
}

func (r *MemoryUserRepo) CountByStatus(_ context.Context) (domain.StatusCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out domain.StatusCounts
	for id, u := range r.users {
		if r.deleted[id] {
			continue
		}
		switch u.IdentityStatus() {
		case domain.StatusPending:
			out.Pending++
		case domain.StatusAdmitted:
			out.Admitted++
		default:
			out.Unregistered++
		}
	}
	return out, nil
}

// 调用方需持有锁
func (r *MemoryUserRepo) live(id string) (*domain.User, bool) {
	u, ok := r.users[id]
	if !ok || r.deleted[id] {
		return nil, false
	}
	return u, true
}

// 调用方需持有读锁
func (r *MemoryUserRepo) filter(withDeleted bool, keep func(*domain.User) bool) []domain.User {
	out := make([]domain.User, 0, len(r.users))
	for id, u := range r.users {
		if (r.deleted[id] && !withDeleted) || !keep(u) {
			continue
		}
		out = append(out, *u)
	}
	return out
}
