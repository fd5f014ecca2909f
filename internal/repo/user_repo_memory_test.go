package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campus-feedback/internal/domain"
)

// 每次调用前进 1 秒，保证 UpdatedAt 有序
func newTickingRepo() *MemoryUserRepo {
	r := NewMemoryUserRepo()
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		t = t.Add(time.Second)
		return t
	}
	return r
}

func seed(t *testing.T, r *MemoryUserRepo, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, r.Create(context.Background(), &domain.User{
			ID: id, Email: id + "@college.edu", Name: "User " + id, Role: domain.RoleStudent,
		}))
	}
}

func TestMemoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := newTickingRepo()
	seed(t, r, "a")

	err := r.Create(ctx, &domain.User{ID: "a", Email: "other@college.edu"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	err = r.Create(ctx, &domain.User{ID: "b", Email: "a@college.edu"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	u, err := r.FindByEmail(ctx, "a@college.edu")
	require.NoError(t, err)
	require.Equal(t, "a", u.ID)
	require.False(t, u.CreatedAt.IsZero())

	// 返回副本，外部修改不影响存储
	u.Name = "changed"
	again, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "User a", again.Name)

	_, err = r.FindByID(ctx, "zzz")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryIdentityLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTickingRepo()
	seed(t, r, "a", "b", "c")

	require.ErrorIs(t, r.RecordCommitment(ctx, "ghost", "x"), domain.ErrNotFound)

	require.NoError(t, r.RecordCommitment(ctx, "b", "cb"))
	require.NoError(t, r.RecordCommitment(ctx, "a", "ca"))

	pending, err := r.ListPending(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ids(pending))

	// 未提交的用户不能被标记
	require.NoError(t, r.MarkOnChain(ctx, "c"))
	c, _ := r.FindByID(ctx, "c")
	require.False(t, c.IsOnChain)

	require.NoError(t, r.MarkOnChain(ctx, "b"))
	counts, err := r.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCounts{Pending: 1, Admitted: 1, Unregistered: 1}, counts)

	// 覆盖写把已准入用户打回 pending
	require.NoError(t, r.RecordCommitment(ctx, "b", "cb2"))
	b, _ := r.FindByID(ctx, "b")
	require.True(t, b.IsPending())
	require.Equal(t, "cb2", b.Commitment())
}

func TestMemorySoftDeleteHidesUser(t *testing.T) {
	ctx := context.Background()
	r := newTickingRepo()
	seed(t, r, "a", "b")
	require.NoError(t, r.RecordCommitment(ctx, "a", "ca"))

	require.NoError(t, r.SoftDelete(ctx, "a"))
	require.ErrorIs(t, r.SoftDelete(ctx, "a"), domain.ErrNotFound)

	_, err := r.FindByID(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, r.RecordCommitment(ctx, "a", "x"), domain.ErrNotFound)

	pending, _ := r.ListPending(ctx)
	require.Empty(t, pending)

	_, total, _ := r.List(ctx, domain.ListFilter{})
	require.EqualValues(t, 1, total)
	_, total, _ = r.List(ctx, domain.ListFilter{WithDeleted: true})
	require.EqualValues(t, 2, total)

	// 邮箱在软删后可复用
	require.NoError(t, r.Create(ctx, &domain.User{ID: "a2", Email: "a@college.edu"}))
}

func TestMemoryListFilters(t *testing.T) {
	ctx := context.Background()
	r := newTickingRepo()
	for i := 0; i < 5; i++ {
		seed(t, r, fmt.Sprintf("u%d", i))
	}
	require.NoError(t, r.RecordCommitment(ctx, "u1", "c1"))
	require.NoError(t, r.RecordCommitment(ctx, "u3", "c3"))

	us, total, err := r.List(ctx, domain.ListFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Equal(t, []string{"u3", "u2"}, ids(us)) // created_at desc

	us, total, _ = r.List(ctx, domain.ListFilter{Status: domain.StatusPending})
	require.EqualValues(t, 2, total)
	require.ElementsMatch(t, []string{"u1", "u3"}, ids(us))

	us, _, _ = r.List(ctx, domain.ListFilter{Query: "U4@COLLEGE"})
	require.Equal(t, []string{"u4"}, ids(us))

	us, total, _ = r.List(ctx, domain.ListFilter{Offset: 10, Limit: 2})
	require.EqualValues(t, 5, total)
	require.Empty(t, us)
}

func ids(us []domain.User) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.ID)
	}
	return out
}
