package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"campus-feedback/internal/domain"
	"campus-feedback/internal/feature/user"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := user.FromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepo) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).Where(cond, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := m.ToDomain()
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&user.UserModel{}).Scopes(statusScope(f.Status))
	if f.WithDeleted {
		tx = tx.Unscoped()
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		tx = tx.Where("email LIKE ? OR name LIKE ?", like, like)
	}
	// Session 让 Count 与 Find 各自复用同一组条件
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := tx.Order("created_at desc")
	if f.Limit > 0 {
		page = page.Offset(f.Offset).Limit(f.Limit)
	}
	var ms []user.UserModel
	if err := page.Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toDomainList(ms), total, nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&user.UserModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordCommitment 覆盖写：不论之前状态如何，都回到 pending
func (r *UserRepo) RecordCommitment(ctx context.Context, id, commitment string) error {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"identity_commitment": commitment,
			"is_verified":         true,
			"is_on_chain":         false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 对"值未变化"的行返回 0，需要再确认一次是否存在
	var n int64
	if err := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) ListPending(ctx context.Context) ([]domain.User, error) {
	var ms []user.UserModel
	err := r.db.WithContext(ctx).
		Scopes(statusScope(domain.StatusPending)).
		Order("updated_at asc, id asc").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(ms), nil
}

func (r *UserRepo) MarkOnChain(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&user.UserModel{}).
		Where("id = ? AND is_verified = ?", id, true).
		Update("is_on_chain", true).Error
}

func (r *UserRepo) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	var out domain.StatusCounts
	counts := []struct {
		status string
		dst    *int64
	}{
		{domain.StatusPending, &out.Pending},
		{domain.StatusAdmitted, &out.Admitted},
		{domain.StatusUnregistered, &out.Unregistered},
	}
	for _, c := range counts {
		err := r.db.WithContext(ctx).Model(&user.UserModel{}).Scopes(statusScope(c.status)).Count(c.dst).Error
		if err != nil {
			return domain.StatusCounts{}, err
		}
	}
	return out, nil
}

func statusScope(status string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case domain.StatusPending:
			return db.Where("is_verified = ? AND is_on_chain = ?", true, false)
		case domain.StatusAdmitted:
			return db.Where("is_on_chain = ?", true)
		case domain.StatusUnregistered:
			return db.Where("is_verified = ?", false)
		}
		return db
	}
}

func toDomainList(ms []user.UserModel) []domain.User {
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].ToDomain())
	}
	return out
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey（需要开启 TranslateError）
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
