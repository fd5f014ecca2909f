package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound 仓储层统一的"记录不存在"
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

func ValidRole(r string) bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

// 身份准入状态（由 IsVerified / IsOnChain 推导，不落库）
const (
	StatusUnregistered = "unregistered"
	StatusPending      = "pending"
	StatusAdmitted     = "admitted"
)

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PasswordHash       string    `json:"-"`
	Role               string    `json:"role"` // student / teacher / admin
	IdentityCommitment *string   `json:"identityCommitment"`
	IsVerified         bool      `json:"isVerified"` // 已提交 commitment（并非密码学校验）
	IsOnChain          bool      `json:"isOnChain"`  // 已被批量准入
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// IsPending 已提交 commitment 但尚未批量上链
func (u *User) IsPending() bool { return u.IsVerified && !u.IsOnChain }

func (u *User) IdentityStatus() string {
	switch {
	case u.IsOnChain:
		return StatusAdmitted
	case u.IsVerified:
		return StatusPending
	default:
		return StatusUnregistered
	}
}

// Commitment 便于日志/响应，nil 返回空串
func (u *User) Commitment() string {
	if u.IdentityCommitment == nil {
		return ""
	}
	return *u.IdentityCommitment
}

type StatusCounts struct {
	Pending      int64 `json:"pending"`
	Admitted     int64 `json:"admitted"`
	Unregistered int64 `json:"unregistered"`
}

// ListFilter 列表查询条件；Limit<=0 表示不分页
type ListFilter struct {
	Offset int
	Limit  int
	Status string // pending / admitted / unregistered，空为全部
	Query  string // 邮箱或姓名模糊匹配

	WithDeleted bool // 包含已封禁（软删）用户
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f ListFilter) ([]User, int64, error)
	SoftDelete(ctx context.Context, id string) error

	// 身份准入相关
	RecordCommitment(ctx context.Context, id, commitment string) error
	ListPending(ctx context.Context) ([]User, error)
	MarkOnChain(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (StatusCounts, error)
}
