package user

import (
	"time"

	"gorm.io/gorm"

	"campus-feedback/internal/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;type:varchar(32)"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:16;not null;default:student"`

	// 身份 commitment：提交前为 NULL，不做格式校验
	IdentityCommitment *string `gorm:"type:text"`
	IsVerified         bool    `gorm:"not null;default:false;index:idx_users_identity,priority:1"`
	IsOnChain          bool    `gorm:"not null;default:false;index:idx_users_identity,priority:2"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() domain.User {
	return domain.User{
		ID:                 m.ID,
		Email:              m.Email,
		Name:               m.Name,
		PasswordHash:       m.PasswordHash,
		Role:               m.Role,
		IdentityCommitment: m.IdentityCommitment,
		IsVerified:         m.IsVerified,
		IsOnChain:          m.IsOnChain,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		IdentityCommitment: u.IdentityCommitment,
		IsVerified:         u.IsVerified,
		IsOnChain:          u.IsOnChain,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
