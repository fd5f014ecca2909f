// Package app 组装两个 HTTP 进程共用的依赖：存储、缓存、账本、身份服务。
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"campus-feedback/internal/core/auth"
	"campus-feedback/internal/core/cache"
	"campus-feedback/internal/core/config"
	"campus-feedback/internal/core/database"
	"campus-feedback/internal/domain"
	"campus-feedback/internal/feature/user"
	"campus-feedback/internal/ledger"
	"campus-feedback/internal/repo"
	"campus-feedback/internal/service"
	"campus-feedback/internal/transport/http/handler"
	"campus-feedback/internal/transport/http/router"
	"campus-feedback/pkg/utils"
)

const DriverMemory = "memory"

type App struct {
	Users    domain.UserRepository
	Identity *service.IdentityService
	JWT      *auth.JWTer
	Cache    *cache.Cache

	allowSelfAdmin bool
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
		allowSelfAdmin: cfg.Auth.AllowSelfAdmin,
	}

	users, closeDB, err := openUsers(cfg, l)
	if err != nil {
		return nil, err
	}
	a.Users = users
	a.closers = append(a.closers, closeDB)

	if err := ensureAdmin(ctx, users, cfg.Auth, l); err != nil {
		a.Close()
		return nil, err
	}

	a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := a.Cache.Ping(ctx); err != nil {
		// 缓存只服务 stats，连不上就降级为直查
		l.Warn("redis unavailable, stats cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = a.Cache.Close()
		a.Cache = nil
	} else if a.Cache != nil {
		a.closers = append(a.closers, a.Cache.Close)
		l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	a.Identity = service.NewIdentityService(a.Users, ledger.NewMock(l), service.IdentityOptions{
		BatchSize: cfg.Identity.BatchSize,
		StatsTTL:  time.Duration(cfg.Identity.StatsCacheTTLSec) * time.Second,
		Log:       l.Named("identity"),
		Cache:     a.Cache,
	})
	l.Info("identity service ready", zap.Int("batch_size", a.Identity.BatchSize()))
	return a, nil
}

// RouterDeps 每次返回独立的 Registry，避免重复挂载
func (a *App) RouterDeps() router.Deps {
	reg := router.NewRegistry()
	reg.Register(handler.NewIdentityHandler(a.Identity))
	return router.Deps{Users: a.Users, JWT: a.JWT, Registry: reg, AllowSelfAdmin: a.allowSelfAdmin}
}

// ensureAdmin 按配置创建初始管理员；已存在则不改动
func ensureAdmin(ctx context.Context, users domain.UserRepository, c config.Auth, l *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(c.AdminEmail))
	if email == "" {
		return nil
	}
	u, err := users.FindByEmail(ctx, email)
	if err == nil {
		if u.Role != domain.RoleAdmin {
			l.Warn("bootstrap admin email belongs to a non-admin user", zap.String("email", email))
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}
	hash, err := utils.HashPassword(c.AdminPassword)
	if err != nil {
		return err
	}
	err = users.Create(ctx, &domain.User{
		ID:           utils.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	l.Info("bootstrap admin ensured", zap.String("email", email))
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func openUsers(cfg *config.Config, l *zap.Logger) (domain.UserRepository, func() error, error) {
	if cfg.DB.Driver == DriverMemory {
		l.Warn("using in-memory user store, data is lost on restart")
		return repo.NewMemoryUserRepo(), func() error { return nil }, nil
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&user.UserModel{}); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		l.Info("automigrate done")
	}
	return repo.NewUserRepo(db), sqlDB.Close, nil
}
