package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-feedback/internal/core/auth"
	"campus-feedback/internal/core/server"
	"campus-feedback/internal/domain"
	httpez "campus-feedback/internal/transport/http/ez"
	mdw "campus-feedback/internal/transport/http/middleware"
	"campus-feedback/pkg/utils"
)

// Deps 两个引擎共用的依赖
type Deps struct {
	Users    domain.UserRepository
	JWT      *auth.JWTer
	Registry *Registry // nil 时使用 Default

	AllowSelfAdmin bool // 登录自动注册时是否允许 role=admin
}

func (d Deps) registry() *Registry {
	if d.Registry == nil {
		return Default
	}
	return d.Registry
}

func NewAPIEngine(l *zap.Logger, d Deps) *gin.Engine {
	r := server.NewRouter(l)

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.RateLimitPerIP(20, 40),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())

	api := r.Group("/api/v1")

	// 鉴权分组：/me 与业务模块都挂这里，才能拿到 userId
	authUser := api.Group("")
	authUser.Use(mdw.AuthJWT(d.JWT, ""))

	mountAuthActions(api, authUser, d)
	d.registry().MountAllAPI(authUser)

	return r
}

type userView struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	IdentityStatus string `json:"identityStatus"`
	IsVerified     bool   `json:"isVerified"`
	IsOnChain      bool   `json:"isOnChain"`
}

func viewOf(u *domain.User) userView {
	return userView{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		IdentityStatus: u.IdentityStatus(),
		IsVerified:     u.IsVerified,
		IsOnChain:      u.IsOnChain,
	}
}

// ---------- /auth/login + /me ----------

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"     binding:"omitempty,max=64"`                      // 首次注册可用
	Role     string `json:"role"     binding:"omitempty,oneof=student teacher admin"` // 首次注册可用
}

type loginOut struct {
	Token string   `json:"token"`
	IsNew bool     `json:"isNew"`
	User  userView `json:"user"`
}

func mountAuthActions(api, authUser *gin.RouterGroup, d Deps) {
	// /auth/login：查不到就自动注册 + 发 JWT
	httpez.RegisterAction(httpez.New(api), httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			ctx := c.Request.Context()
			email := strings.ToLower(strings.TrimSpace(in.Email))

			u, err := d.Users.FindByEmail(ctx, email)
			isNew := false
			switch {
			case errors.Is(err, domain.ErrNotFound):
				u, err = register(c, d, email, in)
				if err != nil {
					return loginOut{}, err
				}
				isNew = true
			case err != nil:
				return loginOut{}, httpez.Internal("Server error", err)
			default:
				if !utils.CheckPassword(in.Password, u.PasswordHash) {
					return loginOut{}, httpez.Unauthorized("invalid credentials")
				}
			}

			tok, err := d.JWT.Issue(u.ID, u.Role)
			if err != nil {
				return loginOut{}, httpez.Internal("issue token failed", err)
			}
			return loginOut{Token: tok, IsNew: isNew, User: viewOf(u)}, nil
		},
	})

	httpez.RegisterAction(httpez.New(authUser), httpez.Action[struct{}, userView]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (userView, error) {
			u, err := d.Users.FindByID(c.Request.Context(), c.GetString(httpez.CtxUserID))
			if errors.Is(err, domain.ErrNotFound) {
				return userView{}, httpez.NotFound("User not found")
			}
			if err != nil {
				return userView{}, httpez.Internal("Server error", err)
			}
			return viewOf(u), nil
		},
	})
}

func register(c *gin.Context, d Deps, email string, in *loginIn) (*domain.User, error) {
	if in.Role == domain.RoleAdmin && !d.AllowSelfAdmin {
		return nil, httpez.Forbidden("admin self-registration is disabled")
	}
	users := d.Users
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}
	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, httpez.Internal("Server error", err)
	}
	u := &domain.User{ID: utils.NewID(), Email: email, Name: name, PasswordHash: hash, Role: role}

	err = users.Create(c.Request.Context(), u)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// 并发注册兜底：以先写入者为准，仍需校验密码
		existing, e := users.FindByEmail(c.Request.Context(), email)
		if e != nil {
			return nil, httpez.Internal("Server error", e)
		}
		if !utils.CheckPassword(in.Password, existing.PasswordHash) {
			return nil, httpez.Unauthorized("invalid credentials")
		}
		return existing, nil
	}
	if err != nil {
		return nil, httpez.Internal("Server error", err)
	}
	return u, nil
}
