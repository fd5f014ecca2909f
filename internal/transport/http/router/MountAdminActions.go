package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus-feedback/internal/domain"
	httpez "campus-feedback/internal/transport/http/ez"
)

type listQ struct {
	Offset      int    `form:"offset,default=0" binding:"min=0"`
	Limit       int    `form:"limit,default=20"`
	Q           string `form:"q"` // 按 email/name 模糊搜
	Status      string `form:"status" binding:"omitempty,oneof=pending admitted unregistered"`
	WithDeleted bool   `form:"with_deleted"` // 是否包含已封禁
}

type userRow struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	IdentityStatus string    `json:"identityStatus"`
	Commitment     string    `json:"commitment,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type listOut struct {
	Total int64     `json:"total"`
	Items []userRow `json:"items"`
}

type banOut struct {
	ID string `json:"id"`
}

// MountAdminActions 用户管理：列表 / 封禁
func MountAdminActions(admin *gin.RouterGroup, users domain.UserRepository) {
	ez := httpez.New(admin)

	// --- GET /admin/v1/users ---
	httpez.RegisterAction(ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			us, total, err := users.List(c.Request.Context(), domain.ListFilter{
				Offset:      in.Offset,
				Limit:       in.Limit,
				Status:      in.Status,
				Query:       in.Q,
				WithDeleted: in.WithDeleted,
			})
			if err != nil {
				return listOut{}, httpez.Internal("list users failed", err)
			}
			out := listOut{Total: total, Items: make([]userRow, 0, len(us))}
			for i := range us {
				out.Items = append(out.Items, userRow{
					ID:             us[i].ID,
					Email:          us[i].Email,
					Name:           us[i].Name,
					Role:           us[i].Role,
					IdentityStatus: us[i].IdentityStatus(),
					Commitment:     us[i].Commitment(),
					CreatedAt:      us[i].CreatedAt,
				})
			}
			return out, nil
		},
	})

	// --- POST /admin/v1/users/:id/ban  封禁（软删） ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, banOut]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (banOut, error) {
			id := c.Param("id")
			if id == c.GetString(httpez.CtxUserID) {
				return banOut{}, httpez.BadRequest("cannot ban yourself")
			}
			err := users.SoftDelete(c.Request.Context(), id)
			if errors.Is(err, domain.ErrNotFound) {
				return banOut{}, httpez.NotFound("User not found")
			}
			if err != nil {
				return banOut{}, httpez.Internal("ban user failed", err)
			}
			return banOut{ID: id}, nil
		},
	})
}
