package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"campus-feedback/internal/domain"
	"campus-feedback/internal/service"
	httpez "campus-feedback/internal/transport/http/ez"
)

const (
	MsgQueued      = "Identity added to queue"
	MsgBatchDone   = "Batch processed successfully"
	MsgNothingToDo = "No pending users to process"
)

type IdentityHandler struct{ svc *service.IdentityService }

func NewIdentityHandler(svc *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// 在 /admin/v1/users 之前挂载
func (h *IdentityHandler) Priority() int { return 10 }

type submitIn struct {
	UserID             string `json:"userId"`
	IdentityCommitment string `json:"identityCommitment" binding:"required"`
}

type submitOut struct {
	Commitment   string `json:"commitment"`
	PendingCount int    `json:"pendingCount"`
}

func (submitOut) Message() string { return MsgQueued }

type forceOut struct {
	Count int `json:"count"`
}

func (o forceOut) Message() string {
	if o.Count == 0 {
		return MsgNothingToDo
	}
	return MsgBatchDone
}

type pendingRow struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Commitment string    `json:"commitment"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type pendingOut struct {
	Total int          `json:"total"`
	Items []pendingRow `json:"items"`
}

// MountAPI 用户端：只能替自己提交（admin 除外）
func (h *IdentityHandler) MountAPI(api *gin.RouterGroup) {
	httpez.RegisterAction(httpez.New(api), httpez.Action[submitIn, submitOut]{
		Method: http.MethodPost,
		Path:   "/identity/submit",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *submitIn) (submitOut, error) {
			caller := c.GetString(httpez.CtxUserID)
			uid := strings.TrimSpace(in.UserID)
			if uid == "" {
				uid = caller
			}
			if uid != caller && c.GetString(httpez.CtxRole) != domain.RoleAdmin {
				return submitOut{}, httpez.Forbidden("cannot submit for another user")
			}
			return h.submit(c, uid, in.IdentityCommitment)
		},
	})
}

// MountAdmin 管理端：分组已校验 admin
func (h *IdentityHandler) MountAdmin(admin *gin.RouterGroup) {
	ez := httpez.New(admin)

	httpez.RegisterAction(ez, httpez.Action[submitIn, submitOut]{
		Method: http.MethodPost,
		Path:   "/identity/submit",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *submitIn) (submitOut, error) {
			if strings.TrimSpace(in.UserID) == "" {
				return submitOut{}, httpez.BadRequest("userId is required")
			}
			return h.submit(c, in.UserID, in.IdentityCommitment)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, forceOut]{
		Method: http.MethodPost,
		Path:   "/identity/force-batch",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (forceOut, error) {
			n, err := h.svc.ForceBatch(c.Request.Context())
			if err != nil {
				return forceOut{}, mapErr(err)
			}
			return forceOut{Count: n}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, pendingOut]{
		Method: http.MethodGet,
		Path:   "/identity/pending",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (pendingOut, error) {
			us, err := h.svc.Pending(c.Request.Context())
			if err != nil {
				return pendingOut{}, mapErr(err)
			}
			out := pendingOut{Total: len(us), Items: make([]pendingRow, 0, len(us))}
			for i := range us {
				out.Items = append(out.Items, pendingRow{
					ID:         us[i].ID,
					Email:      us[i].Email,
					Name:       us[i].Name,
					Commitment: us[i].Commitment(),
					UpdatedAt:  us[i].UpdatedAt,
				})
			}
			return out, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, service.Stats]{
		Method: http.MethodGet,
		Path:   "/identity/stats",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (service.Stats, error) {
			st, err := h.svc.Stats(c.Request.Context())
			if err != nil {
				return service.Stats{}, mapErr(err)
			}
			return st, nil
		},
	})
}

func (h *IdentityHandler) submit(c *gin.Context, uid, commitment string) (submitOut, error) {
	res, err := h.svc.SubmitCommitment(c.Request.Context(), uid, commitment)
	if err != nil {
		return submitOut{}, mapErr(err)
	}
	return submitOut{Commitment: res.Commitment, PendingCount: res.PendingCount}, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return httpez.NotFound("User not found")
	case errors.Is(err, service.ErrInvalidInput):
		return httpez.BadRequest(err.Error())
	default:
		return httpez.Internal("Server error", err)
	}
}
