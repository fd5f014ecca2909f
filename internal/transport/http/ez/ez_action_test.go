package ez

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

type echoOut struct {
	Hello string `json:"hello"`
}

func (echoOut) Message() string { return "greeted" }

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newEngine(uid, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid != "" {
			c.Set(CtxUserID, uid)
			c.Set(CtxRole, role)
		}
		c.Next()
	})
	return r
}

func TestRegisterAction(t *testing.T) {
	r := newEngine("u1", "student")
	e := New(r.Group("/v1"))

	RegisterAction(e, Action[echoIn, echoOut]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *echoIn) (echoOut, error) {
			return echoOut{Hello: in.Name}, nil
		},
	})
	RegisterAction(e, Action[struct{}, struct{}]{
		Method: http.MethodGet,
		Path:   "/admin-only",
		Binder: BindNone,
		Auth:   true,
		Roles:  []string{"admin"},
		Handler: func(*gin.Context, *struct{}) (struct{}, error) {
			return struct{}{}, nil
		},
	})
	RegisterAction(e, Action[struct{}, struct{}]{
		Method: http.MethodDelete,
		Path:   "/missing",
		Handler: func(*gin.Context, *struct{}) (struct{}, error) {
			return struct{}{}, NotFound("User not found")
		},
	})
	RegisterAction(e, Action[struct{}, struct{}]{
		Method: http.MethodPut,
		Path:   "/boom",
		Handler: func(*gin.Context, *struct{}) (struct{}, error) {
			return struct{}{}, errors.New("boom")
		},
	})

	env := do(t, r, http.MethodPost, "/v1/echo", `{"name":"ada"}`)
	require.Equal(t, 0, env.Code)
	require.Equal(t, "greeted", env.Msg)
	require.JSONEq(t, `{"hello":"ada"}`, string(env.Data))

	env = do(t, r, http.MethodPost, "/v1/echo", `{}`)
	require.Equal(t, 400, env.Code)

	env = do(t, r, http.MethodGet, "/v1/admin-only", "")
	require.Equal(t, 403, env.Code)

	env = do(t, r, http.MethodDelete, "/v1/missing", "")
	require.Equal(t, 404, env.Code)
	require.Equal(t, "User not found", env.Msg)

	env = do(t, r, http.MethodPut, "/v1/boom", "")
	require.Equal(t, 500, env.Code)
}

func TestRegisterActionRequiresLogin(t *testing.T) {
	r := newEngine("", "")
	RegisterAction(New(r.Group("")), Action[struct{}, struct{}]{
		Method: http.MethodGet,
		Path:   "/me",
		Auth:   true,
		Handler: func(*gin.Context, *struct{}) (struct{}, error) {
			return struct{}{}, nil
		},
	})
	env := do(t, r, http.MethodGet, "/me", "")
	require.Equal(t, 401, env.Code)
}

func TestAErr(t *testing.T) {
	cause := errors.New("db down")
	err := Internal("Server error", cause)
	require.Equal(t, "Server error", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "db down", (&AErr{Err: cause}).Error())
	require.Equal(t, "action error", (&AErr{}).Error())
}
