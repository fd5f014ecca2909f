package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	resp "campus-feedback/internal/transport/http/response"
)

func TestNewRouterRecoversPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zap.NewNop())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, resp.CodeServerError, out.Code)
}

func TestAddrHelpers(t *testing.T) {
	require.Equal(t, "0.0.0.0:8080", Addr("0.0.0.0", 8080))
	require.Equal(t, "http://127.0.0.1:8081", HumanURL("0.0.0.0", 8081))
	require.Equal(t, "http://10.1.1.1:80", HumanURL("10.1.1.1", 80))
}

func TestBuildServer(t *testing.T) {
	srv := BuildServer(":0", http.NewServeMux(), time.Second, 2*time.Second, 3*time.Second, nil)
	require.Equal(t, time.Second, srv.ReadTimeout)
	require.Equal(t, 2*time.Second, srv.WriteTimeout)
	require.Equal(t, 3*time.Second, srv.IdleTimeout)
}
