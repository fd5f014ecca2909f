package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg, "data": data})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{Addr: srv.URL + "/", Token: "tok", Timeout: time.Second})
}

func TestSubmit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/v1/identity/submit", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "u1", in["userId"])
		assert.Equal(t, "0xabc", in["identityCommitment"])
		writeEnv(w, 0, "Identity added to queue", map[string]any{"commitment": "0xabc", "pendingCount": 3})
	})

	res, err := c.Submit(context.Background(), "u1", "0xabc")
	require.NoError(t, err)
	require.Equal(t, SubmitResult{Commitment: "0xabc", PendingCount: 3}, res)
}

func TestForceBatchKeepsMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/v1/identity/force-batch", r.URL.Path)
		writeEnv(w, 0, "No pending users to process", map[string]any{"count": 0})
	})

	res, err := c.ForceBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.Count)
	require.Equal(t, "No pending users to process", res.Message)
}

func TestPendingAndStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/admin/v1/identity/pending":
			writeEnv(w, 0, "ok", map[string]any{
				"total": 1,
				"items": []map[string]any{{"id": "u1", "email": "u1@college.edu", "commitment": "c1"}},
			})
		case "/admin/v1/identity/stats":
			writeEnv(w, 0, "ok", map[string]any{"pending": 1, "admitted": 4, "unregistered": 2, "batchSize": 5})
		default:
			http.NotFound(w, r)
		}
	})

	p, err := c.Pending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, p.Total)
	require.Equal(t, "c1", p.Items[0].Commitment)

	st, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Pending: 1, Admitted: 4, Unregistered: 2, BatchSize: 5}, st)
}

func TestEnvelopeErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/v1/identity/stats" {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		writeEnv(w, 404, "User not found", struct{}{})
	})

	_, err := c.Submit(context.Background(), "ghost", "c")
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, 404, ae.Code)
	require.Equal(t, "User not found", ae.Msg)

	_, err = c.Stats(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(Options{Addr: addr, Timeout: 200 * time.Millisecond})
	_, err := c.Stats(context.Background())
	require.Error(t, err)
}

// 每个路径的第一次请求直接断开连接
func dropFirst(t *testing.T, hits map[string]int, mu *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		n := hits[r.URL.Path]
		mu.Unlock()
		if n == 1 {
			hj, ok := w.(http.Hijacker)
			if !assert.True(t, ok) {
				return
			}
			conn, _, err := hj.Hijack()
			if assert.NoError(t, err) {
				_ = conn.Close()
			}
			return
		}
		writeEnv(w, 0, "Batch processed successfully", map[string]any{"count": 1})
	}
}

func TestRetryOnlyIdempotentCalls(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(dropFirst(t, hits, &mu))
	t.Cleanup(srv.Close)
	c := New(Options{Addr: srv.URL, Token: "tok", Timeout: time.Second, Retries: 2})

	res, err := c.ForceBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	_, err = c.Submit(context.Background(), "u1", "0xabc")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, hits["/admin/v1/identity/force-batch"])
	require.Equal(t, 1, hits["/admin/v1/identity/submit"], "submit must not be replayed")
}
