package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeAdmin(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 401, "msg": "invalid token", "data": struct{}{}})
			return
		}
		var data any
		msg := "ok"
		switch r.URL.Path {
		case "/admin/v1/identity/submit":
			msg, data = "Identity added to queue", map[string]any{"commitment": "0xabc", "pendingCount": 2}
		case "/admin/v1/identity/force-batch":
			msg, data = "Batch processed successfully", map[string]any{"count": 2}
		case "/admin/v1/identity/stats":
			data = map[string]any{"pending": 0, "admitted": 2, "unregistered": 1, "batchSize": 5}
		case "/admin/v1/identity/pending":
			data = map[string]any{"total": 0, "items": []any{}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": msg, "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	srv := fakeAdmin(t)
	base := []string{"--addr", srv.URL, "--token", "admin-token"}

	out, err := run(t, append(base, "submit", "--user", "u1", "--commitment", "0xabc")...)
	require.NoError(t, err)
	require.Contains(t, out, "queued 0xabc (pending: 2)")

	out, err = run(t, append(base, "force-batch")...)
	require.NoError(t, err)
	require.Contains(t, out, "Batch processed successfully (count: 2)")

	out, err = run(t, append(base, "stats", "-o", "json")...)
	require.NoError(t, err)
	require.JSONEq(t, `{"pending":0,"admitted":2,"unregistered":1,"batchSize":5}`, out)

	out, err = run(t, append(base, "pending")...)
	require.NoError(t, err)
	require.Contains(t, out, "total: 0")
}

func TestCommandErrors(t *testing.T) {
	srv := fakeAdmin(t)
	t.Setenv("IDENTITYCTL_TOKEN", "")

	_, err := run(t, "--addr", srv.URL, "stats")
	require.ErrorIs(t, err, errMissingToken)

	_, err = run(t, "--addr", srv.URL, "--token", "wrong", "stats")
	require.ErrorContains(t, err, "invalid token")

	_, err = run(t, "--addr", srv.URL, "--token", "admin-token", "submit", "--user", "u1")
	require.Error(t, err)
}
