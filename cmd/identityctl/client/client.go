// Package client 管理端 /admin/v1 身份接口的 HTTP 客户端（resty）。
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

// APIError 信封中 code != 0
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string { return fmt.Sprintf("api error %d: %s", e.Code, e.Msg) }

type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type SubmitResult struct {
	Commitment   string `json:"commitment"`
	PendingCount int    `json:"pendingCount"`
}

type BatchResult struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type PendingUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Commitment string    `json:"commitment"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type PendingList struct {
	Total int           `json:"total"`
	Items []PendingUser `json:"items"`
}

type Stats struct {
	Pending      int64 `json:"pending"`
	Admitted     int64 `json:"admitted"`
	Unregistered int64 `json:"unregistered"`
	BatchSize    int   `json:"batchSize"`
}

type Client struct {
	r *resty.Client
}

// 非幂等请求在 context 上打标记，连接错误时不重放
type noRetryKey struct{}

func retryable(resp *resty.Response, err error) bool {
	if err == nil || resp == nil || resp.Request == nil {
		return false
	}
	once, _ := resp.Request.Context().Value(noRetryKey{}).(bool)
	return !once
}

type Options struct {
	Addr    string // 例：http://127.0.0.1:8081
	Token   string // admin JWT
	Timeout time.Duration
	Retries int
	Log     *zap.Logger
}

func New(o Options) *Client {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	r := resty.New().
		SetLogger(o.Log.Sugar()).
		SetBaseURL(strings.TrimRight(o.Addr, "/")+"/admin/v1").
		SetTimeout(o.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "identityctl").
		SetRetryCount(o.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryable) // 只重试连接错误；业务错误在信封里
	if o.Token != "" {
		r.SetAuthToken(o.Token)
	}
	r.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		o.Log.Debug("api response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("took", resp.Time()),
		)
		return nil
	})
	return &Client{r: r}
}

// Submit 不重试：首次请求可能已落库并触发 flush，重放会把刚准入的用户打回 pending
func (c *Client) Submit(ctx context.Context, userID, commitment string) (SubmitResult, error) {
	body := map[string]string{"userId": userID, "identityCommitment": commitment}
	ctx = context.WithValue(ctx, noRetryKey{}, true)
	out, _, err := call[SubmitResult](ctx, c, http.MethodPost, "/identity/submit", body)
	return out, err
}

func (c *Client) ForceBatch(ctx context.Context) (BatchResult, error) {
	out, msg, err := call[BatchResult](ctx, c, http.MethodPost, "/identity/force-batch", nil)
	out.Message = msg
	return out, err
}

func (c *Client) Pending(ctx context.Context) (PendingList, error) {
	out, _, err := call[PendingList](ctx, c, http.MethodGet, "/identity/pending", nil)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	out, _, err := call[Stats](ctx, c, http.MethodGet, "/identity/stats", nil)
	return out, err
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, string, error) {
	var env envelope[T]
	req := c.r.R().SetContext(ctx).SetResult(&env)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return env.Data, "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return env.Data, "", fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode(), resp.String())
	}
	if env.Code != 0 {
		return env.Data, env.Msg, &APIError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, env.Msg, nil
}
