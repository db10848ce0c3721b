package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cipherbox-vault/core/internal/logger"
	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

// HTTPClient is the stdlib-net/http implementation of Facade: a base URL,
// a shared *http.Client, and typed do/get/post helpers.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string

	// TokenRefresher is invoked on a 401 response. A single in-flight
	// refresh is shared across concurrent callers via refreshGroup, fixing
	// the classic stampede of N concurrent auth-triggered refreshes.
	TokenRefresher func(ctx context.Context) (string, error)

	refreshGroup singleflight.Group

	// Retry tuning: 3 attempts, base 250ms, factor 2,
	// full jitter, applied only to transient (5xx/timeout) failures.
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewHTTPClient creates a façade client against baseURL with a 30s request
// timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
	}
}

// SetToken sets the bearer token attached to every request.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any) error {
	attempt := 0
	for {
		attempt++
		err := c.doOnce(ctx, method, path, body, result, true)
		if err == nil {
			return nil
		}

		if vaulterrors.IsRoutingUnavailableError(err) && attempt < c.MaxAttempts {
			delay := fullJitter(c.BaseDelay, attempt)
			logger.DebugCtx(ctx, "facade request retrying",
				"path", path, "attempt", attempt, "delay_ms", delay.Milliseconds())
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	}
}

// fullJitter returns a random delay in [0, base*2^(attempt-1)). Full
// jitter keeps a burst of failing clients from retrying in lockstep.
func fullJitter(base time.Duration, attempt int) time.Duration {
	max := base * (1 << uint(attempt-1))
	if max <= 0 {
		return base
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body, result any, allowAuthRetry bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("facade: failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("facade: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return vaulterrors.NewRoutingUnavailableError(path)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("facade: failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if !allowAuthRetry {
			return &httpError{statusCode: resp.StatusCode, body: string(respBody)}
		}
		if refreshErr := c.refreshToken(ctx); refreshErr != nil {
			return fmt.Errorf("facade: token refresh failed: %w", refreshErr)
		}
		return c.doOnce(ctx, method, path, body, result, false)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("facade: rate limited")
	case resp.StatusCode == http.StatusPaymentRequired, resp.StatusCode == http.StatusInsufficientStorage:
		return vaulterrors.NewQuotaExceededError()
	case resp.StatusCode >= 500:
		return vaulterrors.NewRoutingUnavailableError(path)
	case resp.StatusCode >= 400:
		return &httpError{statusCode: resp.StatusCode, body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("facade: failed to decode response: %w", err)
		}
	}
	return nil
}

// refreshToken coalesces concurrent 401-triggered refresh attempts into a
// single underlying network call.
func (c *HTTPClient) refreshToken(ctx context.Context) error {
	if c.TokenRefresher == nil {
		return fmt.Errorf("facade: no token refresher configured")
	}
	v, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		return c.TokenRefresher(ctx)
	})
	if err != nil {
		return err
	}
	c.SetToken(v.(string))
	return nil
}

type httpError struct {
	statusCode int
	body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("facade: http %d: %s", e.statusCode, e.body)
}

func (c *HTTPClient) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// GetMyVault implements Facade.
func (c *HTTPClient) GetMyVault(ctx context.Context) (*VaultBootstrap, error) {
	var out VaultBootstrap
	if err := c.get(ctx, "/my-vault", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutBlock implements Facade.
func (c *HTTPClient) PutBlock(ctx context.Context, blob []byte) (string, error) {
	var out struct {
		Cid string `json:"cid"`
	}
	body := struct {
		Blob []byte `json:"blob"`
	}{Blob: blob}
	if err := c.post(ctx, "/ipfs/add", body, &out); err != nil {
		return "", err
	}
	return out.Cid, nil
}

// GetBlock implements Facade.
func (c *HTTPClient) GetBlock(ctx context.Context, cid string) ([]byte, error) {
	var out struct {
		Blob []byte `json:"blob"`
	}
	if err := c.get(ctx, "/ipfs/"+url.PathEscape(cid), &out); err != nil {
		return nil, err
	}
	return out.Blob, nil
}

// UnpinBlock implements Facade.
func (c *HTTPClient) UnpinBlock(ctx context.Context, cid string) error {
	body := struct {
		Cid string `json:"cid"`
	}{Cid: cid}
	return c.post(ctx, "/vault/unpin", body, nil)
}

// PublishRecord implements Facade.
func (c *HTTPClient) PublishRecord(ctx context.Context, ipnsName string, record PublishRequest) error {
	return c.post(ctx, "/ipns/publish", record, nil)
}

// ResolveRecord implements Facade.
func (c *HTTPClient) ResolveRecord(ctx context.Context, ipnsName string) (*ResolveResponse, error) {
	var out ResolveResponse
	path := "/ipns/resolve?ipnsName=" + url.QueryEscape(ipnsName)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quota implements Facade.
func (c *HTTPClient) Quota(ctx context.Context) (*Quota, error) {
	var out Quota
	if err := c.get(ctx, "/quota", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ Facade = (*HTTPClient)(nil)
