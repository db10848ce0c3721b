package facade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherbox-vault/core/pkg/vaulterrors"
)

func newTestClient(url string) *HTTPClient {
	c := NewHTTPClient(url)
	c.BaseDelay = time.Millisecond
	return c
}

func TestQuotaRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quota", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Quota{UsedBytes: 1024, LimitBytes: 524288000})
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1024), q.UsedBytes)
	assert.Equal(t, int64(524288000), q.LimitBytes)
}

func TestTransientFailureIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Quota{UsedBytes: 7, LimitBytes: 100})
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), q.UsedBytes)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransientFailureExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Quota(context.Background())
	require.Error(t, err)
	assert.True(t, vaulterrors.IsRoutingUnavailableError(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuotaExceededIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.PutBlock(context.Background(), []byte("body"))
	require.Error(t, err)
	assert.True(t, vaulterrors.IsQuotaExceededError(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnauthorizedTriggersSingleRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Quota{UsedBytes: 1, LimitBytes: 2})
	}))
	defer srv.Close()

	var refreshes atomic.Int32
	c := newTestClient(srv.URL)
	c.SetToken("stale-token")
	c.TokenRefresher = func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		// Stay in flight long enough for every concurrent 401 to join
		// the same singleflight call.
		time.Sleep(50 * time.Millisecond)
		return "fresh-token", nil
	}

	const concurrency = 16
	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Quota(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestUnauthorizedWithoutRefresherFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Quota(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token refresher")
}

func TestPersistentUnauthorizedDoesNotLoop(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.TokenRefresher = func(ctx context.Context) (string, error) { return "still-bad", nil }

	_, err := c.Quota(context.Background())
	require.Error(t, err)
	// One original request plus exactly one post-refresh retry.
	assert.Equal(t, int32(2), calls.Load())
}

func TestPutAndGetBlock(t *testing.T) {
	blocks := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ipfs/add":
			var req struct {
				Blob []byte `json:"blob"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			blocks["bafytest"] = req.Blob
			_ = json.NewEncoder(w).Encode(map[string]string{"cid": "bafytest"})
		case r.URL.Path == "/ipfs/bafytest":
			_ = json.NewEncoder(w).Encode(map[string][]byte{"blob": blocks["bafytest"]})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	cid, err := c.PutBlock(context.Background(), []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F})
	require.NoError(t, err)
	assert.Equal(t, "bafytest", cid)

	blob, err := c.GetBlock(context.Background(), cid)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F}, blob)
}

func TestResolveRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipns/resolve", r.URL.Path)
		assert.Equal(t, "k51qzi5uqu5dh9z3f", r.URL.Query().Get("ipnsName"))
		_ = json.NewEncoder(w).Encode(ResolveResponse{
			Value:    "bafyresolved",
			Sequence: 12,
		})
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).ResolveRecord(context.Background(), "k51qzi5uqu5dh9z3f")
	require.NoError(t, err)
	assert.Equal(t, "bafyresolved", out.Value)
	assert.Equal(t, int64(12), out.Sequence)
}
