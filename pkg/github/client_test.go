package github_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekexium/gimme-release-notes/pkg/github"
	"github.com/ekexium/gimme-release-notes/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...func(*github.Config)) *github.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := github.Config{
		BaseURL:    server.URL,
		Token:      "secret",
		RetryDelay: time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := github.NewClient(cfg)
	require.NoError(t, err)

	return client
}

func TestNewClient_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := github.NewClient(github.Config{})
	require.ErrorIs(t, err, types.ErrConfig)
}

func TestNewClient_RejectsNegativeRetries(t *testing.T) {
	t.Parallel()

	_, err := github.NewClient(github.Config{Token: "x", Retries: -1})
	require.ErrorIs(t, err, types.ErrConfig)
}

func TestGetJSON_SendsHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotAgent string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"ok": true}`)
	})

	var out map[string]any
	require.NoError(t, client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out))

	assert.Equal(t, "bearer secret", gotAuth)
	assert.Equal(t, "gimme-release-notes/0.1.0", gotAgent)
	assert.Equal(t, true, out["ok"])
}

func TestGetJSON_InvalidUTF8(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{'"', 0xff, 0xfe, '"'})
	})

	var out any
	err := client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)
	require.ErrorIs(t, err, types.ErrEncoding)
}

func TestGetJSON_NotJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>oops</html>")
	})

	var out any
	err := client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)
	require.ErrorIs(t, err, types.ErrFormat)
}

func TestGetJSON_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := github.NewClient(github.Config{BaseURL: baseURL, Token: "x"})
	require.NoError(t, err)

	var out any
	err = client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)
	require.ErrorIs(t, err, types.ErrTransport)
}

func TestGetJSON_APIError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	var out any
	err := client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)
	require.ErrorIs(t, err, types.ErrTransport)

	var apiErr *github.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Message)
	assert.False(t, apiErr.RateLimited())
}

func TestGetJSON_RateLimited(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(time.Hour).Unix()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	var out any
	err := client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)

	var apiErr *github.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.RateLimited())
	assert.Equal(t, reset, apiErr.RateLimitReset.Unix())
	assert.Contains(t, err.Error(), "rate limited until")
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[]`)
	}, func(cfg *github.Config) {
		cfg.Retries = 2
	})

	var out []any
	require.NoError(t, client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}, func(cfg *github.Config) {
		cfg.Retries = 3
	})

	var out any
	err := client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_NoRetriesByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	var out any
	err := client.GetJSON(context.Background(), client.PullsForCommitURL("o/r", "abc"), &out)
	require.True(t, errors.Is(err, types.ErrTransport))
	assert.Equal(t, int32(1), calls.Load())
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *memoryCache) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.entries[key]
	return body, ok, nil
}

func (m *memoryCache) Put(key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = body
	return nil
}

func TestPullsForCommit_UsesCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	cache := &memoryCache{}

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[{"number": 7, "html_url": "https://example.com/7", "body": "b", "labels": []}]`)
	}, func(cfg *github.Config) {
		cfg.Cache = cache
	})

	for range 2 {
		pulls, err := client.PullsForCommit(context.Background(), "o/r", "abc")
		require.NoError(t, err)
		require.Len(t, pulls, 1)
		assert.Equal(t, 7, pulls[0].Number)
	}

	assert.Equal(t, int32(1), calls.Load())

	baseURL := strings.TrimSuffix(client.PullsForCommitURL("o/r", "abc"), "/repos/o/r/commits/abc/pulls")
	_, found, _ := cache.Get(baseURL + "/o/r@abc")
	assert.True(t, found)
}

func TestPullsForCommit_CacheIsPerHost(t *testing.T) {
	t.Parallel()

	cache := &memoryCache{}
	var enterpriseCalls atomic.Int32

	public := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"number": 7, "html_url": "https://github.com/o/r/pull/7", "body": "b", "labels": []}]`)
	}, func(cfg *github.Config) {
		cfg.Cache = cache
	})
	enterprise := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		enterpriseCalls.Add(1)
		fmt.Fprint(w, `[]`)
	}, func(cfg *github.Config) {
		cfg.Cache = cache
	})

	pulls, err := public.PullsForCommit(context.Background(), "o/r", "abc")
	require.NoError(t, err)
	require.Len(t, pulls, 1)

	pulls, err = enterprise.PullsForCommit(context.Background(), "o/r", "abc")
	require.NoError(t, err)
	assert.Empty(t, pulls)
	assert.Equal(t, int32(1), enterpriseCalls.Load())
}

func TestGetJSON_BadRequestURLIsNotRetried(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}, func(cfg *github.Config) {
		cfg.Retries = 3
		cfg.RetryDelay = time.Hour
	})

	var out any
	err := client.GetJSON(context.Background(), "http://host/\x7f\x00bad", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrTransport)
	assert.Contains(t, err.Error(), "building request")
}
