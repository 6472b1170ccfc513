package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

const (
	// DefaultBaseURL is the public GitHub REST API
	DefaultBaseURL = "https://api.github.com"

	userAgent         = "gimme-release-notes/0.1.0"
	defaultRetryDelay = 2 * time.Second
)

// Cache stores raw API responses between runs
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, body []byte) error
}

// Config holds everything needed to construct a Client
type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// Retries is the number of extra attempts after a transport failure
	// or a 5xx response. Zero disables retrying.
	Retries    int
	RetryDelay time.Duration

	// Cache is optional. When set, pull request lookups are served from it.
	Cache  Cache
	Logger *slog.Logger
}

// Client is an authenticated GitHub API client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	cache      Cache
	logger     *slog.Logger
}

// NewClient creates a new GitHub API client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: GitHub token is empty", types.ErrConfig)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("%w: retries must not be negative, got %d", types.ErrConfig, cfg.Retries)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		retries:    cfg.Retries,
		retryDelay: retryDelay,
		cache:      cfg.Cache,
		logger:     logger,
	}, nil
}

// GetJSON fetches url and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return err
	}
	return decode(url, body, out)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retryWithBackoff(ctx, c.retries, c.retryDelay, c.logger, func() error {
		var err error
		body, err = c.get(ctx, url)
		return err
	})
	return body, err
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Authorization", "bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	c.logger.Debug("GET", "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", types.ErrTransport, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response of %s: %w", types.ErrTransport, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, url, body)
	}

	if _, _, err := transform.Bytes(encoding.UTF8Validator, body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrEncoding, url, err)
	}

	return body, nil
}

func decode(url string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: %s: field %q has type %s, want %s", types.ErrFormat, url, typeErr.Field, typeErr.Value, typeErr.Type)
		}
		return fmt.Errorf("%w: %s: %v", types.ErrFormat, url, err)
	}
	return nil
}
