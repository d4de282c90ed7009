// Package bookprovider looks up book metadata from a Google Books compatible API.
package bookprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bookscout/bookscout/internal/model"
)

// DefaultBaseURL is the public Google Books API.
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 2 << 20

// Provider errors.
var (
	// ErrNotFound means the provider had no result for the title.
	ErrNotFound = errors.New("book not found")

	// ErrUpstreamUnavailable means the provider could not be reached.
	// Errors carrying it also match ErrNotFound.
	ErrUpstreamUnavailable = errors.New("book provider unavailable")
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    *Limiter
	Logger     *slog.Logger
}

// Client fetches volume metadata. It makes exactly one request per call.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *Limiter
	logger     *slog.Logger
}

// volumesResponse matches the subset of the volumes search response we read.
type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo model.VolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

// New creates a provider client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		limiter:    opts.Limiter,
		logger:     logger.With("component", "bookprovider"),
	}
}

// Fetch returns the metadata of the first volume matching title.
func (c *Client) Fetch(ctx context.Context, title string) (*model.VolumeInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrNotFound, ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.volumesURL(title), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Bookscout/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("provider request failed", "title", title, "error", err)
		return nil, fmt.Errorf("%w: %w: %w", ErrNotFound, ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		c.logger.Info("provider returned non-success status", "title", title, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: provider status %d", ErrNotFound, resp.StatusCode)
	}

	var payload volumesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&payload); err != nil {
		c.logger.Warn("provider response undecodable", "title", title, "error", err)
		return nil, fmt.Errorf("%w: decode response: %v", ErrNotFound, err)
	}

	if len(payload.Items) == 0 {
		return nil, ErrNotFound
	}

	info := payload.Items[0].VolumeInfo
	return &info, nil
}

func (c *Client) volumesURL(title string) string {
	q := url.Values{}
	q.Set("q", title)
	q.Set("maxResults", "1")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return c.baseURL + "/volumes?" + q.Encode()
}
