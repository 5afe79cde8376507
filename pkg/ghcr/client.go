package ghcr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const DefaultBaseURL = "https://ghcr.io"

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// Services
	Tags TagsService
}

// RegistryError represents an error response from the registry API.
type RegistryError struct {
	StatusCode int
	Message    string
	Body       []byte
}

// Error returns a string representation of the RegistryError.
func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry API error (%d): %s -- %s", e.StatusCode, e.Message, string(e.Body))
}

// Options configures NewClient. Zero values fall back to the environment:
//   - GITHUB_TOKEN for Token (sent as a bearer token; ghcr expects the
//     base64-encoded form)
//   - GHCR_BASE_URL for BaseURL, then https://ghcr.io
//   - GHCR_CLIENT_TIMEOUT_SECONDS for Timeout, then 10s
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a registry client.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}
	if token == "" {
		return nil, errors.New("a registry token is required (set GITHUB_TOKEN)")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("GHCR_BASE_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.New("invalid registry base URL: " + err.Error())
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
		if s := os.Getenv("GHCR_CLIENT_TIMEOUT_SECONDS"); s != "" {
			if seconds, err := strconv.Atoi(s); err == nil && seconds > 0 {
				timeout = time.Duration(seconds) * time.Second
			}
		}
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultClient()
		hc.Timeout = timeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: hc,
	}
	c.Tags = &tagsService{client: c}
	return c, nil
}

// DoRequest sends a GET-style request to the registry API and returns the
// response body. The path is relative to /v2 (e.g. "/org/repo/image/tags/list").
func (c *Client) DoRequest(ctx context.Context, method, path string) ([]byte, error) {
	fullURL := fmt.Sprintf("%s/v2%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request [%s %s]: %w", method, fullURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed [%s %s]: %w", method, fullURL, err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &RegistryError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respData,
		}
	}
	return respData, nil
}

// repoPath escapes each segment of an "org/repo/image" path.
func repoPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for _, s := range strings.Split(strings.Trim(p, "/"), "/") {
			if s != "" {
				segs = append(segs, url.PathEscape(s))
			}
		}
	}
	return "/" + strings.Join(segs, "/")
}
