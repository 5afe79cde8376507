// Package webhook calls the HTTP triggers that sit next to the image
// pipeline: the ECR mirror hook and the AMI builder.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// StatusError is returned for responses outside 2xx.
type StatusError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook error (%d %s): %s -- %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL, strings.TrimSpace(string(e.Body)))
}

// IsNotFound reports whether err is a 404 from the endpoint.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Response is a successful endpoint answer.
type Response struct {
	StatusCode int
	Body       string
}

// Client talks to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client with the given per-request timeout (10s when
// zero).
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cleanhttp.DefaultClient()
	hc.Timeout = timeout
	return &Client{httpClient: hc}
}

// NewClientWith wraps an existing http.Client.
func NewClientWith(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// TriggerURL returns endpoint?image=<image>&tag=<tag>, keeping any query the
// endpoint already carries.
func TriggerURL(endpoint, image, tag string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: want an absolute URL", endpoint)
	}
	q := u.Query()
	q.Set("image", image)
	q.Set("tag", tag)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Trigger calls the mirror hook for one image:tag pair.
func (c *Client) Trigger(ctx context.Context, endpoint, image, tag string) (*Response, error) {
	u, err := TriggerURL(endpoint, image, tag)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, u, nil)
}

// AMIRequest is the payload understood by the AMI builder endpoint.
type AMIRequest struct {
	Images  []string `json:"images"`
	Tag     string   `json:"tag"`
	Launch  bool     `json:"launch"`
	Version string   `json:"version,omitempty"` // EKS version, e.g. 1.33
}

// LaunchAMI asks the builder endpoint to produce an AMI preloaded with the
// given images. Images without an explicit tag get req.Tag. Anything other
// than 200 is an error.
func (c *Client) LaunchAMI(ctx context.Context, endpoint string, req AMIRequest) (*Response, error) {
	if strings.TrimSpace(req.Tag) == "" {
		return nil, errors.New("AMI tag is required")
	}
	images := make([]string, len(req.Images))
	for i, im := range req.Images {
		if !strings.Contains(im, ":") {
			im = im + ":" + req.Tag
		}
		images[i] = im
	}
	req.Images = images

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, &StatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: []byte(resp.Body)}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request [%s %s]: %w", method, u, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed [%s %s]: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u, Body: data}
	}
	return &Response{StatusCode: resp.StatusCode, Body: string(data)}, nil
}
