// Package upstream holds the HTTP plumbing shared by the aircraft, route and
// weather clients.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/zapcore"

	"github.com/yegors/flight-tracker/internal/metrics"
	"github.com/yegors/flight-tracker/pkg/logger"
)

const userAgent = "flight-tracker/1.0"

// FetchError is returned when an upstream request fails, either because it
// never completed or because the response could not be used.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status code %d from %s", e.Source, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%s: request to %s failed: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a FetchError carrying the given HTTP status
func IsStatus(err error, code int) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == code
}

// Client performs JSON GET requests against one upstream API
type Client struct {
	source     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a client for the named upstream. The name is used in
// errors, logs and metrics.
func NewClient(source string, timeout time.Duration, logger *logger.Logger) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		source: source,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

// GetJSON issues a GET to url with the given extra headers and decodes a
// 2xx JSON body into out. Any other outcome is reported as *FetchError.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{Source: c.source, URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(c.source, 0, "transport_error", time.Since(start))
		return &FetchError{Source: c.source, URL: url, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstreamRequest(c.source, resp.StatusCode, "", time.Since(start))
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return &FetchError{
			Source:     c.source,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamRequest(c.source, resp.StatusCode, "transport_error", time.Since(start))
		return &FetchError{Source: c.source, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if c.logger.Core().Enabled(zapcore.DebugLevel) {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.Debug("Response body preview", logger.String("body", bodyPreview))
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordUpstreamRequest(c.source, resp.StatusCode, "decode_error", time.Since(start))
		return &FetchError{Source: c.source, URL: url, Err: fmt.Errorf("failed to parse JSON: %w", err)}
	}

	metrics.RecordUpstreamRequest(c.source, resp.StatusCode, "", time.Since(start))
	return nil
}
