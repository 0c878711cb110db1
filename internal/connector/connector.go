// Package connector provides the HTTP transport used by the ECC directory client.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent with every request.
var UserAgent = "eccdirectory/dev"

// maxErrorBody caps how much of an error response is kept in a StatusError.
const maxErrorBody = 4096

// StatusError is returned when the server responds with a non-2xx status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// Observer receives the outcome of every request.
type Observer interface {
	RecordAPIRequest(endpoint, status string, duration float64)
}

// Connector executes GET requests and returns JSON array responses.
// It is safe for concurrent use.
type Connector struct {
	client   *http.Client
	logger   zerolog.Logger
	observer Observer
}

// New creates a new Connector. A zero timeout selects DefaultTimeout.
func New(timeout time.Duration, logger zerolog.Logger) *Connector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Connector{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "connector").Logger(),
	}
}

// SetObserver sets the observer notified about each request.
func (c *Connector) SetObserver(o Observer) {
	c.observer = o
}

// FetchArray performs a GET request for rawURL and returns the elements of the
// JSON array in the response body.
func (c *Connector) FetchArray(ctx context.Context, rawURL string) ([]json.RawMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	endpoint := endpointLabel(u.Path)

	c.logger.Debug().
		Str("url", redact(u)).
		Msg("executing request")

	start := time.Now()
	elements, status, err := c.do(ctx, rawURL)
	duration := time.Since(start)

	if c.observer != nil {
		c.observer.RecordAPIRequest(endpoint, status, duration.Seconds())
	}

	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("url", redact(u)).
		Int("count", len(elements)).
		Dur("duration", duration).
		Msg("request completed")

	return elements, nil
}

// do executes the request. The returned status is a metrics label.
func (c *Connector) do(ctx context.Context, rawURL string) ([]json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "error", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "error", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, status, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, status, fmt.Errorf("reading response body: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, status, fmt.Errorf("parsing response JSON: expected array")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, status, fmt.Errorf("parsing response JSON: %w", err)
	}
	if elements == nil {
		elements = []json.RawMessage{}
	}

	return elements, status, nil
}

// redact returns u without its apikey query value.
func redact(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		cp.RawQuery = q.Encode()
	}
	return cp.String()
}

// apiPrefix is the first path segment of every ECC directory URL.
const apiPrefix = "ecc-directory-api"

// endpointLabel reduces a request path to the endpoint group (med, dental,
// categories) so metric labels do not grow with codes and locations.
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 1 && segments[0] == apiPrefix {
		segments = segments[1:]
	}
	return segments[0]
}
