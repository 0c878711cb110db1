// Package api provides the interface between the ECC directory client and the
// transport that executes its requests.
package api

import (
	"context"
	"encoding/json"
)

// Fetcher performs HTTP GET requests against fully formed URLs.
type Fetcher interface {
	// FetchArray executes a GET request for url and returns the elements of
	// the JSON array in the response body, in server order. It fails on
	// network errors, non-2xx responses, and bodies that are not a JSON array.
	FetchArray(ctx context.Context, url string) ([]json.RawMessage, error)
}

// FetcherFunc adapts an ordinary function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]json.RawMessage, error)

// FetchArray calls f(ctx, url).
func (f FetcherFunc) FetchArray(ctx context.Context, url string) ([]json.RawMessage, error) {
	return f(ctx, url)
}
