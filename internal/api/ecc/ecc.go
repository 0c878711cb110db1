// Package ecc provides an API client for the CarePass Estimated Cost of Care
// (ECC) directory service.
//
// Parameter values are inserted into request paths verbatim. Codes, zip codes,
// coordinates and category names are expected to be URL safe already.
package ecc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/ecc-directory/internal/api"
	"github.com/andygrunwald/ecc-directory/internal/models"
)

const (
	// ServiceName is the identifier for this API.
	ServiceName = "ecc"
	// baseURL is the prefix all endpoints are relative to.
	baseURL = "https://api.carepass.com/ecc-directory-api/"

	medicalEndpoint    = "med/"
	dentalEndpoint     = "dental/"
	categoriesEndpoint = "categories"

	apiKeyParameter = "apikey"
)

// ErrInvalidCredential is returned by every operation when the client has no API key.
var ErrInvalidCredential = errors.New("invalid credential specified")

// Client is an ECC directory API client.
// It holds no mutable state and is safe for concurrent use when its Fetcher is.
type Client struct {
	apiKey  string
	baseURL string
	fetcher api.Fetcher
	logger  zerolog.Logger
}

// New creates a new ECC directory client.
func New(apiKey string, fetcher api.Fetcher, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  logger.With().Str("api", ServiceName).Logger(),
	}
}

// APIKey returns the API key the client was created with.
func (c *Client) APIKey() string {
	return c.apiKey
}

// MedicalCostByLocation retrieves medical cost estimates for a CPT code near a coordinate pair.
func (c *Client) MedicalCostByLocation(ctx context.Context, cpt, lat, lng string) ([]models.CostCareInformation, error) {
	return fetchList[models.CostCareInformation](ctx, c, medicalEndpoint+cpt+"/"+lat+","+lng)
}

// MedicalCostByZip retrieves medical cost estimates for a CPT code in a zip code.
func (c *Client) MedicalCostByZip(ctx context.Context, cpt, zip string) ([]models.CostCareInformation, error) {
	return fetchList[models.CostCareInformation](ctx, c, medicalEndpoint+cpt+"/zip/"+zip)
}

// MedicalCodes lists all medical CPT codes with their short and long descriptions.
func (c *Client) MedicalCodes(ctx context.Context) ([]models.Cpt, error) {
	return fetchList[models.Cpt](ctx, c, medicalEndpoint+"cpt")
}

// DentalCostByLocation retrieves dental cost estimates for a CDT code near a coordinate pair.
func (c *Client) DentalCostByLocation(ctx context.Context, cdt, lat, lng string) ([]models.CostCareInformation, error) {
	return fetchList[models.CostCareInformation](ctx, c, dentalEndpoint+cdt+"/"+lat+","+lng)
}

// DentalCostByZip retrieves dental cost estimates for a CDT code in a zip code.
func (c *Client) DentalCostByZip(ctx context.Context, cdt, zip string) ([]models.CostCareInformation, error) {
	return fetchList[models.CostCareInformation](ctx, c, dentalEndpoint+cdt+"/zip/"+zip)
}

// DentalCodes lists all dental CDT codes with their short and long descriptions.
func (c *Client) DentalCodes(ctx context.Context) ([]models.Cpt, error) {
	return fetchList[models.Cpt](ctx, c, dentalEndpoint+"cdt")
}

// Categories lists the top-level procedure categories.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	return fetchList[models.Category](ctx, c, categoriesEndpoint)
}

// Subcategories lists the subcategories of category.
// An empty category addresses the root ("categories/").
func (c *Client) Subcategories(ctx context.Context, category string) ([]models.Category, error) {
	return fetchList[models.Category](ctx, c, categoriesEndpoint+"/"+category)
}

// Cost retrieves cost estimates for a procedure family, code and location.
func (c *Client) Cost(ctx context.Context, family models.Family, code string, loc models.Location) ([]models.CostCareInformation, error) {
	switch family {
	case models.FamilyMedical:
		if loc.IsZip() {
			return c.MedicalCostByZip(ctx, code, loc.Zip)
		}
		return c.MedicalCostByLocation(ctx, code, loc.Lat, loc.Lng)
	case models.FamilyDental:
		if loc.IsZip() {
			return c.DentalCostByZip(ctx, code, loc.Zip)
		}
		return c.DentalCostByLocation(ctx, code, loc.Lat, loc.Lng)
	default:
		return nil, fmt.Errorf("unknown procedure family %q", family)
	}
}

// requestURL builds the full request URL for path. It fails if no API key is set.
func (c *Client) requestURL(path string) (string, error) {
	if c.apiKey == "" {
		return "", ErrInvalidCredential
	}
	return c.baseURL + path + "?" + apiKeyParameter + "=" + c.apiKey, nil
}

// fetchList requests path and decodes every element of the returned array into a T.
// Errors from the fetcher are returned as is.
func fetchList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	u, err := c.requestURL(path)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("path", path).
		Msg("requesting ECC directory")

	elements, err := c.fetcher.FetchArray(ctx, u)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(elements))
	for i, raw := range elements {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding element %d: %w", i, err)
		}
		results = append(results, v)
	}

	c.logger.Debug().
		Str("path", path).
		Int("count", len(results)).
		Msg("decoded ECC directory response")

	return results, nil
}
