package ecc_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/ecc-directory/internal/api"
	"github.com/andygrunwald/ecc-directory/internal/api/ecc"
	"github.com/andygrunwald/ecc-directory/internal/models"
)

const prefix = "https://api.carepass.com/ecc-directory-api/"

// recordingFetcher remembers the requested URL and replies with a canned response.
type recordingFetcher struct {
	url      string
	calls    int
	response []json.RawMessage
	err      error
}

func (f *recordingFetcher) FetchArray(_ context.Context, url string) ([]json.RawMessage, error) {
	f.url = url
	f.calls++
	return f.response, f.err
}

func raw(t *testing.T, values ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

// call runs one client operation and returns the result length.
type call func(ctx context.Context, c *ecc.Client) (int, error)

func operations() map[string]struct {
	run call
	url string
} {
	return map[string]struct {
		run call
		url string
	}{
		"medical by location": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.MedicalCostByLocation(ctx, "99213", "40.7128", "-74.0060")
				return len(r), err
			},
			url: prefix + "med/99213/40.7128,-74.0060?apikey=ABC123",
		},
		"medical by zip": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.MedicalCostByZip(ctx, "99213", "10001")
				return len(r), err
			},
			url: prefix + "med/99213/zip/10001?apikey=ABC123",
		},
		"medical codes": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.MedicalCodes(ctx)
				return len(r), err
			},
			url: prefix + "med/cpt?apikey=ABC123",
		},
		"dental by location": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.DentalCostByLocation(ctx, "D1110", "34.0522", "-118.2437")
				return len(r), err
			},
			url: prefix + "dental/D1110/34.0522,-118.2437?apikey=ABC123",
		},
		"dental by zip": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.DentalCostByZip(ctx, "D1110", "90001")
				return len(r), err
			},
			url: prefix + "dental/D1110/zip/90001?apikey=ABC123",
		},
		"dental codes": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.DentalCodes(ctx)
				return len(r), err
			},
			url: prefix + "dental/cdt?apikey=ABC123",
		},
		"categories": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.Categories(ctx)
				return len(r), err
			},
			url: prefix + "categories?apikey=ABC123",
		},
		"subcategories": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.Subcategories(ctx, "Surgery")
				return len(r), err
			},
			url: prefix + "categories/Surgery?apikey=ABC123",
		},
		"subcategories of root": {
			run: func(ctx context.Context, c *ecc.Client) (int, error) {
				r, err := c.Subcategories(ctx, "")
				return len(r), err
			},
			url: prefix + "categories/?apikey=ABC123",
		},
	}
}

func TestOperations_InvalidCredential(t *testing.T) {
	for name, op := range operations() {
		t.Run(name, func(t *testing.T) {
			fetcher := api.FetcherFunc(func(context.Context, string) ([]json.RawMessage, error) {
				t.Fatal("fetcher must not be called without an API key")
				return nil, nil
			})
			c := ecc.New("", fetcher, zerolog.Nop())

			n, err := op.run(context.Background(), c)
			assert.ErrorIs(t, err, ecc.ErrInvalidCredential)
			assert.Zero(t, n)
		})
	}
}

func TestOperations_RequestURL(t *testing.T) {
	for name, op := range operations() {
		t.Run(name, func(t *testing.T) {
			f := &recordingFetcher{response: []json.RawMessage{}}
			c := ecc.New("ABC123", f, zerolog.Nop())

			_, err := op.run(context.Background(), c)
			require.NoError(t, err)
			assert.Equal(t, 1, f.calls)
			assert.Equal(t, op.url, f.url)
		})
	}
}

func TestOperations_TransportErrorPropagated(t *testing.T) {
	transportErr := errors.New("connection refused")
	for name, op := range operations() {
		t.Run(name, func(t *testing.T) {
			f := &recordingFetcher{err: transportErr}
			c := ecc.New("ABC123", f, zerolog.Nop())

			n, err := op.run(context.Background(), c)
			assert.Same(t, transportErr, err)
			assert.Zero(t, n)
		})
	}
}

func TestMedicalCostByZip_PreservesOrder(t *testing.T) {
	want := []models.CostCareInformation{
		{Cpt: "99213", Name: "Downtown Clinic", Zip: "10001", Pricing: models.Pricing{Average: 120}},
		{Cpt: "99213", Name: "Uptown Medical", Zip: "10001", Pricing: models.Pricing{Average: 95.5}},
		{Cpt: "99213", Name: "Hudson Physicians", Zip: "10001", Pricing: models.Pricing{Average: 143.25}},
	}
	f := &recordingFetcher{response: raw(t, want[0], want[1], want[2])}
	c := ecc.New("ABC123", f, zerolog.Nop())

	got, err := c.MedicalCostByZip(context.Background(), "99213", "10001")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDentalCodes_EmptyArray(t *testing.T) {
	f := &recordingFetcher{response: []json.RawMessage{}}
	c := ecc.New("ABC123", f, zerolog.Nop())

	got, err := c.DentalCodes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMedicalCodes_DecodeFailureFailsWholeCall(t *testing.T) {
	f := &recordingFetcher{response: []json.RawMessage{
		json.RawMessage(`{"cpt":"99213","shortDescription":"Office visit"}`),
		json.RawMessage(`{"cpt":42}`),
	}}
	c := ecc.New("ABC123", f, zerolog.Nop())

	got, err := c.MedicalCodes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding element 1")
	assert.Nil(t, got)
}

func TestCategories_DecodesStrings(t *testing.T) {
	f := &recordingFetcher{response: raw(t, "Surgery", "Radiology", "Lab")}
	c := ecc.New("ABC123", f, zerolog.Nop())

	got, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{Value: "Surgery"}, {Value: "Radiology"}, {Value: "Lab"}}, got)
}

func TestCost_Dispatch(t *testing.T) {
	tests := []struct {
		name   string
		family models.Family
		loc    models.Location
		url    string
	}{
		{"medical zip", models.FamilyMedical, models.Location{Zip: "10001"}, prefix + "med/99213/zip/10001?apikey=k"},
		{"medical coordinates", models.FamilyMedical, models.Location{Lat: "1.5", Lng: "2.5"}, prefix + "med/99213/1.5,2.5?apikey=k"},
		{"dental zip", models.FamilyDental, models.Location{Zip: "10001"}, prefix + "dental/99213/zip/10001?apikey=k"},
		{"dental coordinates", models.FamilyDental, models.Location{Lat: "1.5", Lng: "2.5"}, prefix + "dental/99213/1.5,2.5?apikey=k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &recordingFetcher{response: []json.RawMessage{}}
			c := ecc.New("k", f, zerolog.Nop())

			_, err := c.Cost(context.Background(), tt.family, "99213", tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.url, f.url)
		})
	}
}

func TestCost_UnknownFamily(t *testing.T) {
	f := &recordingFetcher{}
	c := ecc.New("k", f, zerolog.Nop())

	_, err := c.Cost(context.Background(), models.Family("vision"), "1", models.Location{Zip: "1"})
	assert.Error(t, err)
	assert.Zero(t, f.calls)
}

func TestAPIKey(t *testing.T) {
	c := ecc.New("ABC123", &recordingFetcher{}, zerolog.Nop())
	assert.Equal(t, "ABC123", c.APIKey())
}
