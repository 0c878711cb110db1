package recorder

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

type fakeClient struct {
	results map[string][]models.CostCareInformation
	errs    map[string]error
	calls   []string
}

func (c *fakeClient) Cost(_ context.Context, family models.Family, code string, loc models.Location) ([]models.CostCareInformation, error) {
	key := models.Lookup{Family: family, Code: code, Location: loc}.Key()
	c.calls = append(c.calls, key)
	if err := c.errs[key]; err != nil {
		return nil, err
	}
	return c.results[key], nil
}

type fakeStore struct {
	existing  map[string]bool
	inserted  []models.Estimate
	jsonFlags []bool
	failOn    string
}

// storeKey mirrors the unique constraint of the cost_estimates table.
func storeKey(e models.Estimate) string {
	return strings.Join([]string{string(e.Family), e.Code, e.Location, e.ProviderName, e.Address, e.Zip, e.Date.Format("2006-01-02")}, "|")
}

func (s *fakeStore) ExistsForDate(_ context.Context, e models.Estimate) (bool, error) {
	return s.existing[storeKey(e)], nil
}

func (s *fakeStore) InsertEstimate(_ context.Context, e models.Estimate, storeRecordJSON bool) error {
	if e.ProviderName == s.failOn {
		return errors.New("insert failed")
	}
	if s.existing == nil {
		s.existing = map[string]bool{}
	}
	s.existing[storeKey(e)] = true
	s.inserted = append(s.inserted, e)
	s.jsonFlags = append(s.jsonFlags, storeRecordJSON)
	return nil
}

type fakeProm struct {
	lastRecord map[string]float64
	returned   map[string]float64
	dbOps      map[string]int
}

func newFakeProm() *fakeProm {
	return &fakeProm{lastRecord: map[string]float64{}, returned: map[string]float64{}, dbOps: map[string]int{}}
}

func (p *fakeProm) RecordLastRecord(lookup string, ts float64)       { p.lastRecord[lookup] = ts }
func (p *fakeProm) RecordEstimatesReturned(lookup string, n float64) { p.returned[lookup] = n }
func (p *fakeProm) RecordDBOperation(op, status string)              { p.dbOps[op+"/"+status]++ }

var (
	zipLookup    = models.Lookup{Family: models.FamilyMedical, Code: "99213", Location: models.Location{Zip: "10001"}}
	coordsLookup = models.Lookup{Family: models.FamilyDental, Code: "D1110", Location: models.Location{Lat: "40.7", Lng: "-74.0"}}
)

func fixedNow() time.Time {
	return time.Date(2026, 10, 14, 6, 30, 0, 0, time.UTC)
}

func TestRecordLookup_StoresNewEstimates(t *testing.T) {
	client := &fakeClient{results: map[string][]models.CostCareInformation{
		zipLookup.Key(): {
			{Cpt: "99213", Name: "Downtown Clinic", Zip: "10001", Pricing: models.Pricing{Lowest: 80, Average: 120, Highest: 210, Currency: "USD"}},
			{Cpt: "99213", Name: "Uptown Medical", Zip: "10001", Pricing: models.Pricing{Average: 95}},
		},
	}}
	store := &fakeStore{existing: map[string]bool{
		"medical|99213|zip/10001|Uptown Medical||10001|2026-10-14": true,
	}}
	prom := newFakeProm()

	r := New(client, store, true, zerolog.Nop())
	r.now = fixedNow
	r.SetPrometheusMetrics(prom)
	r.Watch(zipLookup)

	require.NoError(t, r.RecordLookup(context.Background(), zipLookup))

	require.Len(t, store.inserted, 1)
	e := store.inserted[0]
	assert.Equal(t, models.FamilyMedical, e.Family)
	assert.Equal(t, "99213", e.Code)
	assert.Equal(t, "zip/10001", e.Location)
	assert.Equal(t, "Downtown Clinic", e.ProviderName)
	assert.Equal(t, 120.0, e.Average)
	assert.Equal(t, "USD", e.Currency)
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), e.Date)
	assert.JSONEq(t, `{"cpt":"99213","description":"","name":"Downtown Clinic","address":"","city":"","state":"","zip":"10001","lat":0,"lng":0,"distance":0,"pricing":{"lowest":80,"average":120,"highest":210,"currency":"USD"},"type":""}`, string(e.RecordJSON))
	assert.Equal(t, []bool{true}, store.jsonFlags)

	snap := r.GetMetrics(zipLookup.Key()).GetSnapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Zero(t, snap.TotalErrors)
	assert.True(t, snap.LastRecordSuccess)
	assert.Equal(t, 2, snap.LastResultCount)
	assert.Nil(t, snap.LastError)

	assert.Equal(t, 2.0, prom.returned[zipLookup.Key()])
	assert.Equal(t, float64(fixedNow().Unix()), prom.lastRecord[zipLookup.Key()])
	assert.Equal(t, 2, prom.dbOps["exists/success"])
	assert.Equal(t, 1, prom.dbOps["insert/success"])
}

func TestRecordLookup_FetchError(t *testing.T) {
	fetchErr := errors.New("unexpected status code 500")
	client := &fakeClient{errs: map[string]error{zipLookup.Key(): fetchErr}}
	store := &fakeStore{}

	r := New(client, store, false, zerolog.Nop())
	r.Watch(zipLookup)

	err := r.RecordLookup(context.Background(), zipLookup)
	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, store.inserted)

	snap := r.GetMetrics(zipLookup.Key()).GetSnapshot()
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.False(t, snap.LastRecordSuccess)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, fetchErr.Error(), *snap.LastError)
}

func TestRecordLookup_UnwatchedLookupIsAdded(t *testing.T) {
	r := New(&fakeClient{}, &fakeStore{}, true, zerolog.Nop())

	require.NoError(t, r.RecordLookup(context.Background(), coordsLookup))
	assert.Equal(t, []models.Lookup{coordsLookup}, r.GetLookups())
	assert.NotNil(t, r.GetMetrics(coordsLookup.Key()))
}

func TestRecordAll_ContinuesAfterFailure(t *testing.T) {
	client := &fakeClient{
		errs: map[string]error{zipLookup.Key(): errors.New("boom")},
		results: map[string][]models.CostCareInformation{
			coordsLookup.Key(): {{Cpt: "D1110", Name: "Smile Dental"}, {Cpt: "D1110", Name: "Broken Dental"}},
		},
	}
	store := &fakeStore{failOn: "Broken Dental"}

	r := New(client, store, true, zerolog.Nop())
	r.Watch(zipLookup)
	r.Watch(coordsLookup)
	r.Watch(zipLookup)

	require.NoError(t, r.RecordAll(context.Background()))
	assert.Equal(t, []string{zipLookup.Key(), coordsLookup.Key()}, client.calls)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Smile Dental", store.inserted[0].ProviderName)
	assert.Equal(t, "40.7,-74.0", store.inserted[0].Location)
}

func TestRecordLookup_SameNameAtDifferentAddresses(t *testing.T) {
	client := &fakeClient{results: map[string][]models.CostCareInformation{
		zipLookup.Key(): {
			{Cpt: "99213", Name: "CityMD", Address: "1 Main St", Zip: "10001", Pricing: models.Pricing{Average: 110}},
			{Cpt: "99213", Name: "CityMD", Address: "99 Broadway", Zip: "10001", Pricing: models.Pricing{Average: 130}},
			{Cpt: "99213", Name: "CityMD", Address: "1 Main St", Zip: "10001", Pricing: models.Pricing{Average: 110}},
		},
	}}
	store := &fakeStore{}

	r := New(client, store, true, zerolog.Nop())
	r.now = fixedNow

	require.NoError(t, r.RecordLookup(context.Background(), zipLookup))

	require.Len(t, store.inserted, 2)
	assert.Equal(t, "1 Main St", store.inserted[0].Address)
	assert.Equal(t, 110.0, store.inserted[0].Average)
	assert.Equal(t, "99 Broadway", store.inserted[1].Address)
	assert.Equal(t, 130.0, store.inserted[1].Average)
}

func TestRecordLookup_SkipsRecordThatCannotBeEncoded(t *testing.T) {
	client := &fakeClient{results: map[string][]models.CostCareInformation{
		zipLookup.Key(): {
			{Cpt: "99213", Name: "Broken Pricing", Pricing: models.Pricing{Average: math.NaN()}},
			{Cpt: "99213", Name: "Downtown Clinic", Pricing: models.Pricing{Average: 120}},
		},
	}}
	store := &fakeStore{}

	r := New(client, store, true, zerolog.Nop())

	require.NoError(t, r.RecordLookup(context.Background(), zipLookup))
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Downtown Clinic", store.inserted[0].ProviderName)
	assert.NotEmpty(t, store.inserted[0].RecordJSON)
}

func TestRecordLookup_EstimateDateUsesUTCDay(t *testing.T) {
	client := &fakeClient{results: map[string][]models.CostCareInformation{
		zipLookup.Key(): {{Cpt: "99213", Name: "Downtown Clinic"}},
	}}
	store := &fakeStore{}

	newYork := time.FixedZone("EST", -5*60*60)
	r := New(client, store, true, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 10, 14, 23, 30, 0, 0, newYork) }

	require.NoError(t, r.RecordLookup(context.Background(), zipLookup))
	require.Len(t, store.inserted, 1)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), store.inserted[0].Date)
}
