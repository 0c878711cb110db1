// Package recorder provides orchestration for recording cost estimates of watched lookups.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

// CostClient retrieves cost estimates from the ECC directory.
type CostClient interface {
	Cost(ctx context.Context, family models.Family, code string, loc models.Location) ([]models.CostCareInformation, error)
}

// Store persists cost estimates.
type Store interface {
	ExistsForDate(ctx context.Context, e models.Estimate) (bool, error)
	InsertEstimate(ctx context.Context, e models.Estimate, storeRecordJSON bool) error
}

// PrometheusMetrics receives recording metrics.
type PrometheusMetrics interface {
	RecordLastRecord(lookup string, timestamp float64)
	RecordEstimatesReturned(lookup string, count float64)
	RecordDBOperation(operation, status string)
}

// Metrics holds recording metrics for a lookup.
type Metrics struct {
	mu                sync.RWMutex
	TotalRequests     int64
	TotalErrors       int64
	LastRecordAt      *time.Time
	LastRecordSuccess bool
	LastResponseTime  time.Duration
	LastResultCount   int
	LastError         *string
}

// GetSnapshot returns a thread-safe snapshot of the metrics.
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		TotalRequests:     m.TotalRequests,
		TotalErrors:       m.TotalErrors,
		LastRecordAt:      m.LastRecordAt,
		LastRecordSuccess: m.LastRecordSuccess,
		LastResponseTime:  m.LastResponseTime,
		LastResultCount:   m.LastResultCount,
		LastError:         m.LastError,
	}
}

// MetricsSnapshot is a thread-safe copy of Metrics data.
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	LastRecordAt      *time.Time
	LastRecordSuccess bool
	LastResponseTime  time.Duration
	LastResultCount   int
	LastError         *string
}

// Recorder fetches watched lookups and stores the returned estimates.
type Recorder struct {
	client          CostClient
	store           Store
	storeRecordJSON bool
	logger          zerolog.Logger
	now             func() time.Time

	mu            sync.RWMutex
	lookups       []models.Lookup
	lookupMetrics map[string]*Metrics
	prom          PrometheusMetrics
}

// New creates a new Recorder.
func New(client CostClient, store Store, storeRecordJSON bool, logger zerolog.Logger) *Recorder {
	return &Recorder{
		client:          client,
		store:           store,
		storeRecordJSON: storeRecordJSON,
		logger:          logger.With().Str("component", "recorder").Logger(),
		now:             time.Now,
		lookupMetrics:   make(map[string]*Metrics),
	}
}

// Watch adds a lookup to the watch list. Adding the same lookup twice has no effect.
func (r *Recorder) Watch(l models.Lookup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lookupMetrics[l.Key()]; ok {
		return
	}
	r.lookups = append(r.lookups, l)
	r.lookupMetrics[l.Key()] = &Metrics{}
}

// SetPrometheusMetrics wires Prometheus metrics into the recorder.
func (r *Recorder) SetPrometheusMetrics(m PrometheusMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prom = m
}

// GetLookups returns all watched lookups in the order they were added.
func (r *Recorder) GetLookups() []models.Lookup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lookups := make([]models.Lookup, len(r.lookups))
	copy(lookups, r.lookups)
	return lookups
}

// GetMetrics returns the metrics for a lookup key.
func (r *Recorder) GetMetrics(key string) *Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupMetrics[key]
}

// RecordAll records every watched lookup. Failures are logged and do not stop the run.
func (r *Recorder) RecordAll(ctx context.Context) error {
	for _, l := range r.GetLookups() {
		if err := r.RecordLookup(ctx, l); err != nil {
			r.logger.Error().
				Err(err).
				Str("lookup", l.Key()).
				Msg("failed to record lookup")
		}
	}
	return nil
}

// RecordLookup fetches a single lookup and stores the returned estimates.
func (r *Recorder) RecordLookup(ctx context.Context, l models.Lookup) error {
	key := l.Key()

	r.mu.RLock()
	metrics, ok := r.lookupMetrics[key]
	prom := r.prom
	r.mu.RUnlock()

	if !ok {
		r.Watch(l)
		metrics = r.GetMetrics(key)
	}

	r.logger.Info().Str("lookup", key).Msg("recording lookup")

	start := r.now()
	metrics.mu.Lock()
	metrics.TotalRequests++
	metrics.mu.Unlock()

	results, err := r.client.Cost(ctx, l.Family, l.Code, l.Location)
	now := r.now()
	duration := now.Sub(start)

	metrics.mu.Lock()
	metrics.LastRecordAt = &now
	metrics.LastResponseTime = duration
	if err != nil {
		metrics.TotalErrors++
		metrics.LastRecordSuccess = false
		errStr := err.Error()
		metrics.LastError = &errStr
	} else {
		metrics.LastRecordSuccess = true
		metrics.LastError = nil
		metrics.LastResultCount = len(results)
	}
	metrics.mu.Unlock()

	if err != nil {
		r.logger.Error().
			Err(err).
			Str("lookup", key).
			Dur("duration", duration).
			Msg("failed to fetch estimates")
		return err
	}

	if prom != nil {
		prom.RecordLastRecord(key, float64(now.Unix()))
		prom.RecordEstimatesReturned(key, float64(len(results)))
	}

	r.logger.Info().
		Str("lookup", key).
		Int("count", len(results)).
		Dur("duration", duration).
		Msg("fetched estimates")

	utc := now.UTC()
	today := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	inserted, skipped := 0, 0
	for _, info := range results {
		e, err := toEstimate(l, info, today, now)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("lookup", key).
				Str("provider_name", info.Name).
				Msg("failed to encode estimate, skipping")
			continue
		}

		exists, err := r.store.ExistsForDate(ctx, e)
		if err != nil {
			recordDB(prom, "exists", "error")
			r.logger.Error().
				Err(err).
				Str("lookup", key).
				Str("provider_name", e.ProviderName).
				Msg("failed to check existence")
			continue
		}
		recordDB(prom, "exists", "success")

		if exists {
			skipped++
			r.logger.Debug().
				Str("lookup", key).
				Str("provider_name", e.ProviderName).
				Str("address", e.Address).
				Msg("estimate already exists, skipping")
			continue
		}

		if err := r.store.InsertEstimate(ctx, e, r.storeRecordJSON); err != nil {
			recordDB(prom, "insert", "error")
			r.logger.Error().
				Err(err).
				Str("lookup", key).
				Str("provider_name", e.ProviderName).
				Msg("failed to insert estimate")
			continue
		}
		recordDB(prom, "insert", "success")
		inserted++
	}

	r.logger.Info().
		Str("lookup", key).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("recorded lookup")

	return nil
}

func recordDB(prom PrometheusMetrics, operation, status string) {
	if prom != nil {
		prom.RecordDBOperation(operation, status)
	}
}

func toEstimate(l models.Lookup, info models.CostCareInformation, date, fetchedAt time.Time) (models.Estimate, error) {
	record, err := json.Marshal(info)
	if err != nil {
		return models.Estimate{}, fmt.Errorf("encoding record: %w", err)
	}
	return models.Estimate{
		Family:       l.Family,
		Code:         l.Code,
		Location:     l.Location.String(),
		ProviderName: info.Name,
		Address:      info.Address,
		Zip:          info.Zip,
		Lowest:       info.Pricing.Lowest,
		Average:      info.Pricing.Average,
		Highest:      info.Pricing.Highest,
		Currency:     info.Pricing.Currency,
		Date:         date,
		RecordJSON:   record,
		FetchedAt:    fetchedAt,
	}, nil
}
