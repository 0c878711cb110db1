package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/andygrunwald/ecc-directory/internal/models"
	"github.com/andygrunwald/ecc-directory/internal/recorder"
)

// LookupSource exposes the watched lookups and their metrics.
type LookupSource interface {
	GetLookups() []models.Lookup
	GetMetrics(key string) *recorder.Metrics
}

// ScheduleInfo exposes the scheduler state.
type ScheduleInfo interface {
	IsRunning() bool
	NextRunAt() time.Time
	LastRunAt() *time.Time
}

// DatabaseInfo exposes the database state.
type DatabaseInfo interface {
	Ping() error
	GetTotalEstimatesCount(ctx context.Context) (int64, error)
}

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	lookups   LookupSource
	scheduler ScheduleInfo
	db        DatabaseInfo
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler. sched and db may be nil.
func NewStatusHandler(lookups LookupSource, sched ScheduleInfo, db DatabaseInfo) *StatusHandler {
	return &StatusHandler{
		lookups:   lookups,
		scheduler: sched,
		db:        db,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Lookups:       make(map[string]models.LookupStatus),
	}

	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastScheduledRunAt = h.scheduler.LastRunAt()
		next := h.scheduler.NextRunAt()
		if !next.IsZero() {
			response.NextRunAt = &next
		}
	}

	for _, l := range h.lookups.GetLookups() {
		metrics := h.lookups.GetMetrics(l.Key())
		if metrics == nil {
			continue
		}

		snapshot := metrics.GetSnapshot()
		response.Lookups[l.Key()] = models.LookupStatus{
			LastRecordAt:       snapshot.LastRecordAt,
			LastRecordSuccess:  snapshot.LastRecordSuccess,
			LastResponseTimeMs: snapshot.LastResponseTime.Milliseconds(),
			LastResultCount:    snapshot.LastResultCount,
			LastError:          snapshot.LastError,
			TotalRequests:      snapshot.TotalRequests,
			TotalErrors:        snapshot.TotalErrors,
		}
	}

	response.Database = h.getDatabaseStatus(ctx)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{}

	if h.db == nil {
		return status
	}

	if err := h.db.Ping(); err != nil {
		return status
	}
	status.Connected = true

	count, err := h.db.GetTotalEstimatesCount(ctx)
	if err == nil {
		status.TotalEstimatesStored = count
	}

	return status
}
