// Package models provides shared data types for the ECC directory client.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Family is the procedure family an estimate belongs to.
type Family string

const (
	// FamilyMedical covers CPT coded procedures.
	FamilyMedical Family = "medical"
	// FamilyDental covers CDT coded procedures.
	FamilyDental Family = "dental"
)

// ParseFamily converts a user supplied string into a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "medical", "med":
		return FamilyMedical, nil
	case "dental":
		return FamilyDental, nil
	default:
		return "", fmt.Errorf("unknown procedure family %q", s)
	}
}

// Pricing holds the estimated cost range for a procedure.
type Pricing struct {
	Lowest   float64 `json:"lowest"`
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Currency string  `json:"currency"`
}

// CostCareInformation is an estimated cost for a procedure at a location.
type CostCareInformation struct {
	// Cpt is the procedure code the estimate was requested for.
	Cpt         string `json:"cpt"`
	Description string `json:"description"`

	// Name is the provider or facility name.
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	Zip      string  `json:"zip"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"`
	Pricing  Pricing `json:"pricing"`

	// Type is the kind of provider (e.g. "facility", "physician").
	Type string `json:"type"`
}

// Cpt pairs a procedure code with its descriptions.
type Cpt struct {
	Cpt              string `json:"cpt"`
	ShortDescription string `json:"shortDescription"`
	LongDescription  string `json:"longDescription"`
}

// Category is a procedure category name. On the wire it is a bare JSON string.
type Category struct {
	Value string
}

// MarshalJSON encodes the category as a JSON string.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// UnmarshalJSON decodes a JSON string into the category.
func (c *Category) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.Value)
}

func (c Category) String() string {
	return c.Value
}

// Location identifies where an estimate is requested for: either a zip code
// or a coordinate pair. Coordinates are kept as strings and sent verbatim.
type Location struct {
	Zip string
	Lat string
	Lng string
}

// IsZip reports whether the location is a zip code.
func (l Location) IsZip() bool {
	return l.Zip != ""
}

// String returns the location in its path form ("zip/<zip>" or "<lat>,<lng>").
func (l Location) String() string {
	if l.IsZip() {
		return "zip/" + l.Zip
	}
	return l.Lat + "," + l.Lng
}

// Lookup is a single watched cost lookup.
type Lookup struct {
	Family   Family
	Code     string
	Location Location
}

// Key returns a stable identifier for the lookup, used for metrics and status.
func (l Lookup) Key() string {
	return string(l.Family) + ":" + l.Code + ":" + l.Location.String()
}

// Estimate is a cost record as persisted by the recorder.
// One row is stored per lookup, provider name, address, zip and day.
type Estimate struct {
	Family       Family
	Code         string
	Location     string
	ProviderName string
	Address      string
	Zip          string
	Lowest       float64
	Average      float64
	Highest      float64
	Currency     string
	Date         time.Time
	// RecordJSON is the JSON encoding of the decoded CostCareInformation.
	// Fields the server sends beyond that type are not kept.
	RecordJSON []byte
	FetchedAt  time.Time
}

// LookupStatus holds the operational status of a watched lookup.
type LookupStatus struct {
	LastRecordAt       *time.Time `json:"last_record_at"`
	LastRecordSuccess  bool       `json:"last_record_success"`
	LastResponseTimeMs int64      `json:"last_response_time_ms"`
	LastResultCount    int        `json:"last_result_count"`
	LastError          *string    `json:"last_error"`
	TotalRequests      int64      `json:"total_requests"`
	TotalErrors        int64      `json:"total_errors"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status             string                  `json:"status"`
	UptimeSeconds      int64                   `json:"uptime_seconds"`
	SchedulerRunning   bool                    `json:"scheduler_running"`
	NextRunAt          *time.Time              `json:"next_run_at,omitempty"`
	LastScheduledRunAt *time.Time              `json:"last_scheduled_run_at,omitempty"`
	Lookups            map[string]LookupStatus `json:"lookups"`
	Database           DatabaseStatus          `json:"database"`
}

// DatabaseStatus holds the database connection status.
type DatabaseStatus struct {
	Connected            bool  `json:"connected"`
	TotalEstimatesStored int64 `json:"total_estimates_stored"`
}
