// Package config provides configuration structures and loading for the ECC directory client.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andygrunwald/ecc-directory/internal/models"
)

// Config holds all configuration for the ECC directory client.
type Config struct {
	// ECC API key
	APIKey string
	// PostgreSQL connection string
	PostgresDSN string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// Store the JSON of each recorded estimate in database
	StoreRawResponse bool
	// HTTP server address
	HTTPAddr string
	// Timeout for a single ECC request
	RequestTimeout time.Duration
	// Record hour (0-23)
	RecordHour int
	// Watched lookups, see ParseWatchList
	Watch string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		APIKey:           "",
		PostgresDSN:      "",
		LogLevel:         "info",
		LogFormat:        "json",
		StoreRawResponse: true,
		HTTPAddr:         ":8080",
		RequestTimeout:   30 * time.Second,
		RecordHour:       6,
		Watch:            "",
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("ECC_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("STORE_RAW_RESPONSE"); v != "" {
		c.StoreRawResponse = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("RECORD_HOUR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 && i <= 23 {
			c.RecordHour = i
		}
	}
	if v := os.Getenv("WATCH"); v != "" {
		c.Watch = v
	}
}

// ParseWatchList parses a comma separated list of lookups.
//
// Each entry is family:code:location, where location is either a zip code or
// a coordinate pair written as lat;lng. Example:
//
//	medical:99213:10001,dental:D1110:40.7128;-74.0060
func ParseWatchList(s string) ([]models.Lookup, error) {
	var lookups []models.Lookup
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("watch entry %q: expected family:code:location", entry)
		}

		family, err := models.ParseFamily(parts[0])
		if err != nil {
			return nil, fmt.Errorf("watch entry %q: %w", entry, err)
		}

		code := parts[1]
		if code == "" {
			return nil, fmt.Errorf("watch entry %q: empty code", entry)
		}

		var loc models.Location
		if lat, lng, ok := strings.Cut(parts[2], ";"); ok {
			if lat == "" || lng == "" {
				return nil, fmt.Errorf("watch entry %q: incomplete coordinates", entry)
			}
			loc = models.Location{Lat: lat, Lng: lng}
		} else {
			if parts[2] == "" {
				return nil, fmt.Errorf("watch entry %q: empty location", entry)
			}
			loc = models.Location{Zip: parts[2]}
		}

		lookups = append(lookups, models.Lookup{Family: family, Code: code, Location: loc})
	}
	return lookups, nil
}
