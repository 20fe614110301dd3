// Package models defines the JSON documents served by the status endpoints.
package models

// Stats holds the download counters. It is also the on-disk format of the
// stats file.
type Stats struct {
	TotalDownloads int64 `json:"total_downloads"`
	TotalBytes     int64 `json:"total_bytes"`
}

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDisabled = "disabled"
)

// Health is the body of the health endpoint.
type Health struct {
	Status string `json:"status"`
	// Root is the served directory; empty when serving is disabled.
	Root string `json:"root,omitempty"`
}
