package service

import (
	"database/sql"

	"github.com/hoyun5295-ctrl/targetup/internal/population"
)

// HealthStatus reports the health of the service's dependencies
type HealthStatus struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Queue      string `json:"queue"`
	DataLoaded bool   `json:"data_loaded"`
}

// QueueChecker reports broker connectivity
type QueueChecker interface {
	IsConnected() bool
}

// HealthChecker checks the database, the queue and the population cache
type HealthChecker struct {
	db    *sql.DB
	queue QueueChecker
	pop   *population.Store
}

// NewHealthChecker creates a health checker. queue may be nil.
func NewHealthChecker(db *sql.DB, queue QueueChecker, pop *population.Store) *HealthChecker {
	return &HealthChecker{db: db, queue: queue, pop: pop}
}

// CheckHealth pings every dependency and aggregates the result. The queue
// is optional infrastructure, so a missing broker degrades rather than
// fails the check.
func (h *HealthChecker) CheckHealth() (*HealthStatus, error) {
	status := &HealthStatus{Status: "healthy", Database: "connected", Queue: "connected"}

	if err := h.db.Ping(); err != nil {
		status.Status = "unhealthy"
		status.Database = "disconnected"
	}

	if h.queue == nil || !h.queue.IsConnected() {
		status.Queue = "disconnected"
		if status.Status == "healthy" {
			status.Status = "degraded"
		}
	}

	status.DataLoaded = h.pop != nil && h.pop.Loaded()
	if !status.DataLoaded && status.Status == "healthy" {
		status.Status = "degraded"
	}

	return status, nil
}
