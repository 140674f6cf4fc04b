package models

import "time"

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Run represents one simulation run of a shaped link
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Scenario  string      `json:"scenario,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	StartedAt time.Time   `json:"started_at,omitempty"`
	EndedAt   time.Time   `json:"ended_at,omitempty"`
	Error     string      `json:"error,omitempty"`
	Summary   *RunSummary `json:"summary,omitempty"`
}

// RunSummary is the end-of-run aggregate view, derived from the final
// collector sample.
type RunSummary struct {
	DurationSeconds         float64       `json:"duration_seconds"`
	TotalPacketsTransmitted uint64        `json:"total_packets_transmitted"`
	TotalBytesTransmitted   uint64        `json:"total_bytes_transmitted"`
	AggregateThroughputKBps float64       `json:"aggregate_throughput_kbps"`
	QueueOccupancy          int           `json:"queue_occupancy"`
	Flows                   []FlowSummary `json:"flows"`
}

// FlowSummary is one flow's row of the end-of-run summary
type FlowSummary struct {
	FlowID          int     `json:"flow_id"`
	PacketsSent     uint64  `json:"packets_sent"`
	PacketsDropped  uint64  `json:"packets_dropped"`
	DropRatePercent float64 `json:"drop_rate_percent"`
	ThroughputKBps  float64 `json:"throughput_kbps"`
	AverageDelayMs  float64 `json:"average_delay_ms"`
}
