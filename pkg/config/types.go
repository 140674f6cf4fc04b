package config

import "time"

// Defaults applied by Validate when the optional fields are unset.
const (
	DefaultSampleIntervalMs = 100
	DefaultDurationMs       = 10000
	DefaultGracePeriodMs    = 500
	DefaultMinPacketBytes   = 64
	DefaultMaxPacketBytes   = 1500
	DefaultAvgPacketBytes   = 500
	DefaultBurstProbability = 0.3
	DefaultBurstFactor      = 3.0
	DefaultIdleFactor       = 0.5
)

// Scenario describes one shaped link and the flows sharing it.
type Scenario struct {
	Name string `yaml:"name" json:"name"`

	// LinkCapacityBits is the modeled line rate in bits per second.
	LinkCapacityBits uint64 `yaml:"link_capacity_bits_per_sec" json:"link_capacity_bits_per_sec"`
	// TokenRateBytes is the token bucket refill rate in bytes per second.
	TokenRateBytes uint64 `yaml:"token_rate_bytes_per_sec" json:"token_rate_bytes_per_sec"`
	// BucketCapacityBytes is the maximum token credit in bytes.
	BucketCapacityBytes uint64 `yaml:"bucket_capacity_bytes" json:"bucket_capacity_bytes"`
	// QueueCapacity is the maximum number of queued packets.
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`

	// SampleIntervalMs is the statistics sampling interval. Defaults to 100.
	SampleIntervalMs int `yaml:"sample_interval_ms,omitempty" json:"sample_interval_ms,omitempty"`
	// DurationMs is how long the run generates traffic. Defaults to 10000.
	DurationMs int `yaml:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	// GracePeriodMs is the pause between stopping the generators and
	// stopping the shaper, letting queued packets drain. Defaults to 500.
	GracePeriodMs int `yaml:"grace_period_ms,omitempty" json:"grace_period_ms,omitempty"`

	PacketSizes *PacketSizes `yaml:"packet_sizes,omitempty" json:"packet_sizes,omitempty"`

	Flows []FlowSpec `yaml:"flows" json:"flows"`
}

// PacketSizes bounds the uniform packet size draw. AvgBytes feeds the
// inter-arrival interval math.
type PacketSizes struct {
	MinBytes int `yaml:"min_bytes" json:"min_bytes"`
	MaxBytes int `yaml:"max_bytes" json:"max_bytes"`
	AvgBytes int `yaml:"avg_bytes" json:"avg_bytes"`
}

// FlowSpec configures one traffic source.
type FlowSpec struct {
	ID int `yaml:"id" json:"id"`
	// Pattern is one of "constant", "bursty", "poisson".
	Pattern string `yaml:"pattern" json:"pattern"`
	// TargetRateBytes is the flow's offered load in bytes per second.
	TargetRateBytes uint64 `yaml:"target_rate_bytes_per_sec" json:"target_rate_bytes_per_sec"`
	// Priority is one of "low", "medium", "high", "critical".
	Priority string `yaml:"priority" json:"priority"`
	// Seed seeds the flow's random source; 0 means time-based.
	Seed int64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Bursty pattern knobs; zero means "use default" (0.3 / 3.0 / 0.5).
	BurstProbability float64 `yaml:"burst_probability,omitempty" json:"burst_probability,omitempty"`
	BurstFactor      float64 `yaml:"burst_factor,omitempty" json:"burst_factor,omitempty"`
	IdleFactor       float64 `yaml:"idle_factor,omitempty" json:"idle_factor,omitempty"`
}

// SampleInterval returns the sampling interval as a duration.
func (s *Scenario) SampleInterval() time.Duration {
	return time.Duration(s.SampleIntervalMs) * time.Millisecond
}

// Duration returns the traffic generation duration.
func (s *Scenario) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// GracePeriod returns the drain pause between generator and shaper stop.
func (s *Scenario) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodMs) * time.Millisecond
}
