package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadScenario loads, parses and validates a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// ParseScenarioYAML parses and validates scenario YAML data
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("yaml unmarshal failed: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

var validPatterns = map[string]bool{
	"constant": true,
	"bursty":   true,
	"poisson":  true,
}

var validPriorities = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

// Validate checks the scenario and fills in documented defaults for unset
// optional fields. Invalid values are never replaced with defaults.
func (s *Scenario) Validate() error {
	if s.LinkCapacityBits == 0 {
		return fmt.Errorf("link_capacity_bits_per_sec must be positive")
	}
	if s.TokenRateBytes == 0 {
		return fmt.Errorf("token_rate_bytes_per_sec must be positive")
	}
	if s.BucketCapacityBytes == 0 {
		return fmt.Errorf("bucket_capacity_bytes must be positive")
	}
	if s.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", s.QueueCapacity)
	}

	if s.SampleIntervalMs == 0 {
		s.SampleIntervalMs = DefaultSampleIntervalMs
	} else if s.SampleIntervalMs < 0 {
		return fmt.Errorf("sample_interval_ms must be positive, got %d", s.SampleIntervalMs)
	}
	if s.DurationMs == 0 {
		s.DurationMs = DefaultDurationMs
	} else if s.DurationMs < 0 {
		return fmt.Errorf("duration_ms must be positive, got %d", s.DurationMs)
	}
	if s.GracePeriodMs == 0 {
		s.GracePeriodMs = DefaultGracePeriodMs
	} else if s.GracePeriodMs < 0 {
		return fmt.Errorf("grace_period_ms must be positive, got %d", s.GracePeriodMs)
	}

	if s.PacketSizes == nil {
		s.PacketSizes = &PacketSizes{
			MinBytes: DefaultMinPacketBytes,
			MaxBytes: DefaultMaxPacketBytes,
			AvgBytes: DefaultAvgPacketBytes,
		}
	} else {
		if s.PacketSizes.MinBytes <= 0 {
			return fmt.Errorf("packet_sizes.min_bytes must be positive, got %d", s.PacketSizes.MinBytes)
		}
		if s.PacketSizes.MaxBytes < s.PacketSizes.MinBytes {
			return fmt.Errorf("packet_sizes.max_bytes must be >= min_bytes, got %d < %d",
				s.PacketSizes.MaxBytes, s.PacketSizes.MinBytes)
		}
		if s.PacketSizes.AvgBytes <= 0 {
			return fmt.Errorf("packet_sizes.avg_bytes must be positive, got %d", s.PacketSizes.AvgBytes)
		}
	}

	if len(s.Flows) == 0 {
		return fmt.Errorf("at least one flow must be defined")
	}
	flowIDs := make(map[int]bool)
	for i := range s.Flows {
		f := &s.Flows[i]
		if flowIDs[f.ID] {
			return fmt.Errorf("duplicate flow id: %d", f.ID)
		}
		flowIDs[f.ID] = true
		if !validPatterns[f.Pattern] {
			return fmt.Errorf("flow %d: invalid pattern: %s (must be constant, bursty, or poisson)", f.ID, f.Pattern)
		}
		if f.TargetRateBytes == 0 {
			return fmt.Errorf("flow %d: target_rate_bytes_per_sec must be positive", f.ID)
		}
		if !validPriorities[f.Priority] {
			return fmt.Errorf("flow %d: invalid priority: %s (must be low, medium, high, or critical)", f.ID, f.Priority)
		}

		if f.BurstProbability == 0 {
			f.BurstProbability = DefaultBurstProbability
		} else if f.BurstProbability < 0 || f.BurstProbability > 1 {
			return fmt.Errorf("flow %d: burst_probability must be between 0 and 1, got %f", f.ID, f.BurstProbability)
		}
		if f.BurstFactor == 0 {
			f.BurstFactor = DefaultBurstFactor
		} else if f.BurstFactor <= 0 {
			return fmt.Errorf("flow %d: burst_factor must be positive, got %f", f.ID, f.BurstFactor)
		}
		if f.IdleFactor == 0 {
			f.IdleFactor = DefaultIdleFactor
		} else if f.IdleFactor <= 0 {
			return fmt.Errorf("flow %d: idle_factor must be positive, got %f", f.ID, f.IdleFactor)
		}
	}

	return nil
}
