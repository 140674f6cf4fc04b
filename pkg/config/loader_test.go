package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
name: basic-shaping
link_capacity_bits_per_sec: 10000000
token_rate_bytes_per_sec: 819200
bucket_capacity_bytes: 102400
queue_capacity: 500
flows:
  - id: 1
    pattern: constant
    target_rate_bytes_per_sec: 409600
    priority: medium
  - id: 2
    pattern: bursty
    target_rate_bytes_per_sec: 409600
    priority: high
  - id: 3
    pattern: poisson
    target_rate_bytes_per_sec: 409600
    priority: low
`

func TestParseScenarioYAML(t *testing.T) {
	scenario, err := ParseScenarioYAML([]byte(validYAML))
	if err != nil {
		t.Fatalf("expected valid scenario, got error: %v", err)
	}
	if scenario.Name != "basic-shaping" {
		t.Errorf("expected name 'basic-shaping', got %s", scenario.Name)
	}
	if scenario.TokenRateBytes != 819200 {
		t.Errorf("expected token rate 819200, got %d", scenario.TokenRateBytes)
	}
	if len(scenario.Flows) != 3 {
		t.Fatalf("expected 3 flows, got %d", len(scenario.Flows))
	}
	if scenario.Flows[1].Pattern != "bursty" {
		t.Errorf("expected flow 2 pattern 'bursty', got %s", scenario.Flows[1].Pattern)
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	scenario, err := ParseScenarioYAML([]byte(validYAML))
	if err != nil {
		t.Fatalf("expected valid scenario, got error: %v", err)
	}
	if scenario.SampleIntervalMs != DefaultSampleIntervalMs {
		t.Errorf("expected default sample interval %d, got %d", DefaultSampleIntervalMs, scenario.SampleIntervalMs)
	}
	if scenario.DurationMs != DefaultDurationMs {
		t.Errorf("expected default duration %d, got %d", DefaultDurationMs, scenario.DurationMs)
	}
	if scenario.GracePeriodMs != DefaultGracePeriodMs {
		t.Errorf("expected default grace period %d, got %d", DefaultGracePeriodMs, scenario.GracePeriodMs)
	}
	if scenario.PacketSizes == nil {
		t.Fatalf("expected default packet sizes to be filled in")
	}
	if scenario.PacketSizes.MinBytes != 64 || scenario.PacketSizes.MaxBytes != 1500 || scenario.PacketSizes.AvgBytes != 500 {
		t.Errorf("unexpected default packet sizes: %+v", scenario.PacketSizes)
	}
	for _, f := range scenario.Flows {
		if f.BurstProbability != DefaultBurstProbability {
			t.Errorf("flow %d: expected default burst probability, got %f", f.ID, f.BurstProbability)
		}
		if f.BurstFactor != DefaultBurstFactor || f.IdleFactor != DefaultIdleFactor {
			t.Errorf("flow %d: expected default burst/idle factors, got %f/%f", f.ID, f.BurstFactor, f.IdleFactor)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"zero link capacity", func(s *Scenario) { s.LinkCapacityBits = 0 }, "link_capacity_bits_per_sec"},
		{"zero token rate", func(s *Scenario) { s.TokenRateBytes = 0 }, "token_rate_bytes_per_sec"},
		{"zero bucket capacity", func(s *Scenario) { s.BucketCapacityBytes = 0 }, "bucket_capacity_bytes"},
		{"zero queue capacity", func(s *Scenario) { s.QueueCapacity = 0 }, "queue_capacity"},
		{"negative queue capacity", func(s *Scenario) { s.QueueCapacity = -5 }, "queue_capacity"},
		{"negative sample interval", func(s *Scenario) { s.SampleIntervalMs = -1 }, "sample_interval_ms"},
		{"negative duration", func(s *Scenario) { s.DurationMs = -1 }, "duration_ms"},
		{"no flows", func(s *Scenario) { s.Flows = nil }, "at least one flow"},
		{"duplicate flow id", func(s *Scenario) { s.Flows[1].ID = s.Flows[0].ID }, "duplicate flow id"},
		{"bad pattern", func(s *Scenario) { s.Flows[0].Pattern = "sawtooth" }, "invalid pattern"},
		{"zero flow rate", func(s *Scenario) { s.Flows[0].TargetRateBytes = 0 }, "target_rate_bytes_per_sec"},
		{"bad priority", func(s *Scenario) { s.Flows[0].Priority = "urgent" }, "invalid priority"},
		{"burst probability above 1", func(s *Scenario) { s.Flows[0].BurstProbability = 1.5 }, "burst_probability"},
		{"negative burst factor", func(s *Scenario) { s.Flows[0].BurstFactor = -2 }, "burst_factor"},
		{"bad packet sizes", func(s *Scenario) {
			s.PacketSizes = &PacketSizes{MinBytes: 1500, MaxBytes: 64, AvgBytes: 500}
		}, "max_bytes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scenario, err := ParseScenarioYAML([]byte(validYAML))
			if err != nil {
				t.Fatalf("base scenario should be valid: %v", err)
			}
			tc.mutate(scenario)
			err = scenario.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestParseScenarioYAMLInvalid(t *testing.T) {
	if _, err := ParseScenarioYAML([]byte("{{not yaml")); err == nil {
		t.Fatalf("expected error for malformed YAML")
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatalf("failed to write temp scenario: %v", err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("expected scenario to load, got error: %v", err)
	}
	if len(scenario.Flows) != 3 {
		t.Errorf("expected 3 flows, got %d", len(scenario.Flows))
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := LoadScenario("/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
