//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goshape/shaper-core/internal/metrics"
	"github.com/goshape/shaper-core/internal/shaped"
	"github.com/goshape/shaper-core/pkg/config"
)

const daemonScenarioYAML = `
name: integration-short
link_capacity_bits_per_sec: 10000000
token_rate_bytes_per_sec: 200000
bucket_capacity_bytes: 50000
queue_capacity: 100
sample_interval_ms: 20
duration_ms: 300
grace_period_ms: 50
flows:
  - id: 1
    pattern: constant
    target_rate_bytes_per_sec: 100000
    priority: high
    seed: 1
  - id: 2
    pattern: bursty
    target_rate_bytes_per_sec: 80000
    priority: low
    seed: 2
`

// TestDaemonEndToEnd drives a YAML scenario through the HTTP API: start
// a run, wait for completion, then fetch the summary and CSV export.
func TestDaemonEndToEnd(t *testing.T) {
	scenario, err := config.ParseScenarioYAML([]byte(daemonScenarioYAML))
	if err != nil {
		t.Fatalf("parsing scenario: %v", err)
	}

	store := shaped.NewRunStore()
	prom := metrics.NewProm()
	executor := shaped.NewRunExecutor(store, prom)
	srv := httptest.NewServer(shaped.NewHTTPServer(store, executor, prom).Handler())
	defer func() {
		srv.Close()
		executor.Shutdown()
	}()

	body, _ := json.Marshal(map[string]any{"run_id": "it-1", "scenario": scenario})
	resp, err := http.Post(srv.URL+"/v1/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/runs: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Wait for the run to complete.
	var run map[string]any
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/v1/runs/it-1")
		if err != nil {
			t.Fatalf("GET run: %v", err)
		}
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()

		run = out["run"].(map[string]any)
		if status := run["status"].(string); status == "completed" {
			break
		} else if status == "failed" || status == "cancelled" {
			t.Fatalf("run ended with status %s: %v", status, run["error"])
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not complete in time")
		}
		time.Sleep(25 * time.Millisecond)
	}

	summary, ok := run["summary"].(map[string]any)
	if !ok {
		t.Fatal("expected summary on completed run")
	}
	if summary["total_packets_transmitted"].(float64) == 0 {
		t.Fatal("expected transmitted packets in summary")
	}
	flows := summary["flows"].([]any)
	if len(flows) != 2 {
		t.Fatalf("expected 2 flow summaries, got %d", len(flows))
	}

	resp, err = http.Get(srv.URL + "/v1/runs/it-1/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected CSV header plus samples, got %d lines", len(lines))
	}
	wantHeader := "Timestamp,QueueOccupancy,TotalPackets,TotalBytes,AggregateThroughput," +
		"Flow1_Throughput,Flow1_Delay,Flow1_DropRate,Flow2_Throughput,Flow2_Delay,Flow2_DropRate"
	if lines[0] != wantHeader {
		t.Fatalf("unexpected CSV header:\n got %q\nwant %q", lines[0], wantHeader)
	}
}
