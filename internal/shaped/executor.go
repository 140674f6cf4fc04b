package shaped

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goshape/shaper-core/internal/metrics"
	"github.com/goshape/shaper-core/internal/sim"
	"github.com/goshape/shaper-core/pkg/config"
	"github.com/goshape/shaper-core/pkg/logger"
	"github.com/goshape/shaper-core/pkg/models"
	"github.com/goshape/shaper-core/pkg/utils"
)

// RunExecutor builds the shaping pipeline for a scenario and drives it
// through its lifecycle. Runs execute asynchronously; Stop cancels a
// run early and still produces a summary from what was collected.
type RunExecutor struct {
	store *RunStore
	prom  *metrics.Prom

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunExecutor creates an executor backed by the given store. prom may
// be nil when no metrics endpoint is exposed.
func NewRunExecutor(store *RunStore, prom *metrics.Prom) *RunExecutor {
	return &RunExecutor{
		store:   store,
		prom:    prom,
		cancels: make(map[string]context.CancelFunc),
	}
}

// StartRun launches a run in the background and returns immediately
func (e *RunExecutor) StartRun(rec *RunRecord) {
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.cancels[rec.Run.ID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.cancels, rec.Run.ID)
			e.mu.Unlock()
			cancel()
		}()
		e.execute(ctx, rec)
	}()
}

// StopRun cancels a running run. Returns false if the run is not active.
func (e *RunExecutor) StopRun(runID string) bool {
	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Shutdown cancels every active run and waits for them to finish
func (e *RunExecutor) Shutdown() {
	e.mu.Lock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *RunExecutor) execute(ctx context.Context, rec *RunRecord) {
	runID := rec.Run.ID
	scenario := rec.Scenario

	log := logger.With("runId", runID, "scenario", scenario.Name)
	log.Info("starting run",
		"flows", len(scenario.Flows),
		"durationMs", scenario.DurationMs)

	pipe, err := buildPipeline(scenario)
	if err != nil {
		log.Error("pipeline construction failed", "error", err)
		e.store.SetStatus(runID, models.RunStatusFailed, err.Error())
		return
	}

	if e.prom != nil {
		pipe.collector.SetProm(e.prom, runID)
	}
	e.store.SetCollector(runID, pipe.collector)
	e.store.SetStatus(runID, models.RunStatusRunning, "")

	cancelled := pipe.run(ctx, scenario.Duration(), scenario.GracePeriod())

	if summary, ok := pipe.collector.Summary(); ok {
		e.store.SetSummary(runID, &summary)
	}

	if cancelled {
		log.Info("run cancelled")
		e.store.SetStatus(runID, models.RunStatusCancelled, "")
		return
	}
	log.Info("run completed",
		"elapsed", utils.FormatDuration(time.Since(rec.Run.StartedAt)),
		"packetsTransmitted", pipe.shaper.PacketsTransmitted(),
		"bytesTransmitted", pipe.shaper.BytesTransmitted())
	e.store.SetStatus(runID, models.RunStatusCompleted, "")
}

// pipeline holds one run's wired components
type pipeline struct {
	queue     *sim.PacketQueue
	bucket    *sim.TokenBucket
	generator *sim.TrafficGenerator
	shaper    *sim.TrafficShaper
	collector *metrics.Collector
}

// buildPipeline wires queue, bucket, flows, generator, shaper and
// collector from a validated scenario.
func buildPipeline(scenario *config.Scenario) (*pipeline, error) {
	queue, err := sim.NewPacketQueue(scenario.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("creating queue: %w", err)
	}

	bucket, err := sim.NewTokenBucket(scenario.TokenRateBytes, scenario.BucketCapacityBytes)
	if err != nil {
		return nil, fmt.Errorf("creating token bucket: %w", err)
	}

	sizes := sim.SizeRange{
		MinBytes: scenario.PacketSizes.MinBytes,
		MaxBytes: scenario.PacketSizes.MaxBytes,
		AvgBytes: scenario.PacketSizes.AvgBytes,
	}
	generator, err := sim.NewTrafficGenerator(queue, sizes)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	shaper, err := sim.NewTrafficShaper(queue, bucket, scenario.LinkCapacityBits)
	if err != nil {
		return nil, fmt.Errorf("creating shaper: %w", err)
	}

	flows := make([]*sim.Flow, 0, len(scenario.Flows))
	for _, spec := range scenario.Flows {
		pattern, err := sim.ParsePattern(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("flow %d: %w", spec.ID, err)
		}
		priority, err := sim.ParsePriority(spec.Priority)
		if err != nil {
			return nil, fmt.Errorf("flow %d: %w", spec.ID, err)
		}
		flow, err := sim.NewFlow(spec.ID, pattern, spec.TargetRateBytes, priority, spec.Seed)
		if err != nil {
			return nil, fmt.Errorf("flow %d: %w", spec.ID, err)
		}
		if pattern == sim.PatternBursty {
			flow.SetBurstPolicy(sim.BurstPolicy{
				BurstProb:   spec.BurstProbability,
				BurstFactor: spec.BurstFactor,
				IdleFactor:  spec.IdleFactor,
			})
		}
		generator.AddFlow(flow)
		shaper.RegisterFlow(flow)
		flows = append(flows, flow)
	}

	collector, err := metrics.NewCollector(flows, queue, scenario.SampleInterval())
	if err != nil {
		return nil, fmt.Errorf("creating collector: %w", err)
	}
	collector.SetBucket(bucket)

	return &pipeline{
		queue:     queue,
		bucket:    bucket,
		generator: generator,
		shaper:    shaper,
		collector: collector,
	}, nil
}

// run drives the pipeline for the configured duration and tears it down
// in order: generators first, a drain grace period, then shaper,
// collector and finally the queue. Returns true if ctx was cancelled
// before the duration elapsed.
func (p *pipeline) run(ctx context.Context, duration, grace time.Duration) bool {
	p.collector.Start()
	p.shaper.Start()
	p.generator.Start()

	cancelled := false
	select {
	case <-ctx.Done():
		cancelled = true
	case <-time.After(duration):
	}

	p.generator.Stop()
	if !cancelled {
		select {
		case <-ctx.Done():
			cancelled = true
		case <-time.After(grace):
		}
	}
	p.shaper.Stop()
	p.collector.Stop()
	p.queue.Shutdown()

	return cancelled
}
