package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/goshape/shaper-core/internal/sim"
	"github.com/goshape/shaper-core/pkg/logger"
)

// FlowSample is one flow's derived statistics at a sampling instant.
type FlowSample struct {
	FlowID           int     `json:"flow_id"`
	PacketsSent      uint64  `json:"packets_sent"`
	PacketsDropped   uint64  `json:"packets_dropped"`
	BytesTransmitted uint64  `json:"bytes_transmitted"`
	AverageDelayMs   float64 `json:"average_delay_ms"`
	ThroughputBps    float64 `json:"throughput_bytes_per_sec"`
	DropRate         float64 `json:"drop_rate"`
}

// Sample is one row of the time series: link-level state plus one FlowSample
// per flow in registration order.
type Sample struct {
	Timestamp               float64      `json:"timestamp_sec"`
	QueueOccupancy          int          `json:"queue_occupancy"`
	TotalPacketsTransmitted uint64       `json:"total_packets_transmitted"`
	TotalBytesTransmitted   uint64       `json:"total_bytes_transmitted"`
	AggregateThroughputBps  float64      `json:"aggregate_throughput_bytes_per_sec"`
	Flows                   []FlowSample `json:"flows"`
}

// Collector periodically snapshots queue occupancy and every flow's counters,
// derives throughput, drop rate and average delay, and appends the result to
// an append-only in-memory history.
//
// The collector only reads the shared atomics; it never synchronizes with the
// writers, so fields inside one sample may come from instants a few counter
// updates apart. That skew is bounded by the sampling interval and accepted.
type Collector struct {
	flows    []*sim.Flow
	queue    *sim.PacketQueue
	bucket   *sim.TokenBucket // optional, read-only probe
	interval time.Duration

	// optional live gauges, labeled with promRunID
	prom      *Prom
	promRunID string

	mu        sync.RWMutex
	history   []Sample
	startTime time.Time

	lifecycleMu sync.Mutex
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewCollector creates a collector sampling the given flows (in registration
// order) and queue every interval.
func NewCollector(flows []*sim.Flow, queue *sim.PacketQueue, interval time.Duration) (*Collector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %v", interval)
	}
	return &Collector{
		flows:    flows,
		queue:    queue,
		interval: interval,
	}, nil
}

// SetBucket attaches a token bucket for credit observability. Set before
// Start.
func (c *Collector) SetBucket(b *sim.TokenBucket) {
	c.bucket = b
}

// SetProm attaches live prometheus gauges updated on every sample, labeled
// with the given run id. Set before Start.
func (c *Collector) SetProm(p *Prom, runID string) {
	c.prom = p
	c.promRunID = runID
}

// Start pins the time origin and launches the sampling loop. No-op if already
// running.
func (c *Collector) Start() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})

	c.mu.Lock()
	c.startTime = time.Now()
	c.mu.Unlock()

	c.wg.Add(1)
	go c.collect(c.stopCh)
	logger.Debug("statistics collector started", "interval", c.interval)
}

// Stop joins the sampling loop. Safe to call repeatedly or before Start.
func (c *Collector) Stop() {
	c.lifecycleMu.Lock()
	if !c.running {
		c.lifecycleMu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.lifecycleMu.Unlock()

	c.wg.Wait()
	logger.Debug("statistics collector stopped", "samples", c.SampleCount())
}

func (c *Collector) collect(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			c.sample(now)
		}
	}
}

// sample takes one snapshot and appends it to the history.
func (c *Collector) sample(now time.Time) {
	c.mu.Lock()
	elapsed := now.Sub(c.startTime).Seconds()
	c.mu.Unlock()

	s := Sample{
		Timestamp:      elapsed,
		QueueOccupancy: c.queue.Len(),
		Flows:          make([]FlowSample, 0, len(c.flows)),
	}

	var totalBytes, totalPackets uint64
	for _, f := range c.flows {
		fs := FlowSample{
			FlowID:           f.ID(),
			PacketsSent:      f.PacketsSent(),
			PacketsDropped:   f.PacketsDropped(),
			BytesTransmitted: f.BytesTransmitted(),
			AverageDelayMs:   f.AverageDelay(),
		}
		if elapsed > 0 {
			fs.ThroughputBps = float64(fs.BytesTransmitted) / elapsed
		}
		if fs.PacketsSent > 0 {
			fs.DropRate = float64(fs.PacketsDropped) / float64(fs.PacketsSent)
		}
		s.Flows = append(s.Flows, fs)

		totalBytes += fs.BytesTransmitted
		totalPackets += fs.PacketsSent - fs.PacketsDropped
	}

	s.TotalBytesTransmitted = totalBytes
	s.TotalPacketsTransmitted = totalPackets
	if elapsed > 0 {
		s.AggregateThroughputBps = float64(totalBytes) / elapsed
	}

	c.mu.Lock()
	c.history = append(c.history, s)
	c.mu.Unlock()

	if c.prom != nil {
		var credit uint64
		if c.bucket != nil {
			credit = c.bucket.Peek()
		}
		c.prom.Observe(c.promRunID, s, credit)
	}
}

// History returns a copy of the collected samples
func (c *Collector) History() []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Sample, len(c.history))
	copy(out, c.history)
	return out
}

// Latest returns the most recent sample, if any
func (c *Collector) Latest() (Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.history) == 0 {
		return Sample{}, false
	}
	return c.history[len(c.history)-1], true
}

// SampleCount returns the number of collected samples
func (c *Collector) SampleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

// Flows returns the observed flows in registration order
func (c *Collector) Flows() []*sim.Flow {
	return c.flows
}
