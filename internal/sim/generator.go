package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/goshape/shaper-core/pkg/logger"
)

// SizeRange bounds the uniform packet size draw. AvgBytes feeds the
// inter-arrival interval math.
type SizeRange struct {
	MinBytes int
	MaxBytes int
	AvgBytes int
}

// DefaultSizeRange returns Ethernet-ish packet size bounds
func DefaultSizeRange() SizeRange {
	return SizeRange{MinBytes: 64, MaxBytes: 1500, AvgBytes: 500}
}

// TrafficGenerator runs one producer goroutine per registered flow. Each loop
// synthesizes a packet, offers it to the queue, records a refusal against the
// flow, then sleeps for the flow's next inter-arrival interval.
type TrafficGenerator struct {
	queue *PacketQueue
	sizes SizeRange

	mu      sync.Mutex
	flows   []*Flow
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewTrafficGenerator creates a generator feeding the given queue
func NewTrafficGenerator(queue *PacketQueue, sizes SizeRange) (*TrafficGenerator, error) {
	if sizes.MinBytes <= 0 {
		return nil, fmt.Errorf("minimum packet size must be positive, got %d", sizes.MinBytes)
	}
	if sizes.MaxBytes < sizes.MinBytes {
		return nil, fmt.Errorf("maximum packet size must be >= minimum, got %d < %d", sizes.MaxBytes, sizes.MinBytes)
	}
	if sizes.AvgBytes <= 0 {
		return nil, fmt.Errorf("average packet size must be positive, got %d", sizes.AvgBytes)
	}
	return &TrafficGenerator{
		queue: queue,
		sizes: sizes,
	}, nil
}

// AddFlow registers a flow. Flows added after Start are picked up on the next
// Start.
func (g *TrafficGenerator) AddFlow(f *Flow) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flows = append(g.flows, f)
}

// Flows returns the registered flows in registration order
func (g *TrafficGenerator) Flows() []*Flow {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Flow, len(g.flows))
	copy(out, g.flows)
	return out
}

// Start launches one generation loop per flow. Calling Start on a running
// generator is a no-op.
func (g *TrafficGenerator) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return
	}
	g.running = true
	g.stopCh = make(chan struct{})

	for _, f := range g.flows {
		f.SetActive(true)
		g.wg.Add(1)
		go g.generate(f, g.stopCh)
	}
	logger.Debug("traffic generator started", "flows", len(g.flows))
}

// Stop deactivates every flow and waits for every generation loop to exit.
// Safe to call repeatedly or before Start.
func (g *TrafficGenerator) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stopCh)
	for _, f := range g.flows {
		f.SetActive(false)
	}
	g.mu.Unlock()

	g.wg.Wait()
	logger.Debug("traffic generator stopped")
}

func (g *TrafficGenerator) generate(f *Flow, stop <-chan struct{}) {
	defer g.wg.Done()

	for f.Active() {
		select {
		case <-stop:
			return
		default:
		}

		p := f.GeneratePacket(g.sizes.MinBytes, g.sizes.MaxBytes)
		if !g.queue.Enqueue(p) {
			f.RecordDrop()
		}

		select {
		case <-stop:
			return
		case <-time.After(f.NextInterval(g.sizes.AvgBytes)):
		}
	}
}
