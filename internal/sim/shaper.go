package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goshape/shaper-core/pkg/logger"
)

// pollInterval is the shaper's suspension while the queue is empty or the
// bucket is out of credit. Short enough not to distort sub-millisecond
// serialization timing, long enough not to spin.
const pollInterval = 100 * time.Microsecond

// TrafficShaper is the single consumer on the link. It dequeues the
// highest-priority packet, waits for token credit covering the packet's size,
// models the serialization delay at line rate, then reports the transmission
// to the owning flow. One packet is fully processed before the next starts;
// the link is non-preemptible per packet.
type TrafficShaper struct {
	queue        *PacketQueue
	bucket       *TokenBucket
	linkCapacity uint64 // bits per second

	flows map[int]*Flow

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	packetsTransmitted atomic.Uint64
	bytesTransmitted   atomic.Uint64
}

// NewTrafficShaper creates a shaper for a link of linkCapacity bits per second
func NewTrafficShaper(queue *PacketQueue, bucket *TokenBucket, linkCapacity uint64) (*TrafficShaper, error) {
	if linkCapacity == 0 {
		return nil, fmt.Errorf("link capacity must be positive")
	}
	return &TrafficShaper{
		queue:        queue,
		bucket:       bucket,
		linkCapacity: linkCapacity,
		flows:        make(map[int]*Flow),
	}, nil
}

// RegisterFlow makes the flow's counters reachable for transmission reports.
// Registration is refused while the shaping loop is running; the loop reads
// the flow table without a lock.
func (s *TrafficShaper) RegisterFlow(f *Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		logger.Warn("flow registration ignored on running shaper", "flow_id", f.ID())
		return
	}
	s.flows[f.ID()] = f
}

// LinkCapacity returns the modeled line rate in bits per second
func (s *TrafficShaper) LinkCapacity() uint64 { return s.linkCapacity }

// PacketsTransmitted returns the aggregate transmitted packet count
func (s *TrafficShaper) PacketsTransmitted() uint64 { return s.packetsTransmitted.Load() }

// BytesTransmitted returns the aggregate transmitted byte count
func (s *TrafficShaper) BytesTransmitted() uint64 { return s.bytesTransmitted.Load() }

// Start launches the shaping loop. No-op if already running.
func (s *TrafficShaper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.stopCh)
	logger.Debug("traffic shaper started", "link_capacity_bits", s.linkCapacity)
}

// Stop joins the shaping loop. A packet dequeued but still waiting for credit
// when Stop arrives is abandoned: neither transmitted nor counted as a drop.
// Safe to call repeatedly or before Start. The mutex is held across the join
// so RegisterFlow can never write the flow table while the loop drains.
func (s *TrafficShaper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)

	s.wg.Wait()
	logger.Debug("traffic shaper stopped",
		"packets", s.packetsTransmitted.Load(),
		"bytes", s.bytesTransmitted.Load())
}

func (s *TrafficShaper) run(stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		pkt := s.queue.TryDequeue()
		if pkt == nil {
			// Bounded polling keeps the stop path responsive; a blocking
			// dequeue would pin this goroutine until shutdown.
			if !sleepInterruptible(stop, pollInterval) {
				return
			}
			continue
		}

		for !s.bucket.Consume(uint64(pkt.Size)) {
			if !sleepInterruptible(stop, pollInterval) {
				return
			}
		}

		// Serialization: pushing size*8 bits onto the link at line rate.
		// Independent of the token wait, which models admission control.
		serialization := time.Duration(float64(pkt.Size*8) / float64(s.linkCapacity) * float64(time.Second))
		if !sleepInterruptible(stop, serialization) {
			return
		}

		pkt.MarkTransmitted(time.Now())
		s.packetsTransmitted.Add(1)
		s.bytesTransmitted.Add(uint64(pkt.Size))

		f, ok := s.flows[pkt.FlowID]
		if !ok {
			// Unknown flow id: nothing to report against.
			continue
		}
		if delay, ok := pkt.Delay(); ok {
			f.RecordTransmission(pkt.Size, delay)
		}
	}
}

// sleepInterruptible sleeps for d unless stop closes first, reporting false on
// stop.
func sleepInterruptible(stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
