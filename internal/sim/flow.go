package sim

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goshape/shaper-core/pkg/utils"
)

// Pattern selects how a flow spaces its packets
type Pattern string

const (
	PatternConstant Pattern = "constant"
	PatternBursty   Pattern = "bursty"
	PatternPoisson  Pattern = "poisson"
)

// ParsePattern converts a pattern name to a Pattern
func ParsePattern(s string) (Pattern, error) {
	switch Pattern(s) {
	case PatternConstant, PatternBursty, PatternPoisson:
		return Pattern(s), nil
	default:
		return "", fmt.Errorf("invalid pattern: %s (must be constant, bursty, or poisson)", s)
	}
}

// BurstPolicy tunes the bursty pattern: with probability BurstProb a packet is
// spaced as if the flow ran at BurstFactor times its target rate, otherwise at
// IdleFactor times. Each draw is independent.
type BurstPolicy struct {
	BurstProb   float64
	BurstFactor float64
	IdleFactor  float64
}

// DefaultBurstPolicy returns the stock 30% burst / 70% idle split
func DefaultBurstPolicy() BurstPolicy {
	return BurstPolicy{BurstProb: 0.3, BurstFactor: 3.0, IdleFactor: 0.5}
}

// Flow is a single traffic source with its own arrival pattern, target rate,
// priority and statistics.
//
// Counters are written from two goroutines: the generator increments sent and
// dropped, the shaper adds transmitted bytes and delay. Each counter is an
// independent atomic, so a reader sampling several counters may see values
// from slightly different instants; the collector tolerates that. Delay is
// accumulated in integer microseconds to keep the add atomic.
type Flow struct {
	id         int
	pattern    Pattern
	targetRate uint64 // bytes per second
	priority   Priority
	burst      BurstPolicy

	active atomic.Bool

	packetsSent      atomic.Uint64
	packetsDropped   atomic.Uint64
	bytesTransmitted atomic.Uint64
	totalDelayMicros atomic.Int64

	// rng is used only by the generator goroutine that owns this flow.
	rng *utils.RandSource
}

// NewFlow creates an active flow. targetRate is in bytes per second and must
// be positive. seed 0 selects a time-based seed.
func NewFlow(id int, pattern Pattern, targetRate uint64, priority Priority, seed int64) (*Flow, error) {
	if _, err := ParsePattern(string(pattern)); err != nil {
		return nil, fmt.Errorf("flow %d: %w", id, err)
	}
	if targetRate == 0 {
		return nil, fmt.Errorf("flow %d: target rate must be positive", id)
	}
	f := &Flow{
		id:         id,
		pattern:    pattern,
		targetRate: targetRate,
		priority:   priority,
		burst:      DefaultBurstPolicy(),
		rng:        utils.NewRandSource(seed),
	}
	f.active.Store(true)
	return f, nil
}

// SetBurstPolicy overrides the bursty pattern knobs
func (f *Flow) SetBurstPolicy(p BurstPolicy) {
	f.burst = p
}

// ID returns the flow's unique id
func (f *Flow) ID() int { return f.id }

// Pattern returns the flow's arrival pattern
func (f *Flow) Pattern() Pattern { return f.pattern }

// TargetRate returns the flow's offered load in bytes per second
func (f *Flow) TargetRate() uint64 { return f.targetRate }

// Priority returns the priority stamped on the flow's packets
func (f *Flow) Priority() Priority { return f.priority }

// Active reports whether the flow should keep generating packets
func (f *Flow) Active() bool { return f.active.Load() }

// SetActive flips the flow's active flag
func (f *Flow) SetActive(active bool) { f.active.Store(active) }

// GeneratePacket synthesizes the flow's next packet with a uniform size in
// [minSize, maxSize]. The sent counter is incremented unconditionally; a later
// queue refusal is recorded separately via RecordDrop.
func (f *Flow) GeneratePacket(minSize, maxSize int) *Packet {
	f.packetsSent.Add(1)
	size := f.rng.IntRange(minSize, maxSize)
	return NewPacket(f.id, size, f.priority)
}

// NextInterval returns the gap before the flow's next packet, for a given
// average packet size in bytes.
func (f *Flow) NextInterval(avgPacketSize int) time.Duration {
	switch f.pattern {
	case PatternBursty:
		rate := float64(f.targetRate) * f.burst.IdleFactor
		if f.rng.BernoulliBool(f.burst.BurstProb) {
			rate = float64(f.targetRate) * f.burst.BurstFactor
		}
		return rateInterval(avgPacketSize, rate)
	case PatternPoisson:
		lambda := float64(f.targetRate) / float64(avgPacketSize)
		seconds := f.rng.ExpFloat64(lambda)
		return time.Duration(seconds * float64(time.Second))
	default: // constant
		return rateInterval(avgPacketSize, float64(f.targetRate))
	}
}

// rateInterval is the deterministic spacing for one packet of avgSize bytes at
// rate bytes per second.
func rateInterval(avgSize int, rate float64) time.Duration {
	return time.Duration(float64(avgSize) / rate * float64(time.Second))
}

// RecordDrop counts one packet refused by the queue
func (f *Flow) RecordDrop() {
	f.packetsDropped.Add(1)
}

// RecordTransmission accounts one transmitted packet. Called by the shaper
// exactly once per packet that made it onto the link.
func (f *Flow) RecordTransmission(bytes int, delay time.Duration) {
	f.bytesTransmitted.Add(uint64(bytes))
	f.totalDelayMicros.Add(delay.Microseconds())
}

// PacketsSent returns the number of packets generated so far
func (f *Flow) PacketsSent() uint64 { return f.packetsSent.Load() }

// PacketsDropped returns the number of packets refused by the queue
func (f *Flow) PacketsDropped() uint64 { return f.packetsDropped.Load() }

// BytesTransmitted returns the bytes that made it onto the link
func (f *Flow) BytesTransmitted() uint64 { return f.bytesTransmitted.Load() }

// AverageDelay returns the mean creation-to-transmission delay in
// milliseconds, or 0 before the first transmission.
func (f *Flow) AverageDelay() float64 {
	sent := f.packetsSent.Load()
	dropped := f.packetsDropped.Load()
	if sent <= dropped {
		return 0
	}
	transmitted := sent - dropped
	return float64(f.totalDelayMicros.Load()) / 1000.0 / float64(transmitted)
}
