package sim

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders packets in the queue. Higher values dequeue first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the lower-case priority name
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority converts a priority name to a Priority
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return 0, fmt.Errorf("invalid priority: %s (must be low, medium, high, or critical)", s)
	}
}

// Packet is one unit of traffic. A flow creates it, the queue holds it, the
// shaper consumes it; ownership moves along that path and the packet is never
// touched by two goroutines at once.
type Packet struct {
	FlowID    int
	Size      int // bytes
	Priority  Priority
	CreatedAt time.Time

	// TransmittedAt stays zero until the shaper puts the packet on the link.
	TransmittedAt time.Time
	Dropped       bool

	// seq is the queue admission order, the final ordering tie-break.
	seq uint64
}

// NewPacket creates a packet stamped with the current time
func NewPacket(flowID, size int, priority Priority) *Packet {
	return &Packet{
		FlowID:    flowID,
		Size:      size,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
}

// MarkTransmitted stamps the transmission time. The stamp is applied at most
// once and never on a dropped packet; it reports whether the stamp was applied.
func (p *Packet) MarkTransmitted(t time.Time) bool {
	if p.Dropped || !p.TransmittedAt.IsZero() {
		return false
	}
	p.TransmittedAt = t
	return true
}

// MarkDropped flags the packet as dropped
func (p *Packet) MarkDropped() {
	p.Dropped = true
}

// Delay returns the creation-to-transmission delay. ok is false until the
// packet has been transmitted.
func (p *Packet) Delay() (d time.Duration, ok bool) {
	if p.Dropped || p.TransmittedAt.IsZero() {
		return 0, false
	}
	return p.TransmittedAt.Sub(p.CreatedAt), true
}
