package sim

import (
	"container/heap"
	"fmt"
	"sync"
)

// PacketQueue is the bounded, priority-ordered buffer between the generators
// and the shaper. Admission is strict tail-drop: a full queue refuses the new
// packet and never evicts a queued one.
//
// Dequeue order is priority descending, then creation time ascending, then
// admission order, which makes the ordering strict even when two packets carry
// identical timestamps.
type PacketQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	packets  packetHeap
	capacity int
	dropped  uint64
	nextSeq  uint64
	shutdown bool
}

// NewPacketQueue creates a queue holding at most capacity packets
func NewPacketQueue(capacity int) (*PacketQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", capacity)
	}
	q := &PacketQueue{
		packets:  make(packetHeap, 0, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Enqueue admits the packet if there is room, returning false and counting a
// queue-level drop otherwise. The caller records the drop against the owning
// flow. Enqueue never blocks.
func (q *PacketQueue) Enqueue(p *Packet) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.packets) >= q.capacity {
		q.dropped++
		return false
	}

	p.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.packets, p)
	q.notEmpty.Signal()
	return true
}

// Dequeue removes the highest-priority packet, waiting until one is available.
// After Shutdown it keeps draining queued packets and returns nil once empty.
func (q *PacketQueue) Dequeue() *Packet {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.packets) == 0 && !q.shutdown {
		q.notEmpty.Wait()
	}
	if len(q.packets) == 0 {
		return nil
	}
	return heap.Pop(&q.packets).(*Packet)
}

// TryDequeue removes the highest-priority packet without blocking, returning
// nil when the queue is empty.
func (q *PacketQueue) TryDequeue() *Packet {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.packets) == 0 {
		return nil
	}
	return heap.Pop(&q.packets).(*Packet)
}

// Len returns the current occupancy
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}

// Capacity returns the maximum occupancy
func (q *PacketQueue) Capacity() int { return q.capacity }

// TotalDropped returns the number of packets refused at admission. This is a
// queue-level total, distinct from the per-flow drop counters.
func (q *PacketQueue) TotalDropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Shutdown wakes every blocked dequeuer. Idempotent; queued packets remain
// dequeueable until drained.
func (q *PacketQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return
	}
	q.shutdown = true
	q.notEmpty.Broadcast()
}

// packetHeap orders packets for dequeue: highest priority first, earliest
// creation time next, lowest admission sequence last.
type packetHeap []*Packet

func (h packetHeap) Len() int { return len(h) }

func (h packetHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.seq < b.seq
}

func (h packetHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *packetHeap) Push(x any) {
	*h = append(*h, x.(*Packet))
}

func (h *packetHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}
