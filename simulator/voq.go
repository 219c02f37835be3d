package simulator

import (
	"log"
	"sort"
)

// VoqType distinguishes the two queue sets at a rack
type VoqType int

const (
	// VoqLocal holds packets injected at this rack, on their first hop
	// (toward the final destination or a VLB intermediate).
	VoqLocal VoqType = iota
	// VoqNonlocal holds transit packets that arrived here as an
	// intermediate, on their second hop toward the final destination.
	VoqNonlocal
)

func (vt VoqType) String() string {
	switch vt {
	case VoqLocal:
		return "local"
	case VoqNonlocal:
		return "nonlocal"
	default:
		return "unknown"
	}
}

// VirtualOutputQueues is the per-rack VOQ system: two destination-keyed FIFO
// sets, each queue bounded to the configured capacity. Queues hold packet
// ids, never packet references.
type VirtualOutputQueues struct {
	rackID   int
	numRacks int
	capacity int

	local    map[int][]uint64
	nonlocal map[int][]uint64

	totalPackets int
}

// NewVirtualOutputQueues creates the VOQ system for one rack
func NewVirtualOutputQueues(rack, numRacks, capacity int) *VirtualOutputQueues {
	return &VirtualOutputQueues{
		rackID:   rack,
		numRacks: numRacks,
		capacity: capacity,
		local:    make(map[int][]uint64),
		nonlocal: make(map[int][]uint64),
	}
}

// Enqueue appends a packet id to the queue of the given kind and
// destination. It fails when the destination is this rack itself or the
// target queue is at capacity.
func (v *VirtualOutputQueues) Enqueue(packetID uint64, dst int, kind VoqType) bool {
	if dst == v.rackID {
		log.Printf("voq: rack %d refused packet %d queued toward itself", v.rackID, packetID)
		return false
	}
	queues, ok := v.queues(kind)
	if !ok {
		log.Printf("voq: rack %d refused packet %d with unknown queue kind %d", v.rackID, packetID, kind)
		return false
	}
	if len(queues[dst]) >= v.capacity {
		return false
	}
	queues[dst] = append(queues[dst], packetID)
	v.totalPackets++
	return true
}

// Dequeue removes and returns the head of the queue for the given kind and
// destination.
func (v *VirtualOutputQueues) Dequeue(dst int, kind VoqType) (uint64, bool) {
	queues, ok := v.queues(kind)
	if !ok {
		log.Printf("voq: rack %d dequeue with unknown queue kind %d", v.rackID, kind)
		return 0, false
	}
	q := queues[dst]
	if len(q) == 0 {
		return 0, false
	}
	packetID := q[0]
	queues[dst] = q[1:]
	v.totalPackets--
	return packetID, true
}

// LocalQueueSize returns the occupancy of the local queue toward dst
func (v *VirtualOutputQueues) LocalQueueSize(dst int) int {
	return len(v.local[dst])
}

// NonlocalQueueSize returns the occupancy of the nonlocal queue toward dst
func (v *VirtualOutputQueues) NonlocalQueueSize(dst int) int {
	return len(v.nonlocal[dst])
}

// TotalPackets returns the occupancy across all queues at this rack
func (v *VirtualOutputQueues) TotalPackets() int {
	return v.totalPackets
}

// NonemptyLocalDestinations lists destinations with queued local packets,
// ascending.
func (v *VirtualOutputQueues) NonemptyLocalDestinations() []int {
	return nonemptyDests(v.local)
}

// NonemptyNonlocalDestinations lists destinations with queued transit
// packets, ascending.
func (v *VirtualOutputQueues) NonemptyNonlocalDestinations() []int {
	return nonemptyDests(v.nonlocal)
}

// Clear drops all queued packets (for reset)
func (v *VirtualOutputQueues) Clear() {
	v.local = make(map[int][]uint64)
	v.nonlocal = make(map[int][]uint64)
	v.totalPackets = 0
}

func (v *VirtualOutputQueues) queues(kind VoqType) (map[int][]uint64, bool) {
	switch kind {
	case VoqLocal:
		return v.local, true
	case VoqNonlocal:
		return v.nonlocal, true
	default:
		return nil, false
	}
}

// nonemptyDests returns the sorted keys with nonempty queues. Sorting keeps
// the transmitter's scan order deterministic.
func nonemptyDests(queues map[int][]uint64) []int {
	dests := make([]int, 0, len(queues))
	for dst, q := range queues {
		if len(q) > 0 {
			dests = append(dests, dst)
		}
	}
	sort.Ints(dests)
	return dests
}
