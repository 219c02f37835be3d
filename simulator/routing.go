package simulator

import "math/rand"

// RoutingPolicy decides, at admission time, whether a freshly injected
// packet waits for its direct slot or detours through an intermediate rack.
// It is one of the two knobs a researcher will swap; keep the event loop out
// of it.
type RoutingPolicy interface {
	// UseDirectPath reports whether the packet should queue toward its
	// final destination. directQueueLen is the source rack's local queue
	// occupancy toward that destination.
	UseDirectPath(src, finalDst int, nowUs float64, directQueueLen int) bool

	// PickIntermediate chooses the VLB intermediate rack, never src or
	// finalDst.
	PickIntermediate(src, finalDst int) int
}

// TransmitPolicy selects which queued destination a rack serves next. The
// other researcher knob.
type TransmitPolicy interface {
	// SelectDestination picks a destination with an open direct path, or
	// reports none is eligible.
	SelectDestination(voq *VirtualOutputQueues, rack int, nowUs float64) (dst int, kind VoqType, ok bool)
}

// vlbRoutingPolicy is the default direct-vs-VLB decision: wait for the
// direct slot when it is less than one slot time away, detour only when the
// direct queue is congested past the threshold.
type vlbRoutingPolicy struct {
	topo      *RotorTopology
	threshold int
	numRacks  int
	rng       *rand.Rand
}

// NewVLBRoutingPolicy builds the default admission policy
func NewVLBRoutingPolicy(topo *RotorTopology, threshold, numRacks int, rng *rand.Rand) RoutingPolicy {
	return &vlbRoutingPolicy{
		topo:      topo,
		threshold: threshold,
		numRacks:  numRacks,
		rng:       rng,
	}
}

func (p *vlbRoutingPolicy) UseDirectPath(src, finalDst int, nowUs float64, directQueueLen int) bool {
	directWait := p.topo.NextDirectPathTime(src, finalDst, nowUs) - nowUs

	// Direct slot imminent: cheaper to wait than to pay two hops
	if directWait < p.topo.SlotTimeUs() {
		return true
	}

	if directQueueLen > p.threshold {
		return false // congested, spread the load
	}

	return true
}

func (p *vlbRoutingPolicy) PickIntermediate(src, finalDst int) int {
	for {
		intermediate := p.rng.Intn(p.numRacks)
		if intermediate != src && intermediate != finalDst {
			return intermediate
		}
	}
}

// priorityTransmitPolicy is the default transmitter selection: transit
// packets before locally injected ones, since transit traffic has already
// paid one hop and accumulating it at intermediates starves second hops.
// Within a tier the lowest destination id wins.
type priorityTransmitPolicy struct {
	topo *RotorTopology
}

// NewPriorityTransmitPolicy builds the default transmit selection policy
func NewPriorityTransmitPolicy(topo *RotorTopology) TransmitPolicy {
	return &priorityTransmitPolicy{topo: topo}
}

func (p *priorityTransmitPolicy) SelectDestination(voq *VirtualOutputQueues, rack int, nowUs float64) (int, VoqType, bool) {
	// Priority A: nonlocal (second hop) traffic with an open direct path
	for _, dst := range voq.NonemptyNonlocalDestinations() {
		if p.topo.HasDirectPath(rack, dst, nowUs) {
			return dst, VoqNonlocal, true
		}
	}

	// Priority B: local (first hop) traffic with an open direct path
	for _, dst := range voq.NonemptyLocalDestinations() {
		if p.topo.HasDirectPath(rack, dst, nowUs) {
			return dst, VoqLocal, true
		}
	}

	return -1, VoqLocal, false
}
