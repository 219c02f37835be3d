package simulator

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
)

// Simulator is a pure discrete event simulator with no concurrency
// primitives. All state is advanced single-threaded through Run or
// StepUntil; callers that pace a run (the live server) manage their own
// locking around those calls.
//
// Flows and packets are owned by the registries here, keyed by id; VOQs hold
// ids only.
type Simulator struct {
	config SimConfig
	topo   *RotorTopology
	queue  *EventQueue

	flows   map[uint64]*Flow
	packets map[uint64]*Packet

	voqs              []*VirtualOutputQueues
	rackBusy          []bool
	rackNextFreeUs    []float64
	rackWakeupPending []bool

	routing  RoutingPolicy
	transmit TransmitPolicy
	rng      *rand.Rand // intermediate selection; distinct stream from the workload

	nowUs               float64
	endTimeUs           float64
	nextPacketID        uint64
	totalBytesDelivered uint64
	droppedPackets      int

	// Event logging callback (optional, for verbose runs)
	LogEvent func(msg string)
}

// NewSimulator creates a simulator for the given configuration. The
// topology schedule is built and verified here; invalid configurations are
// rejected before any event runs.
func NewSimulator(config SimConfig) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	topo, err := NewRotorTopology(config)
	if err != nil {
		return nil, err
	}

	// Offset keeps routing decisions decorrelated from workload sampling
	rng := rand.New(rand.NewSource(config.RandomSeed + 1000))

	s := &Simulator{
		config:            config,
		topo:              topo,
		queue:             NewEventQueue(),
		flows:             make(map[uint64]*Flow),
		packets:           make(map[uint64]*Packet),
		voqs:              make([]*VirtualOutputQueues, config.NumRacks),
		rackBusy:          make([]bool, config.NumRacks),
		rackNextFreeUs:    make([]float64, config.NumRacks),
		rackWakeupPending: make([]bool, config.NumRacks),
		rng:               rng,
		endTimeUs:         config.SimTimeMs * 1000.0,
	}
	for i := 0; i < config.NumRacks; i++ {
		s.voqs[i] = NewVirtualOutputQueues(i, config.NumRacks, config.QueueSizePkts)
	}
	s.routing = NewVLBRoutingPolicy(topo, config.QueueThreshold, config.NumRacks, rng)
	s.transmit = NewPriorityTransmitPolicy(topo)
	return s, nil
}

// Topology returns the verified matching schedule
func (s *Simulator) Topology() *RotorTopology { return s.topo }

// Config returns the configuration the simulator was built with
func (s *Simulator) Config() SimConfig { return s.config }

// VirtualTimeUs returns the current simulated time in microseconds
func (s *Simulator) VirtualTimeUs() float64 { return s.nowUs }

// DeliveredBytes returns the running count of bytes delivered to final
// destinations.
func (s *Simulator) DeliveredBytes() uint64 { return s.totalBytesDelivered }

// AddFlows registers flows and schedules their arrival events
func (s *Simulator) AddFlows(flows []*Flow) {
	for _, flow := range flows {
		s.flows[flow.ID] = flow
		s.queue.Push(NewFlowArrivalEvent(flow.StartTimeMs*1000.0, flow.ID))
	}
}

// Done reports whether the run can make no further progress: the queue is
// empty or the next event lies beyond the horizon.
func (s *Simulator) Done() bool {
	head := s.queue.Peek()
	return head == nil || head.Timestamp() > s.endTimeUs
}

// StepUntil processes events up to targetUs (clamped to the simulation
// horizon) and returns the number of events processed.
func (s *Simulator) StepUntil(targetUs float64) int {
	if targetUs > s.endTimeUs {
		targetUs = s.endTimeUs
	}
	processed := 0
	for {
		head := s.queue.Peek()
		if head == nil {
			break
		}
		if head.Timestamp() > targetUs {
			if head.Timestamp() > s.endTimeUs {
				s.logf("next event at %.1fus exceeds horizon %.1fus, stopping", head.Timestamp(), s.endTimeUs)
			}
			break
		}
		event := s.queue.Pop()
		// Virtual time is monotonic
		if event.Timestamp() > s.nowUs {
			s.nowUs = event.Timestamp()
		}
		s.dispatch(event)
		processed++
	}
	return processed
}

// Run processes all events up to the horizon and returns the final
// statistics.
func (s *Simulator) Run() *Statistics {
	log.Printf("Running simulation...")
	s.StepUntil(s.endTimeUs)
	log.Printf("Simulation complete. Collecting statistics...")
	return s.Finalize()
}

// Finalize hands every flow to a fresh statistics collector and computes
// aggregate throughput over the configured horizon. Safe to call more than
// once.
func (s *Simulator) Finalize() *Statistics {
	stats := NewStatistics()

	ids := make([]uint64, 0, len(s.flows))
	for id := range s.flows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		stats.AddFlow(s.flows[id])
	}

	stats.DroppedPackets = s.droppedPackets
	simTimeS := s.config.SimTimeMs / 1000.0
	stats.SetThroughput(float64(s.totalBytesDelivered) * 8.0 / (simTimeS * 1e9))
	stats.SetSimTime(s.config.SimTimeMs)
	return stats
}

// Progress is a point-in-time snapshot of a run, for live observation
type Progress struct {
	VirtualTimeUs  float64 `json:"virtualTimeUs"`
	TotalFlows     int     `json:"totalFlows"`
	CompletedFlows int     `json:"completedFlows"`
	DroppedPackets int     `json:"droppedPackets"`
	DeliveredBytes uint64  `json:"deliveredBytes"`
	QueuedPackets  int     `json:"queuedPackets"`
	PendingEvents  int     `json:"pendingEvents"`
	ThroughputGbps float64 `json:"throughputGbps"`
}

// Progress snapshots the current run state
func (s *Simulator) Progress() Progress {
	p := Progress{
		VirtualTimeUs:  s.nowUs,
		TotalFlows:     len(s.flows),
		DroppedPackets: s.droppedPackets,
		DeliveredBytes: s.totalBytesDelivered,
		PendingEvents:  s.queue.Len(),
	}
	for _, flow := range s.flows {
		if flow.Completed {
			p.CompletedFlows++
		}
	}
	for _, voq := range s.voqs {
		p.QueuedPackets += voq.TotalPackets()
	}
	if s.nowUs > 0 {
		p.ThroughputGbps = float64(s.totalBytesDelivered) * 8.0 / (s.nowUs / 1e6 * 1e9)
	}
	return p
}

func (s *Simulator) dispatch(event Event) {
	switch e := event.(type) {
	case *FlowArrivalEvent:
		s.handleFlowArrival(e.FlowID())
	case *PacketArrivalEvent:
		s.handlePacketArrival(e.PacketID())
	case *TxCompleteEvent:
		s.handleTxComplete(e.PacketID())
	case *RackWakeupEvent:
		s.handleRackWakeup(e.Rack())
	default:
		log.Printf("simulator: unknown event %s", event)
	}
}

// handleFlowArrival fragments the flow into MTU-sized packets and admits
// each at the source rack.
func (s *Simulator) handleFlowArrival(flowID uint64) {
	flow, ok := s.flows[flowID]
	if !ok {
		log.Printf("simulator: flow arrival for unknown flow %d", flowID)
		return
	}
	if flow.Type == FlowLowLatency {
		// The circuit fabric does not carry low-latency traffic; a real
		// deployment sends it over the packet switch.
		log.Printf("warning: flow %d is low_latency; carrying it as bulk on the circuit fabric", flow.ID)
	}

	numPackets := flow.NumPackets(s.config.MTUBytes)
	remaining := flow.SizeBytes

	for i := 0; i < numPackets; i++ {
		size := uint64(s.config.MTUBytes)
		if remaining < size {
			size = remaining
		}
		remaining -= size

		pkt := &Packet{
			ID:             s.nextPacketID,
			FlowID:         flow.ID,
			SrcRack:        flow.SrcRack,
			FinalDst:       flow.DstRack,
			CurrentRack:    flow.SrcRack,
			SrcHost:        flow.SrcHost,
			DstHost:        flow.DstHost,
			SizeBytes:      int(size),
			CreationTimeMs: s.nowUs / 1000.0,
			Type:           flow.Type,
		}
		s.nextPacketID++

		flow.PacketIDs = append(flow.PacketIDs, pkt.ID)
		s.packets[pkt.ID] = pkt

		s.admitPacket(pkt)
	}
}

// admitPacket runs the direct-vs-VLB decision for a first-hop packet at its
// source rack and enqueues it in the local VOQ.
func (s *Simulator) admitPacket(pkt *Packet) {
	rack := pkt.CurrentRack
	voq := s.voqs[rack]

	var ok bool
	if s.routing.UseDirectPath(rack, pkt.FinalDst, s.nowUs, voq.LocalQueueSize(pkt.FinalDst)) {
		pkt.CurrentDst = pkt.FinalDst
		ok = voq.Enqueue(pkt.ID, pkt.FinalDst, VoqLocal)
	} else {
		intermediate := s.routing.PickIntermediate(rack, pkt.FinalDst)
		pkt.CurrentDst = intermediate
		ok = voq.Enqueue(pkt.ID, intermediate, VoqLocal)
	}

	if !ok {
		s.dropPacket(pkt)
		return
	}
	if !s.rackBusy[rack] {
		s.startTransmission(rack)
	}
}

func (s *Simulator) dropPacket(pkt *Packet) {
	pkt.Dropped = true
	s.droppedPackets++
	s.logf("packet %d (flow %d) dropped at rack %d", pkt.ID, pkt.FlowID, pkt.CurrentRack)
}

// startTransmission asks the transmit policy for an eligible destination and
// puts the rack's single server to work. With nothing eligible the rack goes
// idle and a wakeup is scheduled for the next direct slot of a queued
// destination.
func (s *Simulator) startTransmission(rack int) {
	voq := s.voqs[rack]

	dst, kind, ok := s.transmit.SelectDestination(voq, rack, s.nowUs)
	if !ok {
		s.rackBusy[rack] = false
		s.scheduleWakeup(rack)
		return
	}
	packetID, ok := voq.Dequeue(dst, kind)
	if !ok {
		// Policy selected an empty queue; treat as nothing eligible
		log.Printf("simulator: transmit policy selected empty %s queue %d->%d", kind, rack, dst)
		s.rackBusy[rack] = false
		return
	}

	pkt := s.packets[packetID]
	s.rackBusy[rack] = true

	txUs := float64(pkt.SizeBytes) * 8.0 / (s.config.LinkRateGbps * 1e9) * 1e6
	pkt.SentTimeMs = s.nowUs / 1000.0
	if pkt.HopCount == 0 {
		s.flows[pkt.FlowID].PacketsSent++
	}

	s.queue.Push(NewTxCompleteEvent(s.nowUs+txUs, pkt.ID))
}

// scheduleWakeup arms at most one pending retry per rack, at the earliest
// instant any queued destination's direct path opens.
func (s *Simulator) scheduleWakeup(rack int) {
	if s.rackWakeupPending[rack] {
		return
	}
	voq := s.voqs[rack]
	dests := append(voq.NonemptyNonlocalDestinations(), voq.NonemptyLocalDestinations()...)
	if len(dests) == 0 {
		return
	}

	earliest := -1.0
	for _, dst := range dests {
		t := s.topo.NextDirectPathTime(rack, dst, s.nowUs)
		if earliest < 0 || t < earliest {
			earliest = t
		}
	}
	if earliest < 0 || earliest > s.endTimeUs {
		return
	}
	if earliest <= s.nowUs {
		// A path is open but the policy declined it; avoid a zero-delay
		// self-loop by retrying at the next slot boundary.
		earliest = s.nowUs + s.topo.SlotTimeUs()
	}

	s.rackWakeupPending[rack] = true
	s.queue.Push(NewRackWakeupEvent(earliest, rack))
}

func (s *Simulator) handleRackWakeup(rack int) {
	s.rackWakeupPending[rack] = false
	if !s.rackBusy[rack] {
		s.startTransmission(rack)
	}
}

// handleTxComplete finishes a packet's current hop: delivery at the final
// destination, or a handoff to the intermediate rack.
func (s *Simulator) handleTxComplete(packetID uint64) {
	pkt, ok := s.packets[packetID]
	if !ok {
		log.Printf("simulator: tx complete for unknown packet %d", packetID)
		return
	}
	fromRack := pkt.CurrentRack

	pkt.HopCount++
	arrivalUs := s.nowUs + s.config.PropagationDelayUs

	if pkt.CurrentDst == pkt.FinalDst {
		// Delivered
		pkt.CurrentRack = pkt.FinalDst
		pkt.ArrivalTimeMs = arrivalUs / 1000.0
		s.totalBytesDelivered += uint64(pkt.SizeBytes)

		flow := s.flows[pkt.FlowID]
		flow.PacketsReceived++
		if flow.PacketsReceived == len(flow.PacketIDs) {
			flow.Completed = true
			flow.CompletionTimeMs = pkt.ArrivalTimeMs
		}
	} else {
		// Handoff: the packet now sits at the intermediate and targets its
		// final destination
		pkt.CurrentRack = pkt.CurrentDst
		pkt.CurrentDst = pkt.FinalDst

		if arrivalUs <= s.endTimeUs {
			s.queue.Push(NewPacketArrivalEvent(arrivalUs, pkt.ID))
		} else {
			s.logf("packet %d (flow %d) arrival at %.1fus exceeds horizon %.1fus, not queuing",
				pkt.ID, pkt.FlowID, arrivalUs, s.endTimeUs)
		}
	}

	// The server we just freed picks its next packet immediately
	s.rackNextFreeUs[fromRack] = s.nowUs
	s.startTransmission(fromRack)
}

// handlePacketArrival lands a transit packet at its intermediate rack and
// queues it for the second hop.
func (s *Simulator) handlePacketArrival(packetID uint64) {
	pkt, ok := s.packets[packetID]
	if !ok {
		log.Printf("simulator: packet arrival for unknown packet %d", packetID)
		return
	}
	rack := pkt.CurrentRack

	if pkt.HopCount == 1 && rack != pkt.FinalDst {
		pkt.CurrentDst = pkt.FinalDst
		if !s.voqs[rack].Enqueue(pkt.ID, pkt.FinalDst, VoqNonlocal) {
			s.dropPacket(pkt)
			return
		}
	}

	if !s.rackBusy[rack] {
		s.startTransmission(rack)
	}
}

func (s *Simulator) logf(format string, args ...interface{}) {
	if s.LogEvent != nil {
		s.LogEvent(fmt.Sprintf(format, args...))
	}
}
