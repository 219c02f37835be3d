package simulator

import "fmt"

// EventType represents the type of simulation event
type EventType int

const (
	EventTypeFlowArrival EventType = iota
	EventTypePacketArrival
	EventTypeTxComplete
	EventTypeRackWakeup
)

func (et EventType) String() string {
	switch et {
	case EventTypeFlowArrival:
		return "flow_arrival"
	case EventTypePacketArrival:
		return "packet_arrival"
	case EventTypeTxComplete:
		return "tx_complete"
	case EventTypeRackWakeup:
		return "rack_wakeup"
	default:
		return "unknown"
	}
}

// Event is the base interface for all simulation events
type Event interface {
	Timestamp() float64 // Virtual time in microseconds
	Type() EventType
	String() string
}

// FlowArrivalEvent fires when a flow's start time is reached; the flow is
// fragmented into packets and admitted at its source rack.
type FlowArrivalEvent struct {
	timestamp float64
	flowID    uint64
}

func NewFlowArrivalEvent(timestamp float64, flowID uint64) *FlowArrivalEvent {
	return &FlowArrivalEvent{
		timestamp: timestamp,
		flowID:    flowID,
	}
}

func (e *FlowArrivalEvent) Timestamp() float64 { return e.timestamp }
func (e *FlowArrivalEvent) Type() EventType    { return EventTypeFlowArrival }
func (e *FlowArrivalEvent) FlowID() uint64     { return e.flowID }
func (e *FlowArrivalEvent) String() string {
	return fmt.Sprintf("FlowArrival(t=%.3fus, flow=%d)", e.timestamp, e.flowID)
}

// PacketArrivalEvent fires when a packet lands at an intermediate rack after
// its first hop plus propagation delay.
type PacketArrivalEvent struct {
	timestamp float64
	packetID  uint64
}

func NewPacketArrivalEvent(timestamp float64, packetID uint64) *PacketArrivalEvent {
	return &PacketArrivalEvent{
		timestamp: timestamp,
		packetID:  packetID,
	}
}

func (e *PacketArrivalEvent) Timestamp() float64 { return e.timestamp }
func (e *PacketArrivalEvent) Type() EventType    { return EventTypePacketArrival }
func (e *PacketArrivalEvent) PacketID() uint64   { return e.packetID }
func (e *PacketArrivalEvent) String() string {
	return fmt.Sprintf("PacketArrival(t=%.3fus, pkt=%d)", e.timestamp, e.packetID)
}

// TxCompleteEvent fires when a rack finishes serializing a packet onto the
// circuit fabric.
type TxCompleteEvent struct {
	timestamp float64
	packetID  uint64
}

func NewTxCompleteEvent(timestamp float64, packetID uint64) *TxCompleteEvent {
	return &TxCompleteEvent{
		timestamp: timestamp,
		packetID:  packetID,
	}
}

func (e *TxCompleteEvent) Timestamp() float64 { return e.timestamp }
func (e *TxCompleteEvent) Type() EventType    { return EventTypeTxComplete }
func (e *TxCompleteEvent) PacketID() uint64   { return e.packetID }
func (e *TxCompleteEvent) String() string {
	return fmt.Sprintf("TxComplete(t=%.3fus, pkt=%d)", e.timestamp, e.packetID)
}

// RackWakeupEvent retries an idle rack's transmitter at the next instant a
// queued destination's direct path opens. Without it a rack that went idle
// during a reconfiguration window would only be retried by new arrivals.
type RackWakeupEvent struct {
	timestamp float64
	rack      int
}

func NewRackWakeupEvent(timestamp float64, rack int) *RackWakeupEvent {
	return &RackWakeupEvent{
		timestamp: timestamp,
		rack:      rack,
	}
}

func (e *RackWakeupEvent) Timestamp() float64 { return e.timestamp }
func (e *RackWakeupEvent) Type() EventType    { return EventTypeRackWakeup }
func (e *RackWakeupEvent) Rack() int          { return e.rack }
func (e *RackWakeupEvent) String() string {
	return fmt.Sprintf("RackWakeup(t=%.3fus, rack=%d)", e.timestamp, e.rack)
}
