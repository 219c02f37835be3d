package simulator

import (
	"encoding/json"
	"fmt"
)

// FlowType classifies a flow. The circuit fabric only carries bulk traffic;
// low-latency flows belong on the packet-switch path, which this simulator
// does not model.
type FlowType int

const (
	FlowBulk FlowType = iota
	FlowLowLatency
)

// String returns the string representation of FlowType
func (ft FlowType) String() string {
	switch ft {
	case FlowBulk:
		return "bulk"
	case FlowLowLatency:
		return "low_latency"
	default:
		return "bulk"
	}
}

// ParseFlowType parses a string into FlowType
func ParseFlowType(s string) (FlowType, error) {
	switch s {
	case "bulk":
		return FlowBulk, nil
	case "low_latency":
		return FlowLowLatency, nil
	default:
		return FlowBulk, fmt.Errorf("invalid flow type: %s (must be 'bulk' or 'low_latency')", s)
	}
}

// MarshalJSON implements json.Marshaler for FlowType
func (ft FlowType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.String())
}

// UnmarshalJSON implements json.Unmarshaler for FlowType
func (ft *FlowType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFlowType(s)
	if err != nil {
		return err
	}
	*ft = parsed
	return nil
}

// Flow is a unit of demand between two hosts. Flows own their packets by id;
// queues never hold flow references.
type Flow struct {
	ID               uint64   `json:"id"`
	SrcRack          int      `json:"srcRack"`
	DstRack          int      `json:"dstRack"`
	SrcHost          int      `json:"srcHost"`
	DstHost          int      `json:"dstHost"`
	SizeBytes        uint64   `json:"sizeBytes"`
	StartTimeMs      float64  `json:"startTimeMs"`
	CompletionTimeMs float64  `json:"completionTimeMs"`
	Type             FlowType `json:"type"`

	PacketIDs       []uint64 `json:"-"`
	PacketsSent     int      `json:"packetsSent"`
	PacketsReceived int      `json:"packetsReceived"`
	Completed       bool     `json:"completed"`
}

// FCT returns the flow completion time in ms, or -1 if the flow has not
// completed.
func (f *Flow) FCT() float64 {
	if !f.Completed {
		return -1.0
	}
	return f.CompletionTimeMs - f.StartTimeMs
}

// NumPackets returns the number of MTU-sized fragments this flow needs
func (f *Flow) NumPackets(mtuBytes int) int {
	return int((f.SizeBytes + uint64(mtuBytes) - 1) / uint64(mtuBytes))
}

// Packet is one MTU-bounded fragment of a flow.
//
// FinalDst is write-once at creation. CurrentRack is where the packet sits
// now; CurrentDst is the next-hop target (the final destination, or a VLB
// intermediate on the first hop). HopCount 0 means unsent, 1 means one
// transmission done, 2 means delivered.
type Packet struct {
	ID     uint64
	FlowID uint64

	SrcRack     int
	FinalDst    int
	CurrentRack int
	CurrentDst  int
	SrcHost     int
	DstHost     int

	SizeBytes int
	HopCount  int

	CreationTimeMs float64
	SentTimeMs     float64
	ArrivalTimeMs  float64

	Type    FlowType
	Dropped bool
}
