package simulator

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Statistics aggregates completed and uncompleted flows at the end of a run
type Statistics struct {
	fctsBulk       []float64
	fctsLowLatency []float64
	allFCTs        []float64

	TotalFlows     int
	CompletedFlows int
	DroppedPackets int
	ThroughputGbps float64
	SimTimeMs      float64
}

// NewStatistics creates an empty collector
func NewStatistics() *Statistics {
	return &Statistics{}
}

// AddFlow records one flow; completed flows contribute their FCT
func (s *Statistics) AddFlow(flow *Flow) {
	s.TotalFlows++
	if !flow.Completed {
		return
	}
	s.CompletedFlows++
	fct := flow.FCT()
	s.allFCTs = append(s.allFCTs, fct)
	if flow.Type == FlowBulk {
		s.fctsBulk = append(s.fctsBulk, fct)
	} else {
		s.fctsLowLatency = append(s.fctsLowLatency, fct)
	}
}

// AddDroppedPacket counts one admission drop
func (s *Statistics) AddDroppedPacket() {
	s.DroppedPackets++
}

// SetThroughput records the aggregate delivered throughput in Gb/s
func (s *Statistics) SetThroughput(gbps float64) {
	s.ThroughputGbps = gbps
}

// SetSimTime records the simulated horizon in ms
func (s *Statistics) SetSimTime(ms float64) {
	s.SimTimeMs = ms
}

// MeanFCT returns the mean completion time in ms over completed flows
func (s *Statistics) MeanFCT() float64 {
	return mean(s.allFCTs)
}

// PercentileFCT returns the p-quantile (p in [0,1]) of completion times
func (s *Statistics) PercentileFCT(p float64) float64 {
	return percentile(s.allFCTs, p)
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Report writes a human-readable results summary
func (s *Statistics) Report(w io.Writer) {
	fmt.Fprintln(w, "\n========== Simulation Results ==========")

	fmt.Fprintln(w, "\nFlow Statistics:")
	fmt.Fprintf(w, "  Total flows: %d\n", s.TotalFlows)
	completedPct := 0.0
	if s.TotalFlows > 0 {
		completedPct = 100.0 * float64(s.CompletedFlows) / float64(s.TotalFlows)
	}
	fmt.Fprintf(w, "  Completed flows: %d (%.3f%%)\n", s.CompletedFlows, completedPct)
	fmt.Fprintf(w, "  Dropped packets: %d\n", s.DroppedPackets)

	if len(s.allFCTs) > 0 {
		fmt.Fprintln(w, "\nFlow Completion Times (all flows):")
		fmt.Fprintf(w, "  Mean: %.3f ms\n", s.MeanFCT())
		fmt.Fprintf(w, "  Median: %.3f ms\n", s.PercentileFCT(0.5))
		fmt.Fprintf(w, "  95th: %.3f ms\n", s.PercentileFCT(0.95))
		fmt.Fprintf(w, "  99th: %.3f ms\n", s.PercentileFCT(0.99))
		fmt.Fprintf(w, "  Max: %.3f ms\n", s.PercentileFCT(1.0))
	}

	if len(s.fctsLowLatency) > 0 {
		fmt.Fprintln(w, "\nLow-latency FCTs:")
		fmt.Fprintf(w, "  Count: %d\n", len(s.fctsLowLatency))
		fmt.Fprintf(w, "  Mean: %.3f ms\n", mean(s.fctsLowLatency))
		fmt.Fprintf(w, "  99th: %.3f ms\n", percentile(s.fctsLowLatency, 0.99))
	}

	if len(s.fctsBulk) > 0 {
		fmt.Fprintln(w, "\nBulk FCTs:")
		fmt.Fprintf(w, "  Count: %d\n", len(s.fctsBulk))
		fmt.Fprintf(w, "  Mean: %.3f ms\n", mean(s.fctsBulk))
		fmt.Fprintf(w, "  99th: %.3f ms\n", percentile(s.fctsBulk, 0.99))
	}

	fmt.Fprintln(w, "\nThroughput:")
	fmt.Fprintf(w, "  Average: %.3f Gb/s\n", s.ThroughputGbps)

	fmt.Fprintln(w, "\n========================================")
}

// Print writes the summary to stdout
func (s *Statistics) Print() {
	s.Report(os.Stdout)
}

// SaveToFile writes the results CSV (metric,value rows). FCT rows appear
// only when at least one flow completed.
func (s *Statistics) SaveToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot open %s for writing: %w", filename, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "metric,value\n")
	fmt.Fprintf(f, "total_flows,%d\n", s.TotalFlows)
	fmt.Fprintf(f, "completed_flows,%d\n", s.CompletedFlows)
	fmt.Fprintf(f, "dropped_packets,%d\n", s.DroppedPackets)
	fmt.Fprintf(f, "throughput_gbps,%g\n", s.ThroughputGbps)

	if len(s.allFCTs) > 0 {
		fmt.Fprintf(f, "mean_fct_ms,%g\n", s.MeanFCT())
		fmt.Fprintf(f, "median_fct_ms,%g\n", s.PercentileFCT(0.5))
		fmt.Fprintf(f, "p95_fct_ms,%g\n", s.PercentileFCT(0.95))
		fmt.Fprintf(f, "p99_fct_ms,%g\n", s.PercentileFCT(0.99))
	}
	return nil
}
