package simulator

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// lowLatencySizeThresholdBytes is the Opera paper's bulk classification
// cutoff used by the format converter.
const lowLatencySizeThresholdBytes = 15e6

var flowCSVHeader = []string{
	"flow_id", "src_rack", "dst_rack", "src_host", "dst_host",
	"size_bytes", "start_time_ms", "flow_type",
}

// SaveFlowsToFile writes a flow list as CSV (header plus one row per flow)
func SaveFlowsToFile(flows []*Flow, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot open file for writing %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(flowCSVHeader); err != nil {
		return err
	}
	for _, flow := range flows {
		record := []string{
			strconv.FormatUint(flow.ID, 10),
			strconv.Itoa(flow.SrcRack),
			strconv.Itoa(flow.DstRack),
			strconv.Itoa(flow.SrcHost),
			strconv.Itoa(flow.DstHost),
			strconv.FormatUint(flow.SizeBytes, 10),
			strconv.FormatFloat(flow.StartTimeMs, 'g', -1, 64),
			flow.Type.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	log.Printf("Saved %d flows to %s", len(flows), filename)
	return nil
}

// LoadFlowsFromFile reads a flow CSV written by SaveFlowsToFile (or by the
// converter). Malformed rows are configuration errors.
func LoadFlowsFromFile(filename string) ([]*Flow, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open file for reading %s: %w", filename, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed flow CSV %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var flows []*Flow
	for i, record := range records[1:] { // skip header
		flow, err := parseFlowRecord(record)
		if err != nil {
			return nil, fmt.Errorf("malformed flow CSV %s row %d: %w", filename, i+2, err)
		}
		flows = append(flows, flow)
	}
	log.Printf("Loaded %d flows from %s", len(flows), filename)
	return flows, nil
}

func parseFlowRecord(record []string) (*Flow, error) {
	if len(record) != len(flowCSVHeader) {
		return nil, fmt.Errorf("want %d fields, got %d", len(flowCSVHeader), len(record))
	}
	flow := &Flow{}
	var err error
	if flow.ID, err = strconv.ParseUint(record[0], 10, 64); err != nil {
		return nil, err
	}
	if flow.SrcRack, err = strconv.Atoi(record[1]); err != nil {
		return nil, err
	}
	if flow.DstRack, err = strconv.Atoi(record[2]); err != nil {
		return nil, err
	}
	if flow.SrcHost, err = strconv.Atoi(record[3]); err != nil {
		return nil, err
	}
	if flow.DstHost, err = strconv.Atoi(record[4]); err != nil {
		return nil, err
	}
	if flow.SizeBytes, err = strconv.ParseUint(record[5], 10, 64); err != nil {
		return nil, err
	}
	if flow.StartTimeMs, err = strconv.ParseFloat(record[6], 64); err != nil {
		return nil, err
	}
	if flow.Type, err = ParseFlowType(record[7]); err != nil {
		return nil, err
	}
	return flow, nil
}

// ConvertOperaToRotor reads the Opera whitespace format
// (src_host_global dst_host_global size_bytes start_time_ns, one flow per
// line, # comments allowed) and writes the flow CSV. Flows at or above the
// 15 MB threshold are classified bulk, the rest low_latency. Returns the
// number of converted flows.
func ConvertOperaToRotor(inputFile, outputFile string, hostsPerRack int) (int, error) {
	in, err := os.Open(inputFile)
	if err != nil {
		return 0, fmt.Errorf("cannot open input file %s: %w", inputFile, err)
	}
	defer in.Close()

	var flows []*Flow
	var flowID uint64

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var srcGlobal, dstGlobal int
		var sizeBytes, startTimeNs uint64
		if _, err := fmt.Sscan(line, &srcGlobal, &dstGlobal, &sizeBytes, &startTimeNs); err != nil {
			return 0, fmt.Errorf("malformed Opera line %q: %w", line, err)
		}

		flow := &Flow{
			ID:          flowID,
			SrcRack:     srcGlobal / hostsPerRack,
			SrcHost:     srcGlobal % hostsPerRack,
			DstRack:     dstGlobal / hostsPerRack,
			DstHost:     dstGlobal % hostsPerRack,
			SizeBytes:   sizeBytes,
			StartTimeMs: float64(startTimeNs) / 1e6,
			Type:        FlowLowLatency,
		}
		if float64(sizeBytes) >= lowLatencySizeThresholdBytes {
			flow.Type = FlowBulk
		}
		flowID++
		flows = append(flows, flow)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", inputFile, err)
	}

	if err := SaveFlowsToFile(flows, outputFile); err != nil {
		return 0, err
	}
	return len(flows), nil
}

// ConvertRotorToOpera reads a flow CSV and writes the Opera whitespace
// format, converting start times from ms to ns. Returns the number of
// converted flows.
func ConvertRotorToOpera(inputFile, outputFile string, hostsPerRack int) (int, error) {
	flows, err := LoadFlowsFromFile(inputFile)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return 0, fmt.Errorf("cannot open output file %s: %w", outputFile, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, flow := range flows {
		srcGlobal := flow.SrcRack*hostsPerRack + flow.SrcHost
		dstGlobal := flow.DstRack*hostsPerRack + flow.DstHost
		startTimeNs := uint64(flow.StartTimeMs * 1e6)
		if _, err := fmt.Fprintf(w, "%d %d %d %d\n", srcGlobal, dstGlobal, flow.SizeBytes, startTimeNs); err != nil {
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return len(flows), nil
}
