package simulator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// WorkloadType selects the empirical flow-size distribution used by the
// workload generator.
type WorkloadType int

const (
	WorkloadDatamining WorkloadType = iota // VL2 paper
	WorkloadWebsearch                      // DCTCP paper
	WorkloadHadoop                         // Facebook paper
)

// String returns the string representation of WorkloadType
func (wt WorkloadType) String() string {
	switch wt {
	case WorkloadDatamining:
		return "datamining"
	case WorkloadWebsearch:
		return "websearch"
	case WorkloadHadoop:
		return "hadoop"
	default:
		return "datamining"
	}
}

// ParseWorkloadType parses a string into WorkloadType
func ParseWorkloadType(s string) (WorkloadType, error) {
	switch s {
	case "datamining":
		return WorkloadDatamining, nil
	case "websearch":
		return WorkloadWebsearch, nil
	case "hadoop":
		return WorkloadHadoop, nil
	default:
		return WorkloadDatamining, fmt.Errorf("invalid workload: %s (must be 'datamining', 'websearch', or 'hadoop')", s)
	}
}

// MarshalJSON implements json.Marshaler for WorkloadType
func (wt WorkloadType) MarshalJSON() ([]byte, error) {
	return json.Marshal(wt.String())
}

// UnmarshalJSON implements json.Unmarshaler for WorkloadType
func (wt *WorkloadType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWorkloadType(s)
	if err != nil {
		return err
	}
	*wt = parsed
	return nil
}

// SimConfig holds all simulation parameters. It is built once and passed by
// value into the simulator; there is no global mutable state.
type SimConfig struct {
	// Network parameters
	NumRacks           int     `json:"numRacks"`
	NumSwitches        int     `json:"numSwitches"`
	HostsPerRack       int     `json:"hostsPerRack"`
	LinkRateGbps       float64 `json:"linkRateGbps"`
	MTUBytes           int     `json:"mtuBytes"`
	PropagationDelayUs float64 `json:"propagationDelayUs"`

	// RotorNet specific
	ReconfigDelayUs float64 `json:"reconfigDelayUs"` // Dead time at the start of every slot
	DutyCycle       float64 `json:"dutyCycle"`       // Fraction of slot the link is up

	// Workload parameters
	Workload   WorkloadType `json:"workload"`
	LoadFactor float64      `json:"loadFactor"` // Network load (0.0 to 1.0)
	SimTimeMs  float64      `json:"simTimeMs"`
	RandomSeed int64        `json:"randomSeed"`

	// Transport parameters
	QueueSizePkts  int `json:"queueSizePkts"`  // Per-destination VOQ capacity
	QueueThreshold int `json:"queueThreshold"` // Local queue depth beyond which VLB kicks in

	// Flow persistence
	FlowFile       string `json:"flowFile"`       // Load flows from CSV instead of generating
	SaveFlows      bool   `json:"saveFlows"`      // Save generated flows
	FlowOutputFile string `json:"flowOutputFile"` // Destination for saved flows

	// Schedule export
	TopologyOutputFile string `json:"topologyOutputFile"` // When set, dump the matching schedule (.yaml/.json)
}

// DefaultConfig returns the built-in defaults used when no config file is given
func DefaultConfig() SimConfig {
	return SimConfig{
		NumRacks:           16,
		NumSwitches:        4,
		HostsPerRack:       32,
		LinkRateGbps:       10.0,
		MTUBytes:           1500,
		PropagationDelayUs: 0.5,
		ReconfigDelayUs:    20.0,
		DutyCycle:          0.9,
		Workload:           WorkloadDatamining,
		LoadFactor:         0.25,
		SimTimeMs:          1000.0,
		RandomSeed:         42,
		QueueSizePkts:      100,
		QueueThreshold:     3,
		FlowFile:           "",
		SaveFlows:          false,
		FlowOutputFile:     "flows.csv",
		TopologyOutputFile: "",
	}
}

// LoadConfig reads whitespace-separated key/value pairs from a text file on
// top of the defaults. Unknown keys are ignored.
func LoadConfig(path string) (SimConfig, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot open config file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	for {
		key, ok := next()
		if !ok {
			break
		}
		value, ok := next()
		if !ok {
			return cfg, ErrInvalidConfig(fmt.Sprintf("key %q has no value", key))
		}
		if err := cfg.apply(key, value); err != nil {
			return cfg, err
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *SimConfig) apply(key, value string) error {
	parseErr := func(err error) error {
		return ErrInvalidConfig(fmt.Sprintf("bad value %q for key %q: %v", value, key, err))
	}
	switch key {
	case "num_racks":
		v, err := strconv.Atoi(value)
		if err != nil {
			return parseErr(err)
		}
		c.NumRacks = v
	case "num_switches":
		v, err := strconv.Atoi(value)
		if err != nil {
			return parseErr(err)
		}
		c.NumSwitches = v
	case "hosts_per_rack":
		v, err := strconv.Atoi(value)
		if err != nil {
			return parseErr(err)
		}
		c.HostsPerRack = v
	case "link_rate_gbps":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return parseErr(err)
		}
		c.LinkRateGbps = v
	case "mtu_bytes":
		v, err := strconv.Atoi(value)
		if err != nil {
			return parseErr(err)
		}
		c.MTUBytes = v
	case "propagation_delay_us":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return parseErr(err)
		}
		c.PropagationDelayUs = v
	case "reconfig_delay_us":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return parseErr(err)
		}
		c.ReconfigDelayUs = v
	case "duty_cycle":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return parseErr(err)
		}
		c.DutyCycle = v
	case "workload":
		v, err := ParseWorkloadType(value)
		if err != nil {
			return ErrInvalidConfig(err.Error())
		}
		c.Workload = v
	case "load_factor":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return parseErr(err)
		}
		c.LoadFactor = v
	case "sim_time_ms":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return parseErr(err)
		}
		c.SimTimeMs = v
	case "random_seed":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return parseErr(err)
		}
		c.RandomSeed = v
	case "queue_size_pkts":
		v, err := strconv.Atoi(value)
		if err != nil {
			return parseErr(err)
		}
		c.QueueSizePkts = v
	case "queue_threshold":
		v, err := strconv.Atoi(value)
		if err != nil {
			return parseErr(err)
		}
		c.QueueThreshold = v
	case "flow_file":
		c.FlowFile = value
	case "save_flows":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return parseErr(err)
		}
		c.SaveFlows = v
	case "flow_output_file":
		c.FlowOutputFile = value
	case "topology_output_file":
		c.TopologyOutputFile = value
	default:
		// Unknown keys are ignored, value included
	}
	return nil
}

// Validate checks if configuration values are reasonable
func (c *SimConfig) Validate() error {
	if c.NumRacks < 2 {
		return ErrInvalidConfig("num_racks must be >= 2")
	}
	if c.NumRacks%2 != 0 {
		return ErrInvalidConfig("num_racks must be even: the rotor schedule pairs all racks every slot")
	}
	if c.NumSwitches < 1 {
		return ErrInvalidConfig("num_switches must be >= 1")
	}
	if c.HostsPerRack < 1 {
		return ErrInvalidConfig("hosts_per_rack must be >= 1")
	}
	if c.LinkRateGbps <= 0 {
		return ErrInvalidConfig("link_rate_gbps must be > 0")
	}
	if c.MTUBytes <= 0 {
		return ErrInvalidConfig("mtu_bytes must be > 0")
	}
	if c.PropagationDelayUs < 0 {
		return ErrInvalidConfig("propagation_delay_us must be >= 0")
	}
	if c.ReconfigDelayUs <= 0 {
		return ErrInvalidConfig("reconfig_delay_us must be > 0")
	}
	if c.DutyCycle < 0 || c.DutyCycle >= 1 {
		return ErrInvalidConfig("duty_cycle must be in [0, 1)")
	}
	if c.LoadFactor < 0 || c.LoadFactor > 1 {
		return ErrInvalidConfig("load_factor must be in [0, 1]")
	}
	if c.SimTimeMs <= 0 {
		return ErrInvalidConfig("sim_time_ms must be > 0")
	}
	if c.QueueSizePkts < 1 {
		return ErrInvalidConfig("queue_size_pkts must be >= 1")
	}
	if c.QueueThreshold < 0 {
		return ErrInvalidConfig("queue_threshold must be >= 0")
	}
	return nil
}

// NumMatchings returns the number of matchings each switch cycles through
func (c *SimConfig) NumMatchings() int {
	return (c.NumRacks - 1 + c.NumSwitches - 1) / c.NumSwitches
}

// SlotTimeUs returns the slot duration in microseconds
func (c *SimConfig) SlotTimeUs() float64 {
	return c.ReconfigDelayUs / (1.0 - c.DutyCycle)
}

// CycleTimeUs returns the full rotation period in microseconds
func (c *SimConfig) CycleTimeUs() float64 {
	return float64(c.NumMatchings()) * c.SlotTimeUs()
}

// Print writes a human-readable configuration summary to stdout
func (c *SimConfig) Print() {
	fmt.Println("Configuration:")
	fmt.Printf("  Racks: %d\n", c.NumRacks)
	fmt.Printf("  Switches: %d\n", c.NumSwitches)
	fmt.Printf("  Hosts per rack: %d\n", c.HostsPerRack)
	fmt.Printf("  Link rate: %g Gb/s\n", c.LinkRateGbps)
	fmt.Printf("  Load factor: %g\n", c.LoadFactor)
	fmt.Printf("  Simulation time: %g ms\n", c.SimTimeMs)
	fmt.Printf("  Workload: %s\n", c.Workload)
	fmt.Println()
}
