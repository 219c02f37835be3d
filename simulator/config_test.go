package simulator

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
}

func TestConfigDerivedConstants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumRacks = 4
	cfg.NumSwitches = 1
	cfg.ReconfigDelayUs = 20
	cfg.DutyCycle = 0.9

	if got := cfg.SlotTimeUs(); math.Abs(got-200.0) > 1e-9 {
		t.Errorf("Slot time: expected 200, got %g", got)
	}
	if got := cfg.NumMatchings(); got != 3 {
		t.Errorf("Matchings: expected 3, got %d", got)
	}
	if got := cfg.CycleTimeUs(); math.Abs(got-600.0) > 1e-9 {
		t.Errorf("Cycle time: expected 600, got %g", got)
	}

	// Uneven distribution rounds up
	cfg.NumRacks = 16
	cfg.NumSwitches = 3
	if got := cfg.NumMatchings(); got != 5 {
		t.Errorf("Matchings for 15 over 3 switches: expected 5, got %d", got)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.cfg")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses all keys", func(t *testing.T) {
		path := writeConfigFile(t, `
num_racks 8
num_switches 2
hosts_per_rack 16
link_rate_gbps 40
mtu_bytes 9000
propagation_delay_us 1.5
reconfig_delay_us 10
duty_cycle 0.8
workload websearch
load_factor 0.5
sim_time_ms 250
random_seed 7
queue_size_pkts 64
queue_threshold 5
flow_file flows_in.csv
save_flows true
flow_output_file flows_out.csv
topology_output_file sched.yaml
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.NumRacks != 8 || cfg.NumSwitches != 2 || cfg.HostsPerRack != 16 {
			t.Errorf("Network keys not applied: %+v", cfg)
		}
		if cfg.LinkRateGbps != 40 || cfg.MTUBytes != 9000 || cfg.PropagationDelayUs != 1.5 {
			t.Errorf("Link keys not applied: %+v", cfg)
		}
		if cfg.ReconfigDelayUs != 10 || cfg.DutyCycle != 0.8 {
			t.Errorf("Rotor keys not applied: %+v", cfg)
		}
		if cfg.Workload != WorkloadWebsearch || cfg.LoadFactor != 0.5 ||
			cfg.SimTimeMs != 250 || cfg.RandomSeed != 7 {
			t.Errorf("Workload keys not applied: %+v", cfg)
		}
		if cfg.QueueSizePkts != 64 || cfg.QueueThreshold != 5 {
			t.Errorf("Queue keys not applied: %+v", cfg)
		}
		if cfg.FlowFile != "flows_in.csv" || !cfg.SaveFlows ||
			cfg.FlowOutputFile != "flows_out.csv" || cfg.TopologyOutputFile != "sched.yaml" {
			t.Errorf("File keys not applied: %+v", cfg)
		}
	})

	t.Run("unknown keys ignored", func(t *testing.T) {
		path := writeConfigFile(t, "frobnicate 3\nnum_racks 8\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.NumRacks != 8 {
			t.Errorf("Expected num_racks 8, got %d", cfg.NumRacks)
		}
	})

	t.Run("unspecified keys keep defaults", func(t *testing.T) {
		path := writeConfigFile(t, "num_racks 8\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		def := DefaultConfig()
		if cfg.NumSwitches != def.NumSwitches || cfg.MTUBytes != def.MTUBytes {
			t.Errorf("Defaults not preserved: %+v", cfg)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.cfg")); err == nil {
			t.Error("Expected error for missing config file")
		}
	})

	t.Run("dangling key", func(t *testing.T) {
		path := writeConfigFile(t, "num_racks")
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for key without value")
		}
	})

	t.Run("bad value", func(t *testing.T) {
		path := writeConfigFile(t, "num_racks eight")
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for non-numeric value")
		}
	})

	t.Run("bad workload", func(t *testing.T) {
		path := writeConfigFile(t, "workload mapreduce")
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for unknown workload")
		}
	})
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SimConfig)
	}{
		{"odd racks", func(c *SimConfig) { c.NumRacks = 15 }},
		{"too few racks", func(c *SimConfig) { c.NumRacks = 1 }},
		{"no switches", func(c *SimConfig) { c.NumSwitches = 0 }},
		{"no hosts", func(c *SimConfig) { c.HostsPerRack = 0 }},
		{"zero link rate", func(c *SimConfig) { c.LinkRateGbps = 0 }},
		{"zero mtu", func(c *SimConfig) { c.MTUBytes = 0 }},
		{"negative propagation", func(c *SimConfig) { c.PropagationDelayUs = -1 }},
		{"zero reconfig", func(c *SimConfig) { c.ReconfigDelayUs = 0 }},
		{"duty cycle one", func(c *SimConfig) { c.DutyCycle = 1.0 }},
		{"duty cycle negative", func(c *SimConfig) { c.DutyCycle = -0.1 }},
		{"load factor high", func(c *SimConfig) { c.LoadFactor = 1.5 }},
		{"load factor negative", func(c *SimConfig) { c.LoadFactor = -0.1 }},
		{"zero sim time", func(c *SimConfig) { c.SimTimeMs = 0 }},
		{"zero queue", func(c *SimConfig) { c.QueueSizePkts = 0 }},
		{"negative threshold", func(c *SimConfig) { c.QueueThreshold = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestWorkloadTypeRoundTrip(t *testing.T) {
	for _, wt := range []WorkloadType{WorkloadDatamining, WorkloadWebsearch, WorkloadHadoop} {
		parsed, err := ParseWorkloadType(wt.String())
		if err != nil {
			t.Fatalf("%s: %v", wt, err)
		}
		if parsed != wt {
			t.Errorf("Round trip %s: got %s", wt, parsed)
		}
	}
	if _, err := ParseWorkloadType("bogus"); err == nil {
		t.Error("Expected error for unknown workload name")
	}
}
