package simulator

import (
	"math"
	"testing"
)

func topoConfig(numRacks, numSwitches int) SimConfig {
	cfg := DefaultConfig()
	cfg.NumRacks = numRacks
	cfg.NumSwitches = numSwitches
	return cfg
}

func TestRoundRobinMatchingsCoverAllPairs(t *testing.T) {
	for _, n := range []int{2, 4, 6, 8, 16, 32} {
		all := roundRobinMatchings(n)
		if len(all) != n-1 {
			t.Fatalf("n=%d: expected %d matchings, got %d", n, n-1, len(all))
		}
		if err := verifyMatchings(n, all); err != nil {
			t.Errorf("n=%d: %v", n, err)
		}
	}
}

func TestVerifyMatchingsRejectsBrokenSchedules(t *testing.T) {
	t.Run("fixed point", func(t *testing.T) {
		bad := [][]int{{0, 1, 3, 2}, {2, 3, 0, 1}, {3, 2, 1, 0}}
		if err := verifyMatchings(4, bad); err == nil {
			t.Error("Expected error for matching with a fixed point")
		}
	})

	t.Run("duplicate pair", func(t *testing.T) {
		bad := [][]int{{1, 0, 3, 2}, {1, 0, 3, 2}, {3, 2, 1, 0}}
		if err := verifyMatchings(4, bad); err == nil {
			t.Error("Expected error for pair appearing twice")
		}
	})

	t.Run("asymmetric", func(t *testing.T) {
		bad := [][]int{{1, 2, 0, 3}, {2, 3, 0, 1}, {3, 2, 1, 0}}
		if err := verifyMatchings(4, bad); err == nil {
			t.Error("Expected error for asymmetric matching")
		}
	})
}

func TestNewRotorTopologyRejectsOddRacks(t *testing.T) {
	cfg := topoConfig(5, 1)
	if _, err := NewRotorTopology(cfg); err == nil {
		t.Error("Expected error for odd rack count")
	}
}

func TestTopologyDerivedConstants(t *testing.T) {
	cfg := topoConfig(4, 1)
	cfg.ReconfigDelayUs = 20
	cfg.DutyCycle = 0.9

	topo, err := NewRotorTopology(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := topo.SlotTimeUs(); math.Abs(got-200.0) > 1e-9 {
		t.Errorf("Slot time: expected 200, got %g", got)
	}
	if got := topo.NumMatchings(); got != 3 {
		t.Errorf("Matchings per switch: expected 3, got %d", got)
	}
	if got := topo.CycleTimeUs(); math.Abs(got-600.0) > 1e-9 {
		t.Errorf("Cycle time: expected 600, got %g", got)
	}
}

func TestConnectedRackReconfigWindow(t *testing.T) {
	cfg := topoConfig(4, 1)
	topo, err := NewRotorTopology(cfg)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("slot start is dark", func(t *testing.T) {
		if _, ok := topo.ConnectedRack(0, 0, 0.0); ok {
			t.Error("Expected no path during reconfiguration window")
		}
		if _, ok := topo.ConnectedRack(0, 0, cfg.ReconfigDelayUs-0.001); ok {
			t.Error("Expected no path just before reconfig delay elapses")
		}
	})

	t.Run("open exactly at reconfig delay", func(t *testing.T) {
		dst, ok := topo.ConnectedRack(0, 0, cfg.ReconfigDelayUs)
		if !ok {
			t.Fatal("Expected path exactly at reconfig delay")
		}
		if dst == 0 || dst < 0 || dst >= 4 {
			t.Errorf("Connected rack out of range: %d", dst)
		}
	})

	t.Run("invalid switch", func(t *testing.T) {
		if _, ok := topo.ConnectedRack(0, 7, cfg.ReconfigDelayUs); ok {
			t.Error("Expected no path on nonexistent switch")
		}
	})
}

func TestEveryPairConnectedOncePerCycle(t *testing.T) {
	for _, tc := range []struct{ racks, switches int }{
		{4, 1}, {8, 2}, {16, 4}, {6, 3}, {16, 3},
	} {
		cfg := topoConfig(tc.racks, tc.switches)
		topo, err := NewRotorTopology(cfg)
		if err != nil {
			t.Fatalf("R=%d S=%d: %v", tc.racks, tc.switches, err)
		}

		probe := cfg.ReconfigDelayUs + (cfg.SlotTimeUs()-cfg.ReconfigDelayUs)/2
		for i := 0; i < tc.racks; i++ {
			for j := i + 1; j < tc.racks; j++ {
				count := 0
				for slot := 0; slot < topo.NumMatchings(); slot++ {
					at := float64(slot)*cfg.SlotTimeUs() + probe
					if topo.HasDirectPath(i, j, at) {
						count++
					}
					// Direct paths are symmetric
					if topo.HasDirectPath(i, j, at) != topo.HasDirectPath(j, i, at) {
						t.Errorf("R=%d S=%d: asymmetric path %d<->%d at %g", tc.racks, tc.switches, i, j, at)
					}
				}
				if count != 1 {
					t.Errorf("R=%d S=%d: pair (%d,%d) connected in %d slots per cycle, want 1",
						tc.racks, tc.switches, i, j, count)
				}
			}
		}
	}
}

func TestNextDirectPathTime(t *testing.T) {
	cfg := topoConfig(4, 1)
	topo, err := NewRotorTopology(cfg)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("returns the opening instant", func(t *testing.T) {
		for dst := 1; dst < 4; dst++ {
			at := topo.NextDirectPathTime(0, dst, 0.0)
			if !topo.HasDirectPath(0, dst, at) {
				t.Errorf("Path 0->%d not open at returned time %g", dst, at)
			}
			if at < 0 || at >= topo.CycleTimeUs() {
				t.Errorf("Path 0->%d: time %g outside first cycle", dst, at)
			}
			// One tick earlier the path must be closed (or in the past)
			if at > 0 && topo.HasDirectPath(0, dst, at-0.001) {
				t.Errorf("Path 0->%d already open before returned time %g", dst, at)
			}
		}
	})

	t.Run("already open returns now", func(t *testing.T) {
		// Find some pair's open instant, then probe from inside the window
		open := topo.NextDirectPathTime(0, 1, 0.0)
		inside := open + 50.0
		if !topo.HasDirectPath(0, 1, inside) {
			t.Fatalf("Expected 0->1 open at %g", inside)
		}
		if got := topo.NextDirectPathTime(0, 1, inside); got != inside {
			t.Errorf("Expected now (%g), got %g", inside, got)
		}
	})

	t.Run("wraps to the next cycle", func(t *testing.T) {
		open := topo.NextDirectPathTime(0, 1, 0.0)
		// Just after this slot closes, the next opening is one cycle later
		slotEnd := math.Floor(open/topo.SlotTimeUs())*topo.SlotTimeUs() + topo.SlotTimeUs()
		next := topo.NextDirectPathTime(0, 1, slotEnd)
		if next <= slotEnd {
			t.Fatalf("Expected future opening, got %g", next)
		}
		if !topo.HasDirectPath(0, 1, next) {
			t.Errorf("Path 0->1 not open at %g", next)
		}
		if got := next - open; math.Abs(got-topo.CycleTimeUs()) > 1e-6 {
			t.Errorf("Expected next opening one cycle after %g, got %g (+%g)", open, next, got)
		}
	})
}

func TestScheduleExportRoundTrip(t *testing.T) {
	cfg := topoConfig(8, 2)
	topo, err := NewRotorTopology(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"schedule.yaml", "schedule.json"} {
		path := t.TempDir() + "/" + name
		if err := topo.WriteSchedule(path); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		desc, err := ReadScheduleFile(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		want := topo.ScheduleDesc()
		if desc.NumRacks != want.NumRacks || desc.NumSwitches != want.NumSwitches ||
			desc.SlotTimeUs != want.SlotTimeUs || desc.CycleTimeUs != want.CycleTimeUs {
			t.Errorf("%s: header mismatch: got %+v want %+v", name, desc, want)
		}
		if len(desc.Switches) != len(want.Switches) {
			t.Fatalf("%s: switch count mismatch", name)
		}
		for s := range want.Switches {
			if len(desc.Switches[s].Matchings) != len(want.Switches[s].Matchings) {
				t.Fatalf("%s: switch %d matching count mismatch", name, s)
			}
			for m := range want.Switches[s].Matchings {
				for r, dst := range want.Switches[s].Matchings[m] {
					if desc.Switches[s].Matchings[m][r] != dst {
						t.Errorf("%s: switch %d matching %d rack %d: got %d want %d",
							name, s, m, r, desc.Switches[s].Matchings[m][r], dst)
					}
				}
			}
		}
	}
}
