package simulator

import "testing"

func TestFlowNumPackets(t *testing.T) {
	cases := []struct {
		sizeBytes uint64
		mtu       int
		want      int
	}{
		{1, 1500, 1},
		{1500, 1500, 1},
		{1501, 1500, 2},
		{3000, 1500, 2},
		{3001, 1500, 3},
		{15000, 1500, 10},
	}
	for _, tc := range cases {
		f := &Flow{SizeBytes: tc.sizeBytes}
		if got := f.NumPackets(tc.mtu); got != tc.want {
			t.Errorf("NumPackets(%d bytes, mtu %d): expected %d, got %d",
				tc.sizeBytes, tc.mtu, tc.want, got)
		}
	}
}

func TestFlowFCT(t *testing.T) {
	f := &Flow{StartTimeMs: 1.5}
	if got := f.FCT(); got != -1.0 {
		t.Errorf("Incomplete flow FCT: expected -1, got %g", got)
	}

	f.Completed = true
	f.CompletionTimeMs = 4.0
	if got := f.FCT(); got != 2.5 {
		t.Errorf("FCT: expected 2.5, got %g", got)
	}
}

func TestFlowTypeRoundTrip(t *testing.T) {
	for _, ft := range []FlowType{FlowBulk, FlowLowLatency} {
		parsed, err := ParseFlowType(ft.String())
		if err != nil {
			t.Fatalf("%s: %v", ft, err)
		}
		if parsed != ft {
			t.Errorf("Round trip %s: got %s", ft, parsed)
		}
	}
	if _, err := ParseFlowType("express"); err == nil {
		t.Error("Expected error for unknown flow type")
	}
}
