package simulator

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// ScheduleDesc is the serializable form of a rotor matching schedule.
// Serialization to json or to yaml is selected based on the file extension.
type ScheduleDesc struct {
	NumRacks        int              `json:"numracks" yaml:"numracks"`
	NumSwitches     int              `json:"numswitches" yaml:"numswitches"`
	NumMatchings    int              `json:"nummatchings" yaml:"nummatchings"`
	SlotTimeUs      float64          `json:"slottimeus" yaml:"slottimeus"`
	CycleTimeUs     float64          `json:"cycletimeus" yaml:"cycletimeus"`
	ReconfigDelayUs float64          `json:"reconfigdelayus" yaml:"reconfigdelayus"`
	Switches        []SwitchSchedule `json:"switches" yaml:"switches"`
}

// SwitchSchedule lists one switch's owned matchings in slot order
type SwitchSchedule struct {
	Switch    int     `json:"switch" yaml:"switch"`
	Matchings [][]int `json:"matchings" yaml:"matchings"`
}

// ScheduleDesc builds the serializable description of this topology
func (t *RotorTopology) ScheduleDesc() *ScheduleDesc {
	desc := &ScheduleDesc{
		NumRacks:        t.numRacks,
		NumSwitches:     t.numSwitches,
		NumMatchings:    t.numMatchings,
		SlotTimeUs:      t.slotTimeUs,
		CycleTimeUs:     t.cycleTimeUs,
		ReconfigDelayUs: t.reconfigDelayUs,
	}
	for s, owned := range t.matchings {
		sw := SwitchSchedule{Switch: s}
		for _, m := range owned {
			cp := make([]int, len(m))
			copy(cp, m)
			sw.Matchings = append(sw.Matchings, cp)
		}
		desc.Switches = append(desc.Switches, sw)
	}
	return desc
}

// WriteSchedule writes the matching schedule to a file whose format is
// selected by extension: .yaml/.yml for yaml, anything else json.
func (t *RotorTopology) WriteSchedule(filename string) error {
	desc := t.ScheduleDesc()

	var bytes []byte
	var merr error
	pathExt := path.Ext(filename)
	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(desc)
	} else {
		bytes, merr = json.MarshalIndent(desc, "", "  ")
	}
	if merr != nil {
		return merr
	}
	if err := os.WriteFile(filename, bytes, 0644); err != nil {
		return fmt.Errorf("writing schedule to %s: %w", filename, err)
	}
	return nil
}

// ReadScheduleFile reads a schedule description previously written by
// WriteSchedule, with the format again selected by extension.
func ReadScheduleFile(filename string) (*ScheduleDesc, error) {
	dict, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schedule from %s: %w", filename, err)
	}
	var desc ScheduleDesc
	pathExt := path.Ext(filename)
	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		err = yaml.Unmarshal(dict, &desc)
	} else {
		err = json.Unmarshal(dict, &desc)
	}
	if err != nil {
		return nil, err
	}
	return &desc, nil
}
