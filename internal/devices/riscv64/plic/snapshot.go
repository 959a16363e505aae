package plic

import (
	"encoding/gob"
	"fmt"

	"github.com/tinyrange/vplic/internal/hv"
)

func init() {
	// Register snapshot types for gob encoding/decoding so device
	// snapshots survive VM snapshot serialization.
	gob.Register(&deviceSnapshot{})
}

type deviceSnapshot struct {
	Pending  []uint32
	Active   []uint32
	Assigned []uint32
}

// CaptureSnapshot implements hv.DeviceSnapshotter.
func (d *Device) CaptureSnapshot() (hv.DeviceSnapshot, error) {
	s := d.state

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &deviceSnapshot{}
	for source := uint32(1); source < MaxSources; source++ {
		switch s.states[source] {
		case sourcePending:
			snap.Pending = append(snap.Pending, source)
		case sourceActive:
			snap.Active = append(snap.Active, source)
		}
		if s.assigned[source/32]&(1<<(source%32)) != 0 {
			snap.Assigned = append(snap.Assigned, source)
		}
	}
	return snap, nil
}

// RestoreSnapshot implements hv.DeviceSnapshotter. The guest line is
// re-derived from the restored pending set.
func (d *Device) RestoreSnapshot(snap hv.DeviceSnapshot) error {
	data, ok := snap.(*deviceSnapshot)
	if !ok {
		return fmt.Errorf("plic: invalid snapshot type %T", snap)
	}

	for _, source := range data.Pending {
		if source == 0 || source >= MaxSources {
			return fmt.Errorf("plic: snapshot pending source %d out of range", source)
		}
	}
	for _, source := range data.Active {
		if source == 0 || source >= MaxSources {
			return fmt.Errorf("plic: snapshot active source %d out of range", source)
		}
	}

	s := d.state

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = [MaxSources]sourceState{}
	s.assigned = [pendingWords]uint32{}
	s.pendingCount = 0

	for _, source := range data.Pending {
		s.states[source] = sourcePending
		s.pendingCount++
	}
	for _, source := range data.Active {
		s.states[source] = sourceActive
	}
	for _, source := range data.Assigned {
		if source > 0 && source < MaxSources {
			s.assigned[source/32] |= 1 << (source % 32)
		}
	}

	s.line.SetLevel(s.pendingCount > 0)

	return nil
}
