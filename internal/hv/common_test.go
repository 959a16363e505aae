package hv

import "testing"

func TestMMIORegionContains(t *testing.T) {
	r := MMIORegion{Address: 0x1000, Size: 0x100}

	if !r.Contains(0x1000, 4) {
		t.Fatalf("start of region not contained")
	}
	if !r.Contains(0x10FC, 4) {
		t.Fatalf("last word of region not contained")
	}
	if r.Contains(0x10FD, 4) {
		t.Fatalf("access straddling the end contained")
	}
	if r.Contains(0xFFC, 4) {
		t.Fatalf("access below base contained")
	}
	if r.Contains(^uint64(0), 4) {
		t.Fatalf("overflowing access contained")
	}
}

func TestSimpleMMIODevice(t *testing.T) {
	var gotAddr uint64
	dev := SimpleMMIODevice{
		Regions: []MMIORegion{{Address: 0x2000, Size: 0x10}},
		ReadFunc: func(addr uint64, data []byte) error {
			gotAddr = addr
			return nil
		},
	}

	if err := dev.ReadMMIO(0x2004, make([]byte, 4)); err != nil {
		t.Fatalf("ReadMMIO failed: %v", err)
	}
	if gotAddr != 0x2004 {
		t.Fatalf("handler saw address 0x%x", gotAddr)
	}

	// No write handler installed: writes are unhandled.
	if err := dev.WriteMMIO(0x2004, make([]byte, 4)); err == nil {
		t.Fatalf("expected unhandled write error")
	}
}

func TestSnapshotArchRoundtrip(t *testing.T) {
	if got := SnapshotArchToArch(ArchToSnapshotArch(ArchitectureRISCV64)); got != ArchitectureRISCV64 {
		t.Fatalf("roundtrip = %v", got)
	}
	if got := ArchToSnapshotArch("m68k"); got != SnapshotArchInvalid {
		t.Fatalf("unknown architecture encoded as %d", got)
	}
}
