package hv

// DeviceSnapshot is an opaque, gob-encodable capture of one device's state.
type DeviceSnapshot any

// DeviceSnapshotter is implemented by devices that participate in VM
// snapshotting. DeviceId must be stable across runs as it keys the
// snapshot stream.
type DeviceSnapshotter interface {
	DeviceId() string

	CaptureSnapshot() (DeviceSnapshot, error)
	RestoreSnapshot(snap DeviceSnapshot) error
}

// Snapshot file format constants
const (
	SnapshotMagic   uint32 = 0x534e4150 // "SNAP"
	SnapshotVersion uint32 = 1
)

// Architecture encoding for snapshot files
const (
	SnapshotArchInvalid uint32 = 0
	SnapshotArchRISCV64 uint32 = 3
)

// ArchToSnapshotArch converts a CpuArchitecture to its snapshot file encoding.
func ArchToSnapshotArch(arch CpuArchitecture) uint32 {
	switch arch {
	case ArchitectureRISCV64:
		return SnapshotArchRISCV64
	default:
		return SnapshotArchInvalid
	}
}

// SnapshotArchToArch converts a snapshot file architecture encoding to CpuArchitecture.
func SnapshotArchToArch(arch uint32) CpuArchitecture {
	switch arch {
	case SnapshotArchRISCV64:
		return ArchitectureRISCV64
	default:
		return ArchitectureInvalid
	}
}
