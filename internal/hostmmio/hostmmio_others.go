//go:build !linux

package hostmmio

// DevMem is a Window backed by a physical device mapping. It is only
// available on linux.
type DevMem struct {
	*Window
}

// OpenDevMem is unsupported on this platform.
func OpenDevMem(base, size uint64) (*DevMem, error) {
	return nil, ErrUnsupported
}

// Close implements io.Closer.
func (m *DevMem) Close() error { return nil }
