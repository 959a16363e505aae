//go:build linux

package hostmmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DevMem is a Window backed by a /dev/mem mapping of a physical device.
type DevMem struct {
	*Window

	file    *os.File
	mapping []byte
}

// OpenDevMem maps size bytes of physical address space starting at base.
// base does not need to be page aligned; the mapping is aligned down and
// the window adjusted.
func OpenDevMem(base, size uint64) (*DevMem, error) {
	if size == 0 {
		return nil, fmt.Errorf("hostmmio: zero-size mapping at 0x%x", base)
	}

	f, err := os.OpenFile("/dev/mem", os.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("hostmmio: open /dev/mem: %w", err)
	}

	pageSize := uint64(unix.Getpagesize())
	mapBase := base &^ (pageSize - 1)
	skew := base - mapBase
	mapSize := (size + skew + pageSize - 1) &^ (pageSize - 1)

	mapping, err := unix.Mmap(int(f.Fd()), int64(mapBase), int(mapSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hostmmio: mmap 0x%x size 0x%x: %w", mapBase, mapSize, err)
	}

	return &DevMem{
		Window:  NewWindow(base, mapping[skew:skew+size]),
		file:    f,
		mapping: mapping,
	}, nil
}

// Close unmaps the window and releases the /dev/mem handle.
func (m *DevMem) Close() error {
	err := unix.Munmap(m.mapping)
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}
