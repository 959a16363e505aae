// Package hostmmio provides typed register access to physical MMIO
// windows, either over a caller-supplied byte slice (tests, simulation)
// or over a /dev/mem mapping of the real device (linux).
package hostmmio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnsupported reports that physical device mappings are not
	// available on this platform.
	ErrUnsupported = errors.New("hostmmio: physical device access unsupported on this platform")
)

// Window exposes typed register reads and writes over a byte window
// that starts at a fixed physical base address. Accesses are
// little-endian and must be naturally aligned.
type Window struct {
	mu sync.Mutex

	base uint64
	mem  []byte
}

// NewWindow wraps an existing byte window located at base.
func NewWindow(base uint64, mem []byte) *Window {
	return &Window{base: base, mem: mem}
}

// Base returns the physical address of the first byte of the window.
func (w *Window) Base() uint64 { return w.base }

// Size returns the window length in bytes.
func (w *Window) Size() uint64 { return uint64(len(w.mem)) }

func (w *Window) offset(addr uint64, size int) (uint64, error) {
	switch size {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("hostmmio: unsupported access size %d", size)
	}
	if addr < w.base {
		return 0, fmt.Errorf("hostmmio: address 0x%x below window base 0x%x", addr, w.base)
	}
	off := addr - w.base
	if off+uint64(size) > uint64(len(w.mem)) {
		return 0, fmt.Errorf("hostmmio: access 0x%x size %d beyond window end 0x%x",
			addr, size, w.base+uint64(len(w.mem)))
	}
	if off%uint64(size) != 0 {
		return 0, fmt.Errorf("hostmmio: unaligned access 0x%x size %d", addr, size)
	}
	return off, nil
}

// ReadRegister reads a register of 1, 2, 4 or 8 bytes at addr.
func (w *Window) ReadRegister(addr uint64, size int) (uint64, error) {
	off, err := w.offset(addr, size)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch size {
	case 1:
		return uint64(w.mem[off]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(w.mem[off:])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(w.mem[off:])), nil
	default:
		return binary.LittleEndian.Uint64(w.mem[off:]), nil
	}
}

// WriteRegister writes a register of 1, 2, 4 or 8 bytes at addr.
func (w *Window) WriteRegister(addr uint64, size int, value uint64) error {
	off, err := w.offset(addr, size)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch size {
	case 1:
		w.mem[off] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(w.mem[off:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(w.mem[off:], uint32(value))
	default:
		binary.LittleEndian.PutUint64(w.mem[off:], value)
	}
	return nil
}
