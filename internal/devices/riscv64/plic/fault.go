package plic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWidth reports an access that is not exactly 4 bytes wide.
	ErrInvalidWidth = errors.New("access width is not 4 bytes")

	// ErrInvalidContext reports a decoded context id at or beyond the
	// configured context count.
	ErrInvalidContext = errors.New("context id out of range")

	// ErrUnmappedRegister reports an offset that matches no register.
	ErrUnmappedRegister = errors.New("offset matches no register")

	// ErrHostAccess reports a failed passthrough access to the hardware
	// controller.
	ErrHostAccess = errors.New("host register access failed")
)

// AccessFault describes a rejected or failed register access. The
// dispatcher is expected to turn it into a guest-visible access fault;
// the device itself never mutates state on a faulting access.
type AccessFault struct {
	Op     string // "read" or "write"
	Offset uint64
	Width  int
	Err    error
}

func (f *AccessFault) Error() string {
	return fmt.Sprintf("plic: %s offset 0x%x width %d: %v", f.Op, f.Offset, f.Width, f.Err)
}

func (f *AccessFault) Unwrap() error { return f.Err }

func readFault(offset uint64, width int, err error) error {
	return &AccessFault{Op: "read", Offset: offset, Width: width, Err: err}
}

func writeFault(offset uint64, width int, err error) error {
	return &AccessFault{Op: "write", Offset: offset, Width: width, Err: err}
}
