// Package vplic emulates the guest-facing register file of a RISC-V
// platform-level interrupt controller (PLIC) on top of a real hardware
// controller. Priority, enable and threshold registers pass through to
// the hardware at a mirrored host address; pending words and the
// claim/complete protocol are virtualized so a hypervisor can inject
// interrupts into the guest without touching the hardware pending bits.
package vplic

import (
	"github.com/tinyrange/vplic/internal/chipset"
	"github.com/tinyrange/vplic/internal/devices/riscv64/plic"
	"github.com/tinyrange/vplic/internal/hostmmio"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from the internal device packages
// -----------------------------------------------------------------------------

// Config describes one virtual PLIC instance.
type Config = plic.Config

// Device is the virtual PLIC device.
type Device = plic.Device

// Stats counts interrupt flow through the controller.
type Stats = plic.Stats

// HostController performs raw register accesses against the physical
// interrupt controller.
type HostController = plic.HostController

// AccessFault describes a rejected or failed register access.
type AccessFault = plic.AccessFault

// LineInterrupt is the guest external-interrupt pending line.
type LineInterrupt = chipset.LineInterrupt

// Register layout constants for the PLIC 1.0.0 memory map.
const (
	PriorityBase        = plic.PriorityBase
	PendingBase         = plic.PendingBase
	EnableBase          = plic.EnableBase
	EnableStride        = plic.EnableStride
	ContextBase         = plic.ContextBase
	ContextStride       = plic.ContextStride
	ClaimCompleteOffset = plic.ClaimCompleteOffset
	MaxSources          = plic.MaxSources
)

// Fault sentinels. Use errors.Is against the error returned by
// Device.ReadMMIO / Device.WriteMMIO.
var (
	ErrInvalidWidth     = plic.ErrInvalidWidth
	ErrInvalidContext   = plic.ErrInvalidContext
	ErrUnmappedRegister = plic.ErrUnmappedRegister
	ErrHostAccess       = plic.ErrHostAccess
)

// New builds a virtual PLIC from the configuration. Construction fails
// when the register window cannot cover every context's control
// registers.
func New(cfg Config) (*Device, error) {
	return plic.New(cfg)
}

// LineFromFunc adapts a level function to a LineInterrupt, e.g. a
// closure that sets or clears the guest's external-interrupt pending
// bit (VSEIP on RISC-V).
func LineFromFunc(fn func(high bool)) LineInterrupt {
	return chipset.LineInterruptFromFunc(fn)
}

// NewMemController returns a HostController backed by an in-memory
// register window at base. It stands in for the hardware PLIC in tests
// and simulations.
func NewMemController(base uint64, size uint64) HostController {
	return hostmmio.NewWindow(base, make([]byte, size))
}

// OpenHostController maps the physical controller window (via /dev/mem
// on linux) for real passthrough.
func OpenHostController(base, size uint64) (HostController, func() error, error) {
	m, err := hostmmio.OpenDevMem(base, size)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Close, nil
}
