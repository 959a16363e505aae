// Package plic emulates the guest-facing register file of a RISC-V
// platform-level interrupt controller on top of a real hardware PLIC.
//
// Priority, enable and threshold registers pass through to the hardware
// controller at a mirrored host address. Pending words and the
// claim/complete protocol are virtualized: the hypervisor injects
// sources through the pending region (or SetPending), the guest claims
// the lowest pending source by reading claim/complete, and retires it by
// writing the id back, which also forwards the completion to hardware.
package plic

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/tinyrange/vplic/internal/chipset"
	"github.com/tinyrange/vplic/internal/hv"
)

// HostController performs raw register accesses against the physical
// interrupt controller. size is one of 1, 2, 4 or 8 bytes.
type HostController interface {
	ReadRegister(addr uint64, size int) (uint64, error)
	WriteRegister(addr uint64, size int, value uint64) error
}

// Config describes one virtual PLIC instance.
type Config struct {
	// Base and Size place the register window in the guest physical
	// address space. Size must cover every context's control registers.
	Base uint64
	Size uint64

	// Contexts is the number of interrupt consumers (hart/privilege
	// pairs) the guest may address.
	Contexts int

	// HostBase is the physical address of the hardware controller. Zero
	// means the hardware mirrors the guest layout at Base.
	HostBase uint64

	// Host carries passthrough accesses and completion forwards.
	Host HostController

	// Line is the guest external-interrupt pending line. Nil detaches it.
	Line chipset.LineInterrupt

	// ClaimFiltering makes claim selection consult the hardware enable
	// bit, priority and threshold for the claiming context instead of
	// handing out the lowest pending source unconditionally.
	ClaimFiltering bool
}

// Stats counts interrupt flow through the controller.
type Stats struct {
	Injected  uint64
	Claimed   uint64
	Completed uint64
	Faults    uint64
}

// Device is the virtual PLIC. It implements hv.MemoryMappedIODevice for
// the trap dispatcher and chipset.InterruptSink for device lines.
type Device struct {
	base     uint64
	size     uint64
	hostBase uint64
	contexts int

	host      HostController
	regs      registerMap
	state     *interruptState
	filtering bool

	injected  atomic.Uint64
	claimed   atomic.Uint64
	completed atomic.Uint64
	faults    atomic.Uint64
}

// New validates the configuration and builds the device. Construction
// fails when the window cannot cover every context's control registers.
func New(cfg Config) (*Device, error) {
	if cfg.Contexts <= 0 {
		return nil, fmt.Errorf("plic: context count %d is not positive", cfg.Contexts)
	}
	if cfg.Host == nil {
		return nil, fmt.Errorf("plic: host controller is required")
	}

	required := uint64(cfg.Contexts)*ContextStride + ContextBase + ClaimCompleteOffset
	if cfg.Size <= required {
		return nil, fmt.Errorf(
			"plic: window size 0x%x does not cover %d contexts (need more than 0x%x)",
			cfg.Size, cfg.Contexts, required)
	}

	hostBase := cfg.HostBase
	if hostBase == 0 {
		hostBase = cfg.Base
	}

	return &Device{
		base:      cfg.Base,
		size:      cfg.Size,
		hostBase:  hostBase,
		contexts:  cfg.Contexts,
		host:      cfg.Host,
		regs:      registerMap{contexts: cfg.Contexts},
		state:     newInterruptState(cfg.Line),
		filtering: cfg.ClaimFiltering,
	}, nil
}

// DeviceId reports the device class tag used for dispatch registration
// and snapshot keying.
func (d *Device) DeviceId() string { return "riscv-plic" }

// Init implements hv.Device.
func (d *Device) Init(vm hv.VirtualMachine) error {
	_ = vm
	return nil
}

// Start implements chipset.ChangeDeviceState.
func (d *Device) Start() error { return nil }

// Stop implements chipset.ChangeDeviceState.
func (d *Device) Stop() error { return nil }

// Reset implements chipset.ChangeDeviceState. Every source returns to
// idle and the guest line drops; hardware registers are untouched.
func (d *Device) Reset() error {
	d.state.reset()
	return nil
}

// MMIORegions implements hv.MemoryMappedIODevice.
func (d *Device) MMIORegions() []hv.MMIORegion {
	return []hv.MMIORegion{{Address: d.base, Size: d.size}}
}

// SupportsMmio implements chipset.ChipsetDevice.
func (d *Device) SupportsMmio() *chipset.MmioIntercept {
	return &chipset.MmioIntercept{
		Regions: d.MMIORegions(),
		Handler: d,
	}
}

// SupportsPollDevice implements chipset.ChipsetDevice.
func (d *Device) SupportsPollDevice() *chipset.PollDevice { return nil }

// ReadMMIO implements hv.MemoryMappedIODevice.
func (d *Device) ReadMMIO(addr uint64, data []byte) error {
	if !d.inRange(addr, uint64(len(data))) {
		d.faults.Add(1)
		return readFault(addr, len(data), ErrUnmappedRegister)
	}
	offset := addr - d.base

	if len(data) != accessWidth {
		d.faults.Add(1)
		return readFault(offset, len(data), ErrInvalidWidth)
	}

	kind, index, err := d.regs.classify(offset)
	if err != nil {
		d.faults.Add(1)
		return readFault(offset, len(data), err)
	}

	var value uint32
	switch kind {
	case regionPriority, regionEnable, regionThreshold:
		raw, err := d.host.ReadRegister(d.hostBase+offset, accessWidth)
		if err != nil {
			d.faults.Add(1)
			return readFault(offset, len(data), fmt.Errorf("%w: %v", ErrHostAccess, err))
		}
		value = uint32(raw)

	case regionPending:
		value = d.state.pendingWord(index)

	case regionClaimComplete:
		claimed, err := d.claim(index)
		if err != nil {
			d.faults.Add(1)
			return readFault(offset, len(data), err)
		}
		value = claimed
	}

	binary.LittleEndian.PutUint32(data, value)
	return nil
}

// WriteMMIO implements hv.MemoryMappedIODevice.
func (d *Device) WriteMMIO(addr uint64, data []byte) error {
	if !d.inRange(addr, uint64(len(data))) {
		d.faults.Add(1)
		return writeFault(addr, len(data), ErrUnmappedRegister)
	}
	offset := addr - d.base

	if len(data) != accessWidth {
		d.faults.Add(1)
		return writeFault(offset, len(data), ErrInvalidWidth)
	}
	value := binary.LittleEndian.Uint32(data)

	kind, index, err := d.regs.classify(offset)
	if err != nil {
		d.faults.Add(1)
		return writeFault(offset, len(data), err)
	}

	switch kind {
	case regionPriority, regionEnable, regionThreshold:
		if err := d.host.WriteRegister(d.hostBase+offset, accessWidth, uint64(value)); err != nil {
			d.faults.Add(1)
			return writeFault(offset, len(data), fmt.Errorf("%w: %v", ErrHostAccess, err))
		}

	case regionPending:
		// Injection side-channel for the hypervisor: set bits mark
		// sources pending, clear bits change nothing.
		newly := d.state.injectWord(index, value)
		d.injected.Add(uint64(newly))

	case regionClaimComplete:
		d.state.complete(value)
		d.completed.Add(1)
		// The hardware reconciles completions for ids it never handed
		// out, so the forward is unconditional.
		if err := d.host.WriteRegister(d.hostBase+offset, accessWidth, uint64(value)); err != nil {
			d.faults.Add(1)
			return writeFault(offset, len(data), fmt.Errorf("%w: %v", ErrHostAccess, err))
		}
	}

	return nil
}

// claim hands the lowest claimable pending source to the context and
// marks it active. 0 means nothing is pending (or claimable).
func (d *Device) claim(context int) (uint32, error) {
	var eligible func(source uint32) bool
	var hostErr error

	if d.filtering {
		threshold, err := d.host.ReadRegister(d.hostBase+thresholdOffset(context), accessWidth)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrHostAccess, err)
		}
		eligible = func(source uint32) bool {
			if hostErr != nil {
				return false
			}
			ok, err := d.sourceDeliverable(context, source, uint32(threshold))
			if err != nil {
				hostErr = err
				return false
			}
			return ok
		}
	}

	source := d.state.claimLowest(eligible)
	if hostErr != nil {
		return 0, fmt.Errorf("%w: %v", ErrHostAccess, hostErr)
	}
	if source != 0 {
		d.claimed.Add(1)
	}
	return source, nil
}

// sourceDeliverable checks the hardware enable bit, priority and
// threshold for one source/context pair.
func (d *Device) sourceDeliverable(context int, source uint32, threshold uint32) (bool, error) {
	enable, err := d.host.ReadRegister(d.hostBase+enableWordOffset(context, source), accessWidth)
	if err != nil {
		return false, err
	}
	if enable&(1<<(source%32)) == 0 {
		return false, nil
	}

	priority, err := d.host.ReadRegister(d.hostBase+priorityOffset(source), accessWidth)
	if err != nil {
		return false, err
	}
	return uint32(priority) > threshold, nil
}

// SetPending adjusts a source's pending state from outside the register
// file, e.g. from the hypervisor's injection logic or a virtual device
// line. Raising a source asserts the guest line; lowering one deasserts
// it once nothing is pending.
func (d *Device) SetPending(source uint32, pending bool) {
	if pending {
		if d.state.inject(source) {
			d.injected.Add(1)
		}
	} else {
		d.state.clearPending(source)
	}
}

// SetIRQ implements chipset.InterruptSink so virtual device lines can
// target PLIC sources directly.
func (d *Device) SetIRQ(source uint32, level bool) {
	d.SetPending(source, level)
}

// Inject marks a source pending.
func (d *Device) Inject(source uint32) {
	d.SetPending(source, true)
}

// Assign reserves sources for this controller instance. Assignment is
// static configuration and does not gate the interrupt flow.
func (d *Device) Assign(sources ...uint32) {
	for _, source := range sources {
		d.state.assign(source)
	}
}

// Assigned reports whether a source is reserved for this controller.
func (d *Device) Assigned(source uint32) bool {
	return d.state.isAssigned(source)
}

// IsPending reports whether a source is awaiting a claim.
func (d *Device) IsPending(source uint32) bool {
	return d.state.isPending(source)
}

// IsActive reports whether a source has been claimed and not completed.
func (d *Device) IsActive(source uint32) bool {
	return d.state.isActive(source)
}

// PendingEmpty reports whether no source is pending.
func (d *Device) PendingEmpty() bool {
	return d.state.pendingEmpty()
}

// LowestPending peeks at the next claimable source without claiming it.
func (d *Device) LowestPending() uint32 {
	return d.state.lowestPending()
}

// Contexts returns the configured context count.
func (d *Device) Contexts() int { return d.contexts }

// Stats returns a snapshot of the flow counters.
func (d *Device) Stats() Stats {
	return Stats{
		Injected:  d.injected.Load(),
		Claimed:   d.claimed.Load(),
		Completed: d.completed.Load(),
		Faults:    d.faults.Load(),
	}
}

// inRange reports whether the access falls inside the device window.
func (d *Device) inRange(addr, size uint64) bool {
	if addr < d.base {
		return false
	}
	end := addr + size
	return end >= addr && end <= d.base+d.size
}

var (
	_ hv.MemoryMappedIODevice = (*Device)(nil)
	_ chipset.ChipsetDevice   = (*Device)(nil)
	_ chipset.InterruptSink   = (*Device)(nil)
	_ hv.DeviceSnapshotter    = (*Device)(nil)
)
