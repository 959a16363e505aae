package plic

// Register layout from the RISC-V PLIC 1.0.0 memory map. All offsets are
// relative to the controller's base address.
const (
	// PriorityBase is the offset of the priority register for source 0
	// (reserved). Source N's priority lives at PriorityBase + N*4.
	PriorityBase = 0x000000

	// PendingBase is the offset of the first pending word. Word W covers
	// sources [W*32, W*32+31].
	PendingBase = 0x001000

	// EnableBase is the offset of the enable bits for context 0. Context
	// C's enable words start at EnableBase + C*EnableStride.
	EnableBase   = 0x002000
	EnableStride = 0x80

	// ContextBase is the offset of the control registers for context 0.
	// Context C's window starts at ContextBase + C*ContextStride and holds
	// the priority threshold at +0x0 and the claim/complete register at
	// +0x4.
	ContextBase         = 0x200000
	ContextStride       = 0x1000
	ThresholdOffset     = 0x00
	ClaimCompleteOffset = 0x04
)

// MaxSources counts the source id space. Ids run 1..1023; id 0 is
// reserved and never pends.
const MaxSources = 1024

const pendingWords = MaxSources / 32

// accessWidth is the only width the PLIC register file accepts.
const accessWidth = 4

type regionKind int

const (
	regionUnmapped regionKind = iota
	regionPriority
	regionPending
	regionEnable
	regionThreshold
	regionClaimComplete
)

func (k regionKind) String() string {
	switch k {
	case regionPriority:
		return "priority"
	case regionPending:
		return "pending"
	case regionEnable:
		return "enable"
	case regionThreshold:
		return "threshold"
	case regionClaimComplete:
		return "claim/complete"
	default:
		return "unmapped"
	}
}

// registerMap classifies offsets into the five register regions.
type registerMap struct {
	contexts int
}

// classify resolves an offset to its region and index. The index is the
// source id for priority registers, the word index for pending words and
// the context id for enable, threshold and claim/complete registers.
func (m registerMap) classify(offset uint64) (regionKind, int, error) {
	if offset%accessWidth != 0 {
		return regionUnmapped, 0, ErrUnmappedRegister
	}

	switch {
	case offset < PendingBase:
		return regionPriority, int(offset / 4), nil

	case offset < EnableBase:
		word := int((offset - PendingBase) / 4)
		if word >= pendingWords {
			return regionUnmapped, 0, ErrUnmappedRegister
		}
		return regionPending, word, nil

	case offset < ContextBase:
		rel := offset - EnableBase
		context := int(rel / EnableStride)
		if context >= m.contexts {
			return regionEnable, context, ErrInvalidContext
		}
		return regionEnable, context, nil

	default:
		rel := offset - ContextBase
		context := int(rel / ContextStride)
		var kind regionKind
		switch rel % ContextStride {
		case ThresholdOffset:
			kind = regionThreshold
		case ClaimCompleteOffset:
			kind = regionClaimComplete
		default:
			return regionUnmapped, 0, ErrUnmappedRegister
		}
		if context >= m.contexts {
			return kind, context, ErrInvalidContext
		}
		return kind, context, nil
	}
}

// enableWordOffset returns the offset of the enable word covering the
// given source for a context.
func enableWordOffset(context int, source uint32) uint64 {
	return EnableBase + uint64(context)*EnableStride + uint64(source/32)*4
}

// priorityOffset returns the offset of a source's priority register.
func priorityOffset(source uint32) uint64 {
	return PriorityBase + uint64(source)*4
}

// thresholdOffset returns the offset of a context's threshold register.
func thresholdOffset(context int) uint64 {
	return ContextBase + uint64(context)*ContextStride + ThresholdOffset
}
