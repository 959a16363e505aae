package plic

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	m := registerMap{contexts: 2}

	tests := []struct {
		name   string
		offset uint64
		kind   regionKind
		index  int
		err    error
	}{
		{"priority source 0", 0x0, regionPriority, 0, nil},
		{"priority source 1", 0x4, regionPriority, 1, nil},
		{"priority source 1023", 0xFFC, regionPriority, 1023, nil},
		{"pending word 0", PendingBase, regionPending, 0, nil},
		{"pending word 31", PendingBase + 31*4, regionPending, 31, nil},
		{"pending beyond last word", PendingBase + 32*4, regionUnmapped, 0, ErrUnmappedRegister},
		{"enable context 0", EnableBase, regionEnable, 0, nil},
		{"enable context 1 word 3", EnableBase + EnableStride + 12, regionEnable, 1, nil},
		{"enable context 2", EnableBase + 2*EnableStride, regionEnable, 2, ErrInvalidContext},
		{"threshold context 0", ContextBase, regionThreshold, 0, nil},
		{"claim context 0", ContextBase + 4, regionClaimComplete, 0, nil},
		{"threshold context 1", ContextBase + ContextStride, regionThreshold, 1, nil},
		{"claim context 1", ContextBase + ContextStride + 4, regionClaimComplete, 1, nil},
		{"threshold context 2", ContextBase + 2*ContextStride, regionThreshold, 2, ErrInvalidContext},
		{"claim context 2", ContextBase + 2*ContextStride + 4, regionClaimComplete, 2, ErrInvalidContext},
		{"context window hole", ContextBase + 8, regionUnmapped, 0, ErrUnmappedRegister},
		{"unaligned", 0x2, regionUnmapped, 0, ErrUnmappedRegister},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, index, err := m.classify(tt.offset)
			if !errors.Is(err, tt.err) {
				t.Fatalf("classify(0x%x) error = %v, want %v", tt.offset, err, tt.err)
			}
			if kind != tt.kind {
				t.Fatalf("classify(0x%x) kind = %v, want %v", tt.offset, kind, tt.kind)
			}
			if err == nil && index != tt.index {
				t.Fatalf("classify(0x%x) index = %d, want %d", tt.offset, index, tt.index)
			}
		})
	}
}

func TestRegisterOffsets(t *testing.T) {
	if got := priorityOffset(10); got != 0x28 {
		t.Fatalf("priorityOffset(10) = 0x%x, want 0x28", got)
	}
	if got := enableWordOffset(1, 42); got != EnableBase+EnableStride+4 {
		t.Fatalf("enableWordOffset(1, 42) = 0x%x, want 0x%x", got, uint64(EnableBase+EnableStride+4))
	}
	if got := thresholdOffset(3); got != ContextBase+3*ContextStride {
		t.Fatalf("thresholdOffset(3) = 0x%x, want 0x%x", got, uint64(ContextBase+3*ContextStride))
	}
}
