package plic

import (
	"sync"

	"github.com/tinyrange/vplic/internal/chipset"
)

type sourceState uint8

const (
	sourceIdle sourceState = iota
	sourcePending
	sourceActive
)

// interruptState tracks every source's position in the
// idle -> pending -> active -> idle cycle. A single mutex covers the
// source states, the assigned set and the guest line so that a claim, a
// completion and the matching line level change are observed as one
// atomic step. Line callbacks run under the lock and must not call back
// into the device.
type interruptState struct {
	mu sync.Mutex

	line chipset.LineInterrupt

	states   [MaxSources]sourceState
	assigned [pendingWords]uint32

	pendingCount int
}

func newInterruptState(line chipset.LineInterrupt) *interruptState {
	if line == nil {
		line = chipset.LineInterruptDetached()
	}
	return &interruptState{line: line}
}

// inject marks a source pending and reports whether it was newly
// pending. Ids outside 1..1023 and sources already pending or active are
// left untouched. The guest line is asserted whenever the pending set is
// non-empty afterwards.
func (s *interruptState) inject(source uint32) bool {
	if source == 0 || source >= MaxSources {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newly := false
	if s.states[source] == sourceIdle {
		s.states[source] = sourcePending
		s.pendingCount++
		newly = true
	}
	if s.pendingCount > 0 {
		s.line.SetLevel(true)
	}
	return newly
}

// injectWord merges a 32-bit injection mask for pending word w and
// returns the number of newly pending sources. Set bits mark the covered
// sources pending; clear bits leave existing state alone (the pending
// write path is additive).
func (s *interruptState) injectWord(w int, value uint32) int {
	if w < 0 || w >= pendingWords {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newly := 0
	for i := 0; i < 32; i++ {
		if value&(1<<i) == 0 {
			continue
		}
		source := uint32(w*32 + i)
		if source == 0 {
			continue
		}
		if s.states[source] == sourceIdle {
			s.states[source] = sourcePending
			s.pendingCount++
			newly++
		}
	}

	if s.pendingCount > 0 {
		s.line.SetLevel(true)
	}
	return newly
}

// clearPending retires a pending source back to idle without a claim.
// Used by level-triggered collaborators lowering their line. The guest
// line is deasserted once nothing is pending.
func (s *interruptState) clearPending(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states[source] == sourcePending {
		s.states[source] = sourceIdle
		s.pendingCount--
	}
	if s.pendingCount == 0 {
		s.line.SetLevel(false)
	}
}

// claimLowest moves the numerically smallest pending source that
// satisfies eligible (nil accepts every source) to the active state and
// returns its id, or 0 when nothing is claimable. The removal and the
// activation happen under one lock acquisition; no caller can observe
// the source in both sets or in neither.
func (s *interruptState) claimLowest(eligible func(source uint32) bool) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	for source := uint32(1); source < MaxSources; source++ {
		if s.states[source] != sourcePending {
			continue
		}
		if eligible != nil && !eligible(source) {
			continue
		}
		s.states[source] = sourceActive
		s.pendingCount--
		return source
	}
	return 0
}

// complete retires an active source to idle. Per the claim/complete
// protocol the guest line is deasserted when the pending set is empty at
// the time of the write, whether or not the named source was active.
func (s *interruptState) complete(source uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingCount == 0 {
		s.line.SetLevel(false)
	}

	if source > 0 && source < MaxSources && s.states[source] == sourceActive {
		s.states[source] = sourceIdle
	}
}

// pendingWord builds the 32-bit pending bitmap for word w: bit i mirrors
// the pending membership of source w*32+i.
func (s *interruptState) pendingWord(w int) uint32 {
	if w < 0 || w >= pendingWords {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var value uint32
	for i := 0; i < 32; i++ {
		if s.states[w*32+i] == sourcePending {
			value |= 1 << i
		}
	}
	return value
}

func (s *interruptState) isPending(source uint32) bool {
	if source >= MaxSources {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[source] == sourcePending
}

func (s *interruptState) isActive(source uint32) bool {
	if source >= MaxSources {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[source] == sourceActive
}

func (s *interruptState) pendingEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCount == 0
}

// lowestPending reports the numerically smallest pending source without
// claiming it, or 0 when the pending set is empty.
func (s *interruptState) lowestPending() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	for source := uint32(1); source < MaxSources; source++ {
		if s.states[source] == sourcePending {
			return source
		}
	}
	return 0
}

// assign reserves sources for this controller. The assigned set is fixed
// configuration; it does not participate in the claim/complete flow.
func (s *interruptState) assign(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned[source/32] |= 1 << (source % 32)
}

func (s *interruptState) isAssigned(source uint32) bool {
	if source >= MaxSources {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assigned[source/32]&(1<<(source%32)) != 0
}

// reset returns every source to idle and lowers the guest line.
func (s *interruptState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = [MaxSources]sourceState{}
	s.pendingCount = 0
	s.line.SetLevel(false)
}
