package plic

import (
	"sync"
	"testing"
)

func TestStateLifecycle(t *testing.T) {
	s := newInterruptState(nil)

	if !s.inject(5) {
		t.Fatalf("inject(5) reported not newly pending")
	}
	if s.inject(5) {
		t.Fatalf("second inject(5) reported newly pending")
	}
	if got := s.lowestPending(); got != 5 {
		t.Fatalf("lowestPending = %d, want 5", got)
	}

	if got := s.claimLowest(nil); got != 5 {
		t.Fatalf("claimLowest = %d, want 5", got)
	}
	if s.isPending(5) || !s.isActive(5) {
		t.Fatalf("source 5 not moved pending -> active")
	}

	s.complete(5)
	if s.isActive(5) {
		t.Fatalf("source 5 still active after complete")
	}
	if !s.pendingEmpty() {
		t.Fatalf("pending set not empty")
	}
}

func TestStateClaimSkipsIneligible(t *testing.T) {
	s := newInterruptState(nil)

	s.inject(2)
	s.inject(3)

	got := s.claimLowest(func(source uint32) bool { return source != 2 })
	if got != 3 {
		t.Fatalf("claimLowest = %d, want 3", got)
	}
	if !s.isPending(2) {
		t.Fatalf("ineligible source 2 was consumed")
	}
}

func TestStateInjectWordMasksSourceZero(t *testing.T) {
	s := newInterruptState(nil)

	if newly := s.injectWord(0, 0xFFFFFFFF); newly != 31 {
		t.Fatalf("injectWord counted %d new sources, want 31", newly)
	}
	if s.isPending(0) {
		t.Fatalf("reserved source 0 is pending")
	}
	if got := s.pendingWord(0); got != 0xFFFFFFFE {
		t.Fatalf("pending word 0 = 0x%08x, want 0xFFFFFFFE", got)
	}
}

func TestStateConcurrentClaims(t *testing.T) {
	s := newInterruptState(nil)

	const n = 128
	for i := uint32(1); i <= n; i++ {
		s.inject(i)
	}

	claims := make(chan uint32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claims <- s.claimLowest(nil)
		}()
	}
	wg.Wait()
	close(claims)

	seen := map[uint32]bool{}
	for id := range claims {
		if id == 0 || seen[id] {
			t.Fatalf("claim stream lost or duplicated source %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("claimed %d sources, want %d", len(seen), n)
	}
}

func TestStateLineFollowsPendingSet(t *testing.T) {
	line := &testLine{}
	s := newInterruptState(line)

	s.inject(10)
	if !line.high() {
		t.Fatalf("line low after inject")
	}

	s.clearPending(10)
	if line.high() {
		t.Fatalf("line high after clearing the only pending source")
	}

	s.inject(11)
	s.inject(12)
	if got := s.claimLowest(nil); got != 11 {
		t.Fatalf("claim = %d, want 11", got)
	}

	// 12 still pending: completion must not drop the line.
	s.complete(11)
	if !line.high() {
		t.Fatalf("line dropped while a source is still pending")
	}

	if got := s.claimLowest(nil); got != 12 {
		t.Fatalf("claim = %d, want 12", got)
	}
	s.complete(12)
	if line.high() {
		t.Fatalf("line high after the last completion")
	}
}

func TestStateAssign(t *testing.T) {
	s := newInterruptState(nil)

	s.assign(40)
	s.assign(0) // reserved, ignored

	if !s.isAssigned(40) {
		t.Fatalf("source 40 not assigned")
	}
	if s.isAssigned(0) || s.isAssigned(41) {
		t.Fatalf("unexpected assigned membership")
	}
	if s.isPending(40) {
		t.Fatalf("assignment leaked into the pending set")
	}
}
