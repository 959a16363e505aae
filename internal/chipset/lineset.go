package chipset

import "sync"

// LineSet manages interrupt source lines and completion callbacks.
type LineSet struct {
	mu sync.Mutex

	sink InterruptSink

	lines      map[uint32]*lineState
	completion map[uint32][]func()
}

// NewLineSet builds a LineSet that forwards assertions to the provided sink.
func NewLineSet(sink InterruptSink) *LineSet {
	if sink == nil {
		sink = noopInterruptSink{}
	}
	return &LineSet{
		sink:       sink,
		lines:      make(map[uint32]*lineState),
		completion: make(map[uint32][]func()),
	}
}

// AllocateLine returns a LineInterrupt handle for the given interrupt source.
func (l *LineSet) AllocateLine(source uint32) LineInterrupt {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.lines[source]; !ok {
		l.lines[source] = &lineState{}
	}
	return &lineHandle{owner: l, source: source}
}

// RegisterCompletionCallback registers a callback for the given source.
// The callback is invoked when BroadcastCompletion is called with the
// same source, typically so a level-triggered device can re-assert a
// still-raised line after the guest retires it.
func (l *LineSet) RegisterCompletionCallback(source uint32, fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completion[source] = append(l.completion[source], fn)
}

// BroadcastCompletion notifies listeners that the guest completed the source.
func (l *LineSet) BroadcastCompletion(source uint32) {
	l.mu.Lock()
	callbacks := append([]func(){}, l.completion[source]...)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

type lineState struct {
	level bool
}

type lineHandle struct {
	owner  *LineSet
	source uint32
}

func (h *lineHandle) SetLevel(high bool) {
	h.owner.setLevel(h.source, high)
}

func (h *lineHandle) PulseInterrupt() {
	h.owner.pulse(h.source)
}

func (l *LineSet) setLevel(source uint32, high bool) {
	l.mu.Lock()
	state := l.lines[source]
	if state == nil {
		state = &lineState{}
		l.lines[source] = state
	}
	changed := state.level != high
	state.level = high
	l.mu.Unlock()

	if changed {
		l.sink.SetIRQ(source, high)
	}
}

func (l *LineSet) pulse(source uint32) {
	l.sink.SetIRQ(source, true)
	l.sink.SetIRQ(source, false)
}

type noopInterruptSink struct{}

func (noopInterruptSink) SetIRQ(uint32, bool) {}
