// Package window provides the bounded-time sliding aggregate shared by the
// activity and candidate makers.
package window

import (
	"fmt"
	"slices"
	"sort"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Element is anything a Window can hold: primitives and activities.
type Element interface {
	Start() trigger.Timestamp
	Integral() uint64
	EachChannel(fn func(c trigger.Channel))
}

// Window accumulates elements that start within a fixed span of each other.
// It keeps a running ADC sum and per-channel hit counts so both can be read
// in O(1). A channel entry is deleted when its count drops to zero, so the
// map size is the number of distinct channels hit.
//
// Primitive windows append in arrival order. Ordered windows insert each
// element after every element that starts at or before it.
//
// A Window is owned by a single maker and is not safe for concurrent use.
type Window[T Element] struct {
	timeStart     trigger.Timestamp
	adcIntegral   uint64
	channelStates map[trigger.Channel]int
	inputs        []T
	ordered       bool
}

// New returns an empty append-only window.
func New[T Element]() *Window[T] {
	return &Window[T]{channelStates: make(map[trigger.Channel]int)}
}

// NewOrdered returns an empty window that inserts by start time.
func NewOrdered[T Element]() *Window[T] {
	w := New[T]()
	w.ordered = true
	return w
}

// NewPrimitiveWindow returns the window used by activity makers.
func NewPrimitiveWindow() *Window[trigger.Primitive] {
	return New[trigger.Primitive]()
}

// NewActivityWindow returns the window used by candidate makers.
func NewActivityWindow() *Window[trigger.Activity] {
	return NewOrdered[trigger.Activity]()
}

// IsEmpty reports whether the window holds no elements.
func (w *Window[T]) IsEmpty() bool { return len(w.inputs) == 0 }

// Len returns the number of retained elements.
func (w *Window[T]) Len() int { return len(w.inputs) }

// TimeStart returns the start time of the front element.
func (w *Window[T]) TimeStart() trigger.Timestamp { return w.timeStart }

// ADCIntegral returns the sum of the retained elements' ADC integrals.
func (w *Window[T]) ADCIntegral() uint64 { return w.adcIntegral }

// NChannelsHit returns the number of distinct channels among retained elements.
func (w *Window[T]) NChannelsHit() int { return len(w.channelStates) }

// Inputs returns the retained elements in window order. The slice is only
// valid until the next mutating call.
func (w *Window[T]) Inputs() []T { return w.inputs }

// Front returns the first element. It panics on an empty window.
func (w *Window[T]) Front() T { return w.inputs[0] }

// Back returns the last element. It panics on an empty window.
func (w *Window[T]) Back() T { return w.inputs[len(w.inputs)-1] }

// Add inserts x and updates the running totals. Adding to an empty window
// behaves like Reset.
func (w *Window[T]) Add(x T) {
	if len(w.inputs) == 0 {
		w.Reset(x)
		return
	}
	w.adcIntegral += x.Integral()
	x.EachChannel(w.hit)

	if !w.ordered {
		w.inputs = append(w.inputs, x)
		return
	}
	at := sort.Search(len(w.inputs), func(i int) bool {
		return w.inputs[i].Start() > x.Start()
	})
	w.inputs = slices.Insert(w.inputs, at, x)
	if at == 0 {
		w.timeStart = x.Start()
	}
}

// Move evicts every leading element that started length or more ticks
// before x, then adds x. If eviction empties the window it is reset with x
// instead. An x that starts before the front element evicts nothing.
func (w *Window[T]) Move(x T, length trigger.Timestamp) {
	n := 0
	for _, e := range w.inputs {
		if x.Start() < e.Start() || x.Start()-e.Start() < length {
			break
		}
		w.adcIntegral -= e.Integral()
		e.EachChannel(w.unhit)
		n++
	}
	if n == len(w.inputs) {
		w.Reset(x)
		return
	}
	clear(w.inputs[:n])
	w.inputs = w.inputs[n:]
	w.timeStart = w.inputs[0].Start()
	w.Add(x)
}

// Expire evicts every leading element that started length or more ticks
// before now without adding anything, and returns how many were evicted.
// Makers use it to age a window at a flush horizon.
func (w *Window[T]) Expire(now, length trigger.Timestamp) int {
	n := 0
	for _, e := range w.inputs {
		if now < e.Start() || now-e.Start() < length {
			break
		}
		w.adcIntegral -= e.Integral()
		e.EachChannel(w.unhit)
		n++
	}
	if n == 0 {
		return 0
	}
	if n == len(w.inputs) {
		w.Clear()
		return n
	}
	clear(w.inputs[:n])
	w.inputs = w.inputs[n:]
	w.timeStart = w.inputs[0].Start()
	return n
}

// Reset discards all state and starts a new window at x.
func (w *Window[T]) Reset(x T) {
	w.Clear()
	w.timeStart = x.Start()
	w.adcIntegral = x.Integral()
	x.EachChannel(w.hit)
	w.inputs = append(w.inputs, x)
}

// Clear discards all state, leaving an empty window.
func (w *Window[T]) Clear() {
	clear(w.inputs)
	w.inputs = w.inputs[:0]
	clear(w.channelStates)
	w.timeStart = 0
	w.adcIntegral = 0
}

func (w *Window[T]) hit(c trigger.Channel) {
	w.channelStates[c]++
}

func (w *Window[T]) unhit(c trigger.Channel) {
	if w.channelStates[c] <= 1 {
		delete(w.channelStates, c)
		return
	}
	w.channelStates[c]--
}

// String summarises the window for diagnostics.
func (w *Window[T]) String() string {
	if w.IsEmpty() {
		return "window is empty"
	}
	return fmt.Sprintf("window start %d end %d: %d ADC over %d inputs, %d channels hit",
		w.timeStart, w.Back().Start(), w.adcIntegral, len(w.inputs), len(w.channelStates))
}
