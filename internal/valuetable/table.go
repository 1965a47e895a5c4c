// Package valuetable implements the resolver's Value Table: a fixed-size
// array of (value, metadata) slots indexed by place.Place.
//
// Table cells are written exactly once — either directly by the foreground
// thread (SetValue) or by a Resolution Window worker (MarkResolved) — and
// read-only thereafter. The tracked/resolved bits of a cell's Metadata are
// published through an atomic store, giving any goroutine that observes the
// resolved bit a happens-before edge to the value write that preceded it,
// the same release/acquire discipline a ring buffer's published sequence
// number gives its consumers.
package valuetable

import (
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/obslog"
	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/place"
)

const (
	trackedMask  uint32 = 1 << 15
	resolvedMask uint32 = 1 << 14
)

// Metadata carries a slot's tracked/resolved bits plus the OrderIx stamped
// on it when its producer was admitted to the execution order.
type Metadata struct {
	bits    atomic.Uint32
	Tracker trackid.OrderIx
}

// IsTracked reports whether a producer has been announced for this slot.
func (m *Metadata) IsTracked() bool {
	return m.bits.Load()&trackedMask != 0
}

// IsResolved reports whether this slot's value has been written.
func (m *Metadata) IsResolved() bool {
	return m.bits.Load()&resolvedMask != 0
}

func (m *Metadata) markTracked(tracker trackid.OrderIx) {
	m.Tracker = tracker
	m.bits.Store(trackedMask)
}

func (m *Metadata) markTrackedAndResolved() {
	m.Tracker = trackid.Zero
	m.bits.Store(trackedMask | resolvedMask)
}

func (m *Metadata) markResolved() {
	m.bits.Store(trackedMask | resolvedMask)
}

type cell[V any] struct {
	value V
	meta  Metadata
}

// Table is the resolver's fixed-size value table.
type Table[V field.Element[V]] struct {
	cells      []cell[V]
	maxTracked atomic.Int64

	logger     *zap.Logger
	debugTrack map[uint64]struct{}
}

// New allocates a Table with room for maxVariables slots, none tracked.
func New[V field.Element[V]](maxVariables int) *Table[V] {
	t := &Table[V]{cells: make([]cell[V], maxVariables)}
	t.maxTracked.Store(-1)
	return t
}

// DebugTrack arms debug-level logging for tracked/resolved transitions on
// the listed places, for diagnosing a resolver that seems stuck. logger
// may be nil, in which case tracking is armed but never logs (matching
// obslog.Nop's convention elsewhere in this module).
func (t *Table[V]) DebugTrack(logger *zap.Logger, places []place.Place) {
	t.logger = obslog.Named(logger, "valuetable")
	t.debugTrack = make(map[uint64]struct{}, len(places))
	for _, p := range places {
		t.debugTrack[p.AsAnyIndex()] = struct{}{}
	}
}

func (t *Table[V]) logTransition(key place.Place, event string, tracker trackid.OrderIx) {
	if t.logger == nil {
		return
	}
	if _, watched := t.debugTrack[key.AsAnyIndex()]; !watched {
		return
	}
	t.logger.Debug(event,
		zap.Uint64("place", key.AsAnyIndex()),
		zap.Uint32("tracker", uint32(tracker)),
	)
}

// Len returns the table's fixed capacity.
func (t *Table[V]) Len() int {
	return len(t.cells)
}

// MaxTracked returns the largest index such that [0, MaxTracked] is fully
// tracked, or -1 if no slot is tracked yet.
func (t *Table[V]) MaxTracked() int64 {
	return t.maxTracked.Load()
}

// SetValue writes v directly to key's slot and marks it tracked and
// resolved in one step. It panics if the slot was already tracked: writing
// a tracked slot twice is a contract violation.
func (t *Table[V]) SetValue(key place.Place, v V) {
	c := &t.cells[key.RawIx()]
	if c.meta.IsTracked() {
		panic(fmt.Sprintf("circuitresolver: value with index %d is already tracked", key.AsAnyIndex()))
	}

	c.value = v
	c.meta.markTrackedAndResolved()
	t.logTransition(key, "place set directly", trackid.Zero)

	t.advanceTrack()
}

// TrackValues stamps tracker on every listed slot and marks them tracked
// (but not resolved). It panics if any slot was already tracked.
func (t *Table[V]) TrackValues(keys []place.Place, tracker trackid.OrderIx) {
	for _, key := range keys {
		c := &t.cells[key.RawIx()]
		if c.meta.IsTracked() {
			panic(fmt.Sprintf("circuitresolver: value with index %d is already tracked", key.AsAnyIndex()))
		}
		c.meta.markTracked(tracker)
		t.logTransition(key, "place tracked", tracker)
	}

	t.advanceTrack()
}

// MarkResolved marks key's slot as resolved after its value has been
// written via ItemPtr.
func (t *Table[V]) MarkResolved(key place.Place) {
	c := &t.cells[key.RawIx()]
	c.meta.markResolved()
	t.logTransition(key, "place resolved", c.meta.Tracker)
}

// GetItemRef returns the current value and a read-only snapshot of the
// metadata at key. It performs no synchronization beyond the atomic bits
// load inside Metadata.IsResolved/IsTracked; callers that need the value to
// be safely visible must first observe IsResolved() == true.
func (t *Table[V]) GetItemRef(key place.Place) (V, *Metadata) {
	c := &t.cells[key.RawIx()]
	return c.value, &c.meta
}

// ItemPtr returns a pointer to key's value cell, for a single writer (the
// window) to fill in before calling MarkResolved.
func (t *Table[V]) ItemPtr(key place.Place) *V {
	return &t.cells[key.RawIx()].value
}

func (t *Table[V]) advanceTrack() {
	next := t.maxTracked.Load() + 1
	for next < int64(len(t.cells)) && t.cells[next].meta.IsTracked() {
		next++
	}
	t.maxTracked.Store(next - 1)
}
