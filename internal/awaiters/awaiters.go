// Package awaiters implements the Awaiters Broker: a single shared
// "maximum resolved tracker" counter and a wake primitive that lets
// foreground goroutines block until a specific variable is resolved,
// without polling the Value Table.
package awaiters

import (
	"fmt"
	"sync"

	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
)

// Broker tracks the highest resolved tracker across the whole table and
// wakes blocked Awaiters as the window advances it.
type Broker struct {
	mu          sync.Mutex
	cond        *sync.Cond
	maxResolved trackid.OrderIx
	forceFlush  func()
}

// New returns a Broker. forceFlush is called (without the broker's lock
// held) immediately before an Awaiter blocks, so any resolutions still
// sitting in the guide reach the execution order and the window has
// something to make progress on.
func New(forceFlush func()) *Broker {
	b := &Broker{forceFlush: forceFlush}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Advance raises the broker's maximum resolved tracker to tracker if it is
// higher than the current value, and wakes any blocked Awaiters. Called
// by the window after marking a chunk's outputs resolved.
func (b *Broker) Advance(tracker trackid.OrderIx) {
	b.mu.Lock()
	b.maxResolved = trackid.Max(b.maxResolved, tracker)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Awaiter blocks until the tracker it was registered against has been
// resolved.
type Awaiter struct {
	broker      *Broker
	tracker     trackid.OrderIx
	preResolved bool
}

// Register returns an Awaiter tied to md's tracker. requestedIx is the
// place index being awaited and watermark is the value table's
// MaxTracked() at the time of the call: the largest index such that
// [0, watermark] is fully tracked. Awaiting an index beyond the watermark
// means that slot or some lower-indexed slot is still untracked — a hole the caller
// would otherwise block forever behind, since nothing guarantees it is
// ever filled — so Register panics instead of blocking.
func (b *Broker) Register(requestedIx uint64, watermark int64, md *valuetable.Metadata) Awaiter {
	if int64(requestedIx) > watermark {
		panic(fmt.Sprintf("circuitresolver: cannot await place %d, tracked watermark is %d. You have holes!!!", requestedIx, watermark))
	}
	if md.IsResolved() {
		return Awaiter{preResolved: true}
	}
	return Awaiter{broker: b, tracker: md.Tracker}
}

// Wait blocks until the awaited variable is resolved. It forces a guide
// flush first so a resolution still staged (but not yet committed to the
// execution order) gets a chance to run.
func (a Awaiter) Wait() {
	if a.preResolved {
		return
	}

	if a.broker.forceFlush != nil {
		a.broker.forceFlush()
	}

	a.broker.mu.Lock()
	defer a.broker.mu.Unlock()
	for a.broker.maxResolved.Less(a.tracker) {
		a.broker.cond.Wait()
	}
}
