// Package execorder implements the Execution Order: a shared,
// monotonically-growing list of scheduled resolutions with a committed
// prefix separate from the backing slice's length. The sorter appends and
// commits under the package's mutex; the window reads the committed
// snapshot without taking it, synchronizing instead on the atomic pointer
// swap below.
package execorder

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
)

// Info is one scheduled resolution: its record in the box, the tracker it
// was assigned, and the parallelism boundary (chunk id) it belongs to.
type Info struct {
	ResolverIx  resolverbox.Ix
	Tracker     trackid.OrderIx
	Parallelism uint32
}

// Order holds the append-only entry list and its committed prefix. Writers
// serialize through mu; readers take a point-in-time snapshot through the
// atomic pointer and never block on mu.
type Order struct {
	mu    sync.Mutex
	items []Info

	committed atomic.Pointer[[]Info]
}

// New returns an empty Order pre-sized for an expected number of entries.
func New(expectedEntries int) *Order {
	o := &Order{items: make([]Info, 0, expectedEntries)}
	empty := []Info{}
	o.committed.Store(&empty)
	return o
}

// Append adds entries to the backing slice. They are not visible to
// Snapshot/Size readers until Commit runs. Single-writer only.
func (o *Order) Append(entries ...Info) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, entries...)
}

// Commit publishes the current backing slice as the new committed
// snapshot. Any entries appended since the last commit become visible to
// readers atomically.
func (o *Order) Commit() {
	o.mu.Lock()
	snap := make([]Info, len(o.items))
	copy(snap, o.items)
	o.mu.Unlock()
	o.committed.Store(&snap)
}

// AppendAndCommit appends entries and immediately commits them. This is
// the common case: a guide chunk is always committed as a unit.
func (o *Order) AppendAndCommit(entries ...Info) {
	o.mu.Lock()
	o.items = append(o.items, entries...)
	snap := make([]Info, len(o.items))
	copy(snap, o.items)
	o.mu.Unlock()
	o.committed.Store(&snap)
}

// Snapshot returns the most recently committed entries. The returned slice
// is never mutated after being published and is safe to read concurrently
// with further appends.
func (o *Order) Snapshot() []Info {
	return *o.committed.Load()
}

// Size returns the committed prefix length.
func (o *Order) Size() int64 {
	return int64(len(o.Snapshot()))
}

// Len returns the number of entries appended so far, including any not
// yet committed. Primarily useful for diagnostics and tests.
func (o *Order) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}
