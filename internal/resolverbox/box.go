// Package resolverbox implements the Resolver Box: the append-only store of
// resolution records (input/output places plus the closure that computes the
// outputs from the inputs).
//
// A flat byte arena with jump markers keeps captured closure state,
// referenced by raw pointer, from ever moving. A Go slice of *Record
// already gives that guarantee for free — appending to the backing
// []*Record may relocate the slice header, but each Record is
// heap-allocated and addressed by pointer, so no record's address ever
// changes. The Ix type keeps its jump/resolver bit-tag purely for
// structural fidelity with that design (a caller that decodes an Ix
// should still see the same two kinds), even though this implementation
// never needs to emit a Jump entry itself.
package resolverbox

import "github.com/rzhukov/circuitresolver/place"

// Kind distinguishes a resolver-box entry from a jump marker.
type Kind uint8

const (
	// KindResolver identifies an entry holding a resolution record.
	KindResolver Kind = iota
	// KindJump identifies a forwarding marker. Reserved for arena
	// implementations that need to skip fragmented tail space; unused by
	// the slice-backed Box below.
	KindJump
)

// Ix is an opaque reference to a record in a Box. Its low bit distinguishes
// KindJump from KindResolver.
type Ix uint32

const typeMask = Ix(1)

// Kind reports whether ix addresses a resolver record or a jump marker.
func (ix Ix) Kind() Kind {
	if ix&typeMask != 0 {
		return KindJump
	}
	return KindResolver
}

func newResolverIx(slot int) Ix {
	return Ix(slot) << 1
}

func (ix Ix) slot() int {
	return int(ix >> 1)
}

// Invoke computes a resolution's outputs from its inputs. ins holds one
// value per input place, in the order the resolution was registered;
// implementations append exactly len(outputs) values to outs, in output
// order.
type Invoke[V any] func(ins []V, outs *DstBuffer[V])

// Record is one packed (inputs, outputs, closure) resolution entry.
type Record[V any] struct {
	Inputs  []place.Place
	Outputs []place.Place
	Invoke  Invoke[V]
}

// Box is the append-only arena of resolution records.
type Box[V any] struct {
	entries []*Record[V]
}

// New returns an empty Box, pre-sized for an expected number of resolutions
// to avoid early reallocation.
func New[V any](expectedResolutions int) *Box[V] {
	return &Box[V]{entries: make([]*Record[V], 0, expectedResolutions)}
}

// Push appends a resolution record and returns its Ix. Once pushed, a
// record is never moved or mutated except through the closure's own
// invocation side effects.
func (b *Box[V]) Push(r *Record[V]) Ix {
	ix := newResolverIx(len(b.entries))
	b.entries = append(b.entries, r)
	return ix
}

// Get returns the record at ix. It panics if ix addresses a jump marker or
// is out of range, both of which indicate a bug in the sorter or window.
func (b *Box[V]) Get(ix Ix) *Record[V] {
	if ix.Kind() != KindResolver {
		panic("circuitresolver: resolverbox.Get called with a jump Ix")
	}
	return b.entries[ix.slot()]
}

// Len returns the number of resolver records pushed so far.
func (b *Box[V]) Len() int {
	return len(b.entries)
}
