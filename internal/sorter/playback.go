package sorter

import (
	"errors"
	"fmt"

	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/execorder"
	"github.com/rzhukov/circuitresolver/internal/guide"
	"github.com/rzhukov/circuitresolver/internal/record"
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
	"github.com/rzhukov/circuitresolver/place"
)

// ErrPlaybackMode is returned by RetrieveSequence on a Playback sorter,
// which never accumulates a new record of its own.
var ErrPlaybackMode = errors.New("sorter: retrieve_sequence is not valid in playback mode")

type arrivedResolution struct {
	resolverIx resolverbox.Ix
	inputs     []place.Place
	outputs    []place.Place
}

// Playback reproduces a previously recorded execution order from
// registrations that may arrive in a different order than they were
// originally admitted. It buffers each arriving registration by its
// arrival-order counter and admits buffered registrations strictly in the
// order given by the stored record's AcceptedAt sequence.
type Playback[V field.Element[V]] struct {
	table *valuetable.Table[V]
	box   *resolverbox.Box[V]
	order *execorder.Order
	guide *guide.Guide

	rec         *record.Record
	nextItemIdx int
	arrived     map[uint32]*arrivedResolution

	counter uint32
}

// NewPlayback returns a Playback sorter that reproduces rec.
func NewPlayback[V field.Element[V]](table *valuetable.Table[V], box *resolverbox.Box[V], order *execorder.Order, desiredParallelism int, rec *record.Record) *Playback[V] {
	p := &Playback[V]{
		table:   table,
		box:     box,
		order:   order,
		rec:     rec,
		arrived: make(map[uint32]*arrivedResolution),
	}
	p.guide = guide.New(desiredParallelism, p.onChunk)
	return p
}

func (p *Playback[V]) onChunk(chunk []guide.Entry, parallelism uint32) {
	infos := make([]execorder.Info, len(chunk))
	for i, e := range chunk {
		infos[i] = execorder.Info{ResolverIx: e.ResolverIx, Tracker: e.Tracker, Parallelism: parallelism}
	}
	p.order.AppendAndCommit(infos...)
}

// SetValue writes v directly. Direct value assignments are not themselves
// recorded as ResolutionRecord items, so this needs no bookkeeping beyond
// the table write; any resolution waiting on key advances on the next
// tryAdvance pass once its turn in the record comes up.
func (p *Playback[V]) SetValue(key place.Place, v V) {
	p.table.SetValue(key, v)
	p.tryAdvance()
}

// AddResolution buffers the registration and attempts to advance the
// replay. It panics if more registrations arrive than the record has
// items for.
func (p *Playback[V]) AddResolution(inputs, outputs []place.Place, invoke resolverbox.Invoke[V]) {
	addedAt := p.counter
	p.counter++
	if int(p.counter) > len(p.rec.Items) {
		panic(fmt.Sprintf(
			"circuitresolver: playback divergence: registration %d arrived but the record holds only %d items",
			addedAt, len(p.rec.Items)))
	}

	resolverIx := p.box.Push(&resolverbox.Record[V]{Inputs: inputs, Outputs: outputs, Invoke: invoke})

	p.arrived[addedAt] = &arrivedResolution{resolverIx: resolverIx, inputs: inputs, outputs: outputs}
	p.tryAdvance()
}

// tryAdvance admits as many buffered registrations as the record allows,
// in AcceptedAt order, stopping at the first item whose registration
// hasn't arrived yet.
func (p *Playback[V]) tryAdvance() {
	for p.nextItemIdx < len(p.rec.Items) {
		item := p.rec.Items[p.nextItemIdx]

		res, ok := p.arrived[item.AddedAt]
		if !ok {
			return
		}

		if uint32(res.resolverIx) != item.OrderIx {
			panic(fmt.Sprintf(
				"circuitresolver: playback divergence at record item %d: expected resolver ix %d, registration assigned %d",
				p.nextItemIdx, item.OrderIx, uint32(res.resolverIx)))
		}

		// An input not being tracked yet is not itself divergence: the
		// record's AcceptedAt order only promises this registration's
		// inputs were tracked by the end of the original run's
		// registration stream, not that they already are now. Wait for
		// a later SetValue/AddResolution to close the gap; FinalFlush
		// catches a genuine mismatch.
		var maxInputTracker trackid.OrderIx
		ready := true
		for _, in := range res.inputs {
			_, md := p.table.GetItemRef(in)
			if !md.IsTracked() {
				ready = false
				break
			}
			maxInputTracker = trackid.Max(maxInputTracker, md.Tracker)
		}
		if !ready {
			return
		}

		tracker := maxInputTracker.Next()
		p.table.TrackValues(res.outputs, tracker)
		p.guide.Push(res.resolverIx, tracker, maxInputTracker, item.AddedAt)

		delete(p.arrived, item.AddedAt)
		p.nextItemIdx++
	}
}

// FinalFlush seals the Guide and verifies the replay consumed the record
// exactly: no leftover buffered registrations and every item replayed.
func (p *Playback[V]) FinalFlush() {
	p.guide.FinalFlush()
	if p.nextItemIdx != len(p.rec.Items) || len(p.arrived) != 0 {
		panic(fmt.Sprintf(
			"circuitresolver: playback divergence: replayed %d/%d record items with %d registrations left unmatched",
			p.nextItemIdx, len(p.rec.Items), len(p.arrived)))
	}
}

// RetrieveSequence always fails: a Playback sorter reproduces a record, it
// does not produce a new one.
func (p *Playback[V]) RetrieveSequence() (*record.Record, error) {
	return nil, ErrPlaybackMode
}
