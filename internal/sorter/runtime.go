package sorter

import (
	"errors"

	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/execorder"
	"github.com/rzhukov/circuitresolver/internal/guide"
	"github.com/rzhukov/circuitresolver/internal/record"
	"github.com/rzhukov/circuitresolver/internal/registrar"
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
	"github.com/rzhukov/circuitresolver/place"
)

// ErrNotRecording is returned by RetrieveSequence on a Runtime sorter that
// was not constructed with recording enabled.
var ErrNotRecording = errors.New("sorter: resolver was not run in record mode")

// Runtime discovers the execution order as registrations arrive: a
// registration is admitted into the Guide as soon as every one of its
// inputs is tracked, and otherwise parked in the Registrar until its last
// untracked input becomes tracked.
type Runtime[V field.Element[V]] struct {
	table     *valuetable.Table[V]
	box       *resolverbox.Box[V]
	order     *execorder.Order
	guide     *guide.Guide
	registrar *registrar.Registrar

	counter   uint32
	recording bool
	rec       record.Record
}

// NewRuntime returns a Runtime sorter backed by the given shared
// components. desiredParallelism sizes the Guide's chunks; recording
// enables accumulating a ResolutionRecord retrievable via RetrieveSequence.
func NewRuntime[V field.Element[V]](table *valuetable.Table[V], box *resolverbox.Box[V], order *execorder.Order, desiredParallelism int, recording bool) *Runtime[V] {
	r := &Runtime[V]{
		table:     table,
		box:       box,
		order:     order,
		registrar: registrar.New(),
		recording: recording,
	}
	r.guide = guide.New(desiredParallelism, r.onChunk)
	return r
}

func (r *Runtime[V]) onChunk(chunk []guide.Entry, parallelism uint32) {
	infos := make([]execorder.Info, len(chunk))
	for i, e := range chunk {
		infos[i] = execorder.Info{ResolverIx: e.ResolverIx, Tracker: e.Tracker, Parallelism: parallelism}
	}
	r.order.AppendAndCommit(infos...)

	if !r.recording {
		return
	}
	acceptedAt := r.counter
	for _, e := range chunk {
		r.rec.Items = append(r.rec.Items, record.Item{
			AddedAt:          e.AddedAt,
			AcceptedAt:       acceptedAt,
			OrderLenAtAccept: uint64(r.order.Len()),
			OrderIx:          uint32(e.ResolverIx),
			Parallelism:      uint16(parallelism),
		})
	}
}

// SetValue writes v directly and re-attempts admission for anything in the
// Registrar waiting on key.
func (r *Runtime[V]) SetValue(key place.Place, v V) {
	r.table.SetValue(key, v)
	r.rec.ValuesCount++
	r.wake(key)
}

// AddResolution files a resolution record and attempts to admit it
// immediately; if any input is untracked it is parked in the Registrar
// instead.
func (r *Runtime[V]) AddResolution(inputs, outputs []place.Place, invoke resolverbox.Invoke[V]) {
	addedAt := r.counter
	r.counter++

	resolverIx := r.box.Push(&resolverbox.Record[V]{Inputs: inputs, Outputs: outputs, Invoke: invoke})
	r.rec.RegistrationsCount++

	r.tryAdmit(&registrar.Pending{
		ResolverIx: resolverIx,
		Inputs:     inputs,
		Outputs:    outputs,
		AddedAt:    addedAt,
	})
}

// tryAdmit attempts to admit p. It returns false (and parks p in the
// Registrar) if at least one input is still untracked.
func (r *Runtime[V]) tryAdmit(p *registrar.Pending) bool {
	if p.Admitted {
		return true
	}

	var maxInputTracker trackid.OrderIx
	var blockedOn []place.Place
	for _, in := range p.Inputs {
		_, md := r.table.GetItemRef(in)
		if !md.IsTracked() {
			blockedOn = append(blockedOn, in)
			continue
		}
		maxInputTracker = trackid.Max(maxInputTracker, md.Tracker)
	}

	if len(blockedOn) > 0 {
		r.registrar.Defer(p, blockedOn)
		return false
	}

	tracker := maxInputTracker.Next()
	r.table.TrackValues(p.Outputs, tracker)
	p.Admitted = true
	r.guide.Push(p.ResolverIx, tracker, maxInputTracker, p.AddedAt)

	for _, out := range p.Outputs {
		r.wake(out)
	}
	return true
}

// wake re-attempts admission for everything parked on key.
func (r *Runtime[V]) wake(key place.Place) {
	for _, p := range r.registrar.Drain(key) {
		if !p.Admitted {
			r.tryAdmit(p)
		}
	}
}

// FinalFlush seals the Guide, emitting any remaining staged chunk.
func (r *Runtime[V]) FinalFlush() {
	r.guide.FinalFlush()
}

// RetrieveSequence returns the accumulated ResolutionRecord. It fails if
// this sorter was not constructed with recording enabled; callers should
// only call it after FinalFlush (the facade enforces this after
// wait_till_resolved).
func (r *Runtime[V]) RetrieveSequence() (*record.Record, error) {
	if !r.recording {
		return nil, ErrNotRecording
	}
	return &r.rec, nil
}
