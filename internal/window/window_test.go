package window

import (
	"testing"
	"time"

	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/awaiters"
	"github.com/rzhukov/circuitresolver/internal/execorder"
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
	"github.com/rzhukov/circuitresolver/place"
)

func TestWindowRunsCommittedEntriesAndAdvancesBroker(t *testing.T) {
	table := valuetable.New[field.Small](4)
	box := resolverbox.New[field.Small](4)
	order := execorder.New(4)

	v0, v1 := place.FromVariable(0), place.FromVariable(1)
	table.SetValue(v0, field.NewSmall(21))
	table.TrackValues([]place.Place{v1}, trackid.OrderIx(1))

	rec := &resolverbox.Record[field.Small]{
		Inputs:  []place.Place{v0},
		Outputs: []place.Place{v1},
		Invoke: func(ins []field.Small, outs *resolverbox.DstBuffer[field.Small]) {
			outs.Push(ins[0].Add(ins[0]))
		},
	}
	ix := box.Push(rec)

	broker := awaiters.New(func() {})
	w := New[field.Small](table, box, order, broker, 2, nil, nil)
	w.Start()

	order.AppendAndCommit(execorder.Info{ResolverIx: ix, Tracker: trackid.OrderIx(1), Parallelism: 1})
	w.NotifyCommitted()
	w.SignalComplete()
	w.Join()

	v, md := table.GetItemRef(v1)
	if !md.IsResolved() {
		t.Fatal("expected v1 to be resolved")
	}
	if v.Uint64() != 42 {
		t.Errorf("v1 = %d, want 42", v.Uint64())
	}

	if _, panicked := w.Panicked(); panicked {
		t.Error("window reported a panic on a clean run")
	}
}

func TestWindowCapturesClosurePanic(t *testing.T) {
	table := valuetable.New[field.Small](4)
	box := resolverbox.New[field.Small](4)
	order := execorder.New(4)

	v0, v1 := place.FromVariable(0), place.FromVariable(1)
	table.SetValue(v0, field.NewSmall(1))
	table.TrackValues([]place.Place{v1}, trackid.OrderIx(1))

	rec := &resolverbox.Record[field.Small]{
		Inputs:  []place.Place{v0},
		Outputs: []place.Place{v1},
		Invoke: func(ins []field.Small, outs *resolverbox.DstBuffer[field.Small]) {
			panic("boom")
		},
	}
	ix := box.Push(rec)

	broker := awaiters.New(func() {})
	w := New[field.Small](table, box, order, broker, 1, nil, nil)
	w.Start()

	order.AppendAndCommit(execorder.Info{ResolverIx: ix, Tracker: trackid.OrderIx(1), Parallelism: 1})
	w.NotifyCommitted()
	w.SignalComplete()
	w.Join()

	payload, panicked := w.Panicked()
	if !panicked {
		t.Fatal("expected the window to report a captured panic")
	}
	if payload != "boom" {
		t.Errorf("payload = %v, want %q", payload, "boom")
	}
}

func TestWindowExitsWhenCompleteWithNothingCommitted(t *testing.T) {
	table := valuetable.New[field.Small](1)
	box := resolverbox.New[field.Small](1)
	order := execorder.New(1)
	broker := awaiters.New(func() {})

	w := New[field.Small](table, box, order, broker, 1, nil, nil)
	w.Start()
	w.SignalComplete()

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("window did not exit after SignalComplete with no work")
	}
}
