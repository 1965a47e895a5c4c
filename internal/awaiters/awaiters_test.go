package awaiters

import (
	"strings"
	"testing"
	"time"

	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/place"
)

func TestRegisterOnResolvedSlotIsPreCompleted(t *testing.T) {
	vt := valuetable.New[field.Small](4)
	vt.SetValue(place.FromVariable(0), field.NewSmall(7))
	_, md := vt.GetItemRef(place.FromVariable(0))

	flushCalled := false
	b := New(func() { flushCalled = true })
	a := b.Register(0, vt.MaxTracked(), md)

	a.Wait() // must return immediately
	if flushCalled {
		t.Error("Wait on a pre-resolved awaiter should not force a flush")
	}
}

func TestRegisterOnNeverTrackedSlotPanics(t *testing.T) {
	vt := valuetable.New[field.Small](4)
	_, md := vt.GetItemRef(place.FromVariable(0))

	defer func() {
		if recover() == nil {
			t.Error("expected panic awaiting a never-tracked slot")
		}
	}()

	b := New(nil)
	b.Register(0, vt.MaxTracked(), md)
}

func TestRegisterBeyondWatermarkPanicsWithHolesMessage(t *testing.T) {
	vt := valuetable.New[field.Small](4)
	vt.TrackValues([]place.Place{place.FromVariable(2)}, trackid.OrderIx(1))
	_, md := vt.GetItemRef(place.FromVariable(2))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic awaiting an index ahead of the watermark")
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "holes") {
			t.Errorf("panic message = %v, want it to mention holes", r)
		}
	}()

	b := New(nil)
	// place 2 is itself tracked, but place 0 and 1 are not, so the
	// watermark (MaxTracked) is still -1: awaiting place 2 must panic.
	b.Register(2, vt.MaxTracked(), md)
}

func TestWaitUnblocksOnAdvance(t *testing.T) {
	vt := valuetable.New[field.Small](4)
	vt.TrackValues([]place.Place{place.FromVariable(0)}, trackid.OrderIx(5))
	_, md := vt.GetItemRef(place.FromVariable(0))

	flushed := make(chan struct{}, 1)
	b := New(func() { flushed <- struct{}{} })
	a := b.Register(0, vt.MaxTracked(), md)

	done := make(chan struct{})
	go func() {
		a.Wait()
		close(done)
	}()

	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("forceFlush was not called before blocking")
	}

	select {
	case <-done:
		t.Fatal("Wait returned before the tracker was advanced")
	case <-time.After(20 * time.Millisecond):
	}

	b.Advance(trackid.OrderIx(5))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Advance")
	}
}
