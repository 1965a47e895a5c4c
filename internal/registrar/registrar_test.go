package registrar

import (
	"testing"

	"github.com/rzhukov/circuitresolver/place"
)

func TestDeferThenDrain(t *testing.T) {
	r := New()
	v0 := place.FromVariable(0)
	v1 := place.FromVariable(1)

	p := &Pending{Inputs: []place.Place{v0, v1}}
	r.Defer(p, []place.Place{v0, v1})

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	got := r.Drain(v0)
	if len(got) != 1 || got[0] != p {
		t.Fatalf("Drain(v0) = %v, want [p]", got)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() after draining v0 = %d, want 1", r.Len())
	}

	got = r.Drain(v1)
	if len(got) != 1 || got[0] != p {
		t.Fatalf("Drain(v1) = %v, want [p]", got)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after draining both = %d, want 0", r.Len())
	}
}

func TestDrainUnknownKeyReturnsNil(t *testing.T) {
	r := New()
	if got := r.Drain(place.FromVariable(7)); got != nil {
		t.Errorf("Drain on empty registrar = %v, want nil", got)
	}
}

func TestAdmittedGuardsDoubleAdmission(t *testing.T) {
	r := New()
	v0 := place.FromVariable(0)
	v1 := place.FromVariable(1)

	p := &Pending{}
	r.Defer(p, []place.Place{v0, v1})

	first := r.Drain(v0)
	first[0].Admitted = true

	second := r.Drain(v1)
	if !second[0].Admitted {
		t.Fatal("expected the re-drained pending to carry the Admitted flag set by the first drain")
	}
}
