package execorder

import (
	"testing"

	"github.com/rzhukov/circuitresolver/internal/trackid"
)

func TestAppendNotVisibleUntilCommit(t *testing.T) {
	o := New(4)
	o.Append(Info{Tracker: trackid.OrderIx(1)})

	if o.Size() != 0 {
		t.Fatalf("Size() before commit = %d, want 0", o.Size())
	}
	if o.Len() != 1 {
		t.Fatalf("Len() before commit = %d, want 1", o.Len())
	}

	o.Commit()
	if o.Size() != 1 {
		t.Fatalf("Size() after commit = %d, want 1", o.Size())
	}
}

func TestAppendAndCommitIsImmediatelyVisible(t *testing.T) {
	o := New(4)
	o.AppendAndCommit(Info{Tracker: trackid.OrderIx(1)}, Info{Tracker: trackid.OrderIx(2)})

	snap := o.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() = %v, want 2 entries", snap)
	}
	if snap[0].Tracker != trackid.OrderIx(1) || snap[1].Tracker != trackid.OrderIx(2) {
		t.Errorf("Snapshot() entries out of order: %v", snap)
	}
}

func TestSnapshotIsStableAcrossFurtherAppends(t *testing.T) {
	o := New(4)
	o.AppendAndCommit(Info{Tracker: trackid.OrderIx(1)})

	first := o.Snapshot()
	o.AppendAndCommit(Info{Tracker: trackid.OrderIx(2)})

	if len(first) != 1 {
		t.Errorf("earlier snapshot mutated after a later commit: %v", first)
	}
	if o.Size() != 2 {
		t.Fatalf("Size() after second commit = %d, want 2", o.Size())
	}
}
