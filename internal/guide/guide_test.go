package guide

import (
	"testing"

	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
)

var sharedBox = resolverbox.New[int](0)

func ix(int) resolverbox.Ix {
	return sharedBox.Push(&resolverbox.Record[int]{})
}

func TestFlushesWhenChunkFull(t *testing.T) {
	var chunks [][]Entry

	g := New(2, func(chunk []Entry, parallelism uint32) {
		cp := append([]Entry(nil), chunk...)
		chunks = append(chunks, cp)
	})

	g.Push(ix(0), trackid.OrderIx(1), trackid.OrderIx(0), 0)
	if len(chunks) != 0 {
		t.Fatalf("chunk emitted early: %v", chunks)
	}

	g.Push(ix(0), trackid.OrderIx(2), trackid.OrderIx(0), 1)
	if len(chunks) != 1 || len(chunks[0]) != 2 {
		t.Fatalf("expected one chunk of size 2, got %v", chunks)
	}
}

func TestDependencyInsideOpenChunkForcesBoundary(t *testing.T) {
	var chunks [][]Entry

	g := New(4, func(chunk []Entry, parallelism uint32) {
		cp := append([]Entry(nil), chunk...)
		chunks = append(chunks, cp)
	})

	g.Push(ix(0), trackid.OrderIx(1), trackid.OrderIx(0), 0)
	// Depends on the entry just staged (tracker 1), forcing a boundary
	// before this one is added.
	g.Push(ix(0), trackid.OrderIx(2), trackid.OrderIx(1), 1)

	if len(chunks) != 1 || len(chunks[0]) != 1 {
		t.Fatalf("expected a forced chunk of size 1, got %v", chunks)
	}

	g.FinalFlush()
	if len(chunks) != 2 || len(chunks[1]) != 1 {
		t.Fatalf("expected final flush to emit remaining entry, got %v", chunks)
	}
}

func TestFlushOnEmptyIsNoop(t *testing.T) {
	called := false
	g := New(4, func(chunk []Entry, parallelism uint32) { called = true })
	g.Flush()
	if called {
		t.Error("Flush on empty guide should not call onChunk")
	}
}
