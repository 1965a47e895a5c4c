// Package guide implements the sorter's staging buffer: it groups admitted
// resolutions into chunks sized by the configured desired parallelism, such
// that no resolution in a chunk depends on another resolution in the same
// chunk. Finalized chunks are hinted to the caller as soon as they are full
// or a same-chunk dependency forces an early boundary.
package guide

import (
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
)

// Entry is one resolution staged for emission. AddedAt is an opaque
// registration-order counter threaded through unchanged from Push to the
// onChunk callback, for callers building a resolution record to stamp
// admission latency without keeping their own side index.
type Entry struct {
	ResolverIx resolverbox.Ix
	Tracker    trackid.OrderIx
	AddedAt    uint32
}

// Guide batches resolutions into parallelism-sized chunks.
type Guide struct {
	desiredParallelism int
	onChunk            func(chunk []Entry, parallelism uint32)

	current     []Entry
	lowWater    trackid.OrderIx
	hasEntries  bool
	chunkSeqNum uint32
}

// New returns a Guide that calls onChunk with each finalized chunk and its
// parallelism boundary id, in emission order. desiredParallelism must be a
// power of two >= 1, validated by the caller.
func New(desiredParallelism int, onChunk func(chunk []Entry, parallelism uint32)) *Guide {
	return &Guide{
		desiredParallelism: desiredParallelism,
		onChunk:            onChunk,
	}
}

// Push stages a resolution. maxInputTracker is the largest tracker among
// the resolution's inputs; if it falls within the currently staged (not yet
// emitted) chunk, that chunk is flushed first so the dependency is ordered
// ahead of the new entry.
func (g *Guide) Push(resolverIx resolverbox.Ix, tracker, maxInputTracker trackid.OrderIx, addedAt uint32) {
	if g.hasEntries && !maxInputTracker.Less(g.lowWater) {
		g.Flush()
	}

	if !g.hasEntries {
		g.lowWater = tracker
		g.hasEntries = true
	} else if tracker.Less(g.lowWater) {
		g.lowWater = tracker
	}

	g.current = append(g.current, Entry{ResolverIx: resolverIx, Tracker: tracker, AddedAt: addedAt})

	if len(g.current) >= g.desiredParallelism {
		g.Flush()
	}
}

// Flush forcibly emits the currently staged chunk, if any.
func (g *Guide) Flush() {
	if len(g.current) == 0 {
		return
	}

	g.chunkSeqNum++
	chunk := g.current
	g.current = nil
	g.hasEntries = false
	g.onChunk(chunk, g.chunkSeqNum)
}

// FinalFlush emits any remaining staged chunk. It is equivalent to Flush;
// the distinct name documents the caller's intent (no more pushes follow).
func (g *Guide) FinalFlush() {
	g.Flush()
}
