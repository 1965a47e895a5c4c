// Package record defines the Resolution Record wire type written in
// Runtime sorter mode and consumed in Playback sorter mode, plus the
// storage backends that persist it between the two runs.
package record

import "context"

// Item is one registration's admission trace, captured in registration
// order.
type Item struct {
	// AddedAt is the monotonic registration counter at the moment this
	// registration arrived at the sorter.
	AddedAt uint32
	// AcceptedAt is the monotonic registration counter at the moment the
	// guide chunk holding this registration was committed to the
	// execution order.
	AcceptedAt uint32
	// OrderLenAtAccept is the execution order's length right after that
	// chunk was committed.
	OrderLenAtAccept uint64
	// OrderIx is the resolver-box index assigned to this registration.
	OrderIx uint32
	// Parallelism is the chunk boundary id this registration landed in.
	Parallelism uint16
}

// Record is the full persisted trace of one Runtime-mode run: replaying
// Items in order, against the same sequence of registrations, reproduces
// the discovered execution order exactly.
type Record struct {
	RegistrationsCount uint64
	ValuesCount        uint64
	Items              []Item
}

// Storage persists and retrieves a Record keyed by an arbitrary run id, so
// a Runtime-mode run on one host can be replayed by a Playback-mode run
// elsewhere or later.
type Storage interface {
	Store(ctx context.Context, id string, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
}
