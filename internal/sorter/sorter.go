// Package sorter implements the two sorting-mode capabilities the facade
// is polymorphic over: Runtime, which discovers the execution order as
// registrations arrive and optionally records it, and Playback, which
// reproduces a previously recorded order from out-of-order registrations.
package sorter

import (
	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/record"
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/place"
)

// Mode is the capability abstraction the facade holds instead of choosing
// between Runtime and Playback with a tagged variant.
type Mode[V field.Element[V]] interface {
	SetValue(key place.Place, v V)
	AddResolution(inputs, outputs []place.Place, invoke resolverbox.Invoke[V])
	FinalFlush()
	RetrieveSequence() (*record.Record, error)
}
