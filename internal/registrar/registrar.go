// Package registrar holds registrations that could not be admitted yet
// because one or more of their inputs are not tracked. A variable becoming
// tracked drains its waiters back to the sorter for another admission
// attempt.
package registrar

import (
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/place"
)

// Pending is a registration already recorded in the Resolver Box but not
// yet admitted into the Guide, because one or more inputs were untracked
// at registration time. It carries no closure state of its own: the
// closure already lives in the box entry addressed by ResolverIx.
type Pending struct {
	ResolverIx resolverbox.Ix
	Inputs     []place.Place
	Outputs    []place.Place
	AddedAt    uint32

	// Admitted guards against double admission: a Pending blocked on
	// several inputs is filed once per blocking key and may be drained
	// more than once.
	Admitted bool
}

// Registrar indexes pending registrations by the untracked inputs blocking
// them.
type Registrar struct {
	waiting map[place.Place][]*Pending
}

// New returns an empty Registrar.
func New() *Registrar {
	return &Registrar{waiting: make(map[place.Place][]*Pending)}
}

// Defer files a registration as blocked on blockedOn, one entry per
// untracked input found at admission time.
func (r *Registrar) Defer(p *Pending, blockedOn []place.Place) {
	for _, key := range blockedOn {
		r.waiting[key] = append(r.waiting[key], p)
	}
}

// Drain removes and returns every registration waiting on key, in the
// order they were deferred. Callers re-attempt admission for each and must
// check Admitted, since a registration blocked on multiple keys may be
// returned again from a later Drain call after it was already admitted.
func (r *Registrar) Drain(key place.Place) []*Pending {
	pending, ok := r.waiting[key]
	if !ok {
		return nil
	}
	delete(r.waiting, key)
	return pending
}

// Len reports the number of distinct keys with at least one waiter.
func (r *Registrar) Len() int {
	return len(r.waiting)
}
