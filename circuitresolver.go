// Package circuitresolver computes the values of a set of variables linked
// by user-supplied resolution closures. Callers register direct value
// assignments and resolution tasks ("given these inputs, compute these
// outputs"); the resolver discovers the dependency order as registrations
// arrive, runs ready tasks in parallel, and lets callers block on specific
// variables via an Awaiter.
package circuitresolver

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/awaiters"
	"github.com/rzhukov/circuitresolver/internal/execorder"
	"github.com/rzhukov/circuitresolver/internal/obslog"
	"github.com/rzhukov/circuitresolver/internal/record"
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/sorter"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
	"github.com/rzhukov/circuitresolver/internal/window"
	"github.com/rzhukov/circuitresolver/metrics"
	"github.com/rzhukov/circuitresolver/place"
)

// Awaiter blocks until a specific variable has been resolved.
type Awaiter = awaiters.Awaiter

// Place identifies one variable slot. See the place package for details.
type Place = place.Place

// Opts configures a CircuitResolver.
type Opts struct {
	// MaxVariables fixes the size of the value table. Required, > 0.
	MaxVariables int
	// DesiredParallelism sizes the Guide's chunks. Must be a power of two
	// >= 1.
	DesiredParallelism uint32
	// Threads bounds intra-chunk worker concurrency. <= 0 means
	// runtime.GOMAXPROCS(0).
	Threads int

	// Logger receives structured lifecycle logs. nil uses a no-op logger.
	Logger *zap.Logger
	// Metrics receives Prometheus instrumentation. nil uses an
	// unregistered no-op bundle.
	Metrics *metrics.Metrics

	// DebugTrack lists places whose tracked/resolved transitions are
	// logged at debug level, for diagnosing a stuck resolver.
	DebugTrack []place.Place

	// Recording enables accumulating a ResolutionRecord retrievable via
	// RetrieveSequence after WaitTillResolved. Ignored if Playback is set.
	Recording bool

	// RecordStorage and RecordID, if both set, let PersistSequence store
	// the retrieved record without the caller wiring a context manually
	// for a second call.
	RecordStorage record.Storage
	RecordID      string

	// Playback, if non-nil, runs this resolver in Playback sorter mode,
	// reproducing the given record instead of discovering a new order.
	Playback *record.Record
}

// DefaultOpts returns Opts with sensible defaults for maxVariables slots.
func DefaultOpts(maxVariables int) Opts {
	return Opts{
		MaxVariables:       maxVariables,
		DesiredParallelism: 1 << 12,
		Threads:            runtime.GOMAXPROCS(0),
	}
}

func (o Opts) validate() error {
	if o.MaxVariables <= 0 {
		return fmt.Errorf("circuitresolver: MaxVariables must be positive, got %d", o.MaxVariables)
	}
	if o.DesiredParallelism == 0 || o.DesiredParallelism&(o.DesiredParallelism-1) != 0 {
		return fmt.Errorf("circuitresolver: DesiredParallelism must be a power of two, got %d", o.DesiredParallelism)
	}
	return nil
}

// CircuitResolver owns the sorter, the shared Value Table/Resolver
// Box/Execution Order, and the Resolution Window's goroutine. One instance
// resolves one independent dependency graph.
type CircuitResolver[V field.Element[V]] struct {
	table  *valuetable.Table[V]
	box    *resolverbox.Box[V]
	order  *execorder.Order
	mode   sorter.Mode[V]
	broker *awaiters.Broker
	window *window.Window[V]

	metrics *metrics.Metrics
	logger  *zap.Logger

	flushSem *semaphore.Weighted

	recordStorage record.Storage
	recordID      string

	startedAt time.Time

	mu     sync.Mutex
	waited bool
}

// New allocates a resolver per opts and starts its Resolution Window.
func New[V field.Element[V]](opts Opts) (*CircuitResolver[V], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := obslog.Named(opts.Logger, "circuitresolver")
	m := opts.Metrics
	if m == nil {
		m = metrics.Noop()
	}

	table := valuetable.New[V](opts.MaxVariables)
	box := resolverbox.New[V](opts.MaxVariables)
	order := execorder.New(opts.MaxVariables)

	if len(opts.DebugTrack) > 0 {
		table.DebugTrack(opts.Logger, opts.DebugTrack)
	}

	r := &CircuitResolver[V]{
		table:         table,
		box:           box,
		order:         order,
		metrics:       m,
		logger:        logger,
		flushSem:      semaphore.NewWeighted(1),
		recordStorage: opts.RecordStorage,
		recordID:      opts.RecordID,
		startedAt:     time.Now(),
	}

	if opts.Playback != nil {
		r.mode = sorter.NewPlayback[V](table, box, order, int(opts.DesiredParallelism), opts.Playback)
	} else {
		r.mode = sorter.NewRuntime[V](table, box, order, int(opts.DesiredParallelism), opts.Recording)
	}

	r.broker = awaiters.New(r.forceFlush)

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	r.window = window.New[V](table, box, order, r.broker, threads, m, logger)
	r.window.Start()

	logger.Info("circuit resolver started",
		zap.Int("max_variables", opts.MaxVariables),
		zap.Uint32("desired_parallelism", opts.DesiredParallelism),
		zap.Int("threads", threads),
	)

	return r, nil
}

// forceFlush is handed to the Awaiters Broker: it forces any staged guide
// chunk into the committed execution order before an awaiter blocks.
// Concurrent callers collapse into a single flush via flushSem.
func (r *CircuitResolver[V]) forceFlush() {
	if !r.flushSem.TryAcquire(1) {
		return
	}
	defer r.flushSem.Release(1)

	r.mode.FinalFlush()
	r.window.NotifyCommitted()
}

// SetValue directly assigns v to k. Panics if k is already tracked.
func (r *CircuitResolver[V]) SetValue(k place.Place, v V) {
	start := time.Now()
	r.mode.SetValue(k, v)
	r.metrics.RegistrationDurationSecs.Observe(time.Since(start).Seconds())
	r.metrics.ValuesAdded.Inc()
	r.window.NotifyCommitted()
}

// AddResolution registers a resolution task: once every place in inputs is
// tracked, invoke is scheduled to compute outputs from their values.
func (r *CircuitResolver[V]) AddResolution(inputs, outputs []place.Place, invoke resolverbox.Invoke[V]) {
	start := time.Now()
	r.mode.AddResolution(inputs, outputs, invoke)
	r.metrics.RegistrationDurationSecs.Observe(time.Since(start).Seconds())
	r.metrics.RegistrationsAdded.Inc()
	r.window.NotifyCommitted()
}

// TryGetValue returns (value, true) if k is resolved, or (zero, false)
// otherwise.
func (r *CircuitResolver[V]) TryGetValue(k place.Place) (V, bool) {
	v, md := r.table.GetItemRef(k)
	if !md.IsResolved() {
		var zero V
		return zero, false
	}
	return v, true
}

// GetValueUnchecked returns k's value. It panics if k is not yet resolved;
// callers should only use it after confirming resolution via TryGetValue,
// an Awaiter, or WaitTillResolved.
func (r *CircuitResolver[V]) GetValueUnchecked(k place.Place) V {
	v, md := r.table.GetItemRef(k)
	if !md.IsResolved() {
		panic(fmt.Sprintf("circuitresolver: GetValueUnchecked called on unresolved place %d", k.AsAnyIndex()))
	}
	return v
}

// GetAwaiter returns an Awaiter tied to the highest tracker among vars.
// Panics if any of vars sits beyond the value table's tracked watermark:
// that slot or a lower-indexed one is still untracked, a hole the caller
// would otherwise block behind forever.
func (r *CircuitResolver[V]) GetAwaiter(vars []place.Place) Awaiter {
	if len(vars) == 0 {
		panic("circuitresolver: GetAwaiter requires at least one place")
	}

	watermark := r.table.MaxTracked()

	var highestMd *valuetable.Metadata
	var highest Awaiter
	for _, v := range vars {
		_, md := r.table.GetItemRef(v)
		a := r.broker.Register(v.AsAnyIndex(), watermark, md)
		if highestMd == nil || highestMd.Tracker.Less(md.Tracker) {
			highestMd = md
			highest = a
		}
	}
	return highest
}

// WaitTillResolved flushes any staged work, waits for the Resolution
// Window to drain the execution order, and re-raises any closure panic it
// captured. Idempotent: a second call re-raises the same captured panic
// (if any) without joining the window again.
func (r *CircuitResolver[V]) WaitTillResolved() {
	r.mu.Lock()
	alreadyWaited := r.waited
	r.waited = true
	r.mu.Unlock()

	if !alreadyWaited {
		r.mode.FinalFlush()
		r.window.NotifyCommitted()
		r.window.SignalComplete()
		r.window.Join()
		r.metrics.TotalResolutionSecs.Set(time.Since(r.startedAt).Seconds())
		r.logger.Info("circuit resolver drained")
	}

	if payload, panicked := r.window.Panicked(); panicked {
		panic(payload)
	}
}

// Close is an alias for WaitTillResolved, for callers that prefer to
// manage a resolver with defer. Go has no destructor equivalent to an
// on-drop join, so WaitTillResolved (directly or via Close) must be called
// explicitly before a resolver is discarded.
func (r *CircuitResolver[V]) Close() error {
	r.WaitTillResolved()
	return nil
}

// RetrieveSequence returns the ResolutionRecord accumulated during a
// Recording run. Only valid after WaitTillResolved.
func (r *CircuitResolver[V]) RetrieveSequence() (*record.Record, error) {
	r.mu.Lock()
	waited := r.waited
	r.mu.Unlock()

	if !waited {
		return nil, fmt.Errorf("circuitresolver: RetrieveSequence called before WaitTillResolved")
	}
	return r.mode.RetrieveSequence()
}

// PersistSequence retrieves the accumulated record and stores it via the
// RecordStorage/RecordID configured in Opts.
func (r *CircuitResolver[V]) PersistSequence(ctx context.Context) error {
	if r.recordStorage == nil {
		return fmt.Errorf("circuitresolver: no RecordStorage configured")
	}
	rec, err := r.RetrieveSequence()
	if err != nil {
		return err
	}
	return r.recordStorage.Store(ctx, r.recordID, rec)
}

// LoadPlaybackRecord fetches a previously stored ResolutionRecord, for use
// as Opts.Playback when replaying a prior recorded run.
func LoadPlaybackRecord(ctx context.Context, storage record.Storage, id string) (*record.Record, error) {
	return storage.Get(ctx, id)
}

// Clear has undefined semantics in the system this resolver was modeled
// on; it is a no-op here.
func (r *CircuitResolver[V]) Clear() {}
