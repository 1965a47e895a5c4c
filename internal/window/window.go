// Package window implements the Resolution Window: the background
// goroutine that scans the committed execution order, dispatches ready
// resolutions to a bounded worker pool, marks outputs resolved, and wakes
// the Awaiters Broker.
package window

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rzhukov/circuitresolver/field"
	"github.com/rzhukov/circuitresolver/internal/awaiters"
	"github.com/rzhukov/circuitresolver/internal/execorder"
	"github.com/rzhukov/circuitresolver/internal/obslog"
	"github.com/rzhukov/circuitresolver/internal/resolverbox"
	"github.com/rzhukov/circuitresolver/internal/trackid"
	"github.com/rzhukov/circuitresolver/internal/valuetable"
	"github.com/rzhukov/circuitresolver/metrics"
)

// Window runs resolutions in committed execution-order order, on a
// dedicated goroutine that fans intra-chunk work out to up to threads
// worker goroutines.
type Window[V field.Element[V]] struct {
	table   *valuetable.Table[V]
	box     *resolverbox.Box[V]
	order   *execorder.Order
	broker  *awaiters.Broker
	metrics *metrics.Metrics
	logger  *zap.Logger
	threads int

	mu   sync.Mutex
	cond *sync.Cond

	lastProcessed        int64
	registrationComplete atomic.Bool
	panicked             atomic.Bool
	panicVal             interface{}

	done chan struct{}
}

// New returns a Window ready to Start. threads bounds intra-chunk
// concurrency; a value <= 0 means unbounded (errgroup.SetLimit(-1)).
func New[V field.Element[V]](
	table *valuetable.Table[V],
	box *resolverbox.Box[V],
	order *execorder.Order,
	broker *awaiters.Broker,
	threads int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Window[V] {
	w := &Window[V]{
		table:   table,
		box:     box,
		order:   order,
		broker:  broker,
		metrics: m,
		logger:  obslog.Named(logger, "window"),
		threads: threads,
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start launches the window's background goroutine.
func (w *Window[V]) Start() {
	w.logger.Debug("window starting")
	go w.run()
}

// NotifyCommitted wakes the window loop to check for newly committed
// entries. Safe to call from the foreground after any execorder.Commit.
func (w *Window[V]) NotifyCommitted() {
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

// SignalComplete marks registration as finished: once the window drains
// every committed entry it will exit instead of waiting for more.
func (w *Window[V]) SignalComplete() {
	w.registrationComplete.Store(true)
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Join blocks until the window goroutine has exited.
func (w *Window[V]) Join() {
	<-w.done
}

// Panicked reports whether a resolution closure panicked, and if so, the
// recovered payload. The facade re-raises this payload from
// WaitTillResolved; an Awaiter's Wait does not check it.
func (w *Window[V]) Panicked() (interface{}, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.panicVal, w.panicked.Load()
}

func (w *Window[V]) run() {
	defer close(w.done)
	defer w.logger.Debug("window stopped")

	for {
		if w.panicked.Load() {
			return
		}

		size := w.order.Size()
		if w.lastProcessed >= size {
			if w.registrationComplete.Load() && w.lastProcessed >= w.order.Size() {
				return
			}
			w.waitForWork()
			continue
		}

		snap := w.order.Snapshot()
		w.processNewEntries(snap[w.lastProcessed:size])
		w.lastProcessed = size

		if w.panicked.Load() {
			return
		}
	}
}

func (w *Window[V]) waitForWork() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lastProcessed >= w.order.Size() && !w.registrationComplete.Load() {
		w.cond.Wait()
	}
}

// processNewEntries splits entries into parallelism-boundary sub-chunks
// (contiguous runs sharing the same Parallelism id) and runs them one
// after another, all entries within a sub-chunk concurrently.
func (w *Window[V]) processNewEntries(entries []execorder.Info) {
	i := 0
	for i < len(entries) {
		j := i + 1
		for j < len(entries) && entries[j].Parallelism == entries[i].Parallelism {
			j++
		}
		w.runChunk(entries[i:j])
		if w.panicked.Load() {
			return
		}
		i = j
	}
}

func (w *Window[V]) runChunk(chunk []execorder.Info) {
	start := time.Now()

	g := new(errgroup.Group)
	if w.threads > 0 {
		g.SetLimit(w.threads)
	}
	for _, entry := range chunk {
		entry := entry
		g.Go(func() error {
			w.runOne(entry)
			return nil
		})
	}
	g.Wait()

	if w.metrics != nil {
		w.metrics.WindowDispatchSecs.Observe(time.Since(start).Seconds())
		committed := w.order.Size()
		w.metrics.OrderCommittedLen.Set(float64(committed))
		w.metrics.OrderSpeculative.Set(float64(w.order.Len() - int(committed)))
	}

	if w.panicked.Load() {
		return
	}

	var maxTracker trackid.OrderIx
	for _, entry := range chunk {
		maxTracker = trackid.Max(maxTracker, entry.Tracker)
	}
	w.broker.Advance(maxTracker)
}

func (w *Window[V]) runOne(entry execorder.Info) {
	defer func() {
		if r := recover(); r != nil {
			w.capturePanic(r)
		}
	}()

	rec := w.box.Get(entry.ResolverIx)

	ins := make([]V, len(rec.Inputs))
	for i, in := range rec.Inputs {
		v, _ := w.table.GetItemRef(in)
		ins[i] = v
	}

	dst := resolverbox.NewDstBuffer[V](len(rec.Outputs))
	rec.Invoke(ins, dst)
	outs := dst.Values()

	for i, out := range rec.Outputs {
		*w.table.ItemPtr(out) = outs[i]
		w.table.MarkResolved(out)
	}

	if w.metrics != nil {
		w.metrics.ResolutionsRun.Inc()
	}
}

func (w *Window[V]) capturePanic(r interface{}) {
	w.mu.Lock()
	if !w.panicked.Load() {
		w.panicVal = r
		w.panicked.Store(true)
	}
	w.mu.Unlock()
	w.logger.Error("resolution closure panicked", zap.Any("panic", r))
}
