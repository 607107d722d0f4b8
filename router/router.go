package router

import (
	"context"
	"sync"
	"time"

	"github.com/sterwen-tech/shipdataserver/connector"
	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/pgn"
)

// Filter runs on a publisher's worker before serialization, or
// synchronously in a server/client connection path (spec §4.8, §4.11).
// It returns keep=false to discard msg.
type Filter interface {
	Apply(msg message.Message) (keep bool, err error)
}

type publisherState struct {
	pub     Publisher
	queue   *connector.Queue[message.Message]
	filters []Filter
	lost    int
	stopped bool
	mu      sync.Mutex
}

type couplerState struct {
	coupler Coupler
	state   LifecycleState
	mu      sync.Mutex
}

// Router is the central in-process fabric of spec §4.8: it pushes each
// message from a coupler through the filter chain to every subscribed
// publisher exactly once, over independent bounded queues, without ever
// blocking the producing coupler.
type Router struct {
	telemetry *internal.Telemetry

	supervisor SupervisorConfig

	mu         sync.Mutex
	couplers   map[string]*couplerState
	publishers map[string]*publisherState

	// bySource is the inverted map: coupler name → publishers subscribed
	// to it (spec §4.8).
	bySource map[string][]*publisherState

	queueCapacity int
	maxLost       int

	dictionary *pgn.Dictionary

	onCouplerFailed func(name string)

	wg      sync.WaitGroup
	ctx     context.Context
	started bool
}

// NewRouter creates a Router. queueCapacity/maxLost of 0 use the
// defaults (20, 5).
func NewRouter(supervisor SupervisorConfig, queueCapacity, maxLost int) *Router {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	if maxLost <= 0 {
		maxLost = DefaultMaxLost
	}
	return &Router{
		telemetry:     internal.NewTelemetry("router", "core"),
		supervisor:    supervisor,
		couplers:      make(map[string]*couplerState),
		publishers:    make(map[string]*publisherState),
		bySource:      make(map[string][]*publisherState),
		queueCapacity: queueCapacity,
		maxLost:       maxLost,
	}
}

// SetDictionary installs the PGN dictionary the router uses to decode
// every Raw2000 into a Decoded2000 before it reaches a publisher's
// filter chain (spec §4.1, §4.8). Without one, Raw2000 messages are
// forwarded unchanged.
func (r *Router) SetDictionary(dict *pgn.Dictionary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dictionary = dict
}

// OnCouplerFailed registers a callback invoked when a coupler exhausts
// its open retries (spec §4.8: "the router publishes a 'coupler failed'
// event").
func (r *Router) OnCouplerFailed(fn func(name string)) {
	r.onCouplerFailed = fn
}

// AddCoupler registers a coupler with the router.
func (r *Router) AddCoupler(c Coupler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.couplers[c.Name()] = &couplerState{coupler: c, state: StateNotReady}
}

// AddPublisher registers a publisher and wires it into the inverted
// coupler→publisher map according to its declared Sources. If the
// router is already running (Start has been called), AddPublisher also
// launches the publisher's delivery worker immediately, so a server
// coupler can attach a new publisher per accepted connection (spec
// §4.10's NMEA TCP server).
func (r *Router) AddPublisher(p Publisher, filters ...Filter) {
	r.mu.Lock()

	ps := &publisherState{
		pub:     p,
		queue:   connector.NewQueue[message.Message](r.queueCapacity),
		filters: filters,
	}
	r.publishers[p.Name()] = ps

	for _, source := range p.Sources() {
		r.bySource[source] = append(r.bySource[source], ps)
	}

	started := r.started
	ctx := r.ctx
	r.mu.Unlock()

	if started {
		r.wg.Add(1)
		go r.runPublisher(ctx, ps)
	}
}

// Start launches every registered coupler (supervised, with open
// retries) and every registered publisher's delivery worker.
func (r *Router) Start(ctx context.Context) {
	r.mu.Lock()
	publishers := make([]*publisherState, 0, len(r.publishers))
	for _, ps := range r.publishers {
		publishers = append(publishers, ps)
	}
	couplers := make([]*couplerState, 0, len(r.couplers))
	for _, cs := range r.couplers {
		couplers = append(couplers, cs)
	}
	r.ctx = ctx
	r.started = true
	r.mu.Unlock()

	for _, ps := range publishers {
		r.wg.Add(1)
		go r.runPublisher(ctx, ps)
	}

	for _, cs := range couplers {
		r.wg.Add(1)
		go r.superviseCoupler(ctx, cs)
	}
}

// Stop closes every publisher queue and coupler, waiting for their
// worker goroutines to exit.
func (r *Router) Stop() {
	r.mu.Lock()
	for _, ps := range r.publishers {
		ps.queue.Close()
	}
	for _, cs := range r.couplers {
		_ = cs.coupler.Close()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Router) superviseCoupler(ctx context.Context, cs *couplerState) {
	defer r.wg.Done()

	maxAttempt := r.supervisor.MaxAttempt
	if maxAttempt <= 0 {
		maxAttempt = 1
	}
	delay := r.supervisor.OpenDelay

	attempts := 0
	for {
		cs.mu.Lock()
		cs.state = StateOpening
		cs.mu.Unlock()

		if err := cs.coupler.Open(ctx); err != nil {
			attempts++
			r.telemetry.LogWarn("coupler open failed", "coupler", cs.coupler.Name(), "attempt", attempts, "err", err)
			if attempts >= maxAttempt {
				cs.mu.Lock()
				cs.state = StateFailed
				cs.mu.Unlock()
				if r.onCouplerFailed != nil {
					r.onCouplerFailed(cs.coupler.Name())
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		break
	}

	cs.mu.Lock()
	cs.state = StateOpen
	cs.mu.Unlock()

	go r.drainCoupler(ctx, cs)

	cs.mu.Lock()
	cs.state = StateConnected
	cs.mu.Unlock()

	cs.mu.Lock()
	cs.state = StateActive
	cs.mu.Unlock()

	if err := cs.coupler.Run(ctx); err != nil {
		cs.mu.Lock()
		cs.state = StateFailed
		cs.mu.Unlock()
		r.telemetry.LogError("coupler run failed", err, "coupler", cs.coupler.Name())
		if r.onCouplerFailed != nil {
			r.onCouplerFailed(cs.coupler.Name())
		}
		return
	}

	cs.mu.Lock()
	cs.state = StateStopped
	cs.mu.Unlock()
}

// drainCoupler forwards every envelope produced by cs.coupler to each
// publisher subscribed to it, without ever blocking on a slow publisher
// (spec §4.8).
func (r *Router) drainCoupler(ctx context.Context, cs *couplerState) {
	name := cs.coupler.Name()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-cs.coupler.Messages():
			if !ok {
				return
			}
			r.dispatch(name, msg)
		}
	}
}

func (r *Router) dispatch(couplerName string, msg message.Message) {
	r.mu.Lock()
	subscribers := r.bySource[couplerName]
	dict := r.dictionary
	r.mu.Unlock()

	if dict != nil {
		if raw, ok := msg.(*envelope.Raw2000); ok {
			msg = dict.DecodeRaw2000(raw)
		}
	}

	for _, ps := range subscribers {
		ps.mu.Lock()
		if ps.stopped {
			ps.mu.Unlock()
			continue
		}
		ps.mu.Unlock()

		if err := r.dispatchOne(ps, msg); err != nil {
			r.telemetry.LogWarn("publisher queue full, message dropped", "publisher", ps.pub.Name(), "err", err)
		}
	}
}

// dispatchOne enqueues msg for ps without running its filters: filters
// run on the publisher's own worker (runPublisher), not on the
// coupler's fan-out thread, so a slow or panicking filter only affects
// its owning publisher (spec §4.8).
func (r *Router) dispatchOne(ps *publisherState, msg message.Message) error {
	err := ps.queue.TryWrite(msg)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if err != nil {
		ps.lost++
		if ps.lost >= r.maxLost {
			ps.stopped = true
		}
		return err
	}
	ps.lost = 0
	return nil
}

func (r *Router) runPublisher(ctx context.Context, ps *publisherState) {
	defer r.wg.Done()
	for {
		msg, err := ps.queue.Read()
		if err != nil {
			return
		}
		ps.mu.Lock()
		stopped := ps.stopped
		ps.mu.Unlock()
		if stopped {
			continue
		}

		keep, err := r.applyFilters(ps, msg)
		if err != nil {
			r.telemetry.LogWarn("filter error", "publisher", ps.pub.Name(), "err", err)
			continue
		}
		if !keep {
			continue
		}

		if pubErr := ps.pub.Publish(msg); pubErr != nil {
			r.telemetry.LogWarn("publisher error", "publisher", ps.pub.Name(), "err", pubErr)
		}
	}
}

func (r *Router) applyFilters(ps *publisherState, msg message.Message) (keep bool, err error) {
	for _, f := range ps.filters {
		keep, err := f.Apply(msg)
		if err != nil || !keep {
			return keep, err
		}
	}
	return true, nil
}
