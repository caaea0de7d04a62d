package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/metrics"
)

var (
	ErrCancelled      = errors.New("subscription cancelled")
	ErrRegistryClosed = errors.New("subscription registry closed")
	ErrStreamEnded    = errors.New("live query ended")
)

// SubscriptionError is the terminal error of a live query. The registry does
// not retry; callers open a new subscription if they want one.
type SubscriptionError struct {
	Collection string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription on %s failed: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// Snapshot is the complete ordered result set of a live query. Seq counts
// snapshots within one subscription, starting at 1.
type Snapshot struct {
	Seq     uint64
	Records []store.Record
}

// Registry opens and tracks live queries against a store.Backend.
type Registry struct {
	backend store.Backend
	log     *zap.SugaredLogger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

func NewRegistry(backend store.Backend) *Registry {
	return &Registry{
		backend: backend,
		log:     logger.Named("registry"),
		subs:    make(map[string]*Subscription),
	}
}

// Subscribe opens one live query on collection ordered by orderField. The
// returned subscription lives until Cancel, a terminal backend error, or the
// end of ctx.
func (r *Registry) Subscribe(ctx context.Context, collection, orderField string, dir store.Direction) (*Subscription, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	r.mu.Unlock()

	wctx, stop := context.WithCancel(ctx)
	events, err := r.backend.Watch(wctx, store.Query{Collection: collection, OrderBy: orderField, Direction: dir})
	if err != nil {
		stop()
		metrics.SubscriptionErrors.WithLabelValues(collection).Inc()
		r.log.Warnw("live query rejected", "collection", collection, "error", err)
		return nil, &SubscriptionError{Collection: collection, Err: err}
	}

	s := &Subscription{
		id:         uuid.NewString(),
		collection: collection,
		items:      make(chan item),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
		stop:       stop,
		registry:   r,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		stop()
		return nil, ErrRegistryClosed
	}
	r.subs[s.id] = s
	r.mu.Unlock()
	metrics.SubscriptionsActive.WithLabelValues(collection).Inc()
	r.log.Debugw("subscription opened", "id", s.id, "collection", collection, "orderBy", orderField, "direction", dir.String())

	go s.pump(ctx, events)
	return s, nil
}

func (r *Registry) remove(s *Subscription) {
	r.mu.Lock()
	_, ok := r.subs[s.id]
	delete(r.subs, s.id)
	r.mu.Unlock()
	if ok {
		metrics.SubscriptionsActive.WithLabelValues(s.collection).Dec()
		r.log.Debugw("subscription closed", "id", s.id, "collection", s.collection)
	}
}

// Active reports the number of open subscriptions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close cancels every open subscription and rejects new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}

type item struct {
	snap Snapshot
	err  error
}

// Subscription is a handle on one live query. A subscription has a single
// consumer calling Next; Cancel may be called from anywhere.
type Subscription struct {
	id         string
	collection string

	items    chan item
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
	stop     context.CancelFunc
	registry *Registry

	// err is written by pump before finished is closed.
	err error
	seq uint64
}

func (s *Subscription) ID() string         { return s.id }
func (s *Subscription) Collection() string { return s.collection }

// pump forwards backend events in order. Sends block until the consumer
// takes them, the subscription is cancelled or the parent ctx ends.
func (s *Subscription) pump(parent context.Context, events <-chan store.Event) {
	defer close(s.finished)
	defer s.registry.remove(s)
	defer s.stop()

	for ev := range events {
		var it item
		if ev.Err != nil {
			it.err = &SubscriptionError{Collection: s.collection, Err: ev.Err}
		} else {
			s.seq++
			it.snap = Snapshot{Seq: s.seq, Records: ev.Records}
		}

		select {
		case s.items <- it:
		case <-s.done:
			metrics.SnapshotsDiscarded.WithLabelValues(s.collection).Inc()
			s.err = ErrCancelled
			return
		case <-parent.Done():
			metrics.SnapshotsDiscarded.WithLabelValues(s.collection).Inc()
			s.err = parent.Err()
			return
		}
		if it.err != nil {
			metrics.SubscriptionErrors.WithLabelValues(s.collection).Inc()
			s.registry.log.Warnw("live query failed", "id", s.id, "collection", s.collection, "error", ev.Err)
			s.err = it.err
			return
		}
	}

	switch {
	case s.cancelled():
		s.err = ErrCancelled
	case parent.Err() != nil:
		s.err = parent.Err()
	default:
		s.err = &SubscriptionError{Collection: s.collection, Err: ErrStreamEnded}
	}
}

func (s *Subscription) cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Next blocks until the next snapshot. After Cancel has returned, Next never
// yields a snapshot again, including one already in flight. A terminal
// backend failure is returned once as *SubscriptionError and on every later
// call.
func (s *Subscription) Next(ctx context.Context) (Snapshot, error) {
	if s.cancelled() {
		return Snapshot{}, ErrCancelled
	}
	select {
	case it := <-s.items:
		if s.cancelled() {
			metrics.SnapshotsDiscarded.WithLabelValues(s.collection).Inc()
			return Snapshot{}, ErrCancelled
		}
		if it.err != nil {
			return Snapshot{}, it.err
		}
		metrics.SnapshotsDelivered.WithLabelValues(s.collection).Inc()
		return it.snap, nil
	case <-s.done:
		return Snapshot{}, ErrCancelled
	case <-s.finished:
		return Snapshot{}, s.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Done is closed once the subscription can deliver nothing more.
func (s *Subscription) Done() <-chan struct{} { return s.finished }

// Err returns the terminal error once Done is closed, nil before.
func (s *Subscription) Err() error {
	select {
	case <-s.finished:
		return s.err
	default:
		return nil
	}
}

// Cancel closes the subscription. It is idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.stop()
	})
}
