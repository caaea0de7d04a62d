package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Op names a backend operation for fault injection.
type Op string

const (
	OpCreate Op = "create"
	OpGet    Op = "get"
	OpWatch  Op = "watch"
)

// MemoryBackend is an in-process Backend used for tests, local development
// and the seed CLI's dry runs. Live queries are re-evaluated on every write
// to their collection; a burst of writes may coalesce into one snapshot.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
	watchers    map[string]map[string]*memWatcher
	faults      map[Op][]error
	clock       func() time.Time
	last        time.Time
	latency     time.Duration
}

type memWatcher struct {
	notify chan struct{}
	fail   chan error
}

// NewMemoryBackend returns an empty backend using the wall clock.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]map[string]Record),
		watchers:    make(map[string]map[string]*memWatcher),
		faults:      make(map[Op][]error),
		clock:       time.Now,
	}
}

// SetClock replaces the server clock. Timestamps stay strictly increasing
// even when the clock does not advance.
func (m *MemoryBackend) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// SetLatency delays every operation, simulating a network round trip.
func (m *MemoryBackend) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// FailNext makes the next call of op return err.
func (m *MemoryBackend) FailNext(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = append(m.faults[op], err)
}

// FailWatchers terminates every live query on collection with err.
func (m *MemoryBackend) FailWatchers(collection string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.watchers[collection] {
		select {
		case w.fail <- err:
		default:
		}
	}
}

func (m *MemoryBackend) fault(op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.faults[op]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	m.faults[op] = q[1:]
	return err
}

func (m *MemoryBackend) roundTrip(ctx context.Context) error {
	m.mu.RLock()
	d := m.latency
	m.mu.RUnlock()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// now must be called with m.mu held.
func (m *MemoryBackend) now() time.Time {
	t := m.clock().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *MemoryBackend) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == "" {
		return ErrUnknownCollection
	}
	if err := m.roundTrip(ctx); err != nil {
		return err
	}
	if err := m.fault(OpCreate); err != nil {
		return err
	}

	m.mu.Lock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]Record)
	}
	if _, ok := m.collections[collection][id]; ok {
		m.mu.Unlock()
		return ErrAlreadyExists
	}
	ts := m.now()
	rec := Record{ID: id, Fields: make(map[string]any, len(fields)), CreatedAt: &ts}
	for k, v := range fields {
		if k == CreatedAtField {
			continue
		}
		rec.Fields[k] = v
	}
	m.collections[collection][id] = rec
	for _, w := range m.watchers[collection] {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	if collection == "" {
		return Record{}, ErrUnknownCollection
	}
	if err := m.roundTrip(ctx); err != nil {
		return Record{}, err
	}
	if err := m.fault(OpGet); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.collections[collection][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.clone(), nil
}

func (m *MemoryBackend) snapshot(q Query) []Record {
	m.mu.RLock()
	out := make([]Record, 0, len(m.collections[q.Collection]))
	for _, rec := range m.collections[q.Collection] {
		out = append(out, rec.clone())
	}
	m.mu.RUnlock()
	SortRecords(out, q.OrderBy, q.Direction)
	return out
}

func (m *MemoryBackend) Watch(ctx context.Context, q Query) (<-chan Event, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if err := m.fault(OpWatch); err != nil {
		return nil, err
	}

	w := &memWatcher{notify: make(chan struct{}, 1), fail: make(chan error, 1)}
	key := uuid.NewString()
	m.mu.Lock()
	if m.watchers[q.Collection] == nil {
		m.watchers[q.Collection] = make(map[string]*memWatcher)
	}
	m.watchers[q.Collection][key] = w
	m.mu.Unlock()

	out := make(chan Event)
	go func() {
		defer close(out)
		defer m.removeWatcher(q.Collection, key)
		for {
			if err := m.roundTrip(ctx); err != nil {
				return
			}
			select {
			case out <- Event{Records: m.snapshot(q)}:
			case <-ctx.Done():
				return
			}
			select {
			case <-w.notify:
			case err := <-w.fail:
				select {
				case out <- Event{Err: err}:
				case <-ctx.Done():
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *MemoryBackend) removeWatcher(collection, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers[collection], key)
	if len(m.watchers[collection]) == 0 {
		delete(m.watchers, collection)
	}
}

// WatcherCount reports open live queries on collection.
func (m *MemoryBackend) WatcherCount(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.watchers[collection])
}

// Len reports how many records collection holds.
func (m *MemoryBackend) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Close terminates every open live query.
func (m *MemoryBackend) Close(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ws := range m.watchers {
		for _, w := range ws {
			select {
			case w.fail <- ErrClosed:
			default:
			}
		}
	}
	return nil
}
