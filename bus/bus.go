// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pulseframe/pulseframe/stream"
)

// Handler consumes one event. A returned error (or a panic) is logged
// and counted by the bus, never propagated to other handlers or the
// emitter. Handlers must not block indefinitely.
type Handler func(Event) error

// Subscription is a handle to one registered handler.
type Subscription struct {
	id        string
	eventType string
	bus       *Bus
	entry     *handlerEntry
	once      sync.Once
}

// ID returns the subscription token.
func (s *Subscription) ID() string { return s.id }

// Delivered returns how many events this handler has consumed.
func (s *Subscription) Delivered() uint64 { return s.entry.delivered.Load() }

// Failed returns how many deliveries this handler failed (error or
// panic).
func (s *Subscription) Failed() uint64 { return s.entry.failed.Load() }

// Cancel removes the handler. Safe to call multiple times.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.bus.unsubscribe(s.eventType, s.id) })
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the bus logger. The default is silent.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithAsyncDispatch moves handler fan-out onto a single background
// dispatcher goroutine. Emission order is preserved and Emit never
// blocks: the queue starts at depth and grows as needed, so a handler
// may re-emit into the same bus (virtual peripherals do this on every
// derived event) without wedging the dispatcher. depth <= 0 selects
// 256.
func WithAsyncDispatch(depth int) Option {
	return func(b *Bus) {
		if depth <= 0 {
			depth = 256
		}
		b.async = true
		b.queue = make([]Event, 0, depth)
		b.wake = make(chan struct{}, 1)
	}
}

// Bus fans events out to per-type subscribers and records every event
// into its StateStore.
//
// Bus is safe for concurrent use. With synchronous dispatch (the
// default), handlers run on the emitter's goroutine and re-entrant
// Emit from inside a handler is allowed; handler lists are snapshotted
// per dispatch.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*handlerEntry

	store  *StateStore
	logger *slog.Logger

	seq    atomic.Uint64
	closed atomic.Bool

	// Async dispatch state. The queue is a mutex-guarded slice rather
	// than a bounded channel: the dispatcher itself appends to it when a
	// handler re-emits, and a bounded channel would deadlock the
	// dispatcher against its own backlog.
	async      bool
	qmu        sync.Mutex
	queue      []Event
	wake       chan struct{}
	dispatchWG sync.WaitGroup

	emitted       atomic.Uint64
	handlerErrors atomic.Uint64
}

type handlerEntry struct {
	id string
	h  Handler

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// New creates a bus with a fresh StateStore.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]*handlerEntry),
		store:    NewStateStore(),
		logger:   slog.New(discardHandler{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.async {
		b.dispatchWG.Add(1)
		go b.dispatchLoop()
	}
	return b
}

// discardHandler silently drops log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// Subscribe registers h for eventType and returns its cancelable
// subscription.
func (b *Bus) Subscribe(eventType string, h Handler) *Subscription {
	entry := &handlerEntry{id: uuid.NewString(), h: h}
	sub := &Subscription{
		id:        entry.id,
		eventType: eventType,
		bus:       b,
		entry:     entry,
	}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], entry)
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(eventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[eventType]
	for i, e := range entries {
		if e.id == id {
			b.handlers[eventType] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Emit assigns the event's sequence number and timestamp, dispatches it
// to every handler of its type, and records it in the StateStore. With
// synchronous dispatch the store is updated after handlers return; with
// async dispatch the store is updated in dispatch order on the
// background goroutine.
func (b *Bus) Emit(e Event) {
	e.Seq = b.seq.Add(1)
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.emitted.Add(1)

	if b.async {
		b.qmu.Lock()
		if b.closed.Load() {
			b.qmu.Unlock()
			return
		}
		b.queue = append(b.queue, e)
		b.qmu.Unlock()
		select {
		case b.wake <- struct{}{}:
		default:
		}
		return
	}
	b.dispatch(e)
}

func (b *Bus) dispatchLoop() {
	defer b.dispatchWG.Done()
	for {
		b.qmu.Lock()
		for len(b.queue) == 0 && !b.closed.Load() {
			b.qmu.Unlock()
			<-b.wake
			b.qmu.Lock()
		}
		if len(b.queue) == 0 {
			b.qmu.Unlock()
			return
		}
		batch := b.queue
		b.queue = nil
		b.qmu.Unlock()

		// Re-entrant emits from these handlers land on the (now empty)
		// queue and are picked up next pass, after the whole batch.
		for _, e := range batch {
			b.dispatch(e)
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	entries := b.handlers[e.Type]
	snapshot := make([]*handlerEntry, len(entries))
	copy(snapshot, entries)
	b.mu.RUnlock()

	for _, entry := range snapshot {
		b.invoke(entry, e)
	}
	b.store.Record(e)
}

// invoke runs one handler behind an error boundary: errors and panics
// are logged and counted, never rethrown across subscriber boundaries.
func (b *Bus) invoke(entry *handlerEntry, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerErrors.Add(1)
			entry.failed.Add(1)
			b.logger.Warn("bus: handler panicked",
				"event", e.String(), "handler", entry.id, "panic", fmt.Sprint(r))
		}
	}()
	entry.delivered.Add(1)
	if err := entry.h(e); err != nil {
		b.handlerErrors.Add(1)
		entry.failed.Add(1)
		b.logger.Warn("bus: handler failed",
			"event", e.String(), "handler", entry.id, "error", err)
	}
}

// Latest returns the most recent event for (eventType, producer).
func (b *Bus) Latest(eventType string, producer int) (Event, bool) {
	return b.store.Latest(eventType, producer)
}

// All returns the latest event of eventType from every producer.
func (b *Bus) All(eventType string) []Event {
	return b.store.All(eventType)
}

// Store returns the underlying state store.
func (b *Bus) Store() *StateStore {
	return b.store
}

// Emitted returns the total number of events emitted.
func (b *Bus) Emitted() uint64 { return b.emitted.Load() }

// HandlerErrors returns the total number of isolated handler failures.
func (b *Bus) HandlerErrors() uint64 { return b.handlerErrors.Load() }

// EventStream bridges the bus into a shared stream: a Stream of all
// events matching the given types, multiplexed to its subscribers under
// settings. The stream's connect lifecycle drives the underlying bus
// subscriptions — while nobody consumes the stream (and no replay
// demand holds it open), the bus sees no subscription at all.
func (b *Bus) EventStream(settings stream.Settings, types ...string) (*stream.Stream[Event], error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("bus: event stream requires at least one event type")
	}
	source := func(ctx context.Context, emit func(Event)) error {
		subs := make([]*Subscription, 0, len(types))
		for _, typ := range types {
			subs = append(subs, b.Subscribe(typ, func(e Event) error {
				emit(e)
				return nil
			}))
		}
		defer func() {
			for _, sub := range subs {
				sub.Cancel()
			}
		}()
		<-ctx.Done()
		return ctx.Err()
	}
	return stream.New(source, settings)
}

// Close stops the async dispatcher, draining queued events first.
// Events emitted during the drain (including re-entrant ones) are
// dropped. Synchronous buses need no Close, but it is always safe to
// call.
func (b *Bus) Close() {
	// Flipping closed under qmu means every Emit either appended before
	// the flip (and is drained below) or observes closed and drops.
	b.qmu.Lock()
	already := b.closed.Swap(true)
	b.qmu.Unlock()
	if already {
		return
	}
	if b.async {
		select {
		case b.wake <- struct{}{}:
		default:
		}
		b.dispatchWG.Wait()
	}
}
