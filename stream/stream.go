// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Subscribe after the stream has been closed.
var ErrClosed = errors.New("stream: closed")

// Strategy selects how one underlying source is multiplexed to many
// subscribers.
type Strategy int

const (
	// Share delivers live values only. Late subscribers miss everything
	// emitted before they attached.
	Share Strategy = iota

	// ReplayLatest keeps a one-slot replay buffer; a late subscriber
	// immediately receives the most recent value.
	ReplayLatest

	// ReplayBuffer keeps the last Settings.Buffer values and replays them
	// in order to every new subscriber.
	ReplayBuffer
)

// String returns the strategy name as it appears in configuration.
func (s Strategy) String() string {
	switch s {
	case Share:
		return "share"
	case ReplayLatest:
		return "replay_latest"
	case ReplayBuffer:
		return "replay_buffer"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Settings is the immutable per-stream sharing configuration, resolved
// once at construction.
type Settings struct {
	// Strategy selects the replay behavior.
	Strategy Strategy

	// Buffer is the replay window size for ReplayBuffer. Ignored by the
	// other strategies. Must be >= 1 when used.
	Buffer int

	// AutoConnectAfter, when > 0, starts the source once the subscriber
	// count first reaches this threshold instead of on first subscribe.
	// Auto-connected sources ignore the ref-count disconnect: they run
	// until Close.
	AutoConnectAfter int

	// Grace delays the ref-counted disconnect after the subscriber count
	// returns to zero, absorbing rapid unsubscribe/resubscribe churn.
	// Zero disconnects immediately.
	Grace time.Duration

	// SubscriberBuffer is the channel depth per subscriber. Values beyond
	// a full buffer are dropped (drop-new) and counted. Zero selects 16.
	SubscriberBuffer int
}

func (s Settings) validate() error {
	if s.Strategy < Share || s.Strategy > ReplayBuffer {
		return fmt.Errorf("stream: unknown strategy %d", int(s.Strategy))
	}
	if s.Strategy == ReplayBuffer && s.Buffer < 1 {
		return fmt.Errorf("stream: replay_buffer requires buffer >= 1, got %d", s.Buffer)
	}
	if s.AutoConnectAfter < 0 {
		return fmt.Errorf("stream: auto-connect threshold must be >= 0, got %d", s.AutoConnectAfter)
	}
	if s.Grace < 0 {
		return fmt.Errorf("stream: grace period must be >= 0, got %v", s.Grace)
	}
	return nil
}

// replayCapacity returns how many values the stream retains for replay.
func (s Settings) replayCapacity() int {
	switch s.Strategy {
	case ReplayLatest:
		return 1
	case ReplayBuffer:
		return s.Buffer
	default:
		return 0
	}
}

// SourceFunc produces the stream's values. It runs on its own goroutine
// while the stream is connected and must return when ctx is canceled.
// Values are handed to emit; emit is safe to call until SourceFunc
// returns, and calls made after the stream has disconnected the source
// are discarded.
type SourceFunc[T any] func(ctx context.Context, emit func(T)) error

// Subscription is one consumer's attachment to a stream.
type Subscription[T any] struct {
	ch     chan T
	cancel func()
	once   sync.Once

	// Dropped counts values discarded because this subscriber's buffer
	// was full at delivery time.
	dropped atomic.Uint64
}

// C returns the subscription's value channel. It is closed when the
// subscription is canceled or the stream closes.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Cancel detaches the subscription and closes its channel.
// Safe to call multiple times.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
}

// Dropped returns how many values this subscriber missed due to a full
// buffer.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Stream multiplexes one SourceFunc to many subscribers under a sharing
// strategy. The source runs at most once at a time; its connect lifecycle
// is governed by Settings (lazy on first subscribe, auto-connect at a
// threshold, ref-count disconnect with grace).
//
// Stream is safe for concurrent use.
type Stream[T any] struct {
	source   SourceFunc[T]
	settings Settings

	mu      sync.Mutex
	subs    map[*Subscription[T]]struct{}
	replay  []T // oldest first, capped at replayCapacity
	closed  bool
	started bool // true while a source goroutine is live or pending stop

	// everConnected latches auto-connect: once the threshold is reached
	// the source stays connected until Close.
	everConnected bool

	// gen identifies the current source incarnation. A disconnect bumps
	// it, so a dying source goroutine's late emits are fenced out even
	// if a fresh source has already been started.
	gen uint64

	stopSource context.CancelFunc
	sourceWG   sync.WaitGroup
	graceTimer *time.Timer

	connects atomic.Uint64
}

// New creates a stream over source with the given settings.
// The source does not start until the connect condition is met.
func New[T any](source SourceFunc[T], settings Settings) (*Stream[T], error) {
	if source == nil {
		return nil, errors.New("stream: nil source")
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if settings.SubscriberBuffer <= 0 {
		settings.SubscriberBuffer = 16
	}
	return &Stream[T]{
		source:   source,
		settings: settings,
		subs:     make(map[*Subscription[T]]struct{}),
	}, nil
}

// Subscribe attaches a new consumer. Replay values, if any, are queued on
// the returned subscription before any live value.
func (s *Stream[T]) Subscribe() (*Subscription[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	sub := &Subscription[T]{
		ch: make(chan T, s.settings.SubscriberBuffer),
	}
	sub.cancel = func() { s.unsubscribe(sub) }
	s.subs[sub] = struct{}{}

	for _, v := range s.replay {
		s.deliver(sub, v)
	}

	s.maybeConnectLocked()
	return sub, nil
}

// SubscriberCount returns the number of attached subscribers.
func (s *Stream[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Connects returns how many times the source has been started.
func (s *Stream[T]) Connects() uint64 {
	return s.connects.Load()
}

// Connected reports whether the source is currently running.
func (s *Stream[T]) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Close cancels the source, waits for it to exit, and closes every
// subscriber channel. Safe to call multiple times.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	stop := s.stopSource
	subs := make([]*Subscription[T], 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[*Subscription[T]]struct{})
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	// Also waits out any previously stopped source still unwinding.
	s.sourceWG.Wait()
	for _, sub := range subs {
		sub.once.Do(func() {})
		close(sub.ch)
	}
}

// unsubscribe detaches sub and applies the disconnect policy.
func (s *Stream[T]) unsubscribe(sub *Subscription[T]) {
	s.mu.Lock()
	if _, ok := s.subs[sub]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
	s.maybeDisconnectLocked()
	s.mu.Unlock()
}

// maybeConnectLocked starts the source if the connect condition holds.
func (s *Stream[T]) maybeConnectLocked() {
	if s.started || s.closed {
		// A pending grace disconnect is voided by any resubscribe.
		if s.graceTimer != nil && len(s.subs) > 0 {
			s.graceTimer.Stop()
			s.graceTimer = nil
		}
		return
	}

	threshold := 1
	if s.settings.AutoConnectAfter > 0 {
		threshold = s.settings.AutoConnectAfter
		if s.everConnected {
			// Auto-connect latches; reconnection is not count-driven.
			return
		}
	}
	if len(s.subs) < threshold {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.started = true
	s.everConnected = true
	s.stopSource = cancel
	s.gen++
	gen := s.gen
	s.connects.Add(1)

	s.sourceWG.Add(1)
	go func() {
		defer s.sourceWG.Done()
		_ = s.source(ctx, func(v T) { s.emit(gen, v) })
	}()
}

// maybeDisconnectLocked stops the source per the ref-count policy.
func (s *Stream[T]) maybeDisconnectLocked() {
	if !s.started || s.closed || len(s.subs) > 0 {
		return
	}
	if s.settings.AutoConnectAfter > 0 {
		// Auto-connected sources run until Close.
		return
	}

	if s.settings.Grace <= 0 {
		s.stopLocked()
		return
	}
	if s.graceTimer != nil {
		return
	}
	s.graceTimer = time.AfterFunc(s.settings.Grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.graceTimer = nil
		if s.started && !s.closed && len(s.subs) == 0 {
			s.stopLocked()
		}
	})
}

// stopLocked cancels the source without waiting for it to exit; the
// source goroutine observes ctx and returns on its own. Bumping the
// generation fences out anything it emits while unwinding.
func (s *Stream[T]) stopLocked() {
	if s.stopSource != nil {
		s.stopSource()
		s.stopSource = nil
	}
	s.gen++
	s.started = false
}

// emit records v for replay and fans it out to every subscriber.
// Values from a superseded source incarnation are discarded.
func (s *Stream[T]) emit(gen uint64, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return
	}

	if rc := s.settings.replayCapacity(); rc > 0 {
		s.replay = append(s.replay, v)
		if len(s.replay) > rc {
			s.replay = s.replay[len(s.replay)-rc:]
		}
	}

	for sub := range s.subs {
		s.deliver(sub, v)
	}
}

// deliver enqueues v on sub's channel, dropping the value when the
// buffer is full.
func (s *Stream[T]) deliver(sub *Subscription[T], v T) {
	select {
	case sub.ch <- v:
	default:
		sub.dropped.Add(1)
	}
}
