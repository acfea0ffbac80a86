// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package peripheral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulseframe/pulseframe/bus"
)

// tickPeripheral emits counter events until canceled.
type tickPeripheral struct {
	name     string
	interval time.Duration
	failWith error
}

func (p *tickPeripheral) Name() string { return p.name }

func (p *tickPeripheral) Run(ctx context.Context, emit func(bus.Event)) error {
	if p.failWith != nil {
		return p.failWith
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n++
			emit(bus.Event{Type: "tick", Producer: 1, Data: n})
		}
	}
}

func TestRunnerForwardsIntoBus(t *testing.T) {
	b := bus.New()
	r := NewRunner(b, nil)
	defer r.Close()

	received := make(chan bus.Event, 1)
	b.Subscribe("tick", func(e bus.Event) error {
		select {
		case received <- e:
		default:
		}
		return nil
	})

	if _, err := r.Start(context.Background(), &tickPeripheral{name: "sim", interval: 5 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-received:
		if e.Type != "tick" {
			t.Errorf("event type = %q", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event reached the bus")
	}
}

func TestRunnerStopAndClose(t *testing.T) {
	b := bus.New()
	r := NewRunner(b, nil)

	id, err := r.Start(context.Background(), &tickPeripheral{name: "a", interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Start(context.Background(), &tickPeripheral{name: "b", interval: time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	r.Stop(id)
	deadline := time.Now().Add(time.Second)
	for r.Running() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.Running() != 1 {
		t.Fatalf("Running() = %d after Stop, want 1", r.Running())
	}

	r.Close()
	if r.Running() != 0 {
		t.Errorf("Running() = %d after Close, want 0", r.Running())
	}

	if _, err := r.Start(context.Background(), &tickPeripheral{name: "c", interval: time.Millisecond}); err == nil {
		t.Error("Start after Close succeeded")
	}
}

func TestRunnerFailedLoopIsNotRetried(t *testing.T) {
	b := bus.New()
	r := NewRunner(b, nil)
	defer r.Close()

	boom := errors.New("ble disconnect")
	if _, err := r.Start(context.Background(), &tickPeripheral{name: "flaky", failWith: boom}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for r.Running() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.Running() != 0 {
		t.Error("failed loop still counted as running")
	}
}

func TestStartDetected(t *testing.T) {
	b := bus.New()
	r := NewRunner(b, nil)
	defer r.Close()

	d := DetectorFunc(func(context.Context) ([]Peripheral, error) {
		return []Peripheral{
			&tickPeripheral{name: "a", interval: time.Millisecond},
			&tickPeripheral{name: "b", interval: time.Millisecond},
		}, nil
	})

	ids, err := r.StartDetected(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || r.Running() != 2 {
		t.Errorf("started %d loops (Running=%d), want 2", len(ids), r.Running())
	}

	failing := DetectorFunc(func(context.Context) ([]Peripheral, error) {
		return nil, errors.New("scan failed")
	})
	if _, err := r.StartDetected(context.Background(), failing); err == nil {
		t.Error("detector error swallowed")
	}
}
