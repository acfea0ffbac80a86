// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package remote bridges event producers on other machines into the
// local bus over a WebSocket connection. The remote side sends one JSON
// object per message; each decodes into a bus event and is emitted as
// if the device were attached locally.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulseframe/pulseframe/bus"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// Config describes one remote bridge connection.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the remote producer.
	URL string

	// Name identifies the bridge in logs and supervision. Empty
	// defaults to the endpoint host.
	Name string

	// PongWait is how long a silent connection is tolerated before the
	// read loop gives up. Pings go out at a third of this interval.
	// Zero means 60s.
	PongWait time.Duration

	// WriteWait bounds each outgoing control write. Zero means 10s.
	WriteWait time.Duration

	// MaxMessageSize bounds incoming messages in bytes. Zero means 64KiB.
	MaxMessageSize int64
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("remote: URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("remote: invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("remote: URL scheme %q, want ws or wss", u.Scheme)
	}
	if c.PongWait < 0 || c.WriteWait < 0 || c.MaxMessageSize < 0 {
		return errors.New("remote: deadlines and message size must not be negative")
	}
	return nil
}

// wireEvent is the JSON shape the remote side sends. Sequence numbers
// are assigned locally on emit, so the wire carries only the identity
// and payload.
type wireEvent struct {
	Type      string          `json:"type"`
	Producer  int             `json:"producer"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// Bridge is a peripheral whose device is a WebSocket endpoint. It
// implements the same loop contract as a local device: Run reads until
// ctx cancellation or a connection error, emitting each decoded event.
// Reconnection policy belongs to whoever supervises the loop.
type Bridge struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewBridge validates cfg and returns a bridge ready to run.
func NewBridge(cfg Config) (*Bridge, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		u, _ := url.Parse(cfg.URL)
		cfg.Name = u.Host
	}
	if cfg.PongWait == 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.WriteWait == 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	return &Bridge{cfg: cfg, dialer: websocket.DefaultDialer}, nil
}

// Name implements peripheral.Peripheral.
func (b *Bridge) Name() string { return "remote:" + b.cfg.Name }

// Run dials the endpoint and forwards incoming events until ctx is
// canceled or the connection drops.
func (b *Bridge) Run(ctx context.Context, emit func(bus.Event)) error {
	conn, _, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("remote: dial %s: %w", b.cfg.URL, err)
	}

	// Closing the connection is the only way to unblock ReadMessage,
	// so cancellation turns into a forced close.
	done := make(chan struct{})
	var once sync.Once
	closeConn := func() { once.Do(func() { conn.Close() }) }
	defer closeConn()
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			closeConn()
		case <-done:
		}
	}()

	conn.SetReadLimit(b.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	})

	// Keepalive pings; a peer that stops answering trips the read
	// deadline and ends the loop.
	pingTicker := time.NewTicker(b.cfg.PongWait / 3)
	defer pingTicker.Stop()
	go func() {
		for {
			select {
			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					closeConn()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("remote: read %s: %w", b.cfg.Name, err)
		}

		var we wireEvent
		if err := json.Unmarshal(payload, &we); err != nil {
			return fmt.Errorf("remote: decode %s: %w", b.cfg.Name, err)
		}
		if we.Type == "" {
			return fmt.Errorf("remote: %s sent an event without a type", b.cfg.Name)
		}

		e := bus.Event{Type: we.Type, Producer: we.Producer, Timestamp: we.Timestamp}
		if len(we.Data) > 0 {
			e.Data = we.Data
		}
		emit(e)
	}
}
