// Poolkeeper
// Copyright (c) 2026 The Poolkeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Poolkeeper.
//
// Poolkeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Poolkeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Poolkeeper.  If not, see <http://www.gnu.org/licenses/>.

package udev

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pilebones/go-udev/netlink"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/poolkeeper/poolkeeper/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the number of raw and adapted events that may queue
// up while the consumer is busy.
const DefaultBufferSize = 64

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("udev monitor already started")

// Source is a connection that delivers raw uevents. NetlinkSource is the
// production implementation.
type Source interface {
	Connect() error
	// Monitor starts delivery into queue and errs. Sending on the returned
	// channel stops delivery.
	Monitor(queue chan netlink.UEvent, errs chan error) chan struct{}
	Close() error
}

// NetlinkSource reads udev-processed events for the block subsystem from
// the kernel netlink socket.
type NetlinkSource struct {
	conn netlink.UEventConn
}

func (s *NetlinkSource) Connect() error {
	if err := s.conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("connecting to udev netlink: %w", err)
	}
	return nil
}

func (s *NetlinkSource) Monitor(queue chan netlink.UEvent, errs chan error) chan struct{} {
	matcher := &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{
			{Env: map[string]string{PropSubsystem: "block"}},
		},
	}
	return s.conn.Monitor(queue, errs, matcher)
}

func (s *NetlinkSource) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("closing udev netlink: %w", err)
	}
	return nil
}

// Monitor forwards snapshots of block device events, in arrival order, on
// the channel returned by Events. Events are never dropped: when the
// consumer falls behind the monitor stops reading.
type Monitor struct {
	src      Source
	events   chan *types.UdevEngineEvent
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       syncutil.Mutex
	stopOnce sync.Once
	started  bool
}

func NewMonitor(src Source, bufferSize int) *Monitor {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Monitor{
		src:      src,
		events:   make(chan *types.UdevEngineEvent, bufferSize),
		stopChan: make(chan struct{}),
	}
}

// Events is closed after Stop returns.
func (m *Monitor) Events() <-chan *types.UdevEngineEvent {
	return m.events
}

// Start connects the source and begins forwarding. The monitor runs until
// ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}

	if err := m.src.Connect(); err != nil {
		return err
	}
	m.started = true

	rawCh := make(chan netlink.UEvent, cap(m.events))
	errCh := make(chan error, 1)
	quit := m.src.Monitor(rawCh, errCh)

	m.wg.Add(1)
	go m.run(ctx, rawCh, errCh, quit)

	log.Info().Msg("udev monitor started")
	return nil
}

func (m *Monitor) run(
	ctx context.Context,
	rawCh chan netlink.UEvent,
	errCh chan error,
	quit chan struct{},
) {
	defer m.wg.Done()
	defer func() {
		select {
		case quit <- struct{}{}:
		default:
		}
		// The source delivers with blocking sends. Freeing the queues lets
		// a pending send finish so the source can observe quit.
		drain(rawCh, errCh)
		if err := m.src.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing udev source")
		}
		drain(rawCh, errCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case ev := <-rawCh:
			snap := Snapshot(&ev)
			log.Debug().
				Stringer("action", snap.EventType()).
				Str("kobj", ev.KObj).
				Msg("udev event")
			select {
			case m.events <- snap:
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			}
		case err := <-errCh:
			// Malformed messages and receive buffer overruns are reported
			// here; the socket stays usable.
			log.Warn().Err(err).Msg("udev monitor error")
		}
	}
}

func drain(rawCh chan netlink.UEvent, errCh chan error) {
	for {
		select {
		case <-rawCh:
		case <-errCh:
		default:
			return
		}
	}
}

// Stop ends forwarding, closes the source and closes the events channel.
// It is safe to call more than once, and without Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
		close(m.events)
		log.Info().Msg("udev monitor stopped")
	})
}
