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

// Package broker fans notifications out from one source channel to any
// number of subscribers.
package broker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type Broker struct {
	ctx         context.Context
	cancel      context.CancelFunc
	source      <-chan models.Notification
	subscribers map[int]chan models.Notification
	wg          sync.WaitGroup
	dropped     atomic.Uint64
	mu          syncutil.RWMutex
	nextID      int
	stopped     bool
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	ctx, cancel := context.WithCancel(ctx)
	return &Broker{
		ctx:         ctx,
		cancel:      cancel,
		source:      source,
		subscribers: make(map[int]chan models.Notification),
	}
}

// Start runs the fan-out loop until the context is cancelled, the source is
// closed or Stop is called. Subscriber channels are closed on exit.
func (b *Broker) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.closeAllSubscribers()
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				return
			}
		}
	}()
}

// broadcast never blocks: a subscriber whose buffer is full misses the
// notification.
func (b *Broker) broadcast(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
		default:
			b.dropped.Add(1)
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a subscriber. After Stop the returned channel is
// already closed.
func (b *Broker) Subscribe(bufferSize int) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	if b.stopped {
		close(ch)
		return ch, id
	}
	b.subscribers[id] = ch

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Msg("new subscriber registered")

	return ch, id
}

func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Dropped is the number of notifications not delivered to a full
// subscriber.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Stop ends the fan-out loop and waits for it to exit.
func (b *Broker) Stop() {
	b.cancel()
	b.wg.Wait()
	b.closeAllSubscribers()
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]chan models.Notification)
	b.stopped = true
}
