// DeskLink Core
// Copyright (c) 2026 The DeskLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of DeskLink Core.
//
// DeskLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// DeskLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with DeskLink Core.  If not, see <http://www.gnu.org/licenses/>.

// Package broker provides a simple in-process notification broker for
// broadcasting events to multiple consumers without blocking.
package broker

import (
	"context"

	"github.com/DeskLinkProject/desklink-core/pkg/api/models"
	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Broker fans notifications out from a source channel to all subscribers.
// Sends to subscribers never block: a full subscriber drops that event and
// the rest still receive it.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]chan models.Notification
	mu          syncutil.RWMutex
	nextID      int
}

// NewBroker creates a broker reading from the source channel.
func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]chan models.Notification),
	}
}

// Start begins the broadcast loop in a goroutine. It exits, closing all
// subscriber channels, when the source channel closes or the context is
// cancelled.
func (b *Broker) Start() {
	go func() {
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a new subscriber with the given channel buffer size
// and returns its channel and an id for Unsubscribe.
func (b *Broker) Subscribe(bufferSize int) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	b.subscribers[id] = ch

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Msg("new subscriber registered")

	notifChan = ch
	return
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// repeatedly with the same id.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Stop closes all subscriber channels.
func (b *Broker) Stop() {
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
}
