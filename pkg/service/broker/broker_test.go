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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerBroadcastsToAllSubscribers(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)

	a, _ := b.Subscribe(4)
	c, _ := b.Subscribe(4)
	b.Start()

	source <- models.Notification{Method: models.NotificationSnapshot}

	for _, ch := range []<-chan models.Notification{a, c} {
		select {
		case notif := <-ch:
			assert.Equal(t, models.NotificationSnapshot, notif.Method)
		case <-time.After(5 * time.Second):
			t.Fatal("subscriber did not receive notification")
		}
	}
}

func TestBrokerFullSubscriberDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)

	// Zero-buffer subscriber with no reader is permanently full.
	_, _ = b.Subscribe(0)
	healthy, _ := b.Subscribe(8)
	b.Start()

	for i := 0; i < 5; i++ {
		source <- models.Notification{Method: models.NotificationSnapshot}
	}

	received := 0
	deadline := time.After(5 * time.Second)
	for received < 5 {
		select {
		case <-healthy:
			received++
		case <-deadline:
			t.Fatalf("healthy subscriber got %d of 5 notifications", received)
		}
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	ch, id := b.Subscribe(1)
	b.Start()

	b.Unsubscribe(id)
	b.Unsubscribe(id) // safe to repeat

	_, open := <-ch
	assert.False(t, open)
}

func TestBrokerSourceCloseShutsDown(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	ch, _ := b.Subscribe(1)
	b.Start()

	close(source)

	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber channel not closed on source close")
	}
}

func TestBrokerContextCancelShutsDown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	source := make(chan models.Notification)
	b := NewBroker(ctx, source)
	ch, _ := b.Subscribe(1)
	b.Start()

	cancel()

	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber channel not closed on cancel")
	}
}
