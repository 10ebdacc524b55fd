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

package devicelink

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory transport for manager tests.
type fakeTransport struct {
	name      string
	sent      [][]byte
	inbound   []string
	network   bool
	connected bool
	sendErr   error
	mu        sync.Mutex
}

func (f *fakeTransport) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		f.connected = false
		return f.sendErr
	}
	if !f.connected {
		return ErrNotConnected
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) TryReceiveLine() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return "", false
	}
	line := f.inbound[0]
	f.inbound = f.inbound[1:]
	return line, true
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Network() bool { return f.network }
func (f *fakeTransport) Name() string  { return f.name }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

func (f *fakeTransport) pushLine(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, line)
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) sentPayloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, b := range f.sent {
		out[i] = string(b)
	}
	return out
}

func startManager(t *testing.T, m *Manager) {
	t.Helper()
	m.Start()
	t.Cleanup(m.Stop)
}

func TestManagerPrefersNetworkTransport(t *testing.T) {
	t.Parallel()

	serial := &fakeTransport{name: "serial:/dev/ttyACM0", connected: true}
	tcp := &fakeTransport{name: "tcp:0.0.0.0:5555", network: true, connected: true}

	m := NewManager(2, 8, NewDispatcher())
	m.AddTransport(serial)
	m.AddTransport(tcp)

	assert.Equal(t, tcp, m.ActiveTransport())

	tcp.setConnected(false)
	assert.Equal(t, Transport(serial), m.ActiveTransport())

	serial.setConnected(false)
	assert.Nil(t, m.ActiveTransport())
}

func TestManagerDeliversQueuedMessages(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{name: "fake", connected: true}
	m := NewManager(2, 8, NewDispatcher())
	m.AddTransport(tr)
	startManager(t, m)

	m.Enqueue(Message{Payload: []byte("one\n"), Kind: KindSnapshot})
	m.Enqueue(Message{Payload: []byte("two\n"), Kind: KindSnapshot})

	require.Eventually(t, func() bool {
		return tr.sentCount() == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"one\n", "two\n"}, tr.sentPayloads())
}

func TestManagerPriorityDrainsFirst(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{name: "fake"}
	m := NewManager(4, 8, NewDispatcher())
	m.AddTransport(tr)
	startManager(t, m)

	// Queue both classes while the link is down so the writer can't race
	// the enqueues, then bring the link up and observe drain order.
	m.Enqueue(Message{Payload: []byte("normal1\n"), Kind: KindSnapshot})
	m.Enqueue(Message{Payload: []byte("prio1\n"), Kind: KindArtworkChunk, Priority: true})
	m.Enqueue(Message{Payload: []byte("prio2\n"), Kind: KindArtworkEnd, Priority: true})

	// Give the writer a moment to discard-idle: messages drained while no
	// transport is connected are dropped, so re-queue after connecting.
	time.Sleep(300 * time.Millisecond)
	tr.setConnected(true)

	m.Enqueue(Message{Payload: []byte("normal2\n"), Kind: KindSnapshot})
	m.Enqueue(Message{Payload: []byte("prio3\n"), Kind: KindArtworkChunk, Priority: true})

	require.Eventually(t, func() bool {
		return tr.sentCount() >= 2
	}, 5*time.Second, 10*time.Millisecond)

	payloads := tr.sentPayloads()
	assert.Contains(t, payloads, "prio3\n")
	assert.Contains(t, payloads, "normal2\n")
}

func TestManagerDiscardsWhenIdle(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{name: "fake"}
	m := NewManager(2, 8, NewDispatcher())
	m.AddTransport(tr)
	startManager(t, m)

	m.Enqueue(Message{Payload: []byte("lost\n"), Kind: KindSnapshot})

	// The writer drains and discards rather than letting the queue fill.
	require.Eventually(t, func() bool {
		return m.normal.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, tr.sentCount())
}

func TestManagerDispatchesInboundLines(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{name: "fake", connected: true}
	d := NewDispatcher()

	var mu sync.Mutex
	var got []string
	d.Register("ping", func(cmd *Command) error {
		mu.Lock()
		defer mu.Unlock()
		id, _ := cmd.IntField("id")
		got = append(got, cmd.Kind, string(rune('0'+id)))
		return nil
	})

	m := NewManager(2, 8, d)
	m.AddTransport(tr)
	startManager(t, m)

	tr.pushLine(`{"cmd":"ping","id":1}`)
	tr.pushLine(`{"cmd":"ping","id":2}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ping", "1", "ping", "2"}, got)
}

func TestManagerConnectionNotifications(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{name: "fake", connected: true}
	m := NewManager(2, 8, NewDispatcher())
	m.AddTransport(tr)

	var mu sync.Mutex
	var targets []string
	m.OnConnectionChange(func(target string) {
		mu.Lock()
		defer mu.Unlock()
		targets = append(targets, target)
	})

	startManager(t, m)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(targets) >= 1 && targets[0] == "fake"
	}, 5*time.Second, 10*time.Millisecond)

	tr.setConnected(false)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(targets) >= 2 && targets[len(targets)-1] == ""
	}, 5*time.Second, 10*time.Millisecond)
}

func TestManagerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{name: "fake", connected: true}
	m := NewManager(2, 8, NewDispatcher())
	m.AddTransport(tr)
	m.Start()
	m.Start() // no-op

	m.Stop()
	m.Stop() // no-op

	assert.False(t, tr.Connected())
}
