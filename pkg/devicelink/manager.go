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
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	normalDequeueWait = 100 * time.Millisecond
	readerSweepPause  = 10 * time.Millisecond
)

// ConnectionListener is notified when the manager's active transport changes.
// target is empty when no transport is connected.
type ConnectionListener func(target string)

// Manager owns the registered transports and the two bounded send queues.
// It runs exactly one writer loop and one reader loop, so transports never
// see concurrent sends or concurrent receives.
//
// Transport selection: the first connected network transport wins, then the
// first connected serial transport, else the link is idle and drained
// messages are discarded.
type Manager struct {
	dispatcher *Dispatcher
	priority   *Queue[Message]
	normal     *Queue[Message]
	stopCh     chan struct{}
	transports []Transport
	listeners  []ConnectionListener
	lastTarget string
	started    bool
	mu         syncutil.Mutex
	wg         sync.WaitGroup
}

// NewManager returns a manager with the given queue capacities and no
// transports registered.
func NewManager(priorityCap, normalCap int, dispatcher *Dispatcher) *Manager {
	return &Manager{
		priority:   NewQueue[Message](priorityCap),
		normal:     NewQueue[Message](normalCap),
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}
}

// AddTransport registers a transport. Registration order breaks ties within
// the network and serial groups. Must be called before Start.
func (m *Manager) AddTransport(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transports = append(m.transports, t)
}

// OnConnectionChange registers a listener for active-target transitions.
// Must be called before Start.
func (m *Manager) OnConnectionChange(fn ConnectionListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start launches the writer and reader loops.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.writerLoop()
	go m.readerLoop()
}

// Stop terminates both loops and closes every registered transport.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	transports := make([]Transport, len(m.transports))
	copy(transports, m.transports)
	m.mu.Unlock()

	for _, t := range transports {
		if err := t.Close(); err != nil {
			log.Warn().Err(err).Str("transport", t.Name()).
				Msg("error closing transport")
		}
	}
}

// Enqueue queues an outbound message on the priority or normal queue per its
// Priority flag. It never blocks; when the target queue is full the oldest
// entry is evicted.
func (m *Manager) Enqueue(msg Message) {
	if msg.Priority {
		m.priority.Enqueue(msg)
	} else {
		m.normal.Enqueue(msg)
	}
}

// PriorityQueue exposes the priority queue so paced producers can wait for
// space before enqueueing.
func (m *Manager) PriorityQueue() *Queue[Message] {
	return m.priority
}

// ActiveTransport returns the transport the writer would use right now, or
// nil when the link is idle.
func (m *Manager) ActiveTransport() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked()
}

// activeLocked applies the selection rule. Must be called with the mutex
// held.
func (m *Manager) activeLocked() Transport {
	for _, t := range m.transports {
		if t.Network() && t.Connected() {
			return t
		}
	}
	for _, t := range m.transports {
		if !t.Network() && t.Connected() {
			return t
		}
	}
	return nil
}

// writerLoop drains the queues onto the active transport. The priority
// queue is always drained first; a normal message is only sent when no
// priority message is waiting.
func (m *Manager) writerLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if msg, ok := m.priority.TryDequeue(); ok {
			m.deliver(msg)
			continue
		}

		if msg, ok := m.normal.DequeueTimeout(normalDequeueWait); ok {
			// Re-check priority: artwork queued while we waited outranks
			// this snapshot, but the snapshot is already dequeued, so it
			// goes out first and priority resumes on the next pass.
			m.deliver(msg)
		}
	}
}

// deliver sends one message on the active transport, discarding it when the
// link is idle. Send errors are logged and the message dropped; the
// transport marks itself disconnected and the next pass reselects.
func (m *Manager) deliver(msg Message) {
	m.mu.Lock()
	target := m.activeLocked()
	m.mu.Unlock()

	m.notifyTarget(target)

	if target == nil {
		log.Debug().Stringer("kind", msg.Kind).Msg("link idle, discarding message")
		return
	}

	if err := target.Send(msg.Payload); err != nil {
		log.Warn().Err(err).Str("transport", target.Name()).
			Stringer("kind", msg.Kind).Msg("failed to send message")
	}
}

// readerLoop polls every connected transport for inbound lines and hands
// them to the dispatcher. One line per transport per sweep keeps a chatty
// transport from starving the others.
func (m *Manager) readerLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		m.mu.Lock()
		transports := make([]Transport, len(m.transports))
		copy(transports, m.transports)
		m.mu.Unlock()

		received := false
		for _, t := range transports {
			if !t.Connected() {
				continue
			}
			line, ok := t.TryReceiveLine()
			if !ok {
				continue
			}
			received = true
			if err := m.dispatcher.Dispatch(line); err != nil {
				log.Error().Err(err).Str("transport", t.Name()).
					Msg("device command failed")
			}
		}

		m.notifyTarget(m.ActiveTransport())

		if !received {
			select {
			case <-m.stopCh:
				return
			case <-time.After(readerSweepPause):
			}
		}
	}
}

// notifyTarget fires connection listeners when the active target changes.
func (m *Manager) notifyTarget(target Transport) {
	name := ""
	if target != nil {
		name = target.Name()
	}

	m.mu.Lock()
	if name == m.lastTarget {
		m.mu.Unlock()
		return
	}
	m.lastTarget = name
	listeners := make([]ConnectionListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if name == "" {
		log.Info().Msg("device link idle, no transport connected")
	} else {
		log.Info().Str("transport", name).Msg("device link active")
	}

	for _, fn := range listeners {
		fn(name)
	}
}
