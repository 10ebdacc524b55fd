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

// Package devicelink implements the transport layer between the host and the
// embedded display: interchangeable serial/TCP transports, a single-writer
// single-reader manager with bounded send queues, the newline-framed wire
// codec, and the inbound command dispatcher.
package devicelink

import "errors"

// ErrNotConnected is returned by transport sends when no device is attached.
var ErrNotConnected = errors.New("transport not connected")

// MessageKind describes what an outbound message carries. The writer loop
// treats all kinds the same; kinds exist for logging and tests.
type MessageKind int

const (
	KindSnapshot MessageKind = iota
	KindArtworkChunk
	KindArtworkEnd
)

func (k MessageKind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindArtworkChunk:
		return "artwork_chunk"
	case KindArtworkEnd:
		return "artwork_end"
	default:
		return "unknown"
	}
}

// Message is one framed line queued for transmission. The payload includes
// the trailing newline. A message is owned by the queue from enqueue until
// the writer loop drains it.
type Message struct {
	Metadata map[string]string
	Payload  []byte
	Kind     MessageKind
	Priority bool
}

// Transport is a byte-stream channel to the display device. Implementations
// own their connection lifecycle; the Manager only selects between them.
//
// Send and TryReceiveLine must be safe to call from different goroutines,
// but neither is ever called concurrently with itself: the Manager runs
// exactly one writer and one reader loop.
type Transport interface {
	// Connect opens the transport. For the TCP listener variant this binds
	// and starts accepting; a device may attach later.
	Connect() error
	// Send writes raw bytes to the device. Errors mark the transport
	// disconnected; they never panic and never block without bound.
	Send(data []byte) error
	// TryReceiveLine returns the next complete line from the device without
	// blocking beyond a short internal read timeout. The line is returned
	// without its terminator. ok is false when no complete line is waiting.
	TryReceiveLine() (line string, ok bool)
	// Connected reports whether a device is currently attached.
	Connected() bool
	// Network reports whether this is a network transport, which the
	// Manager prefers over serial when both are connected.
	Network() bool
	// Name identifies the transport for logging.
	Name() string
	// Close tears down the transport and any listener it owns.
	Close() error
}
