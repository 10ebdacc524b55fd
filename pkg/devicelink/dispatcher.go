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
	"fmt"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// CommandHandler executes one device command. Handlers run on the reader
// loop goroutine, so they should hand long work off and return quickly.
type CommandHandler func(cmd *Command) error

// Dispatcher routes decoded device commands to registered handlers. Each
// received line is consumed by at most one handler; unknown kinds are
// logged and dropped.
type Dispatcher struct {
	handlers map[string]CommandHandler
	mu       syncutil.RWMutex
}

// NewDispatcher returns a dispatcher with no handlers registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]CommandHandler),
	}
}

// Register binds a handler to a command kind, replacing any previous
// handler for that kind.
func (d *Dispatcher) Register(kind string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

// Dispatch decodes a received line and runs its handler. A malformed line or
// an unknown kind is logged at debug level and dropped; line-level noise
// from the device must never take the link down. Handler panics are
// contained and reported as errors.
func (d *Dispatcher) Dispatch(line string) error {
	cmd, err := DecodeCommand(line)
	if err != nil {
		log.Debug().Err(err).Str("line", line).Msg("ignoring undecodable device line")
		return nil
	}

	d.mu.RLock()
	handler, ok := d.handlers[cmd.Kind]
	d.mu.RUnlock()

	if !ok {
		log.Debug().Str("cmd", cmd.Kind).Msg("no handler for device command")
		return nil
	}

	return d.run(cmd, handler)
}

func (d *Dispatcher) run(cmd *Command, handler CommandHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %s panicked: %v", cmd.Kind, r)
		}
	}()

	if err := handler(cmd); err != nil {
		return fmt.Errorf("failed to handle %s command: %w", cmd.Kind, err)
	}
	return nil
}
