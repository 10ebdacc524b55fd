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

// Package commands implements the built-in handlers for commands the
// display sends back: process kill and media transport keys.
package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/devicelink"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

const killWait = 3 * time.Second

// MediaKeys injects media transport key presses into the host. The Linux
// implementation uses a uinput virtual keyboard; other platforms get a
// logging stub.
type MediaKeys interface {
	PlayPause() error
	Next() error
	Previous() error
	Close() error
}

// Kill terminates the process with the given pid: polite terminate first,
// escalating to a hard kill if it hasn't exited within the grace period.
func Kill(pid int32) error {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("no such process %d: %w", pid, err)
	}

	if err := proc.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(killWait)
	for time.Now().Before(deadline) {
		running, err := proc.IsRunning()
		if err != nil || !running {
			log.Info().Int32("pid", pid).Msg("process terminated")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill pid %d: %w", pid, err)
	}
	log.Info().Int32("pid", pid).Msg("process killed after grace period")
	return nil
}

// RegisterBuiltins binds the standard device command set on the dispatcher.
// Kinds mirror the firmware: "kill" with a pid field, and the media
// transport kinds "play", "pause", "next", "previous". Play and pause both
// map to the toggle key, which works with any player. A nil keys skips the
// media handlers, for hosts without an input backend.
func RegisterBuiltins(d *devicelink.Dispatcher, keys MediaKeys) {
	d.Register("kill", func(cmd *devicelink.Command) error {
		pid, ok := cmd.IntField("pid")
		if !ok {
			return errors.New("kill command missing pid field")
		}
		return Kill(int32(pid))
	})

	if keys == nil {
		return
	}

	toggle := func(_ *devicelink.Command) error {
		return keys.PlayPause()
	}
	d.Register("play", toggle)
	d.Register("pause", toggle)

	d.Register("next", func(_ *devicelink.Command) error {
		return keys.Next()
	})
	d.Register("previous", func(_ *devicelink.Command) error {
		return keys.Previous()
	})
}
