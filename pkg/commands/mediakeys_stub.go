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

//go:build !linux

package commands

import "github.com/rs/zerolog/log"

// stubKeys logs media key presses on platforms without a virtual input
// backend.
type stubKeys struct{}

// NewMediaKeys returns a no-op implementation.
func NewMediaKeys() (MediaKeys, error) {
	return stubKeys{}, nil
}

func (stubKeys) PlayPause() error {
	log.Debug().Msg("media play/pause (no input backend on this platform)")
	return nil
}

func (stubKeys) Next() error {
	log.Debug().Msg("media next (no input backend on this platform)")
	return nil
}

func (stubKeys) Previous() error {
	log.Debug().Msg("media previous (no input backend on this platform)")
	return nil
}

func (stubKeys) Close() error { return nil }
