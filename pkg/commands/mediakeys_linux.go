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

//go:build linux

package commands

import (
	"fmt"
	"time"

	"github.com/bendahl/uinput"
)

const (
	uinputDev  = "/dev/uinput"
	deviceName = "DeskLink"
	pressDelay = 40 * time.Millisecond

	// Linux input event codes (input-event-codes.h).
	keyNextSong     = 163
	keyPlayPause    = 164
	keyPreviousSong = 165
)

// uinputKeys presses media keys through a virtual uinput keyboard, so they
// reach whatever player the desktop has focused, same as physical keys.
type uinputKeys struct {
	device uinput.Keyboard
}

// NewMediaKeys creates the uinput virtual keyboard. Requires access to
// /dev/uinput; the caller decides whether a failure is fatal.
func NewMediaKeys() (MediaKeys, error) {
	kbd, err := uinput.CreateKeyboard(uinputDev, []byte(deviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create keyboard device: %w", err)
	}
	return &uinputKeys{device: kbd}, nil
}

func (k *uinputKeys) press(key int) error {
	if err := k.device.KeyDown(key); err != nil {
		return fmt.Errorf("failed to press key down: %w", err)
	}
	time.Sleep(pressDelay)
	if err := k.device.KeyUp(key); err != nil {
		return fmt.Errorf("failed to release key: %w", err)
	}
	return nil
}

func (k *uinputKeys) PlayPause() error { return k.press(keyPlayPause) }
func (k *uinputKeys) Next() error      { return k.press(keyNextSong) }
func (k *uinputKeys) Previous() error  { return k.press(keyPreviousSong) }

func (k *uinputKeys) Close() error {
	if err := k.device.Close(); err != nil {
		return fmt.Errorf("failed to close keyboard device: %w", err)
	}
	return nil
}
