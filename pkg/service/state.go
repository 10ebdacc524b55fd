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

package service

import (
	"github.com/DeskLinkProject/desklink-core/pkg/api/models"
	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/DeskLinkProject/desklink-core/pkg/snapshot"
	"github.com/google/uuid"
)

// State is the service's shared runtime state: the boot session identity,
// the latest assembled snapshot for one-shot API reads, the active link
// target, and the notifications channel feeding the broker.
type State struct {
	Notifications chan models.Notification
	latest        *snapshot.Snapshot
	bootID        string
	activeTarget  string
	mu            syncutil.RWMutex
}

// NewState returns runtime state with a fresh boot UUID.
func NewState() *State {
	return &State{
		bootID:        uuid.New().String(),
		Notifications: make(chan models.Notification, 32),
	}
}

// BootID returns the UUID generated for this service run.
func (s *State) BootID() string {
	return s.bootID
}

// SetLatestSnapshot stores the most recent snapshot.
func (s *State) SetLatestSnapshot(snap *snapshot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap
}

// LatestSnapshot returns the most recent snapshot, or nil before the first
// tick.
func (s *State) LatestSnapshot() *snapshot.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// SetActiveTarget records the currently active transport name, empty when
// the link is idle.
func (s *State) SetActiveTarget(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTarget = target
}

// ActiveTarget returns the active transport name, empty when idle.
func (s *State) ActiveTarget() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTarget
}
