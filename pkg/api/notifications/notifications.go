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

// Package notifications provides typed senders for broker events.
package notifications

import (
	"github.com/DeskLinkProject/desklink-core/pkg/api/models"
	"github.com/DeskLinkProject/desklink-core/pkg/snapshot"
)

func Snapshot(ns chan<- models.Notification, snap *snapshot.Snapshot) {
	ns <- models.Notification{
		Method: models.NotificationSnapshot,
		Params: snap,
	}
}

func DeviceConnected(ns chan<- models.Notification, transport string) {
	ns <- models.Notification{
		Method: models.NotificationDeviceConnected,
		Params: models.DeviceParams{Transport: transport},
	}
}

func DeviceDisconnected(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationDeviceDisconnected,
	}
}

func ArtworkSent(ns chan<- models.Notification, url string) {
	ns <- models.Notification{
		Method: models.NotificationArtworkSent,
		Params: models.ArtworkParams{URL: url},
	}
}
