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

// Package models defines the notification types shared between the service
// core and the dashboard API.
package models

// Notification methods published on the broker.
const (
	NotificationSnapshot           = "telemetry.snapshot"
	NotificationDeviceConnected    = "device.connected"
	NotificationDeviceDisconnected = "device.disconnected"
	NotificationArtworkSent        = "artwork.sent"
)

// Notification is one event published to dashboard subscribers.
type Notification struct {
	Params any    `json:"params,omitempty"`
	Method string `json:"method"`
}

// DeviceParams carries the transport identity for connect/disconnect
// notifications.
type DeviceParams struct {
	Transport string `json:"transport"`
}

// ArtworkParams carries the source URL of a completed artwork transfer.
type ArtworkParams struct {
	URL string `json:"url"`
}

// VersionResponse is the payload of the version endpoint.
type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
	BootID   string `json:"bootId"`
}
