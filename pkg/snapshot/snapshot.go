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

// Package snapshot defines the telemetry record streamed to the display and
// the scheduler that produces it at a fixed cadence with content dedup.
package snapshot

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Process is one entry of the top-processes list shown on the device.
type Process struct {
	Name string  `json:"name"`
	Mem  float64 `json:"mem"`
	PID  int32   `json:"pid"`
}

// Media is the now-playing block. ArtworkURL is used host-side to drive the
// artwork pipeline; the image itself goes to the device out of band, so the
// URL is never serialized.
type Media struct {
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Album           string  `json:"album"`
	ArtworkURL      string  `json:"-"`
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsPlaying       bool    `json:"is_playing"`
	HasArtwork      bool    `json:"has_artwork"`
}

// Snapshot is one telemetry record, assembled once per scheduler tick and
// immutable after that. Battery and GPU fields are optional: a host without
// a producer for them serializes null, which the firmware treats as absent.
type Snapshot struct {
	BatteryPercent  *float64  `json:"battery_percent"`
	PowerPlugged    *bool     `json:"power_plugged"`
	Media           *Media    `json:"media,omitempty"`
	CPUTop5         []string  `json:"cpu_top5_process"`
	ProcTop5        []Process `json:"proc_top5"`
	LocalTime       int64     `json:"local_time"`
	UptimeSeconds   uint64    `json:"uptime_seconds"`
	CPUPercentTotal float64   `json:"cpu_percent_total"`
	MemPercent      float64   `json:"mem_percent"`
	GPUPercent      float64   `json:"gpu_percent"`
	UTCOffset       int       `json:"utc_offset"`
}

// Fingerprint digests the fields that matter for display freshness: load
// gauges rounded to whole percent, media identity and play state, and the
// local time truncated to the minute. Two snapshots with equal fingerprints
// render identically, so resending one is wasted link bandwidth. The value
// is host-internal and never transmitted.
func (s *Snapshot) Fingerprint() uint64 {
	h := xxhash.New()

	_, _ = fmt.Fprintf(h, "%d|%d|%d|%d|",
		int(math.Round(s.CPUPercentTotal)),
		int(math.Round(s.MemPercent)),
		int(math.Round(s.GPUPercent)),
		s.LocalTime/60,
	)

	if s.Media != nil {
		_, _ = fmt.Fprintf(h, "%s|%s|%s|%t|",
			s.Media.Title, s.Media.Artist, s.Media.Album, s.Media.IsPlaying)
	}

	for _, p := range s.ProcTop5 {
		_, _ = fmt.Fprintf(h, "%d:%s|", p.PID, p.Name)
	}

	return h.Sum64()
}

// ArtworkURL returns the media artwork URL, or empty when there is no media
// block or no artwork.
func (s *Snapshot) ArtworkURL() string {
	if s.Media == nil {
		return ""
	}
	return s.Media.ArtworkURL
}

// Provider supplies the current telemetry fields on demand. Implementations
// must return quickly; the scheduler calls this on every tick.
type Provider interface {
	Snapshot() (*Snapshot, error)
}
