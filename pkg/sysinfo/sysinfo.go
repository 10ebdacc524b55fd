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

// Package sysinfo implements the default snapshot provider using live host
// statistics.
package sysinfo

import (
	"fmt"
	"sort"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/DeskLinkProject/desklink-core/pkg/snapshot"
	"github.com/mackerelio/go-osstat/uptime"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	procCacheTTL = 2 * time.Second
	topProcCount = 5
	// Processes below this memory share are noise on an 80px panel.
	minMemPercent = 0.1
)

// MediaSource supplies the current now-playing block, or nil when nothing
// is playing. Implementations are external collaborators (browser
// extension bridges, player APIs).
type MediaSource interface {
	Current() *snapshot.Media
}

// Collector assembles telemetry snapshots from gopsutil and an optional
// media source. The expensive per-process scan is cached for a short TTL;
// everything else is read fresh each call.
type Collector struct {
	media        MediaSource
	procCache    []snapshot.Process
	procCachedAt time.Time
	mu           syncutil.Mutex
}

// NewCollector returns a collector. media may be nil.
func NewCollector(media MediaSource) *Collector {
	return &Collector{media: media}
}

// Prime warms the CPU percentage baseline. gopsutil's non-blocking CPU read
// reports utilization since the previous call, so the first real snapshot
// needs one earlier sample to compare against.
func (c *Collector) Prime() {
	if _, err := cpu.Percent(0, false); err != nil {
		log.Debug().Err(err).Msg("cpu baseline sample failed")
	}
}

// Snapshot implements snapshot.Provider.
func (c *Collector) Snapshot() (*snapshot.Snapshot, error) {
	now := time.Now()
	_, offset := now.Zone()

	snap := &snapshot.Snapshot{
		LocalTime: now.Unix(),
		UTCOffset: offset,
	}

	if percents, err := cpu.Percent(0, false); err != nil {
		log.Debug().Err(err).Msg("cpu percent read failed")
	} else if len(percents) > 0 {
		snap.CPUPercentTotal = clampPercent(percents[0])
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Debug().Err(err).Msg("memory read failed")
	} else {
		snap.MemPercent = clampPercent(vm.UsedPercent)
	}

	if up, err := uptime.Get(); err != nil {
		log.Debug().Err(err).Msg("uptime read failed")
	} else {
		snap.UptimeSeconds = uint64(up.Seconds())
	}

	snap.ProcTop5 = c.topProcesses(now)
	snap.CPUTop5 = make([]string, 0, len(snap.ProcTop5))
	for _, p := range snap.ProcTop5 {
		snap.CPUTop5 = append(snap.CPUTop5, fmt.Sprintf("%.1f%% %s", p.Mem, p.Name))
	}

	if c.media != nil {
		snap.Media = c.media.Current()
	}

	return snap, nil
}

// topProcesses returns the heaviest processes by memory share, refreshing
// the cached scan only after its TTL expires.
func (c *Collector) topProcesses(now time.Time) []snapshot.Process {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.procCachedAt) < procCacheTTL {
		return c.procCache
	}

	procs, err := process.Processes()
	if err != nil {
		log.Debug().Err(err).Msg("process scan failed")
		return c.procCache
	}

	entries := make([]snapshot.Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		memPct, err := p.MemoryPercent()
		if err != nil {
			continue
		}
		memShare := clampPercent(float64(memPct))
		if memShare <= minMemPercent {
			continue
		}
		entries = append(entries, snapshot.Process{
			PID:  p.Pid,
			Name: name,
			Mem:  memShare,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Mem > entries[j].Mem
	})
	if len(entries) > topProcCount {
		entries = entries[:topProcCount]
	}

	c.procCache = entries
	c.procCachedAt = now
	return entries
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
