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

package snapshot

import (
	"sync"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/devicelink"
	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Sink accepts encoded outbound messages. Satisfied by
// *devicelink.Manager.
type Sink interface {
	Enqueue(msg devicelink.Message)
}

// ArtworkSubmitter accepts artwork fetch requests. Satisfied by
// *artwork.Pipeline.
type ArtworkSubmitter interface {
	Submit(url string)
}

// Observer receives every assembled snapshot, including ones whose link
// send was deduplicated. Observers run on the scheduler goroutine.
type Observer func(*Snapshot)

// SchedulerOpts configures a Scheduler. Artwork and Observer are optional.
type SchedulerOpts struct {
	Provider  Provider
	Sink      Sink
	Artwork   ArtworkSubmitter
	Observer  Observer
	Clock     clockwork.Clock
	Interval  time.Duration
	MinResend time.Duration
}

// Scheduler produces telemetry at a fixed cadence. Ticking is drift-free:
// each deadline is the previous deadline plus the interval, not now plus the
// interval, so a slow provider doesn't accumulate lag.
//
// Dedup rule: a snapshot whose fingerprint matches the previous send is
// skipped while the minimum resend interval has not yet elapsed. Observers
// are notified regardless.
type Scheduler struct {
	provider     Provider
	sink         Sink
	artwork      ArtworkSubmitter
	observer     Observer
	clock        clockwork.Clock
	stopCh       chan struct{}
	interval     time.Duration
	minResend    time.Duration
	lastSent     time.Time
	requestedURL string
	lastPrint    uint64
	sentOnce     bool
	started      bool
	mu           syncutil.Mutex
	wg           sync.WaitGroup
}

// NewScheduler validates opts and returns a stopped scheduler.
func NewScheduler(opts SchedulerOpts) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		provider:  opts.Provider,
		sink:      opts.Sink,
		artwork:   opts.Artwork,
		observer:  opts.Observer,
		clock:     clock,
		interval:  opts.Interval,
		minResend: opts.MinResend,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
}

// Stop terminates the tick loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	next := s.clock.Now().Add(s.interval)
	for {
		s.tick()

		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		next = next.Add(s.interval)

		select {
		case <-s.stopCh:
			return
		case <-s.clock.After(wait):
		}
	}
}

// tick assembles one snapshot, drives artwork, notifies observers and sends
// on the link unless deduplicated.
func (s *Scheduler) tick() {
	snap, err := s.provider.Snapshot()
	if err != nil {
		log.Warn().Err(err).Msg("snapshot provider failed, skipping tick")
		return
	}
	if snap == nil {
		return
	}

	s.maybeRequestArtwork(snap)

	if s.observer != nil {
		s.observer(snap)
	}

	fp := snap.Fingerprint()
	now := s.clock.Now()

	s.mu.Lock()
	dedup := s.sentOnce && fp == s.lastPrint && now.Sub(s.lastSent) < s.minResend
	if !dedup {
		s.lastPrint = fp
		s.lastSent = now
		s.sentOnce = true
	}
	s.mu.Unlock()

	if dedup {
		log.Trace().Uint64("fingerprint", fp).Msg("snapshot unchanged, send skipped")
		return
	}

	msg, err := devicelink.EncodeSnapshotLine(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	s.sink.Enqueue(msg)
}

// maybeRequestArtwork submits a fetch when the snapshot carries an artwork
// URL that differs from the last one requested. The dedup key is the last
// *requested* URL, not the last delivered one, so a failed fetch is not
// retried until the track changes.
func (s *Scheduler) maybeRequestArtwork(snap *Snapshot) {
	if s.artwork == nil {
		return
	}
	url := snap.ArtworkURL()
	if url == "" {
		return
	}

	s.mu.Lock()
	changed := url != s.requestedURL
	if changed {
		s.requestedURL = url
	}
	s.mu.Unlock()

	if changed {
		log.Debug().Str("url", url).Msg("artwork changed, submitting fetch")
		s.artwork.Submit(url)
	}
}
