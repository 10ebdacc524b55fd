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

// Package artwork fetches now-playing cover images, converts them to the
// device's pixel format and feeds the chunked transfer onto the priority
// send queue.
package artwork

import (
	"context"
	"sync"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/devicelink"
	"github.com/DeskLinkProject/desklink-core/pkg/frame"
	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/DeskLinkProject/desklink-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

const (
	fetchTimeout = 15 * time.Second
	// spaceWait bounds how long one chunk may wait for queue space. The
	// writer drains the priority queue even with no device attached, so a
	// timeout here means the writer itself is wedged.
	spaceWait = 5 * time.Second
)

// Fetcher retrieves raw image bytes for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches artwork over HTTP with image-response validation.
type HTTPFetcher struct {
	client *httpclient.Client
}

// NewHTTPFetcher returns a fetcher backed by the shared HTTP client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: httpclient.NewClient()}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.client.GetImage(ctx, url)
}

// Opts configures a Pipeline. OnSent is optional.
type Opts struct {
	Fetcher   Fetcher
	Queue     *devicelink.Queue[devicelink.Message]
	OnSent    func(url string)
	Width     int
	Height    int
	ChunkSize int
}

// Pipeline runs a single worker that turns artwork URLs into chunked image
// transfers. At most one job is in flight; submitting while one runs
// replaces the pending target rather than queueing up a backlog, and a
// fetch whose target was superseded mid-flight is discarded. Because the
// worker is the only producer of chunk messages, two transfers never
// interleave on the queue.
type Pipeline struct {
	fetcher   Fetcher
	queue     *devicelink.Queue[devicelink.Message]
	onSent    func(url string)
	notify    chan struct{}
	stopCh    chan struct{}
	pending   string
	inFlight  string
	width     int
	height    int
	chunkSize int
	started   bool
	mu        syncutil.Mutex
	wg        sync.WaitGroup
}

// NewPipeline returns a stopped pipeline.
func NewPipeline(opts Opts) *Pipeline {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}
	return &Pipeline{
		fetcher:   fetcher,
		queue:     opts.Queue,
		onSent:    opts.OnSent,
		width:     opts.Width,
		height:    opts.Height,
		chunkSize: opts.ChunkSize,
		notify:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.worker()
}

// Stop terminates the worker, abandoning any transfer in progress.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
}

// Submit requests a transfer of the image at url. Submitting the URL
// already in flight or already pending is a no-op; a different URL replaces
// the pending target. Submit never blocks.
func (p *Pipeline) Submit(url string) {
	if url == "" {
		return
	}

	p.mu.Lock()
	if url == p.inFlight || url == p.pending {
		p.mu.Unlock()
		return
	}
	if p.pending != "" {
		log.Debug().Str("old", p.pending).Str("new", url).
			Msg("artwork target superseded")
	}
	p.pending = url
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.notify:
		}

		for {
			p.mu.Lock()
			url := p.pending
			p.pending = ""
			p.inFlight = url
			p.mu.Unlock()

			if url == "" {
				break
			}

			p.process(url)

			p.mu.Lock()
			p.inFlight = ""
			p.mu.Unlock()
		}
	}
}

// process runs one fetch-convert-enqueue job. Any failure drops the job
// whole: the device either gets a complete frame or nothing new.
func (p *Pipeline) process(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	start := time.Now()
	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("artwork fetch failed")
		return
	}

	// A target submitted during the fetch supersedes this one; its bytes
	// are stale before they ever hit the queue.
	p.mu.Lock()
	stale := p.pending != "" && p.pending != url
	p.mu.Unlock()
	if stale {
		log.Debug().Str("url", url).Msg("artwork result stale, discarded")
		return
	}

	buf, err := frame.Decode(data, p.width, p.height)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("artwork decode failed")
		return
	}

	msgs := devicelink.EncodeArtwork(buf.Bytes(), p.chunkSize, map[string]string{"url": url})
	for i, msg := range msgs {
		select {
		case <-p.stopCh:
			return
		default:
		}

		// Pace against the bounded queue instead of letting a burst of
		// chunks evict each other.
		if !p.queue.WaitSpace(spaceWait) {
			log.Error().Str("url", url).Int("chunk", i).
				Msg("send queue stalled, aborting artwork transfer")
			return
		}
		p.queue.Enqueue(msg)
	}

	log.Info().Str("url", url).Int("chunks", len(msgs)-1).
		Dur("took", time.Since(start)).Msg("artwork transfer queued")

	if p.onSent != nil {
		p.onSent(url)
	}
}
