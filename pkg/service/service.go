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

// Package service wires the configured transports, queues, scheduler,
// artwork pipeline, command handlers and dashboard API into one running
// unit.
package service

import (
	"context"
	"fmt"

	"github.com/DeskLinkProject/desklink-core/pkg/api"
	"github.com/DeskLinkProject/desklink-core/pkg/api/notifications"
	"github.com/DeskLinkProject/desklink-core/pkg/artwork"
	"github.com/DeskLinkProject/desklink-core/pkg/commands"
	"github.com/DeskLinkProject/desklink-core/pkg/config"
	"github.com/DeskLinkProject/desklink-core/pkg/devicelink"
	"github.com/DeskLinkProject/desklink-core/pkg/service/broker"
	"github.com/DeskLinkProject/desklink-core/pkg/snapshot"
	"github.com/DeskLinkProject/desklink-core/pkg/sysinfo"
	"github.com/rs/zerolog/log"
)

// Opts carries the injectable collaborators. Zero values select the
// built-in implementations.
type Opts struct {
	// Provider supplies telemetry; defaults to the gopsutil collector.
	Provider snapshot.Provider
	// Media feeds the now-playing block of the default provider. Ignored
	// when Provider is set.
	Media sysinfo.MediaSource
	// DisableAPI skips the dashboard HTTP server.
	DisableAPI bool
}

// Start brings the service up from config and returns a stop function that
// tears everything down in reverse order.
func Start(cfg *config.Instance, opts Opts) (stop func() error, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	st := NewState()
	log.Info().Msgf("boot session UUID: %s", st.BootID())

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	notifBroker := broker.NewBroker(ctx, st.Notifications)
	notifBroker.Start()

	dispatcher := devicelink.NewDispatcher()

	mediaKeys, keysErr := commands.NewMediaKeys()
	if keysErr != nil {
		log.Warn().Err(keysErr).Msg("media keys unavailable, media commands disabled")
		mediaKeys = nil
	}
	commands.RegisterBuiltins(dispatcher, mediaKeys)

	manager := devicelink.NewManager(
		cfg.PriorityQueueSize(), cfg.NormalQueueSize(), dispatcher)

	manager.OnConnectionChange(func(target string) {
		st.SetActiveTarget(target)
		if target == "" {
			notifications.DeviceDisconnected(st.Notifications)
		} else {
			notifications.DeviceConnected(st.Notifications, target)
		}
	})

	// The network listener must come up; a taken port is a config error.
	tcp := devicelink.NewTCPTransport(cfg.ListenHost(), cfg.ListenPort())
	if tcpErr := tcp.Connect(); tcpErr != nil {
		return nil, fmt.Errorf("failed to start tcp transport: %w", tcpErr)
	}
	manager.AddTransport(tcp)

	// Serial is optional and only joins the registry when the port opens.
	if port := cfg.SerialPort(); port != "" {
		serial := devicelink.NewSerialTransport(port, cfg.SerialBaud())
		if serialErr := serial.Connect(); serialErr != nil {
			log.Warn().Err(serialErr).Str("port", port).
				Msg("serial device unavailable, continuing without it")
		} else {
			manager.AddTransport(serial)
		}
	}

	manager.Start()

	width, height := cfg.FrameSize()
	pipeline := artwork.NewPipeline(artwork.Opts{
		Queue:     manager.PriorityQueue(),
		Width:     width,
		Height:    height,
		ChunkSize: cfg.ChunkSize(),
		OnSent: func(url string) {
			notifications.ArtworkSent(st.Notifications, url)
		},
	})
	pipeline.Start()

	provider := opts.Provider
	if provider == nil {
		collector := sysinfo.NewCollector(opts.Media)
		collector.Prime()
		provider = collector
	}

	scheduler := snapshot.NewScheduler(snapshot.SchedulerOpts{
		Provider: provider,
		Sink:     manager,
		Artwork:  pipeline,
		Observer: func(snap *snapshot.Snapshot) {
			st.SetLatestSnapshot(snap)
			notifications.Snapshot(st.Notifications, snap)
		},
		Interval:  cfg.TickInterval(),
		MinResend: cfg.MinResendInterval(),
	})
	scheduler.Start()

	var apiServer *api.Server
	if !opts.DisableAPI {
		apiChan, _ := notifBroker.Subscribe(32)
		apiServer, err = api.Start(ctx, cfg, st, apiChan)
		if err != nil {
			scheduler.Stop()
			pipeline.Stop()
			manager.Stop()
			return nil, err
		}
	}

	stop = func() error {
		scheduler.Stop()
		pipeline.Stop()
		manager.Stop()

		if apiServer != nil {
			if stopErr := apiServer.Stop(); stopErr != nil {
				log.Warn().Err(stopErr).Msg("error stopping api server")
			}
		}
		if mediaKeys != nil {
			if closeErr := mediaKeys.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("error closing media keys")
			}
		}

		cancel()
		log.Info().Msg("service stopped")
		return nil
	}

	log.Info().Msg("service started")
	return stop, nil
}
