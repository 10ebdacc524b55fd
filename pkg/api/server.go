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

// Package api exposes the dashboard HTTP surface: a websocket feed of
// broker notifications and one-shot JSON endpoints for the latest state.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/api/models"
	"github.com/DeskLinkProject/desklink-core/pkg/config"
	"github.com/DeskLinkProject/desklink-core/pkg/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 30 * time.Second

// StateReader is the view of service state the API serves. Satisfied by
// *service.State.
type StateReader interface {
	BootID() string
	LatestSnapshot() *snapshot.Snapshot
	ActiveTarget() string
}

// Server is the dashboard HTTP server.
type Server struct {
	httpSrv  *http.Server
	ws       *melody.Melody
	listener net.Listener
	done     chan struct{}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing json response")
	}
}

// Start builds the router and begins serving on the configured port. The
// notifications channel feeds the websocket broadcast loop; the server owns
// the channel until Stop.
func Start(
	ctx context.Context,
	cfg *config.Instance,
	state StateReader,
	notifications <-chan models.Notification,
) (*Server, error) {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	ws := melody.New()
	ws.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }

	r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	ws.HandleMessage(func(session *melody.Session, msg []byte) {
		// ping command for heartbeat operation
		if string(msg) == "ping" {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
		}
	})

	r.Get("/api/v0/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, models.VersionResponse{
			Version:  config.AppVersion,
			Platform: runtime.GOOS,
			BootID:   state.BootID(),
		})
	})

	r.Get("/api/v0/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		snap := state.LatestSnapshot()
		if snap == nil {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap)
	})

	r.Get("/api/v0/device", func(w http.ResponseWriter, _ *http.Request) {
		target := state.ActiveTarget()
		writeJSON(w, map[string]any{
			"connected": target != "",
			"transport": target,
		})
	})

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.APIPort()))
	if err != nil {
		return nil, fmt.Errorf("failed to bind api port: %w", err)
	}

	srv := &Server{
		httpSrv:  &http.Server{Handler: r, ReadHeaderTimeout: requestTimeout},
		ws:       ws,
		listener: listener,
		done:     make(chan struct{}),
	}

	go srv.broadcastLoop(ctx, notifications)
	go func() {
		if serveErr := srv.httpSrv.Serve(listener); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {
			log.Error().Err(serveErr).Msg("error running http server")
		}
	}()

	log.Info().Int("port", cfg.APIPort()).Msg("api server listening")
	return srv, nil
}

// broadcastLoop relays broker notifications to every websocket client.
func (s *Server) broadcastLoop(ctx context.Context, notifications <-chan models.Notification) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("closing HTTP server via context cancellation")
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			data, err := json.Marshal(notif)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Addr returns the server's bound address, useful when configured with an
// ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop shuts the server down and waits for the broadcast loop to exit.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.ws.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing websocket sessions")
	}
	err := s.httpSrv.Shutdown(ctx)

	select {
	case <-s.done:
	case <-ctx.Done():
	}

	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
