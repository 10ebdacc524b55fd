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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/DeskLinkProject/desklink-core/pkg/config"
	"github.com/DeskLinkProject/desklink-core/pkg/helpers"
	"github.com/DeskLinkProject/desklink-core/pkg/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String(
		"config-dir",
		"",
		"path to configuration directory",
	)
	daemonMode := flag.Bool(
		"daemon",
		false,
		"run in foreground logging to stderr",
	)
	listPorts := flag.Bool(
		"list-ports",
		false,
		"list available serial ports and exit",
	)
	showVersion := flag.Bool(
		"version",
		false,
		"print version and exit",
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		return nil
	}

	if *listPorts {
		ports, err := helpers.GetSerialDeviceList()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return nil
	}

	dir := *configDir
	if dir == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config directory: %w", err)
		}
		dir = filepath.Join(userDir, config.AppName)
	}

	var logWriters []io.Writer
	if *daemonMode {
		logWriters = []io.Writer{os.Stderr}
	}
	if err := helpers.InitLogging(dir, logWriters); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", r)
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	stop, err := service.Start(cfg, service.Opts{})
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info().Msgf("received signal %s, shutting down", sig)

	if err := stop(); err != nil {
		return fmt.Errorf("error stopping service: %w", err)
	}
	return nil
}
