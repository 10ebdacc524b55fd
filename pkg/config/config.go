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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "DESKLINK_CFG"
)

// Values is the on-disk shape of the config file.
type Values struct {
	DeviceLink   DeviceLink `toml:"devicelink"`
	Telemetry    Telemetry  `toml:"telemetry"`
	Artwork      Artwork    `toml:"artwork"`
	API          API        `toml:"api,omitempty"`
	ConfigSchema int        `toml:"config_schema"`
	DebugLogging bool       `toml:"debug_logging"`
}

// DeviceLink configures the transports and send queue bounds.
type DeviceLink struct {
	SerialPort        string `toml:"serial_port,omitempty"`
	SerialBaud        int    `toml:"serial_baud"`
	ListenHost        string `toml:"listen_host"`
	ListenPort        int    `toml:"listen_port"`
	PriorityQueueSize int    `toml:"priority_queue_size"`
	NormalQueueSize   int    `toml:"normal_queue_size"`
}

// Telemetry configures the snapshot scheduler.
type Telemetry struct {
	TickIntervalMS int `toml:"tick_interval_ms"`
	MinResendMS    int `toml:"min_resend_ms"`
}

// Artwork configures the image transfer pipeline.
type Artwork struct {
	FrameWidth  int `toml:"frame_width"`
	FrameHeight int `toml:"frame_height"`
	ChunkSize   int `toml:"chunk_size"`
}

// API configures the local dashboard endpoint.
type API struct {
	Port int `toml:"port"`
}

// BaseDefaults match the stock ESP32 display firmware.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	DeviceLink: DeviceLink{
		SerialBaud:        115200,
		ListenHost:        "0.0.0.0",
		ListenPort:        5555,
		PriorityQueueSize: 2,
		NormalQueueSize:   8,
	},
	Telemetry: Telemetry{
		TickIntervalMS: 1000,
		MinResendMS:    10000,
	},
	Artwork: Artwork{
		FrameWidth:  80,
		FrameHeight: 80,
		ChunkSize:   512,
	},
	API: API{
		Port: 8080,
	},
}

// Instance is a loaded config file. All reads go through accessor methods
// under a read lock so the file can be reloaded at runtime.
type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, creating it with defaults
// if it doesn't exist. The DESKLINK_CFG env var overrides the path.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.cfgPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) SerialPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceLink.SerialPort
}

func (c *Instance) SerialBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.DeviceLink.SerialBaud <= 0 {
		return c.defaults.DeviceLink.SerialBaud
	}
	return c.vals.DeviceLink.SerialBaud
}

func (c *Instance) ListenHost() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceLink.ListenHost
}

func (c *Instance) ListenPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceLink.ListenPort
}

func (c *Instance) PriorityQueueSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.DeviceLink.PriorityQueueSize <= 0 {
		return c.defaults.DeviceLink.PriorityQueueSize
	}
	return c.vals.DeviceLink.PriorityQueueSize
}

func (c *Instance) NormalQueueSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.DeviceLink.NormalQueueSize <= 0 {
		return c.defaults.DeviceLink.NormalQueueSize
	}
	return c.vals.DeviceLink.NormalQueueSize
}

func (c *Instance) TickInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms := c.vals.Telemetry.TickIntervalMS
	if ms <= 0 {
		ms = c.defaults.Telemetry.TickIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Instance) MinResendInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms := c.vals.Telemetry.MinResendMS
	if ms < 0 {
		ms = c.defaults.Telemetry.MinResendMS
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Instance) FrameSize() (width, height int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	width = c.vals.Artwork.FrameWidth
	height = c.vals.Artwork.FrameHeight
	if width <= 0 {
		width = c.defaults.Artwork.FrameWidth
	}
	if height <= 0 {
		height = c.defaults.Artwork.FrameHeight
	}
	return width, height
}

func (c *Instance) ChunkSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Artwork.ChunkSize <= 0 {
		return c.defaults.Artwork.ChunkSize
	}
	return c.vals.Artwork.ChunkSize
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.Port <= 0 {
		return c.defaults.API.Port
	}
	return c.vals.API.Port
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
