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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, fileContents string) *Instance {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, CfgFile)
	t.Setenv(CfgEnv, path)

	if fileContents != "" {
		require.NoError(t, os.WriteFile(path, []byte(fileContents), 0o600))
	}

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	return cfg
}

func TestNewConfigCreatesDefaultFile(t *testing.T) {
	cfg := newTestConfig(t, "")

	_, err := os.Stat(cfg.Path())
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.SerialBaud())
	assert.Equal(t, "0.0.0.0", cfg.ListenHost())
	assert.Equal(t, 5555, cfg.ListenPort())
	assert.Equal(t, 2, cfg.PriorityQueueSize())
	assert.Equal(t, 8, cfg.NormalQueueSize())
	assert.Equal(t, time.Second, cfg.TickInterval())
	assert.Equal(t, 10*time.Second, cfg.MinResendInterval())

	width, height := cfg.FrameSize()
	assert.Equal(t, 80, width)
	assert.Equal(t, 80, height)
	assert.Equal(t, 512, cfg.ChunkSize())
	assert.Equal(t, 8080, cfg.APIPort())
	assert.False(t, cfg.DebugLogging())
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	cfg := newTestConfig(t, `
config_schema = 1
debug_logging = true

[devicelink]
serial_port = "/dev/ttyACM0"
serial_baud = 921600
listen_port = 6000

[telemetry]
tick_interval_ms = 500

[artwork]
frame_width = 160
frame_height = 160
`)

	assert.Equal(t, "/dev/ttyACM0", cfg.SerialPort())
	assert.Equal(t, 921600, cfg.SerialBaud())
	assert.Equal(t, 6000, cfg.ListenPort())
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval())

	width, height := cfg.FrameSize()
	assert.Equal(t, 160, width)
	assert.Equal(t, 160, height)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 512, cfg.ChunkSize())
	assert.Equal(t, 10*time.Second, cfg.MinResendInterval())
	assert.True(t, cfg.DebugLogging())
}

func TestConfigRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CfgFile)
	t.Setenv(CfgEnv, path)
	require.NoError(t, os.WriteFile(path, []byte("config_schema = 99\n"), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestConfigInvalidValuesFallBack(t *testing.T) {
	cfg := newTestConfig(t, `
config_schema = 1

[devicelink]
serial_baud = -1
priority_queue_size = 0

[artwork]
chunk_size = -5
`)

	assert.Equal(t, 115200, cfg.SerialBaud())
	assert.Equal(t, 2, cfg.PriorityQueueSize())
	assert.Equal(t, 512, cfg.ChunkSize())
}

func TestConfigSaveRoundTrip(t *testing.T) {
	cfg := newTestConfig(t, "")

	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())
	assert.True(t, cfg.DebugLogging())
}
