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

package devicelink

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const serialReadTimeout = 100 * time.Millisecond

// SerialPort defines the serial port operations used by the transport
// (for mocking in tests).
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// SerialPortFactory creates a serial port connection.
type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultSerialPortFactory is the default factory that opens real serial ports.
func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// SerialTransport is a point-to-point USB serial link to the device. A read
// or write error closes the handle and marks it disconnected; it is never
// reopened by this type. Reopening is an operator action via Connect.
type SerialTransport struct {
	port        SerialPort
	portFactory SerialPortFactory
	path        string
	lines       []string
	lineBuf     []byte
	baud        int
	connected   bool
	mu          syncutil.Mutex
}

// NewSerialTransport returns an unconnected serial transport for the named
// port at the given baud rate.
func NewSerialTransport(path string, baud int) *SerialTransport {
	return &SerialTransport{
		path:        path,
		baud:        baud,
		portFactory: DefaultSerialPortFactory,
	}
}

func (t *SerialTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		_ = t.port.Close()
		t.port = nil
		t.connected = false
	}

	if runtime.GOOS != "windows" {
		if _, err := os.Stat(t.path); err != nil {
			return fmt.Errorf("failed to stat device path %s: %w", t.path, err)
		}
	}

	port, err := t.portFactory(t.path, &serial.Mode{
		BaudRate: t.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", t.path, err)
	}

	err = port.SetReadTimeout(serialReadTimeout)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	t.port = port
	t.connected = true
	t.lineBuf = nil
	t.lines = nil

	log.Info().Str("device", t.path).Int("baud", t.baud).Msg("serial transport connected")
	return nil
}

func (t *SerialTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected || t.port == nil {
		return ErrNotConnected
	}

	_, err := t.port.Write(data)
	if err != nil {
		t.dropLocked(err)
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	return nil
}

func (t *SerialTransport) TryReceiveLine() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line, ok := t.popLineLocked(); ok {
		return line, true
	}

	if !t.connected || t.port == nil {
		return "", false
	}

	// A zero-byte read means the timeout elapsed with no data.
	buf := make([]byte, 1024)
	n, err := t.port.Read(buf)
	if err != nil {
		t.dropLocked(err)
		return "", false
	}

	for i := 0; i < n; i++ {
		if buf[i] == '\n' {
			t.lines = append(t.lines, string(t.lineBuf))
			t.lineBuf = nil
		} else {
			t.lineBuf = append(t.lineBuf, buf[i])
		}
	}

	return t.popLineLocked()
}

// popLineLocked returns the next buffered non-empty line. Must be called
// with the mutex held.
func (t *SerialTransport) popLineLocked() (string, bool) {
	for len(t.lines) > 0 {
		line := strings.TrimSpace(t.lines[0])
		t.lines = t.lines[1:]
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// dropLocked closes the handle after an I/O error. Must be called with the
// mutex held.
func (t *SerialTransport) dropLocked(err error) {
	log.Warn().Err(err).Str("device", t.path).Msg("serial transport error, closing port")
	if t.port != nil {
		_ = t.port.Close()
		t.port = nil
	}
	t.connected = false
	t.lineBuf = nil
	t.lines = nil
}

func (t *SerialTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected && t.port != nil
}

func (*SerialTransport) Network() bool {
	return false
}

func (t *SerialTransport) Name() string {
	return "serial:" + t.path
}

func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		err := t.port.Close()
		t.port = nil
		t.connected = false
		if err != nil {
			return fmt.Errorf("failed to close serial port: %w", err)
		}
	}
	t.connected = false
	return nil
}
