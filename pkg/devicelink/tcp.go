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
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

const (
	tcpAcceptTimeout = 1 * time.Second
	tcpReadTimeout   = 50 * time.Millisecond
	tcpWriteTimeout  = 1 * time.Second
)

// TCPTransport listens for the device to dial in over WiFi. The listener is
// bound once; a dedicated accept loop admits exactly one client at a time.
// When the client drops, the accept loop resumes listening — the listener
// itself is never recreated.
type TCPTransport struct {
	listener   *net.TCPListener
	client     net.Conn
	host       string
	clientAddr string
	lines      []string
	recvBuf    []byte
	port       int
	running    bool
	mu         syncutil.Mutex
	wg         sync.WaitGroup
}

// NewTCPTransport returns an unbound TCP listener transport.
func NewTCPTransport(host string, port int) *TCPTransport {
	return &TCPTransport{
		host: host,
		port: port,
	}
}

func (t *TCPTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.New("tcp transport already started")
	}

	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(t.host, strconv.Itoa(t.port)))
	if err != nil {
		return fmt.Errorf("failed to resolve listen address: %w", err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind listener on %s:%d: %w", t.host, t.port, err)
	}

	t.listener = listener
	t.running = true
	t.wg.Add(1)
	go t.acceptLoop()

	log.Info().Str("host", t.host).Int("port", t.port).Msg("tcp transport listening")
	return nil
}

// acceptLoop blocks for one client at a time with a short accept timeout so
// Close can interrupt it within a bounded delay.
func (t *TCPTransport) acceptLoop() {
	defer t.wg.Done()

	for {
		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			return
		}
		hasClient := t.client != nil
		listener := t.listener
		t.mu.Unlock()

		if hasClient {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := listener.SetDeadline(time.Now().Add(tcpAcceptTimeout)); err != nil {
			log.Error().Err(err).Msg("tcp transport: failed to set accept deadline")
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("tcp transport: accept error")
			time.Sleep(tcpAcceptTimeout)
			continue
		}

		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.client = conn
		t.clientAddr = conn.RemoteAddr().String()
		t.recvBuf = nil
		t.lines = nil
		t.mu.Unlock()

		log.Info().Str("client", conn.RemoteAddr().String()).Msg("device connected over tcp")
	}
}

func (t *TCPTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return ErrNotConnected
	}

	if err := t.client.SetWriteDeadline(time.Now().Add(tcpWriteTimeout)); err != nil {
		t.dropClientLocked(err)
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	_, err := t.client.Write(data)
	if err != nil {
		t.dropClientLocked(err)
		return fmt.Errorf("failed to write to tcp client: %w", err)
	}
	return nil
}

func (t *TCPTransport) TryReceiveLine() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line, ok := t.popLineLocked(); ok {
		return line, true
	}

	if t.client == nil {
		return "", false
	}

	if err := t.client.SetReadDeadline(time.Now().Add(tcpReadTimeout)); err != nil {
		t.dropClientLocked(err)
		return "", false
	}

	buf := make([]byte, 4096)
	n, err := t.client.Read(buf)
	if n > 0 {
		t.recvBuf = append(t.recvBuf, buf[:n]...)
		t.splitLinesLocked()
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return t.popLineLocked()
		}
		// EOF is an orderly close from the peer.
		t.dropClientLocked(err)
	}

	return t.popLineLocked()
}

// splitLinesLocked moves complete lines out of the receive buffer. Must be
// called with the mutex held.
func (t *TCPTransport) splitLinesLocked() {
	for {
		idx := -1
		for i, b := range t.recvBuf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		t.lines = append(t.lines, string(t.recvBuf[:idx]))
		t.recvBuf = t.recvBuf[idx+1:]
	}
}

func (t *TCPTransport) popLineLocked() (string, bool) {
	for len(t.lines) > 0 {
		line := strings.TrimSpace(t.lines[0])
		t.lines = t.lines[1:]
		if line != "" {
			return line, true
		}
	}
	return "", false
}

func (t *TCPTransport) dropClientLocked(err error) {
	if t.client == nil {
		return
	}
	log.Info().Err(err).Str("client", t.clientAddr).
		Msg("tcp client disconnected, waiting for reconnect")
	_ = t.client.Close()
	t.client = nil
	t.clientAddr = ""
	t.recvBuf = nil
	t.lines = nil
}

func (t *TCPTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && t.client != nil
}

func (*TCPTransport) Network() bool {
	return true
}

func (t *TCPTransport) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr := t.clientAddr
	if addr == "" {
		addr = "waiting"
	}
	return fmt.Sprintf("tcp:%s:%d(client=%s)", t.host, t.port, addr)
}

// Addr returns the listener's bound address, useful when listening on an
// ephemeral port in tests.
func (t *TCPTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	t.running = false
	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close tcp listener: %w", err)
	}
	return nil
}
