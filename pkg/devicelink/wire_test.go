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
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSnapshotLine(t *testing.T) {
	t.Parallel()

	msg, err := EncodeSnapshotLine(map[string]any{
		"cpu_percent_total": 42.5,
		"mem_percent":       61.0,
	})
	require.NoError(t, err)

	assert.Equal(t, KindSnapshot, msg.Kind)
	assert.False(t, msg.Priority)

	payload := string(msg.Payload)
	require.True(t, strings.HasSuffix(payload, "\n"))
	assert.NotContains(t, strings.TrimSuffix(payload, "\n"), "\n")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.InDelta(t, 42.5, decoded["cpu_percent_total"], 0.001)
}

func TestEncodeArtworkChunking(t *testing.T) {
	t.Parallel()

	// A 2x1 RGB565 buffer is 4 bytes, base64 "AAECAw==" (8 chars), which a
	// chunk size of 4 splits into exactly two chunk lines.
	pixels := []byte{0x00, 0x01, 0x02, 0x03}
	msgs := EncodeArtwork(pixels, 4, nil)
	require.Len(t, msgs, 3)

	assert.Equal(t, "IMG:AAEC\n", string(msgs[0].Payload))
	assert.Equal(t, "IMG:Aw==\n", string(msgs[1].Payload))
	assert.Equal(t, "IMG_END\n", string(msgs[2].Payload))

	assert.Equal(t, KindArtworkChunk, msgs[0].Kind)
	assert.Equal(t, KindArtworkChunk, msgs[1].Kind)
	assert.Equal(t, KindArtworkEnd, msgs[2].Kind)
	for _, msg := range msgs {
		assert.True(t, msg.Priority)
	}

	round, err := ReassembleArtwork(msgs)
	require.NoError(t, err)
	assert.Equal(t, pixels, round)
}

func TestEncodeArtworkEmptyBuffer(t *testing.T) {
	t.Parallel()

	msgs := EncodeArtwork(nil, 512, nil)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindArtworkEnd, msgs[0].Kind)
}

func TestEncodeArtworkFullFrame(t *testing.T) {
	t.Parallel()

	// An 80x80 RGB565 frame is 12800 bytes. Every chunk line's payload must
	// stay within the configured chunk size and decode back byte for byte.
	pixels := make([]byte, 80*80*2)
	for i := range pixels {
		pixels[i] = byte(i)
	}

	msgs := EncodeArtwork(pixels, 512, map[string]string{"url": "http://x/art.jpg"})
	encodedLen := base64.StdEncoding.EncodedLen(len(pixels))
	wantChunks := (encodedLen + 511) / 512
	require.Len(t, msgs, wantChunks+1)

	for _, msg := range msgs[:wantChunks] {
		line := strings.TrimSuffix(string(msg.Payload), "\n")
		require.True(t, strings.HasPrefix(line, ImagePrefix))
		assert.LessOrEqual(t, len(line)-len(ImagePrefix), 512)
		assert.Equal(t, "http://x/art.jpg", msg.Metadata["url"])
	}

	round, err := ReassembleArtwork(msgs)
	require.NoError(t, err)
	assert.Equal(t, pixels, round)
}

func TestDecodeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		wantKind string
		wantErr  bool
	}{
		{
			name:     "cmd field",
			line:     `{"cmd":"media_next"}`,
			wantKind: "media_next",
		},
		{
			name:     "type field fallback",
			line:     `{"type":"kill_process","pid":1234}`,
			wantKind: "kill_process",
		},
		{
			name:     "cmd wins over type",
			line:     `{"cmd":"ping","type":"other"}`,
			wantKind: "ping",
		},
		{
			name:    "not json",
			line:    "garbage line",
			wantErr: true,
		},
		{
			name:    "json but not an object",
			line:    `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "object without kind",
			line:    `{"pid":55}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, err := DecodeCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, cmd.Kind)
		})
	}
}

func TestCommandFieldAccessors(t *testing.T) {
	t.Parallel()

	cmd, err := DecodeCommand(`{"cmd":"kill_process","pid":1234,"name":"chrome","pid_str":"99"}`)
	require.NoError(t, err)

	pid, ok := cmd.IntField("pid")
	require.True(t, ok)
	assert.Equal(t, 1234, pid)

	pid, ok = cmd.IntField("pid_str")
	require.True(t, ok)
	assert.Equal(t, 99, pid)

	_, ok = cmd.IntField("missing")
	assert.False(t, ok)

	name, ok := cmd.StringField("name")
	require.True(t, ok)
	assert.Equal(t, "chrome", name)
}
