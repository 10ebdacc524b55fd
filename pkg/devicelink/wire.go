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
	"errors"
	"fmt"
)

// The link is a stream of newline-terminated UTF-8 lines. Outbound:
// a telemetry line is one JSON object; an image transfer is a run of
// "IMG:<base64 fragment>" lines closed by a single "IMG_END" line.
const (
	ImagePrefix    = "IMG:"
	ImageEndLine   = "IMG_END"
	lineTerminator = "\n"
)

// EncodeSnapshotLine serializes a telemetry snapshot as one JSON wire line.
// The payload schema is owned by the producer; this layer treats it as
// opaque.
func EncodeSnapshotLine(snapshot any) (Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return Message{
		Payload: append(data, lineTerminator...),
		Kind:    KindSnapshot,
	}, nil
}

// EncodeArtwork converts a raw pixel buffer into the framed chunk sequence:
// base64 of the whole buffer, split into chunkSize-character fragments, each
// wrapped as an "IMG:" line, followed by the "IMG_END" terminator. All
// messages are priority so artwork preempts snapshot traffic.
func EncodeArtwork(pixels []byte, chunkSize int, metadata map[string]string) []Message {
	if chunkSize < 1 {
		chunkSize = 1
	}

	encoded := base64.StdEncoding.EncodeToString(pixels)
	msgs := make([]Message, 0, len(encoded)/chunkSize+2)

	for start := 0; start < len(encoded); start += chunkSize {
		end := min(start+chunkSize, len(encoded))
		line := ImagePrefix + encoded[start:end] + lineTerminator
		msgs = append(msgs, Message{
			Payload:  []byte(line),
			Kind:     KindArtworkChunk,
			Priority: true,
			Metadata: metadata,
		})
	}

	msgs = append(msgs, Message{
		Payload:  []byte(ImageEndLine + lineTerminator),
		Kind:     KindArtworkEnd,
		Priority: true,
		Metadata: metadata,
	})

	return msgs
}

// ReassembleArtwork is the inverse of EncodeArtwork's chunking, used by
// tests and diagnostic tooling: it strips the framing from a chunk sequence
// and decodes the original pixel bytes. The trailing end-marker message is
// optional.
func ReassembleArtwork(msgs []Message) ([]byte, error) {
	var encoded []byte
	for _, msg := range msgs {
		if msg.Kind == KindArtworkEnd {
			break
		}
		line := string(msg.Payload)
		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}
		if len(line) < len(ImagePrefix) || line[:len(ImagePrefix)] != ImagePrefix {
			return nil, fmt.Errorf("not an image chunk line: %q", line)
		}
		encoded = append(encoded, line[len(ImagePrefix):]...)
	}

	pixels, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image chunks: %w", err)
	}
	return pixels, nil
}

// Command is one decoded device-to-host message, consumed exactly once by
// the dispatcher.
type Command struct {
	Fields map[string]any
	Kind   string
}

// DecodeCommand parses one received line as a JSON command object. The kind
// is taken from the "cmd" field, falling back to "type". Non-object lines
// and objects without a kind are rejected.
func DecodeCommand(line string) (*Command, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, fmt.Errorf("line is not a JSON object: %w", err)
	}

	kind, _ := fields["cmd"].(string)
	if kind == "" {
		kind, _ = fields["type"].(string)
	}
	if kind == "" {
		return nil, errors.New("command object missing cmd or type field")
	}

	return &Command{
		Kind:   kind,
		Fields: fields,
	}, nil
}

// IntField reads a numeric command field, tolerating the float64 that
// encoding/json produces for all JSON numbers.
func (c *Command) IntField(name string) (int, bool) {
	switch v := c.Fields[name].(type) {
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// StringField reads a string command field.
func (c *Command) StringField(name string) (string, bool) {
	v, ok := c.Fields[name].(string)
	return v, ok
}
