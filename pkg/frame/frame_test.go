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

package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRGB565(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		r, g, b uint8
		want    uint16
	}{
		{"black", 0, 0, 0, 0x0000},
		{"white", 255, 255, 255, 0xFFFF},
		{"pure red", 255, 0, 0, 0xF800},
		{"pure green", 0, 255, 0, 0x07E0},
		{"pure blue", 0, 0, 255, 0x001F},
		{"orange", 255, 128, 0, 0xFC00},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PackRGB565(tt.r, tt.g, tt.b))
		})
	}
}

func TestPixelBufferLayout(t *testing.T) {
	t.Parallel()

	buf := NewPixelBuffer(2, 1)
	buf.Set(0, 0, 255, 128, 0) // 0xFC00
	buf.Set(1, 0, 0, 0, 255)   // 0x001F

	// Little-endian per pixel, row-major.
	assert.Equal(t, []byte{0x00, 0xFC, 0x1F, 0x00}, buf.Bytes())
	assert.Equal(t, uint16(0xFC00), buf.At(0, 0))
	assert.Equal(t, uint16(0x001F), buf.At(1, 0))
}

func TestPixelBufferBounds(t *testing.T) {
	t.Parallel()

	buf := NewPixelBuffer(4, 4)
	buf.Set(-1, 0, 255, 255, 255)
	buf.Set(0, 4, 255, 255, 255)
	buf.Set(4, 0, 255, 255, 255)

	for _, b := range buf.Bytes() {
		assert.Zero(t, b)
	}
	assert.Zero(t, buf.At(99, 99))
}

func TestPixelBufferSize(t *testing.T) {
	t.Parallel()

	buf := NewPixelBuffer(80, 80)
	assert.Equal(t, 80, buf.Width())
	assert.Equal(t, 80, buf.Height())
	assert.Len(t, buf.Bytes(), 80*80*2)
}

func TestFromImageResizesToTarget(t *testing.T) {
	t.Parallel()

	// A uniform red 160x160 source must stay uniform red after downscale.
	src := image.NewRGBA(image.Rect(0, 0, 160, 160))
	for y := 0; y < 160; y++ {
		for x := 0; x < 160; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	buf := FromImage(src, 80, 80)
	assert.Len(t, buf.Bytes(), 80*80*2)
	assert.Equal(t, uint16(0xF800), buf.At(0, 0))
	assert.Equal(t, uint16(0xF800), buf.At(40, 40))
	assert.Equal(t, uint16(0xF800), buf.At(79, 79))
}

func TestDecodePNG(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, src))

	buf, err := Decode(encoded.Bytes(), 80, 80)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x07E0), buf.At(40, 40))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("definitely not an image"), 80, 80)
	assert.Error(t, err)
}
