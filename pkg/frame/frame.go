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

// Package frame converts artwork images into the raw RGB565 pixel buffers
// the display firmware blits directly to its panel.
package frame

import (
	"bytes"
	"fmt"
	"image"

	// Register decoders for the formats artwork services actually serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PackRGB565 converts one 8-bit RGB pixel to its 16-bit 5-6-5 value:
// red in the top 5 bits, green in the middle 6, blue in the low 5.
func PackRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// PixelBuffer is a width*height RGB565 image, 2 bytes per pixel in row-major
// order, each pixel little-endian. This is the exact layout the firmware
// expects, so Bytes() goes on the wire unmodified.
type PixelBuffer struct {
	pix    []byte
	width  int
	height int
}

// NewPixelBuffer returns a zeroed (black) buffer of the given dimensions.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*2),
	}
}

// Set writes one pixel. Out-of-bounds coordinates are ignored.
func (p *PixelBuffer) Set(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return
	}
	v := PackRGB565(r, g, b)
	i := (y*p.width + x) * 2
	p.pix[i] = byte(v)
	p.pix[i+1] = byte(v >> 8)
}

// At reads one pixel's packed value. Out-of-bounds coordinates return 0.
func (p *PixelBuffer) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return 0
	}
	i := (y*p.width + x) * 2
	return uint16(p.pix[i]) | uint16(p.pix[i+1])<<8
}

// Bytes returns the raw buffer. The caller must not retain it past the
// buffer's lifetime.
func (p *PixelBuffer) Bytes() []byte {
	return p.pix
}

// Width returns the buffer width in pixels.
func (p *PixelBuffer) Width() int { return p.width }

// Height returns the buffer height in pixels.
func (p *PixelBuffer) Height() int { return p.height }

// FromImage resizes src to width x height and packs it as RGB565. Aspect
// ratio is not preserved: the panel is square and artwork is expected to be
// roughly square already, so stretching beats letterboxing at 80px.
func FromImage(src image.Image, width, height int) *PixelBuffer {
	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	buf := NewPixelBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := scaled.PixOffset(x, y)
			buf.Set(x, y, scaled.Pix[i], scaled.Pix[i+1], scaled.Pix[i+2])
		}
	}
	return buf
}

// Decode parses encoded image bytes (JPEG, PNG, GIF or WebP) and packs the
// result into a width x height RGB565 buffer.
func Decode(data []byte, width, height int) (*PixelBuffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork image: %w", err)
	}
	return FromImage(img, width, height), nil
}
