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

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeoutSeconds is the default timeout for HTTP requests
	DefaultTimeoutSeconds = 10
	// DefaultMaxBodyBytes caps response bodies read with GetBytes. Artwork
	// images are small; anything larger is a misbehaving server.
	DefaultMaxBodyBytes = 8 << 20
)

// DefaultTransport provides a configured transport with connection pooling and reasonable timeouts
var DefaultTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 10 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	// Connection pooling settings
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 4,
	IdleConnTimeout:     90 * time.Second,
}

// Client provides an HTTP client with sensible defaults for talking to
// local media servers and artwork CDNs.
type Client struct {
	*http.Client
	maxBodyBytes int64
}

// NewClient creates a new HTTP client with the default timeout.
func NewClient() *Client {
	return NewClientWithTimeout(DefaultTimeoutSeconds * time.Second)
}

// NewClientWithTimeout creates a new HTTP client with a custom timeout
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: DefaultTransport,
			Timeout:   timeout,
		},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Get performs a GET request and returns the response
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing GET request: %w", err)
	}

	return resp, nil
}

// GetBytes fetches a URL and returns the body, enforcing the response size
// cap. Non-200 statuses and oversized bodies are errors.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("received nil response")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}
	if resp.ContentLength > c.maxBodyBytes {
		return nil, fmt.Errorf("response too large: %d bytes", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", c.maxBodyBytes)
	}

	return body, nil
}

// GetImage fetches artwork bytes. On top of GetBytes it advertises image
// Accept types and rejects responses that are clearly not images: HTML
// error pages served with a 200, or bodies too small to be a picture.
func (c *Client) GetImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg,image/png,image/webp,image/*;q=0.8")

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing GET request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", c.maxBodyBytes)
	}
	if len(body) < 100 {
		return nil, fmt.Errorf("response too small to be an image: %d bytes", len(body))
	}
	if sniffed := http.DetectContentType(body); strings.HasPrefix(sniffed, "text/") {
		return nil, fmt.Errorf("response is %s, not an image", sniffed)
	}

	return body, nil
}

// DefaultClient provides a shared HTTP client instance
var DefaultClient = NewClient()
