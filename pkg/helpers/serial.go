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

package helpers

import (
	"fmt"
	"runtime"
	"strings"

	"go.bug.st/serial"
)

// GetSerialDeviceList returns the serial ports on the system that could
// plausibly be a display device. Pseudo-terminals and virtual ports are
// filtered out on Linux.
func GetSerialDeviceList() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	if runtime.GOOS != "linux" {
		return ports, nil
	}

	devices := make([]string, 0, len(ports))
	for _, port := range ports {
		if strings.HasPrefix(port, "/dev/ttyS") {
			// legacy UARTs, almost never a USB display
			continue
		}
		devices = append(devices, port)
	}

	return devices, nil
}
