// go-ncpspi
// Copyright (c) 2026 The go-ncpspi Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ncpspi.
//
// go-ncpspi is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ncpspi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ncpspi; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package retry provides internal retry utilities for host-side link
// operations.
package retry

import (
	"time"

	ncpspi "github.com/yeshbourne/go-ncpspi"
)

// Operation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	Description string
	Port        string
	MaxAttempts int
	Delay       time.Duration
}

// Do executes an operation with retry logic
// This consolidates the common retry pattern used by the host link
func Do[T any](config Config, operation Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		if config.Delay > 0 && attempt < config.MaxAttempts-1 {
			time.Sleep(config.Delay)
		}
	}

	return zero, ncpspi.NewTransportError(
		config.Description, config.Port, ncpspi.ErrSlaveNotReady, ncpspi.ErrorTypeTransient)
}

// WithTimeout executes an operation with deadline-based retry logic
// Common pattern for polling operations (like waiting for the slave to
// arm its first transaction)
func WithTimeout[T any](config Config, timeout time.Duration, operation Operation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		delay := config.Delay
		if delay <= 0 {
			delay = time.Millisecond
		}
		time.Sleep(delay)
	}

	return zero, ncpspi.NewTransportError(
		config.Description, config.Port, ncpspi.ErrSlaveNotReady, ncpspi.ErrorTypeTransient)
}
