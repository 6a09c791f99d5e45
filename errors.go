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

package ncpspi

import (
	"errors"
	"fmt"
)

// Link errors
var (
	// ErrBusy is returned when an operation cannot proceed because a
	// prior operation of the same kind is still outstanding. The caller
	// may retry once notified that the link is free again.
	ErrBusy = errors.New("outbound frame already in progress")

	// ErrCapacityExceeded is returned when a requested payload does not
	// fit in the fixed-size frame buffer. No partial write occurs.
	ErrCapacityExceeded = errors.New("payload exceeds frame capacity")

	// ErrDriverBusy is reported by a SlaveDriver when a transaction is
	// already armed or in progress on the hardware.
	ErrDriverBusy = errors.New("driver transaction in progress")

	// ErrInvalidCapacity is returned by New when the configured buffer
	// capacities violate the link's invariants.
	ErrInvalidCapacity = errors.New("invalid buffer capacity")

	// ErrSlaveClosed is returned when operating on a closed slave.
	ErrSlaveClosed = errors.New("slave closed")

	// ErrSlaveNotReady indicates the remote side has not armed a
	// transaction yet (typically observed by a host as a garbage header).
	ErrSlaveNotReady = errors.New("slave not ready")

	// ErrFrameTooLarge is returned when a frame exceeds what the wire
	// format or the configured accept window allows.
	ErrFrameTooLarge = errors.New("frame too large")
)

// ErrorType classifies errors for retry decisions
type ErrorType string

const (
	// ErrorTypeTransient indicates a temporary condition that may
	// succeed on retry.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypePermanent indicates a condition that will not resolve by
	// retrying the same operation.
	ErrorTypePermanent ErrorType = "permanent"
)

// TransportError wraps an error from the driver or host link with
// operation context
type TransportError struct {
	// Err is the underlying error
	Err error
	// Op is the operation that failed
	Op string
	// Port identifies the bus or device involved
	Port string
	// Type classifies the error for retry decisions
	Type ErrorType
	// Retryable reports whether retrying the operation may succeed
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError with retryability
// derived from the error type
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient,
	}
}

// retryableSentinels are the conditions that self-resolve as the link
// keeps running.
var retryableSentinels = []error{
	ErrBusy,
	ErrDriverBusy,
	ErrSlaveNotReady,
}

// IsRetryable reports whether the given error represents a transient
// condition worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}

	for _, sentinel := range retryableSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GetErrorType classifies an error as transient or permanent.
func GetErrorType(err error) ErrorType {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Type
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
