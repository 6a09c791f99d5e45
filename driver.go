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

// TransactionCompleteFunc is invoked by a SlaveDriver exactly once per
// completed hardware transaction.
//
// outBuf/inBuf are the buffers that were armed for the transaction and
// outLen/inLen their armed lengths; transactionLength is the number of
// bytes the master actually clocked. The callback runs in the driver's
// completion context (an interrupt handler or its closest software
// analog) and must return quickly without blocking.
type TransactionCompleteFunc func(outBuf []byte, outLen int, inBuf []byte, inLen int, transactionLength int)

// SlaveDriver is the hardware boundary of the framing layer: an
// edge-triggered SPI slave transaction engine. The slave never initiates
// transfers; it only arms buffers for the master to clock.
//
// Implementations must serialize completion callbacks (at most one in
// flight) and must not deliver callbacks after Disable returns.
type SlaveDriver interface {
	// Enable registers the completion callback and activates the slave
	// peripheral.
	Enable(complete TransactionCompleteFunc) error

	// Disable deactivates the peripheral. No completion callbacks are
	// delivered after it returns.
	Disable() error

	// PrepareTransaction arms the buffer pair for the next transaction.
	// outBuf carries the header and any payload to present to the
	// master; inBuf receives whatever the master sends. fullDuplex
	// marks transactions that carry real outbound payload, for drivers
	// that signal the master (e.g. via a host interrupt line).
	//
	// Returns ErrDriverBusy if a transaction is currently in progress;
	// the request should then be re-issued from the next completion
	// callback.
	PrepareTransaction(outBuf, inBuf []byte, fullDuplex bool) error
}
