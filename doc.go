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

/*
Package ncpspi implements the transport-framing layer that lets a host
processor exchange variable-length frames with a network co-processor
(NCP) over a half-duplex, master-driven SPI link. The NCP is always the
SPI slave: it cannot initiate transfers, it can only arm buffers for
whatever transaction the master clocks next.

Every transfer in either direction starts with a 5-byte header: a flag
byte (bit 7 is the reset indication), a little-endian 16-bit
accept-length advertising how much payload the sender of the header is
willing to receive next, and a little-endian 16-bit data-length counting
the payload bytes actually present. Because both directions share the
header shape, the same fields provide flow control for both sides of a
single full-duplex transaction. Half-duplex behavior is emulated by
advertising a zero accept window while a send is outstanding or while a
received frame is still being consumed.

Basic usage on the NCP side:

	drv := myboard.NewSPISlaveDriver() // implements ncpspi.SlaveDriver

	slave, err := ncpspi.New(drv, handler,
	    ncpspi.WithOutboundCapacity(1024),
	    ncpspi.WithInboundCapacity(1024),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer slave.Close()

	// Stage and offer an outbound frame.
	if err := slave.BeginFrame(); err != nil {
	    return err // ErrBusy: wait for HandleSendSpaceAvailable
	}
	if err := slave.FeedBytes(payload); err != nil {
	    return err // ErrCapacityExceeded: frame unchanged
	}
	if err := slave.SendFrame(); err != nil {
	    return err
	}

The handler is the upper layer's capability interface:

	type handler struct{}

	func (handler) HandleFrameReceived(payload []byte) {
	    // decode the command frame; payload is only valid here
	}

	func (handler) HandleSendSpaceAvailable() {
	    // the outbound buffer may be rebuilt now
	}

Handler callbacks run on a dedicated worker, never in the driver's
completion context, and each fires exactly once per frame: one
HandleFrameReceived per accepted inbound frame, one
HandleSendSpaceAvailable per confirmed outbound frame.

Error Handling:

Busy conditions are recoverable and self-resolving; capacity violations
are permanent for the request that caused them:

	if errors.Is(err, ncpspi.ErrBusy) {
	    // retry after HandleSendSpaceAvailable
	}

Malformed or flow-control-violating transactions are dropped silently
and the link keeps running; Stats exposes a drop counter for
observability.

Host Side:

The transport/spihost subpackage implements the master side of the same
wire protocol on top of periph.io for Linux hosts driving a real NCP.

Thread Safety:

The frame builder methods (BeginFrame, FeedBytes, FeedFrom, SendFrame)
must be called from a single goroutine. The transaction engine and the
deferred tasks synchronize with the builder through the link's atomic
guard flags.
*/
package ncpspi
