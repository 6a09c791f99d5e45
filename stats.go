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

import "sync/atomic"

// linkStats are updated from the completion context, so every field is a
// lock-free atomic counter.
type linkStats struct {
	transactions   atomic.Uint64
	framesReceived atomic.Uint64
	framesSent     atomic.Uint64
	inboundDropped atomic.Uint64
}

// Stats is a point-in-time snapshot of the link's counters.
type Stats struct {
	// Transactions is the number of completed hardware transactions.
	Transactions uint64
	// FramesReceived is the number of inbound frames accepted and
	// handed to the deferred receive task.
	FramesReceived uint64
	// FramesSent is the number of outbound frames confirmed delivered.
	FramesSent uint64
	// InboundDropped counts transactions that declared inbound data but
	// failed the acceptance test (malformed header or a remote
	// flow-control violation). Dropped transactions are silently
	// ignored by the engine; this counter is the only trace they leave.
	InboundDropped uint64
}

// Stats returns a snapshot of the link counters.
func (s *Slave) Stats() Stats {
	return Stats{
		Transactions:   s.stats.transactions.Load(),
		FramesReceived: s.stats.framesReceived.Load(),
		FramesSent:     s.stats.framesSent.Load(),
		InboundDropped: s.stats.inboundDropped.Load(),
	}
}
