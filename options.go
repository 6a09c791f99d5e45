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

import "fmt"

// Option is a functional option for configuring a Slave
type Option func(*Slave) error

// WithOutboundCapacity sets the payload capacity of the outbound frame
// buffer. The buffer itself is one header longer.
func WithOutboundCapacity(n int) Option {
	return func(s *Slave) error {
		if n < 1 || n > maxPayloadCapacity {
			return fmt.Errorf("outbound capacity %d: %w", n, ErrInvalidCapacity)
		}
		s.outCapacity = n
		return nil
	}
}

// WithInboundCapacity sets the payload capacity of the inbound frame
// buffer. It must be at least the outbound capacity; New enforces the
// relation after all options are applied.
func WithInboundCapacity(n int) Option {
	return func(s *Slave) error {
		if n < 1 || n > maxPayloadCapacity {
			return fmt.Errorf("inbound capacity %d: %w", n, ErrInvalidCapacity)
		}
		s.inCapacity = n
		return nil
	}
}
