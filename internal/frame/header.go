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

// Package frame provides the transaction header codec and protocol
// constants for the NCP SPI link.
package frame

import "encoding/binary"

// Header layout - a fixed 5-byte header precedes the payload in every
// transfer buffer, in both directions.
const (
	// HeaderLength is the size of the transaction header in bytes.
	HeaderLength = 5

	// ResetFlag is the bit in the flag byte signalling that this side
	// has just (re)initialized. It is cleared after the remote side has
	// had a chance to observe it.
	ResetFlag = 0x80
)

// Field offsets within the header.
const (
	flagOffset      = 0
	acceptLenOffset = 1
	dataLenOffset   = 3
)

// SetFlagByte stores the flag byte in header.
func SetFlagByte(header []byte, value byte) {
	header[flagOffset] = value
}

// FlagByte returns the flag byte from header.
func FlagByte(header []byte) byte {
	return header[flagOffset]
}

// SetAcceptLen stores the accept-length field: the maximum number of
// payload bytes the sender of this header is willing to receive in the
// next transaction.
func SetAcceptLen(header []byte, length uint16) {
	binary.LittleEndian.PutUint16(header[acceptLenOffset:], length)
}

// AcceptLen returns the accept-length field from header.
func AcceptLen(header []byte) uint16 {
	return binary.LittleEndian.Uint16(header[acceptLenOffset:])
}

// SetDataLen stores the data-length field: the number of valid payload
// bytes present in this transaction's buffer.
func SetDataLen(header []byte, length uint16) {
	binary.LittleEndian.PutUint16(header[dataLenOffset:], length)
}

// DataLen returns the data-length field from header.
func DataLen(header []byte) uint16 {
	return binary.LittleEndian.Uint16(header[dataLenOffset:])
}
