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
	"io"
	"sync/atomic"

	"github.com/yeshbourne/go-ncpspi/internal/frame"
)

// defaultBufferSize is the total size (header plus payload) of each real
// frame buffer when no capacity option is given.
const defaultBufferSize = 512

// maxPayloadCapacity is the largest payload either length field can
// describe on the wire.
const maxPayloadCapacity = 0xFFFF

// Handler receives frames and flow-control notifications from the link.
// Both methods are called from the deferred task context, never from the
// driver's completion context.
type Handler interface {
	// HandleFrameReceived is called once per accepted inbound frame.
	// The payload slice aliases the link's inbound buffer and is only
	// valid until the method returns.
	HandleFrameReceived(payload []byte)

	// HandleSendSpaceAvailable is called once per confirmed outbound
	// frame, when the outbound buffer may be rebuilt with BeginFrame.
	HandleSendSpaceAvailable()
}

// Slave is the NCP side of the framed half-duplex SPI link. It owns the
// four transfer buffers, arms the SlaveDriver for every transaction the
// master clocks, and hands accepted frames to the Handler.
//
// Three execution contexts touch a Slave: the caller's goroutine (frame
// builder methods), the driver's completion context (transaction
// engine), and the deferred task worker (Handler callbacks). The guard
// flags are atomic and total-order each frame's lifecycle across these
// contexts; the builder methods themselves must be called from a single
// goroutine.
type Slave struct {
	driver  SlaveDriver
	handler Handler
	tasks   *dispatcher

	// Real and header-only transfer buffers, allocated once.
	sendFrame    []byte
	receiveFrame []byte
	emptySend    []byte
	emptyReceive []byte

	// rxTask and sendDoneTask are bound once so posting from the
	// completion context never allocates.
	rxTask       func()
	sendDoneTask func()

	outCapacity int
	inCapacity  int

	// sendCursor is the builder's write position. sendLen is the armed
	// frame's payload length, published to the engine by the sending
	// flag's store/load ordering.
	sendCursor int
	sendLen    int

	// Guard flags. sending covers offer-to-confirmation of an outbound
	// frame; the handling flags are the single-slot locks for the two
	// deferred tasks.
	sending          atomic.Bool
	handlingRxFrame  atomic.Bool
	handlingSendDone atomic.Bool
	closed           atomic.Bool

	stats linkStats
}

// New creates a Slave on top of the given driver, enables the slave
// peripheral, and arms the initial header-only transaction carrying the
// reset indication.
func New(driver SlaveDriver, handler Handler, opts ...Option) (*Slave, error) {
	if driver == nil {
		return nil, errors.New("nil slave driver")
	}
	if handler == nil {
		return nil, errors.New("nil frame handler")
	}

	s := &Slave{
		driver:      driver,
		handler:     handler,
		outCapacity: defaultBufferSize - frame.HeaderLength,
		inCapacity:  defaultBufferSize - frame.HeaderLength,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.inCapacity < s.outCapacity {
		return nil, fmt.Errorf("inbound capacity %d smaller than outbound capacity %d: %w",
			s.inCapacity, s.outCapacity, ErrInvalidCapacity)
	}

	s.sendFrame = make([]byte, frame.HeaderLength+s.outCapacity)
	s.receiveFrame = make([]byte, frame.HeaderLength+s.inCapacity)
	s.emptySend = make([]byte, frame.HeaderLength)
	s.emptyReceive = make([]byte, frame.HeaderLength)
	s.sendCursor = frame.HeaderLength
	s.rxTask = s.handleReceivedFrame
	s.sendDoneTask = s.handleSendDone

	frame.SetFlagByte(s.sendFrame, frame.ResetFlag)
	frame.SetFlagByte(s.emptySend, frame.ResetFlag)
	frame.SetAcceptLen(s.sendFrame, uint16(s.inCapacity))

	s.tasks = newDispatcher()

	if err := driver.Enable(s.completeTransaction); err != nil {
		s.tasks.close()
		return nil, fmt.Errorf("enabling slave driver: %w", err)
	}

	// The first transaction is flagged full-duplex so the driver raises
	// the host interrupt and the master observes the reset indication.
	err := driver.PrepareTransaction(s.emptySend, s.emptyReceive, true)
	if err != nil && !errors.Is(err, ErrDriverBusy) {
		_ = driver.Disable()
		s.tasks.close()
		return nil, fmt.Errorf("arming initial transaction: %w", err)
	}

	return s, nil
}

// Close disables the driver and stops the deferred task worker. Pending
// tasks are drained before Close returns.
func (s *Slave) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.driver.Disable()
	s.tasks.close()
	if err != nil {
		return fmt.Errorf("disabling slave driver: %w", err)
	}
	return nil
}

// OutboundCapacity returns the payload capacity of the outbound frame
// buffer.
func (s *Slave) OutboundCapacity() int {
	return s.outCapacity
}

// InboundCapacity returns the payload capacity of the inbound frame
// buffer.
func (s *Slave) InboundCapacity() int {
	return s.inCapacity
}

// frameSize is the number of payload bytes staged so far.
func (s *Slave) frameSize() int {
	return s.sendCursor - frame.HeaderLength
}

// Remaining returns the writable payload bytes left in the frame under
// construction.
func (s *Slave) Remaining() int {
	return len(s.sendFrame) - s.sendCursor
}

// BeginFrame starts assembly of a new outbound frame. It fails with
// ErrBusy while a previous frame is still outstanding; wait for
// HandleSendSpaceAvailable before retrying.
func (s *Slave) BeginFrame() error {
	if s.closed.Load() {
		return ErrSlaveClosed
	}
	if s.sending.Load() {
		return ErrBusy
	}
	s.sendCursor = frame.HeaderLength
	return nil
}

// FeedBytes appends p to the frame under construction. On
// ErrCapacityExceeded the frame is left unchanged.
func (s *Slave) FeedBytes(p []byte) error {
	if len(p) > s.Remaining() {
		return ErrCapacityExceeded
	}
	copy(s.sendFrame[s.sendCursor:], p)
	s.sendCursor += len(p)
	return nil
}

// FeedFrom appends n bytes read from r to the frame under construction.
// The capacity contract matches FeedBytes; on any error the staged
// length is unchanged.
func (s *Slave) FeedFrom(r io.Reader, n int) error {
	if n < 0 || n > s.Remaining() {
		return ErrCapacityExceeded
	}
	if _, err := io.ReadFull(r, s.sendFrame[s.sendCursor:s.sendCursor+n]); err != nil {
		return fmt.Errorf("reading %d bytes from source: %w", n, err)
	}
	s.sendCursor += n
	return nil
}

// SendFrame finalizes the staged frame and offers it to the transaction
// engine. While the send is outstanding the header advertises a zero
// accept window, so the master cannot race a new inbound frame against
// the in-flight outbound one.
//
// A busy driver is not an error: the outstanding transaction's
// completion handler arms this frame itself.
func (s *Slave) SendFrame() error {
	if s.closed.Load() {
		return ErrSlaveClosed
	}

	n := s.frameSize()
	frame.SetDataLen(s.sendFrame, uint16(n))
	// Half-duplex: no inbound while the send is outstanding.
	frame.SetAcceptLen(s.sendFrame, 0)
	s.sendLen = n
	s.sending.Store(true)

	err := s.driver.PrepareTransaction(s.sendFrame[:frame.HeaderLength+n], s.emptyReceive, true)
	if errors.Is(err, ErrDriverBusy) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("arming outbound frame: %w", err)
	}
	return nil
}

// completeTransaction is the transaction engine, registered with the
// driver by New. It runs in the driver's completion context and must not
// block, allocate, or call into the Handler.
func (s *Slave) completeTransaction(outBuf []byte, outLen int, inBuf []byte, inLen int, transactionLength int) {
	if s.closed.Load() {
		return
	}
	s.stats.transactions.Add(1)

	var rxDataLen, rxAcceptLen, txDataLen, txAcceptLen int

	if transactionLength >= frame.HeaderLength {
		if outLen >= frame.HeaderLength {
			// What we advertised and what we shipped this transaction.
			rxAcceptLen = int(frame.AcceptLen(outBuf))
			txDataLen = int(frame.DataLen(outBuf))
		}
		if inLen >= frame.HeaderLength {
			// What the master shipped and will accept going forward.
			rxDataLen = int(frame.DataLen(inBuf))
			txAcceptLen = int(frame.AcceptLen(inBuf))
		}

		if !s.handlingRxFrame.Load() &&
			rxDataLen > 0 &&
			rxDataLen <= transactionLength-frame.HeaderLength &&
			rxDataLen <= rxAcceptLen {
			s.handlingRxFrame.Store(true)
			s.stats.framesReceived.Add(1)
			s.tasks.post(s.rxTask)
		} else if rxDataLen > 0 {
			s.stats.inboundDropped.Add(1)
		}

		if s.sending.Load() &&
			!s.handlingSendDone.Load() &&
			txDataLen > 0 &&
			txDataLen <= transactionLength-frame.HeaderLength &&
			txDataLen <= txAcceptLen {
			// The master clocked out the whole frame within its
			// advertised accept window: transmission succeeded.
			s.handlingSendDone.Store(true)
			s.stats.framesSent.Add(1)
			s.tasks.post(s.sendDoneTask)
		}
	}

	if transactionLength >= 1 && outLen >= 1 {
		// The master has observed the reset indication; it must not be
		// repeated.
		frame.SetFlagByte(s.sendFrame, 0)
		frame.SetFlagByte(s.emptySend, 0)
	}

	var nextOut, nextIn []byte

	sendPending := s.sending.Load() && !s.handlingSendDone.Load()
	if sendPending {
		nextOut = s.sendFrame[:frame.HeaderLength+s.sendLen]
	} else {
		nextOut = s.emptySend
	}

	if s.handlingRxFrame.Load() {
		// The inbound buffer is still owned by the deferred receive
		// task; park the master with a zero accept window.
		nextIn = s.emptyReceive
		frame.SetAcceptLen(nextOut, 0)
	} else {
		nextIn = s.receiveFrame
		frame.SetAcceptLen(nextOut, uint16(len(s.receiveFrame)-frame.HeaderLength))
	}

	_ = s.driver.PrepareTransaction(nextOut, nextIn, sendPending)
}

// handleReceivedFrame is the deferred receive-ready task.
func (s *Slave) handleReceivedFrame() {
	n := int(frame.DataLen(s.receiveFrame))
	s.handler.HandleFrameReceived(s.receiveFrame[frame.HeaderLength : frame.HeaderLength+n])
	s.handlingRxFrame.Store(false)
}

// handleSendDone is the deferred send-complete task.
func (s *Slave) handleSendDone() {
	s.sending.Store(false)
	s.handlingSendDone.Store(false)
	s.handler.HandleSendSpaceAvailable()
}
