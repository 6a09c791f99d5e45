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

// Package spihost implements the master side of the NCP SPI wire
// protocol for hosts with a Linux SPI controller, on top of periph.io.
//
// The host is the bus master: every exchange with the NCP happens
// inside a full-duplex transaction the host clocks. The host header
// advertises the accept window for that same transaction; the slave's
// header, shifted out simultaneously, reports what the slave shipped
// and how much it will accept.
package spihost

import (
	"fmt"
	"sync"
	"time"

	ncpspi "github.com/yeshbourne/go-ncpspi"
	"github.com/yeshbourne/go-ncpspi/internal/frame"
	"github.com/yeshbourne/go-ncpspi/internal/retry"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Default SPI settings. Mode 0, 8-bit words, matching the usual
	// slave peripheral configuration.
	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0

	defaultAcceptWindow = 507
	defaultMaxAttempts  = 16
	defaultRetryDelay   = time.Millisecond
)

// Host drives the master side of the framed half-duplex link.
//
// Host methods serialize internally; a single Host may be shared
// between goroutines.
type Host struct {
	port spi.PortCloser
	conn spi.Conn

	onReset func()

	portName     string
	txBuf        []byte
	rxBuf        []byte
	freq         physic.Frequency
	acceptWindow int
	maxAttempts  int
	retryDelay   time.Duration

	// resetPending marks that our own reset indication has not been
	// observed by the slave yet.
	resetPending bool

	mu sync.Mutex
}

// Option is a functional option for configuring a Host
type Option func(*Host) error

// WithFrequency sets the SPI clock frequency.
func WithFrequency(freq physic.Frequency) Option {
	return func(h *Host) error {
		if freq <= 0 {
			return fmt.Errorf("invalid SPI frequency %v", freq)
		}
		h.freq = freq
		return nil
	}
}

// WithAcceptWindow sets the payload window advertised while polling.
// Frames larger than this can never be received through the Host.
func WithAcceptWindow(n int) Option {
	return func(h *Host) error {
		if n < 1 || n > 0xFFFF {
			return fmt.Errorf("accept window %d: %w", n, ncpspi.ErrInvalidCapacity)
		}
		h.acceptWindow = n
		return nil
	}
}

// WithRetry sets the attempt budget and spacing used while the slave is
// not ready or its accept window is closed.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(h *Host) error {
		if maxAttempts < 1 {
			return fmt.Errorf("invalid retry attempts %d", maxAttempts)
		}
		h.maxAttempts = maxAttempts
		h.retryDelay = delay
		return nil
	}
}

// WithOnReset sets a callback invoked whenever the slave's header
// carries the reset indication (the NCP has just rebooted).
func WithOnReset(fn func()) Option {
	return func(h *Host) error {
		h.onReset = fn
		return nil
	}
}

func newHost(portName string, opts ...Option) (*Host, error) {
	h := &Host{
		portName:     portName,
		freq:         defaultFreq,
		acceptWindow: defaultAcceptWindow,
		maxAttempts:  defaultMaxAttempts,
		retryDelay:   defaultRetryDelay,
		resetPending: true,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.txBuf = make([]byte, frame.HeaderLength+h.acceptWindow)
	h.rxBuf = make([]byte, frame.HeaderLength+h.acceptWindow)
	return h, nil
}

// New opens the named SPI port and returns a Host bound to it.
func New(portName string, opts ...Option) (*Host, error) {
	h, err := newHost(portName, opts...)
	if err != nil {
		return nil, err
	}

	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	// Open SPI port
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	// Connect with SPI parameters
	conn, err := port.Connect(h.freq, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	h.port = port
	h.conn = conn
	return h, nil
}

// Close closes the SPI port.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.port == nil {
		return nil
	}
	if err := h.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	h.port = nil
	return nil
}

// ensureBuffers grows the transfer buffers to at least total bytes.
func (h *Host) ensureBuffers(total int) {
	if len(h.txBuf) < total {
		h.txBuf = make([]byte, total)
		h.rxBuf = make([]byte, total)
	}
}

// transact clocks one full-duplex transaction carrying send and
// advertising accept, and interprets the slave header shifted out in
// return. The caller holds h.mu.
//
// A slave payload that does not fit the advertised window is not an
// error: the slave gets no confirmation and re-arms the same frame, so
// it is simply not delivered here.
func (h *Host) transact(send []byte, accept int) (payload []byte, slaveAccept int, err error) {
	total := frame.HeaderLength + len(send)
	if frame.HeaderLength+accept > total {
		total = frame.HeaderLength + accept
	}
	h.ensureBuffers(total)

	tx := h.txBuf[:total]
	rx := h.rxBuf[:total]
	clear(tx)

	if h.resetPending {
		frame.SetFlagByte(tx, frame.ResetFlag)
	}
	frame.SetAcceptLen(tx, uint16(accept))
	frame.SetDataLen(tx, uint16(len(send)))
	copy(tx[frame.HeaderLength:], send)

	if err := h.conn.Tx(tx, rx); err != nil {
		return nil, 0, ncpspi.NewTransportError("transact", h.portName, err, ncpspi.ErrorTypeTransient)
	}
	h.resetPending = false

	slaveFlag := frame.FlagByte(rx)
	slaveAccept = int(frame.AcceptLen(rx))
	slaveData := int(frame.DataLen(rx))

	// An idle-high MISO line reads back all ones, an idle-low line all
	// zeros: the slave has not armed a transaction yet. An armed slave
	// only shifts out an all-zero header while it is parked draining a
	// received frame, and backing off is right then too.
	if (slaveFlag == 0xFF && slaveAccept == 0xFFFF && slaveData == 0xFFFF) ||
		(slaveFlag == 0 && slaveAccept == 0 && slaveData == 0) {
		return nil, 0, ncpspi.NewTransportError(
			"transact", h.portName, ncpspi.ErrSlaveNotReady, ncpspi.ErrorTypeTransient)
	}

	if slaveFlag&frame.ResetFlag != 0 && h.onReset != nil {
		h.onReset()
	}

	if slaveData == 0 || accept == 0 {
		return nil, slaveAccept, nil
	}
	if slaveData > total-frame.HeaderLength || slaveData > accept {
		// Undelivered this transaction; the slave re-arms it.
		return nil, slaveAccept, nil
	}

	payload = append([]byte(nil), rx[frame.HeaderLength:frame.HeaderLength+slaveData]...)
	return payload, slaveAccept, nil
}

// SendFrame delivers one frame to the slave, retrying while the slave
// is not ready or its accept window is closed (it is mid-send of its
// own frame, or still draining a previous one). A zero accept window is
// advertised during the attempts so no inbound frame can race the send.
func (h *Host) SendFrame(p []byte) error {
	if len(p) > 0xFFFF {
		return fmt.Errorf("payload of %d bytes: %w", len(p), ncpspi.ErrFrameTooLarge)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := retry.Do(retry.Config{
		Description: "send frame",
		Port:        h.portName,
		MaxAttempts: h.maxAttempts,
		Delay:       h.retryDelay,
	}, func() (struct{}, bool, error) {
		_, slaveAccept, err := h.transact(p, 0)
		if err != nil {
			if ncpspi.IsRetryable(err) {
				return struct{}{}, true, nil
			}
			return struct{}{}, false, err
		}
		// The slave confirms a frame only when it fits the accept
		// window it advertised in this same transaction.
		if len(p) > slaveAccept {
			return struct{}{}, true, nil
		}
		return struct{}{}, false, nil
	})
	return err
}

// Poll clocks one header-plus-window transaction with no outbound
// payload and returns the frame the slave delivered, or nil when the
// slave had nothing to send.
//
// A frame the slave declares beyond the configured accept window yields
// ErrFrameTooLarge: it can never be delivered until the Host is
// reconfigured with a larger window.
func (h *Host) Poll() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, _, err := h.transact(nil, h.acceptWindow)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		if declared := int(frame.DataLen(h.rxBuf)); declared > h.acceptWindow {
			return nil, fmt.Errorf("slave frame of %d bytes exceeds accept window %d: %w",
				declared, h.acceptWindow, ncpspi.ErrFrameTooLarge)
		}
		return nil, nil
	}
	return payload, nil
}

// WaitFrame polls until the slave delivers a frame or the timeout
// expires.
func (h *Host) WaitFrame(timeout time.Duration) ([]byte, error) {
	return retry.WithTimeout(retry.Config{
		Description: "wait frame",
		Port:        h.portName,
		Delay:       h.retryDelay,
	}, timeout, func() ([]byte, bool, error) {
		payload, err := h.Poll()
		if err != nil {
			if ncpspi.IsRetryable(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
		if payload == nil {
			return nil, true, nil
		}
		return payload, false, nil
	})
}

// WaitReady probes with empty transactions until the slave arms its
// first transaction or the timeout expires.
func (h *Host) WaitReady(timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := retry.WithTimeout(retry.Config{
		Description: "wait ready",
		Port:        h.portName,
		Delay:       h.retryDelay,
	}, timeout, func() (struct{}, bool, error) {
		_, _, err := h.transact(nil, 0)
		if err != nil {
			if ncpspi.IsRetryable(err) {
				return struct{}{}, true, nil
			}
			return struct{}{}, false, err
		}
		return struct{}{}, false, nil
	})
	return err
}
