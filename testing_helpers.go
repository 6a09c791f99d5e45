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
	"sync"
)

// MockSlaveDriver is an in-memory SlaveDriver that lets tests play the
// role of the SPI master: Clock runs one master-driven transaction
// against whatever buffers the engine has armed.
type MockSlaveDriver struct {
	complete TransactionCompleteFunc

	// Armed buffer pair.
	outBuf     []byte
	inBuf      []byte
	fullDuplex bool
	armed      bool

	prepareErr   error
	prepareCalls int

	enabled bool
	busy    bool

	mu sync.Mutex

	// cbMu is held across completion delivery. Disable takes it too, so
	// it cannot return while a callback is still in flight.
	cbMu sync.Mutex
}

// NewMockSlaveDriver creates a new mock driver.
func NewMockSlaveDriver() *MockSlaveDriver {
	return &MockSlaveDriver{}
}

// Enable implements SlaveDriver.
func (m *MockSlaveDriver) Enable(complete TransactionCompleteFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled {
		return errors.New("mock driver already enabled")
	}
	m.enabled = true
	m.complete = complete
	return nil
}

// Disable implements SlaveDriver. It waits for any in-flight completion
// callback to return first.
func (m *MockSlaveDriver) Disable() error {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.complete = nil
	m.armed = false
	return nil
}

// PrepareTransaction implements SlaveDriver. While the driver is marked
// busy it reports ErrDriverBusy and keeps the previously armed pair.
func (m *MockSlaveDriver) PrepareTransaction(outBuf, inBuf []byte, fullDuplex bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareCalls++
	if !m.enabled {
		return errors.New("mock driver not enabled")
	}
	if m.prepareErr != nil {
		err := m.prepareErr
		m.prepareErr = nil
		return err
	}
	if m.busy {
		return ErrDriverBusy
	}
	m.outBuf = outBuf
	m.inBuf = inBuf
	m.fullDuplex = fullDuplex
	m.armed = true
	return nil
}

// SetBusy marks the driver mid-transaction: PrepareTransaction fails
// with ErrDriverBusy until the next Clock completes.
func (m *MockSlaveDriver) SetBusy(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = busy
}

// FailNextPrepare makes the next PrepareTransaction call return err.
func (m *MockSlaveDriver) FailNextPrepare(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareErr = err
}

// PrepareCalls returns the number of PrepareTransaction calls observed.
func (m *MockSlaveDriver) PrepareCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepareCalls
}

// Armed returns copies of the currently armed buffer pair and the
// full-duplex flag. ok is false when nothing is armed.
func (m *MockSlaveDriver) Armed() (outBuf, inBuf []byte, fullDuplex, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed {
		return nil, nil, false, false
	}
	outBuf = append([]byte(nil), m.outBuf...)
	inBuf = append([]byte(nil), m.inBuf...)
	return outBuf, inBuf, m.fullDuplex, true
}

// Clock completes one master-driven transaction of transactionLength
// bytes: masterFrame is shifted into the armed inbound buffer while the
// armed outbound buffer is shifted out, then the completion callback is
// invoked synchronously. It returns the bytes the master observed.
func (m *MockSlaveDriver) Clock(masterFrame []byte, transactionLength int) ([]byte, error) {
	// Held until the completion callback returns: a Disable racing this
	// transaction either waits for the callback or wins and the clock
	// fails the enabled check below.
	m.cbMu.Lock()
	defer m.cbMu.Unlock()

	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return nil, errors.New("mock driver not enabled")
	}
	if !m.armed {
		m.mu.Unlock()
		return nil, ErrSlaveNotReady
	}

	outBuf, inBuf := m.outBuf, m.inBuf
	outLen, inLen := len(outBuf), len(inBuf)

	n := transactionLength
	if n > len(masterFrame) {
		n = len(masterFrame)
	}
	if n > inLen {
		n = inLen
	}
	copy(inBuf[:n], masterFrame[:n])

	emitted := outLen
	if emitted > transactionLength {
		emitted = transactionLength
	}
	observed := append([]byte(nil), outBuf[:emitted]...)

	complete := m.complete
	m.armed = false
	m.busy = false
	m.mu.Unlock()

	// The callback re-arms via PrepareTransaction, so it must run
	// without the state lock held; cbMu stays held until it returns.
	complete(outBuf, outLen, inBuf, inLen, transactionLength)

	return observed, nil
}
