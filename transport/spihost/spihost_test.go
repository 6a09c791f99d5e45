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

package spihost

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ncpspi "github.com/yeshbourne/go-ncpspi"
	"github.com/yeshbourne/go-ncpspi/internal/frame"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// fakeConn is an spi.Conn that records what the host clocks out and
// replays scripted slave replies. A nil reply, or an empty queue, reads
// back all ones, like an unarmed slave's idle-high MISO line.
type fakeConn struct {
	replies [][]byte
	sent    [][]byte
	mu      sync.Mutex
}

func (f *fakeConn) String() string { return "fake" }

func (f *fakeConn) Duplex() conn.Duplex { return conn.Full }

func (f *fakeConn) TxPackets(_ []spi.Packet) error { return errors.New("not implemented") }

func (f *fakeConn) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), w...))

	var reply []byte
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	if reply == nil {
		for i := range r {
			r[i] = 0xFF
		}
		return nil
	}
	for i := range r {
		r[i] = 0
	}
	copy(r, reply)
	return nil
}

func (f *fakeConn) queue(reply []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply)
}

func (f *fakeConn) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

// slaveReply builds the frame a slave would shift out.
func slaveReply(flag byte, acceptLen, dataLen uint16, payload []byte) []byte {
	buf := make([]byte, frame.HeaderLength+len(payload))
	frame.SetFlagByte(buf, flag)
	frame.SetAcceptLen(buf, acceptLen)
	frame.SetDataLen(buf, dataLen)
	copy(buf[frame.HeaderLength:], payload)
	return buf
}

func newFakeHost(t *testing.T, opts ...Option) (*Host, *fakeConn) {
	t.Helper()
	fc := &fakeConn{}
	h, err := newHost("fake", opts...)
	require.NoError(t, err)
	h.conn = fc
	return h, fc
}

func TestSendFrame(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t)

	fc.queue(slaveReply(0, 100, 0, nil))
	require.NoError(t, h.SendFrame([]byte("0123456789")))

	sent := fc.sentFrames()
	require.Len(t, sent, 1)
	assert.Equal(t, uint16(10), frame.DataLen(sent[0]))
	assert.Zero(t, frame.AcceptLen(sent[0]), "host must not accept inbound data while pushing")
	assert.NotZero(t, frame.FlagByte(sent[0])&frame.ResetFlag,
		"first transaction carries the host reset indication")
	assert.Equal(t, []byte("0123456789"), sent[0][frame.HeaderLength:])

	// The reset indication is not repeated.
	fc.queue(slaveReply(0, 100, 0, nil))
	require.NoError(t, h.SendFrame([]byte("x")))
	sent = fc.sentFrames()
	require.Len(t, sent, 2)
	assert.Zero(t, frame.FlagByte(sent[1])&frame.ResetFlag)
}

func TestSendFrame_RetriesWhileWindowClosed(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t, WithRetry(5, 0))

	// The slave is mid-send of its own frame for two transactions.
	fc.queue(slaveReply(0, 0, 6, nil))
	fc.queue(slaveReply(0, 0, 6, nil))
	fc.queue(slaveReply(0, 64, 0, nil))

	require.NoError(t, h.SendFrame([]byte("retry me")))
	assert.Len(t, fc.sentFrames(), 3)
}

func TestSendFrame_AttemptsExhausted(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t, WithRetry(3, 0))

	for i := 0; i < 3; i++ {
		fc.queue(slaveReply(0, 0, 6, nil))
	}

	err := h.SendFrame([]byte("never fits"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ncpspi.ErrSlaveNotReady)
	assert.True(t, ncpspi.IsRetryable(err))
}

func TestSendFrame_TooLarge(t *testing.T) {
	t.Parallel()
	h, _ := newFakeHost(t)

	err := h.SendFrame(make([]byte, 0x10000))
	assert.ErrorIs(t, err, ncpspi.ErrFrameTooLarge)
}

func TestPoll(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t, WithAcceptWindow(64))

	fc.queue(slaveReply(0, 64, 5, []byte("hello")))
	payload, err := h.Poll()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), payload)

	sent := fc.sentFrames()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0], frame.HeaderLength+64)
	assert.Equal(t, uint16(64), frame.AcceptLen(sent[0]))
	assert.Zero(t, frame.DataLen(sent[0]))
}

func TestPoll_NothingToDeliver(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t)

	fc.queue(slaveReply(0, 507, 0, nil))
	payload, err := h.Poll()
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestPoll_SlaveNotReady(t *testing.T) {
	t.Parallel()
	h, _ := newFakeHost(t)

	// No reply queued: MISO reads back all ones.
	_, err := h.Poll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ncpspi.ErrSlaveNotReady)
	assert.True(t, ncpspi.IsRetryable(err))
}

func TestPoll_SlaveNotReadyIdleLow(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t)

	// A pulled-down MISO line reads back all zeros.
	fc.queue(slaveReply(0, 0, 0, nil))
	_, err := h.Poll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ncpspi.ErrSlaveNotReady)
	assert.True(t, ncpspi.IsRetryable(err))
}

func TestWaitReady_SlaveUnpowered(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t)

	// An unpowered slave on an idle-low line never becomes ready.
	for i := 0; i < 8; i++ {
		fc.queue(slaveReply(0, 0, 0, nil))
	}

	err := h.WaitReady(20 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ncpspi.ErrSlaveNotReady)
}

func TestPoll_FrameExceedsWindow(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t, WithAcceptWindow(8))

	fc.queue(slaveReply(0, 8, 20, nil))
	_, err := h.Poll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ncpspi.ErrFrameTooLarge)
	assert.False(t, ncpspi.IsRetryable(err))
}

func TestWaitFrame(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t, WithRetry(16, 0))

	fc.queue(slaveReply(0, 507, 0, nil))
	fc.queue(slaveReply(0, 507, 0, nil))
	fc.queue(slaveReply(0, 507, 4, []byte("data")))

	payload, err := h.WaitFrame(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), payload)
}

func TestWaitFrame_Timeout(t *testing.T) {
	t.Parallel()
	h, fc := newFakeHost(t)

	fc.queue(slaveReply(0, 507, 0, nil))
	_, err := h.WaitFrame(10 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ncpspi.ErrSlaveNotReady)
}

func TestWaitReady(t *testing.T) {
	t.Parallel()
	var resets int
	h, fc := newFakeHost(t, WithOnReset(func() { resets++ }))

	// Two probes see an unarmed slave, the third a real header
	// carrying the slave's reset indication.
	fc.queue(nil)
	fc.queue(nil)
	fc.queue(slaveReply(frame.ResetFlag, 507, 0, nil))

	require.NoError(t, h.WaitReady(time.Second))
	assert.GreaterOrEqual(t, len(fc.sentFrames()), 3)
	assert.Equal(t, 1, resets, "reset indication must surface through the callback")
}

func TestOnResetCallback(t *testing.T) {
	t.Parallel()
	var resets int
	h, fc := newFakeHost(t, WithOnReset(func() { resets++ }))

	fc.queue(slaveReply(frame.ResetFlag, 507, 0, nil))
	fc.queue(slaveReply(0, 507, 0, nil))

	_, err := h.Poll()
	require.NoError(t, err)
	_, err = h.Poll()
	require.NoError(t, err)
	assert.Equal(t, 1, resets)
}

func TestOptionValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "zero accept window", opt: WithAcceptWindow(0)},
		{name: "oversized accept window", opt: WithAcceptWindow(0x10000)},
		{name: "zero retry attempts", opt: WithRetry(0, 0)},
		{name: "non-positive frequency", opt: WithFrequency(0)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newHost("fake", tt.opt)
			require.Error(t, err)
		})
	}
}
