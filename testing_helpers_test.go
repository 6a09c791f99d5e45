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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeshbourne/go-ncpspi/internal/frame"
)

// Disable must not return while a completion callback is still running:
// a callback delivered after Disable could reach a torn-down engine.
func TestMockSlaveDriver_DisableWaitsForCallback(t *testing.T) {
	t.Parallel()
	driver := NewMockSlaveDriver()

	entered := make(chan struct{})
	release := make(chan struct{})
	err := driver.Enable(func(_ []byte, _ int, _ []byte, _ int, _ int) {
		close(entered)
		<-release
	})
	require.NoError(t, err)
	require.NoError(t, driver.PrepareTransaction(
		make([]byte, frame.HeaderLength), make([]byte, frame.HeaderLength), false))

	clocked := make(chan struct{})
	go func() {
		defer close(clocked)
		_, _ = driver.Clock(make([]byte, frame.HeaderLength), frame.HeaderLength)
	}()
	<-entered

	disabled := make(chan struct{})
	go func() {
		defer close(disabled)
		_ = driver.Disable()
	}()

	select {
	case <-disabled:
		t.Fatal("Disable returned while a completion callback was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-disabled:
	case <-time.After(time.Second):
		t.Fatal("Disable did not return after the callback finished")
	}
	<-clocked

	// Once disabled, no further transactions complete.
	_, err = driver.Clock(make([]byte, frame.HeaderLength), frame.HeaderLength)
	require.Error(t, err)
}
