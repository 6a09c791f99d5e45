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

// dispatcher moves frame interpretation and upper-layer notification out
// of the driver's completion context. It is a single worker draining a
// bounded queue: one slot for the receive-ready task, one for the
// send-complete task. The engine's guard flags ensure a task is never
// posted while its previous instance is still pending, so the queue
// cannot fill and post never blocks.
type dispatcher struct {
	tasks chan func()
	done  chan struct{}
}

// One slot per deferred task kind.
const taskQueueDepth = 2

func newDispatcher() *dispatcher {
	d := &dispatcher{
		tasks: make(chan func(), taskQueueDepth),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for task := range d.tasks {
		task()
	}
}

// post schedules a task. Callable from the completion context: the queue
// has a free slot whenever the corresponding guard flag just transitioned
// to set, so the send cannot block.
func (d *dispatcher) post(task func()) {
	d.tasks <- task
}

// close stops the worker after draining any pending tasks and waits for
// it to exit. The caller must guarantee no further posts.
func (d *dispatcher) close() {
	close(d.tasks)
	<-d.done
}
