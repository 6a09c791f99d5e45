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

// ncpping exchanges frames with an NCP over a Linux SPI port: it sends
// a payload frame and waits for whatever the NCP delivers back.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yeshbourne/go-ncpspi/transport/spihost"
	"periph.io/x/conn/v3/physic"
)

type config struct {
	port     *string
	payload  *string
	count    *int
	interval *time.Duration
	timeout  *time.Duration
	freq     *int
	window   *int
}

func parseFlags() *config {
	cfg := &config{
		port: flag.String("port", "SPI0.0",
			"SPI port name as understood by periph.io (e.g. SPI0.0 or /dev/spidev0.0)"),
		payload:  flag.String("payload", "ping", "Payload to send in each frame"),
		count:    flag.Int("count", 1, "Number of frames to send (0 = poll only)"),
		interval: flag.Duration("interval", time.Second, "Delay between frames"),
		timeout:  flag.Duration("timeout", 5*time.Second, "How long to wait for a response frame"),
		freq:     flag.Int("freq-khz", 1000, "SPI clock frequency in kHz"),
		window:   flag.Int("accept-window", 507, "Payload window advertised while polling"),
	}
	flag.Parse()
	return cfg
}

func run(cfg *config) error {
	host, err := spihost.New(*cfg.port,
		spihost.WithFrequency(physic.Frequency(*cfg.freq)*physic.KiloHertz),
		spihost.WithAcceptWindow(*cfg.window),
		spihost.WithOnReset(func() {
			fmt.Println("NCP signalled reset")
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = host.Close() }()

	if err := host.WaitReady(*cfg.timeout); err != nil {
		return fmt.Errorf("waiting for NCP: %w", err)
	}

	for i := 0; i < *cfg.count; i++ {
		if i > 0 {
			time.Sleep(*cfg.interval)
		}

		if err := host.SendFrame([]byte(*cfg.payload)); err != nil {
			return fmt.Errorf("sending frame %d: %w", i+1, err)
		}
		fmt.Printf("sent frame %d (%d bytes)\n", i+1, len(*cfg.payload))

		response, err := host.WaitFrame(*cfg.timeout)
		if err != nil {
			return fmt.Errorf("waiting for response %d: %w", i+1, err)
		}
		fmt.Printf("received %d bytes:\n%s", len(response), hex.Dump(response))
	}

	if *cfg.count == 0 {
		response, err := host.WaitFrame(*cfg.timeout)
		if err != nil {
			return fmt.Errorf("polling: %w", err)
		}
		fmt.Printf("received %d bytes:\n%s", len(response), hex.Dump(response))
	}

	return nil
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ncpping: %v\n", err)
		os.Exit(1)
	}
}
