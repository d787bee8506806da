/*
 * KI10 - Core instruction loop.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/KI10/emu/cpu"
	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/master"
	"github.com/rcornwell/KI10/telnet"
)

/*
   The processor runs in batches sized to take about 8ms, with a short
   sleep between batches so the host is not saturated. Packets from the
   other goroutines are handled between batches. Block transfers may
   hold the loop until their data has moved, after letting a few more
   instructions run.
*/

const (
	loopStart  = 59 // Instructions in first batch.
	loopMin    = 72 // Smallest batch after slowing down.
	loopTarget = 8  // Wanted batch time in ms.
	loopGap    = 3 * time.Millisecond
	loopFast   = 6 * time.Millisecond
	loopSlow   = 9 * time.Millisecond
)

type Core struct {
	wg       sync.WaitGroup
	done     chan struct{} // Signal to shutdown simulator.
	Master   chan master.Packet
	cpu      *cpu.CPU
	bus      *device.Bus
	held     bool // Loop held by block transfer.
	count    int  // Instructions left in batch.
	loopBase int  // Instructions per batch.
}

// Create core running cpu.
func New(c *cpu.CPU, bus *device.Bus, masterChannel chan master.Packet) *Core {
	return &Core{
		Master:   masterChannel,
		done:     make(chan struct{}),
		cpu:      c,
		bus:      bus,
		loopBase: loopStart,
	}
}

// Pause holds the loop after the current batch.
func (core *Core) Pause() {
	core.held = true
}

// Resume releases the loop.
func (core *Core) Resume() {
	core.held = false
}

// Limit instructions left in current batch.
func (core *Core) Limit(n int) {
	core.count = n
}

// Start runs the loop until Stop.
func (core *Core) Start() {
	core.wg.Add(1)
	defer core.wg.Done()
	for {
		var wait <-chan time.Time
		switch {
		case !core.cpu.Halted() && !core.held:
			core.runBatch()
			wait = time.After(loopGap)
		case core.cpu.Halted():
			// Let device timing run while stopped.
			delayed := false
			for range core.loopBase {
				if delayed = core.cpu.Advance(); !delayed {
					break
				}
			}
			if delayed {
				wait = time.After(loopGap)
			}
		}

		select {
		case <-core.done:
			core.bus.Shutdown()
			return
		case packet := <-core.Master:
			core.processPacket(packet)
		case <-wait:
		}
	}
}

// Run one batch and adjust size to keep batch time near target.
func (core *Core) runBatch() {
	begin := time.Now()
	for core.count = core.loopBase; core.count > 0; core.count-- {
		core.cpu.Step()
		if core.cpu.Halted() {
			slog.Info("CPU halted", "pc", core.cpu.PC())
			return
		}
	}
	if !core.held {
		core.adapt(time.Since(begin))
	}
}

func (core *Core) adapt(elapsed time.Duration) {
	switch {
	case elapsed < loopFast:
		core.loopBase += core.loopBase / 8
	case elapsed > loopSlow:
		core.loopBase = max(loopMin, int(int64(core.loopBase)*loopTarget/elapsed.Milliseconds()))
	}
}

// Stop a running server.
func (core *Core) Stop() {
	slog.Info("Shutting down CPU")
	close(core.done)
	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for CPU to finish.")
		return
	}
}

// Start CPU at address.
func (core *Core) SendStart(addr uint64) {
	core.Master <- master.Packet{Msg: master.Start, Addr: addr}
}

// Continue CPU.
func (core *Core) SendContinue() {
	core.Master <- master.Packet{Msg: master.Continue}
}

// Stop CPU.
func (core *Core) SendStop() {
	core.Master <- master.Packet{Msg: master.Stop}
}

// Call runs fn on the core goroutine and waits for it.
func (core *Core) Call(fn func()) {
	done := make(chan struct{})
	core.Master <- master.Packet{Msg: master.Run, Fn: fn, Done: done}
	<-done
}

// Examine a word of memory on the core goroutine.
func (core *Core) Examine(addr uint64) (uint64, bool) {
	var value uint64
	var ok bool
	core.Call(func() { value, ok = core.cpu.Examine(addr) })
	return value, ok
}

// Deposit a word of memory on the core goroutine.
func (core *Core) Deposit(addr, data uint64) bool {
	var ok bool
	core.Call(func() { ok = core.cpu.Deposit(addr, data) })
	return ok
}

// Status of processor for display.
func (core *Core) Status() string {
	var str string
	core.Call(func() {
		str = fmt.Sprintf("PC=%06o flags=%06o", core.cpu.PC(), core.cpu.Flags())
		if core.cpu.Halted() {
			str += " halted"
		} else {
			str += " running"
		}
	})
	return str
}

// Find terminal for packet.
func (core *Core) terminal(devNum uint16) telnet.Terminal {
	term, ok := core.bus.Get(devNum).(telnet.Terminal)
	if !ok {
		slog.Warn("No terminal on device", "device", devNum)
		return nil
	}
	return term
}

// Process a packet sent to system simulation.
func (core *Core) processPacket(packet master.Packet) {
	switch packet.Msg {
	case master.TelConnect:
		if term := core.terminal(packet.DevNum); term != nil {
			term.Connect(packet.Conn)
		}
	case master.TelDisconnect:
		if term := core.terminal(packet.DevNum); term != nil {
			term.Disconnect()
		}
	case master.TelReceive, master.ConsoleInput:
		if term := core.terminal(packet.DevNum); term != nil {
			term.ReceiveChar(packet.Data)
		}
	case master.TimeClock:
		core.cpu.ClockTick()
	case master.Run:
		if packet.Fn != nil {
			packet.Fn()
		}
	case master.Start:
		core.cpu.Start(packet.Addr)
	case master.Continue:
		core.cpu.Continue()
	case master.Stop:
		core.cpu.Stop()
	}
	if packet.Done != nil {
		close(packet.Done)
	}
}
