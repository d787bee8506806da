/*
 * KI10 - Device test harness.
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

// Package testdev provides a system for testing devices without a
// processor. Interrupts are held on a queue that tests step by hand and
// functions posted to the core are run on the test goroutine.
package testdev

import (
	"testing"
	"time"

	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/event"
	"github.com/rcornwell/KI10/emu/master"
	"github.com/rcornwell/KI10/emu/memory"
)

// Irq queues interrupts for devices.
type Irq struct {
	Queue event.Queue
}

func (irq *Irq) Interrupt(clean bool, delay int, devNum uint16, priority int, cb event.Callback, iarg int) {
	irq.Queue.Interrupt(clean, delay, int(devNum), priority, cb, iarg)
}

// Run checks until nothing is delayed or limit reached. Returns number
// of checks made.
func (irq *Irq) Run(limit int) int {
	for n := range limit {
		if _, delayed := irq.Queue.Check(func(int) bool { return false }); !delayed {
			return n
		}
	}
	return limit
}

// Ready returns priority of entries waiting for delivery for device.
func (irq *Irq) Ready(devNum uint16) []int {
	r := []int{}
	irq.Queue.Walk(func(delay int, dev int, pri int) {
		if delay == 0 && dev == int(devNum) {
			r = append(r, pri)
		}
	})
	return r
}

// Take removes ready entries for device.
func (irq *Irq) Take(devNum uint16) {
	for irq.Queue.Cancel(int(devNum)) {
	}
}

// Pacer records instruction loop control.
type Pacer struct {
	Held    bool // Loop held by Pause.
	Batch   int  // Last limit set.
	Pauses  int
	Resumes int
}

func (p *Pacer) Pause() {
	p.Held = true
	p.Pauses++
}

func (p *Pacer) Resume() {
	p.Held = false
	p.Resumes++
}

func (p *Pacer) Limit(n int) {
	p.Batch = n
}

// System for device under test.
type System struct {
	*device.System
	Irq   *Irq
	Pacer *Pacer
	Post  chan master.Packet
}

// New system with memory of k words.
func New(k int) *System {
	s := &System{Irq: &Irq{}, Pacer: &Pacer{}, Post: make(chan master.Packet, 16)}
	s.System = &device.System{
		Bus:   device.NewBus(),
		Mem:   memory.New(k),
		Irq:   s.Irq,
		Pacer: s.Pacer,
		Post:  master.Channel(s.Post),
	}
	return s
}

// RunPosted runs functions posted to core until done returns true.
func (s *System) RunPosted(t testing.TB, done func() bool) {
	t.Helper()
	for !done() {
		select {
		case p := <-s.Post:
			if p.Msg == master.Run && p.Fn != nil {
				p.Fn()
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for posted function")
			return
		}
	}
}
