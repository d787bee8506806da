/*
 * KI10 - Line frequency clock.
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

package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/KI10/emu/master"
)

// Tick interval of the 60 Hz line clock.
const Interval = 16666667 * time.Nanosecond

type Timer struct {
	wg      sync.WaitGroup
	running bool // Indicate when ticks should be sent.
	post    master.Poster
	enable  chan bool     // Enable or disable timer.
	done    chan struct{} // Stop timer task.
	ticker  *time.Ticker  // Regular timer interval.
}

// Create instance of line clock posting ticks to post.
func NewTimer(post master.Poster) *Timer {
	timer := &Timer{
		post:   post,
		enable: make(chan bool, 1),
		done:   make(chan struct{}),
	}
	timer.wg.Add(1)
	go timer.run()
	return timer
}

// Start delivering clock ticks.
func (timer *Timer) Start() {
	timer.enable <- true
}

// Stop delivering ticks.
func (timer *Timer) Stop() {
	timer.enable <- false
}

// Shutdown a running timer.
func (timer *Timer) Shutdown() {
	close(timer.done)
	done := make(chan struct{})
	go func() {
		timer.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for timer to finish.")
		return
	}
}

// Send ticks while enabled.
func (timer *Timer) run() {
	defer timer.wg.Done()
	timer.ticker = time.NewTicker(Interval)
	defer timer.ticker.Stop()

	for {
		select {
		case <-timer.ticker.C:
			if timer.running {
				timer.post.Post(master.Packet{Msg: master.TimeClock})
			}
		case timer.running = <-timer.enable:
			if timer.running {
				timer.ticker.Reset(Interval)
			}
		case <-timer.done:
			return
		}
	}
}
