/*
 * KI10 - Line frequency clock tests.
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
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcornwell/KI10/emu/master"
)

// Poster counting clock ticks.
type tickCounter struct {
	count atomic.Int32
	bad   atomic.Int32
}

func (tc *tickCounter) Post(packet master.Packet) {
	if packet.Msg != master.TimeClock {
		tc.bad.Add(1)
		return
	}
	tc.count.Add(1)
}

func TestTimer(t *testing.T) {
	counter := &tickCounter{}
	timer := NewTimer(counter)

	// Nothing until started.
	time.Sleep(100 * time.Millisecond)
	if n := counter.count.Load(); n != 0 {
		t.Errorf("Expected no ticks before start got: %d", n)
	}

	timer.Start()
	time.Sleep(time.Second)
	if n := counter.count.Load(); n < 55 || n > 62 {
		t.Errorf("Expected 60 ticks during a second got: %d", n)
	}

	timer.Stop()
	time.Sleep(20 * time.Millisecond)
	counter.count.Store(0)
	time.Sleep(500 * time.Millisecond)
	if n := counter.count.Load(); n != 0 {
		t.Errorf("Expected 0 ticks while stopped got: %d", n)
	}

	timer.Start()
	time.Sleep(500 * time.Millisecond)
	if n := counter.count.Load(); n < 27 || n > 31 {
		t.Errorf("Expected 30 ticks during half second got: %d", n)
	}
	timer.Shutdown()
	if n := counter.bad.Load(); n != 0 {
		t.Errorf("Timer sent %d wrong messages", n)
	}
}
