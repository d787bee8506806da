/*
 * KI10 - Messages to the core.
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

package master

import (
	"net"
)

/*
   All work for the processor and its devices happens on the core
   goroutine. Other goroutines (clock, terminal, telnet, block fetches
   and the operator console) send packets on the master channel.
*/

const (
	TelConnect    = 1 + iota // Telnet session connected.
	TelDisconnect            // Telnet session dropped.
	TelReceive               // Data from telnet session.
	ConsoleInput             // Characters typed on local console.
	TimeClock                // Clock tick.
	Run                      // Run function on core goroutine.
	Start                    // Start CPU at address.
	Continue                 // Continue CPU from current PC.
	Stop                     // Stop CPU.
)

type Packet struct {
	Msg    int      // Type of message.
	DevNum uint16   // Device message is for.
	Addr   uint64   // Start address.
	Conn   net.Conn // Telnet connection.
	Data   []byte   // Data received.
	Fn     func()   // Function for Run.
	Done   chan struct{}
}

// Poster delivers packets to the core.
type Poster interface {
	Post(packet Packet)
}

// Channel poster used by goroutines outside the core.
type Channel chan Packet

// Post packet on channel.
func (ch Channel) Post(packet Packet) {
	ch <- packet
}
