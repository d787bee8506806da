/*
 * KI10 - Telnet protocol handling.
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

package telnet

import (
	"log/slog"
	"net"
)

// Telnet protocol constants.
const (
	tnIAC  byte = 255 // protocol delim
	tnDONT byte = 254 // dont
	tnDO   byte = 253 // do
	tnWONT byte = 252 // wont
	tnWILL byte = 251 // will
	tnSB   byte = 250 // Sub negotiations begin
	tnGA   byte = 249 // Go ahead
	tnIP   byte = 244 // Interrupt process
	tnBRK  byte = 243 // break
	tnSE   byte = 240 // Sub negotiations end

	// Telnet line states.
	tnStateData = 1 + iota // normal
	tnStateIAC             // IAC seen
	tnStateWILL            // WILL seen
	tnStateDO              // DO seen
	tnStateDONT            // DONT seen
	tnStateWONT            // WONT seen
	tnStateSB              // Skipping sub negotiation
	tnStateSBIAC           // IAC seen in sub negotiation
	tnStateCR              // CR seen, drop following NUL or LF

	// Telnet options.
	tnOptionBinary byte = 0  // Binary data transfer
	tnOptionEcho   byte = 1  // Echo
	tnOptionSGA    byte = 3  // Suppress go ahead
	tnOptionLINE   byte = 34 // line mode

	// Telnet flags.
	tnFlagDo   uint8 = 0x01 // Do received
	tnFlagDont uint8 = 0x02 // Don't received
	tnFlagWill uint8 = 0x04 // Will sent
	tnFlagWont uint8 = 0x08 // Wont sent
)

// Server echoes and sends characters one at a time.
var initString = []byte{
	tnIAC, tnWONT, tnOptionLINE,
	tnIAC, tnWILL, tnOptionEcho,
	tnIAC, tnWILL, tnOptionSGA,
	tnIAC, tnWILL, tnOptionBinary,
}

// Convert option number to string.
func optName(opt byte) string {
	switch opt {
	case tnOptionBinary:
		return "bin"
	case tnOptionEcho:
		return "echo"
	case tnOptionSGA:
		return "sga"
	case tnOptionLINE:
		return "line"
	}
	return "unknown"
}

type tnState struct {
	optionState [256]uint8 // Current state of telnet session
	state       int        // Current line State
	conn        net.Conn   // Client connection.
}

func newState(conn net.Conn) *tnState {
	state := &tnState{conn: conn, state: tnStateData}
	state.optionState[tnOptionEcho] = tnFlagWill
	state.optionState[tnOptionSGA] = tnFlagWill
	state.optionState[tnOptionBinary] = tnFlagWill
	state.optionState[tnOptionLINE] = tnFlagWont
	return state
}

// Send initial negotiation.
func (state *tnState) start() error {
	_, err := state.conn.Write(initString)
	return err
}

// Send a response to client.
func (state *tnState) sendOption(setState, option byte) {
	data := []byte{tnIAC, setState, option}
	if _, err := state.conn.Write(data); err != nil {
		slog.Debug("telnet write failed", "error", err)
	}
	switch setState {
	case tnWILL:
		state.optionState[option] |= tnFlagWill
	case tnWONT:
		state.optionState[option] |= tnFlagWont
	case tnDO:
		state.optionState[option] |= tnFlagDo
	case tnDONT:
		state.optionState[option] |= tnFlagDont
	}
}

// Handle DO request, refuse anything not offered.
func (state *tnState) handleDO(input byte) {
	if (state.optionState[input] & tnFlagWill) != 0 {
		return
	}
	if (state.optionState[input] & tnFlagWont) == 0 {
		state.sendOption(tnWONT, input)
	}
}

// Handle WILL offer, accept binary and go ahead suppression.
func (state *tnState) handleWILL(input byte) {
	switch input {
	case tnOptionBinary, tnOptionSGA:
		if (state.optionState[input] & tnFlagDo) == 0 {
			state.sendOption(tnDO, input)
		}
	default:
		if (state.optionState[input] & tnFlagDont) == 0 {
			state.sendOption(tnDONT, input)
		}
	}
}

// Filter protocol out of input, returning data for the terminal.
func (state *tnState) filter(buffer []byte) []byte {
	out := []byte{}
	for _, input := range buffer {
		switch state.state {
		case tnStateData:
			switch input {
			case tnIAC:
				state.state = tnStateIAC
			case '\r':
				state.state = tnStateCR
				out = append(out, input)
			default:
				out = append(out, input)
			}

		case tnStateCR:
			state.state = tnStateData
			switch input {
			case 0, '\n':
			case tnIAC:
				state.state = tnStateIAC
			default:
				out = append(out, input)
			}

		case tnStateIAC:
			state.state = tnStateData
			switch input {
			case tnIAC:
				out = append(out, input)
			case tnBRK, tnIP:
				// Break and interrupt deliver a ^C.
				out = append(out, 0o003)
			case tnWILL:
				state.state = tnStateWILL
			case tnWONT:
				state.state = tnStateWONT
			case tnDO:
				state.state = tnStateDO
			case tnDONT:
				state.state = tnStateDONT
			case tnSB:
				state.state = tnStateSB
			}

		case tnStateWILL:
			slog.Debug("telnet will", "option", optName(input))
			state.handleWILL(input)
			state.state = tnStateData

		case tnStateWONT:
			slog.Debug("telnet wont", "option", optName(input))
			if (state.optionState[input] & tnFlagDont) == 0 {
				state.sendOption(tnDONT, input)
			}
			state.state = tnStateData

		case tnStateDO:
			slog.Debug("telnet do", "option", optName(input))
			state.handleDO(input)
			state.state = tnStateData

		case tnStateDONT:
			slog.Debug("telnet dont", "option", optName(input))
			state.state = tnStateData

		case tnStateSB:
			if input == tnIAC {
				state.state = tnStateSBIAC
			}

		case tnStateSBIAC:
			if input == tnSE {
				state.state = tnStateData
			} else {
				state.state = tnStateSB
			}
		}
	}
	return out
}
