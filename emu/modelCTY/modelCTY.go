/*
 * KI10 - Console teletype.
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

/*
   The console teletype is device 120. Output characters are handed to
   the current host one at a time, a telnet session takes over from the
   local host while connected. Typed characters are held until the
   program has taken the previous one with DATAI.

   Status bits, CONO uses bits 26-29 to clear flags:

      24    25     26      27      28       29     30     31      32     33-35
      test  clr    clr     clr     clr      in     in     out     out    PI
            inBsy  inDone  outBsy  outDone  busy   done   busy    done
*/

package modelcty

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rcornwell/KI10/command/command"
	config "github.com/rcornwell/KI10/config/configparser"
	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/telnet"
	"github.com/rcornwell/KI10/util/debug"
	"github.com/rcornwell/KI10/util/terminal"
)

const (
	statusInBusy  uint64 = 0o100
	statusInDone  uint64 = 0o040
	statusOutBusy uint64 = 0o020
	statusOutDone uint64 = 0o010
	statusPI      uint64 = 0o007

	outputDelay = 100 // Checks for one character to print.
)

const (
	// Debug options.
	debugCmd    = 1 << iota // Log CONO and status.
	debugLine               // Log output by lines.
	debugDetail             // Log each character.
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"LINE":   debugLine,
	"DETAIL": debugDetail,
}

// Host receives characters typed out on a unit.
type Host interface {
	Put(unit int, b byte)
}

// Output to a plain writer.
type writerHost struct {
	w io.Writer
}

func (h writerHost) Put(_ int, b byte) {
	_, _ = h.w.Write([]byte{b})
}

// Output to telnet session.
type connHost struct {
	conn net.Conn
}

func (h connHost) Put(_ int, b byte) {
	if _, err := h.conn.Write([]byte{b}); err != nil {
		slog.Debug("CTY telnet write failed", "error", err)
	}
}

type CTY struct {
	devNum    uint16
	sys       *device.System
	status    uint64             // CONI status.
	inputChar uint64             // Last character received.
	typeAhead []byte             // Characters not yet taken.
	host      Host               // Current output host.
	local     Host               // Host when no session connected.
	console   *terminal.Terminal // Local console in raw mode.
	serial    *terminal.Terminal // Serial line.
	server    *telnet.Server     // Telnet listener.
	port      string             // Telnet port.
	connected bool               // Telnet session active.
	outLine   []byte             // Line being output for debug purposes.
	debugMsk  int                // Debug option mask.
}

// Create console on host.
func New(devNum uint16, sys *device.System, host Host) *CTY {
	return &CTY{devNum: devNum, sys: sys, host: host, local: host}
}

// CONO sets status and priority.
func (cty *CTY) Cono(e uint64) {
	cty.status = ((cty.status &^ (e >> 4)) & 0o170) | (e & 0o177)
	debug.DebugDevf(cty.devNum, cty.debugMsk, debugCmd, "CONO %06o status %03o", e, cty.status)
	if (cty.status & (statusInDone | statusOutDone)) != 0 {
		cty.sys.Irq.Interrupt(true, 1, cty.devNum, int(cty.status&statusPI), nil, 0)
	}
}

func (cty *CTY) Coni() uint64 {
	return cty.status
}

// DATAO prints one character.
func (cty *CTY) Datao(data uint64) {
	ch := byte(data & 0o177)
	cty.put(ch)
	cty.status = (cty.status | statusOutBusy) &^ statusOutDone
	cty.sys.Irq.Interrupt(true, outputDelay, cty.devNum, int(cty.status&statusPI), cty.setDone, 0)
}

// DATAI takes the input character.
func (cty *CTY) Datai() uint64 {
	cty.status &^= statusInBusy | statusInDone
	ch := cty.inputChar
	debug.DebugDevf(cty.devNum, cty.debugMsk, debugDetail, "DATAI %03o", ch)
	cty.feed()
	return ch
}

// Output finished.
func (cty *CTY) setDone(_ int) int {
	cty.status = (cty.status &^ statusOutBusy) | statusOutDone
	return int(cty.status & statusPI)
}

// Send character to host.
func (cty *CTY) put(ch byte) {
	debug.DebugDevf(cty.devNum, cty.debugMsk, debugDetail, "Output %03o", ch)
	if cty.host != nil {
		cty.host.Put(0, ch)
	}
	switch ch {
	case '\n':
		debug.DebugDevf(cty.devNum, cty.debugMsk, debugLine, "Line: %s", string(cty.outLine))
		cty.outLine = cty.outLine[:0]
	case '\r', 0:
	default:
		cty.outLine = append(cty.outLine, ch)
	}
}

// Receive offers a character to the program. It is refused while the
// previous one has not been taken.
func (cty *CTY) Receive(b byte) bool {
	if (cty.status & statusInDone) != 0 {
		return false
	}
	cty.inputChar = uint64(b)
	cty.status |= statusInDone
	cty.sys.Irq.Interrupt(false, 1, cty.devNum, int(cty.status&statusPI), nil, 0)
	return true
}

// Pass type ahead to program.
func (cty *CTY) feed() {
	if len(cty.typeAhead) != 0 && cty.Receive(cty.typeAhead[0]) {
		cty.typeAhead = cty.typeAhead[1:]
	}
}

// Input characters from host. ^C discards anything not yet taken.
func (cty *CTY) Input(data []byte) {
	if len(data) == 0 {
		return
	}
	if data[0] == 0o003 {
		cty.typeAhead = append([]byte{}, data...)
	} else {
		cty.typeAhead = append(cty.typeAhead, data...)
	}
	cty.feed()
}

// Pending number of characters waiting.
func (cty *CTY) Pending() int {
	return len(cty.typeAhead)
}

// Connect telnet session.
func (cty *CTY) Connect(conn net.Conn) {
	cty.connected = true
	cty.host = connHost{conn: conn}
	slog.Info("CTY connected", "remote", conn.RemoteAddr().String())
}

// Disconnect telnet session.
func (cty *CTY) Disconnect() {
	cty.connected = false
	cty.host = cty.local
}

// Input from telnet or terminal.
func (cty *CTY) ReceiveChar(data []byte) {
	cty.Input(data)
}

// Console returns the local console if one is configured.
func (cty *CTY) Console() *terminal.Terminal {
	return cty.console
}

// Enable debug options.
func (cty *CTY) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("CTY debug option invalid: " + opt)
	}
	cty.debugMsk |= flag
	return nil
}

// Release host resources.
func (cty *CTY) Shutdown() {
	if cty.server != nil {
		cty.server.Stop()
		cty.server = nil
	}
	for _, t := range []*terminal.Terminal{cty.console, cty.serial} {
		if t != nil {
			if err := t.Close(); err != nil {
				slog.Warn("CTY terminal close failed", "error", err)
			}
		}
	}
	cty.console = nil
	cty.serial = nil
}

// List of valid options.
func (cty *CTY) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "pi", OptionType: command.OptionNumber, OptionValid: command.ValidSet},
	}
}

// Attach file to device.
func (cty *CTY) Attach(_ []*command.CmdOption) error {
	return errors.New("attach command not supported")
}

// Detach device.
func (cty *CTY) Detach() error {
	return errors.New("detach command not supported")
}

// Set command, only the priority channel may be changed.
func (cty *CTY) Set(_ bool, options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name != "pi" {
			return errors.New("CTY invalid option: " + opt.Name)
		}
		cty.status = (cty.status &^ statusPI) | (uint64(opt.Value) & statusPI)
	}
	return nil
}

// Show command.
func (cty *CTY) Show(_ []*command.CmdOption) (string, error) {
	str := fmt.Sprintf("%03o: status=%03o", cty.devNum, cty.status)
	if cty.port != "" {
		str += " telnet=" + cty.port
		if cty.connected {
			str += " connected"
		}
	}
	if cty.serial != nil {
		str += " serial=" + cty.serial.Name()
	}
	if cty.console != nil {
		str += " console"
	}
	if n := len(cty.typeAhead); n != 0 {
		str += fmt.Sprintf(" pending=%d", n)
	}
	return str, nil
}

// register a device on initialize.
func init() {
	config.RegisterModel("CTY", create)
}

// Create a device.
func create(devNum uint16, _ string, options []config.Option, sys *device.System) error {
	cty := New(devNum, sys, writerHost{w: os.Stdout})
	port := ""
	serial := ""
	baud := uint64(9600)
	console := false
	for _, option := range options {
		if option.Value != nil {
			return errors.New("extra options not supported on: " + option.Name)
		}
		switch strings.ToLower(option.Name) {
		case "telnet":
			if _, err := strconv.ParseUint(option.EqualOpt, 10, 16); err != nil {
				return fmt.Errorf("telnet requires port number: %s", option.EqualOpt)
			}
			port = option.EqualOpt
		case "serial":
			if option.EqualOpt == "" {
				return errors.New("serial requires device name")
			}
			serial = option.EqualOpt
		case "baud":
			b, err := strconv.ParseUint(option.EqualOpt, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid baud rate: %s", option.EqualOpt)
			}
			baud = b
		case "console":
			console = true
		default:
			return errors.New("CTY invalid option: " + option.Name)
		}
	}
	if serial != "" && console {
		return errors.New("CTY can't use both serial and console")
	}

	if err := sys.Bus.Add(devNum, "CTY", cty); err != nil {
		return err
	}

	switch {
	case serial != "":
		t, err := terminal.OpenSerial(serial, uint(baud))
		if err != nil {
			return err
		}
		cty.serial = t
		cty.local = t
		go func() {
			if err := t.Run(devNum, sys.Post, 0); err != nil {
				slog.Error("CTY serial input failed", "error", err)
			}
		}()
	case console:
		t, err := terminal.OpenConsole()
		if err != nil {
			return err
		}
		cty.console = t
		cty.local = t
	}
	cty.host = cty.local

	if port != "" {
		s, err := telnet.Listen(":"+port, devNum, sys.Post)
		if err != nil {
			return err
		}
		cty.server = s
		cty.port = port
	}
	return nil
}
