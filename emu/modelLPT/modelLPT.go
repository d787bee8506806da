/*
 * KI10 - Line printer.
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
   Line printer at device 124. Each DATAO prints five seven bit
   characters packed left to right, nulls and carriage returns are
   dropped. Output goes to the attached file.

      24    25     28    29    30-32     33-35
      on    init   busy  done  error PI  PI
*/

package modellpt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rcornwell/KI10/command/command"
	config "github.com/rcornwell/KI10/config/configparser"
	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/util/debug"
)

const (
	statusOn   uint64 = 0o4000
	statusInit uint64 = 0o2000
	statusBusy uint64 = 0o200
	statusDone uint64 = 0o100
	statusPI   uint64 = 0o007

	initDelay  = 40  // Checks for printer to become ready.
	printDelay = 512 // Checks to print one word.
)

const (
	// Debug options.
	debugCmd  = 1 << iota // Log CONO.
	debugData             // Log each word printed.
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

type LPT struct {
	devNum   uint16
	sys      *device.System
	status   uint64
	out      *bufio.Writer
	file     io.Closer // Attached file, nil for writer given to New.
	fileName string
	lines    int // Lines printed.
	debugMsk int
}

// Create printer writing to w, which may be nil.
func New(devNum uint16, sys *device.System, w io.Writer) *LPT {
	lpt := &LPT{devNum: devNum, sys: sys}
	if w != nil {
		lpt.out = bufio.NewWriter(w)
	}
	return lpt
}

func (lpt *LPT) Cono(e uint64) {
	lpt.status = (e & 0o377) | statusOn
	debug.DebugDevf(lpt.devNum, lpt.debugMsk, debugCmd, "CONO %06o", e)
	switch {
	case (e & statusInit) != 0:
		lpt.status = (lpt.status &^ statusDone) | statusBusy
		lpt.sys.Irq.Interrupt(true, initDelay, lpt.devNum, int(lpt.status&statusPI), lpt.setDone, 0)
	case (e & statusDone) != 0:
		lpt.sys.Irq.Interrupt(true, initDelay, lpt.devNum, int(lpt.status&statusPI), nil, 0)
	default:
		lpt.sys.Irq.Interrupt(true, -1, lpt.devNum, 0, nil, 0)
	}
}

func (lpt *LPT) Coni() uint64 {
	return lpt.status
}

// Print five characters.
func (lpt *LPT) Datao(data uint64) {
	debug.DebugDevf(lpt.devNum, lpt.debugMsk, debugData, "DATAO %012o", data)
	for shift := 29; shift >= 1; shift -= 7 {
		ch := byte((data >> shift) & 0o177)
		if ch == 0 || ch == '\r' {
			continue
		}
		if ch == '\n' {
			lpt.lines++
		}
		if lpt.out != nil {
			_ = lpt.out.WriteByte(ch)
		}
	}
	lpt.status = (lpt.status &^ statusDone) | statusBusy
	lpt.sys.Irq.Interrupt(true, printDelay, lpt.devNum, int(lpt.status&statusPI), lpt.setDone, 0)
}

func (lpt *LPT) Datai() uint64 {
	return 0
}

func (lpt *LPT) setDone(_ int) int {
	lpt.status = (lpt.status &^ statusBusy) | statusDone
	return int(lpt.status & statusPI)
}

// Flush printed output.
func (lpt *LPT) Flush() error {
	if lpt.out == nil {
		return nil
	}
	return lpt.out.Flush()
}

// Open file for output.
func (lpt *LPT) attachFile(name string) error {
	if lpt.file != nil {
		return fmt.Errorf("LPT already attached to %s", lpt.fileName)
	}
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create printer file: %w", err)
	}
	lpt.file = file
	lpt.fileName = name
	lpt.out = bufio.NewWriter(file)
	return nil
}

// Enable debug options.
func (lpt *LPT) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("LPT debug option invalid: " + opt)
	}
	lpt.debugMsk |= flag
	return nil
}

func (lpt *LPT) Shutdown() {
	if err := lpt.Detach(); err != nil {
		slog.Warn("LPT close failed", "error", err)
	}
}

// List of valid options.
func (lpt *LPT) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "file", OptionType: command.OptionFile, OptionValid: command.ValidAttach | command.ValidShow},
	}
}

// Attach file to device.
func (lpt *LPT) Attach(options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name != "file" || opt.EqualOpt == "" {
			return errors.New("LPT attach requires file=")
		}
		return lpt.attachFile(opt.EqualOpt)
	}
	return errors.New("LPT attach requires file=")
}

// Detach device.
func (lpt *LPT) Detach() error {
	err := lpt.Flush()
	if lpt.file != nil {
		if cerr := lpt.file.Close(); err == nil {
			err = cerr
		}
		lpt.file = nil
		lpt.fileName = ""
		lpt.out = nil
	}
	return err
}

// Set command.
func (lpt *LPT) Set(_ bool, _ []*command.CmdOption) error {
	return errors.New("set command not supported")
}

// Show command.
func (lpt *LPT) Show(_ []*command.CmdOption) (string, error) {
	str := fmt.Sprintf("%03o: status=%04o lines=%d", lpt.devNum, lpt.status, lpt.lines)
	if lpt.fileName != "" {
		str += " file=" + lpt.fileName
	}
	return str, nil
}

// register a device on initialize.
func init() {
	config.RegisterModel("LPT", create)
}

// Create a device.
func create(devNum uint16, _ string, options []config.Option, sys *device.System) error {
	lpt := New(devNum, sys, nil)
	for _, option := range options {
		switch strings.ToLower(option.Name) {
		case "file":
			if option.EqualOpt == "" {
				return errors.New("LPT file requires name")
			}
			if err := lpt.attachFile(option.EqualOpt); err != nil {
				return err
			}
		default:
			return errors.New("LPT invalid option: " + option.Name)
		}
	}
	return sys.Bus.Add(devNum, "LPT", lpt)
}
