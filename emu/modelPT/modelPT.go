/*
 * KI10 - Paper tape reader and punch.
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
   Paper tape reader at device 104 and punch at 100. In binary mode the
   reader packs six frames with the eighth hole punched into a word and
   the punch writes six bits per frame with the eighth hole. In ASCII
   mode one frame is moved per DATAI or DATAO.

      26       27     28    29    30     31     33-35
      end      no     busy  done  binary
      of tape  tape                                 PI
*/

package modelpt

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
	"github.com/rcornwell/KI10/emu/word"
	"github.com/rcornwell/KI10/util/debug"
)

const (
	statusEnd    uint64 = 0o400
	statusNoTape uint64 = 0o100
	statusBinary uint64 = 0o040
	statusBusy   uint64 = 0o020
	statusDone   uint64 = 0o010
	statusPI     uint64 = 0o007
	conoMask     uint64 = statusBinary | statusBusy | statusDone | statusPI

	frameDelay = 100 // Checks to move one frame.
	hole8      = 0o200
)

const (
	// Debug options.
	debugCmd  = 1 << iota // Log CONO.
	debugData             // Log data transfers.
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

// Parts shared by reader and punch.
type tape struct {
	name     string
	devNum   uint16
	sys      *device.System
	status   uint64
	file     *os.File
	fileName string
	debugMsk int
}

func (pt *tape) Coni() uint64 {
	return pt.status
}

// Enable debug options.
func (pt *tape) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New(pt.name + " debug option invalid: " + opt)
	}
	pt.debugMsk |= flag
	return nil
}

// List of valid options.
func (pt *tape) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "file", OptionType: command.OptionFile, OptionValid: command.ValidAttach | command.ValidShow},
	}
}

// Set command.
func (pt *tape) Set(_ bool, _ []*command.CmdOption) error {
	return errors.New("set command not supported")
}

// Show command.
func (pt *tape) Show(_ []*command.CmdOption) (string, error) {
	str := fmt.Sprintf("%03o: status=%03o", pt.devNum, pt.status)
	if pt.fileName != "" {
		str += " file=" + pt.fileName
	}
	return str, nil
}

// Find file name in options.
func fileOption(name string, options []*command.CmdOption) (string, error) {
	for _, opt := range options {
		if opt.Name == "file" && opt.EqualOpt != "" {
			return opt.EqualOpt, nil
		}
	}
	return "", errors.New(name + " attach requires file=")
}

// Reader.
type PTR struct {
	tape
	in       *bufio.Reader
	buffer   uint64 // Word being assembled.
	frames   int    // Frames in buffer.
	switches uint64 // Address and operating switches set by DATAO.
}

// Create reader on r, which may be nil.
func NewReader(devNum uint16, sys *device.System, r io.Reader) *PTR {
	ptr := &PTR{tape: tape{name: "PTR", devNum: devNum, sys: sys}}
	if r != nil {
		ptr.in = bufio.NewReader(r)
	} else {
		ptr.status = statusNoTape
	}
	return ptr
}

// CONO sets mode, setting busy starts reading.
func (ptr *PTR) Cono(e uint64) {
	ptr.status = (ptr.status &^ conoMask) | (e & conoMask)
	debug.DebugDevf(ptr.devNum, ptr.debugMsk, debugCmd, "CONO %06o", e)
	ptr.frames = 0
	ptr.buffer = 0
	switch {
	case (ptr.status & statusBusy) != 0:
		ptr.status &^= statusDone | statusEnd
		ptr.sys.Irq.Interrupt(true, frameDelay, ptr.devNum, 0, ptr.readFrame, 0)
	case (ptr.status & statusDone) != 0:
		ptr.sys.Irq.Interrupt(true, 1, ptr.devNum, int(ptr.status&statusPI), nil, 0)
	default:
		ptr.sys.Irq.Interrupt(true, -1, ptr.devNum, 0, nil, 0)
	}
}

// Read next frame, posting done when a character or word is ready.
func (ptr *PTR) readFrame(_ int) int {
	if (ptr.status & statusBusy) == 0 {
		return 0
	}
	var b byte
	var err error
	if ptr.in == nil {
		err = io.EOF
	} else {
		b, err = ptr.in.ReadByte()
	}
	if err != nil {
		// Out of tape.
		ptr.status = (ptr.status &^ statusBusy) | statusDone | statusEnd
		return int(ptr.status & statusPI)
	}
	if (ptr.status & statusBinary) != 0 {
		if (b & hole8) == 0 {
			ptr.sys.Irq.Interrupt(true, frameDelay, ptr.devNum, 0, ptr.readFrame, 0)
			return -1
		}
		ptr.buffer = ((ptr.buffer << 6) | uint64(b&0o77)) & word.Mask
		ptr.frames++
		if ptr.frames < 6 {
			ptr.sys.Irq.Interrupt(true, frameDelay, ptr.devNum, 0, ptr.readFrame, 0)
			return -1
		}
	} else {
		ptr.buffer = uint64(b)
	}
	ptr.frames = 0
	ptr.status = (ptr.status &^ statusBusy) | statusDone
	return int(ptr.status & statusPI)
}

// DATAO loads the console address and operating switches.
func (ptr *PTR) Datao(data uint64) {
	ptr.switches = data & word.Mask
}

// DATAI takes the buffer and reads on.
func (ptr *PTR) Datai() uint64 {
	data := ptr.buffer
	debug.DebugDevf(ptr.devNum, ptr.debugMsk, debugData, "DATAI %012o", data)
	ptr.buffer = 0
	if (ptr.status & statusDone) != 0 {
		ptr.status &^= statusDone
		if (ptr.status & statusEnd) == 0 {
			ptr.status |= statusBusy
			ptr.sys.Irq.Interrupt(true, frameDelay, ptr.devNum, 0, ptr.readFrame, 0)
		} else {
			ptr.sys.Irq.Interrupt(true, -1, ptr.devNum, 0, nil, 0)
		}
	}
	return data
}

// Switches returns the address and operating switches.
func (ptr *PTR) Switches() uint64 {
	return ptr.switches
}

// Attach file to device.
func (ptr *PTR) Attach(options []*command.CmdOption) error {
	name, err := fileOption(ptr.name, options)
	if err != nil {
		return err
	}
	return ptr.attachFile(name)
}

func (ptr *PTR) attachFile(name string) error {
	if ptr.file != nil {
		return fmt.Errorf("%s already attached to %s", ptr.name, ptr.fileName)
	}
	file, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("unable to open tape: %w", err)
	}
	ptr.file = file
	ptr.fileName = name
	ptr.in = bufio.NewReader(file)
	ptr.status &^= statusNoTape | statusEnd
	return nil
}

// Detach device.
func (ptr *PTR) Detach() error {
	if ptr.file == nil {
		return nil
	}
	err := ptr.file.Close()
	ptr.file = nil
	ptr.fileName = ""
	ptr.in = nil
	ptr.status |= statusNoTape
	return err
}

func (ptr *PTR) Shutdown() {
	if err := ptr.Detach(); err != nil {
		slog.Warn("PTR close failed", "error", err)
	}
}

// Punch.
type PTP struct {
	tape
	out  *bufio.Writer
	data uint64 // Frame to punch.
}

// Create punch on w, which may be nil.
func NewPunch(devNum uint16, sys *device.System, w io.Writer) *PTP {
	ptp := &PTP{tape: tape{name: "PTP", devNum: devNum, sys: sys}}
	if w != nil {
		ptp.out = bufio.NewWriter(w)
	} else {
		ptp.status = statusNoTape
	}
	return ptp
}

func (ptp *PTP) Cono(e uint64) {
	ptp.status = (ptp.status &^ conoMask) | (e & conoMask)
	debug.DebugDevf(ptp.devNum, ptp.debugMsk, debugCmd, "CONO %06o", e)
	if (ptp.status & statusDone) != 0 {
		ptp.sys.Irq.Interrupt(true, 1, ptp.devNum, int(ptp.status&statusPI), nil, 0)
	} else {
		ptp.sys.Irq.Interrupt(true, -1, ptp.devNum, 0, nil, 0)
	}
}

// DATAO punches one frame.
func (ptp *PTP) Datao(data uint64) {
	ptp.data = data
	debug.DebugDevf(ptp.devNum, ptp.debugMsk, debugData, "DATAO %012o", data)
	ptp.status = (ptp.status &^ statusDone) | statusBusy
	ptp.sys.Irq.Interrupt(true, frameDelay, ptp.devNum, 0, ptp.punch, 0)
}

func (ptp *PTP) Datai() uint64 {
	return 0
}

func (ptp *PTP) punch(_ int) int {
	b := byte(ptp.data & 0o377)
	if (ptp.status & statusBinary) != 0 {
		b = byte(ptp.data&0o77) | hole8
	}
	if ptp.out != nil {
		_ = ptp.out.WriteByte(b)
	}
	ptp.status = (ptp.status &^ statusBusy) | statusDone
	return int(ptp.status & statusPI)
}

// Flush punched output.
func (ptp *PTP) Flush() error {
	if ptp.out == nil {
		return nil
	}
	return ptp.out.Flush()
}

// Attach file to device.
func (ptp *PTP) Attach(options []*command.CmdOption) error {
	name, err := fileOption(ptp.name, options)
	if err != nil {
		return err
	}
	return ptp.attachFile(name)
}

func (ptp *PTP) attachFile(name string) error {
	if ptp.file != nil {
		return fmt.Errorf("%s already attached to %s", ptp.name, ptp.fileName)
	}
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create tape: %w", err)
	}
	ptp.file = file
	ptp.fileName = name
	ptp.out = bufio.NewWriter(file)
	ptp.status &^= statusNoTape
	return nil
}

// Detach device.
func (ptp *PTP) Detach() error {
	err := ptp.Flush()
	if ptp.file != nil {
		if cerr := ptp.file.Close(); err == nil {
			err = cerr
		}
		ptp.file = nil
		ptp.fileName = ""
		ptp.out = nil
		ptp.status |= statusNoTape
	}
	return err
}

func (ptp *PTP) Shutdown() {
	if err := ptp.Detach(); err != nil {
		slog.Warn("PTP close failed", "error", err)
	}
}

// register devices on initialize.
func init() {
	config.RegisterModel("PTR", createReader)
	config.RegisterModel("PTP", createPunch)
}

// Get file option.
func configFile(name string, options []config.Option) (string, error) {
	file := ""
	for _, option := range options {
		switch strings.ToLower(option.Name) {
		case "file":
			if option.EqualOpt == "" {
				return "", errors.New(name + " file requires name")
			}
			file = option.EqualOpt
		default:
			return "", errors.New(name + " invalid option: " + option.Name)
		}
	}
	return file, nil
}

func createReader(devNum uint16, _ string, options []config.Option, sys *device.System) error {
	file, err := configFile("PTR", options)
	if err != nil {
		return err
	}
	ptr := NewReader(devNum, sys, nil)
	if file != "" {
		if err := ptr.attachFile(file); err != nil {
			return err
		}
	}
	return sys.Bus.Add(devNum, "PTR", ptr)
}

func createPunch(devNum uint16, _ string, options []config.Option, sys *device.System) error {
	file, err := configFile("PTP", options)
	if err != nil {
		return err
	}
	ptp := NewPunch(devNum, sys, nil)
	if file != "" {
		if err := ptp.attachFile(file); err != nil {
			return err
		}
	}
	return sys.Bus.Add(devNum, "PTP", ptp)
}
