/*
 * KI10 - TM10B magnetic tape controller.
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
   Tape controller with its control half at device 340 and status half
   at 344. Drives are read only TAP images named mta<n>.tap. Reads
   transfer through a control word list loaded by DATAO to the status
   half, completion stores the remaining count and last address at the
   list address plus one.

   CONO MTC:
      18-20 unit    22 core dump    23-26 function
      30-32 job done PI             33-35 data PI
*/

package modeltm10

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rcornwell/KI10/command/command"
	config "github.com/rcornwell/KI10/config/configparser"
	"github.com/rcornwell/KI10/emu/blockio"
	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/util/debug"
	"github.com/rcornwell/KI10/util/tape"
)

const units = 8

// Status half bits.
const (
	mts22Bit     uint64 = 0o400000000
	mtsNXM       uint64 = 0o40000000
	mtsParity    uint64 = 0o20000000
	mtsLoadPoint uint64 = 0o100000
	mtsIllegal   uint64 = 0o40000
	mtsEOF       uint64 = 0o10000
	mtsEOT       uint64 = 0o4000
	mtsCompare   uint64 = 0o2000
	mtsRecLength uint64 = 0o1000
	mtsJobDone   uint64 = 0o100
	mtsIdle      uint64 = 0o40
	mtsWriteLock uint64 = 0o10
	mtsNextUnit  uint64 = 0o2

	mtsReady = mts22Bit | mtsJobDone | mtsIdle | mtsWriteLock | mtsNextUnit

	mtcCoreDump uint64 = 0o20000
	mtsMoveBR   uint64 = 0o1 // CONO MTS clears buffer.
)

// Functions.
const (
	fnNoop         = 0o0
	fnRewind       = 0o1
	fnRead         = 0o2
	fnReadCompare  = 0o3
	fnSpaceForward = 0o6
	fnSpaceReverse = 0o7
	fnInterrupt    = 0o10
	fnUnload       = 0o11
	fnReadMulti    = 0o12
	fnCompareMulti = 0o13
	fnFileForward  = 0o16
	fnFileReverse  = 0o17
)

const (
	// Debug options.
	debugCmd  = 1 << iota // Log CONO and DATAO.
	debugData             // Log records.
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

type drive struct {
	position int64  // Byte position in image.
	lastLen  uint32 // Last record length read.
	cache    *blockio.Cache
}

// TM10 is the shared controller behind both device numbers.
type TM10 struct {
	devNum   uint16 // Control half, status half is four above.
	sys      *device.System
	mtc      uint64 // Last CONO to control half.
	mts      uint64
	icwa     uint64
	chain    blockio.Chain
	unit     int
	function int
	br       uint64 // Buffer register.
	drive    [units]drive
	fetch    *blockio.FileFetcher
	records  int
	debugMsk int
}

// Control half.
type MTC struct {
	*TM10
}

// Status half.
type MTS struct {
	*TM10
}

// Create controller with images in directory dir.
func New(devNum uint16, sys *device.System, dir string) *TM10 {
	return &TM10{
		devNum: devNum,
		sys:    sys,
		mts:    mts22Bit | mtsJobDone | mtsIdle | mtsNextUnit,
		chain:  blockio.Chain{In22Bit: true},
		fetch:  &blockio.FileFetcher{Dir: dir},
	}
}

// Control half device.
func (tm *TM10) Control() *MTC {
	return &MTC{tm}
}

// Status half device.
func (tm *TM10) Status() *MTS {
	return &MTS{tm}
}

// CONO starts a function when the last one is done.
func (c *MTC) Cono(e uint64) {
	tm := c.TM10
	debug.DebugDevf(tm.devNum, tm.debugMsk, debugCmd, "CONO %06o", e)
	unit := int(e>>15) & 7
	fn := int(e>>9) & 0o17
	if (tm.mts & mtsJobDone) == 0 {
		return
	}
	tm.mtc = e
	tm.unit = unit
	drv := &tm.drive[unit]
	tm.mts = mtsReady
	switch {
	case drv.position == 0:
		tm.mts |= mtsLoadPoint
	case drv.lastLen == tape.MarkLen:
		tm.mts |= mtsEOF
	case drv.lastLen == tape.EOMLen:
		tm.mts |= mtsEOF | mtsEOT
	}

	switch fn {
	case fnNoop:
	case fnInterrupt:
		tm.complete()
	case fnRewind, fnUnload:
		drv.position = 0
		tm.mts = (tm.mts | mtsLoadPoint) &^ (mtsEOF | mtsEOT)
		tm.complete()
	case fnRead, fnReadMulti, fnReadCompare, fnCompareMulti:
		tm.chain.Start(tm.icwa)
		fallthrough
	case fnSpaceForward, fnFileForward:
		tm.function = fn
		tm.mts &^= mtsJobDone | mtsIdle | mtsNextUnit
		tm.readLength(drv.position)
	case fnSpaceReverse, fnFileReverse:
		if drv.position <= 0 {
			tm.complete()
			break
		}
		tm.function = fn
		tm.mts &^= mtsEOF | mtsEOT | mtsJobDone | mtsIdle | mtsNextUnit
		tm.readLength(drv.position - tape.HeaderLen)
	default:
		// Write functions, drives are locked.
		tm.mts |= mtsIllegal
		tm.complete()
	}
}

func (c *MTC) Coni() uint64 {
	return c.mtc
}

func (c *MTC) Datao(_ uint64) {
}

// DATAI returns buffer register.
func (c *MTC) Datai() uint64 {
	return c.TM10.takeBR()
}

// CONO clears buffer register.
func (s *MTS) Cono(e uint64) {
	if (e & mtsMoveBR) != 0 {
		s.br = 0
	}
}

func (s *MTS) Coni() uint64 {
	return s.mts
}

// DATAO loads control word address.
func (s *MTS) Datao(data uint64) {
	debug.DebugDevf(s.devNum+4, s.debugMsk, debugCmd, "DATAO %012o", data)
	s.icwa = data & 0o776
}

func (s *MTS) Datai() uint64 {
	return s.TM10.takeBR()
}

func (tm *TM10) takeBR() uint64 {
	br := tm.br
	if (tm.mts & mtsJobDone) != 0 {
		tm.br = 0
	}
	return br
}

// Image cache for drive, created on first use.
func (tm *TM10) cache(unit int) *blockio.Cache {
	drv := &tm.drive[unit]
	if drv.cache == nil {
		drv.cache = blockio.NewCache(fmt.Sprintf("mta%d.tap", unit), tm.fetch, tm.sys)
	}
	return drv.cache
}

// Read record length at pos.
func (tm *TM10) readLength(pos int64) {
	t := &blockio.Transfer{
		Op:       blockio.OpRecordLength,
		Position: pos,
		Count:    2,
		Done:     tm.lengthDone,
	}
	tm.cache(tm.unit).Start(t, false)
}

func (tm *TM10) reverse() bool {
	return tm.function == fnSpaceReverse || tm.function == fnFileReverse
}

// Record length read, carry on with function.
func (tm *TM10) lengthDone(t *blockio.Transfer, status blockio.Status) {
	if tm.failed(status) {
		tm.complete()
		return
	}
	drv := &tm.drive[tm.unit]
	drv.lastLen = t.RecordLen
	tm.mts &^= mtsLoadPoint | mtsEOF | mtsEOT
	hdr, err := tape.Decode(t.RecordLen)
	debug.DebugDevf(tm.devNum, tm.debugMsk, debugData, "record %d length %d", tm.unit, hdr.Length)

	if tm.reverse() {
		if err != nil {
			// Stop in front of mark.
			drv.position = t.Position - tape.HeaderLen
			tm.mts |= mtsEOF
			tm.complete()
			return
		}
		drv.position = t.Position - tape.RecordSize(hdr.Length)
		if drv.position <= 0 {
			drv.position = 0
			tm.mts |= mtsLoadPoint
			tm.complete()
			return
		}
		if tm.function == fnFileReverse {
			tm.readLength(drv.position - tape.HeaderLen)
			return
		}
		tm.complete()
		return
	}

	switch {
	case errors.Is(err, tape.TapeMARK):
		drv.position = t.Position
		tm.mts |= mtsEOF
		tm.complete()
		return
	case err != nil:
		// Stay at end of medium.
		drv.position = t.Position - tape.HeaderLen
		tm.mts |= mtsEOF | mtsEOT
		tm.complete()
		return
	}
	if hdr.Error {
		tm.mts |= mtsParity
	}
	drv.position = t.Position + int64(tape.Pad(hdr.Length)+tape.HeaderLen)
	tm.records++

	switch tm.function {
	case fnRead, fnReadMulti, fnReadCompare, fnCompareMulti:
		data := &blockio.Transfer{
			Op:       blockio.OpTapeRead,
			Position: t.Position,
			Count:    hdr.Length,
			Chain:    &tm.chain,
			Coredump: (tm.mtc & mtcCoreDump) != 0,
			Done:     tm.dataDone,
		}
		if tm.function == fnReadCompare || tm.function == fnCompareMulti {
			data.Op = blockio.OpTapeCompare
		}
		tm.cache(tm.unit).Start(data, false)
	case fnFileForward:
		tm.readLength(drv.position)
	default:
		tm.complete()
	}
}

// Record data moved.
func (tm *TM10) dataDone(t *blockio.Transfer, status blockio.Status) {
	tm.br = t.Partial()
	if tm.failed(status) {
		tm.complete()
		return
	}
	if t.Count < 0 {
		// Buffer ran out before record.
		tm.mts |= mtsRecLength
		tm.complete()
		return
	}
	tm.mts &^= mtsRecLength
	if tm.function == fnReadMulti || tm.function == fnCompareMulti {
		tm.readLength(tm.drive[tm.unit].position)
		return
	}
	tm.complete()
}

// Record transfer error. Returns true if any.
func (tm *TM10) failed(status blockio.Status) bool {
	switch status {
	case blockio.ReadError:
		tm.mts |= mtsParity
	case blockio.NXM:
		tm.mts |= mtsNXM
	case blockio.CompareError:
		tm.mts |= mtsCompare
	default:
		return false
	}
	return true
}

// Function done, post job done and store completion word.
func (tm *TM10) complete() {
	tm.mts |= mtsJobDone | mtsIdle | mtsNextUnit
	tm.sys.Irq.Interrupt(true, 0, tm.devNum, int(tm.mtc>>3)&7, nil, 0)
	tm.sys.Mem.PutWord(tm.icwa|1, tm.chain.CountWord())
}

// Enable debug options.
func (tm *TM10) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("MTC debug option invalid: " + opt)
	}
	tm.debugMsk |= flag
	return nil
}

// List of valid options.
func (tm *TM10) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "dir", OptionType: command.OptionFile, OptionValid: command.ValidAttach | command.ValidShow},
		{Name: "rewind", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
	}
}

// Attach image directory, all drives are rewound.
func (tm *TM10) Attach(options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name == "dir" && opt.EqualOpt != "" {
			tm.fetch.Dir = opt.EqualOpt
			for i := range tm.drive {
				tm.drive[i] = drive{}
			}
			return nil
		}
	}
	return errors.New("MTC attach requires dir=")
}

func (tm *TM10) Detach() error {
	for i := range tm.drive {
		tm.drive[i] = drive{}
	}
	return nil
}

// Set rewind moves all drives to load point.
func (tm *TM10) Set(_ bool, options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name != "rewind" {
			return errors.New("MTC invalid set option: " + opt.Name)
		}
		for i := range tm.drive {
			tm.drive[i].position = 0
		}
	}
	return nil
}

// Show command.
func (tm *TM10) Show(_ []*command.CmdOption) (string, error) {
	str := fmt.Sprintf("%03o: mtc=%06o mts=%012o unit=%d position=%d records=%d",
		tm.devNum, tm.mtc, tm.mts, tm.unit, tm.drive[tm.unit].position, tm.records)
	if tm.fetch.Dir != "" {
		str += " dir=" + tm.fetch.Dir
	}
	return str, nil
}

// register device on initialize.
func init() {
	config.RegisterModel("MTC", create)
}

// Create both halves of controller.
func create(devNum uint16, _ string, options []config.Option, sys *device.System) error {
	dir := ""
	for _, option := range options {
		switch strings.ToLower(option.Name) {
		case "dir":
			if option.EqualOpt == "" {
				return errors.New("MTC dir requires name")
			}
			dir = option.EqualOpt
		default:
			return errors.New("MTC invalid option: " + option.Name)
		}
	}
	tm := New(devNum, sys, dir)
	if err := sys.Bus.Add(devNum, "MTC", tm.Control()); err != nil {
		return err
	}
	return sys.Bus.Add(devNum+4, "MTS", tm.Status())
}
