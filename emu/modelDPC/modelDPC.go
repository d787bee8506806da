/*
 * KI10 - RP10 disk controller with RP03 drives.
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
   Disk controller at device 250 with four RP03 drives. Each drive is an
   image file named dpa<n>.dsk, sectors are 128 words stored as eight
   bytes per word. Transfers run through a list of control words whose
   address is given in the DATAO. The controller always runs in 22 bit
   mode.

   DATAO:
      0-2   function    3-5  drive      6-13  cylinder
      14-18 surface     19   cylinder 256     20-23 sector
      27-34 control word address (even)  or attentions to clear
*/

package modeldpc

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcornwell/KI10/command/command"
	config "github.com/rcornwell/KI10/config/configparser"
	"github.com/rcornwell/KI10/emu/blockio"
	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/master"
	"github.com/rcornwell/KI10/util/debug"
	"github.com/rcornwell/KI10/util/octal"
)

const (
	cylinders = 406
	surfaces  = 20
	sectors   = 10
	drives    = 4

	sectorBytes = 128 * 8
	seekTime    = 4 * time.Millisecond
	endDelay    = 40 // Checks from DATAO error to done.
	stopDelay   = 10 // Checks from CONO stop to done.
	doneDelay   = 50 // Checks from end of transfer to done.
)

// CONI bits.
const (
	coni22Bit     uint64 = 0o20000000 // Controller in 22 bit mode.
	coniParity    uint64 = 0o4000000  // Sector parity error.
	coniSearch    uint64 = 0o400000   // Search done.
	coniOverrun   uint64 = 0o200000
	coniSearchErr uint64 = 0o40000
	coniNXM       uint64 = 0o10000
	coniNotReady  uint64 = 0o2000
	coniIllWrite  uint64 = 0o1000
	coniIllDatao  uint64 = 0o400
	coniSectErr   uint64 = 0o200
	coniSurfErr   uint64 = 0o100
	coniCWWrite   uint64 = 0o40 // Control word written.
	coniBusy      uint64 = 0o20
	coniDone      uint64 = 0o10
	coniPI        uint64 = 0o7

	dataoClear uint64 = 0o17075740 // Flags every legal DATAO clears.
	startClear        = coniSearch | coniOverrun | coniSearchErr | coniNXM |
		coniIllWrite | coniIllDatao | coniSectErr | coniSurfErr
)

// DATAI bits.
const (
	dataiOnCyl     uint64 = 0o40000000
	dataiOnline    uint64 = 0o20000000
	dataiNoDrive   uint64 = 0o4000000
	dataiLockout   uint64 = 0o1000000
	dataiCyl256    uint64 = 0o4000
	dataiRP03      uint64 = 0o2000
	dataiAttention uint64 = 0o400 // Drive 0, drive n is shifted right n.
	dataiAttnMask  uint64 = 0o776
)

// DATAO functions.
const (
	opRead = iota
	opWrite
	opReadVerify
	opWriteHeader
	opSeek
	opClearAttention
	opNoop
	opRecalibrate
)

var opName = []string{"read", "write", "read verify", "write header", "seek", "clear", "noop", "recalibrate"}

const (
	// Debug options.
	debugCmd  = 1 << iota // Log CONO and DATAO.
	debugData             // Log transfer completion.
	debugDetail
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DATA":   debugData,
	"DETAIL": debugDetail,
}

type drive struct {
	cylinder int // Cylinder drive is on, -1 while seeking.
	sector   int
	cache    *blockio.Cache
}

type DPC struct {
	devNum    uint16
	sys       *device.System
	coni      uint64
	datai     uint64
	icwa      uint64
	chain     blockio.Chain
	selected  int // Drive selected by last DATAO.
	busyDrive int // Drive doing transfer.
	drive     [drives]drive
	fetch     *blockio.FileFetcher
	transfers int
	debugMsk  int
}

// Create controller with images in directory dir.
func New(devNum uint16, sys *device.System, dir string) *DPC {
	dpc := &DPC{
		devNum: devNum,
		sys:    sys,
		coni:   coni22Bit,
		datai:  dataiOnline | dataiLockout | dataiRP03,
		chain:  blockio.Chain{In22Bit: true},
		fetch:  &blockio.FileFetcher{Dir: dir},
	}
	return dpc
}

func (dpc *DPC) Cono(e uint64) {
	debug.DebugDevf(dpc.devNum, dpc.debugMsk, debugCmd, "CONO %06o", e)
	dpc.coni &^= e & (coniSearchErr | coniNXM | coniIllWrite | coniIllDatao | coniSectErr | coniSurfErr)
	dpc.coni = (dpc.coni &^ coniPI) | (e & coniPI)
	if (e & coniCWWrite) != 0 {
		dpc.writeCompletion()
		dpc.coni |= coniCWWrite
	}
	if (e & coniBusy) != 0 {
		dpc.coni = (dpc.coni &^ coniBusy) | coniDone
		dpc.sys.Irq.Interrupt(true, stopDelay, dpc.devNum, dpc.pi(), nil, 0)
	}
	if (e & coniDone) != 0 {
		dpc.coni &^= coniDone
	}
}

func (dpc *DPC) Coni() uint64 {
	return dpc.coni
}

// DATAI returns status of selected drive.
func (dpc *DPC) Datai() uint64 {
	dpc.datai &= dataiAttnMask
	sel := uint64(dpc.selected) << 33
	if dpc.selected >= drives {
		dpc.datai |= dataiNoDrive
		return sel | dpc.datai
	}
	dpc.datai |= dataiOnline | dataiLockout | dataiRP03
	drv := &dpc.drive[dpc.selected]
	if drv.cylinder < 0 {
		return sel | dpc.datai
	}
	dpc.datai |= dataiOnCyl
	if drv.cylinder >= 256 {
		dpc.datai |= dataiCyl256
	}
	dpc.datai |= uint64(drv.sector) << 13
	return sel | (uint64(drv.cylinder&0o377) << 25) | dpc.datai
}

// DATAO starts a seek or transfer.
func (dpc *DPC) Datao(data uint64) {
	if (dpc.coni & coniBusy) != 0 {
		dpc.coni |= coniIllDatao
		return
	}
	dpc.coni &^= dataoClear
	unit := int(data>>30) & 7
	dpc.selected = unit
	if unit >= drives {
		return
	}
	drv := &dpc.drive[unit]
	if drv.cylinder < 0 {
		dpc.coni |= coniNotReady
		dpc.endLater()
		return
	}
	dpc.coni &^= coniNotReady

	op := int(data>>33) & 7
	debug.DebugDevf(dpc.devNum, dpc.debugMsk, debugCmd, "DATAO %012o %s drive %d", data, opName[op], unit)
	if op != opClearAttention && op != opNoop {
		dpc.coni &^= coniDone | startClear
	}
	cyl := 0
	if op < opClearAttention {
		cyl = int(data>>22) & 0o377
		if (data & 0o200000) != 0 {
			cyl += 256
		}
		if cyl >= cylinders {
			dpc.datai &^= dataiOnCyl
			dpc.fault(coniSearchErr)
			return
		}
	}
	surf, sect := 0, 0
	if op < opSeek {
		surf = int(data>>17) & 0o37
		if surf >= surfaces {
			dpc.fault(coniSurfErr)
			return
		}
		sect = int(data>>12) & 0o17
		if sect >= sectors {
			dpc.fault(coniSectErr)
			return
		}
		drv.sector = sect
		if cyl != drv.cylinder {
			dpc.fault(coniSearchErr)
			return
		}
	}

	switch op {
	case opRead, opWrite:
		block := int64((cyl*surfaces+surf)*sectors + sect)
		dpc.icwa = data & 0o776
		dpc.chain.Start(dpc.icwa)
		dpc.coni = (dpc.coni | coniBusy) &^ coniDone
		dpc.busyDrive = unit
		dpc.transfers++
		t := &blockio.Transfer{
			Op:       blockio.OpRead,
			Position: block * sectorBytes,
			Count:    128000,
			Chain:    &dpc.chain,
			Done:     dpc.end,
		}
		if op == opWrite {
			t.Op = blockio.OpWrite
		}
		dpc.cache(unit).Start(t, true)
	case opRecalibrate, opSeek:
		if op == opRecalibrate {
			cyl = 0
		}
		dpc.coni |= coniNotReady
		drv.cylinder = -1
		drv.sector = 0
		dpc.seekLater(unit, cyl)
	case opClearAttention:
		dpc.datai &^= data & dataiAttnMask
	case opReadVerify, opWriteHeader:
		dpc.endLater()
	}
}

func (dpc *DPC) pi() int {
	return int(dpc.coni & coniPI)
}

// Image cache for drive, created on first use.
func (dpc *DPC) cache(unit int) *blockio.Cache {
	drv := &dpc.drive[unit]
	if drv.cache == nil {
		drv.cache = blockio.NewCache(fmt.Sprintf("dpa%d.dsk", unit), dpc.fetch, dpc.sys)
	}
	return drv.cache
}

// Flag a DATAO error, done follows shortly.
func (dpc *DPC) fault(flag uint64) {
	dpc.coni = (dpc.coni | flag) &^ coniDone
	dpc.endLater()
}

func (dpc *DPC) endLater() {
	dpc.sys.Irq.Interrupt(false, 1, dpc.devNum, 0, dpc.dataoEnd, 0)
}

func (dpc *DPC) dataoEnd(_ int) int {
	if (dpc.coni & coniDone) == 0 {
		dpc.coni |= coniDone
		dpc.sys.Irq.Interrupt(true, endDelay, dpc.devNum, dpc.pi(), nil, 0)
	}
	return 0
}

// Finish seek after drive has moved. Seek end waits while the
// controller is busy.
func (dpc *DPC) seekLater(unit, cyl int) {
	time.AfterFunc(seekTime, func() {
		dpc.sys.Post.Post(master.Packet{Msg: master.Run, Fn: func() {
			dpc.seekDone(unit, cyl)
		}})
	})
}

func (dpc *DPC) seekDone(unit, cyl int) {
	if (dpc.coni & coniBusy) != 0 {
		dpc.seekLater(unit, cyl)
		return
	}
	dpc.drive[unit].cylinder = cyl
	dpc.datai |= dataiAttention >> unit
	if unit == dpc.selected {
		dpc.coni &^= coniNotReady
	}
	dpc.coni |= coniDone
	dpc.sys.Irq.Interrupt(true, 0, dpc.devNum, dpc.pi(), nil, 0)
}

// Transfer finished.
func (dpc *DPC) end(t *blockio.Transfer, status blockio.Status) {
	debug.DebugDevf(dpc.devNum, dpc.debugMsk, debugData, "end status %d position %d addr %o", status, t.Position, t.Addr)
	switch status {
	case blockio.ReadError, blockio.CompareError:
		dpc.coni |= coniParity
	case blockio.NXM:
		dpc.coni |= coniNXM
	}
	if (dpc.coni & coniBusy) == 0 {
		return
	}
	dpc.coni |= coniSearch
	dpc.sys.Irq.Interrupt(true, doneDelay, dpc.devNum, dpc.pi(), dpc.complete, 0)
}

func (dpc *DPC) complete(_ int) int {
	dpc.writeCompletion()
	dpc.coni = (dpc.coni | coniSearch | coniDone) &^ coniBusy
	return dpc.pi()
}

func (dpc *DPC) writeCompletion() {
	w := dpc.chain.Completion()
	if (dpc.debugMsk & debugDetail) != 0 {
		debug.DebugDevf(dpc.devNum, dpc.debugMsk, debugDetail, "completion %s at %o", octal.Halves(w), dpc.icwa|1)
	}
	dpc.sys.Mem.PutWord(dpc.icwa|1, w)
}

// Enable debug options.
func (dpc *DPC) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("DPC debug option invalid: " + opt)
	}
	dpc.debugMsk |= flag
	return nil
}

// Write back disk images.
func (dpc *DPC) Flush() error {
	for i := range dpc.drive {
		if c := dpc.drive[i].cache; c != nil {
			if err := c.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (dpc *DPC) Shutdown() {
	if err := dpc.Flush(); err != nil {
		slog.Error("DPC image write failed", "error", err)
	}
}

// List of valid options.
func (dpc *DPC) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "dir", OptionType: command.OptionFile, OptionValid: command.ValidAttach | command.ValidShow},
		{Name: "pi", OptionType: command.OptionNumber, OptionValid: command.ValidSet},
	}
}

// Attach image directory. Images already read stay cached.
func (dpc *DPC) Attach(options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name == "dir" && opt.EqualOpt != "" {
			if err := dpc.Flush(); err != nil {
				return err
			}
			dpc.fetch.Dir = opt.EqualOpt
			for i := range dpc.drive {
				dpc.drive[i].cache = nil
			}
			return nil
		}
	}
	return errors.New("DPC attach requires dir=")
}

// Detach writes images back.
func (dpc *DPC) Detach() error {
	return dpc.Flush()
}

// Set command.
func (dpc *DPC) Set(_ bool, options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name != "pi" {
			return errors.New("DPC invalid set option: " + opt.Name)
		}
		dpc.coni = (dpc.coni &^ coniPI) | (uint64(opt.Value) & coniPI)
	}
	return nil
}

// Show command.
func (dpc *DPC) Show(_ []*command.CmdOption) (string, error) {
	str := fmt.Sprintf("%03o: coni=%012o datai=%012o transfers=%d", dpc.devNum, dpc.coni, dpc.datai, dpc.transfers)
	if dpc.fetch.Dir != "" {
		str += " dir=" + dpc.fetch.Dir
	}
	return str, nil
}

// register device on initialize.
func init() {
	config.RegisterModel("DPC", create)
}

// Create a device.
func create(devNum uint16, _ string, options []config.Option, sys *device.System) error {
	dir := ""
	for _, option := range options {
		switch strings.ToLower(option.Name) {
		case "dir":
			if option.EqualOpt == "" {
				return errors.New("DPC dir requires name")
			}
			dir = option.EqualOpt
		default:
			return errors.New("DPC invalid option: " + option.Name)
		}
	}
	return sys.Bus.Add(devNum, "DPC", New(devNum, sys, dir))
}
