/*
 * KI10 - Device bus.
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

package device

import (
	"fmt"
	"slices"

	"github.com/rcornwell/KI10/emu/event"
	"github.com/rcornwell/KI10/emu/master"
	"github.com/rcornwell/KI10/emu/memory"
)

/*
   I/O instructions carry a seven bit device number. Devices are named
   by the octal value of that number shifted left two, so the console
   teletype at device 30 is written 120.
*/

const NoDev uint16 = 0xffff

// Standard device numbers.
const (
	APR uint16 = 0o000 // Arithmetic processor.
	PI  uint16 = 0o004 // Priority interrupt.
	PAG uint16 = 0o010 // Pager.
	PTP uint16 = 0o100 // Paper tape punch.
	PTR uint16 = 0o104 // Paper tape reader.
	CTY uint16 = 0o120 // Console teletype.
	LPT uint16 = 0o124 // Line printer.
	DPC uint16 = 0o250 // RP10 disk control.
	MTC uint16 = 0o340 // TM10B tape control.
	MTS uint16 = 0o344 // TM10B tape status.
)

// Device registers seen by the I/O instructions. CONO and the
// conditions field of CONSZ/CONSO use the effective address directly,
// DATAO is handed the word read from memory and DATAI returns the
// word to store.
type Device interface {
	Cono(e uint64)
	Coni() uint64
	Datao(data uint64)
	Datai() uint64
}

// Interrupter posts entries on the priority interrupt queue.
type Interrupter interface {
	Interrupt(clean bool, delay int, devNum uint16, priority int, cb event.Callback, iarg int)
}

// Pacer controls the instruction loop while block transfers run.
type Pacer interface {
	Pause()      // Hold instruction loop until Resume.
	Resume()     // Release loop.
	Limit(n int) // End current batch after at most n instructions.
}

// Debugger devices accept debug options.
type Debugger interface {
	Debug(opt string) error
}

// Shutdowner devices release host resources on exit.
type Shutdowner interface {
	Shutdown()
}

// System is handed to devices when they are created.
type System struct {
	Bus   *Bus
	Mem   *memory.Memory
	Irq   Interrupter
	Pacer Pacer
	Post  master.Poster

	Boot     uint64 // Start address given by BOOT.
	AutoBoot bool   // Start processor once configured.
	Switches uint64 // Console data switches.
}

type Bus struct {
	devs  [128]Device
	names [128]string
}

// Create empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Convert device number to bus slot.
func slot(devNum uint16) (int, error) {
	if devNum > 0o774 || (devNum&3) != 0 {
		return 0, fmt.Errorf("invalid device number: %03o", devNum)
	}
	return int(devNum >> 2), nil
}

// Add device at address.
func (bus *Bus) Add(devNum uint16, name string, dev Device) error {
	s, err := slot(devNum)
	if err != nil {
		return err
	}
	if bus.devs[s] != nil {
		return fmt.Errorf("device %03o already defined as %s", devNum, bus.names[s])
	}
	bus.devs[s] = dev
	bus.names[s] = name
	return nil
}

// Get device at address, nil if none.
func (bus *Bus) Get(devNum uint16) Device {
	s, err := slot(devNum)
	if err != nil {
		return nil
	}
	return bus.devs[s]
}

// Look up device from seven bit number in instruction.
func (bus *Bus) Code(code int) Device {
	return bus.devs[code&0o177]
}

// Name of device at address.
func (bus *Bus) Name(devNum uint16) string {
	s, err := slot(devNum)
	if err != nil {
		return ""
	}
	return bus.names[s]
}

// Find device by name.
func (bus *Bus) Find(name string) (uint16, Device) {
	for i, n := range bus.names {
		if n == name {
			return uint16(i << 2), bus.devs[i]
		}
	}
	return NoDev, nil
}

// List of defined device numbers in order.
func (bus *Bus) List() []uint16 {
	list := []uint16{}
	for i, dev := range bus.devs {
		if dev != nil {
			list = append(list, uint16(i<<2))
		}
	}
	slices.Sort(list)
	return list
}

// Shutdown all devices.
func (bus *Bus) Shutdown() {
	for _, dev := range bus.devs {
		if s, ok := dev.(Shutdowner); ok {
			s.Shutdown()
		}
	}
}
