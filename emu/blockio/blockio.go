/*
 * KI10 - Block transfer cache.
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

// Package blockio moves data between memory and disk or tape images.
// Images are read in 1 MiB blocks on demand and kept for the life of the
// unit. A transfer that reaches a block not yet present issues a single
// fetch and returns. The fetch result is delivered back on the core
// goroutine and the transfer carries on from where it stopped.
package blockio

import (
	"log/slog"
	"time"

	"github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/master"
	"github.com/rcornwell/KI10/emu/word"
)

const BlockSize = 1024 * 1024

// Transfer operations.
type Op int

const (
	OpRecordLength Op = iota // Read tape record length, two bytes per count.
	OpWrite                  // Write memory words to disk image.
	OpRead                   // Read disk image to memory.
	OpCompare                // Compare disk image with memory.
	OpTapeRead               // Read tape bytes to memory.
	OpTapeCompare            // Compare tape bytes with memory.
)

// Completion status handed to controller.
type Status int

const (
	OK Status = iota
	ReadError
	NXM
	CompareError
)

var opName = map[Op]string{
	OpRecordLength: "length",
	OpWrite:        "write",
	OpRead:         "read",
	OpCompare:      "compare",
	OpTapeRead:     "tape read",
	OpTapeCompare:  "tape compare",
}

// Fetcher reads part of an image. Reads past the end return what is
// there, possibly nothing.
type Fetcher interface {
	Fetch(unit string, offset int64, length int) ([]byte, error)
}

// Storer writes back modified blocks.
type Storer interface {
	Store(unit string, offset int64, data []byte) error
}

// Transfer in progress. Position, Count and Addr advance as the
// transfer runs and hold their final values when Done is called.
type Transfer struct {
	Op        Op
	Position  int64  // Byte position in image.
	Count     int    // Bytes left for tape, anything positive for disk.
	Addr      uint64 // Last buffer address used.
	Chain     *Chain // Control word chain for buffers.
	Coredump  bool   // Five bytes per tape word.
	RecordLen uint32 // Tape record length read by OpRecordLength.
	Done      func(t *Transfer, status Status)

	partialByte int    // Bytes of current tape word collected.
	partialData uint64 // Current tape word.
}

// Partial tape word in assembly.
func (t *Transfer) Partial() uint64 {
	return t.partialData & word.Mask
}

// Cache holds blocks of one image.
type Cache struct {
	Name    string
	Fetches int // Number of fetches issued.
	blocks  map[int64][]byte
	dirty   map[int64]bool
	fetch   Fetcher
	sys     *device.System
	pending *Transfer
}

// Create a cache for image name.
func NewCache(name string, fetch Fetcher, sys *device.System) *Cache {
	return &Cache{
		Name:   name,
		blocks: map[int64][]byte{},
		dirty:  map[int64]bool{},
		fetch:  fetch,
		sys:    sys,
	}
}

// Pending returns true while waiting on a fetch.
func (c *Cache) Pending() bool {
	return c.pending != nil
}

// Start a transfer. With delay set the instruction loop is held until
// the transfer finishes and a few instructions run before any data
// moves. Returns true if transfer was suspended.
func (c *Cache) Start(t *Transfer, delay bool) bool {
	if delay && c.sys.Pacer != nil {
		c.sys.Pacer.Pause()
	}
	return c.run(t, delay)
}

// Deliver result of fetch for block and resume the pending transfer.
func (c *Cache) Deliver(block int64, data []byte, err error) {
	t := c.pending
	c.pending = nil
	if err != nil {
		slog.Error("fetch failed", "unit", c.Name, "error", err)
		if t != nil {
			c.finish(t, ReadError)
		}
		return
	}
	c.fill(block, data)
	if t != nil {
		c.run(t, false)
	}
}

// Place fetched data in cache. Short data is zero padded, the data may
// cover more than one block.
func (c *Cache) fill(block int64, data []byte) {
	for {
		if _, ok := c.blocks[block]; !ok {
			buf := make([]byte, BlockSize)
			copy(buf, data)
			c.blocks[block] = buf
		}
		if len(data) <= BlockSize {
			return
		}
		data = data[BlockSize:]
		block++
	}
}

// Issue fetch for block, result is posted to core.
func (c *Cache) request(block int64, t *Transfer) {
	c.pending = t
	c.Fetches++
	go func() {
		data, err := c.fetch.Fetch(c.Name, block*BlockSize, BlockSize)
		c.sys.Post.Post(master.Packet{Msg: master.Run, Fn: func() {
			c.Deliver(block, data, err)
		}})
	}()
}

// Finish transfer and release loop.
func (c *Cache) finish(t *Transfer, status Status) {
	if t.Done != nil {
		t.Done(t, status)
	}
	if c.sys.Pacer != nil {
		c.sys.Pacer.Resume()
	}
}

// Move data until done or a block is missing.
func (c *Cache) run(t *Transfer, delay bool) bool {
	mem := c.sys.Mem
	block := t.Position / BlockSize
	offset := int(t.Position % BlockSize)

	for t.Count > 0 {
		buf, ok := c.blocks[block]
		if !ok {
			t.Position = block*BlockSize + int64(offset)
			c.request(block, t)
			return true
		}
		if delay {
			t.Position = block*BlockSize + int64(offset)
			c.pending = t
			if c.sys.Pacer != nil {
				c.sys.Pacer.Limit(32)
			}
			time.AfterFunc(time.Millisecond, func() {
				c.sys.Post.Post(master.Packet{Msg: master.Run, Fn: func() {
					c.pending = nil
					c.run(t, false)
				}})
			})
			return true
		}

	inner:
		for t.Count > 0 && offset < BlockSize {
			switch t.Op {
			case OpRecordLength:
				data := uint32(buf[offset+1])<<8 | uint32(buf[offset])
				if t.Count > 1 {
					t.RecordLen = data
					t.Count = 1
				} else {
					t.RecordLen |= data << 16
					t.Count = 0
				}
				offset += 2

			case OpWrite, OpCompare:
				addr, ok := t.Chain.Next(mem)
				if !ok {
					t.Count = -1
					break inner
				}
				t.Addr = addr
				data, nxm := mem.GetWord(addr)
				if nxm {
					t.Position = block*BlockSize + int64(offset)
					c.finish(t, NXM)
					return false
				}
				for i := range 8 {
					if t.Op == OpWrite {
						buf[offset+i] = byte(data & 0xff)
						c.dirty[block] = true
					} else if byte(data&0xff) != buf[offset+i] {
						t.Position = block*BlockSize + int64(offset)
						c.finish(t, CompareError)
						return false
					}
					data >>= 8
				}
				offset += 8

			case OpRead:
				addr, ok := t.Chain.Next(mem)
				if !ok {
					t.Count = -1
					break inner
				}
				t.Addr = addr
				data := uint64(0)
				for i := 4; i >= 0; i-- {
					data = (data << 8) | uint64(buf[offset+i])
				}
				if mem.PutWord(addr, data&word.Mask) {
					t.Position = block*BlockSize + int64(offset)
					c.finish(t, NXM)
					return false
				}
				offset += 8

			case OpTapeRead, OpTapeCompare:
				var data uint64
				i := t.partialByte
				if i != 0 {
					data = t.partialData
				} else {
					addr, ok := t.Chain.Next(mem)
					if !ok {
						t.Count = -1
						break inner
					}
					t.Addr = addr
				}
				for i < 4 {
					if t.Count > 0 {
						if offset >= BlockSize {
							break
						}
						data = (data << 8) | uint64(buf[offset])
						offset++
						t.Count--
					} else {
						data <<= 8
					}
					i++
				}
				if i < 4 {
					t.partialByte = i
					t.partialData = data
					break
				}
				if t.Coredump && t.Count > 0 {
					if offset >= BlockSize {
						t.partialByte = 4
						t.partialData = data
						break inner
					}
					data = (data << 4) | uint64(buf[offset]&0xf)
					offset++
					t.Count--
				} else {
					data <<= 4
				}
				t.partialData = data
				if t.Op == OpTapeRead {
					if t.Addr > 0 && mem.PutWord(t.Addr, data) {
						t.Position = block*BlockSize + int64(offset)
						c.finish(t, NXM)
						return false
					}
				} else {
					m, nxm := mem.GetWord(t.Addr)
					if nxm {
						t.Position = block*BlockSize + int64(offset)
						c.finish(t, NXM)
						return false
					}
					if m != data {
						t.Position = block*BlockSize + int64(offset)
						c.finish(t, CompareError)
						return false
					}
				}
				t.partialByte = 0
			}
		}
		if t.Count > 0 {
			block++
			offset = 0
		}
	}
	t.Position = block*BlockSize + int64(offset)
	slog.Debug("transfer done", "unit", c.Name, "op", opName[t.Op], "position", t.Position)
	c.finish(t, OK)
	return false
}

// Flush modified blocks back to image.
func (c *Cache) Flush() error {
	st, ok := c.fetch.(Storer)
	if !ok {
		return nil
	}
	for block := range c.dirty {
		if err := st.Store(c.Name, block*BlockSize, c.blocks[block]); err != nil {
			return err
		}
		delete(c.dirty, block)
	}
	return nil
}
