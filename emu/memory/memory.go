/*
 * KI10 - Low level memory
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

package memory

import (
	"fmt"

	"github.com/rcornwell/KI10/emu/word"
)

const (
	MaxSize uint64 = 1 << 22    // Physical address space in words
	AMASK   uint64 = 0o17777777 // Mask address bits
)

// Memory is the physical store of the machine. Only the configured size
// is backed. The processor sees words beyond it as zero and its stores
// there are dropped, I/O transfers see them as non existent memory.
type Memory struct {
	mem []uint64
}

// New creates memory of k * 1024 words.
func New(k int) *Memory {
	m := &Memory{}
	m.SetSize(k)
	return m
}

// Set size in K words. Contents below the new size are kept.
func (m *Memory) SetSize(k int) {
	k = max(k, 0)
	k = min(k, 4*1024)
	size := uint64(k) * 1024
	if size == uint64(len(m.mem)) {
		return
	}
	mem := make([]uint64, size)
	copy(mem, m.mem)
	m.mem = mem
}

// Return size of memory in words.
func (m *Memory) GetSize() uint64 {
	return uint64(len(m.mem))
}

// Read a physical word. Addresses outside the physical space are an
// emulator fault.
func (m *Memory) Read(addr uint64) uint64 {
	if addr >= MaxSize {
		panic(fmt.Sprintf("physical read outside memory %o", addr))
	}
	if addr >= uint64(len(m.mem)) {
		return 0
	}
	return m.mem[addr]
}

// Write a physical word.
func (m *Memory) Write(addr, data uint64) {
	if addr >= MaxSize {
		panic(fmt.Sprintf("physical write outside memory %o", addr))
	}
	if data > word.Mask {
		panic(fmt.Sprintf("word out of range %o at %o", data, addr))
	}
	if addr < uint64(len(m.mem)) {
		m.mem[addr] = data
	}
}

// Check if address is existent memory.
func (m *Memory) CheckAddr(addr uint64) bool {
	return addr < uint64(len(m.mem))
}

// Get a word from memory for a transfer, error set if non existent memory.
func (m *Memory) GetWord(addr uint64) (value uint64, error bool) {
	if addr >= uint64(len(m.mem)) {
		return 0, true
	}
	return m.mem[addr], false
}

// Put a word to memory for a transfer, returns true if non existent memory.
func (m *Memory) PutWord(addr, data uint64) bool {
	if addr >= uint64(len(m.mem)) {
		return true
	}
	m.mem[addr] = data & word.Mask
	return false
}
