/*
 * KI10 - Processor definitions.
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

package cpu

// Bit n of a word, bits are numbered from the left.
const (
	BIT0  uint64 = 1 << 35
	BIT8  uint64 = 1 << 27
	BIT9  uint64 = 1 << 26
	BIT12 uint64 = 1 << 23
	BIT17 uint64 = 1 << 18
	BIT18 uint64 = 1 << 17
	BIT19 uint64 = 1 << 16
	BIT20 uint64 = 1 << 15
	BIT21 uint64 = 1 << 14
	BIT22 uint64 = 1 << 13
	BIT23 uint64 = 1 << 12
	BIT24 uint64 = 1 << 11
	BIT25 uint64 = 1 << 10
	BIT26 uint64 = 1 << 9
	BIT27 uint64 = 1 << 8
	BIT28 uint64 = 1 << 7
	BIT29 uint64 = 1 << 6
	BIT30 uint64 = 1 << 5
)

// Processor flags, held as the left half of the PC word.
const (
	flagAOV uint64 = 0o400000 // Arithmetic overflow
	flagC0  uint64 = 0o200000 // Carry out of bit 0
	flagC1  uint64 = 0o100000 // Carry out of bit 1
	flagFOV uint64 = 0o040000 // Floating overflow
	flagFPD uint64 = 0o020000 // First part done
	flagUSR uint64 = 0o010000 // User mode
	flagIOT uint64 = 0o004000 // User I/O, previous context user under PXCT
	flagPUB uint64 = 0o002000 // Public mode
	flagAFI uint64 = 0o001000 // Address failure inhibit
	flagTR2 uint64 = 0o000400 // Trap 2, pushdown overflow
	flagTR1 uint64 = 0o000200 // Trap 1, arithmetic overflow
	flagFXU uint64 = 0o000100 // Floating underflow
	flagDCX uint64 = 0o000040 // No divide
	flagTR3        = flagTR1 | flagTR2
)

// Memory access types.
const (
	accessReadPXCT  = 1  // Read from previous context
	accessWritePXCT = 2  // Write to previous context
	accessPXCT      = 3  // Either
	accessRead      = 16 // Read
	accessWrite     = 32 // Write
	accessExecute   = 64 // Instruction fetch
	accessModify    = accessRead | accessWrite
)

// Where the last read for modify came from.
const (
	modifyAC     = iota // Current accumulator block
	modifyMemory        // Physical memory
	modifyAltAC         // Previous context accumulator block
	modifyStack         // Executive stack in user process table
)

// Process table locations.
const (
	luuoStore      uint64 = 0o040    // Local UUO stored here
	luuoInst       uint64 = 0o041    // Local UUO handler
	piVector       uint64 = 0o040    // Interrupt instruction pairs
	trapInst       uint64 = 0o420    // Trap instructions 421-423
	muuoStore      uint64 = 0o424    // MUUO instruction
	muuoPC         uint64 = 0o425    // MUUO PC word
	execPageFail   uint64 = 0o426    // Executive page fail word
	userPageFail   uint64 = 0o427    // User page fail word
	muuoNewPC      uint64 = 0o430    // MUUO new PC words 430-437
	execPerUser    uint64 = 0o220    // Executive pages 340-377 map from user table
	maxIndirect           = 1024     // Indirection limit
	pageFailPublic        = 0o21     // Proprietary violation
	pageFailSmall         = 0o20     // Small user violation
	portalInst     uint64 = 0o254040 // JRST 1, left half
	portalMask     uint64 = 0o777040
)

// I/O instruction function codes.
const (
	ioBLKI = iota
	ioDATAI
	ioBLKO
	ioDATAO
	ioCONO
	ioCONI
	ioCONSZ
	ioCONSO
)

// Information about the instruction being executed.
type stepInfo struct {
	inst   uint64 // Instruction word
	opcode uint32 // Operation code, 9 bits
	ac     uint64 // Accumulator field
	ea     uint64 // Effective address
	eaWord uint64 // Final word of address calculation, left half gives JRST flags
	trap   bool   // Executing a trap or interrupt instruction
}

// Operation handler, aborts by returning after a page fail or trap.
type opFunc func(*stepInfo)
