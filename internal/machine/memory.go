// Package machine is the simulated uARM machine that the nucleus runs
// on: flat RAM, the device register bus, the TOD clock and interval
// timer, and the pending-interrupt bitmap. Decoding and executing
// uARM instructions is the job of the (out of scope) instruction
// simulator; this package only implements the device and clock
// primitives the nucleus calls through — setTIMER (Clock.SetTimer),
// HALT/PANIC, and device register access. It has no STST/LDST,
// getSTATUS/setSTATUS or TLBCLR, since no processor state is simulated.
/*
 * JAEOS  - Simulated machine memory
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
package machine

// PageSize is the granule of physical memory the VM subsystem maps
// and the backing store transfers in.
const PageSize = 4096

// WordLen is the size in bytes of a memory word.
const WordLen = 4

// Memory is flat word-addressed RAM, sized in pages at boot time.
type Memory struct {
	words []uint32
	size  uint32 // bytes
}

// NewMemory allocates RAM of the given size in bytes, rounded down to
// a whole number of words.
func NewMemory(sizeBytes uint32) *Memory {
	return &Memory{
		words: make([]uint32, sizeBytes/WordLen),
		size:  sizeBytes,
	}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 { return m.size }

// CheckAddr reports whether addr is a valid byte address in RAM.
func (m *Memory) CheckAddr(addr uint32) bool {
	return addr < m.size
}

// GetWord returns the word at addr. error is true if addr is out of
// range.
func (m *Memory) GetWord(addr uint32) (value uint32, err bool) {
	if !m.CheckAddr(addr) {
		return 0, true
	}
	return m.words[addr/WordLen], false
}

// PutWord stores data at addr. It returns true if addr is out of
// range.
func (m *Memory) PutWord(addr, data uint32) bool {
	if !m.CheckAddr(addr) {
		return true
	}
	m.words[addr/WordLen] = data
	return false
}

// GetPage copies PageSize/WordLen words starting at the page-aligned
// frame address into dst, for a backing-store write-back.
func (m *Memory) GetPage(frameAddr uint32, dst []uint32) {
	base := frameAddr / WordLen
	copy(dst, m.words[base:base+PageSize/WordLen])
}

// PutPage copies PageSize/WordLen words from src into the
// page-aligned frame address, for a backing-store read-in.
func (m *Memory) PutPage(frameAddr uint32, src []uint32) {
	base := frameAddr / WordLen
	copy(m.words[base:base+PageSize/WordLen], src)
}
