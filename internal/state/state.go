// Package state defines the saved processor context that the nucleus
// swaps in and out of the simulated CPU on every context switch, trap,
// and interrupt.
/*
 * JAEOS  - Processor state
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
package state

// RegCount is the number of general/special registers saved in a
// processor state vector.
const RegCount = 22

// Register indices within State.Reg, matching the uARM state vector
// layout used by the boot ROM and trap vectors.
const (
	A1 = iota
	A2
	A3
	A4
	V1
	V2
	V3
	V4
	V5
	V6
	SL
	FP
	IP
	SP
	LR
	PC
	CPSR
	CP15Control
	CP15EntryHi
	CP15Cause
	TODHi
	TODLo
)

// State is a snapshot of the simulated CPU's registers, saved into a
// process's PCB on every trap or interrupt and restored on dispatch.
type State struct {
	Reg [RegCount]int32
}

// Copy replaces the receiver's contents with src's, the same way the
// nucleus moves a trapped state vector into a PCB before resuming the
// scheduler.
func (s *State) Copy(src *State) {
	*s = *src
}

// PC returns the saved program counter.
func (s *State) PC() int32 { return s.Reg[PC] }

// SetPC sets the saved program counter.
func (s *State) SetPC(v int32) { s.Reg[PC] = v }

// SP returns the saved stack pointer.
func (s *State) SP() int32 { return s.Reg[SP] }

// SetSP sets the saved stack pointer.
func (s *State) SetSP(v int32) { s.Reg[SP] = v }

// A1 returns the first argument/return register, the uARM calling
// convention's syscall result slot.
func (s *State) A1() int32 { return s.Reg[A1] }

// SetA1 sets the first argument/return register.
func (s *State) SetA1(v int32) { s.Reg[A1] = v }
