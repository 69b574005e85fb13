// Package nucleus implements the JAEOS Phase 2 nucleus: the
// scheduler and the exception and interrupt dispatchers. NewKernel
// wires a fresh Kernel up; the caller creates the first process and
// calls GetNewJob to hand it control.
//
// All of the nucleus's shared mutable state — the current process,
// the ready queue, the device semaphore array, the soft-block and
// process counts, the pseudo-clock bookkeeping — lives in one Kernel
// value rather than package-level globals, so a test can stand up as
// many independent kernels as it needs.
/*
 * JAEOS  - Nucleus kernel state
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
package nucleus

import (
	"github.com/jwagner/jaeos/internal/asl"
	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/pcb"
)

// Quantum is the number of ticks a process runs before its timeslice
// expires.
const Quantum = 5000

// IntervalTime is the number of ticks between pseudo-clock ticks that
// release every process waiting on the clock semaphore.
const IntervalTime = 100000

// Device semaphore array layout, matching original_source/h/const.h's
// PRINT0DEV/TERM0DEV/TERMREADSEM/TERMWRITESEM/CLCKTIMER.
const (
	DiskBase     = 0
	TapeBase     = DiskBase + machine.DevPerInt
	NetworkBase  = TapeBase + machine.DevPerInt
	PrinterBase  = NetworkBase + machine.DevPerInt
	TermReadBase = PrinterBase + machine.DevPerInt
	TermWriteBase = TermReadBase + machine.DevPerInt
	ClockTimer   = TermWriteBase + machine.DevPerInt
	MaxSemA      = ClockTimer + 1
)

// lineBase maps a machine interrupt line to its semaphore array base.
func lineBase(line int) int {
	switch line {
	case machine.LineDisk:
		return DiskBase
	case machine.LineTape:
		return TapeBase
	case machine.LineNetwork:
		return NetworkBase
	case machine.LinePrinter:
		return PrinterBase
	case machine.LineTerminal:
		return TermReadBase
	}
	return -1
}

// semKey maps a device semaphore array index to its ASL key. Device
// semaphore keys are encoded as integers no greater than -2 so they can
// never collide with a user semaphore's address, which PASSEREN/VERHOGEN
// treat as a plain non-negative offset into simulated memory, nor with
// pcb.None (-1), which a PCB's SemAdd holds while it is not blocked.
func semKey(index int) int {
	return -(index + 2)
}

// Kernel is the nucleus's complete mutable state, the Go analog of
// the original's currentProcess/readyQueue/semaphoreArray/devStatus/
// softBlockCount/processCount/timeLeft/startTOD globals.
type Kernel struct {
	Mach *machine.Machine

	Procs *pcb.Pool
	ASL   *asl.List

	Current   int
	readyTail int

	SemArray  [MaxSemA]int32
	DevStatus [MaxSemA]uint32

	SoftBlockCount int
	ProcessCount   int

	TimeLeft    int64
	StartTOD    int64
	QuantumFlag bool
}

// NewKernel wires a fresh nucleus around an already-constructed
// machine. The first pseudo-clock tick falls IntervalTime ticks after
// boot.
func NewKernel(m *machine.Machine) *Kernel {
	return &Kernel{
		Mach:      m,
		Procs:     pcb.NewPool(),
		ASL:       asl.NewList(),
		Current:   pcb.None,
		readyTail: pcb.MkEmptyQ(),
		TimeLeft:  IntervalTime,
	}
}
