// Package usyscall implements user syscalls 9 through 18: terminal
// I/O, virtual semaphores, process delay, disk I/O, printer output,
// time-of-day, and virtual process termination. These sit above the
// nucleus the way vmIOsupport.c's vmSysHandler sits above
// exceptions.c: the nucleus never sees syscall numbers past 8, and
// dispatches everything else here as a single pass-up-or-die trap.
/*
 * JAEOS  - User syscalls 9-18
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
package usyscall

import (
	"github.com/jwagner/jaeos/internal/adl"
	"github.com/jwagner/jaeos/internal/avsl"
	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/state"
	"github.com/jwagner/jaeos/internal/vm"
)

// Syscall numbers 9-18, matching const.h's READTERMINAL..VMTERMINATE.
const (
	ReadTerminal = 9 + iota
	WriteTerminal
	VSemVirt
	PSemVirt
	Delay
	DiskPut
	DiskGet
	WritePrinter
	GetTOD
	VMTerminate
)

// TimeScale converts a DELAY argument (seconds) into ticks, matching
// const.h's TIMESCALE.
const TimeScale = 1000000

// maxSpinTicks bounds how long a single device wait spins the
// simulated clock forward before giving up. There is no process-level
// pass-up-or-die path above this layer (syscalls 9-18 are always the
// program's own responsibility per const.h), so a device that never
// completes is a simulation bug, not a user error, and is reported the
// same way a deadlocked nucleus is: machine.Panic.
const maxSpinTicks = 1 << 20

// procInfo is the per-user-process bookkeeping the original kept in
// uProcs[procID-1]: its virtual semaphore word address (Tp_sem) and
// the mutex semaphore addresses guarding its private terminal,
// printer, and disk units.
type procInfo struct {
	vSemAddr       int32
	termReadMutex  int32
	termWriteMutex int32
	printerMutex   int32
}

// Kernel wires syscalls 9-18 to a running nucleus kernel, the VM fault
// handler, and the virtual semaphore/delay lists.
//
// Device I/O (ReadTerminal, WriteTerminal, DiskPut, DiskGet,
// WritePrinter) is implemented by spinning the simulated machine
// forward tick-by-tick, polling attached terminals and servicing
// interrupts, until the specific device completion being waited on
// arrives — then making exactly one nucleus.Kernel.WaitForIO call,
// which at that point is guaranteed not to block. This stands in for
// the original's reliance on a real hardware LDST to transparently
// suspend and resume vmSysHandler's call stack mid-syscall: JAEOS has
// no per-process goroutine to park the way a real CPU parks a blocked
// process's saved context, so each of these syscalls is modeled as a
// single atomic call that runs the simulated clock forward by
// whatever it takes, rather than yielding the CPU to another process.
// This is a deliberate simplification for a single synthetic test
// harness, not a multi-process round-robin I/O scheduler.
//
// Because awaitCompletion drives the machine's clock directly, a
// Kernel must not be driven by nucleus.Loop concurrently with an
// in-flight syscall on the same underlying nucleus.Kernel — exactly
// one goroutine may advance the simulated clock at a time, the same
// constraint the original's single physical CPU enforced for free.
type Kernel struct {
	Nucleus *nucleus.Kernel
	VM      *vm.Handler
	AVSL    *avsl.List
	Delays  *adl.List

	MasterSemAddr int32

	terminals []*machine.Terminal
	procs     [vm.MaxUserProc]procInfo
}

// NewKernel wires a usyscall layer around an already-running nucleus
// kernel and VM fault handler.
func NewKernel(nk *nucleus.Kernel, vmh *vm.Handler, masterSemAddr int32) *Kernel {
	return &Kernel{
		Nucleus:       nk,
		VM:            vmh,
		AVSL:          avsl.NewList(),
		Delays:        adl.NewList(),
		MasterSemAddr: masterSemAddr,
	}
}

// RegisterTerminal attaches a terminal this kernel must poll while
// spinning for device completions, mirroring loop.go's own Terminals
// slice.
func (k *Kernel) RegisterTerminal(t *machine.Terminal) {
	k.terminals = append(k.terminals, t)
}

// Register installs the per-process semaphore/mutex bookkeeping for a
// freshly spawned user process. procID is 1-based, matching the
// original's uProcs[procID-1] indexing.
func (k *Kernel) Register(procID int, vSemAddr, termReadMutex, termWriteMutex, printerMutex int32) {
	k.procs[procID-1] = procInfo{
		vSemAddr:       vSemAddr,
		termReadMutex:  termReadMutex,
		termWriteMutex: termWriteMutex,
		printerMutex:   printerMutex,
	}
}

// awaitCompletion spins the machine forward, ticking the clock,
// polling every registered terminal, and servicing whatever interrupt
// becomes due, until line shows a pending completion. It returns once
// an interrupt has been serviced with line pending, at which point the
// matching WaitForIO call is guaranteed not to block.
func (k *Kernel) awaitCompletion(line int) {
	mask := uint8(1) << uint(line)
	for i := 0; i < maxSpinTicks; i++ {
		if k.Nucleus.Mach.Bus.PendingLines()&mask != 0 {
			k.Nucleus.Interrupt()
			return
		}
		if k.Nucleus.Mach.Clock.TimerExpired() {
			k.Nucleus.Interrupt()
		}
		k.Nucleus.Mach.Tick()
		for _, term := range k.terminals {
			term.Poll()
		}
	}
	k.Nucleus.Mach.Panic("usyscall: device completion did not arrive within the spin budget")
}

// ReadTerminalInto is syscall 9: read characters from procID's
// terminal unit until a line feed, writing them (without the line
// feed) into dst and returning the count, mirroring readTerminal.
func (k *Kernel) ReadTerminalInto(procID int, unit int, dst []byte) int {
	p := &k.procs[procID-1]
	k.Nucleus.Passeren(p.termReadMutex)

	count := 0
	for {
		k.Nucleus.Mach.Bus.StartIO(machine.LineTerminal, unit, machine.TermRecvChar, 0)
		k.awaitCompletion(machine.LineTerminal)
		status, _ := k.Nucleus.WaitForIO(machine.LineTerminal, unit, false)

		ch := byte((status >> machine.CharShift) & 0xFF)
		if ch == '\n' {
			break
		}
		if count < len(dst) {
			dst[count] = ch
		}
		count++
	}

	k.Nucleus.Verhogen(p.termReadMutex)
	return count
}

// WriteTerminalFrom is syscall 10: write data to procID's terminal
// unit, mirroring writeTerminal.
func (k *Kernel) WriteTerminalFrom(procID int, unit int, data []byte) {
	p := &k.procs[procID-1]
	k.Nucleus.Passeren(p.termWriteMutex)

	for _, ch := range data {
		cmd := uint32(ch) << machine.CharShift
		k.Nucleus.Mach.Bus.StartIO(machine.LineTerminal, unit, machine.TermTransChar, cmd)
		k.awaitCompletion(machine.LineTerminal)
		k.Nucleus.WaitForIO(machine.LineTerminal, unit, true)
	}

	k.Nucleus.Verhogen(p.termWriteMutex)
}

// VSemVirtOp is syscall 11: V a virtual semaphore. If the V drives the
// virtual count non-positive, a process must have been virtually
// blocked on it; that process's real semaphore (Tp_sem) is V'd to wake
// it. Finding no such waiter means the virtual semaphore's bookkeeping
// has gone out of sync with its wait list, so procID commits virtual
// death instead, mirroring vmSysHandler's call to virtualDeath when
// vRemoveBlocked returns FAILURE.
func (k *Kernel) VSemVirtOp(procID int, vSemAddr int32) {
	v, _ := k.Nucleus.Mach.Mem.GetWord(uint32(vSemAddr))
	v++
	k.Nucleus.Mach.Mem.PutWord(uint32(vSemAddr), v)

	if int32(v) > 0 {
		return
	}

	woken := k.AVSL.RemoveBlocked(int(vSemAddr))
	if woken == avsl.None {
		k.VM.VirtualDeath(procID, k.MasterSemAddr)
		return
	}
	k.Nucleus.Verhogen(k.procs[woken-1].vSemAddr)
}

// PSemVirtOp is syscall 12: P a virtual semaphore, virtually blocking
// procID (via its Tp_sem) if the decrement goes negative.
func (k *Kernel) PSemVirtOp(procID int, vSemAddr int32) {
	v, _ := k.Nucleus.Mach.Mem.GetWord(uint32(vSemAddr))
	v--
	k.Nucleus.Mach.Mem.PutWord(uint32(vSemAddr), v)

	if int32(v) < 0 {
		k.AVSL.InsertBlocked(int(vSemAddr), procID)
		k.Nucleus.Passeren(k.procs[procID-1].vSemAddr)
	}
}

// DelayOp is syscall 13: virtually block procID on its own Tp_sem and
// insert it on the active delay list to be woken after seconds have
// elapsed.
func (k *Kernel) DelayOp(procID int, seconds int64) {
	wake := k.Nucleus.Mach.Clock.Now() + seconds*TimeScale
	k.AVSL.InsertBlocked(int(k.procs[procID-1].vSemAddr), procID)
	k.Delays.InsertDelay(wake, procID)
	k.Nucleus.Passeren(k.procs[procID-1].vSemAddr)
}

// RunDelayDaemon drains every delay-list entry whose wake time has
// arrived, V'ing each woken process's Tp_sem. Intended to be called
// once per pseudo-clock tick by whatever owns the daemon's ready
// loop, mirroring initProc.c's delay-daemon process.
func (k *Kernel) RunDelayDaemon() {
	now := k.Nucleus.Mach.Clock.Now()
	for k.Delays.HeadWakeTime() != adl.Failure && k.Delays.HeadWakeTime() <= now {
		procID := k.Delays.RemoveDelay()
		if procID == adl.Failure {
			break
		}
		k.Nucleus.Verhogen(k.procs[procID-1].vSemAddr)
	}
}

// validDiskArgs reports whether unit and virtAddr are fit to drive a
// disk syscall: unit must name a real disk (disk 0 is reserved), and
// virtAddr must fall inside the caller's own memory rather than below
// kSegOS, matching diskIO's "diskNo <= 0 || blockAddr < KUSEG2ADDR"
// guard.
func validDiskArgs(unit int, virtAddr uint32) bool {
	return unit > 0 && virtAddr >= vm.KUseg2Base
}

// DiskPutOp is syscall 14: seek to blockNo on the given disk unit and
// write the page at virtAddr to it, mirroring diskIO(..., WRITEBLK,
// ...). An out-of-range unit or virtAddr commits virtual death instead
// of touching the device. The returned status is diskIO's
// oldState->s_a1 = diskStatus: the completion status the caller would
// have found waiting in its own a1 register.
func (k *Kernel) DiskPutOp(procID, unit, blockNo int, virtAddr uint32) int32 {
	if !validDiskArgs(unit, virtAddr) {
		k.VM.VirtualDeath(procID, k.MasterSemAddr)
		return 0
	}
	k.diskSeek(unit, blockNo)
	k.Nucleus.Mach.Bus.StartIO(machine.LineDisk, unit, machine.DiskWrite, virtAddr)
	k.awaitCompletion(machine.LineDisk)
	status, _ := k.Nucleus.WaitForIO(machine.LineDisk, unit, false)

	var ret state.State
	ret.SetA1(int32(status))
	return ret.A1()
}

// DiskGetOp is syscall 15: seek to blockNo on the given disk unit and
// read it into the page at virtAddr, mirroring diskIO(..., READBLK,
// ...). An out-of-range unit or virtAddr commits virtual death instead
// of touching the device. See DiskPutOp for the returned status.
func (k *Kernel) DiskGetOp(procID, unit, blockNo int, virtAddr uint32) int32 {
	if !validDiskArgs(unit, virtAddr) {
		k.VM.VirtualDeath(procID, k.MasterSemAddr)
		return 0
	}
	k.diskSeek(unit, blockNo)
	k.Nucleus.Mach.Bus.StartIO(machine.LineDisk, unit, machine.DiskRead, virtAddr)
	k.awaitCompletion(machine.LineDisk)
	status, _ := k.Nucleus.WaitForIO(machine.LineDisk, unit, false)

	var ret state.State
	ret.SetA1(int32(status))
	return ret.A1()
}

func (k *Kernel) diskSeek(unit, blockNo int) {
	k.Nucleus.Mach.Bus.StartIO(machine.LineDisk, unit, machine.DiskSeek, uint32(blockNo))
	k.awaitCompletion(machine.LineDisk)
	k.Nucleus.WaitForIO(machine.LineDisk, unit, false)
}

// WritePrinterFrom is syscall 16: write data to procID's printer unit,
// mirroring writePrinter.
func (k *Kernel) WritePrinterFrom(procID int, unit int, data []byte) {
	p := &k.procs[procID-1]
	k.Nucleus.Passeren(p.printerMutex)

	for _, ch := range data {
		k.Nucleus.Mach.Bus.StartIO(machine.LinePrinter, unit, machine.PrintChar, uint32(ch))
		k.awaitCompletion(machine.LinePrinter)
		k.Nucleus.WaitForIO(machine.LinePrinter, unit, false)
	}

	k.Nucleus.Verhogen(p.printerMutex)
}

// GetTODOp is syscall 17: report the current TOD value.
func (k *Kernel) GetTODOp() int64 {
	return k.Nucleus.Mach.Clock.Now()
}

// VMTerminateOp is syscall 18: commit virtual death (invalidate the
// process's swap pool frames and page table entries, V the master
// semaphore, terminate), mirroring virtualDeath.
func (k *Kernel) VMTerminateOp(procID int) {
	k.VM.VirtualDeath(procID, k.MasterSemAddr)
}
