/*
 * JAEOS  - Interrupt dispatch
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
	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/pcb"
)

// deviceLines lists the interrupt lines scanned in priority order by
// Interrupt, matching interruptHandler's fixed DISKINT..TERMINT sweep.
var deviceLines = [...]int{
	machine.LineDisk,
	machine.LineTape,
	machine.LineNetwork,
	machine.LinePrinter,
	machine.LineTerminal,
}

// Interrupt services the highest-priority pending interrupt line: the
// pseudo-clock/quantum timer first, then disk, tape, network, printer,
// and finally terminal (write before read on a line that has both
// pending, mirroring termIntHandler's transmit-first check).
func (k *Kernel) Interrupt() {
	if k.Mach.Clock.TimerExpired() {
		k.timerInterrupt()
		return
	}

	mask := k.Mach.Bus.PendingLines()
	for _, line := range deviceLines {
		if mask&(1<<uint(line)) == 0 {
			continue
		}
		if line == machine.LineTerminal {
			k.terminalInterrupt()
			return
		}
		k.deviceInterrupt(line)
		return
	}
}

// timerInterrupt distinguishes a quantum expiry (the running process's
// timeslice ran out; it goes back on the ready queue) from a
// pseudo-clock tick (every process waiting on the clock semaphore is
// released and the semaphore is reset to zero), exactly as
// interruptHandler's "is this the quantum or the interval timer"
// branch.
func (k *Kernel) timerInterrupt() {
	if !k.QuantumFlag {
		k.requeueRunning()
		k.Mach.Clock.SetTimer(IntervalTime)
		k.GetNewJob()
		return
	}

	if k.Current != pcb.None {
		k.chargeElapsedTime()
	}
	k.releaseClockWaiters()
	k.TimeLeft = IntervalTime
	if k.Current == pcb.None {
		k.GetNewJob()
		return
	}
	k.StartTOD = k.Mach.Clock.Now()
	k.Mach.Clock.SetTimer(Quantum)
	k.QuantumFlag = false
}

// requeueRunning charges the interrupted process for the time it used
// and puts it back on the ready queue; with no current process (the
// kernel idling in GetNewJob) it is a no-op.
func (k *Kernel) requeueRunning() {
	if k.Current == pcb.None {
		return
	}
	k.chargeElapsedTime()
	k.ReadyQueueInsert(k.Current)
	k.Current = pcb.None
}

// releaseClockWaiters wakes every process blocked on the pseudo-clock
// semaphore and resets it to zero, the Go analog of interruptHandler's
// "while semaphoreArray[CLOCKSEM] is negative, removeBlocked" loop.
func (k *Kernel) releaseClockWaiters() {
	for {
		woken := k.ASL.RemoveBlocked(semKey(ClockTimer), k.Procs)
		if woken == pcb.None {
			break
		}
		k.Procs.Get(woken).SemAdd = pcb.None
		k.ReadyQueueInsert(woken)
		k.SoftBlockCount--
	}
	k.SemArray[ClockTimer] = 0
}

// deviceInterrupt acknowledges the lowest-numbered pending unit on a
// non-terminal line, records its completion status, and wakes whatever
// process is waiting on that unit's semaphore (or, if nothing was
// waiting, leaves the status for a later WaitForIO to pick up
// immediately).
func (k *Kernel) deviceInterrupt(line int) {
	unit := k.Mach.Bus.FirstPendingUnit(line)
	if unit < 0 {
		k.requeueRunning()
		k.GetNewJob()
		return
	}

	idx := lineBase(line) + unit
	status := k.Mach.Bus.Reg(line, unit).Status
	k.Mach.Bus.Ack(line, unit, false)
	k.completeDevice(idx, status)

	k.requeueRunning()
	k.GetNewJob()
}

// terminalInterrupt handles the combined read/write terminal line: a
// pending transmit (write) completion always takes priority over a
// pending receive (read) completion on the same unit, mirroring
// termIntHandler.
func (k *Kernel) terminalInterrupt() {
	unit := k.Mach.Bus.FirstPendingUnit(machine.LineTerminal)
	if unit < 0 {
		k.requeueRunning()
		k.GetNewJob()
		return
	}

	reg := k.Mach.Bus.Reg(machine.LineTerminal, unit)
	if reg.Data0 != machine.Uninstalled {
		idx := TermWriteBase + unit
		status := reg.Data0
		reg.Data0 = machine.Uninstalled
		k.Mach.Bus.Ack(machine.LineTerminal, unit, true)
		k.completeDevice(idx, status)
	} else {
		idx := TermReadBase + unit
		status := reg.Status
		k.Mach.Bus.Ack(machine.LineTerminal, unit, false)
		k.completeDevice(idx, status)
	}

	k.requeueRunning()
	k.GetNewJob()
}

// completeDevice records a device's completion status and, if a
// process was blocked waiting for it, wakes it; otherwise V's the
// semaphore so the status is there for the next WaitForIO.
func (k *Kernel) completeDevice(idx int, status uint32) {
	k.DevStatus[idx] = status
	k.SemArray[idx]++

	if k.SemArray[idx] <= 0 {
		woken := k.ASL.RemoveBlocked(semKey(idx), k.Procs)
		if woken != pcb.None {
			k.Procs.Get(woken).SemAdd = pcb.None
			k.ReadyQueueInsert(woken)
			k.SoftBlockCount--
		}
	}
}
