/*
 * JAEOS  - Exception dispatch: syscalls, program traps, TLB traps
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
	"github.com/jwagner/jaeos/internal/state"
)

// Syscall numbers 1-8, handled directly by the nucleus. Syscalls 9-255
// are program-level requests and are always passed up or die as a
// system trap (Phase 3 installs its own handler for 9-18).
const (
	CreateProcess = 1 + iota
	TerminateProcess
	Verhogen
	Passeren
	SESV
	GetCPUTime
	WaitForClock
	WaitForIO
)

// chargeElapsedTime folds the time the current process has run since
// its last dispatch into its accounting and the pseudo-clock
// countdown, the Go stand-in for the STCK/elapsedTime bookkeeping
// repeated throughout exceptions.c and interrupts.c.
func (k *Kernel) chargeElapsedTime() {
	stopTOD := k.Mach.Clock.Now()
	elapsed := stopTOD - k.StartTOD
	cur := k.Procs.Get(k.Current)
	cur.Time += elapsed
	k.TimeLeft -= elapsed
}

// CreateProcess is syscall 1: allocate a PCB, copy in the initial
// state, and make it a ready child of the current process.
func (k *Kernel) CreateProcess(initial *state.State) bool {
	newPcb := k.Procs.Alloc()
	if newPcb == pcb.None {
		return false
	}

	k.ProcessCount++
	p := k.Procs.Get(newPcb)
	p.S.Copy(initial)

	k.Procs.InsertChild(k.Current, newPcb)
	k.ReadyQueueInsert(newPcb)
	return true
}

// TerminateProcess is syscall 2: kill the current process and all of
// its descendants, then dispatch whatever is ready next.
func (k *Kernel) TerminateProcess() {
	k.nukeItTilItPukes(k.Current)
	k.Current = pcb.None
	k.GetNewJob()
}

// Verhogen is syscall 3: V a user semaphore living at a plain address
// in simulated memory.
func (k *Kernel) Verhogen(semAdd int32) {
	v, _ := k.Mach.Mem.GetWord(uint32(semAdd))
	v++
	k.Mach.Mem.PutWord(uint32(semAdd), v)

	if int32(v) <= 0 {
		woken := k.ASL.RemoveBlocked(int(semAdd), k.Procs)
		if woken != pcb.None {
			k.Procs.Get(woken).SemAdd = pcb.None
			k.ReadyQueueInsert(woken)
		}
	}
}

// Passeren is syscall 4: P a user semaphore living at a plain address
// in simulated memory, blocking the current process if it goes
// negative.
func (k *Kernel) Passeren(semAdd int32) {
	v, _ := k.Mach.Mem.GetWord(uint32(semAdd))
	v--
	k.Mach.Mem.PutWord(uint32(semAdd), v)

	if int32(v) < 0 {
		k.chargeElapsedTime()
		k.ASL.InsertBlocked(int(semAdd), k.Current, k.Procs)
		k.Current = pcb.None
		k.GetNewJob()
	}
}

// GetCPUTime is syscall 6: report how much CPU time the current
// process has accumulated, folding in time since the last dispatch.
func (k *Kernel) GetCPUTime() int64 {
	k.chargeElapsedTime()
	cur := k.Procs.Get(k.Current)
	t := cur.Time
	k.StartTOD = k.Mach.Clock.Now()
	return t
}

// WaitForClock is syscall 7: P the pseudo-clock semaphore. This
// semaphore is only ever signalled by the interrupt handler's
// pseudo-clock-tick branch, which drains every waiter at once and
// resets it to zero, so the decrement below always leaves it negative;
// the PANIC branch below mirrors the original's "unreachable by
// construction" check rather than deleting it.
func (k *Kernel) WaitForClock() {
	k.SemArray[ClockTimer]--
	if k.SemArray[ClockTimer] < 0 {
		k.chargeElapsedTime()
		k.ASL.InsertBlocked(semKey(ClockTimer), k.Current, k.Procs)
		k.Current = pcb.None
		k.SoftBlockCount++
		k.GetNewJob()
		return
	}
	k.Mach.Panic("WaitForClock observed a non-negative clock semaphore")
}

// WaitForIO is syscall 8: P a device semaphore. If the device has
// already posted its completion, the status is returned immediately;
// otherwise the process blocks until the interrupt handler wakes it.
func (k *Kernel) WaitForIO(line, unit int, transmit bool) (uint32, bool) {
	idx := lineBase(line) + unit
	if transmit && line == machine.LineTerminal {
		idx += machine.DevPerInt
	}

	k.SemArray[idx]--
	if k.SemArray[idx] < 0 {
		k.chargeElapsedTime()
		k.ASL.InsertBlocked(semKey(idx), k.Current, k.Procs)
		k.Current = pcb.None
		k.SoftBlockCount++
		k.GetNewJob()
		return 0, true
	}

	status := k.DevStatus[idx]
	return status, false
}

// SESV is syscall 5: register the old/new state-vector pair a process
// uses for a given trap type, exactly once per trap type per process.
// Each call registers exactly one trap type. A process that passes an
// out-of-range trapType, or calls it twice for the same trap type, is
// killed along with its children. The original's three-case switch
// falls through all three labels on a missing break; this version does
// not reproduce that fallthrough.
func (k *Kernel) SESV(trapType int, oldArea, newArea *state.State) bool {
	if trapType < pcb.TLBTrap || trapType > pcb.SysTrap {
		k.nukeItTilItPukes(k.Current)
		k.Current = pcb.None
		k.GetNewJob()
		return false
	}

	cur := k.Procs.Get(k.Current)
	if cur.TrapSet[trapType] {
		k.nukeItTilItPukes(k.Current)
		k.Current = pcb.None
		k.GetNewJob()
		return false
	}

	cur.OldArea[trapType].Copy(oldArea)
	cur.NewArea[trapType].Copy(newArea)
	cur.TrapSet[trapType] = true
	return true
}

// PassUpOrDie handles a program trap or TLB trap (or a syscall 9-255
// treated as one): if the process has registered a handler for
// trapType, its saved state is switched to the handler's; otherwise
// the process and all its children are killed.
func (k *Kernel) PassUpOrDie(trapType int, trapState *state.State) {
	cur := k.Procs.Get(k.Current)
	if cur.TrapSet[trapType] {
		cur.OldArea[trapType].Copy(trapState)
		cur.S.Copy(&cur.NewArea[trapType])
		return
	}

	k.nukeItTilItPukes(k.Current)
	k.Current = pcb.None
	k.GetNewJob()
}

// nukeItTilItPukes recursively kills parent and every descendant,
// removing each from whatever queue or semaphore it is on and
// reconciling processCount/softBlockCount/the semaphore it was
// blocked on.
func (k *Kernel) nukeItTilItPukes(parent int) {
	for !k.Procs.EmptyChild(parent) {
		k.nukeItTilItPukes(k.Procs.RemoveChild(parent))
	}

	p := k.Procs.Get(parent)
	switch {
	case k.Current == parent:
		k.Procs.OutChild(parent)

	case p.SemAdd == pcb.None:
		k.Procs.OutQ(&k.readyTail, parent)

	default:
		k.ASL.OutBlocked(parent, k.Procs)

		if p.SemAdd < 0 {
			// Blocked on a device/clock semaphore: negative key, see
			// semKey. These only ever wake via an interrupt, not a V,
			// so releasing the slot just drops the soft-block count.
			k.SoftBlockCount--
		} else {
			v, _ := k.Mach.Mem.GetWord(uint32(p.SemAdd))
			k.Mach.Mem.PutWord(uint32(p.SemAdd), v+1)
		}
	}

	k.Procs.Free(parent)
	k.ProcessCount--
}
