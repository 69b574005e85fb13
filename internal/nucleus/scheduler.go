/*
 * JAEOS  - Scheduler
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

import "github.com/jwagner/jaeos/internal/pcb"

// GetNewJob removes a job from the ready queue and dispatches it. If
// the ready queue is empty it halts (no processes left), panics (no
// process left runnable and none blocked on I/O — a deadlock), or
// idles with interrupts enabled until a soft-blocked process is
// released.
func (k *Kernel) GetNewJob() {
	newJob := k.Procs.RemoveQ(&k.readyTail)

	if newJob == pcb.None {
		k.Current = pcb.None

		if k.ProcessCount == 0 {
			k.Mach.Halt()
			return
		}

		if k.SoftBlockCount == 0 {
			k.Mach.Panic("deadlock: processes remain but none are ready or soft-blocked")
			return
		}

		k.Mach.Clock.SetTimer(k.TimeLeft)
		k.QuantumFlag = true
		return
	}

	k.processJob(newJob)
}

// processJob installs newJob as the current process, arms the
// interval timer for either a full quantum or whatever pseudo-clock
// time remains (whichever is shorter), and loads its state.
func (k *Kernel) processJob(newJob int) {
	k.Current = newJob
	k.StartTOD = k.Mach.Clock.Now()

	if k.TimeLeft < 0 {
		k.TimeLeft = 0
	}

	if k.TimeLeft < Quantum {
		k.Mach.Clock.SetTimer(k.TimeLeft)
		k.QuantumFlag = true
	} else {
		k.Mach.Clock.SetTimer(Quantum)
		k.QuantumFlag = false
	}

	// LDST(&newJob->p_s): the instruction simulator (out of scope)
	// would load the process's saved registers here and resume
	// execution; this kernel tracks which process is current and lets
	// its test harness or console observe the result directly.
}

// ReadyQueueInsert appends p to the ready queue.
func (k *Kernel) ReadyQueueInsert(p int) {
	k.Procs.InsertQ(&k.readyTail, p)
}

// ReadyQueueEmpty reports whether the ready queue has no runnable
// process.
func (k *Kernel) ReadyQueueEmpty() bool {
	return pcb.EmptyQ(k.readyTail)
}
