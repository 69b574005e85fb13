/*
 * JAEOS  - TLB-invalid fault handler
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
package vm

import "github.com/jwagner/jaeos/internal/nucleus"

// TLB cause codes, matching const.h's TLBL/TLBS (the only two causes
// the handler services; everything else is a kill).
const (
	CauseTLBLoad  = 14
	CauseTLBStore = 15
)

// Handler wires the swap pool to a running kernel: it mutexes on a
// memory-resident swap semaphore exactly as vmMemHandler's
// SYSCALL(PASSEREN,(int)&swapSem,...) does, picks a victim frame,
// backs out any occupant, reads in the missing page, and patches the
// owning page table entry.
type Handler struct {
	Kernel      *nucleus.Kernel
	Swap        *Pool
	Backing     BackingStore
	SwapSemAddr int32

	// SegTables is indexed by ASID-1, one entry per user process.
	SegTables [MaxUserProc]*SegTable
}

// NewHandler returns a fault handler bound to k and backed by store.
// swapSemAddr is a word of simulated memory reserved as the swap
// pool's mutex semaphore.
func NewHandler(k *nucleus.Kernel, pool *Pool, store BackingStore, swapSemAddr int32) *Handler {
	return &Handler{
		Kernel:      k,
		Swap:        pool,
		Backing:     store,
		SwapSemAddr: swapSemAddr,
	}
}

// clampPageNum mirrors vmMemHandler's "if the missing page number was
// higher than the table size, clamp to the top entry" rule, resolving
// the Open Question of what happens on an out-of-range page number
// the same way the reference implementation does.
func clampPageNum(pageNum int) int {
	if pageNum >= KUsegPTESize {
		return KUsegPTESize - 1
	}
	return pageNum
}

// pteFor returns the page table entry for (asid, segNo, pageNo): from
// the process's own kuseg2 table, or from the kuseg3 table every
// process shares.
func (h *Handler) pteFor(asid, segNo, pageNo int) *PTE {
	tab := h.SegTables[asid-1]
	if segNo == SegKUseg3 {
		return &tab.KUSeg3.Entries[pageNo]
	}
	return &tab.KUSeg2.Entries[pageNo]
}

// Fault services a TLB-invalid exception for missingProcID, whose
// saved old-TLB-trap state gives the faulting segment/page number and
// cause. ok is false (and the process should be killed by the caller)
// if cause is neither CauseTLBLoad nor CauseTLBStore.
func (h *Handler) Fault(missingProcID, cause, missingSegNum, missingPageNum int) bool {
	if cause != CauseTLBLoad && cause != CauseTLBStore {
		return false
	}
	missingPageNum = clampPageNum(missingPageNum)

	h.Kernel.Passeren(h.SwapSemAddr)

	frame := h.Swap.ChooseFrame()
	f := &h.Swap.Frames[frame]
	frameAddr := h.Swap.FrameAddr(frame)

	if f.ASID != None {
		// Evict the current occupant: invalidate its PTE before
		// touching the frame's contents, matching vmMemHandler's
		// enableInterrupts(FALSE)/TLBCLR() fence around the bit flip.
		f.PTE.EntryLo &^= Valid
		// TLBCLR(): there is no instruction simulator to carry stale
		// translations, so nothing further is required here.

		buf := make([]uint32, PageSize/4)
		h.Kernel.Mach.Mem.GetPage(frameAddr, buf)
		h.Backing.WritePage(f.ASID, f.PageNo, buf)
	}

	buf := make([]uint32, PageSize/4)
	h.Backing.ReadPage(missingProcID, missingPageNum, buf)
	h.Kernel.Mach.Mem.PutPage(frameAddr, buf)

	f.ASID = missingProcID
	f.SegNo = missingSegNum
	f.PageNo = missingPageNum

	pte := h.pteFor(missingProcID, missingSegNum, missingPageNum)
	bits := Valid | Dirty
	if missingSegNum == SegKUseg3 {
		bits |= Global
	}
	pte.EntryLo = frameAddr | bits
	f.PTE = pte
	// TLBCLR(): as above, a no-op in this machine model.

	h.Kernel.Verhogen(h.SwapSemAddr)
	return true
}

// VirtualDeath invalidates every swap pool frame and page table entry
// belonging to procID, V's the master semaphore, and terminates the
// process, matching vmIOsupport.c's virtualDeath.
func (h *Handler) VirtualDeath(procID int, masterSemAddr int32) {
	h.Kernel.Passeren(h.SwapSemAddr)
	for i := range h.Swap.Frames {
		f := &h.Swap.Frames[i]
		if f.ASID == procID {
			f.PTE.EntryLo &^= Valid
			f.ASID = None
		}
	}
	h.Kernel.Verhogen(h.SwapSemAddr)

	h.Kernel.Verhogen(masterSemAddr)
	h.Kernel.TerminateProcess()
}
