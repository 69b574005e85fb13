// Package initproc builds the Phase 3 page/segment tables, loads each
// user process's boot image from tape onto the backing store, spawns
// the user process population, and rendezvouses on their virtual
// deaths — the Go translation of initProc.c's test()/uProcInit() pair.
//
// There is no instruction-level CPU interpreter in this simulation
// (LDST is a documented no-op elsewhere in this module), so the half
// of uProcInit that loads a tape image onto the backing store is
// modeled directly as plain Go calls rather than as syscalls traveling
// through a simulated user process, and no SESV trap vectors are
// registered for the spawned processes; what would be vmSysHandler's own bookkeeping loop is exposed instead
// as usyscall.Kernel.Register, to be driven once each user process
// actually exists as a PCB.
/*
 * JAEOS  - Phase 3 process and page table initialization
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
package initproc

import (
	"fmt"

	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/state"
	"github.com/jwagner/jaeos/internal/usyscall"
	"github.com/jwagner/jaeos/internal/vm"
)

// UserEntryPC is the fixed virtual address every user process's
// initial state starts executing at, matching initProc.c's
// 0x800000B0 (the base of kuseg2 plus the fixed offset the loader
// linked the user program's entry point at).
const UserEntryPC = 0x800000B0

// Image names one user process's boot image by path, keyed by the
// process's 1-based slot (its eventual ASID).
type Image struct {
	ProcID int
	Path   string
}

// Config is everything Boot needs to build the shared tables, spawn
// the user population, and register each one's mutable I/O mutexes.
// Semaphore addresses are reserved words of simulated memory supplied
// by the caller (mirroring how test() reserves mutexSemArray/masterSem
// as fixed kernel data rather than dynamically allocating them).
type Config struct {
	Images []Image

	RAMTop        uint32
	MasterSemAddr int32

	// TermReadMutex/TermWriteMutex/PrinterMutex/VSemAddr give the
	// per-process semaphore address for process i (1-based) at
	// index i-1.
	TermReadMutex  []int32
	TermWriteMutex []int32
	PrinterMutex   []int32
	VSemAddr       []int32
}

// buildKernelSegTable returns the identity-mapped, always-valid kernel
// OS segment every process's SegTable shares, matching test()'s
// kSegOS setup.
func buildKernelSegTable() *vm.OSPageTable {
	tab := &vm.OSPageTable{Header: vm.PTEMagicNo}
	for i := range tab.Entries {
		addr := uint32(i) * vm.PageSize
		tab.Entries[i] = vm.PTE{
			EntryHi: addr,
			EntryLo: addr | vm.Valid | vm.Dirty | vm.Global,
		}
	}
	return tab
}

// buildSharedKUseg3 returns the shared, lazily-faulted kuseg3 table
// every process points at, matching test()'s kUSeg3 setup: Dirty and
// Global are set up front, Valid is left clear so the first touch
// faults it in through vm.Handler.Fault.
func buildSharedKUseg3() *vm.PageTable {
	tab := &vm.PageTable{Header: vm.PTEMagicNo}
	for i := range tab.Entries {
		tab.Entries[i] = vm.PTE{
			EntryHi: uint32(i),
			EntryLo: vm.Dirty | vm.Global,
		}
	}
	return tab
}

// buildUserKUseg2 returns procID's private, not-yet-valid kuseg2 table,
// matching test()'s per-process uProcs[i-1].Tp_pte setup.
func buildUserKUseg2(procID int) *vm.PageTable {
	tab := &vm.PageTable{Header: vm.PTEMagicNo}
	for i := range tab.Entries {
		tab.Entries[i] = vm.PTE{
			EntryHi: uint32(i) | uint32(procID)<<24,
			EntryLo: vm.Dirty,
		}
	}
	return tab
}

// loadImage copies path's tape blocks onto the backing store at
// (asid, 0), (asid, 1), ... in order, matching uProcInit's
// read-tape/seek-disk/write-disk loop, minus the per-block device
// mutex dance: Tape and vm.BackingStore are both plain synchronous Go
// calls in this simulation, so there is no device completion to wait
// on here.
func loadImage(path string, asid int, backing vm.BackingStore) error {
	tape, err := machine.OpenTape(path)
	if err != nil {
		return fmt.Errorf("initproc: open image for process %d: %w", asid, err)
	}
	defer tape.Close()

	for block := 0; ; block++ {
		page, err := tape.ReadBlock()
		if err != nil {
			if err == machine.TapeEOT {
				return nil
			}
			return fmt.Errorf("initproc: read image block %d for process %d: %w", block, asid, err)
		}
		if err := backing.WritePage(asid, block, page[:]); err != nil {
			return fmt.Errorf("initproc: write backing store block %d for process %d: %w", block, asid, err)
		}
	}
}

// Boot builds the shared kernel/kuseg3 tables, loads every configured
// user image onto the backing store, spawns one user process per
// image as a child of the calling (init) process, and blocks the
// caller until every spawned process has virtually died — matching
// test()'s full body, from the page table setup through the final
// SYSCALL(TERMINATEPROCESS).
//
// Boot must be called with nk.Current already set to the init
// process's own PCB slot (CreateProcess's children are inserted under
// whichever process is current), and vmh.SwapSemAddr/MasterSemAddr
// words already one/zero-initialized in simulated memory by the
// caller the way test() relies on static initialization for swapSem/
// masterSem/mutexSemArray.
//
// Unlike test()'s C for loop, the len(cfg.Images) PASSEREN calls below
// do not run as a sequence of real, independently resumed CPU
// contexts: this simulation has no instruction interpreter stepping
// a blocked process's own call stack back to life. Passeren blocks by
// calling GetNewJob, which installs whichever process the ready queue
// hands it next as Kernel.Current — if left alone, the second call
// would therefore run as that process instead of root. root's PCB
// slot is captured up front and re-pinned as Current immediately
// before every call so each decrement is always attributed to root,
// never to whichever child GetNewJob happened to install. Boot only
// calls TerminateProcess on root's behalf, and only when root never
// actually took the blocking branch (Current is still rootSlot once
// the loop ends) — the real production case, where the master
// semaphore starts at zero, leaves root legitimately parked in the
// ASL instead, to be released once every spawned process's virtual
// death posts to MasterSemAddr.
func Boot(nk *nucleus.Kernel, uk *usyscall.Kernel, vmh *vm.Handler, cfg Config) error {
	kSegOS := buildKernelSegTable()
	kUseg3 := buildSharedKUseg3()
	rootSlot := nk.Current

	for _, img := range cfg.Images {
		if img.ProcID < 1 || img.ProcID > vm.MaxUserProc {
			return fmt.Errorf("initproc: process id %d out of range (1..%d)", img.ProcID, vm.MaxUserProc)
		}

		if err := loadImage(img.Path, img.ProcID, vmh.Backing); err != nil {
			return err
		}

		vmh.SegTables[img.ProcID-1] = &vm.SegTable{
			KSegOS: kSegOS,
			KUSeg2: buildUserKUseg2(img.ProcID),
			KUSeg3: kUseg3,
		}

		var initial state.State
		entry := uint32(UserEntryPC)
		initial.SetPC(int32(entry))
		initial.SetSP(int32(cfg.RAMTop - 3*vm.PageSize))
		if !nk.CreateProcess(&initial) {
			return fmt.Errorf("initproc: could not allocate a PCB for process %d", img.ProcID)
		}

		uk.Register(img.ProcID,
			cfg.VSemAddr[img.ProcID-1],
			cfg.TermReadMutex[img.ProcID-1],
			cfg.TermWriteMutex[img.ProcID-1],
			cfg.PrinterMutex[img.ProcID-1],
		)
	}

	for range cfg.Images {
		nk.Current = rootSlot
		nk.Passeren(cfg.MasterSemAddr)
	}

	if nk.Current == rootSlot {
		nk.TerminateProcess()
	}
	return nil
}
