// Package vm implements the Phase 3 demand-paging layer: page/segment
// tables, the swap pool, and the TLB-invalid fault handler that backs
// missing pages in from (and out to) disk.
//
// Physical disk geometry (cylinder/head/sector addressing) is out of
// scope the same way spec.md puts tape block format out of scope:
// BackingStore abstracts a process's backing image as flat,
// block-addressed storage rather than modeling SEEKSHIFT/HEADSHIFT/
// SECTORSHIFT geometry.
/*
 * JAEOS  - Virtual memory: page tables, swap pool, TLB fault handler
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

import "errors"

// MaxUserProc bounds the number of user (virtual-memory) processes the
// kernel will spawn, generalizing the original's hardcoded single
// demo user process into a small configurable population.
const MaxUserProc = 8

// SwapSize is the number of physical frames in the swap pool, matching
// the original's SWAPSIZE = 2*MAXUSERPROC.
const SwapSize = 2 * MaxUserProc

// KUsegPTESize/KSegOSPTESize are the page table row counts for a user
// segment and for the kernel's identity-mapped OS segment.
const (
	KUsegPTESize  = 32
	KSegOSPTESize = 64
)

// PTEMagicNo tags the header word of every page table, matching
// const.h's PTEMAGICNO.
const PTEMagicNo = 0x2A

// Entry-low bit flags, matching const.h's VALID/DIRTY/GLOBAL.
const (
	Global uint32 = 1 << 8
	Valid  uint32 = 1 << 9
	Dirty  uint32 = 1 << 10
)

// PTE is one page table entry: a virtual page number in EntryHi and
// the physical frame plus control bits in EntryLo.
type PTE struct {
	EntryHi uint32
	EntryLo uint32
}

// PageTable is a user segment's page table (kuseg2 or kuseg3): one
// header word (the magic number) followed by KUsegPTESize rows.
type PageTable struct {
	Header  int32
	Entries [KUsegPTESize]PTE
}

// OSPageTable is the kernel's identity-mapped segment page table,
// matching pteOS_t.
type OSPageTable struct {
	Header  int32
	Entries [KSegOSPTESize]PTE
}

// SegTable is one process's three-segment table row: the (shared)
// kernel segment, its private kuseg2, and the (shared) lazily-faulted
// kuseg3, matching segTbl_t.
type SegTable struct {
	KSegOS *OSPageTable
	KUSeg2 *PageTable
	KUSeg3 *PageTable
}

// Segment numbers, matching const.h's KUSEG2/KUSEG3 (kernel segment 0
// is never faulted — it's wired identity-valid at boot).
const (
	SegKSegOS = 0
	SegKUseg2 = 2
	SegKUseg3 = 3
)

// KUseg2Base is the lowest address a user process's own segment
// starts at, matching const.h's KUSEG2ADDR in spirit: this simulation
// has no segmented address space, so kSegOS's identity-mapped range
// (KSegOSPTESize pages, set up by buildKernelSegTable) stands in for
// kernel memory, and KUseg2Base is the first address past it. Device
// syscalls that accept a caller-supplied buffer address (disk I/O)
// reject anything below it the same way diskIO does, since an address
// that low names kSegOS rather than the caller's own memory.
const KUseg2Base = KSegOSPTESize * PageSize

// Frame is one swap pool entry: which process and page currently
// occupy it, or an unoccupied marker (ASID == None).
type Frame struct {
	ASID   int
	SegNo  int
	PageNo int
	PTE    *PTE
}

// None marks an unoccupied frame or an absent PTE pointer.
const None = -1

// Pool is the fixed-size swap pool plus its round-robin victim
// cursor, matching swapPool[]/chooseFrame's static nextFrame.
type Pool struct {
	Frames   [SwapSize]Frame
	SwapBase uint32 // physical address of frame 0
	next     int
}

// NewPool returns an empty swap pool with every frame unoccupied.
func NewPool(swapBase uint32) *Pool {
	p := &Pool{SwapBase: swapBase}
	for i := range p.Frames {
		p.Frames[i].ASID = None
	}
	return p
}

// ChooseFrame picks the next victim frame in round-robin order,
// matching chooseFrame's static nextFrame counter.
func (p *Pool) ChooseFrame() int {
	p.next = (p.next + 1) % SwapSize
	return p.next
}

// FrameAddr returns the physical address backing frame i.
func (p *Pool) FrameAddr(i int) uint32 {
	return p.SwapBase + uint32(i)*PageSize
}

// PageSize mirrors machine.PageSize without importing the machine
// package purely for a constant; vm only needs the number, never
// machine's types.
const PageSize = 4096

// BackingStore is a process's per-page backing image: read a missing
// page in, write a dirty page out. Geometry (cylinder/head/sector) is
// deliberately not modeled; pageNo addresses a flat block range.
type BackingStore interface {
	ReadPage(asid, pageNo int, dst []uint32) error
	WritePage(asid, pageNo int, src []uint32) error
}

// ErrBadCause describes a TLB-invalid fault whose saved cause is
// neither TLBL nor TLBS. Fault does not return it: Fault reports that
// case by returning false.
var ErrBadCause = errors.New("vm: TLB fault is not a load/store-missing exception")
