package vm

import (
	"testing"

	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/state"
)

type fakeBacking struct {
	pages map[[2]int][]uint32
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{pages: make(map[[2]int][]uint32)}
}

func (b *fakeBacking) ReadPage(asid, pageNo int, dst []uint32) error {
	src, ok := b.pages[[2]int{asid, pageNo}]
	if !ok {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	copy(dst, src)
	return nil
}

func (b *fakeBacking) WritePage(asid, pageNo int, src []uint32) error {
	buf := make([]uint32, len(src))
	copy(buf, src)
	b.pages[[2]int{asid, pageNo}] = buf
	return nil
}

func newTestHandler(t *testing.T) (*Handler, int) {
	t.Helper()
	m := machine.New(PageSize * 64)
	k := nucleus.NewKernel(m)

	var initial state.State
	initial.SetPC(0x1000)
	k.ProcessCount++
	slot := k.Procs.Alloc()
	k.Procs.Get(slot).S.Copy(&initial)
	k.ReadyQueueInsert(slot)
	k.GetNewJob()
	if k.Current != slot {
		t.Fatalf("Current = %d, want %d", k.Current, slot)
	}

	const swapSemAddr = PageSize * 40
	k.Mach.Mem.PutWord(swapSemAddr, 1)

	pool := NewPool(PageSize * 20)
	h := NewHandler(k, pool, newFakeBacking(), swapSemAddr)
	h.SegTables[0] = &SegTable{
		KUSeg2: &PageTable{Header: PTEMagicNo},
		KUSeg3: &PageTable{Header: PTEMagicNo},
	}
	return h, slot
}

func TestFaultReadsInMissingPage(t *testing.T) {
	h, _ := newTestHandler(t)

	const asid = 1
	ok := h.Fault(asid, CauseTLBLoad, SegKUseg2, 3)
	if !ok {
		t.Fatal("Fault() = false, want true for a TLB-load cause")
	}

	pte := h.pteFor(asid, SegKUseg2, 3)
	if pte.EntryLo&Valid == 0 {
		t.Fatal("page table entry not marked valid after fault")
	}
	if pte.EntryLo&Global != 0 {
		t.Fatal("kuseg2 entry should not carry the global bit")
	}
}

func TestFaultRejectsBadCause(t *testing.T) {
	h, _ := newTestHandler(t)
	if h.Fault(1, 99, SegKUseg2, 0) {
		t.Fatal("Fault() should reject a non-TLB-missing cause")
	}
}

func TestFaultEvictsAndWritesBackDirtyFrame(t *testing.T) {
	h, _ := newTestHandler(t)
	h.SegTables[1] = &SegTable{
		KUSeg2: &PageTable{Header: PTEMagicNo},
		KUSeg3: &PageTable{Header: PTEMagicNo},
	}

	// Fill every frame so the next fault must evict.
	for i := 0; i < SwapSize; i++ {
		asid := (i % 2) + 1
		if !h.Fault(asid, CauseTLBLoad, SegKUseg2, i/2) {
			t.Fatalf("Fault() failed warming frame %d", i)
		}
	}

	victimFrame := (h.Swap.next + 1) % SwapSize
	victim := h.Swap.Frames[victimFrame]
	wasValid := victim.PTE.EntryLo & Valid

	if !h.Fault(1, CauseTLBLoad, SegKUseg2, 7) {
		t.Fatal("Fault() failed on eviction path")
	}

	if wasValid != 0 && victim.PTE.EntryLo&Valid != 0 {
		t.Fatal("evicted page table entry should have had its valid bit cleared")
	}
}

func TestVirtualDeathInvalidatesFrames(t *testing.T) {
	h, _ := newTestHandler(t)
	const masterSemAddr = PageSize * 41
	h.Kernel.Mach.Mem.PutWord(masterSemAddr, 0)

	h.Fault(1, CauseTLBLoad, SegKUseg2, 0)
	h.VirtualDeath(1, masterSemAddr)

	for i := range h.Swap.Frames {
		if h.Swap.Frames[i].ASID == 1 {
			t.Fatalf("frame %d still owned by procID 1 after virtual death", i)
		}
	}
}
