package initproc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/pcb"
	"github.com/jwagner/jaeos/internal/state"
	"github.com/jwagner/jaeos/internal/usyscall"
	"github.com/jwagner/jaeos/internal/vm"
)

type fakeBacking struct {
	written map[[2]int][]uint32
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{written: make(map[[2]int][]uint32)}
}

func (b *fakeBacking) ReadPage(asid, pageNo int, dst []uint32) error {
	src := b.written[[2]int{asid, pageNo}]
	copy(dst, src)
	return nil
}

func (b *fakeBacking) WritePage(asid, pageNo int, src []uint32) error {
	cp := make([]uint32, len(src))
	copy(cp, src)
	b.written[[2]int{asid, pageNo}] = cp
	return nil
}

// writeImage writes a tape file holding exactly one block, every word
// set to fill, so tests can tell which process's image landed where.
func writeImage(t *testing.T, dir string, name string, fill uint32) string {
	t.Helper()
	path := filepath.Join(dir, name)
	buf := make([]byte, machine.PageSize)
	for i := 0; i < machine.PageSize/machine.WordLen; i++ {
		binary.BigEndian.PutUint32(buf[i*machine.WordLen:], fill)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writeImage: %v", err)
	}
	return path
}

func TestLoadImageWritesBackingStorePages(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "p1.img", 0xBEEF)
	backing := newFakeBacking()

	if err := loadImage(path, 1, backing); err != nil {
		t.Fatalf("loadImage: %v", err)
	}

	got := backing.written[[2]int{1, 0}]
	if len(got) == 0 || got[0] != 0xBEEF {
		t.Fatalf("backing store block 0 = %v, want first word 0xbeef", got)
	}
}

func TestLoadImageMissingFileErrors(t *testing.T) {
	if err := loadImage(filepath.Join(t.TempDir(), "missing.img"), 1, newFakeBacking()); err == nil {
		t.Fatal("loadImage should fail on a missing file")
	}
}

func TestBuildKernelSegTableIsIdentityMappedAndValid(t *testing.T) {
	tab := buildKernelSegTable()
	for i, pte := range tab.Entries {
		addr := uint32(i) * vm.PageSize
		if pte.EntryHi != addr {
			t.Fatalf("entry %d EntryHi = %#x, want %#x", i, pte.EntryHi, addr)
		}
		if pte.EntryLo&vm.Valid == 0 || pte.EntryLo&vm.Dirty == 0 || pte.EntryLo&vm.Global == 0 {
			t.Fatalf("entry %d EntryLo = %#x, want Valid|Dirty|Global set", i, pte.EntryLo)
		}
	}
}

func TestBuildSharedKUseg3IsNotValid(t *testing.T) {
	tab := buildSharedKUseg3()
	for i, pte := range tab.Entries {
		if pte.EntryLo&vm.Valid != 0 {
			t.Fatalf("entry %d should not start Valid", i)
		}
		if pte.EntryLo&vm.Dirty == 0 || pte.EntryLo&vm.Global == 0 {
			t.Fatalf("entry %d EntryLo = %#x, want Dirty|Global set", i, pte.EntryLo)
		}
	}
}

func TestBuildUserKUseg2IsPrivate(t *testing.T) {
	a := buildUserKUseg2(1)
	b := buildUserKUseg2(2)
	if a.Entries[0].EntryHi == b.Entries[0].EntryHi {
		t.Fatal("two processes' kuseg2 tables should not collide on EntryHi")
	}
	for _, pte := range a.Entries {
		if pte.EntryLo&vm.Global != 0 || pte.EntryLo&vm.Valid != 0 {
			t.Fatalf("kuseg2 entry should start private and not valid, got %#x", pte.EntryLo)
		}
	}
}

func newTestSystem(t *testing.T) (*nucleus.Kernel, *usyscall.Kernel, *vm.Handler) {
	t.Helper()
	m := machine.New(4096 * 64)
	nk := nucleus.NewKernel(m)

	var initial state.State
	nk.ProcessCount++
	slot := nk.Procs.Alloc()
	nk.Procs.Get(slot).S.Copy(&initial)
	nk.ReadyQueueInsert(slot)
	nk.GetNewJob()

	const swapSemAddr = 4096 * 40
	m.Mem.PutWord(swapSemAddr, 1)
	pool := vm.NewPool(4096 * 20)
	vmh := vm.NewHandler(nk, pool, newFakeBacking(), swapSemAddr)

	const masterSemAddr = 4096 * 41
	m.Mem.PutWord(masterSemAddr, 0)
	uk := usyscall.NewKernel(nk, vmh, masterSemAddr)

	return nk, uk, vmh
}

func TestBootSpawnsProcessesAndRendezvouses(t *testing.T) {
	nk, uk, vmh := newTestSystem(t)
	dir := t.TempDir()
	path1 := writeImage(t, dir, "p1.img", 0x1111)
	path2 := writeImage(t, dir, "p2.img", 0x2222)

	const (
		masterSemAddr = 4096 * 41
		vSem1         = 4096 * 50
		vSem2         = 4096 * 51
		trm1          = 4096 * 52
		twm1          = 4096 * 53
		prm1          = 4096 * 54
		trm2          = 4096 * 55
		twm2          = 4096 * 56
		prm2          = 4096 * 57
	)
	for _, addr := range []uint32{vSem1, vSem2} {
		nk.Mach.Mem.PutWord(addr, 0)
	}
	for _, addr := range []uint32{trm1, twm1, prm1, trm2, twm2, prm2} {
		nk.Mach.Mem.PutWord(addr, 1)
	}

	cfg := Config{
		Images: []Image{
			{ProcID: 1, Path: path1},
			{ProcID: 2, Path: path2},
		},
		RAMTop:         4096 * 64,
		MasterSemAddr:  masterSemAddr,
		VSemAddr:       []int32{vSem1, vSem2},
		TermReadMutex:  []int32{trm1, trm2},
		TermWriteMutex: []int32{twm1, twm2},
		PrinterMutex:   []int32{prm1, prm2},
	}

	// Pre-credit the master semaphore as if both children had already
	// virtually died, so Boot's rendezvous loop never actually blocks
	// and TerminateProcess runs synchronously within this call.
	nk.Mach.Mem.PutWord(masterSemAddr, 2)

	if err := Boot(nk, uk, vmh, cfg); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if vmh.SegTables[0] == nil || vmh.SegTables[1] == nil {
		t.Fatal("Boot should install segment tables for both spawned processes")
	}
	if vmh.SegTables[0].KSegOS != vmh.SegTables[1].KSegOS {
		t.Fatal("spawned processes should share the kernel segment table")
	}
	if vmh.SegTables[0].KUSeg3 != vmh.SegTables[1].KUSeg3 {
		t.Fatal("spawned processes should share the kuseg3 table")
	}
	if vmh.SegTables[0].KUSeg2 == vmh.SegTables[1].KUSeg2 {
		t.Fatal("spawned processes must not share a private kuseg2 table")
	}
}

func TestBootParksRootWithoutDeadlockWhenMasterSemStartsAtZero(t *testing.T) {
	nk, uk, vmh := newTestSystem(t)
	dir := t.TempDir()
	path1 := writeImage(t, dir, "p1.img", 0x1111)
	path2 := writeImage(t, dir, "p2.img", 0x2222)

	const (
		masterSemAddr = 4096 * 41
		vSem1         = 4096 * 50
		vSem2         = 4096 * 51
		trm1          = 4096 * 52
		twm1          = 4096 * 53
		prm1          = 4096 * 54
		trm2          = 4096 * 55
		twm2          = 4096 * 56
		prm2          = 4096 * 57
	)
	for _, addr := range []uint32{vSem1, vSem2} {
		nk.Mach.Mem.PutWord(addr, 0)
	}
	for _, addr := range []uint32{trm1, twm1, prm1, trm2, twm2, prm2} {
		nk.Mach.Mem.PutWord(addr, 1)
	}

	cfg := Config{
		Images: []Image{
			{ProcID: 1, Path: path1},
			{ProcID: 2, Path: path2},
		},
		RAMTop:         4096 * 64,
		MasterSemAddr:  masterSemAddr,
		VSemAddr:       []int32{vSem1, vSem2},
		TermReadMutex:  []int32{trm1, trm2},
		TermWriteMutex: []int32{twm1, twm2},
		PrinterMutex:   []int32{prm1, prm2},
	}

	// masterSemAddr is already zero-initialized by newTestSystem, the
	// same value cmd/jaeos/main.go boots with: root must block for
	// real, and do so without corrupting which process Current names.
	if err := Boot(nk, uk, vmh, cfg); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if nk.Mach.Halted() {
		t.Fatal("Boot should not halt/panic the machine when root has to block on the master semaphore")
	}
	if nk.Current == pcb.None {
		t.Fatal("Boot should leave a spawned child dispatched as Current once root blocks")
	}
	if !nk.Procs.Get(nk.Current).InUse {
		t.Fatal("Current should name a live PCB, not a freed one")
	}
}

func TestBootRejectsOutOfRangeProcID(t *testing.T) {
	nk, uk, vmh := newTestSystem(t)
	cfg := Config{Images: []Image{{ProcID: vm.MaxUserProc + 1, Path: "unused"}}}
	if err := Boot(nk, uk, vmh, cfg); err == nil {
		t.Fatal("Boot should reject a process id outside 1..MaxUserProc")
	}
}
