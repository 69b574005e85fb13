package usyscall

import (
	"testing"

	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/state"
	"github.com/jwagner/jaeos/internal/vm"
)

func newTestKernel(t *testing.T) (*Kernel, int) {
	t.Helper()
	m := machine.New(4096 * 80)
	nk := nucleus.NewKernel(m)

	var initial state.State
	initial.SetPC(0x1000)
	nk.ProcessCount++
	slot := nk.Procs.Alloc()
	nk.Procs.Get(slot).S.Copy(&initial)
	nk.ReadyQueueInsert(slot)
	nk.GetNewJob()
	if nk.Current != slot {
		t.Fatalf("Current = %d, want %d", nk.Current, slot)
	}

	const swapSemAddr = 4096 * 40
	m.Mem.PutWord(swapSemAddr, 1)
	pool := vm.NewPool(4096 * 20)
	vmh := vm.NewHandler(nk, pool, fakeBacking{}, swapSemAddr)
	vmh.SegTables[0] = &vm.SegTable{
		KUSeg2: &vm.PageTable{Header: vm.PTEMagicNo},
		KUSeg3: &vm.PageTable{Header: vm.PTEMagicNo},
	}

	const masterSemAddr = 4096 * 41
	m.Mem.PutWord(masterSemAddr, 0)

	k := NewKernel(nk, vmh, masterSemAddr)
	const (
		vSemAddr       = 4096 * 42
		termReadMutex  = 4096 * 43
		termWriteMutex = 4096 * 44
		printerMutex   = 4096 * 45
	)
	m.Mem.PutWord(vSemAddr, 0)
	m.Mem.PutWord(termReadMutex, 1)
	m.Mem.PutWord(termWriteMutex, 1)
	m.Mem.PutWord(printerMutex, 1)
	k.Register(1, vSemAddr, termReadMutex, termWriteMutex, printerMutex)

	return k, slot
}

type fakeBacking struct{}

func (fakeBacking) ReadPage(asid, pageNo int, dst []uint32) error {
	for i := range dst {
		dst[i] = 0
	}
	return nil
}

func (fakeBacking) WritePage(asid, pageNo int, src []uint32) error { return nil }

func TestReadTerminalIntoAssemblesLine(t *testing.T) {
	k, _ := newTestKernel(t)
	in := make(chan rune, 8)
	for _, r := range "hi\n" {
		in <- r
	}
	term := machine.NewTerminal(k.Nucleus.Mach.Bus, machine.LineTerminal, 0, in, func(rune) {})
	k.Nucleus.Mach.Bus.Attach(machine.LineTerminal, 0, term)
	k.RegisterTerminal(term)

	var buf [16]byte
	n := k.ReadTerminalInto(1, 0, buf[:])
	if n != 2 || string(buf[:n]) != "hi" {
		t.Fatalf("ReadTerminalInto = %q (n=%d), want \"hi\"", buf[:n], n)
	}
}

func TestWriteTerminalFromSendsBytes(t *testing.T) {
	k, _ := newTestKernel(t)
	var out []rune
	term := machine.NewTerminal(k.Nucleus.Mach.Bus, machine.LineTerminal, 0, make(chan rune), func(r rune) {
		out = append(out, r)
	})
	k.Nucleus.Mach.Bus.Attach(machine.LineTerminal, 0, term)
	k.RegisterTerminal(term)

	k.WriteTerminalFrom(1, 0, []byte("ok"))
	if string(out) != "ok" {
		t.Fatalf("terminal output = %q, want \"ok\"", string(out))
	}
}

func TestVSemVirtWakesBlockedProcess(t *testing.T) {
	k, _ := newTestKernel(t)
	const vAddr = 4096 * 46
	k.Nucleus.Mach.Mem.PutWord(vAddr, 0)

	k.PSemVirtOp(1, vAddr)
	v, _ := k.Nucleus.Mach.Mem.GetWord(vAddr)
	if int32(v) != -1 {
		t.Fatalf("virtual semaphore after P = %d, want -1", int32(v))
	}

	k.VSemVirtOp(1, vAddr)
	v, _ = k.Nucleus.Mach.Mem.GetWord(vAddr)
	if int32(v) != 0 {
		t.Fatalf("virtual semaphore after V = %d, want 0", int32(v))
	}
}

func TestVSemVirtWithNoWaiterCommitsVirtualDeath(t *testing.T) {
	k, slot := newTestKernel(t)
	k.VM.Fault(1, vm.CauseTLBLoad, vm.SegKUseg2, 0)

	const vAddr = 4096 * 46
	// Drive the virtual count negative without ever registering a
	// waiter on the AVSL, the out-of-sync state vRemoveBlocked's
	// FAILURE return models.
	k.Nucleus.Mach.Mem.PutWord(vAddr, 0xFFFFFFFF)

	k.VSemVirtOp(1, vAddr)

	for i := range k.VM.Swap.Frames {
		if k.VM.Swap.Frames[i].ASID == 1 {
			t.Fatalf("frame %d still owned by procID 1 after a no-waiter VSemVirtOp", i)
		}
	}
	if k.Nucleus.Current == slot {
		t.Fatal("VSemVirtOp should have terminated the process, not left it Current")
	}
}

func TestDelayOpQueuesAndDaemonWakes(t *testing.T) {
	k, _ := newTestKernel(t)
	k.DelayOp(1, 2)

	if k.Delays.HeadWakeTime() == -1 {
		t.Fatal("delay list should hold the pending wake")
	}

	k.Nucleus.Mach.Clock.Advance(3 * TimeScale)
	k.RunDelayDaemon()

	if k.Delays.HeadWakeTime() != -1 {
		t.Fatal("delay daemon should have drained the expired entry")
	}
}

func TestDiskPutThenGetRoundTrips(t *testing.T) {
	k, _ := newTestKernel(t)
	disk := machine.NewDisk(k.Nucleus.Mach.Mem, k.Nucleus.Mach.Bus, machine.LineDisk, 1, 4)
	k.Nucleus.Mach.Bus.Attach(machine.LineDisk, 1, disk)

	const srcAddr = vm.KUseg2Base + 4096*2
	const dstAddr = vm.KUseg2Base + 4096*3
	k.Nucleus.Mach.Mem.PutWord(srcAddr, 0xC0FFEE)

	if status := k.DiskPutOp(1, 1, 1, srcAddr); status != int32(machine.Ready) {
		t.Fatalf("DiskPutOp status = %d, want %d", status, machine.Ready)
	}
	if status := k.DiskGetOp(1, 1, 1, dstAddr); status != int32(machine.Ready) {
		t.Fatalf("DiskGetOp status = %d, want %d", status, machine.Ready)
	}

	v, _ := k.Nucleus.Mach.Mem.GetWord(dstAddr)
	if v != 0xC0FFEE {
		t.Fatalf("round-tripped word = %#x, want 0xc0ffee", v)
	}
}

func TestDiskOpsRejectReservedUnitAndLowAddress(t *testing.T) {
	k, slot := newTestKernel(t)
	k.VM.Fault(1, vm.CauseTLBLoad, vm.SegKUseg2, 0)

	k.DiskPutOp(1, 0, 1, vm.KUseg2Base+4096)
	for i := range k.VM.Swap.Frames {
		if k.VM.Swap.Frames[i].ASID == 1 {
			t.Fatalf("frame %d still owned by procID 1 after DiskPutOp on reserved unit 0", i)
		}
	}
	if k.Nucleus.Current == slot {
		t.Fatal("DiskPutOp on reserved unit 0 should have committed virtual death")
	}
}

func TestWritePrinterFromWritesBytes(t *testing.T) {
	k, _ := newTestKernel(t)
	var out []byte
	printer := machine.NewPrinter(k.Nucleus.Mach.Bus, machine.LinePrinter, 0, writerFunc(func(p []byte) (int, error) {
		out = append(out, p...)
		return len(p), nil
	}))
	k.Nucleus.Mach.Bus.Attach(machine.LinePrinter, 0, printer)

	k.WritePrinterFrom(1, 0, []byte("ab"))
	if string(out) != "ab" {
		t.Fatalf("printer output = %q, want \"ab\"", string(out))
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestGetTODOpReportsClock(t *testing.T) {
	k, _ := newTestKernel(t)
	k.Nucleus.Mach.Clock.Advance(5)
	if k.GetTODOp() != k.Nucleus.Mach.Clock.Now() {
		t.Fatal("GetTODOp should report the machine's current TOD")
	}
}

func TestVMTerminateOpInvalidatesFrames(t *testing.T) {
	k, _ := newTestKernel(t)
	k.VM.Fault(1, vm.CauseTLBLoad, vm.SegKUseg2, 0)
	k.VMTerminateOp(1)

	for i := range k.VM.Swap.Frames {
		if k.VM.Swap.Frames[i].ASID == 1 {
			t.Fatalf("frame %d still owned by procID 1 after VMTerminateOp", i)
		}
	}
}
