package nucleus

import (
	"testing"

	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/pcb"
	"github.com/jwagner/jaeos/internal/state"
)

func newTestKernel() *Kernel {
	m := machine.New(4096 * 32)
	return NewKernel(m)
}

func bootFirstProcess(k *Kernel, entry int32) int {
	var initial state.State
	initial.SetPC(entry)
	initial.SetSP(4096 * 30)
	k.ProcessCount++
	slot := k.Procs.Alloc()
	k.Procs.Get(slot).S.Copy(&initial)
	k.ReadyQueueInsert(slot)
	return slot
}

func TestBootAndHalt(t *testing.T) {
	k := newTestKernel()
	p := bootFirstProcess(k, 0x1000)
	k.GetNewJob()

	if k.Current != p {
		t.Fatalf("Current = %d, want %d", k.Current, p)
	}

	k.TerminateProcess()

	if !k.Mach.Halted() {
		t.Fatal("machine did not halt once the last process terminated")
	}
}

func TestPingPongViaUserSemaphore(t *testing.T) {
	k := newTestKernel()
	const semAddr = 4096 * 10
	k.Mach.Mem.PutWord(semAddr, 0)

	parent := bootFirstProcess(k, 0x1000)
	k.GetNewJob()

	var child state.State
	child.SetPC(0x2000)
	if !k.CreateProcess(&child) {
		t.Fatal("CreateProcess failed")
	}

	k.Passeren(semAddr)
	if got := k.ASL.HeadBlocked(semAddr, k.Procs); got != parent {
		t.Fatalf("parent should have blocked on semAddr, head blocked = %d, Current = %d", got, k.Current)
	}
	if k.Current == parent {
		t.Fatal("blocked process should not remain current")
	}

	// The child dispatched next should be able to wake the parent.
	if k.Current == pcb.None {
		t.Fatal("scheduler did not dispatch the child")
	}
	k.Verhogen(semAddr)

	v, _ := k.Mach.Mem.GetWord(semAddr)
	if v != 0 {
		t.Fatalf("semaphore value after V = %d, want 0", v)
	}
}

func TestDeadlockPanics(t *testing.T) {
	k := newTestKernel()
	bootFirstProcess(k, 0x1000)
	k.GetNewJob()

	const semAddr = 4096 * 11
	k.Mach.Mem.PutWord(semAddr, 0)
	k.Passeren(semAddr)

	if !k.Mach.Halted() {
		t.Fatal("kernel did not halt/panic on deadlock (process blocked, none ready, none soft-blocked)")
	}
}

func TestWaitForIOThenDeviceInterruptWakes(t *testing.T) {
	k := newTestKernel()
	disk := &testDevice{}
	k.Mach.Bus.Attach(machine.LineDisk, 0, disk)

	p := bootFirstProcess(k, 0x1000)
	k.GetNewJob()
	if k.Current != p {
		t.Fatalf("Current = %d, want %d", k.Current, p)
	}

	k.Mach.Bus.StartIO(machine.LineDisk, 0, 3, 0)
	disk.fire(k.Mach.Bus, machine.LineDisk, 0)
	k.Interrupt()

	status, blocked := k.WaitForIO(machine.LineDisk, 0, false)
	if blocked {
		t.Fatal("WaitForIO should not block once the device already posted completion")
	}
	if status != machine.Ready {
		t.Fatalf("status = %d, want Ready", status)
	}
}

func TestDelayFromPseudoClock(t *testing.T) {
	k := newTestKernel()
	p := bootFirstProcess(k, 0x1000)
	k.GetNewJob()
	if k.Current != p {
		t.Fatal("scheduler did not dispatch the only ready process")
	}

	k.SemArray[ClockTimer] = 0
	k.WaitForClock()

	if k.SoftBlockCount != 1 {
		t.Fatalf("SoftBlockCount = %d, want 1", k.SoftBlockCount)
	}
	if k.Mach.Halted() {
		// Only one process and it's now soft-blocked with nothing ready:
		// GetNewJob should idle (arm the timer), not halt or panic.
		t.Fatal("kernel should idle with the timer armed, not halt, while soft-blocked")
	}
}

type testDevice struct{}

func (d *testDevice) Start(cmd, data uint32) uint32 { return machine.Busy }

func (d *testDevice) fire(bus *machine.Bus, line, unit int) {
	bus.ScheduleCompletion(line, unit, 1, machine.Ready, false)
	bus.Advance(1)
}
