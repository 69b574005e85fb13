package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jwagner/jaeos/internal/adl"
	"github.com/jwagner/jaeos/internal/avsl"
	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/state"
	"github.com/jwagner/jaeos/internal/vm"
)

type fakeBacking struct{}

func (fakeBacking) ReadPage(asid, pageNo int, dst []uint32) error {
	for i := range dst {
		dst[i] = 0
	}
	return nil
}

func (fakeBacking) WritePage(asid, pageNo int, src []uint32) error { return nil }

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m := machine.New(4096 * 32)
	nk := nucleus.NewKernel(m)

	var initial state.State
	nk.ProcessCount++
	slot := nk.Procs.Alloc()
	nk.Procs.Get(slot).S.Copy(&initial)
	nk.ReadyQueueInsert(slot)
	nk.GetNewJob()

	const swapSemAddr = 4096 * 20
	m.Mem.PutWord(swapSemAddr, 1)
	pool := vm.NewPool(4096 * 10)
	vmh := vm.NewHandler(nk, pool, fakeBacking{}, swapSemAddr)

	var buf bytes.Buffer
	return &Monitor{
		Nucleus: nk,
		VM:      vmh,
		AVSL:    avsl.NewList(),
		Delays:  adl.NewList(),
		Out:     &buf,
	}
}

func output(m *Monitor) string {
	return m.Out.(*bytes.Buffer).String()
}

func TestDispatchPSShowsRunningProcess(t *testing.T) {
	m := newTestMonitor(t)
	if _, err := m.Dispatch("ps"); err != nil {
		t.Fatalf("Dispatch(ps): %v", err)
	}
	if !strings.Contains(output(m), "running") {
		t.Fatalf("ps output = %q, want it to mention a running process", output(m))
	}
}

func TestDispatchSemEmpty(t *testing.T) {
	m := newTestMonitor(t)
	if _, err := m.Dispatch("sem"); err != nil {
		t.Fatalf("Dispatch(sem): %v", err)
	}
	if !strings.Contains(output(m), "empty") {
		t.Fatalf("sem output = %q, want it to report an empty ASL", output(m))
	}
}

func TestDispatchSemShowsBlockedProcess(t *testing.T) {
	m := newTestMonitor(t)
	const semAddr = 100
	m.Nucleus.Mach.Mem.PutWord(semAddr, 0)
	m.Nucleus.Passeren(semAddr)

	if _, err := m.Dispatch("sem"); err != nil {
		t.Fatalf("Dispatch(sem): %v", err)
	}
	if !strings.Contains(output(m), "sem 100") {
		t.Fatalf("sem output = %q, want it to list sem 100", output(m))
	}
}

func TestDispatchDelayEmpty(t *testing.T) {
	m := newTestMonitor(t)
	if _, err := m.Dispatch("delay"); err != nil {
		t.Fatalf("Dispatch(delay): %v", err)
	}
	if !strings.Contains(output(m), "empty") {
		t.Fatalf("delay output = %q, want it to report an empty ADL", output(m))
	}
}

func TestDispatchDelayShowsPendingEntry(t *testing.T) {
	m := newTestMonitor(t)
	m.Delays.InsertDelay(1000, 3)

	if _, err := m.Dispatch("delay"); err != nil {
		t.Fatalf("Dispatch(delay): %v", err)
	}
	if !strings.Contains(output(m), "proc 3") {
		t.Fatalf("delay output = %q, want it to mention proc 3", output(m))
	}
}

func TestDispatchSwapShowsFreeFrames(t *testing.T) {
	m := newTestMonitor(t)
	if _, err := m.Dispatch("swap"); err != nil {
		t.Fatalf("Dispatch(swap): %v", err)
	}
	if !strings.Contains(output(m), "free") {
		t.Fatalf("swap output = %q, want it to report free frames", output(m))
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	m := newTestMonitor(t)
	if _, err := m.Dispatch("bogus"); err == nil {
		t.Fatal("Dispatch should reject an unrecognized command")
	}
}

func TestDispatchPrefixMatchesUniquely(t *testing.T) {
	m := newTestMonitor(t)
	if _, err := m.Dispatch("sw"); err != nil {
		t.Fatalf("Dispatch(sw) should resolve uniquely to swap: %v", err)
	}
}

func TestDispatchQuit(t *testing.T) {
	m := newTestMonitor(t)
	quit, err := m.Dispatch("quit")
	if err != nil {
		t.Fatalf("Dispatch(quit): %v", err)
	}
	if !quit {
		t.Fatal("Dispatch(quit) should report quit=true")
	}
}
