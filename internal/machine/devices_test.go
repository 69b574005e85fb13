package machine

import "testing"

type fakeDisk struct {
	bus        *Bus
	line, unit int
}

func (d *fakeDisk) Start(cmd, data uint32) uint32 {
	d.bus.ScheduleCompletion(d.line, d.unit, 5, Ready, false)
	return Busy
}

func TestDeviceCompletionRaisesPending(t *testing.T) {
	bus := NewBus()
	disk := &fakeDisk{bus: bus, line: LineDisk, unit: 2}
	bus.Attach(LineDisk, 2, disk)

	if got := bus.StartIO(LineDisk, 2, 3, 0); got != Busy {
		t.Fatalf("StartIO() = %d, want Busy", got)
	}

	if bus.PendingLines() != 0 {
		t.Fatalf("PendingLines() = %#x before completion fires, want 0", bus.PendingLines())
	}

	bus.Advance(4)
	if bus.PendingLines() != 0 {
		t.Fatalf("PendingLines() = %#x after 4 of 5 ticks, want 0", bus.PendingLines())
	}

	bus.Advance(1)
	if mask := bus.PendingLines(); mask&(1<<LineDisk) == 0 {
		t.Fatalf("PendingLines() = %#x after completion, want disk line set", mask)
	}
	if unit := bus.FirstPendingUnit(LineDisk); unit != 2 {
		t.Fatalf("FirstPendingUnit(disk) = %d, want 2", unit)
	}
	if bus.Reg(LineDisk, 2).Status != Ready {
		t.Fatalf("Reg(disk,2).Status = %d, want Ready", bus.Reg(LineDisk, 2).Status)
	}

	bus.Ack(LineDisk, 2, false)
	if mask := bus.PendingLines(); mask&(1<<LineDisk) != 0 {
		t.Fatalf("PendingLines() = %#x after Ack, want disk line cleared", mask)
	}
}

func TestUninstalledDevice(t *testing.T) {
	bus := NewBus()
	if got := bus.StartIO(LineTape, 0, 3, 0); got != Uninstalled {
		t.Fatalf("StartIO() on unattached unit = %d, want Uninstalled", got)
	}
}
