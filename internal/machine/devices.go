/*
 * JAEOS  - Device bus and interrupt bitmap
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
package machine

// Interrupt line numbers, matching original_source/h/const.h's
// DISKINT..TERMINT (renumbered here from 0 since this bus only ever
// carries these five lines).
const (
	LineDisk = iota
	LineTape
	LineNetwork
	LinePrinter
	LineTerminal
	NumLines
)

// DevPerInt is the number of unit slots each interrupt line carries.
const DevPerInt = 8

// Device status codes shared by every device class.
const (
	Uninstalled uint32 = 0
	Ready       uint32 = 1
	Busy        uint32 = 3
)

// Device command codes shared by every device class.
const (
	Reset uint32 = 0
	Ack   uint32 = 1
)

// Reg is one device's register block. Disk/tape/printer use Status
// and Command; terminal devices additionally use Data0/Data1 as a
// second status/command pair (receive in Status/Command, transmit in
// Data0/Data1) exactly as the original's device_t overlays
// t_recv_status/t_recv_command/t_transm_status/t_transm_command.
type Reg struct {
	Status  uint32
	Command uint32
	Data0   uint32
	Data1   uint32
}

// Device is a unit attached to the bus. Start begins an operation and
// returns immediately with a status (typically Busy); the device
// schedules its own completion on the bus's event list.
type Device interface {
	Start(cmd uint32, data uint32) uint32
}

// Bus is the device register bank and pending-interrupt bitmap the
// nucleus's interrupt handler scans, grounded on sys_channel's devTab
// + INTBITMAPADDR bitmap layout.
type Bus struct {
	regs    [NumLines * DevPerInt]Reg
	devices [NumLines * DevPerInt]Device
	pending [NumLines]uint8 // one bit per unit on that line
	events  eventList
}

// NewBus returns an empty bus with no devices attached.
func NewBus() *Bus {
	return &Bus{}
}

// Attach installs dev at (line, unit).
func (b *Bus) Attach(line, unit int, dev Device) {
	b.devices[line*DevPerInt+unit] = dev
}

// Reg returns the register block for (line, unit).
func (b *Bus) Reg(line, unit int) *Reg {
	return &b.regs[line*DevPerInt+unit]
}

// StartIO issues cmd to the device at (line, unit) and returns its
// immediate status.
func (b *Bus) StartIO(line, unit int, cmd, data uint32) uint32 {
	dev := b.devices[line*DevPerInt+unit]
	if dev == nil {
		return Uninstalled
	}
	return dev.Start(cmd, data)
}

// ScheduleCompletion arranges for the device at (line, unit) to raise
// its pending-interrupt bit after delay ticks, with status stored into
// the register's Status (or Data0, for a terminal's transmit half).
func (b *Bus) ScheduleCompletion(line, unit int, delay int, status uint32, transmit bool) {
	b.events.schedule(line, unit, delay, func(line, unit int) {
		r := b.Reg(line, unit)
		if transmit {
			r.Data0 = status
		} else {
			r.Status = status
		}
		b.pending[line] |= 1 << uint(unit)
	})
}

// Ack clears the pending bit for (line, unit) and writes Ack into the
// device's command register, the way interruptHandler's
// dev.d_command = ACK completes the acknowledgement protocol.
func (b *Bus) Ack(line, unit int, transmit bool) {
	b.pending[line] &^= 1 << uint(unit)
	r := b.Reg(line, unit)
	if transmit {
		r.Data1 = Ack
	} else {
		r.Command = Ack
	}
}

// PendingLines returns a bitmap with bit i set if interrupt line i has
// at least one device with a pending, unacknowledged completion.
func (b *Bus) PendingLines() uint8 {
	var mask uint8
	for line := 0; line < NumLines; line++ {
		if b.pending[line] != 0 {
			mask |= 1 << uint(line)
		}
	}
	return mask
}

// FirstPendingUnit returns the lowest unit number on line with its
// pending bit set, scanning low-to-high the way getDeviceNumber walks
// the bitmap.
func (b *Bus) FirstPendingUnit(line int) int {
	bits := b.pending[line]
	for unit := 0; unit < DevPerInt; unit++ {
		if bits&(1<<uint(unit)) != 0 {
			return unit
		}
	}
	return -1
}

// Advance charges t ticks against the bus's device-completion event
// list, firing any completions that mature.
func (b *Bus) Advance(t int) {
	b.events.advance(t)
}

// AnyPendingCompletion reports whether a device completion is still
// scheduled but has not yet fired.
func (b *Bus) AnyPendingCompletion() bool {
	return !b.events.empty()
}
