/*
 * JAEOS  - Simulated machine wiring
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

import "log/slog"

// Machine bundles the primitives the nucleus drives the simulated
// uARM hardware through.
type Machine struct {
	Mem   *Memory
	Bus   *Bus
	Clock *Clock

	halted bool
}

// New builds a machine with ramSize bytes of RAM and an empty device
// bus. The clock's background ticker is started immediately, mirroring
// emu/core.NewCPU wiring a running timer goroutine at construction.
func New(ramSize uint32) *Machine {
	return &Machine{
		Mem:   NewMemory(ramSize),
		Bus:   NewBus(),
		Clock: NewClock(),
	}
}

// Tick advances the clock and the bus's device-completion list by one
// simulated tick, the Go stand-in for event.Advance(cycle) in
// emu/core.core.Start.
func (m *Machine) Tick() {
	m.Clock.Advance(1)
	m.Bus.Advance(1)
}

// Halted reports whether the machine has executed a HALT.
func (m *Machine) Halted() bool { return m.halted }

// Halt stops the machine cleanly, the simulated HALT instruction.
func (m *Machine) Halt() {
	m.halted = true
	m.Clock.Shutdown()
	slog.Info("machine halted")
}

// Panic stops the machine after an unrecoverable kernel condition, the
// simulated PANIC instruction. Unlike Go's panic(), this always
// represents an expected, handled kernel outcome (deadlock detection,
// a device refusing its ACK) rather than an internal invariant
// violation.
func (m *Machine) Panic(reason string) {
	m.halted = true
	m.Clock.Shutdown()
	slog.Error("machine panic", "reason", reason)
}
