/*
 * JAEOS  - Simulated terminal device
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

// Terminal command codes. TermRecvChar matches const.h's RECVCHAR;
// TermTransChar is 3 rather than TRANSCHAR's 2, because receive and
// transmit commands both arrive through the one Start method and are
// told apart by their code. The character is packed into the upper
// byte the way
// writeTerminal/readTerminal shift it through CHARSHIFT.
const (
	TermRecvChar  uint32 = 2
	TermTransChar uint32 = 3

	CharShift = 8
)

// Completion status codes, matching RECEIVECHAR/TRANSMITCHAR.
const (
	ReceiveChar  uint32 = 5
	TransmitChar uint32 = 5
)

// Terminal is one simulated terminal unit with independent read and
// write halves, matching device_t's overlay of
// t_recv_status/t_recv_command onto Status/Command and
// t_transm_status/t_transm_command onto Data0/Data1.
//
// Input is drawn from a rune channel fed by whatever front end is
// attached (the console, a test, a telnet session); output is written
// to Out. A pending receive cannot be completed on a simulated tick
// the way every other device's completion can, since there is no tick
// at which a key press is guaranteed to exist — Poll must be called
// once per dispatch-loop iteration to drain Input into a completion
// when a character is actually available.
type Terminal struct {
	Bus  *Bus
	Line int
	Unit int

	Input chan rune
	Out   func(r rune)

	Delay       int
	pendingRecv bool
}

// NewTerminal returns a terminal unit reading from in and writing
// through out.
func NewTerminal(bus *Bus, line, unit int, in chan rune, out func(r rune)) *Terminal {
	return &Terminal{
		Bus:   bus,
		Line:  line,
		Unit:  unit,
		Input: in,
		Out:   out,
		Delay: 10,
	}
}

// Start services a receive or transmit command. Receive arms Poll to
// watch for the next available rune; transmit always completes after
// Delay ticks.
func (t *Terminal) Start(cmd, data uint32) uint32 {
	switch cmd {
	case TermRecvChar:
		t.pendingRecv = true
	case TermTransChar:
		r := rune(data >> CharShift)
		t.Bus.events.schedule(t.Line, t.Unit, t.Delay, func(line, unit int) {
			t.Out(r)
			t.Bus.Reg(line, unit).Data0 = TransmitChar
			t.Bus.pending[line] |= 1 << uint(unit)
		})
	}
	return Busy
}

// Poll completes a pending receive if a rune is available on Input
// without blocking. Call once per dispatch-loop iteration for every
// attached Terminal.
func (t *Terminal) Poll() {
	if !t.pendingRecv {
		return
	}
	select {
	case r := <-t.Input:
		t.Bus.Reg(t.Line, t.Unit).Status = (uint32(r) << CharShift) | ReceiveChar
		t.Bus.pending[t.Line] |= 1 << uint(t.Unit)
		t.pendingRecv = false
	default:
	}
}
