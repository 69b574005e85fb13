/*
 * JAEOS  - Simulated printer device
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

import "io"

// PrintChar is the printer command code, matching const.h's
// PRINTCHAR: the character to print travels in Data0.
const PrintChar uint32 = 2

// Printer is one simulated line printer writing to Out, completing
// each character after Delay ticks.
type Printer struct {
	Bus  *Bus
	Line int
	Unit int
	Out  io.Writer

	Delay int
}

// NewPrinter returns a printer unit writing to out.
func NewPrinter(bus *Bus, line, unit int, out io.Writer) *Printer {
	return &Printer{Bus: bus, Line: line, Unit: unit, Out: out, Delay: 5}
}

// Start prints the character in data after Delay ticks.
func (p *Printer) Start(cmd, data uint32) uint32 {
	if cmd != PrintChar {
		return Ready
	}
	ch := byte(data)
	p.Bus.events.schedule(p.Line, p.Unit, p.Delay, func(line, unit int) {
		p.Out.Write([]byte{ch})
		p.Bus.Reg(line, unit).Status = Ready
		p.Bus.pending[line] |= 1 << uint(unit)
	})
	return Busy
}
