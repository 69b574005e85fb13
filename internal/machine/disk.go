/*
 * JAEOS  - Simulated disk device
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

// Disk command codes. Seeking is modeled as a fixed-latency no-op
// (cylinder/head/sector geometry is out of scope, the same
// simplification package vm documents for the swap pool's backing
// store); Read/Write transfer one PageSize block between a block
// number and a memory address.
const (
	DiskSeek  uint32 = 2
	DiskRead  uint32 = 3
	DiskWrite uint32 = 4
)

// Disk is one simulated disk unit: NumBlocks fixed-size blocks of flat
// storage, attached to the bus at (Line, Unit). Grounded on
// readWriteBacking/diskIO's seek-then-transfer shape from
// vmIOsupport.c, with geometry collapsed to a single block number.
type Disk struct {
	Mem  *Memory
	Bus  *Bus
	Line int
	Unit int

	SeekDelay int
	IODelay   int

	blocks [][PageSize / WordLen]uint32

	pendingBlock uint32
	pendingAddr  uint32
}

// NewDisk returns a disk with numBlocks zeroed blocks.
func NewDisk(mem *Memory, bus *Bus, line, unit, numBlocks int) *Disk {
	return &Disk{
		Mem:       mem,
		Bus:       bus,
		Line:      line,
		Unit:      unit,
		SeekDelay: 50,
		IODelay:   200,
		blocks:    make([][PageSize / WordLen]uint32, numBlocks),
	}
}

// Start dispatches a disk command: data is the target block number
// for Seek, or the memory address to transfer to/from for Read/Write.
func (d *Disk) Start(cmd, data uint32) uint32 {
	switch cmd {
	case DiskSeek:
		d.pendingBlock = data
		d.Bus.events.schedule(d.Line, d.Unit, d.SeekDelay, func(line, unit int) {
			d.Bus.Reg(line, unit).Status = Ready
			d.Bus.pending[line] |= 1 << uint(unit)
		})
	case DiskRead:
		d.pendingAddr = data
		d.Bus.events.schedule(d.Line, d.Unit, d.IODelay, func(line, unit int) {
			blk := d.blocks[d.pendingBlock]
			d.Mem.PutPage(d.pendingAddr, blk[:])
			d.Bus.Reg(line, unit).Status = Ready
			d.Bus.pending[line] |= 1 << uint(unit)
		})
	case DiskWrite:
		d.pendingAddr = data
		d.Bus.events.schedule(d.Line, d.Unit, d.IODelay, func(line, unit int) {
			var blk [PageSize / WordLen]uint32
			d.Mem.GetPage(d.pendingAddr, blk[:])
			d.blocks[d.pendingBlock] = blk
			d.Bus.Reg(line, unit).Status = Ready
			d.Bus.pending[line] |= 1 << uint(unit)
		})
	}
	return Busy
}
