/*
 * JAEOS  - Nucleus dispatch loop
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
package nucleus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/pcb"
)

// Loop drives a Kernel's dispatch cycle on its own goroutine: each
// pass advances the simulated machine by one tick, services a pending
// interrupt if the tick raised one, and otherwise lets GetNewJob pick
// up whatever idling or quantum-expiry work is due. Grounded on
// emu/core.core's run/done/wg shape, simplified to a single run
// boolean since the nucleus has no telnet-driven master packet
// channel to multiplex.
type Loop struct {
	K *Kernel

	// Terminals are polled once per iteration for newly available
	// input, since a key press has no simulated tick to fire on the
	// way every other device's completion does.
	Terminals []*machine.Terminal

	wg      sync.WaitGroup
	done    chan struct{}
	control chan bool
	running bool
}

// NewLoop returns a Loop ready to Start against k.
func NewLoop(k *Kernel) *Loop {
	return &Loop{
		K:       k,
		done:    make(chan struct{}),
		control: make(chan bool, 1),
	}
}

// Start launches the dispatch loop on its own goroutine.
func (l *Loop) Start() {
	l.wg.Add(1)
	go l.run()
}

// Run enables or disables dispatch; a stopped loop still drains
// pending machine events but does not call GetNewJob or Interrupt.
func (l *Loop) Run(enable bool) {
	l.control <- enable
}

// Stop halts the loop's goroutine and waits for it to exit.
func (l *Loop) Stop() {
	close(l.done)
	finished := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return
	case <-time.After(time.Second):
		slog.Warn("nucleus: timed out waiting for dispatch loop to stop")
		return
	}
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			slog.Info("nucleus: dispatch loop shut down")
			return
		case enable := <-l.control:
			l.running = enable
		default:
		}

		if l.K.Mach.Halted() {
			time.Sleep(time.Millisecond)
			continue
		}

		l.K.Mach.Tick()
		for _, term := range l.Terminals {
			term.Poll()
		}

		if !l.running {
			continue
		}

		if l.K.Mach.Clock.TimerExpired() || l.K.Mach.Bus.PendingLines() != 0 {
			l.K.Interrupt()
		} else if l.K.Current == pcb.None {
			l.K.GetNewJob()
		}
	}
}
