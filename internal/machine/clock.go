/*
 * JAEOS  - TOD clock and interval timer
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

import (
	"sync"
	"time"
)

// TickPeriod is the wall-clock interval each simulated tick
// represents, mirroring emu/timer's 6.666ms ticker.
const TickPeriod = 6666666 * time.Nanosecond

// Clock is the simulated TOD counter and interval timer. A background
// goroutine signals Ticks once every TickPeriod while enabled, the same
// shape as emu/timer.Timer's ticker goroutine feeding the master
// channel; TOD and the interval timer move only when Advance is
// called.
type Clock struct {
	wg      sync.WaitGroup
	ticker  *time.Ticker
	enable  chan bool
	done    chan struct{}
	Ticks   chan struct{}
	running bool

	tod          int64
	intervalLeft int64
}

// NewClock starts the background ticker goroutine, disabled until
// Start is called.
func NewClock() *Clock {
	c := &Clock{
		enable: make(chan bool, 1),
		done:   make(chan struct{}),
		Ticks:  make(chan struct{}, 1),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Start enables tick delivery.
func (c *Clock) Start() { c.enable <- true }

// Stop disables tick delivery without tearing down the goroutine.
func (c *Clock) Stop() { c.enable <- false }

// Shutdown stops the ticker goroutine for good.
func (c *Clock) Shutdown() {
	close(c.done)
	c.wg.Wait()
}

func (c *Clock) run() {
	defer c.wg.Done()
	c.ticker = time.NewTicker(TickPeriod)
	defer c.ticker.Stop()

	for {
		select {
		case <-c.ticker.C:
			if c.running {
				select {
				case c.Ticks <- struct{}{}:
				default:
				}
			}
		case c.running = <-c.enable:
		case <-c.done:
			return
		}
	}
}

// Now returns the current TOD value.
func (c *Clock) Now() int64 { return c.tod }

// Advance charges elapsed ticks against TOD and the interval timer,
// called once per tick received on Ticks.
func (c *Clock) Advance(ticks int64) {
	c.tod += ticks
	c.intervalLeft -= ticks
}

// SetTimer reloads the interval timer's countdown, the Go stand-in for
// setTIMER(QUANTUM).
func (c *Clock) SetTimer(ticks int64) {
	c.intervalLeft = ticks
}

// TimerExpired reports whether the interval timer has counted down to
// zero or below.
func (c *Clock) TimerExpired() bool {
	return c.intervalLeft <= 0
}
