/*
 * JAEOS  - Operator console
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

// Package console is the operator's read-only diagnostic REPL: dump
// the PCB pool, the Active Semaphore List, the Active Delay List, and
// swap pool occupancy while the kernel runs. Grounded on
// command/reader's liner-backed prompt loop and command/parser's
// prefix-matched command table, trimmed down from that package's
// device-attach/set/show grammar to JAEOS's much smaller, read-only
// command set.
package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/peterh/liner"

	"github.com/jwagner/jaeos/internal/adl"
	"github.com/jwagner/jaeos/internal/avsl"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/pcb"
	"github.com/jwagner/jaeos/internal/vm"
)

// Monitor is everything the console needs to read out kernel state.
// Every command it runs is read-only: no command mutates Nucleus, VM,
// AVSL, or Delays.
type Monitor struct {
	Nucleus *nucleus.Kernel
	VM      *vm.Handler
	AVSL    *avsl.List
	Delays  *adl.List

	Out io.Writer
}

type command struct {
	name    string
	min     int
	process func(m *Monitor, args []string) (quit bool, err error)
}

var commands = []command{
	{name: "ps", min: 1, process: (*Monitor).cmdPS},
	{name: "sem", min: 1, process: (*Monitor).cmdSem},
	{name: "delay", min: 1, process: (*Monitor).cmdDelay},
	{name: "swap", min: 1, process: (*Monitor).cmdSwap},
	{name: "help", min: 1, process: (*Monitor).cmdHelp},
	{name: "quit", min: 1, process: (*Monitor).cmdQuit},
}

func matchCommand(c command, name string) bool {
	if len(name) > len(c.name) || len(name) < c.min {
		return false
	}
	return c.name[:len(name)] == name
}

func match(name string) []command {
	if name == "" {
		return nil
	}
	var out []command
	for _, c := range commands {
		if matchCommand(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// names returns every command name, for liner's tab completer.
func names() []string {
	out := make([]string, len(commands))
	for i, c := range commands {
		out[i] = c.name
	}
	return out
}

func (m *Monitor) cmdQuit(_ []string) (bool, error) {
	return true, nil
}

func (m *Monitor) cmdHelp(_ []string) (bool, error) {
	fmt.Fprintln(m.out(), "commands: ps, sem, delay, swap, help, quit")
	return false, nil
}

func (m *Monitor) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return io.Discard
}

// cmdPS dumps every in-use PCB slot: whether it is the process
// currently running, blocked (and on what semaphore address), or
// ready to run.
func (m *Monitor) cmdPS(_ []string) (bool, error) {
	nk := m.Nucleus
	w := m.out()
	fmt.Fprintf(w, "processes: %d running, soft-blocked: %d\n", nk.ProcessCount, nk.SoftBlockCount)
	for i := 0; i < pcb.MaxProc; i++ {
		p := nk.Procs.Get(i)
		if !p.InUse {
			continue
		}
		state := "ready"
		switch {
		case i == nk.Current:
			state = "running"
		case p.SemAdd != pcb.None:
			state = fmt.Sprintf("blocked(sem=%d)", p.SemAdd)
		}
		fmt.Fprintf(w, "  pcb %2d: %-20s time=%d\n", i, state, p.Time)
	}
	return false, nil
}

// cmdSem dumps every semaphore currently on the Active Semaphore
// List.
func (m *Monitor) cmdSem(_ []string) (bool, error) {
	w := m.out()
	active := m.Nucleus.ASL.Active()
	if len(active) == 0 {
		fmt.Fprintln(w, "ASL: empty")
		return false, nil
	}
	fmt.Fprintln(w, "ASL:")
	for _, key := range active {
		head := m.Nucleus.ASL.HeadBlocked(key, m.Nucleus.Procs)
		fmt.Fprintf(w, "  sem %d: head pcb %d\n", key, head)
	}
	return false, nil
}

// cmdDelay dumps every pending entry on the Active Delay List, in
// wake-time order.
func (m *Monitor) cmdDelay(_ []string) (bool, error) {
	w := m.out()
	entries := m.Delays.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "ADL: empty")
		return false, nil
	}
	fmt.Fprintln(w, "ADL:")
	for _, e := range entries {
		fmt.Fprintf(w, "  proc %d wakes at %d\n", e.ProcID, e.WakeTime)
	}
	return false, nil
}

// cmdSwap dumps swap pool frame occupancy.
func (m *Monitor) cmdSwap(_ []string) (bool, error) {
	w := m.out()
	if m.VM == nil {
		fmt.Fprintln(w, "swap pool: not attached")
		return false, nil
	}
	for i, f := range m.VM.Swap.Frames {
		if f.ASID == vm.None {
			fmt.Fprintf(w, "  frame %2d: free\n", i)
			continue
		}
		fmt.Fprintf(w, "  frame %2d: asid=%d seg=%d page=%d\n", i, f.ASID, f.SegNo, f.PageNo)
	}
	return false, nil
}

// Dispatch parses one command line and runs it, matching prefixes the
// same way command/parser.matchCommand does (shortest unambiguous
// prefix of a registered name wins).
func (m *Monitor) Dispatch(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	matches := match(fields[0])
	switch len(matches) {
	case 0:
		return false, fmt.Errorf("command not found: %s", fields[0])
	case 1:
		return matches[0].process(m, fields[1:])
	default:
		return false, fmt.Errorf("ambiguous command: %s", fields[0])
	}
}

// Run drives the console's liner-backed REPL until the operator quits
// or EOF/Ctrl-C, exactly matching command/reader.ConsoleReader's
// prompt/history/completion loop.
func (m *Monitor) Run() {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, n := range names() {
			if strings.HasPrefix(n, partial) {
				out = append(out, n)
			}
		}
		return out
	})

	for {
		cmdLine, err := line.Prompt("jaeos> ")
		if err == nil {
			line.AppendHistory(cmdLine)
			quit, err := m.Dispatch(cmdLine)
			if err != nil {
				fmt.Fprintln(m.out(), "error: "+err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("console: error reading line", "error", err)
		return
	}
}
