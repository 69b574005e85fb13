/*
 * JAEOS  - Boot entry point
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
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/jwagner/jaeos/config/bootconfig"
	"github.com/jwagner/jaeos/console"
	"github.com/jwagner/jaeos/internal/initproc"
	"github.com/jwagner/jaeos/internal/machine"
	"github.com/jwagner/jaeos/internal/nucleus"
	"github.com/jwagner/jaeos/internal/state"
	"github.com/jwagner/jaeos/internal/usyscall"
	"github.com/jwagner/jaeos/internal/vm"
	"github.com/jwagner/jaeos/util/logger"
)

// backingFile is the swap-in/swap-out image for every process, a
// flat file of page-sized blocks indexed by (asid, pageNo), standing
// in for the per-process disk partitions the original assigns.
type backingFile struct {
	f *os.File
}

func openBacking(path string) (*backingFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &backingFile{f: f}, nil
}

func (b *backingFile) offset(asid, pageNo int) int64 {
	return int64(asid*vm.KUsegPTESize+pageNo) * vm.PageSize
}

func (b *backingFile) ReadPage(asid, pageNo int, dst []uint32) error {
	buf := make([]byte, vm.PageSize)
	if _, err := b.f.ReadAt(buf, b.offset(asid, pageNo)); err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	for i := range dst {
		dst[i] = uint32(buf[i*4])<<24 | uint32(buf[i*4+1])<<16 | uint32(buf[i*4+2])<<8 | uint32(buf[i*4+3])
	}
	return nil
}

func (b *backingFile) WritePage(asid, pageNo int, src []uint32) error {
	buf := make([]byte, vm.PageSize)
	for i, w := range src {
		buf[i*4] = byte(w >> 24)
		buf[i*4+1] = byte(w >> 16)
		buf[i*4+2] = byte(w >> 8)
		buf[i*4+3] = byte(w)
	}
	_, err := b.f.WriteAt(buf, b.offset(asid, pageNo))
	return err
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "jaeos.cfg", "Boot-parameter file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("could not create log file", "error", err)
			os.Exit(1)
		}
	}

	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	debug := false
	handler := logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, &debug)
	log := slog.New(handler)
	slog.SetDefault(log)

	log.Info("JAEOS starting")

	cfg, err := bootconfig.Load(*optConfig)
	if err != nil {
		log.Error("loading boot configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		programLevel.Set(slog.LevelDebug)
		debug = true
		handler.SetDebug(&debug)
	}

	m := machine.New(cfg.RAMTop)
	nk := nucleus.NewKernel(m)

	// The root process that runs initproc.Boot and then terminates:
	// every spawned user process becomes its child, exactly as test()
	// runs as the first and only process IPL hands control to.
	var rootState state.State
	nk.ProcessCount++
	root := nk.Procs.Alloc()
	nk.Procs.Get(root).S.Copy(&rootState)
	nk.ReadyQueueInsert(root)
	nk.GetNewJob()

	disk := machine.NewDisk(m.Mem, m.Bus, machine.LineDisk, 0, 256)
	m.Bus.Attach(machine.LineDisk, 0, disk)

	printer := machine.NewPrinter(m.Bus, machine.LinePrinter, 0, os.Stdout)
	m.Bus.Attach(machine.LinePrinter, 0, printer)

	const swapSemAddr = 4096 * 60
	const masterSemAddr = 4096 * 61
	m.Mem.PutWord(swapSemAddr, 1)
	m.Mem.PutWord(masterSemAddr, 0)

	backing, err := openBacking("jaeos.swap")
	if err != nil {
		log.Error("opening backing store", "error", err)
		os.Exit(1)
	}
	pool := vm.NewPool(cfg.RAMTop - uint32(vm.SwapSize*vm.PageSize))
	vmh := vm.NewHandler(nk, pool, backing, swapSemAddr)
	uk := usyscall.NewKernel(nk, vmh, masterSemAddr)

	loop := nucleus.NewLoop(nk)

	images := make([]initproc.Image, 0, cfg.NumProcs)
	vSemBase := uint32(4096 * 62)
	termReadMutexBase := vSemBase + uint32(vm.MaxUserProc)*4
	termWriteMutexBase := termReadMutexBase + uint32(vm.MaxUserProc)*4
	printerMutexBase := termWriteMutexBase + uint32(vm.MaxUserProc)*4

	vSems := make([]int32, cfg.NumProcs)
	termReadMutexes := make([]int32, cfg.NumProcs)
	termWriteMutexes := make([]int32, cfg.NumProcs)
	printerMutexes := make([]int32, cfg.NumProcs)

	for i := 0; i < cfg.NumProcs; i++ {
		procID := i + 1
		images = append(images, initproc.Image{ProcID: procID, Path: cfg.Images[i]})

		vSems[i] = int32(vSemBase) + int32(i)*4
		termReadMutexes[i] = int32(termReadMutexBase) + int32(i)*4
		termWriteMutexes[i] = int32(termWriteMutexBase) + int32(i)*4
		printerMutexes[i] = int32(printerMutexBase) + int32(i)*4

		m.Mem.PutWord(uint32(vSems[i]), 0)
		m.Mem.PutWord(uint32(termReadMutexes[i]), 1)
		m.Mem.PutWord(uint32(termWriteMutexes[i]), 1)
		m.Mem.PutWord(uint32(printerMutexes[i]), 1)

		term := machine.NewTerminal(m.Bus, machine.LineTerminal, i, make(chan rune, 16), func(r rune) {
			os.Stdout.WriteString(string(r))
		})
		m.Bus.Attach(machine.LineTerminal, i, term)
		uk.RegisterTerminal(term)
		loop.Terminals = append(loop.Terminals, term)
	}

	if err := initproc.Boot(nk, uk, vmh, initproc.Config{
		Images:         images,
		RAMTop:         cfg.RAMTop,
		MasterSemAddr:  masterSemAddr,
		VSemAddr:       vSems,
		TermReadMutex:  termReadMutexes,
		TermWriteMutex: termWriteMutexes,
		PrinterMutex:   printerMutexes,
	}); err != nil {
		log.Error("booting user processes", "error", err)
		os.Exit(1)
	}

	mon := &console.Monitor{
		Nucleus: nk,
		VM:      vmh,
		AVSL:    uk.AVSL,
		Delays:  uk.Delays,
		Out:     os.Stdout,
	}

	loop.Start()
	loop.Run(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		loop.Stop()
		os.Exit(0)
	}()

	mon.Run()
	loop.Stop()
	log.Info("JAEOS stopped")
}
