/*
 * JAEOS  - Kernel boot-parameter file parser
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

// Package bootconfig parses the kernel boot-parameter file: how many
// user processes to spawn, where RAM ends, which tape image backs
// each process, and whether the run is in debug mode. Grounded on
// config/configparser's line-oriented, hand-rolled scanner rather than
// a third-party config library — the teacher hand-rolls its own
// config format too, so this keeps the same "no dependency" shape for
// a much smaller grammar.
package bootconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config is the fully parsed boot-parameter file.
type Config struct {
	NumProcs int
	RAMTop   uint32
	Debug    bool

	// Images is keyed by process id (1-based); Images[i-1] is the
	// tape image path for process i.
	Images []string
}

/* Boot-parameter file format:
 *
 * '#' indicates a comment, rest of line ignored.
 * blank lines are ignored.
 * <line> := 'nprocs' <number> |
 *           'ramtop' <number> |
 *           'debug' |
 *           'proc' <number> <path>
 *
 * <number> accepts a trailing 'k' or 'm' as a *1024/*1024*1024
 * multiplier, matching the teacher's <address> ::= <number><K|M> rule.
 */

// Load reads and parses a boot-parameter file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := cfg.parseLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("bootconfig: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if cfg.NumProcs > len(cfg.Images) {
		return nil, fmt.Errorf("bootconfig: nprocs %d declared but only %d proc lines given",
			cfg.NumProcs, len(cfg.Images))
	}
	return cfg, nil
}

func (c *Config) parseLine(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "nprocs":
		if len(fields) != 2 {
			return errors.New("nprocs requires exactly one value")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("nprocs: %w", err)
		}
		c.NumProcs = n

	case "ramtop":
		if len(fields) != 2 {
			return errors.New("ramtop requires exactly one value")
		}
		v, err := parseSize(fields[1])
		if err != nil {
			return fmt.Errorf("ramtop: %w", err)
		}
		c.RAMTop = v

	case "debug":
		if len(fields) != 1 {
			return errors.New("debug takes no value")
		}
		c.Debug = true

	case "proc":
		if len(fields) != 3 {
			return errors.New("proc requires a process id and an image path")
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("proc id: %w", err)
		}
		if id < 1 {
			return fmt.Errorf("proc id %d must be >= 1", id)
		}
		for len(c.Images) < id {
			c.Images = append(c.Images, "")
		}
		c.Images[id-1] = fields[2]

	default:
		return fmt.Errorf("unknown directive %q", fields[0])
	}
	return nil
}

// parseSize parses a plain decimal number with an optional trailing
// 'k'/'K' or 'm'/'M' multiplier, the same suffix rule configparser.go
// documents for its <address> grammar.
func parseSize(s string) (uint32, error) {
	mult := uint64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v * mult), nil
}
