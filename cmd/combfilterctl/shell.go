// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/audiomini/exp/io/combfilter"
)

const prompt = "combfilter> "

const shellHelp = `commands:
  read <offset>           read the register word at offset
  write <offset> <value>  write a register word
  get <name>              show an attribute
  set <name> <value>      set an attribute
  show                    show every attribute
  help                    print this message
  quit                    leave the shell
`

// runShell reads commands from in until quit or end of input. A terminal
// gets line editing and history; anything else is read line by line with
// no prompt.
func runShell(c combfilter.Controller, in io.Reader, out io.Writer) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return terminalShell(c, f, out)
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if quit := execLine(c, out, sc.Text()); quit {
			return nil
		}
	}
	return sc.Err()
}

func terminalShell(c combfilter.Controller, f *os.File, out io.Writer) error {
	fd := int(f.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, old)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, out}, prompt)
	t.AutoCompleteCallback = completer(c)
	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := execLine(c, t, line); quit {
			return nil
		}
	}
}

var commands = []string{"read", "write", "get", "set", "show", "help", "quit"}

// completer completes command names in the first word and attribute names
// in the second word of get and set.
func completer(c combfilter.Controller) func(line string, pos int, key rune) (string, int, bool) {
	return func(line string, pos int, key rune) (string, int, bool) {
		if key != '\t' || pos != len(line) {
			return "", 0, false
		}
		fields := strings.Fields(line)
		var (
			word  string
			cands []string
		)
		switch {
		case len(fields) == 1 && !strings.HasSuffix(line, " "):
			word, cands = fields[0], commands
		case len(fields) == 2 && (fields[0] == "get" || fields[0] == "set") && !strings.HasSuffix(line, " "):
			word, cands = fields[1], c.Attributes()
		default:
			return "", 0, false
		}
		var match string
		for _, cand := range cands {
			if strings.HasPrefix(strings.ToLower(cand), strings.ToLower(word)) {
				if match != "" {
					return "", 0, false
				}
				match = cand
			}
		}
		if match == "" {
			return "", 0, false
		}
		line = line[:len(line)-len(word)] + match + " "
		return line, len(line), true
	}
}

// execLine runs one shell command and reports whether the shell should
// exit. Errors are printed and do not end the shell.
func execLine(c combfilter.Controller, w io.Writer, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]
	nargs := map[string]int{"read": 1, "write": 2, "get": 1, "set": 2, "show": 0, "help": 0, "quit": 0, "exit": 0}
	want, ok := nargs[fields[0]]
	if !ok {
		fmt.Fprintf(w, "unknown command %q; try help\n", fields[0])
		return false
	}
	if len(args) != want {
		fmt.Fprintf(w, "%s takes %d arguments\n", fields[0], want)
		return false
	}

	var err error
	switch fields[0] {
	case "read":
		var off int64
		if off, err = parseOffset(args[0]); err == nil {
			err = readReg(w, c, off)
		}
	case "write":
		var (
			off int64
			v   uint32
		)
		if off, err = parseOffset(args[0]); err == nil {
			if v, err = parseWord(args[1]); err == nil {
				err = writeReg(w, c, off, v)
			}
		}
	case "get":
		err = getAttr(w, c, args[0])
	case "set":
		err = setAttr(w, c, args[0], args[1])
	case "show":
		err = showRegs(w, c)
	case "help":
		io.WriteString(w, shellHelp)
	case "quit", "exit":
		return true
	}
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return false
}
