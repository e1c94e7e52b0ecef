// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The combfilterctl command reads and writes the registers of a comb filter
// audio effect.
//
// Usage:
//
//	combfilterctl [flags] [shell]
//
// The devfs backend goes through the kernel driver's /dev node and sysfs
// attributes, loading the kernel module first unless -auto-load=false is
// given. The devmem backend maps the registers directly through
// /dev/mem, at -base or at the address found in the device tree. The sim
// backend uses an in-memory register block.
//
// With the shell argument, combfilterctl reads commands from standard input
// after the flags have been handled. Type help in the shell for a list.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-logr/logr/funcr"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/audiomini/exp/io/combfilter"
	"github.com/audiomini/exp/io/combfilter/driver"
	"github.com/audiomini/exp/io/combfilter/platform"
	"github.com/audiomini/exp/kmod"
	zgokit "github.com/audiomini/exp/log-adapters/go-kit"
	zlogr "github.com/audiomini/exp/log-adapters/logr"
	zlogrus "github.com/audiomini/exp/log-adapters/logrus"
	zzerolog "github.com/audiomini/exp/log-adapters/zerolog"
)

const (
	wordSize = 4

	defaultModule     = "combFilter"
	defaultModulePath = "/lib/modules/combFilter.ko"
)

// modules and devfs are replaced in tests.
var (
	modules = &kmod.Modules{}
	devfs   = &combfilter.Devfs{}
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("combfilterctl: ")
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// assignments collects repeated name=value flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("%q is not name=value", s)
	}
	*a = append(*a, s)
	return nil
}

type config struct {
	read       string
	write      string
	sets       assignments
	showRegs   bool
	status     bool
	loadModule bool
	autoLoad   bool
	unload     bool
	module     string
	modulePath string
	backend    string
	variant    int
	base       string
	devtree    string
	logger     string
	verbose    bool
	shell      bool
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	var c config
	fs := flag.NewFlagSet("combfilterctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.read, "read", "", "read the register word at `offset`")
	fs.StringVar(&c.write, "write", "", "write a word, given as `offset=value`")
	fs.Var(&c.sets, "set", "set an attribute, given as `name=value`; may be repeated")
	fs.BoolVar(&c.showRegs, "show-regs", false, "show every attribute")
	fs.BoolVar(&c.status, "status", false, "report module and device status")
	fs.BoolVar(&c.loadModule, "load-module", false, "load the kernel module unless it is loaded")
	fs.BoolVar(&c.autoLoad, "auto-load", true, "load the kernel module before opening the devfs backend")
	fs.BoolVar(&c.unload, "unload-module", false, "unload the kernel module if it is loaded")
	fs.StringVar(&c.module, "module", defaultModule, "kernel module `name`")
	fs.StringVar(&c.modulePath, "module-path", defaultModulePath, "kernel module object `file`")
	fs.StringVar(&c.backend, "backend", "devfs", "register access: devfs, devmem or sim")
	fs.IntVar(&c.variant, "variant", 32, "attribute register width: 16 or 32")
	fs.StringVar(&c.base, "base", "", "physical base `address` for devmem and sim")
	fs.StringVar(&c.devtree, "devtree", "", "device tree `dir` to search for the register block (devmem default "+platform.Root+")")
	fs.StringVar(&c.logger, "log", "zap", "log through zap, logrus, zerolog, gokit or logr")
	fs.BoolVar(&c.verbose, "v", false, "log debug messages")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: combfilterctl [flags] [shell]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		if fs.Arg(0) != "shell" {
			return nil, fmt.Errorf("unknown command %q", fs.Arg(0))
		}
		c.shell = true
	default:
		return nil, fmt.Errorf("too many arguments: %q", fs.Args())
	}
	return &c, nil
}

func (c *config) accessesRegisters() bool {
	return c.read != "" || c.write != "" || len(c.sets) > 0 || c.showRegs || c.shell
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(c.logger, c.verbose, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()
	modules.Logger = logger
	devfs.Logger = logger

	if c.unload {
		if err := modules.Unload(c.module); errors.Is(err, kmod.ErrNotLoaded) {
			fmt.Fprintf(stdout, "Module %s is not loaded\n", c.module)
		} else if err != nil {
			return err
		} else {
			fmt.Fprintf(stdout, "Module %s unloaded\n", c.module)
		}
	}
	if c.loadModule {
		if err := loadModule(stdout, c.modulePath); err != nil {
			return err
		}
	}

	var (
		ctl combfilter.Controller
		reg *combfilter.Registry
	)
	if c.accessesRegisters() || (c.status && c.backend != "devfs") {
		ctl, reg, err = open(ctx, c, logger, stdout)
		if err != nil {
			return err
		}
		if reg != nil {
			defer reg.Close(ctx)
		} else {
			defer ctl.Close()
		}
	}

	for _, a := range c.sets {
		name, value, _ := strings.Cut(a, "=")
		if err := setAttr(stdout, ctl, name, value); err != nil {
			return err
		}
	}
	if c.write != "" {
		o, v, ok := strings.Cut(c.write, "=")
		if !ok {
			return fmt.Errorf("-write %q is not offset=value", c.write)
		}
		off, err := parseOffset(o)
		if err != nil {
			return err
		}
		val, err := parseWord(v)
		if err != nil {
			return err
		}
		if err := writeReg(stdout, ctl, off, val); err != nil {
			return err
		}
	}
	if c.read != "" {
		off, err := parseOffset(c.read)
		if err != nil {
			return err
		}
		if err := readReg(stdout, ctl, off); err != nil {
			return err
		}
	}
	if c.showRegs {
		if err := showRegs(stdout, ctl); err != nil {
			return err
		}
	}
	if c.shell {
		if err := runShell(ctl, stdin, stdout); err != nil {
			return err
		}
	}
	if c.status {
		return status(stdout, c, reg)
	}
	return nil
}

func variantFor(bits int) (combfilter.Variant, error) {
	switch bits {
	case 16:
		return combfilter.Variant16, nil
	case 32:
		return combfilter.Variant32, nil
	}
	return combfilter.Variant{}, fmt.Errorf("unsupported variant %d, want 16 or 32", bits)
}

// open returns the controller for the configured backend. The registry is
// nil for the devfs backend, where the kernel owns the device.
func open(ctx context.Context, c *config, logger *zap.Logger, stdout io.Writer) (combfilter.Controller, *combfilter.Registry, error) {
	v, err := variantFor(c.variant)
	if err != nil {
		return nil, nil, err
	}
	var opener driver.Opener
	switch c.backend {
	case "devfs":
		if c.autoLoad {
			loaded, err := modules.Loaded(c.module)
			if err != nil {
				return nil, nil, err
			}
			if !loaded {
				fmt.Fprintf(stdout, "Module %s is not loaded. Attempting to load...\n", c.module)
				if err := loadModule(stdout, c.modulePath); err != nil {
					return nil, nil, err
				}
			}
		}
		ctl, err := devfs.Open(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w; check that module %s is loaded and %s exists", err, c.module, devfs.Path(v))
		}
		return ctl, nil, nil
	case "devmem":
		opener = &combfilter.Devmem{}
		if c.devtree == "" {
			c.devtree = platform.Root
		}
	case "sim":
		opener = combfilter.Memory{}
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", c.backend)
	}

	res, err := resourceFor(c, v, logger)
	if err != nil {
		return nil, nil, err
	}
	reg := combfilter.NewRegistry(combfilter.WithLogger(logger), combfilter.WithVariant(v))
	d, err := reg.Probe(ctx, res, opener)
	if err != nil {
		return nil, nil, err
	}
	return d, reg, nil
}

func resourceFor(c *config, v combfilter.Variant, logger *zap.Logger) (driver.Resource, error) {
	if c.base != "" || c.devtree == "" {
		var base uint64
		if c.base != "" {
			b, err := strconv.ParseUint(c.base, 0, 64)
			if err != nil {
				return driver.Resource{}, fmt.Errorf("-base: %v", err)
			}
			base = b
		}
		return driver.Resource{Name: v.Name, Compatible: v.Compatible, Base: base, Size: combfilter.Span}, nil
	}
	found, err := platform.Discover(os.DirFS(c.devtree), v.Compatible)
	if err != nil {
		if len(found) == 0 {
			return driver.Resource{}, err
		}
		logger.Warn("skipped malformed device tree nodes", zap.Error(err))
	}
	if len(found) == 0 {
		return driver.Resource{}, fmt.Errorf("no %s node in %s", v.Compatible, c.devtree)
	}
	return found[0], nil
}

func newLogger(kind string, verbose bool, w io.Writer) (*zap.Logger, error) {
	lvl := zap.WarnLevel
	if verbose {
		lvl = zap.DebugLevel
	}
	var core zapcore.Core
	switch kind {
	case "zap":
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core = zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrus.DebugLevel)
		core = zlogrus.NewCore(l, lvl)
	case "zerolog":
		core = zzerolog.NewCore(zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger(), lvl)
	case "gokit":
		l := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
		core = zgokit.NewCore(kitlog.With(l, "ts", kitlog.DefaultTimestampUTC), lvl)
	case "logr":
		l := funcr.New(func(prefix, args string) {
			if prefix != "" {
				fmt.Fprintf(w, "%s: %s\n", prefix, args)
			} else {
				fmt.Fprintln(w, args)
			}
		}, funcr.Options{Verbosity: 1})
		core = zlogr.NewCore(l, lvl)
	default:
		return nil, fmt.Errorf("unknown logger %q", kind)
	}
	return zap.New(core).Named("combfilter"), nil
}

// loadModule inserts the module object at path. A module that is already
// resident is reported, not treated as an error.
func loadModule(w io.Writer, path string) error {
	name := kmod.Name(path)
	err := modules.Load(path, "")
	switch {
	case errors.Is(err, kmod.ErrLoaded):
		fmt.Fprintf(w, "Module %s is already loaded\n", name)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("module file %s does not exist: %w", path, err)
	case err != nil:
		return err
	default:
		fmt.Fprintf(w, "Module %s loaded successfully\n", name)
	}
	return nil
}

func status(w io.Writer, c *config, reg *combfilter.Registry) error {
	loaded, err := modules.Loaded(c.module)
	if err != nil {
		return err
	}
	switch node, ok := devfsNode(c); {
	case !loaded:
		fmt.Fprintf(w, "Module %s is not loaded\n", c.module)
	case c.backend == "devfs" && !ok:
		fmt.Fprintf(w, "Warning: Module %s is loaded, but device file %s not found\n", c.module, node)
	default:
		fmt.Fprintf(w, "Module %s is loaded\n", c.module)
	}
	if reg == nil {
		return nil
	}
	for _, st := range reg.Status() {
		fmt.Fprintf(w, "%s (%s): %v, reads=%d writes=%d guards=%d faults=%d\n",
			st.Name, st.Variant, st.State,
			st.Stats.Reads, st.Stats.Writes, st.Stats.GuardAcquisitions, st.Stats.Faults)
	}
	return nil
}

// devfsNode reports the device node of the configured variant and whether
// it exists.
func devfsNode(c *config) (string, bool) {
	v, err := variantFor(c.variant)
	if err != nil {
		v = combfilter.Variant32
	}
	node := devfs.Path(v)
	_, err = os.Stat(node)
	return node, err == nil
}

func readReg(w io.Writer, c combfilter.Controller, off int64) error {
	b, err := c.ReadWord(off, wordSize)
	if err == io.EOF {
		fmt.Fprintf(w, "No data read from offset %d\n", off)
		return nil
	}
	if err != nil {
		return err
	}
	v := binary.LittleEndian.Uint32(b)
	fmt.Fprintf(w, "Read from offset %d: 0x%08x (%d)\n", off, v, v)
	return nil
}

func writeReg(w io.Writer, c combfilter.Controller, off int64, v uint32) error {
	b := make([]byte, wordSize)
	binary.LittleEndian.PutUint32(b, v)
	n, err := c.WriteWord(off, b)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintf(w, "No data written at offset %d\n", off)
		return nil
	}
	fmt.Fprintf(w, "Wrote 0x%08x (%d) to offset %d\n", v, v, off)
	return nil
}

func showRegs(w io.Writer, c combfilter.Controller) error {
	for _, name := range c.Attributes() {
		s, err := c.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", name, strings.TrimSuffix(s, "\n"))
	}
	return nil
}

func getAttr(w io.Writer, c combfilter.Controller, name string) error {
	s, err := c.Get(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s\n", name, strings.TrimSuffix(s, "\n"))
	return nil
}

func setAttr(w io.Writer, c combfilter.Controller, name, value string) error {
	if _, err := c.Set(name, value); err != nil {
		return err
	}
	fmt.Fprintf(w, "Set %s to %s\n", name, value)
	return nil
}

func parseOffset(s string) (int64, error) {
	off, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad offset %q: %v", s, err)
	}
	return off, nil
}

func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %v", s, err)
	}
	return uint32(v), nil
}
