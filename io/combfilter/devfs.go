// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Devfs reaches a comb filter through the kernel driver's device node and
// sysfs attributes. You need to load the combFilter kernel module to use it.
type Devfs struct {
	// DevDir holds the device node. The zero value uses "/dev".
	DevDir string
	// ClassDir holds the sysfs attribute directories. The zero value uses
	// "/sys/class/misc".
	ClassDir string
	// Logger receives warnings. Nil discards them.
	Logger *zap.Logger
}

// Path returns the device node of variant v.
func (d *Devfs) Path(v Variant) string {
	devDir := d.DevDir
	if devDir == "" {
		devDir = "/dev"
	}
	return filepath.Join(devDir, v.Name)
}

// Open opens the device node of variant v for reading and writing.
func (d *Devfs) Open(v Variant) (*DevfsClient, error) {
	classDir := d.ClassDir
	if classDir == "" {
		classDir = "/sys/class/misc"
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	f, err := os.OpenFile(d.Path(v), os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("combfilter: open %s: %w", v.Name, err)
	}
	return &DevfsClient{
		variant: v,
		f:       f,
		attrDir: filepath.Join(classDir, v.Name),
		log:     log.With(zap.String("device", v.Name)),
	}, nil
}

// DevfsClient is an open kernel-driver device. Offsets and attribute text
// are validated before they reach the kernel, so it fails the same way a
// Device does.
type DevfsClient struct {
	variant Variant
	f       *os.File
	attrDir string
	log     *zap.Logger
}

// ReadWord reads the word at off with pread(2).
func (c *DevfsClient) ReadWord(off int64, length int) ([]byte, error) {
	eof, err := checkOffset(c.log, "read", c.variant.Name, off)
	if err != nil {
		return nil, err
	}
	if eof {
		return nil, io.EOF
	}
	if length == 0 {
		return nil, nil
	}
	b := make([]byte, 4)
	if _, err := c.f.ReadAt(b, off); err != nil {
		return nil, c.opError("read", off, err)
	}
	return b, nil
}

// WriteWord writes the first 4 bytes of data at off with pwrite(2).
func (c *DevfsClient) WriteWord(off int64, data []byte) (int, error) {
	eof, err := checkOffset(c.log, "write", c.variant.Name, off)
	if err != nil || eof {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) < 4 {
		return 0, &OpError{Op: "write", Device: c.variant.Name, Offset: off, Err: ErrFault}
	}
	n, err := c.f.WriteAt(data[:4], off)
	if err != nil {
		return n, c.opError("write", off, err)
	}
	return n, nil
}

func (c *DevfsClient) opError(op string, off int64, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EINVAL:
			err = ErrInvalidArgument
		case syscall.EFAULT:
			err = ErrFault
		}
	}
	return &OpError{Op: op, Device: c.variant.Name, Offset: off, Err: err}
}

// Attributes returns the sysfs attribute names of the variant.
func (c *DevfsClient) Attributes() []string {
	return append([]string(nil), c.variant.Attrs[:]...)
}

func (c *DevfsClient) attrPath(name string) (string, error) {
	i := c.variant.index(name)
	if i < 0 {
		return "", xerrors.Errorf("combfilter: attribute %q: %w", name, ErrUnknownAttribute)
	}
	return filepath.Join(c.attrDir, c.variant.Attrs[i]), nil
}

// Get reads the sysfs attribute for name.
func (c *DevfsClient) Get(name string) (string, error) {
	p, err := c.attrPath(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", xerrors.Errorf("combfilter: show %s: %w", name, err)
	}
	return string(b), nil
}

// Set writes text to the sysfs attribute for name.
func (c *DevfsClient) Set(name, text string) (int, error) {
	p, err := c.attrPath(name)
	if err != nil {
		return 0, err
	}
	if _, err := parseValue(name, text, c.variant.Width); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(p, os.O_WRONLY, 0)
	if err != nil {
		return 0, xerrors.Errorf("combfilter: store %s: %w", name, err)
	}
	n, err := f.WriteString(text)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, xerrors.Errorf("combfilter: store %s: %w", name, err)
	}
	return n, nil
}

// Close closes the device node.
func (c *DevfsClient) Close() error {
	return c.f.Close()
}
