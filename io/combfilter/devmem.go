// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"github.com/audiomini/exp/io/combfilter/driver"
	"github.com/audiomini/exp/io/mmio"
	"github.com/audiomini/exp/mmap"
)

// Devmem is an Opener that maps the register block through /dev/mem.
// It needs CAP_SYS_RAWIO and a kernel that allows /dev/mem access to the
// block's physical range.
type Devmem struct {
	// Path is the memory device to map. The zero value uses "/dev/mem".
	Path string
}

func (d *Devmem) Open(r driver.Resource) (driver.Conn, error) {
	path := d.Path
	if path == "" {
		path = "/dev/mem"
	}
	size := r.Size
	if size == 0 {
		size = Span
	}
	reg, err := mmap.Map(path, int64(r.Base), int(size))
	if err != nil {
		return nil, err
	}
	w, err := mmio.New(reg, Span)
	if err != nil {
		reg.Close()
		return nil, err
	}
	return w, nil
}

// Memory is an Opener backed by anonymous memory. Every Open returns a new
// zeroed window, which makes it a stand-in for hardware in simulations and
// tests.
type Memory struct{}

func (Memory) Open(r driver.Resource) (driver.Conn, error) {
	size := r.Size
	if size == 0 {
		size = Span
	}
	reg, err := mmap.Anonymous(int(size))
	if err != nil {
		return nil, err
	}
	w, err := mmio.New(reg, Span)
	if err != nil {
		reg.Close()
		return nil, err
	}
	return w, nil
}
