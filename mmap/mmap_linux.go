// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

// Package mmap provides read-write memory mappings of device memory.
package mmap

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// debug is whether to print debugging messages for manual testing.
const debug = false

// Region is a read-write shared mapping.
type Region struct {
	b    []byte // requested range
	m    []byte // page-aligned mapping handed to munmap
	base int64

	mu     sync.Mutex
	closed bool
}

// Close unmaps the region. Calling Close more than once is a no-op.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	runtime.SetFinalizer(r, nil)

	err := unix.Munmap(r.m)
	if debug {
		println("munmap", len(r.b), "err=", err)
	}
	return err
}

// Bytes returns the mapped memory. It must not be used after Close.
func (r *Region) Bytes() []byte {
	return r.b
}

// Len returns the number of mapped bytes.
func (r *Region) Len() int {
	return len(r.b)
}

// Base returns the offset within the mapped file that the region starts at.
func (r *Region) Base() int64 {
	return r.base
}

// Map maps size bytes of the named file starting at off, which is usually a
// physical address when the file is /dev/mem. off does not have to be page
// aligned; the mapping is widened to the enclosing pages and Bytes returns
// exactly the requested range.
func Map(filename string, off int64, size int) (*Region, error) {
	if off < 0 || size <= 0 {
		return nil, fmt.Errorf("mmap: invalid range [%#x, +%d)", off, size)
	}
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	page := int64(unix.Getpagesize())
	start := off &^ (page - 1)
	delta := int(off - start)
	b, err := unix.Mmap(int(f.Fd()), start, delta+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if debug {
		println("mmap", filename, start, delta+size, "err=", err)
	}
	if err != nil {
		return nil, fmt.Errorf("mmap: %s at %#x: %w", filename, off, err)
	}
	r := &Region{b: b[delta : delta+size : delta+size], m: b, base: off}
	runtime.SetFinalizer(r, (*Region).Close)
	return r, nil
}

// Anonymous returns a zero-filled private mapping of size bytes. It stands in
// for device memory in simulations and tests.
func Anonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: anonymous %d bytes: %w", size, err)
	}
	r := &Region{b: b, m: b}
	runtime.SetFinalizer(r, (*Region).Close)
	return r, nil
}
