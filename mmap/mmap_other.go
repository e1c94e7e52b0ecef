// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux
// +build !linux

// Package mmap provides read-write memory mappings of device memory.
package mmap

import (
	"errors"
	"fmt"
	"unsafe"
)

// Region is a read-write mapping. Off Linux only anonymous regions are
// supported and they are backed by the Go heap.
type Region struct {
	b    []byte
	base int64
}

// Close releases the region.
func (r *Region) Close() error {
	r.b = nil
	return nil
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

// Map is only implemented on Linux.
func Map(filename string, off int64, size int) (*Region, error) {
	return nil, errors.New("mmap: mapping device memory is not supported on this platform")
}

// Anonymous returns a zero-filled region of size bytes.
func Anonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	// Allocate words so the region is suitably aligned for 32-bit atomics.
	w := make([]uint32, (size+3)/4)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), size)
	return &Region{b: b}, nil
}
