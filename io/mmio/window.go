// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmio provides checked word access to a memory-mapped register
// window.
//
// A Window owns a mapping and exposes only aligned 32-bit loads and stores
// inside its span. Every access is a single sync/atomic operation, so a
// concurrent reader never observes a torn word.
package mmio // import "github.com/audiomini/exp/io/mmio"

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// WordSize is the size in bytes of a register word.
const WordSize = 4

var (
	// ErrAlign is returned for offsets that are not a multiple of WordSize.
	ErrAlign = errors.New("mmio: unaligned access")
	// ErrRange is returned for offsets outside the window.
	ErrRange = errors.New("mmio: offset out of range")
	// ErrShort is returned by New when the mapping is smaller than the span.
	ErrShort = errors.New("mmio: mapping shorter than span")
	// ErrClosed is returned after the window has been closed.
	ErrClosed = errors.New("mmio: window closed")
)

// Mapping is the memory backing a window, usually an *mmap.Region.
type Mapping interface {
	Bytes() []byte
	Close() error
}

// Window is a span of mapped memory accessed as 32-bit words.
//
// Load32 and Store32 may be called concurrently with each other, but not
// concurrently with Close.
type Window struct {
	m    Mapping
	b    []byte
	span int64

	once     sync.Once
	closeErr error
}

// New returns a window over the first span bytes of m. The mapping must be at
// least span bytes long and word aligned; span must be a positive multiple of
// WordSize. On error the mapping is left open.
func New(m Mapping, span int64) (*Window, error) {
	if span <= 0 || span%WordSize != 0 {
		return nil, fmt.Errorf("mmio: invalid span %d", span)
	}
	b := m.Bytes()
	if int64(len(b)) < span {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShort, len(b), span)
	}
	if uintptr(unsafe.Pointer(&b[0]))%WordSize != 0 {
		return nil, fmt.Errorf("%w: mapping base", ErrAlign)
	}
	return &Window{m: m, b: b[:span:span], span: span}, nil
}

// Span returns the size of the window in bytes.
func (w *Window) Span() int64 {
	return w.span
}

func (w *Window) word(off int64) (*uint32, error) {
	if w.b == nil {
		return nil, ErrClosed
	}
	if off < 0 || off >= w.span {
		return nil, fmt.Errorf("%w: %#x", ErrRange, off)
	}
	if off%WordSize != 0 {
		return nil, fmt.Errorf("%w: %#x", ErrAlign, off)
	}
	return (*uint32)(unsafe.Pointer(&w.b[off])), nil
}

// Load32 atomically loads the word at off.
func (w *Window) Load32(off int64) (uint32, error) {
	p, err := w.word(off)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(p), nil
}

// Store32 atomically stores v at off.
func (w *Window) Store32(off int64, v uint32) error {
	p, err := w.word(off)
	if err != nil {
		return err
	}
	atomic.StoreUint32(p, v)
	return nil
}

// Close releases the mapping. Subsequent accesses fail with ErrClosed.
func (w *Window) Close() error {
	w.once.Do(func() {
		w.b = nil
		w.closeErr = w.m.Close()
	})
	return w.closeErr
}
