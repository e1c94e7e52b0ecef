// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// File is a seekable handle over a device's register window, like an open
// device node. Each Read or Write moves exactly one register word and
// advances the position by 4.
type File struct {
	d *Device

	mu     sync.Mutex
	pos    int64
	closed bool
}

// Open returns a new handle positioned at offset 0.
func (d *Device) Open() *File {
	return &File{d: d}
}

// Read reads the word at the current position into p. It returns io.EOF at
// or past the end of the window and fails with ErrFault when p cannot hold a
// whole word.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, &OpError{Op: "read", Device: f.d.name, Offset: f.pos, Err: ErrClosed}
	}
	b, err := f.d.ReadWord(f.pos, len(p))
	if err != nil || b == nil {
		return 0, err
	}
	if len(p) < len(b) {
		f.d.faults.Inc()
		f.d.metrics.inc(f.d.metrics.faults)
		f.d.log.Warn("nothing copied to caller", zap.String("op", "read"), zap.Int("len", len(p)))
		return 0, &OpError{Op: "read", Device: f.d.name, Offset: f.pos, Err: ErrFault}
	}
	n := copy(p, b)
	f.pos += int64(n)
	return n, nil
}

// Write writes the first 4 bytes of p to the word at the current position.
// When p is longer than a word, or the position is at or past the end of the
// window, Write stores what it can and returns io.ErrShortWrite with the
// count, as io.Writer requires. Device.WriteWord reports the same cases
// without an error.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, &OpError{Op: "write", Device: f.d.name, Offset: f.pos, Err: ErrClosed}
	}
	n, err := f.d.WriteWord(f.pos, p)
	f.pos += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Seek sets the position for the next Read or Write. SeekEnd is relative to
// Span. Seeking to a negative position fails with ErrInvalidArgument.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, &OpError{Op: "seek", Device: f.d.name, Offset: f.pos, Err: ErrClosed}
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = Span + offset
	default:
		return 0, &OpError{Op: "seek", Device: f.d.name, Offset: offset, Err: ErrInvalidArgument}
	}
	if pos < 0 {
		return 0, &OpError{Op: "seek", Device: f.d.name, Offset: pos, Err: ErrInvalidArgument}
	}
	f.pos = pos
	return pos, nil
}

// Close closes the handle. The device stays open.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return &OpError{Op: "close", Device: f.d.name, Offset: f.pos, Err: ErrClosed}
	}
	f.closed = true
	return nil
}
