// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for negative offsets.
	ErrInvalidArgument = errors.New("combfilter: invalid argument")
	// ErrAlignment is returned for offsets that are not a multiple of 4.
	ErrAlignment = errors.New("combfilter: unaligned access")
	// ErrFault is returned when the transfer to or from the caller's
	// buffer is short.
	ErrFault = errors.New("combfilter: bad address")
	// ErrResource is returned when a register block cannot be mapped or
	// registered.
	ErrResource = errors.New("combfilter: resource unavailable")
	// ErrClosed is returned by operations on a closed device or file.
	ErrClosed = errors.New("combfilter: device closed")
	// ErrUnknownAttribute is returned by Get and Set for names that do not
	// refer to a register.
	ErrUnknownAttribute = errors.New("combfilter: unknown attribute")
	// ErrNotFound is returned for names that are not registered.
	ErrNotFound = errors.New("combfilter: device not registered")

	// ErrNameInUse is returned by Register when another device already
	// holds the name. It matches ErrResource.
	ErrNameInUse error = &kindError{msg: "combfilter: device name in use", kind: ErrResource}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

// OpError is the error type returned by byte-stream operations.
type OpError struct {
	Op     string // "read" or "write"
	Device string
	Offset int64
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s at %#x: %v", e.Op, e.Device, e.Offset, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// ParseError is returned by Set when the text is not an unsigned integer of
// the register width. Err is the conversion error, unchanged.
type ParseError struct {
	Attr string
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("combfilter: set %s: %v", e.Attr, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
