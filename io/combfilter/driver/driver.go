// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver contains interfaces to be implemented by the various ways
// of reaching a comb filter register window.
package driver // import "github.com/audiomini/exp/io/combfilter/driver"

import "fmt"

// Resource describes a register block found by bus discovery.
type Resource struct {
	// Name is the device node name, e.g. "combFilterProcessor".
	Name string
	// Compatible is the tag the resource was matched on. It is only used
	// for matching and for choosing a variant.
	Compatible string
	// Base is the physical address of the register block.
	Base uint64
	// Size is the length in bytes of the block as reported by discovery.
	Size int64
}

func (r Resource) String() string {
	return fmt.Sprintf("%s@%#x+%#x", r.Name, r.Base, r.Size)
}

// Opener maps the registers of a resource.
type Opener interface {
	Open(r Resource) (Conn, error)
}

// Conn is a mapped register window. Each driver should implement this
// interface with single atomic 32-bit accesses.
type Conn interface {
	// Load32 returns the word at the byte offset off.
	Load32(off int64) (uint32, error)

	// Store32 writes the word v at the byte offset off.
	Store32(off int64, v uint32) error

	// Span returns the number of addressable bytes.
	Span() int64

	// Close unmaps the window and frees the underlying resources.
	Close() error
}
