// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"fmt"
	"strings"
)

// Span is the size in bytes of the register window.
const Span = 0x10

// Register is one 4-byte slot of the window.
type Register struct {
	Name   string
	Offset int64
}

// Registers lists the comb filter registers in address order.
var Registers = [...]Register{
	{Name: "delay", Offset: 0x00},
	{Name: "b0", Offset: 0x04},
	{Name: "bm", Offset: 0x08},
	{Name: "wetDryMix", Offset: 0x0C},
}

// Width is the number of significant bits in a register.
type Width int

const (
	Width16 Width = 16
	Width32 Width = 32
)

func (w Width) mask() uint32 {
	if w == Width16 {
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

// Variant describes one build of the comb filter component.
type Variant struct {
	// Name is the device node name.
	Name string
	// Compatible is the device tree compatible string of the component.
	Compatible string
	// Width is the register width used by the attribute interface.
	Width Width
	// Attrs holds the attribute names in register order.
	Attrs [len(Registers)]string
}

var (
	// Variant16 is the component with 16-bit attribute registers.
	Variant16 = Variant{
		Name:       "combFilterProcessor_0",
		Compatible: "zab,combFilterProcessor_0",
		Width:      Width16,
		Attrs:      [...]string{"delaym", "b0", "bm", "wetdrymix"},
	}
	// Variant32 is the component with 32-bit attribute registers.
	Variant32 = Variant{
		Name:       "combFilterProcessor",
		Compatible: "kds,combFilterProcessor",
		Width:      Width32,
		Attrs:      [...]string{"delaym", "b0", "bm", "wetDryMix"},
	}
)

// Variants is the compatible match table.
var Variants = []Variant{Variant16, Variant32}

// VariantFor returns the variant matching a compatible string.
func VariantFor(compatible string) (Variant, bool) {
	for _, v := range Variants {
		if v.Compatible == compatible {
			return v, true
		}
	}
	return Variant{}, false
}

func (v Variant) String() string {
	return fmt.Sprintf("%s (%d-bit)", v.Name, v.Width)
}

// index resolves an attribute or register name, ignoring case, to an index
// into Registers. It returns -1 for unknown names.
func (v Variant) index(name string) int {
	for i, r := range Registers {
		if strings.EqualFold(name, r.Name) || strings.EqualFold(name, v.Attrs[i]) {
			return i
		}
	}
	return -1
}

func (v Variant) lookup(name string) (Register, bool) {
	i := v.index(name)
	if i < 0 {
		return Register{}, false
	}
	return Registers[i], true
}
