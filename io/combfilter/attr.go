// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"encoding/binary"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Attributes returns the attribute names of the device's variant in
// register order.
func (d *Device) Attributes() []string {
	return append([]string(nil), d.variant.Attrs[:]...)
}

// Get returns the register called name as a decimal integer followed by a
// newline. Name may be an attribute name or a register name, in any case.
func (d *Device) Get(name string) (string, error) {
	r, ok := d.variant.lookup(name)
	if !ok {
		return "", xerrors.Errorf("combfilter: attribute %q: %w", name, ErrUnknownAttribute)
	}
	v, err := d.load("show", r.Offset)
	if err != nil {
		return "", err
	}
	return formatValue(v, d.variant.Width), nil
}

// Set parses text as an unsigned integer of the register width and stores it
// in the register called name. It returns len(text) on success. Malformed or
// out of range text yields a *ParseError and leaves the register unchanged.
func (d *Device) Set(name, text string) (int, error) {
	r, ok := d.variant.lookup(name)
	if !ok {
		return 0, xerrors.Errorf("combfilter: attribute %q: %w", name, ErrUnknownAttribute)
	}
	v, err := parseValue(name, text, d.variant.Width)
	if err != nil {
		return 0, err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if _, err := d.store("store", r.Offset, b[:]); err != nil {
		return 0, err
	}
	return len(text), nil
}

func formatValue(v uint32, w Width) string {
	return strconv.FormatUint(uint64(v&w.mask()), 10) + "\n"
}

// parseValue accepts the same forms as the kernel's kstrtou16 and kstrtou32
// with base 0: decimal, 0x-prefixed hex and 0-prefixed octal, with an
// optional leading plus sign and at most one trailing newline.
func parseValue(attr, text string, w Width) (uint32, error) {
	s := strings.TrimSuffix(text, "\n")
	s = strings.TrimPrefix(s, "+")
	if strings.Contains(s, "_") || hasGoPrefix(s) {
		// ParseUint accepts digit separators and 0b and 0o prefixes with
		// base 0; the kernel does not.
		return 0, &ParseError{Attr: attr, Text: text, Err: &strconv.NumError{Func: "ParseUint", Num: s, Err: strconv.ErrSyntax}}
	}
	v, err := strconv.ParseUint(s, 0, int(w))
	if err != nil {
		return 0, &ParseError{Attr: attr, Text: text, Err: err}
	}
	return uint32(v), nil
}

func hasGoPrefix(s string) bool {
	if len(s) < 2 || s[0] != '0' {
		return false
	}
	switch s[1] {
	case 'b', 'B', 'o', 'O':
		return true
	}
	return false
}
