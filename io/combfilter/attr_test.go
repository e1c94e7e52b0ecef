// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSet(t *testing.T) {
	for _, tt := range []struct {
		variant Variant
		text    string
		want    uint32
	}{
		{Variant32, "0", 0},
		{Variant32, "42", 42},
		{Variant32, "42\n", 42},
		{Variant32, "0x2a", 42},
		{Variant32, "052", 42},
		{Variant32, "4294967295", 0xFFFFFFFF},
		{Variant16, "65535", 0xFFFF},
		{Variant16, "0xffff\n", 0xFFFF},
		{Variant32, "+42", 42},
		{Variant16, "+0x10\n", 16},
	} {
		d, c := newTestDevice(t, tt.variant)
		n, err := d.Set("wetDryMix", tt.text)
		if err != nil {
			t.Errorf("%v: Set(%q): %v", tt.variant, tt.text, err)
			continue
		}
		if n != len(tt.text) {
			t.Errorf("%v: Set(%q) = %d, want %d", tt.variant, tt.text, n, len(tt.text))
		}
		if got := peek(t, c, 0x0C); got != tt.want {
			t.Errorf("%v: Set(%q) stored %d, want %d", tt.variant, tt.text, got, tt.want)
		}
	}
}

func TestSetParseError(t *testing.T) {
	for _, tt := range []struct {
		variant Variant
		text    string
		want    error
	}{
		{Variant32, "", strconv.ErrSyntax},
		{Variant32, "abc", strconv.ErrSyntax},
		{Variant32, "-1", strconv.ErrSyntax},
		{Variant32, "12abc", strconv.ErrSyntax},
		{Variant32, "42\n\n", strconv.ErrSyntax},
		{Variant32, " 42", strconv.ErrSyntax},
		{Variant32, "1_000", strconv.ErrSyntax},
		{Variant32, "+", strconv.ErrSyntax},
		{Variant32, "++1", strconv.ErrSyntax},
		{Variant32, "+-1", strconv.ErrSyntax},
		{Variant32, "0b101", strconv.ErrSyntax},
		{Variant16, "0o17", strconv.ErrSyntax},
		{Variant32, "4294967296", strconv.ErrRange},
		{Variant16, "65536", strconv.ErrRange},
		{Variant16, "70000", strconv.ErrRange},
	} {
		d, c := newTestDevice(t, tt.variant)
		d.Set("bm", "7")
		stores := c.stores.Load()

		n, err := d.Set("bm", tt.text)
		if n != 0 {
			t.Errorf("%v: Set(%q) = %d, want 0", tt.variant, tt.text, n)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%v: Set(%q) error = %v, want *ParseError", tt.variant, tt.text, err)
			continue
		}
		if pe.Attr != "bm" || pe.Text != tt.text {
			t.Errorf("%v: ParseError = %+v", tt.variant, pe)
		}
		var ne *strconv.NumError
		if !errors.As(err, &ne) || !errors.Is(err, tt.want) {
			t.Errorf("%v: Set(%q) error = %v, want conversion error %v", tt.variant, tt.text, err, tt.want)
		}
		if c.stores.Load() != stores {
			t.Errorf("%v: Set(%q) reached the window", tt.variant, tt.text)
		}
		if s, _ := d.Get("bm"); s != "7\n" {
			t.Errorf("%v: bm = %q after failed Set, want \"7\\n\"", tt.variant, s)
		}
	}
}

func TestGet16BitMask(t *testing.T) {
	d, _ := newTestDevice(t, Variant16)
	d.WriteWord(0, word(0x00010005))
	if s, err := d.Get("delaym"); s != "5\n" || err != nil {
		t.Errorf("Get(delaym) = %q, %v; want \"5\\n\"", s, err)
	}
	got, _ := d.ReadWord(0, 4)
	if diff := cmp.Diff(word(0x00010005), got); diff != "" {
		t.Errorf("byte stream sees masked word (-want, +got):\n%s", diff)
	}
}

func TestAttributeNames(t *testing.T) {
	d, _ := newTestDevice(t, Variant32)
	want := []string{"delaym", "b0", "bm", "wetDryMix"}
	if diff := cmp.Diff(want, d.Attributes()); diff != "" {
		t.Errorf("Attributes mismatch (-want, +got):\n%s", diff)
	}
	d16, _ := newTestDevice(t, Variant16)
	want16 := []string{"delaym", "b0", "bm", "wetdrymix"}
	if diff := cmp.Diff(want16, d16.Attributes()); diff != "" {
		t.Errorf("16-bit Attributes mismatch (-want, +got):\n%s", diff)
	}

	for i, name := range []string{"delay", "delaym", "DELAYM", "B0", "bm", "wetdrymix", "wetDryMix"} {
		v := strconv.Itoa(i + 1)
		if _, err := d.Set(name, v); err != nil {
			t.Errorf("Set(%q): %v", name, err)
			continue
		}
		if s, err := d.Get(name); s != v+"\n" || err != nil {
			t.Errorf("Get(%q) = %q, %v; want %q", name, s, err, v+"\n")
		}
	}

	if _, err := d.Get("gain"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Get(gain) error = %v, want ErrUnknownAttribute", err)
	}
	if _, err := d.Set("gain", "1"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Set(gain) error = %v, want ErrUnknownAttribute", err)
	}
}

func TestSetTakesGuard(t *testing.T) {
	d, _ := newTestDevice(t, Variant32)
	d.Set("b0", "1")
	d.WriteWord(4, word(2))
	if got := d.Stats().GuardAcquisitions; got != 2 {
		t.Errorf("GuardAcquisitions = %d, want 2", got)
	}
}
