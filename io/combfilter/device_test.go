// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/audiomini/exp/io/combfilter/driver"
)

// countingConn records every access that reaches the window.
type countingConn struct {
	driver.Conn
	loads  atomic.Int64
	stores atomic.Int64
	closes atomic.Int64
}

func (c *countingConn) Load32(off int64) (uint32, error) {
	c.loads.Inc()
	return c.Conn.Load32(off)
}

func (c *countingConn) Store32(off int64, v uint32) error {
	c.stores.Inc()
	return c.Conn.Store32(off, v)
}

func (c *countingConn) Close() error {
	c.closes.Inc()
	return c.Conn.Close()
}

type countingOpener struct {
	conns []*countingConn
}

func (o *countingOpener) Open(r driver.Resource) (driver.Conn, error) {
	c, err := Memory{}.Open(r)
	if err != nil {
		return nil, err
	}
	cc := &countingConn{Conn: c}
	o.conns = append(o.conns, cc)
	return cc, nil
}

func newTestDevice(t *testing.T, v Variant, opts ...Option) (*Device, *countingConn) {
	t.Helper()
	o := &countingOpener{}
	res := driver.Resource{Name: v.Name, Compatible: v.Compatible, Base: 0xff200000, Size: Span}
	d, err := Map(res, o, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d, o.conns[0]
}

func word(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func peek(t *testing.T, c *countingConn, off int64) uint32 {
	t.Helper()
	v, err := c.Conn.Load32(off)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	d, _ := newTestDevice(t, Variant32)
	for _, r := range Registers {
		for _, v := range []uint32{0, 1, 42, 0x12345678, 0xFFFFFFFF} {
			n, err := d.WriteWord(r.Offset, word(v))
			if err != nil || n != 4 {
				t.Fatalf("WriteWord(%#x, %d) = %d, %v; want 4, nil", r.Offset, v, n, err)
			}
			got, err := d.ReadWord(r.Offset, 4)
			if err != nil {
				t.Fatalf("ReadWord(%#x): %v", r.Offset, err)
			}
			if diff := cmp.Diff(word(v), got); diff != "" {
				t.Errorf("ReadWord(%#x) mismatch (-want, +got):\n%s", r.Offset, diff)
			}
		}
	}
}

func TestReadAlwaysOneWord(t *testing.T) {
	d, _ := newTestDevice(t, Variant32)
	d.WriteWord(8, word(500))
	for _, length := range []int{1, 3, 4, 8, 4096} {
		got, err := d.ReadWord(8, length)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(word(500), got); diff != "" {
			t.Errorf("ReadWord(8, %d) mismatch (-want, +got):\n%s", length, diff)
		}
	}
}

func TestRejectedOffsets(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d, c := newTestDevice(t, Variant32, WithLogger(zap.New(core)))
	for _, r := range Registers {
		d.WriteWord(r.Offset, word(0xA5A5A5A5))
	}
	loads, stores := c.loads.Load(), c.stores.Load()

	for _, tt := range []struct {
		off  int64
		want error
	}{
		{-1, ErrInvalidArgument},
		{-4, ErrInvalidArgument},
		{1, ErrAlignment},
		{2, ErrAlignment},
		{3, ErrAlignment},
		{6, ErrAlignment},
		{13, ErrAlignment},
		{15, ErrAlignment},
	} {
		if _, err := d.ReadWord(tt.off, 4); !errors.Is(err, tt.want) {
			t.Errorf("ReadWord(%d) error = %v, want %v", tt.off, err, tt.want)
		}
		if n, err := d.WriteWord(tt.off, word(1)); n != 0 || !errors.Is(err, tt.want) {
			t.Errorf("WriteWord(%d) = %d, %v; want 0, %v", tt.off, n, err, tt.want)
		}
		var opErr *OpError
		if _, err := d.ReadWord(tt.off, 4); !errors.As(err, &opErr) || opErr.Offset != tt.off {
			t.Errorf("ReadWord(%d) error = %#v, want *OpError at that offset", tt.off, err)
		}
	}

	if c.loads.Load() != loads || c.stores.Load() != stores {
		t.Errorf("rejected accesses reached the window: loads %d->%d, stores %d->%d",
			loads, c.loads.Load(), stores, c.stores.Load())
	}
	for _, r := range Registers {
		if v := peek(t, c, r.Offset); v != 0xA5A5A5A5 {
			t.Errorf("register %s = %#x after rejected writes, want 0xa5a5a5a5", r.Name, v)
		}
	}
	if got := logs.FilterMessage("unaligned access").Len(); got != 18 {
		t.Errorf("logged %d unaligned access warnings, want 18", got)
	}
}

func TestPastEnd(t *testing.T) {
	d, c := newTestDevice(t, Variant32)
	for _, off := range []int64{Span, Span + 1, Span + 4, 1 << 20} {
		b, err := d.ReadWord(off, 4)
		if err != io.EOF || len(b) != 0 {
			t.Errorf("ReadWord(%d) = %v, %v; want empty, io.EOF", off, b, err)
		}
		n, err := d.WriteWord(off, word(7))
		if n != 0 || err != nil {
			t.Errorf("WriteWord(%d) = %d, %v; want 0, nil", off, n, err)
		}
	}
	if c.loads.Load() != 0 || c.stores.Load() != 0 {
		t.Errorf("out of range accesses reached the window")
	}
}

func TestZeroLength(t *testing.T) {
	d, c := newTestDevice(t, Variant32)
	if b, err := d.ReadWord(0, 0); b != nil || err != nil {
		t.Errorf("ReadWord(0, 0) = %v, %v; want nil, nil", b, err)
	}
	if n, err := d.WriteWord(0, nil); n != 0 || err != nil {
		t.Errorf("WriteWord(0, nil) = %d, %v; want 0, nil", n, err)
	}
	if c.loads.Load() != 0 || c.stores.Load() != 0 {
		t.Errorf("zero-length accesses reached the window")
	}
}

func TestShortWrite(t *testing.T) {
	d, c := newTestDevice(t, Variant32)
	d.WriteWord(4, word(1000))
	n, err := d.WriteWord(4, []byte{1, 2, 3})
	if n != 0 || !errors.Is(err, ErrFault) {
		t.Fatalf("WriteWord with 3 bytes = %d, %v; want 0, ErrFault", n, err)
	}
	if v := peek(t, c, 4); v != 1000 {
		t.Errorf("b0 = %d after short write, want 1000", v)
	}
	// The guard must have been released on the fault path.
	if n, err := d.WriteWord(4, word(2000)); n != 4 || err != nil {
		t.Fatalf("WriteWord after fault = %d, %v", n, err)
	}
	want := Stats{Reads: 0, Writes: 2, GuardAcquisitions: 3, Faults: 1}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want, +got):\n%s", diff)
	}
}

func TestConcurrentWriters(t *testing.T) {
	d, c := newTestDevice(t, Variant32)
	const n = 64
	issued := make(map[uint32]bool)
	var g errgroup.Group
	for i := 1; i <= n; i++ {
		v := uint32(i) * 0x01010101
		issued[v] = true
		g.Go(func() error {
			_, err := d.WriteWord(0, word(v))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := peek(t, c, 0); !issued[got] {
		t.Errorf("delay = %#08x, not one of the issued values", got)
	}
	st := d.Stats()
	if st.GuardAcquisitions != n || st.Writes != n {
		t.Errorf("Stats = %+v, want %d guard acquisitions and writes", st, n)
	}
}

func TestWritersOnSeparateDevices(t *testing.T) {
	a, _ := newTestDevice(t, Variant32)
	b, _ := newTestDevice(t, Variant32)

	// Holding a's guard must not stall writers on b.
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, err := b.WriteWord(0, word(3)); n != 4 || err != nil {
		t.Fatalf("WriteWord on second device = %d, %v", n, err)
	}
}

func TestCrossInterface(t *testing.T) {
	for _, v := range []Variant{Variant16, Variant32} {
		t.Run(strconv.Itoa(int(v.Width)), func(t *testing.T) {
			d, _ := newTestDevice(t, v)
			if n, err := d.Set("b0", "42"); n != 2 || err != nil {
				t.Fatalf("Set(b0, 42) = %d, %v", n, err)
			}
			got, err := d.ReadWord(0x04, 4)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(word(42), got); diff != "" {
				t.Errorf("ReadWord(4) after Set mismatch (-want, +got):\n%s", diff)
			}

			if _, err := d.WriteWord(0x08, word(77)); err != nil {
				t.Fatal(err)
			}
			if s, err := d.Get("bm"); s != "77\n" || err != nil {
				t.Errorf("Get(bm) = %q, %v; want \"77\\n\"", s, err)
			}
		})
	}
}

func TestScenario(t *testing.T) {
	d, _ := newTestDevice(t, Variant32)
	f := d.Open()
	defer f.Close()
	for _, v := range []uint32{10, 1000, 500, 50} {
		if n, err := f.Write(word(v)); n != 4 || err != nil {
			t.Fatalf("Write(%d) = %d, %v", v, n, err)
		}
	}
	got := make(map[string]string)
	for _, name := range []string{"delay", "b0", "bm", "wetDryMix"} {
		s, err := d.Get(name)
		if err != nil {
			t.Fatal(err)
		}
		got[name] = s
	}
	want := map[string]string{"delay": "10\n", "b0": "1000\n", "bm": "500\n", "wetDryMix": "50\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("attributes mismatch (-want, +got):\n%s", diff)
	}
}

func TestClose(t *testing.T) {
	d, c := newTestDevice(t, Variant32)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if got := c.closes.Load(); got != 1 {
		t.Errorf("window closed %d times, want 1", got)
	}
	if got := d.State(); got != Unregistered {
		t.Errorf("State = %v, want %v", got, Unregistered)
	}
	if _, err := d.ReadWord(0, 4); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadWord after Close: %v, want ErrClosed", err)
	}
	if _, err := d.WriteWord(0, word(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteWord after Close: %v, want ErrClosed", err)
	}
	if _, err := d.Set("b0", "1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close: %v, want ErrClosed", err)
	}
}

type shortOpener struct{ conn *countingConn }

func (o *shortOpener) Open(r driver.Resource) (driver.Conn, error) {
	c, err := Memory{}.Open(r)
	if err != nil {
		return nil, err
	}
	o.conn = &countingConn{Conn: spanConn{c, 8}}
	return o.conn, nil
}

type spanConn struct {
	driver.Conn
	span int64
}

func (c spanConn) Span() int64 { return c.span }

func TestMapShortResource(t *testing.T) {
	o := &countingOpener{}
	_, err := Map(driver.Resource{Name: "x", Base: 0x1000, Size: 8}, o)
	if !errors.Is(err, ErrResource) {
		t.Errorf("Map of 8-byte resource: %v, want ErrResource", err)
	}
	if len(o.conns) != 0 {
		t.Errorf("short resource was mapped")
	}

	so := &shortOpener{}
	_, err = Map(driver.Resource{Name: "x", Base: 0x1000}, so)
	if !errors.Is(err, ErrResource) {
		t.Errorf("Map of 8-byte window: %v, want ErrResource", err)
	}
	if got := so.conn.closes.Load(); got != 1 {
		t.Errorf("short window closed %d times, want 1", got)
	}
}

func TestMapVariant(t *testing.T) {
	for _, tt := range []struct {
		compatible string
		opts       []Option
		want       Variant
	}{
		{Variant16.Compatible, nil, Variant16},
		{Variant32.Compatible, nil, Variant32},
		{"acme,other", nil, Variant32},
		{Variant32.Compatible, []Option{WithVariant(Variant16)}, Variant16},
	} {
		d, err := Map(driver.Resource{Compatible: tt.compatible}, Memory{}, tt.opts...)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tt.want, d.Variant()); diff != "" {
			t.Errorf("%s: variant mismatch (-want, +got):\n%s", tt.compatible, diff)
		}
		if d.Name() != tt.want.Name {
			t.Errorf("%s: Name = %q, want %q", tt.compatible, d.Name(), tt.want.Name)
		}
		d.Close()
	}

	d, err := Map(driver.Resource{Compatible: Variant16.Compatible}, Memory{}, WithWidth(Width32))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if got := d.Variant().Width; got != Width32 {
		t.Errorf("WithWidth(32) on 16-bit variant: width = %d", got)
	}
}
