// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"encoding/binary"
	"io"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/audiomini/exp/io/combfilter/driver"
	"github.com/audiomini/exp/io/mmio"
)

// Controller is the method set shared by Device and DevfsClient.
type Controller interface {
	ReadWord(off int64, length int) ([]byte, error)
	WriteWord(off int64, data []byte) (int, error)
	Get(name string) (string, error)
	Set(name, text string) (int, error)
	Attributes() []string
	Close() error
}

var (
	_ Controller = (*Device)(nil)
	_ Controller = (*DevfsClient)(nil)
)

// Device is a mapped comb filter register block.
type Device struct {
	name    string
	variant Variant
	conn    driver.Conn
	log     *zap.Logger
	metrics *instruments

	// life is held for reading by every access and for writing by Close,
	// so the window is never unmapped under an in-flight load or store.
	life   sync.RWMutex
	closed bool
	// mu is the write guard.
	mu sync.Mutex

	state  atomic.Int32
	reads  atomic.Uint64
	writes atomic.Uint64
	guards atomic.Uint64
	faults atomic.Uint64
}

// Stats holds operation counters for a device.
type Stats struct {
	Reads             uint64
	Writes            uint64
	GuardAcquisitions uint64
	Faults            uint64
}

type options struct {
	log        *zap.Logger
	variant    Variant
	hasVariant bool
	width      Width
	tp         trace.TracerProvider
	mp         metric.MeterProvider
}

// Option configures a Device or a Registry.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithVariant selects the component variant. Map picks the variant from the
// resource's compatible string when this option is not given.
func WithVariant(v Variant) Option {
	return func(o *options) {
		o.variant = v
		o.hasVariant = true
	}
}

// WithWidth overrides the register width of the variant.
func WithWidth(w Width) Option {
	return func(o *options) { o.width = w }
}

// WithTracerProvider sets the provider used to trace lifecycle operations.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the provider that receives the operation
// counters of every device. The default records nothing.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

func newOptions(opts []Option) *options {
	o := &options{
		log:     zap.NewNop(),
		variant: Variant32,
		tp:      trace.NewNoopTracerProvider(),
		mp:      metric.NewNoopMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.width != 0 {
		o.variant.Width = o.width
	}
	return o
}

// New returns a device over an already mapped window. The window must span
// at least Span bytes. The device takes ownership of conn only on success.
func New(name string, conn driver.Conn, opts ...Option) (*Device, error) {
	o := newOptions(opts)
	return newDevice(name, conn, o)
}

func newDevice(name string, conn driver.Conn, o *options) (*Device, error) {
	if conn.Span() < Span {
		return nil, xerrors.Errorf("combfilter: %s spans %d bytes, need %d: %w", name, conn.Span(), Span, ErrResource)
	}
	switch o.variant.Width {
	case Width16, Width32:
	default:
		return nil, xerrors.Errorf("combfilter: %s: unsupported register width %d", name, o.variant.Width)
	}
	d := &Device{
		name:    name,
		variant: o.variant,
		conn:    conn,
		log:     o.log.With(zap.String("device", name)),
		metrics: newInstruments(o.mp, name),
	}
	d.state.Store(int32(Mapped))
	return d, nil
}

// Map maps the registers of res with the opener and returns a device in the
// Mapped state.
func Map(res driver.Resource, o driver.Opener, opts ...Option) (*Device, error) {
	return mapResource(res, o, newOptions(opts))
}

func mapResource(res driver.Resource, op driver.Opener, o *options) (*Device, error) {
	if !o.hasVariant {
		if v, ok := VariantFor(res.Compatible); ok {
			o.variant = v
			if o.width != 0 {
				o.variant.Width = o.width
			}
		}
	}
	if res.Size != 0 && res.Size < Span {
		return nil, xerrors.Errorf("combfilter: map %v: resource shorter than %d bytes: %w", res, Span, ErrResource)
	}
	conn, err := op.Open(res)
	if err != nil {
		return nil, xerrors.Errorf("combfilter: map %v: %v: %w", res, err, ErrResource)
	}
	name := res.Name
	if name == "" {
		name = o.variant.Name
	}
	d, err := newDevice(name, conn, o)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Variant returns the component variant the device was configured with.
func (d *Device) Variant() Variant { return d.variant }

// State returns the lifecycle state of the device.
func (d *Device) State() State { return State(d.state.Load()) }

// Stats returns a snapshot of the operation counters.
func (d *Device) Stats() Stats {
	return Stats{
		Reads:             d.reads.Load(),
		Writes:            d.writes.Load(),
		GuardAcquisitions: d.guards.Load(),
		Faults:            d.faults.Load(),
	}
}

// checkOffset validates a byte-stream offset. It reports eof for offsets at
// or past the end of the window, which are not errors.
func checkOffset(log *zap.Logger, op, name string, off int64) (eof bool, err error) {
	switch {
	case off < 0:
		return false, &OpError{Op: op, Device: name, Offset: off, Err: ErrInvalidArgument}
	case off >= Span:
		return true, nil
	case off%mmio.WordSize != 0:
		log.Warn("unaligned access", zap.String("op", op), zap.Int64("offset", off))
		return false, &OpError{Op: op, Device: name, Offset: off, Err: ErrAlignment}
	}
	return false, nil
}

// ReadWord reads the register word at off. It returns exactly 4 bytes, in
// little-endian order, whatever the requested length, unless length is zero.
// Offsets at or past Span return io.EOF.
func (d *Device) ReadWord(off int64, length int) ([]byte, error) {
	eof, err := checkOffset(d.log, "read", d.name, off)
	if err != nil {
		return nil, err
	}
	if eof {
		return nil, io.EOF
	}
	if length == 0 {
		return nil, nil
	}
	v, err := d.load("read", off)
	if err != nil {
		return nil, err
	}
	b := make([]byte, mmio.WordSize)
	binary.LittleEndian.PutUint32(b, v)
	return b, nil
}

// WriteWord writes the first 4 bytes of data, in little-endian order, to the
// register at off and returns 4. Writes at or past Span are discarded and
// return 0 and no error. Data shorter than 4 bytes fails with ErrFault
// without touching the register.
func (d *Device) WriteWord(off int64, data []byte) (int, error) {
	eof, err := checkOffset(d.log, "write", d.name, off)
	if err != nil || eof {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	return d.store("write", off, data)
}

func (d *Device) load(op string, off int64) (uint32, error) {
	d.life.RLock()
	defer d.life.RUnlock()
	if d.closed {
		return 0, &OpError{Op: op, Device: d.name, Offset: off, Err: ErrClosed}
	}
	v, err := d.conn.Load32(off)
	if err != nil {
		return 0, &OpError{Op: op, Device: d.name, Offset: off, Err: err}
	}
	d.reads.Inc()
	d.metrics.inc(d.metrics.reads)
	return v, nil
}

// store is the only path that modifies a register.
func (d *Device) store(op string, off int64, data []byte) (int, error) {
	d.life.RLock()
	defer d.life.RUnlock()
	if d.closed {
		return 0, &OpError{Op: op, Device: d.name, Offset: off, Err: ErrClosed}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.guards.Inc()
	d.metrics.inc(d.metrics.guards)

	if len(data) < mmio.WordSize {
		d.faults.Inc()
		d.metrics.inc(d.metrics.faults)
		d.log.Warn("nothing copied from caller", zap.String("op", op), zap.Int("len", len(data)))
		return 0, &OpError{Op: op, Device: d.name, Offset: off, Err: ErrFault}
	}
	if err := d.conn.Store32(off, binary.LittleEndian.Uint32(data)); err != nil {
		return 0, &OpError{Op: op, Device: d.name, Offset: off, Err: err}
	}
	d.writes.Inc()
	d.metrics.inc(d.metrics.writes)
	return mmio.WordSize, nil
}

// Close releases the register window. It waits for in-flight operations to
// finish; later operations fail with ErrClosed.
func (d *Device) Close() error {
	d.life.Lock()
	defer d.life.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.state.Store(int32(Unregistered))
	return d.conn.Close()
}
