// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/audiomini/exp/io/combfilter/driver"
)

// State is the lifecycle state of a device.
type State int32

const (
	Unbound State = iota
	Mapped
	Registered
	Unregistered
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Mapped:
		return "mapped"
	case Registered:
		return "registered"
	case Unregistered:
		return "unregistered"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Registry makes devices reachable by name. It plays the part of the misc
// device table: a device is usable by other components only while it is
// registered.
type Registry struct {
	log    *zap.Logger
	opts   []Option
	tracer trace.Tracer

	mu   sync.Mutex
	devs map[string]*Device
}

// NewRegistry returns an empty registry. The options are also applied to
// every device created by Probe.
func NewRegistry(opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{
		log:    o.log,
		opts:   opts,
		tracer: o.tp.Tracer("github.com/audiomini/exp/io/combfilter"),
		devs:   make(map[string]*Device),
	}
}

// Register makes a mapped device reachable. It fails with ErrNameInUse when
// the name is taken, leaving d mapped and owned by the caller.
func (r *Registry) Register(d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := d.State(); st != Mapped {
		return xerrors.Errorf("combfilter: register %s: device is %v: %w", d.name, st, ErrResource)
	}
	if _, ok := r.live(d.name); ok {
		return xerrors.Errorf("combfilter: register %s: %w", d.name, ErrNameInUse)
	}
	r.devs[d.name] = d
	d.state.Store(int32(Registered))
	return nil
}

// Probe maps res and registers the resulting device. If registration fails
// the mapping is released before returning.
func (r *Registry) Probe(ctx context.Context, res driver.Resource, o driver.Opener) (_ *Device, err error) {
	ctx, span := r.tracer.Start(ctx, "combfilter.Probe", trace.WithAttributes(
		attribute.String("device.name", res.Name),
		attribute.String("device.compatible", res.Compatible),
		attribute.Int64("device.base", int64(res.Base)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := Map(res, o, r.opts...)
	if err != nil {
		r.log.Error("failed to request/remap platform device resource", zap.Stringer("resource", res), zap.Error(err))
		return nil, err
	}
	if err := r.Register(d); err != nil {
		r.log.Error("failed to register device", zap.String("device", d.name), zap.Error(err))
		d.Close()
		return nil, err
	}
	span.SetAttributes(attribute.String("device.variant", d.variant.Name))
	r.log.Info("probe successful", zap.String("device", d.name), zap.Stringer("resource", res))
	return d, nil
}

// Unregister removes the named device and closes it.
func (r *Registry) Unregister(ctx context.Context, name string) (err error) {
	_, span := r.tracer.Start(ctx, "combfilter.Unregister", trace.WithAttributes(
		attribute.String("device.name", name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	r.mu.Lock()
	d, ok := r.devs[name]
	delete(r.devs, name)
	r.mu.Unlock()
	if !ok {
		return xerrors.Errorf("combfilter: unregister %q: %w", name, ErrNotFound)
	}
	if err := d.Close(); err != nil {
		return xerrors.Errorf("combfilter: unregister %s: %w", name, err)
	}
	r.log.Info("remove successful", zap.String("device", name))
	return nil
}

// Lookup returns the registered device called name. A device closed
// directly with Device.Close is no longer registered and is forgotten.
func (r *Registry) Lookup(name string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live(name)
}

// live returns the named device if it is still registered, dropping its
// entry otherwise. r.mu must be held.
func (r *Registry) live(name string) (*Device, bool) {
	d, ok := r.devs[name]
	if !ok {
		return nil, false
	}
	if d.State() != Registered {
		delete(r.devs, name)
		return nil, false
	}
	return d, true
}

// DeviceStatus describes a registered device.
type DeviceStatus struct {
	Name    string
	Variant string
	State   State
	Stats   Stats
}

// Status reports every registered device, sorted by name.
func (r *Registry) Status() []DeviceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := make([]DeviceStatus, 0, len(r.devs))
	for name := range r.devs {
		d, ok := r.live(name)
		if !ok {
			continue
		}
		st = append(st, DeviceStatus{
			Name:    name,
			Variant: d.variant.Name,
			State:   d.State(),
			Stats:   d.Stats(),
		})
	}
	sort.Slice(st, func(i, j int) bool { return st[i].Name < st[j].Name })
	return st
}

// Close unregisters every device.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	names := make([]string, 0, len(r.devs))
	for name := range r.devs {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	var first error
	for _, name := range names {
		if err := r.Unregister(ctx, name); err != nil && first == nil {
			first = err
		}
	}
	return first
}
